package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/sangkips/studio-billing-api/internal/domain/entity"
	"github.com/sangkips/studio-billing-api/internal/domain/repository"
	"github.com/sangkips/studio-billing-api/pkg/apperror"
	"github.com/sangkips/studio-billing-api/pkg/oauth"
	"github.com/sangkips/studio-billing-api/pkg/utils"
)

// GoogleProvider is the part of the Google OAuth client the login flow uses
type GoogleProvider interface {
	IsConfigured() bool
	GetAuthURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth.GoogleUserInfo, error)
	Authorize(info *oauth.GoogleUserInfo) error
}

// AuthService handles authentication-related operations
type AuthService struct {
	userRepo   repository.UserRepository
	google     GoogleProvider
	jwtManager *utils.JWTManager
	now        Clock
}

// NewAuthService creates a new auth service
func NewAuthService(userRepo repository.UserRepository, google GoogleProvider, jwtManager *utils.JWTManager, now Clock) *AuthService {
	return &AuthService{
		userRepo:   userRepo,
		google:     google,
		jwtManager: jwtManager,
		now:        now,
	}
}

// LoginOutput represents the login output
type LoginOutput struct {
	User        *entity.User
	AccessToken string
}

// BeginGoogleLogin returns the consent URL and the state value the
// callback must echo back
func (s *AuthService) BeginGoogleLogin() (string, string, error) {
	if !s.google.IsConfigured() {
		return "", "", apperror.NewUpstreamError("Google login is not configured", oauth.ErrOAuthNotConfigured)
	}
	state, err := utils.GenerateOAuthState()
	if err != nil {
		return "", "", err
	}
	return s.google.GetAuthURL(state), state, nil
}

// CompleteGoogleLogin exchanges the callback code, checks the account is
// the studio admin and issues a session token
func (s *AuthService) CompleteGoogleLogin(ctx context.Context, code string) (*LoginOutput, error) {
	if code == "" {
		return nil, apperror.NewBadRequestError("Authorization code is required")
	}
	info, err := s.google.Exchange(ctx, code)
	if err != nil {
		if errors.Is(err, oauth.ErrInvalidCode) {
			return nil, apperror.NewUnauthorizedError("Invalid authorization code")
		}
		return nil, apperror.NewUpstreamError("Failed to get user info from Google", err)
	}
	if err := s.google.Authorize(info); err != nil {
		return nil, apperror.NewUnauthorizedError(err.Error())
	}

	now := s.now()
	user := &entity.User{
		Email:       strings.ToLower(strings.TrimSpace(info.Email)),
		Name:        info.Name,
		Provider:    "google",
		LastLoginAt: &now,
	}
	if info.ID != "" {
		id := info.ID
		user.ProviderID = &id
	}
	if info.Picture != "" {
		photo := info.Picture
		user.Photo = &photo
	}

	user, err = s.userRepo.SaveSignIn(ctx, user)
	if err != nil {
		return nil, err
	}

	token, err := s.jwtManager.GenerateSessionToken(user.ID, user.Email)
	if err != nil {
		return nil, err
	}
	return &LoginOutput{User: user, AccessToken: token}, nil
}

// GetCurrentUser returns the signed-in user
func (s *AuthService) GetCurrentUser(ctx context.Context, userID uuid.UUID) (*entity.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperror.NewNotFoundError("User")
	}
	return user, nil
}
