package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sangkips/studio-billing-api/pkg/apperror"
	"github.com/sangkips/studio-billing-api/pkg/oauth"
	"github.com/sangkips/studio-billing-api/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGoogle struct {
	info    *oauth.GoogleUserInfo
	denied  error
	badCode bool
}

func (f *fakeGoogle) IsConfigured() bool { return true }

func (f *fakeGoogle) GetAuthURL(state string) string {
	return "https://accounts.test/auth?state=" + state
}

func (f *fakeGoogle) Exchange(_ context.Context, code string) (*oauth.GoogleUserInfo, error) {
	if f.badCode {
		return nil, oauth.ErrInvalidCode
	}
	return f.info, nil
}

func (f *fakeGoogle) Authorize(*oauth.GoogleUserInfo) error { return f.denied }

func newAuth(h *harness, g *fakeGoogle) (*AuthService, *utils.JWTManager) {
	jwt := utils.NewJWTManager("test-secret", time.Hour)
	return NewAuthService(h.repos.Users, g, jwt, h.clock.Now), jwt
}

func TestGoogleLoginUpdatesExistingAdmin(t *testing.T) {
	h := newHarness(t)
	g := &fakeGoogle{info: &oauth.GoogleUserInfo{ID: "g-1", Email: " Owner@Studio.test ", Name: "Sam Rivers", Picture: "https://img.test/sam.png"}}
	auth, jwt := newAuth(h, g)

	out, err := auth.CompleteGoogleLogin(h.ctx, "code")
	require.NoError(t, err)
	assert.Equal(t, h.user.ID, out.User.ID)
	assert.Equal(t, "Sam Rivers", out.User.Name)
	require.NotNil(t, out.User.Photo)
	assert.Equal(t, "https://img.test/sam.png", *out.User.Photo)
	require.NotNil(t, out.User.LastLoginAt)

	claims, err := jwt.ValidateSessionToken(out.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, h.user.ID, claims.UserID)
}

func TestGoogleLoginCreatesAdminOnce(t *testing.T) {
	h := newHarness(t)
	g := &fakeGoogle{info: &oauth.GoogleUserInfo{ID: "g-2", Email: "new@studio.test", Name: "New Owner"}}
	auth, _ := newAuth(h, g)

	first, err := auth.CompleteGoogleLogin(h.ctx, "code")
	require.NoError(t, err)
	second, err := auth.CompleteGoogleLogin(h.ctx, "code")
	require.NoError(t, err)
	assert.Equal(t, first.User.ID, second.User.ID)

	me, err := auth.GetCurrentUser(h.ctx, first.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "new@studio.test", me.Email)
}

func TestGoogleLoginRejections(t *testing.T) {
	h := newHarness(t)

	auth, _ := newAuth(h, &fakeGoogle{})
	_, err := auth.CompleteGoogleLogin(h.ctx, "")
	requireKind(t, err, apperror.KindInvalidInput)

	auth, _ = newAuth(h, &fakeGoogle{badCode: true})
	_, err = auth.CompleteGoogleLogin(h.ctx, "stale")
	requireKind(t, err, apperror.KindUnauthorized)

	auth, _ = newAuth(h, &fakeGoogle{
		info:   &oauth.GoogleUserInfo{Email: "intruder@example.com"},
		denied: errors.New("account is not the studio admin"),
	})
	_, err = auth.CompleteGoogleLogin(h.ctx, "code")
	requireKind(t, err, apperror.KindUnauthorized)
}
