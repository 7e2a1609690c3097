package handler

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/sangkips/studio-billing-api/internal/application/service"
	"github.com/sangkips/studio-billing-api/internal/config"
	"github.com/sangkips/studio-billing-api/internal/presentation/http/dto/response"
	"github.com/sangkips/studio-billing-api/pkg/apperror"
	"github.com/sirupsen/logrus"
)

const oauthStateCookie = "oauth_state"

// AuthHandler handles the Google sign-in flow and the session cookie
type AuthHandler struct {
	authService *service.AuthService
	cfg         *config.Config
	log         logrus.FieldLogger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService, cfg *config.Config, log logrus.FieldLogger) *AuthHandler {
	return &AuthHandler{authService: authService, cfg: cfg, log: log}
}

func (h *AuthHandler) secureCookies() bool {
	return h.cfg.App.Env == "production"
}

// GoogleAuth redirects to the Google consent screen
// @Summary Google Login
// @Tags auth
// @Success 307
// @Router /auth/google [get]
func (h *AuthHandler) GoogleAuth(c *gin.Context) {
	authURL, state, err := h.authService.BeginGoogleLogin()
	if err != nil {
		response.Error(c, err)
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(oauthStateCookie, state, 600, "/", "", h.secureCookies(), true)
	c.Redirect(http.StatusTemporaryRedirect, authURL)
}

// GoogleCallback finishes sign-in, stores the session token in an
// HttpOnly cookie and sends the browser back to the frontend
// @Summary Google Callback
// @Tags auth
// @Param code query string true "Authorization code"
// @Param state query string true "OAuth state"
// @Success 307
// @Router /auth/google/callback [get]
func (h *AuthHandler) GoogleCallback(c *gin.Context) {
	state, err := c.Cookie(oauthStateCookie)
	c.SetCookie(oauthStateCookie, "", -1, "/", "", h.secureCookies(), true)
	if err != nil || state == "" || state != c.Query("state") {
		h.failLogin(c, apperror.NewUnauthorizedError("Invalid OAuth state"))
		return
	}
	if e := c.Query("error"); e != "" {
		h.failLogin(c, apperror.NewUnauthorizedError("Google sign-in was cancelled"))
		return
	}

	output, err := h.authService.CompleteGoogleLogin(c.Request.Context(), c.Query("code"))
	if err != nil {
		h.failLogin(c, err)
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cfg.JWT.CookieName, output.AccessToken, int(h.cfg.JWT.ExpiryHours.Seconds()), "/", "", h.secureCookies(), true)
	c.Redirect(http.StatusTemporaryRedirect, h.cfg.OAuth.FrontendSuccessURL)
}

func (h *AuthHandler) failLogin(c *gin.Context, err error) {
	appErr := apperror.GetAppError(err)
	h.log.WithFields(logrus.Fields{
		"module": "auth_handler",
		"kind":   appErr.Kind,
	}).WithError(err).Warn("Google sign-in failed")

	target := h.cfg.OAuth.FrontendErrorURL
	if target == "" {
		response.Error(c, err)
		return
	}
	u, perr := url.Parse(target)
	if perr != nil {
		response.Error(c, err)
		return
	}
	q := u.Query()
	q.Set("error", appErr.Message)
	u.RawQuery = q.Encode()
	c.Redirect(http.StatusTemporaryRedirect, u.String())
}

// Logout clears the session cookie
// @Summary Logout
// @Tags auth
// @Success 200 {object} response.APIResponse
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cfg.JWT.CookieName, "", -1, "/", "", h.secureCookies(), true)
	response.OK(c, "Logged out successfully", nil)
}

// Me returns the signed-in user
// @Summary Current User
// @Tags auth
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.APIResponse
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	user, err := h.authService.GetCurrentUser(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Profile retrieved successfully", gin.H{"user": user})
}
