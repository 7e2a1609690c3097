package oauth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAuthorize(t *testing.T) {
	svc := NewGoogleOAuthService(GoogleOAuthConfig{
		ClientID:     "id",
		ClientSecret: "secret",
		AdminEmail:   "Owner@Studio.test",
	})

	assert.NoError(t, svc.Authorize(&GoogleUserInfo{Email: "owner@studio.test", VerifiedEmail: true}))
	assert.ErrorIs(t, svc.Authorize(&GoogleUserInfo{Email: "owner@studio.test"}), ErrEmailNotVerified)
	assert.ErrorIs(t, svc.Authorize(&GoogleUserInfo{Email: "guest@studio.test", VerifiedEmail: true}), ErrEmailNotAllowed)
}

func TestAuthorizeWithoutAdminRejectsEveryone(t *testing.T) {
	svc := NewGoogleOAuthService(GoogleOAuthConfig{ClientID: "id", ClientSecret: "secret"})
	assert.ErrorIs(t, svc.Authorize(&GoogleUserInfo{Email: "owner@studio.test", VerifiedEmail: true}), ErrEmailNotAllowed)
}
