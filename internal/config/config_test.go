package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateOnlyBindsProduction(t *testing.T) {
	cfg := &Config{App: AppConfig{Env: "development"}, JWT: JWTConfig{Secret: devSessionSecret}}
	assert.NoError(t, cfg.Validate())

	cfg.App.Env = "production"
	assert.Error(t, cfg.Validate())

	cfg.JWT.Secret = "s3cret"
	cfg.OAuth.AdminEmail = "owner@studio.test"
	assert.NoError(t, cfg.Validate())

	cfg.Stripe.SecretKey = "sk_live_x"
	assert.Error(t, cfg.Validate())
	cfg.Stripe.WebhookSecret = "whsec_x"
	assert.NoError(t, cfg.Validate())
}
