package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sangkips/studio-billing-api/internal/config"
	"github.com/sangkips/studio-billing-api/internal/infrastructure/repository"
	"github.com/sangkips/studio-billing-api/internal/testutil"
	"github.com/sangkips/studio-billing-api/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCORSDefaultsToFrontendOrigin(t *testing.T) {
	r := gin.New()
	r.Use(CORSMiddleware(&config.CORSConfig{}, "https://studio.test/"))
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://studio.test")
	w := serve(r, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://studio.test", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Expose-Headers"), ReplayedHeader)

	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://elsewhere.test")
	w = serve(r, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCORSAlwaysAllowsIdempotencyKey(t *testing.T) {
	r := gin.New()
	r.Use(CORSMiddleware(&config.CORSConfig{
		AllowedOrigins: []string{"https://studio.test"},
		AllowedHeaders: []string{"Content-Type"},
	}, ""))
	r.POST("/api/v1/payments", func(c *gin.Context) { c.Status(http.StatusCreated) })

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/payments", nil)
	req.Header.Set("Origin", "https://studio.test")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", IdempotencyKeyHeader)
	w := serve(r, req)
	assert.Less(t, w.Code, 300)
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), IdempotencyKeyHeader)
}

func TestRateLimiterPerClient(t *testing.T) {
	cfg := DefaultRateLimiterConfig()
	cfg.RequestsPerSecond = 0.001
	cfg.BurstSize = 2
	rl := NewClientRateLimiter(cfg)

	r := gin.New()
	r.Use(rl.Middleware())
	r.GET("/public/quotes/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	hit := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/public/quotes/x", nil)
		req.RemoteAddr = ip + ":4000"
		return serve(r, req).Code
	}
	assert.Equal(t, http.StatusOK, hit("10.0.0.1"))
	assert.Equal(t, http.StatusOK, hit("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, hit("10.0.0.1"))
	assert.Equal(t, http.StatusOK, hit("10.0.0.2"))
}

func TestRateLimiterConfigFrom(t *testing.T) {
	rl := RateLimiterConfigFrom(config.RateLimitConfig{Requests: 120, Duration: 60})
	assert.InDelta(t, 2.0, rl.RequestsPerSecond, 1e-9)
	assert.Equal(t, 120, rl.BurstSize)

	assert.Equal(t, DefaultRateLimiterConfig(), RateLimiterConfigFrom(config.RateLimitConfig{}))
}

func TestAuthMiddleware(t *testing.T) {
	jwt := utils.NewJWTManager("test-secret", time.Hour)
	userID := uuid.New()
	token, err := jwt.GenerateSessionToken(userID, "owner@studio.test")
	require.NoError(t, err)

	r := gin.New()
	r.Use(AuthMiddleware(jwt, "studio_session"))
	r.GET("/me", func(c *gin.Context) {
		c.String(http.StatusOK, c.MustGet("user_id").(uuid.UUID).String())
	})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	assert.Equal(t, http.StatusUnauthorized, serve(r, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := serve(r, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, userID.String(), w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: "studio_session", Value: token})
	assert.Equal(t, http.StatusOK, serve(r, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Token "+token)
	assert.Equal(t, http.StatusUnauthorized, serve(r, req).Code)
}

func TestIdempotencyReplaysUntilExpiry(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repository.NewIdempotencyRepository(db)
	clock := testutil.NewClock(time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))
	userID := uuid.New()

	calls := 0
	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set("user_id", userID) })
	r.Use(Idempotency(IdempotencyConfig{Repo: repo, Now: clock.Now}))
	r.POST("/api/v1/payments", func(c *gin.Context) {
		calls++
		c.JSON(http.StatusCreated, gin.H{"call": calls})
	})
	post := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/payments", nil)
		req.Header.Set(IdempotencyKeyHeader, "pay-1")
		return serve(r, req)
	}

	first := post()
	second := post()
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, "true", second.Header().Get(ReplayedHeader))
	assert.JSONEq(t, first.Body.String(), second.Body.String())
	assert.Equal(t, 1, calls)

	clock.Advance(IdempotencyKeyTTL + time.Minute)
	third := post()
	assert.Empty(t, third.Header().Get(ReplayedHeader))
	assert.JSONEq(t, `{"call":2}`, third.Body.String())

	fourth := post()
	assert.Equal(t, "true", fourth.Header().Get(ReplayedHeader))
	assert.Equal(t, 2, calls)

	clock.Advance(IdempotencyKeyTTL + time.Minute)
	n, err := repo.DeleteExpired(context.Background(), clock.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
