package middleware

import (
	"slices"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sangkips/studio-billing-api/internal/config"
)

var (
	defaultCORSMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	defaultCORSHeaders = []string{"Accept", "Authorization", "Content-Type", "Origin", "X-Request-ID"}
	// always allowed whatever the configured list says
	requiredCORSHeaders = []string{IdempotencyKeyHeader}
)

// CORSMiddleware allows the owner dashboard and the public quote pages to
// call the API from the browser. Without configured origins only the
// frontend URL (or localhost during development) is allowed.
func CORSMiddleware(cfg *config.CORSConfig, frontendURL string) gin.HandlerFunc {
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		if frontendURL != "" {
			origins = []string{strings.TrimRight(frontendURL, "/")}
		} else {
			origins = []string{"http://localhost:3000", "http://127.0.0.1:3000"}
		}
	}

	methods := cfg.AllowedMethods
	if len(methods) == 0 {
		methods = defaultCORSMethods
	}

	headers := slices.Clone(cfg.AllowedHeaders)
	if len(headers) == 0 {
		headers = slices.Clone(defaultCORSHeaders)
	}
	for _, h := range requiredCORSHeaders {
		if !slices.Contains(headers, h) {
			headers = append(headers, h)
		}
	}

	return cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     methods,
		AllowHeaders:     headers,
		ExposeHeaders:    []string{"Content-Length", "Content-Type", "X-Request-ID", ReplayedHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}
