package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"farm2go/internal/config"
)

// CORS Cross-Origin Resource Sharing middleware driven by configuration.
func CORS(cfg config.SecurityConfig) gin.HandlerFunc {
	corsConfig := cors.DefaultConfig()

	if len(cfg.CORS.AllowOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.CORS.AllowOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}

	if len(cfg.CORS.AllowMethods) > 0 {
		corsConfig.AllowMethods = cfg.CORS.AllowMethods
	}

	if len(cfg.CORS.AllowHeaders) > 0 {
		corsConfig.AllowHeaders = cfg.CORS.AllowHeaders
	} else {
		corsConfig.AllowHeaders = []string{
			"Origin",
			"Content-Length",
			"Content-Type",
			"Authorization",
			"Accept",
			"X-Requested-With",
		}
	}

	// Credentialed requests cannot pair with a wildcard origin.
	corsConfig.AllowCredentials = cfg.CORS.AllowCredentials && !corsConfig.AllowAllOrigins

	if cfg.CORS.MaxAge > 0 {
		corsConfig.MaxAge = time.Duration(cfg.CORS.MaxAge) * time.Second
	}

	return cors.New(corsConfig)
}
