package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/Pawankshetri11/payoutclickmain-sub001/config"
)

func SetupCORS(cfg *config.Config) gin.HandlerFunc {
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) == 0 || (len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*") {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
		corsConfig.AllowCredentials = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{
		"Origin", "Content-Type", "Content-Length", "Accept", "Authorization", "Cache-Control",
	}
	if cfg.SkipAuth {
		corsConfig.AddAllowHeaders("X-User-ID", "X-User-Role")
	}
	corsConfig.ExposeHeaders = []string{"Retry-After"}
	corsConfig.MaxAge = 12 * time.Hour
	return cors.New(corsConfig)
}
