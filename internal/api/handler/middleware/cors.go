package middleware

import (
	"smtptester/internal/metrics"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Cors lets only origins from allowed call the API with credentials.
// Requests from any other origin are answered 403 before routing. Rejected
// origins are logged, the metric only counts them.
func Cors(allowed []string, logger zerolog.Logger, m *metrics.Metrics) gin.HandlerFunc {
	origins := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		origins[origin] = struct{}{}
	}

	return cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool {
			if _, ok := origins[origin]; ok {
				return true
			}
			logger.Warn().Str("origin", origin).Msg("CORS origin rejected")
			m.ObserveCorsReject()
			return false
		},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}
