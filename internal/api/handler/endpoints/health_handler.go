package endpoints

import (
	"net/http"
	"smtptester/internal/api/handler/response"
	"smtptester/internal/metrics"

	"github.com/gin-gonic/gin"
)

// HealthHandler exposes liveness and, when m is set, Prometheus metrics.
func HealthHandler(router gin.IRouter, m *metrics.Metrics) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, response.Health{Status: "ok"})
	})
	if m != nil {
		router.GET("/metrics", gin.WrapH(m.Handler()))
	}
}
