package main

import (
	"context"
	"errors"
	"os/signal"
	"smtptester"
	"smtptester/internal/api/handler/endpoints"
	"smtptester/internal/api/handler/middleware"
	"smtptester/internal/api/service"
	"smtptester/internal/metrics"
	"smtptester/pkg"
	"syscall"

	"github.com/gin-contrib/graceful"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
)

func main() {
	smtptester.InitConfig(".env")
	cfg := smtptester.GetConfig()

	gin.SetMode(gin.ReleaseMode)
	if cfg.Mode == "dev" {
		gin.SetMode(gin.DebugMode)
	}

	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		registry := prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		var err error
		m, err = metrics.New(registry)
		pkg.AssertNoError(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	router, err := newServer(cfg, smtptester.Logger, m)
	pkg.AssertNoError(err)
	defer stop()
	defer router.Close()

	smtptester.Logger.Debug().Msgf("Starting SMTP tester API on port %s", cfg.ApiPort)
	if err = router.RunWithContext(ctx); err != nil && !errors.Is(err, context.Canceled) {
		smtptester.Logger.Fatal().Msg(err.Error())
	}
}

// newServer builds the router without gin's own access log; requests are
// logged once by middleware.RequestLogger.
func newServer(cfg smtptester.AppConfig, logger zerolog.Logger, m *metrics.Metrics) (*graceful.Graceful, error) {
	engine := gin.New()
	engine.Use(gin.Recovery())

	router, err := graceful.New(engine, graceful.WithAddr(cfg.ApiPort))
	if err != nil {
		return nil, err
	}

	router.Use(
		middleware.RequestID(),
		middleware.RequestLogger(logger, m),
		middleware.Cors(cfg.CorsOrigins, logger, m),
	)

	initAPI(router, cfg, m)
	return router, nil
}

func initAPI(router gin.IRouter, cfg smtptester.AppConfig, m *metrics.Metrics) {
	mail := service.NewMailService(cfg.SmtpConfig)
	endpoints.SmtpTestHandler(router, service.NewSmtpTestService(mail, mail, m))
	endpoints.HealthHandler(router, m)
}
