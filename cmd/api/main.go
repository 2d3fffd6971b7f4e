package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"

	"github.com/quizmaster/profile-kit/config"
	"github.com/quizmaster/profile-kit/internal/forms"
	"github.com/quizmaster/profile-kit/internal/handler"
	"github.com/quizmaster/profile-kit/internal/router"
	"github.com/quizmaster/profile-kit/pkg/auth"
	"github.com/quizmaster/profile-kit/pkg/logger"
	"github.com/quizmaster/profile-kit/pkg/messaging/redis"
	"github.com/quizmaster/profile-kit/pkg/metrics"
	"github.com/quizmaster/profile-kit/pkg/validator"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	log.Logger = logger.NewLogger(&cfg.Log).Zerolog().With().Str("service", "policy-api").Logger()

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewMetrics(cfg.Monitoring.Namespace, "api", reg)

	checks := map[string]handler.ReadinessCheck{}

	// The API does not publish toasts, but when the broker is configured its
	// health gates readiness so clients relying on it are not routed here.
	if cfg.Notify.Enabled {
		broker, err := redis.NewRedisBroker(cfg.Notify.Redis, log.Logger, m)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to Redis")
		}
		defer broker.Close()
		checks["redis"] = broker.Ping
	}

	var tokens auth.JWTService
	if cfg.Session.JWTSecret != "" {
		tokens = auth.NewParser(cfg.Session.JWTSecret)
	} else {
		log.Warn().Msg("session.jwt_secret not set, /api/v1/session routes disabled")
	}

	h := handler.NewHandler(forms.NewChecker(validator.New()), m, reg, checks)

	routerCfg := router.Config{
		Mode:         cfg.Server.Mode,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
		MetricsPath:  cfg.Monitoring.MetricsPath,
		NoMetrics:    !cfg.Monitoring.PrometheusEnabled,
		CORS:         cfg.CORS,
		RateLimit:    cfg.RateLimit,
	}
	r := router.NewRouter(h, tokens, m, log.Logger, routerCfg)
	r.Setup()

	// Create server
	srv := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        r.Engine(),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	// Start server
	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("policy API listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}
