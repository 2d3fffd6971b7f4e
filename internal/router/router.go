package router

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/quizmaster/profile-kit/internal/handler"
	"github.com/quizmaster/profile-kit/internal/middleware"
	"github.com/quizmaster/profile-kit/pkg/auth"
	"github.com/quizmaster/profile-kit/pkg/metrics"
)

type Config struct {
	Mode         string
	MaxBodyBytes int64
	MetricsPath  string
	NoMetrics    bool
	CORS         middleware.CORSConfig
	RateLimit    middleware.RateLimiterConfig
}

type Router struct {
	engine  *gin.Engine
	h       *handler.Handler
	tokens  auth.JWTService
	metrics *metrics.Metrics
	logger  zerolog.Logger
	config  Config
}

// NewRouter builds the engine and its middleware chain. tokens may be nil, in
// which case the session routes are not mounted.
func NewRouter(h *handler.Handler, tokens auth.JWTService, m *metrics.Metrics, logger zerolog.Logger, config Config) *Router {
	if config.Mode != "" {
		gin.SetMode(config.Mode)
	}
	if config.MetricsPath == "" {
		config.MetricsPath = "/metrics"
	}

	engine := gin.New()
	r := &Router{
		engine:  engine,
		h:       h,
		tokens:  tokens,
		metrics: m,
		logger:  logger,
		config:  config,
	}

	// Add core middlewares
	engine.Use(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.ErrorHandler(logger),
	)
	if m != nil {
		engine.Use(middleware.Metrics(m))
	}
	engine.Use(middleware.CORS(config.CORS))
	if config.MaxBodyBytes > 0 {
		engine.Use(middleware.SizeLimit(config.MaxBodyBytes))
	}
	if config.RateLimit.Enabled {
		engine.Use(middleware.NewRateLimiter(config.RateLimit).RateLimit())
	}

	return r
}

func (r *Router) Setup() {
	r.setupHealthCheck()

	api := r.engine.Group("/api/v1")
	r.h.RegisterRoutes(api)

	if r.tokens != nil {
		protected := api.Group("/session")
		protected.Use(middleware.Authenticate(r.tokens))
		protected.GET("/me", handler.Me(middleware.ContextClaims))
	}
}

func (r *Router) setupHealthCheck() {
	health := r.engine.Group("/health")
	{
		health.GET("/live", r.h.LivenessCheck)
		health.GET("/ready", r.h.ReadinessCheck)
	}
	if !r.config.NoMetrics {
		r.engine.GET(r.config.MetricsPath, r.h.MetricsHandler)
	}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
