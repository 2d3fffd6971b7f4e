package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/quizmaster/profile-kit/internal/forms"
	"github.com/quizmaster/profile-kit/pkg/metrics"
)

// ReadinessCheck reports whether one dependency is usable.
type ReadinessCheck func(ctx context.Context) error

// Handler contains dependencies for all handlers
type Handler struct {
	checker  *forms.Checker
	metrics  *metrics.Metrics
	gatherer prometheus.Gatherer
	checks   map[string]ReadinessCheck
	started  time.Time
}

// NewHandler creates a new handler instance. gatherer serves /metrics; checks
// are run by the readiness probe.
func NewHandler(checker *forms.Checker, m *metrics.Metrics, gatherer prometheus.Gatherer, checks map[string]ReadinessCheck) *Handler {
	if checker == nil {
		checker = forms.NewChecker(nil)
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &Handler{
		checker:  checker,
		metrics:  m,
		gatherer: gatherer,
		checks:   checks,
		started:  time.Now(),
	}
}

func (h *Handler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
		"uptime": time.Since(h.started).Round(time.Second).String(),
	})
}

func (h *Handler) ReadinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	failed := gin.H{}
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not_ready",
			"failed": failed,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func (h *Handler) MetricsHandler(c *gin.Context) {
	promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}).ServeHTTP(c.Writer, c.Request)
}
