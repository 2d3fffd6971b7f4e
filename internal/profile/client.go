package profile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	apperrors "github.com/quizmaster/profile-kit/pkg/errors"
	"github.com/quizmaster/profile-kit/pkg/metrics"
	"github.com/quizmaster/profile-kit/pkg/positioner"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// ErrRejected is returned when the API answered but refused the update
// (non-2xx or success:false).
var ErrRejected = errors.New("profile update rejected")

const profileCacheKey = "profile"

type Config struct {
	BaseURL           string        `mapstructure:"base_url"`
	Path              string        `mapstructure:"path"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
	BreakerFailures   uint32        `mapstructure:"breaker_failures"`
	BreakerTimeout    time.Duration `mapstructure:"breaker_timeout"`
	CacheTTL          time.Duration `mapstructure:"cache_ttl"`
}

func DefaultConfig() Config {
	return Config{
		Path:              "/api/profile",
		Timeout:           10 * time.Second,
		RequestsPerSecond: 5,
		Burst:             2,
		BreakerFailures:   5,
		BreakerTimeout:    30 * time.Second,
		CacheTTL:          time.Minute,
	}
}

// TokenSource supplies the bearer token for authenticated calls.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Profile is the account profile as returned by the API.
type Profile struct {
	ID             string  `json:"id,omitempty"`
	Name           string  `json:"name"`
	Username       string  `json:"username,omitempty"`
	Email          string  `json:"email,omitempty"`
	ProfilePicture string  `json:"profile_picture,omitempty"`
	ImagePositionX float64 `json:"image_position_x"`
	ImagePositionY float64 `json:"image_position_y"`
	ImageScale     float64 `json:"image_scale"`
}

// Transform returns the saved image position, treating a missing scale as 1.
func (p *Profile) Transform() positioner.Transform {
	t := positioner.Transform{OffsetX: p.ImagePositionX, OffsetY: p.ImagePositionY, Scale: p.ImageScale}
	if t.Scale == 0 {
		t.Scale = 1
	}
	return t
}

// UpdateRequest is the PUT body.
type UpdateRequest struct {
	Name string `json:"name"`
	positioner.Transform
}

type response struct {
	Success bool     `json:"success"`
	Profile *Profile `json:"profile,omitempty"`
	Message string   `json:"message,omitempty"`
}

// Client talks to the profile REST API. Writes are rate limited and guarded
// by a circuit breaker; reads are cached for CacheTTL.
type Client struct {
	cfg     Config
	http    *http.Client
	tokens  TokenSource
	limiter *rate.Limiter
	cb      *gobreaker.CircuitBreaker
	cache   *cache.Cache
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.http = hc } }
func WithMetrics(m *metrics.Metrics) Option { return func(c *Client) { c.metrics = m } }
func WithLogger(l zerolog.Logger) Option    { return func(c *Client) { c.logger = l } }

func NewClient(cfg Config, tokens TokenSource, opts ...Option) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("profile API base URL is required")
	}
	def := DefaultConfig()
	if cfg.Path == "" {
		cfg.Path = def.Path
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = def.BreakerFailures
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = def.BreakerTimeout
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = def.CacheTTL
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	c := &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		tokens:  tokens,
		limiter: rate.NewLimiter(limit, burst),
		cache:   cache.New(cfg.CacheTTL, 2*cfg.CacheTTL+time.Minute),
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	failures := cfg.BreakerFailures
	c.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "profile-api",
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		// a refused update means the API is up
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrRejected)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
			if c.metrics != nil {
				c.metrics.BreakerState.Set(float64(to))
			}
		},
	})
	return c, nil
}

// Get returns the current user's profile, from cache when fresh.
func (c *Client) Get(ctx context.Context) (*Profile, error) {
	if v, ok := c.cache.Get(profileCacheKey); ok {
		c.countCache("hit")
		p := *v.(*Profile)
		return &p, nil
	}
	c.countCache("miss")

	res, err := c.do(ctx, http.MethodGet, nil)
	if err != nil {
		return nil, err
	}
	if res.Profile == nil {
		return nil, apperrors.NotFound("profile", nil)
	}
	c.remember(res.Profile)
	return res.Profile, nil
}

// Update writes name and image position.
func (c *Client) Update(ctx context.Context, req UpdateRequest) (*Profile, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("wait for rate limiter: %w", err)
	}

	start := time.Now()
	res, err := c.do(ctx, http.MethodPut, req)
	c.observePersist(start, err)
	if err != nil {
		return nil, err
	}

	c.cache.Delete(profileCacheKey)
	if res.Profile != nil {
		c.remember(res.Profile)
	}
	c.logger.Debug().Str("name", req.Name).Str("transform", req.Transform.CSS()).Msg("profile updated")
	return res.Profile, nil
}

// PersistTransform saves t under the profile's current name. It implements
// positioner.Persister.
func (c *Client) PersistTransform(ctx context.Context, t positioner.Transform) error {
	current, err := c.Get(ctx)
	if err != nil {
		return fmt.Errorf("load profile: %w", err)
	}
	_, err = c.Update(ctx, UpdateRequest{Name: current.Name, Transform: t})
	return err
}

// Invalidate drops the cached profile.
func (c *Client) Invalidate() {
	c.cache.Delete(profileCacheKey)
}

func (c *Client) do(ctx context.Context, method string, body interface{}) (*response, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, apperrors.Precondition("authentication required", err)
	}

	var payload []byte
	if body != nil {
		if payload, err = json.Marshal(body); err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
	}

	out, err := c.cb.Execute(func() (interface{}, error) {
		return c.roundTrip(ctx, method, token, payload)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, apperrors.Upstream("profile API", err)
		}
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, apperrors.Persistence(err)
	}
	return out.(*response), nil
}

func (c *Client) roundTrip(ctx context.Context, method, token string, payload []byte) (*response, error) {
	url := strings.TrimRight(c.cfg.BaseURL, "/") + c.cfg.Path
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, c.cfg.Path, err)
	}
	defer resp.Body.Close()

	var res response
	decodeErr := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&res)

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, apperrors.Unauthorized(fmt.Errorf("%w: %s", ErrRejected, res.Message))
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%s %s: status %d", method, c.cfg.Path, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, apperrors.Persistence(fmt.Errorf("%w: status %d: %s", ErrRejected, resp.StatusCode, res.Message))
	case decodeErr != nil:
		return nil, fmt.Errorf("decode response: %w", decodeErr)
	case !res.Success:
		return nil, apperrors.Persistence(fmt.Errorf("%w: %s", ErrRejected, res.Message))
	}
	return &res, nil
}

func (c *Client) remember(p *Profile) {
	cp := *p
	c.cache.SetDefault(profileCacheKey, &cp)
}

func (c *Client) countCache(result string) {
	if c.metrics != nil {
		c.metrics.ProfileCacheHit.WithLabelValues(result).Inc()
	}
}

func (c *Client) observePersist(start time.Time, err error) {
	if c.metrics == nil {
		return
	}
	c.metrics.PersistAttempts.WithLabelValues(metrics.Status(err)).Inc()
	c.metrics.PersistLatency.Observe(time.Since(start).Seconds())
}

var _ positioner.Persister = (*Client)(nil)
