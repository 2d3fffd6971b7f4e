package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/quizmaster/profile-kit/pkg/auth"
	"github.com/quizmaster/profile-kit/pkg/positioner"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ErrNoSession means there is no usable bearer token. Callers treat it as a
// redirect-to-login precondition.
var ErrNoSession = errors.New("no active session")

const (
	keyToken    = "authToken"
	keyUser     = "userData"
	keyPosition = "imagePosition:"
)

type Config struct {
	Store           string        `mapstructure:"store"` // "memory" or "redis"
	RedisURL        string        `mapstructure:"redis_url"`
	KeyPrefix       string        `mapstructure:"key_prefix"`
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
	JWTSecret       string        `mapstructure:"jwt_secret"`
}

// User is the signed-in account as cached on the client.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Name     string `json:"name,omitempty"`
	Role     string `json:"role"`
}

// NewStore builds the Store named by cfg. The returned close func releases
// any connection it opened.
func NewStore(ctx context.Context, cfg Config) (Store, func() error, error) {
	switch cfg.Store {
	case "", "memory":
		return NewMemoryStore(cfg.CleanupInterval), func() error { return nil }, nil
	case "redis":
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to parse Redis URL: %w", err)
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		return NewRedisStore(client, cfg.KeyPrefix), client.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown session store %q", cfg.Store)
	}
}

// Manager is the authentication/session collaborator: it hands out the bearer
// token for API calls and the current user, and keeps per-user editor state.
type Manager struct {
	store  Store
	tokens auth.JWTService
	ttl    time.Duration
	logger zerolog.Logger
}

func NewManager(store Store, tokens auth.JWTService, ttl time.Duration, logger zerolog.Logger) *Manager {
	return &Manager{store: store, tokens: tokens, ttl: ttl, logger: logger}
}

// Login validates token and caches it with the user it identifies.
func (m *Manager) Login(ctx context.Context, token string) (*User, error) {
	claims, err := m.tokens.ValidateToken(token)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	user := userFromClaims(claims)

	ttl := m.ttl
	if claims.ExpiresAt != nil {
		if left := time.Until(claims.ExpiresAt.Time); ttl <= 0 || left < ttl {
			ttl = left
		}
	}
	if err := m.store.Set(ctx, keyToken, token, ttl); err != nil {
		return nil, err
	}
	if err := m.putUser(ctx, user, ttl); err != nil {
		return nil, err
	}

	m.logger.Info().Str("user_id", user.ID).Msg("session started")
	return user, nil
}

// Token returns the bearer token for authenticated calls.
func (m *Manager) Token(ctx context.Context) (string, error) {
	token, ok, err := m.store.Get(ctx, keyToken)
	if err != nil {
		return "", err
	}
	if !ok || token == "" {
		return "", ErrNoSession
	}
	if _, err := m.tokens.ValidateToken(token); err != nil {
		if logoutErr := m.Logout(ctx); logoutErr != nil {
			m.logger.Warn().Err(logoutErr).Msg("failed to clear stale session")
		}
		return "", fmt.Errorf("%w: %v", ErrNoSession, err)
	}
	return token, nil
}

// CurrentUser returns the cached user, decoding it from the token when the
// cache entry is gone.
func (m *Manager) CurrentUser(ctx context.Context) (*User, error) {
	raw, ok, err := m.store.Get(ctx, keyUser)
	if err != nil {
		return nil, err
	}
	if ok {
		var u User
		if err := json.Unmarshal([]byte(raw), &u); err == nil {
			return &u, nil
		}
		m.logger.Warn().Msg("discarding corrupt cached user")
	}

	token, err := m.Token(ctx)
	if err != nil {
		return nil, err
	}
	claims, err := m.tokens.ValidateToken(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoSession, err)
	}
	user := userFromClaims(claims)
	if err := m.putUser(ctx, user, m.ttl); err != nil {
		return nil, err
	}
	return user, nil
}

// UpdateUser replaces the cached user, e.g. after a profile save.
func (m *Manager) UpdateUser(ctx context.Context, u User) error {
	return m.putUser(ctx, &u, m.ttl)
}

func (m *Manager) Logout(ctx context.Context) error {
	if err := m.store.Delete(ctx, keyToken); err != nil {
		return err
	}
	return m.store.Delete(ctx, keyUser)
}

// SaveTransform remembers the last displayed image transform for userID so
// the picture renders in place before the profile reload completes.
func (m *Manager) SaveTransform(ctx context.Context, userID string, t positioner.Transform) error {
	raw, err := json.Marshal(t)
	if err != nil {
		return err
	}
	return m.store.Set(ctx, keyPosition+userID, string(raw), 0)
}

// LoadTransform returns the transform stored by SaveTransform.
func (m *Manager) LoadTransform(ctx context.Context, userID string) (positioner.Transform, bool, error) {
	raw, ok, err := m.store.Get(ctx, keyPosition+userID)
	if err != nil || !ok {
		return positioner.Identity, false, err
	}
	var t positioner.Transform
	if err := json.Unmarshal([]byte(raw), &t); err != nil {
		return positioner.Identity, false, fmt.Errorf("decode stored transform: %w", err)
	}
	return t, true, nil
}

func (m *Manager) putUser(ctx context.Context, u *User, ttl time.Duration) error {
	raw, err := json.Marshal(u)
	if err != nil {
		return err
	}
	return m.store.Set(ctx, keyUser, string(raw), ttl)
}

func userFromClaims(c *auth.Claims) *User {
	return &User{
		ID:       c.UserID,
		Username: c.Username,
		Email:    c.Email,
		Name:     c.Name,
		Role:     c.Role,
	}
}
