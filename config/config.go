package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/quizmaster/profile-kit/internal/middleware"
	"github.com/quizmaster/profile-kit/internal/profile"
	"github.com/quizmaster/profile-kit/internal/session"
	"github.com/quizmaster/profile-kit/pkg/logger"
	"github.com/quizmaster/profile-kit/pkg/messaging/redis"
	"github.com/quizmaster/profile-kit/pkg/positioner"
)

// EnvPrefix prefixes every environment override, e.g. QUIZMASTER_SERVER_PORT.
const EnvPrefix = "QUIZMASTER"

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxHeaderBytes  int           `mapstructure:"max_header_bytes"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes"`
}

type NotifyConfig struct {
	Enabled bool         `mapstructure:"enabled"`
	Channel string       `mapstructure:"channel"`
	Redis   redis.Config `mapstructure:"redis"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool   `mapstructure:"prometheus_enabled"`
	MetricsPath       string `mapstructure:"metrics_path"`
	Namespace         string `mapstructure:"namespace"`
}

type Config struct {
	Server     ServerConfig                 `mapstructure:"server"`
	Log        logger.Config                `mapstructure:"log"`
	ProfileAPI profile.Config               `mapstructure:"profile_api"`
	Positioner positioner.Config            `mapstructure:"positioner"`
	Session    session.Config               `mapstructure:"session"`
	Notify     NotifyConfig                 `mapstructure:"notify"`
	RateLimit  middleware.RateLimiterConfig `mapstructure:"rate_limit"`
	CORS       middleware.CORSConfig        `mapstructure:"cors"`
	Monitoring MonitoringConfig             `mapstructure:"monitoring"`
}

// LoadConfig reads config.yml from the usual locations, or the file named by
// CONFIG_FILE, and applies QUIZMASTER_* environment overrides. A missing
// config file is not an error: defaults and the environment still apply.
func LoadConfig() (*Config, error) {
	return Load(os.Getenv("CONFIG_FILE"))
}

// Load is LoadConfig with an explicit file. An empty file searches the
// default paths.
func Load(file string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yml")
		v.AddConfigPath(".")           // current directory
		v.AddConfigPath("./config")    // config subdirectory
		v.AddConfigPath("/app")        // container root directory
		v.AddConfigPath("/app/config") // container config directory
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate rejects settings the services cannot start with.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	switch c.Session.Store {
	case "memory":
	case "redis":
		if c.Session.RedisURL == "" {
			return errors.New("session.redis_url is required for the redis store")
		}
	default:
		return fmt.Errorf("unknown session.store %q", c.Session.Store)
	}
	if c.Notify.Enabled && c.Notify.Redis.URL == "" {
		return errors.New("notify.redis.url is required when notify is enabled")
	}
	if r := c.Positioner.ZoomRange; r.Min > r.Max {
		return fmt.Errorf("positioner.zoom_range min %.2f above max %.2f", r.Min, r.Max)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("server.shutdown_timeout", 5*time.Second)
	v.SetDefault("server.max_header_bytes", 1<<20)
	v.SetDefault("server.max_body_bytes", 64<<10)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.time_format", "")

	pd := profile.DefaultConfig()
	v.SetDefault("profile_api.base_url", "http://localhost:5000")
	v.SetDefault("profile_api.path", pd.Path)
	v.SetDefault("profile_api.timeout", pd.Timeout)
	v.SetDefault("profile_api.requests_per_second", pd.RequestsPerSecond)
	v.SetDefault("profile_api.burst", pd.Burst)
	v.SetDefault("profile_api.breaker_failures", pd.BreakerFailures)
	v.SetDefault("profile_api.breaker_timeout", pd.BreakerTimeout)
	v.SetDefault("profile_api.cache_ttl", pd.CacheTTL)

	pos := positioner.DefaultConfig()
	v.SetDefault("positioner.debounce", pos.Debounce)
	v.SetDefault("positioner.persist_timeout", pos.PersistTimeout)
	v.SetDefault("positioner.offset_limit", pos.OffsetLimit)
	v.SetDefault("positioner.zoom_range.min", pos.ZoomRange.Min)
	v.SetDefault("positioner.zoom_range.max", pos.ZoomRange.Max)
	v.SetDefault("positioner.preview_zoom_range.min", pos.PreviewZoomRange.Min)
	v.SetDefault("positioner.preview_zoom_range.max", pos.PreviewZoomRange.Max)
	v.SetDefault("positioner.button_step", pos.ButtonStep)
	v.SetDefault("positioner.wheel_step", pos.WheelStep)

	v.SetDefault("session.store", "memory")
	v.SetDefault("session.redis_url", "")
	v.SetDefault("session.key_prefix", "quizmaster:")
	v.SetDefault("session.ttl", 24*time.Hour)
	v.SetDefault("session.cleanup_interval", 10*time.Minute)
	v.SetDefault("session.jwt_secret", "")

	v.SetDefault("notify.enabled", false)
	v.SetDefault("notify.channel", "quizmaster:toasts")
	v.SetDefault("notify.redis.url", "")
	v.SetDefault("notify.redis.max_retries", 3)
	v.SetDefault("notify.redis.pool_size", 10)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_second", 20.0)
	v.SetDefault("rate_limit.burst", 40)
	v.SetDefault("rate_limit.idle_ttl", 10*time.Minute)

	cors := middleware.DefaultCORSConfig()
	v.SetDefault("cors.allow_origins", cors.AllowOrigins)
	v.SetDefault("cors.allow_methods", cors.AllowMethods)
	v.SetDefault("cors.allow_headers", cors.AllowHeaders)
	v.SetDefault("cors.expose_headers", cors.ExposeHeaders)
	v.SetDefault("cors.allow_credentials", cors.AllowCredentials)
	v.SetDefault("cors.max_age", cors.MaxAge)

	v.SetDefault("monitoring.prometheus_enabled", true)
	v.SetDefault("monitoring.metrics_path", "/metrics")
	v.SetDefault("monitoring.namespace", "quizmaster")
}
