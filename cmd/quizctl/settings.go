package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Settings are read from QUIZCTL_* variables and may be overridden by flags.
type Settings struct {
	APIURL       string        `envconfig:"API_URL" default:"http://localhost:5000"`
	Token        string        `envconfig:"TOKEN"`
	JWTSecret    string        `envconfig:"JWT_SECRET"`
	SessionStore string        `envconfig:"SESSION_STORE" default:"memory"`
	RedisURL     string        `envconfig:"REDIS_URL"`
	ToastChannel string        `envconfig:"TOAST_CHANNEL" default:"quizmaster:toasts"`
	Debounce     time.Duration `envconfig:"DEBOUNCE" default:"300ms"`
	LogLevel     string        `envconfig:"LOG_LEVEL" default:"warn"`
	JSON         bool          `envconfig:"JSON"`
}

// parseSettings applies env first and then flags, returning the remaining
// positional arguments.
func parseSettings(args []string, stderr io.Writer) (Settings, []string, error) {
	var s Settings
	if err := envconfig.Process("quizctl", &s); err != nil {
		return Settings{}, nil, fmt.Errorf("read environment: %w", err)
	}

	fs := flag.NewFlagSet("quizctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { usage(fs.Output(), fs) }

	fs.StringVar(&s.APIURL, "api", s.APIURL, "Profile API base URL")
	fs.StringVar(&s.Token, "token", s.Token, "Bearer token (prefer QUIZCTL_TOKEN)")
	fs.StringVar(&s.JWTSecret, "jwt-secret", s.JWTSecret, "Verify tokens with this HS256 secret")
	fs.StringVar(&s.SessionStore, "store", s.SessionStore, "Session store (memory or redis)")
	fs.StringVar(&s.RedisURL, "redis", s.RedisURL, "Redis URL for the session store and toasts")
	fs.StringVar(&s.ToastChannel, "channel", s.ToastChannel, "Toast channel")
	fs.DurationVar(&s.Debounce, "debounce", s.Debounce, "Persist debounce")
	fs.StringVar(&s.LogLevel, "log-level", s.LogLevel, "Log level")
	fs.BoolVar(&s.JSON, "json", s.JSON, "Print verdicts as JSON")

	if err := fs.Parse(args); err != nil {
		return Settings{}, nil, err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return Settings{}, nil, errors.New("command required")
	}
	return s, fs.Args(), nil
}

func usage(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprintln(w, "usage: quizctl [flags] <command> [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "commands:")
	fmt.Fprintln(w, "  password <value>   evaluate a password")
	fmt.Fprintln(w, "  username <value>   evaluate a username")
	fmt.Fprintln(w, "  email <value>      evaluate an email address")
	fmt.Fprintln(w, "  position           edit the profile picture position from stdin")
	fmt.Fprintln(w, "  toasts             print toasts published to the toast channel")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "flags:")
	fs.PrintDefaults()
}
