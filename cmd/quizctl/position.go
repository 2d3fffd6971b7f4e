package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/quizmaster/profile-kit/internal/notify"
	"github.com/quizmaster/profile-kit/internal/profile"
	"github.com/quizmaster/profile-kit/internal/session"
	"github.com/quizmaster/profile-kit/pkg/auth"
	"github.com/quizmaster/profile-kit/pkg/messaging/redis"
	"github.com/quizmaster/profile-kit/pkg/positioner"
)

// position runs an interactive positioning session. Commands are read from
// stdin until EOF or "quit"; a pending save is flushed before returning.
func (a *app) position(ctx context.Context) error {
	s := a.settings
	if s.Token == "" {
		return errors.New("token required (use -token or QUIZCTL_TOKEN)")
	}

	store, closeStore, err := session.NewStore(ctx, session.Config{
		Store:           s.SessionStore,
		RedisURL:        s.RedisURL,
		KeyPrefix:       "quizctl:",
		CleanupInterval: time.Minute,
	})
	if err != nil {
		return err
	}
	defer closeStore()

	sessions := session.NewManager(store, auth.NewParser(s.JWTSecret), 24*time.Hour, a.logger)
	user, err := sessions.Login(ctx, s.Token)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	log := a.logger.With().Str("user_id", user.ID).Logger()

	cfg := profile.DefaultConfig()
	cfg.BaseURL = s.APIURL
	client, err := profile.NewClient(cfg, sessions, profile.WithLogger(log))
	if err != nil {
		return err
	}

	notifier := notify.Multi{notify.NewWriterNotifier(a.stdout), notify.NewLogNotifier(log)}
	if s.RedisURL != "" {
		broker, err := redis.NewRedisBroker(redis.Config{URL: s.RedisURL}, log, nil)
		if err != nil {
			log.Warn().Err(err).Msg("toasts will not be published")
		} else {
			defer broker.Close()
			notifier = append(notifier, notify.NewBrokerNotifier(broker, s.ToastChannel, user.ID, log))
		}
	}

	persist := positioner.PersisterFunc(func(ctx context.Context, t positioner.Transform) error {
		if err := client.PersistTransform(ctx, t); err != nil {
			return err
		}
		if err := sessions.SaveTransform(ctx, user.ID, t); err != nil {
			log.Warn().Err(err).Msg("failed to cache image position")
		}
		return nil
	})

	pcfg := positioner.DefaultConfig()
	pcfg.Debounce = s.Debounce
	p := positioner.New(persist, notifier, pcfg,
		positioner.WithLogger(log),
		positioner.WithRenderer(positioner.RendererFunc(func(t positioner.Transform) {
			fmt.Fprintf(a.stdout, "transform: %s\n", t.CSS())
		})),
	)
	defer p.Close()

	if prof, err := client.Get(ctx); err == nil {
		p.Load(prof.Transform())
	} else if t, ok, cacheErr := sessions.LoadTransform(ctx, user.ID); cacheErr == nil && ok {
		log.Warn().Err(err).Msg("profile unavailable, using cached image position")
		p.Load(t)
	} else {
		log.Warn().Err(err).Msg("profile unavailable, starting from the default position")
	}

	done := make(chan struct{})
	defer close(done)
	lines, scanErr := readLines(a.stdin, done)

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case line, ok := <-lines:
			if !ok {
				break loop
			}
			cmd, err := parseCommand(line)
			if err != nil {
				fmt.Fprintln(a.stderr, "error:", err)
				continue
			}
			if cmd.op == opShow {
				fmt.Fprintf(a.stdout, "state: %s transform: %s\n", p.State(), p.Transform().CSS())
				continue
			}
			if !apply(p, cmd) {
				break loop
			}
		}
	}

	p.ExitEdit()
	p.Flush()

	select {
	case err := <-scanErr:
		return err
	default:
		return nil
	}
}

// toasts prints toasts published for any user until ctx is cancelled.
func (a *app) toasts(ctx context.Context) error {
	if a.settings.RedisURL == "" {
		return errors.New("redis URL required (use -redis or QUIZCTL_REDIS_URL)")
	}
	broker, err := redis.NewRedisBroker(redis.Config{URL: a.settings.RedisURL}, a.logger, nil)
	if err != nil {
		return err
	}
	defer broker.Close()

	err = notify.Relay(ctx, broker, a.settings.ToastChannel, notify.NewWriterNotifier(a.stdout), a.logger)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// readLines feeds r line by line until EOF or until done is closed. The
// scanner error, if any, is delivered after lines is closed on EOF.
func readLines(r io.Reader, done <-chan struct{}) (<-chan string, <-chan error) {
	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-done:
				return
			}
		}
		scanErr <- sc.Err()
	}()
	return lines, scanErr
}
