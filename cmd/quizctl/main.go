// Command quizctl evaluates credentials against the QuizMaster validation
// policy and drives the profile picture positioner from a terminal.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/quizmaster/profile-kit/pkg/logger"
)

const (
	exitOK      = 0
	exitInvalid = 1
	exitError   = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

type app struct {
	settings Settings
	stdin    io.Reader
	stdout   io.Writer
	stderr   io.Writer
	logger   zerolog.Logger
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	settings, rest, err := parseSettings(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintln(stderr, "quizctl:", err)
		return exitError
	}

	a := &app{
		settings: settings,
		stdin:    stdin,
		stdout:   stdout,
		stderr:   stderr,
		logger: logger.NewLogger(&logger.Config{
			Level:  settings.LogLevel,
			Format: "console",
			Output: stderr,
		}).Zerolog(),
	}

	switch cmd := rest[0]; cmd {
	case "password", "username", "email":
		if len(rest) != 2 {
			fmt.Fprintf(stderr, "quizctl: %s needs exactly one value\n", cmd)
			return exitError
		}
		err = evaluate(stdout, cmd, rest[1], settings.JSON)
		if errors.Is(err, errInvalid) {
			return exitInvalid
		}
	case "position":
		err = a.position(ctx)
	case "toasts":
		err = a.toasts(ctx)
	default:
		err = fmt.Errorf("unknown command %q", cmd)
	}

	if err != nil {
		fmt.Fprintln(stderr, "quizctl:", err)
		return exitError
	}
	return exitOK
}
