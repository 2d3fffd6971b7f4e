package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/quizmaster/profile-kit/pkg/messaging"
	"github.com/rs/zerolog"
)

// Level is the toast style.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelInfo    Level = "info"
)

// MessageType is the broker envelope type used for toasts.
const MessageType = "toast"

// Toast is one user-facing notice.
type Toast struct {
	Level   Level     `json:"level"`
	Message string    `json:"message"`
	UserID  string    `json:"user_id,omitempty"`
	At      time.Time `json:"at"`
}

// Notifier is the notification collaborator. Calls are fire-and-forget.
type Notifier interface {
	Success(message string)
	Error(message string)
	Info(message string)
}

// LogNotifier records toasts in the structured log.
type LogNotifier struct {
	logger zerolog.Logger
}

func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With().Str("component", "notify").Logger()}
}

func (n *LogNotifier) Success(message string) {
	n.logger.Info().Str("level", string(LevelSuccess)).Msg(message)
}
func (n *LogNotifier) Error(message string) {
	n.logger.Warn().Str("level", string(LevelError)).Msg(message)
}
func (n *LogNotifier) Info(message string) {
	n.logger.Info().Str("level", string(LevelInfo)).Msg(message)
}

// WriterNotifier prints toasts as lines, e.g. to a terminal.
type WriterNotifier struct {
	mu sync.Mutex
	w  io.Writer
}

func NewWriterNotifier(w io.Writer) *WriterNotifier {
	return &WriterNotifier{w: w}
}

func (n *WriterNotifier) Success(message string) { n.write(LevelSuccess, message) }
func (n *WriterNotifier) Error(message string)   { n.write(LevelError, message) }
func (n *WriterNotifier) Info(message string)    { n.write(LevelInfo, message) }

func (n *WriterNotifier) write(level Level, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	fmt.Fprintf(n.w, "[%s] %s\n", level, message)
}

// BrokerNotifier publishes toasts on a broker channel so another process
// (the page, a terminal) can show them.
type BrokerNotifier struct {
	broker  messaging.Broker
	channel string
	userID  string
	timeout time.Duration
	logger  zerolog.Logger
	now     func() time.Time
}

func NewBrokerNotifier(broker messaging.Broker, channel, userID string, logger zerolog.Logger) *BrokerNotifier {
	return &BrokerNotifier{
		broker:  broker,
		channel: channel,
		userID:  userID,
		timeout: 2 * time.Second,
		logger:  logger,
		now:     time.Now,
	}
}

func (n *BrokerNotifier) Success(message string) { n.publish(LevelSuccess, message) }
func (n *BrokerNotifier) Error(message string)   { n.publish(LevelError, message) }
func (n *BrokerNotifier) Info(message string)    { n.publish(LevelInfo, message) }

func (n *BrokerNotifier) publish(level Level, message string) {
	msg, err := messaging.NewMessage(MessageType, Toast{
		Level:   level,
		Message: message,
		UserID:  n.userID,
		At:      n.now().UTC(),
	})
	if err != nil {
		n.logger.Error().Err(err).Msg("failed to encode toast")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
	defer cancel()
	if err := n.broker.Publish(ctx, n.channel, msg); err != nil {
		// toasts have no failure mode for the caller
		n.logger.Warn().Err(err).Str("channel", n.channel).Msg("failed to publish toast")
	}
}

// Multi fans every notice out to several notifiers.
type Multi []Notifier

func (m Multi) Success(message string) {
	for _, n := range m {
		n.Success(message)
	}
}

func (m Multi) Error(message string) {
	for _, n := range m {
		n.Error(message)
	}
}

func (m Multi) Info(message string) {
	for _, n := range m {
		n.Info(message)
	}
}

// Relay forwards toasts received on channel to dst until ctx is done.
func Relay(ctx context.Context, broker messaging.Broker, channel string, dst Notifier, logger zerolog.Logger) error {
	return messaging.Consume(ctx, broker, channel, logger, func(msg messaging.Message) error {
		if msg.Type != MessageType {
			return nil
		}
		var t Toast
		if err := json.Unmarshal(msg.Payload, &t); err != nil {
			return fmt.Errorf("decode toast: %w", err)
		}
		Dispatch(dst, t)
		return nil
	})
}

// Dispatch shows t on n according to its level.
func Dispatch(n Notifier, t Toast) {
	switch t.Level {
	case LevelSuccess:
		n.Success(t.Message)
	case LevelError:
		n.Error(t.Message)
	default:
		n.Info(t.Message)
	}
}
