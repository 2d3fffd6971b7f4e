package messaging

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"
)

// Consume subscribes to channel and calls handle for every decoded Message
// until ctx is done or the subscription closes. Undecodable payloads and
// handler errors are logged and skipped.
func Consume(ctx context.Context, broker Broker, channel string, logger zerolog.Logger, handle func(Message) error) error {
	msgChan, err := broker.Subscribe(ctx, channel)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case raw, ok := <-msgChan:
			if !ok {
				return nil
			}
			var msg Message
			if err := json.Unmarshal(raw, &msg); err != nil {
				logger.Warn().Err(err).Str("channel", channel).Msg("dropping malformed message")
				continue
			}
			if err := handle(msg); err != nil {
				// Log error but continue processing
				logger.Error().Err(err).Str("type", msg.Type).Msg("message handler failed")
			}
		}
	}
}
