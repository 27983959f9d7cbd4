package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/adjust/rmq/v5"
	"github.com/rs/zerolog/log"
	"github.com/travigo/youroute/pkg/ctdf"
)

// TokenSource resolves a user's push token. *tracking.Service satisfies it.
type TokenSource interface {
	PushToken(ctx context.Context, userID string) (string, error)
}

type NotifyBatchConsumer struct {
	tokens  TokenSource
	pusher  Pusher
	timeout time.Duration
}

func NewNotifyBatchConsumer(tokens TokenSource, pusher Pusher) *NotifyBatchConsumer {
	return &NotifyBatchConsumer{
		tokens:  tokens,
		pusher:  pusher,
		timeout: 10 * time.Second,
	}
}

func (c *NotifyBatchConsumer) Consume(batch rmq.Deliveries) {
	for _, delivery := range batch {
		if c.handle(delivery.Payload()) {
			if err := delivery.Ack(); err != nil {
				log.Error().Err(err).Msg("Failed to ack notification")
			}
		} else {
			if err := delivery.Reject(); err != nil {
				log.Error().Err(err).Msg("Failed to reject notification")
			}
		}
	}
}

// handle returns false when the delivery should be rejected
func (c *NotifyBatchConsumer) handle(payload string) bool {
	var notification ctdf.Notification
	if err := json.Unmarshal([]byte(payload), &notification); err != nil {
		log.Error().Err(err).Msg("Failed to decode notification")
		return false
	}
	if err := notification.Validate(); err != nil {
		log.Error().Err(err).Msg("Invalid notification")
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	token, err := c.tokens.PushToken(ctx, notification.TargetUser)
	if err != nil {
		log.Error().Err(err).Str("target", notification.TargetUser).Msg("Failed to find user token")
		return false
	}
	if token == "" {
		log.Warn().Str("target", notification.TargetUser).Msg("User has no push token")
		return true
	}

	if err := c.pusher.Push(ctx, token, notification); err != nil {
		log.Error().Err(err).Str("target", notification.TargetUser).Msg("Failed to send push notification")
		return false
	}

	return true
}
