package notify

import (
	"context"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/rs/zerolog/log"
	"github.com/travigo/youroute/pkg/ctdf"
)

// Pusher delivers a notification to one device
type Pusher interface {
	Push(ctx context.Context, token string, notification ctdf.Notification) error
}

// FCMPusher sends through Firebase Cloud Messaging
type FCMPusher struct {
	client *messaging.Client
}

func NewFCMPusher(ctx context.Context, app *firebase.App) (*FCMPusher, error) {
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, err
	}

	return &FCMPusher{client: client}, nil
}

func (p *FCMPusher) Push(ctx context.Context, token string, notification ctdf.Notification) error {
	id, err := p.client.Send(ctx, &messaging.Message{
		Notification: &messaging.Notification{
			Title: notification.Title,
			Body:  notification.Message,
		},
		Token: token,
	})
	if err != nil {
		return err
	}

	log.Info().Str("target", notification.TargetUser).Str("id", id).Msg("Sent Push Notification")

	return nil
}
