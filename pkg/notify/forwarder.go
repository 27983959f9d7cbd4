package notify

import (
	"encoding/json"
	"sync"

	"github.com/adjust/rmq/v5"
	"github.com/rs/zerolog/log"
	"github.com/travigo/youroute/pkg/livefeed"
)

const QueueName = "notify-queue"

// Forwarder moves notification messages from the live feed onto the notify queue
type Forwarder struct {
	queue rmq.Queue

	unsubscribe func()
	once        sync.Once
}

func NewForwarder(connection rmq.Connection) (*Forwarder, error) {
	queue, err := connection.OpenQueue(QueueName)
	if err != nil {
		return nil, err
	}

	return &Forwarder{queue: queue}, nil
}

func (f *Forwarder) Bind(feed livefeed.Subscriber) {
	f.unsubscribe = feed.Subscribe(livefeed.TopicNotification, f.forward)
}

func (f *Forwarder) forward(message livefeed.Message) error {
	notification, err := message.Notification()
	if err != nil {
		return err
	}
	if err := notification.Validate(); err != nil {
		return err
	}

	payload, err := json.Marshal(notification)
	if err != nil {
		return err
	}

	if err := f.queue.PublishBytes(payload); err != nil {
		return err
	}

	log.Debug().Str("target", notification.TargetUser).Msg("Queued notification")

	return nil
}

func (f *Forwarder) Close() {
	f.once.Do(func() {
		if f.unsubscribe != nil {
			f.unsubscribe()
		}
	})
}
