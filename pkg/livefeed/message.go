package livefeed

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/travigo/youroute/pkg/ctdf"
)

type Topic string

const (
	TopicLocationUpdate Topic = "location_update"
	TopicRouteUpdate    Topic = "route_update"
	TopicStopUpdate     Topic = "stop_update"
	TopicNotification   Topic = "notification"
)

var AllTopics = []Topic{TopicLocationUpdate, TopicRouteUpdate, TopicStopUpdate, TopicNotification}

func (t Topic) Valid() bool {
	switch t {
	case TopicLocationUpdate, TopicRouteUpdate, TopicStopUpdate, TopicNotification:
		return true
	}

	return false
}

// Message is the wire envelope {type, data, timestamp} with the payload left
// undecoded until a handler asks for it
type Message struct {
	Topic     Topic           `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

func (m Message) Time() time.Time {
	return time.UnixMilli(m.Timestamp)
}

func (m Message) Vehicle() (ctdf.Vehicle, error) {
	var vehicle ctdf.Vehicle
	err := m.decodeData(TopicLocationUpdate, &vehicle)
	return vehicle, err
}

func (m Message) Route() (ctdf.Route, error) {
	var route ctdf.Route
	err := m.decodeData(TopicRouteUpdate, &route)
	return route, err
}

func (m Message) Stop() (ctdf.Stop, error) {
	var stop ctdf.Stop
	err := m.decodeData(TopicStopUpdate, &stop)
	return stop, err
}

func (m Message) Notification() (ctdf.Notification, error) {
	var notification ctdf.Notification
	err := m.decodeData(TopicNotification, &notification)
	return notification, err
}

func (m Message) decodeData(expected Topic, v interface{}) error {
	if m.Topic != expected {
		return fmt.Errorf("message is %s not %s", m.Topic, expected)
	}
	if len(m.Data) == 0 {
		return fmt.Errorf("%s message has no data", m.Topic)
	}

	return json.Unmarshal(m.Data, v)
}

func Encode(topic Topic, payload interface{}, timestamp time.Time) ([]byte, error) {
	if !topic.Valid() {
		return nil, fmt.Errorf("unknown message type %q", topic)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return json.Marshal(Message{
		Topic:     topic,
		Data:      data,
		Timestamp: timestamp.UnixMilli(),
	})
}

func Decode(frame []byte) (Message, error) {
	var message Message

	if err := json.Unmarshal(frame, &message); err != nil {
		return Message{}, &DecodeError{Frame: frame, Err: err}
	}

	if !message.Topic.Valid() {
		return Message{}, &DecodeError{Frame: frame, Err: fmt.Errorf("unknown message type %q", message.Topic)}
	}

	return message, nil
}
