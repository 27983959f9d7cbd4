package livefeed

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRegistryDispatchesInRegistrationOrder(t *testing.T) {
	registry := NewRegistry(nil)

	var calls []string
	registry.Subscribe(TopicRouteUpdate, func(Message) error {
		calls = append(calls, "first")
		return nil
	})
	registry.Subscribe(TopicRouteUpdate, func(Message) error {
		calls = append(calls, "second")
		return nil
	})
	registry.Subscribe(TopicStopUpdate, func(Message) error {
		calls = append(calls, "stop")
		return nil
	})

	registry.Dispatch(Message{Topic: TopicRouteUpdate})

	assert.Equal(t, []string{"first", "second"}, calls)
}

func TestRegistryIsolatesFailingHandlers(t *testing.T) {
	metrics := NewMetrics(nil)
	registry := NewRegistry(metrics)

	var reached int
	registry.Subscribe(TopicLocationUpdate, func(Message) error {
		return errors.New("boom")
	})
	registry.Subscribe(TopicLocationUpdate, func(Message) error {
		panic("handler blew up")
	})
	registry.Subscribe(TopicLocationUpdate, func(Message) error {
		reached++
		return nil
	})

	assert.NotPanics(t, func() {
		registry.Dispatch(Message{Topic: TopicLocationUpdate})
	})

	assert.Equal(t, 1, reached)
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.HandlerErrors.WithLabelValues(string(TopicLocationUpdate))))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Dispatched.WithLabelValues(string(TopicLocationUpdate))))
}

func TestRegistryUnsubscribe(t *testing.T) {
	registry := NewRegistry(nil)

	var calls int
	handler := func(Message) error {
		calls++
		return nil
	}

	unsubscribe := registry.Subscribe(TopicNotification, handler)
	registry.Subscribe(TopicNotification, handler)
	assert.Equal(t, 2, registry.Count(TopicNotification))

	unsubscribe()
	unsubscribe()
	assert.Equal(t, 1, registry.Count(TopicNotification))

	registry.Dispatch(Message{Topic: TopicNotification})
	assert.Equal(t, 1, calls)
}

func TestRegistryUnsubscribeDuringDispatch(t *testing.T) {
	registry := NewRegistry(nil)

	var calls []string
	var unsubscribeSecond func()

	registry.Subscribe(TopicStopUpdate, func(Message) error {
		calls = append(calls, "first")
		unsubscribeSecond()
		return nil
	})
	unsubscribeSecond = registry.Subscribe(TopicStopUpdate, func(Message) error {
		calls = append(calls, "second")
		return nil
	})

	var unsubscribeSelf func()
	unsubscribeSelf = registry.Subscribe(TopicStopUpdate, func(Message) error {
		calls = append(calls, "self")
		unsubscribeSelf()
		return nil
	})

	registry.Dispatch(Message{Topic: TopicStopUpdate})
	registry.Dispatch(Message{Topic: TopicStopUpdate})

	assert.Equal(t, []string{"first", "self", "first"}, calls)
	assert.Equal(t, 1, registry.Count(TopicStopUpdate))
}

func TestRegistryDispatchWithoutHandlers(t *testing.T) {
	registry := NewRegistry(nil)

	assert.NotPanics(t, func() {
		registry.Dispatch(Message{Topic: TopicRouteUpdate})
	})
	assert.Equal(t, 0, registry.Count(TopicRouteUpdate))
}
