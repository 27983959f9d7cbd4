package livefeed

import (
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/panics"
	"golang.org/x/exp/slices"
)

type Handler func(Message) error

// Subscriber is satisfied by *Client and *Registry
type Subscriber interface {
	Subscribe(topic Topic, handler Handler) func()
}

type subscription struct {
	id      uint64
	handler Handler
}

// Registry maps each topic to its ordered list of handlers. Mutation and
// dispatch are serialized by mu; dispatch runs handlers outside the lock so
// a handler may subscribe or unsubscribe.
type Registry struct {
	mu       sync.RWMutex
	nextID   uint64
	handlers map[Topic][]subscription

	metrics *Metrics
}

func NewRegistry(metrics *Metrics) *Registry {
	if metrics == nil {
		metrics = NewMetrics(nil)
	}

	return &Registry{
		handlers: map[Topic][]subscription{},
		metrics:  metrics,
	}
}

// Subscribe registers handler under topic. The returned function removes
// exactly this registration and is safe to call more than once.
func (r *Registry) Subscribe(topic Topic, handler Handler) func() {
	if handler == nil {
		return func() {}
	}

	r.mu.Lock()
	r.nextID++
	id := r.nextID
	r.handlers[topic] = append(r.handlers[topic], subscription{id: id, handler: handler})
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.remove(topic, id)
		})
	}
}

func (r *Registry) remove(topic Topic, id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	subscriptions := r.handlers[topic]
	index := slices.IndexFunc(subscriptions, func(s subscription) bool { return s.id == id })
	if index < 0 {
		return
	}

	subscriptions = slices.Delete(slices.Clone(subscriptions), index, index+1)
	if len(subscriptions) == 0 {
		delete(r.handlers, topic)
	} else {
		r.handlers[topic] = subscriptions
	}
}

func (r *Registry) active(topic Topic, id uint64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.ContainsFunc(r.handlers[topic], func(s subscription) bool { return s.id == id })
}

// Count returns the number of handlers registered for topic
func (r *Registry) Count(topic Topic) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.handlers[topic])
}

// Dispatch delivers message to every handler of its topic in registration
// order. A failing handler is logged and skipped, later handlers still run.
func (r *Registry) Dispatch(message Message) {
	r.mu.RLock()
	subscriptions := slices.Clone(r.handlers[message.Topic])
	r.mu.RUnlock()

	for _, s := range subscriptions {
		// removed by an earlier handler in this dispatch
		if !r.active(message.Topic, s.id) {
			continue
		}

		if err := r.invoke(s.handler, message); err != nil {
			handlerErr := &HandlerError{Topic: message.Topic, Err: err}
			r.metrics.HandlerErrors.WithLabelValues(string(message.Topic)).Inc()
			log.Error().Err(handlerErr).Str("topic", string(message.Topic)).Msg("Live feed handler failed")
		}
	}

	r.metrics.Dispatched.WithLabelValues(string(message.Topic)).Inc()
}

func (r *Registry) invoke(handler Handler, message Message) (err error) {
	recovered := panics.Try(func() {
		err = handler(message)
	})
	if recovered != nil {
		return recovered.AsError()
	}

	return err
}
