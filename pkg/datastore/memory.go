package datastore

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// MemoryStore keeps the whole tree in process and notifies subscribers
// synchronously from Set. Subscribers must not write to a path they watch
// from inside their callback.
type MemoryStore struct {
	mu          sync.Mutex
	root        interface{}
	revision    uint64
	nextID      uint64
	subscribers map[uint64]*memorySubscriber
}

type memorySubscriber struct {
	path     string
	segments []string
	onChange func(Snapshot)

	active atomic.Bool

	deliverMu     sync.Mutex
	lastRevision  uint64
	lastDelivered []byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		subscribers: map[uint64]*memorySubscriber{},
	}
}

func (s *MemoryStore) Get(ctx context.Context, path string) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return Snapshot{Path: path, Value: marshalValue(lookup(s.root, SplitPath(path)))}, nil
}

func (s *MemoryStore) Set(ctx context.Context, path string, value interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	normalized, err := normalize(value)
	if err != nil {
		return err
	}

	segments := SplitPath(path)

	type notification struct {
		subscriber *memorySubscriber
		snapshot   Snapshot
	}
	var notifications []notification

	s.mu.Lock()
	s.root = setValue(s.root, segments, normalized)
	s.revision++
	revision := s.revision

	for _, subscriber := range s.subscribers {
		if !overlaps(segments, subscriber.segments) {
			continue
		}

		notifications = append(notifications, notification{
			subscriber: subscriber,
			snapshot: Snapshot{
				Path:  subscriber.path,
				Value: marshalValue(lookup(s.root, subscriber.segments)),
			},
		})
	}
	s.mu.Unlock()

	for _, n := range notifications {
		n.subscriber.deliver(n.snapshot, revision)
	}

	return nil
}

func (s *MemoryStore) Subscribe(ctx context.Context, path string, onChange func(Snapshot)) (func(), error) {
	if onChange == nil {
		return nil, errors.New("subscribe requires a callback")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	subscriber := &memorySubscriber{
		path:     path,
		segments: SplitPath(path),
		onChange: onChange,
	}
	subscriber.active.Store(true)

	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.subscribers[id] = subscriber
	current := Snapshot{Path: path, Value: marshalValue(lookup(s.root, subscriber.segments))}
	revision := s.revision
	s.mu.Unlock()

	subscriber.deliver(current, revision)

	var once sync.Once
	remove := func() {
		once.Do(func() {
			subscriber.active.Store(false)

			s.mu.Lock()
			delete(s.subscribers, id)
			s.mu.Unlock()
		})
	}
	stop := context.AfterFunc(ctx, remove)

	unsubscribe := func() {
		stop()
		remove()
	}

	return unsubscribe, nil
}

// SubscriberCount returns the number of live subscriptions
func (s *MemoryStore) SubscriberCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.subscribers)
}

func (s *MemoryStore) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, subscriber := range s.subscribers {
		subscriber.active.Store(false)
		delete(s.subscribers, id)
	}

	return nil
}

// deliver drops snapshots older than one already delivered and repeats of
// an unchanged value
func (m *memorySubscriber) deliver(snapshot Snapshot, revision uint64) {
	m.deliverMu.Lock()
	defer m.deliverMu.Unlock()

	if !m.active.Load() {
		return
	}
	if m.lastDelivered != nil && (revision < m.lastRevision || bytes.Equal(m.lastDelivered, snapshot.Value)) {
		return
	}

	m.lastRevision = revision
	m.lastDelivered = snapshot.Value
	m.onChange(snapshot)
}

func setValue(node interface{}, segments []string, value interface{}) interface{} {
	if len(segments) == 0 {
		return value
	}

	m, ok := node.(map[string]interface{})
	if !ok {
		if value == nil {
			return node
		}
		m = map[string]interface{}{}
	}

	child := setValue(m[segments[0]], segments[1:], value)
	if child == nil {
		delete(m, segments[0])
	} else {
		m[segments[0]] = child
	}

	if len(m) == 0 {
		return nil
	}

	return m
}
