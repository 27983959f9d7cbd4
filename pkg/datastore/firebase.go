package datastore

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"firebase.google.com/go/v4/db"
	"github.com/rs/zerolog/log"
)

// FirebaseStore reads and writes a Firebase realtime database. Subscriptions
// poll the path and only fire when its ETag changes.
type FirebaseStore struct {
	client       *db.Client
	pollInterval time.Duration
}

func NewFirebaseStore(client *db.Client, pollInterval time.Duration) *FirebaseStore {
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}

	return &FirebaseStore{
		client:       client,
		pollInterval: pollInterval,
	}
}

func (s *FirebaseStore) ref(path string) *db.Ref {
	return s.client.NewRef("/" + JoinPath(path))
}

func (s *FirebaseStore) Get(ctx context.Context, path string) (Snapshot, error) {
	var value json.RawMessage
	if err := s.ref(path).Get(ctx, &value); err != nil {
		return Snapshot{}, err
	}

	return Snapshot{Path: path, Value: value}, nil
}

func (s *FirebaseStore) Set(ctx context.Context, path string, value interface{}) error {
	if value == nil {
		return s.ref(path).Delete(ctx)
	}

	return s.ref(path).Set(ctx, value)
}

func (s *FirebaseStore) Subscribe(ctx context.Context, path string, onChange func(Snapshot)) (func(), error) {
	if onChange == nil {
		return nil, errors.New("subscribe requires a callback")
	}

	ref := s.ref(path)

	var value json.RawMessage
	etag, err := ref.GetWithETag(ctx, &value)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	var stopped atomic.Bool

	onChange(Snapshot{Path: path, Value: value})

	go func() {
		ticker := time.NewTicker(s.pollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			var latest json.RawMessage
			changed, newETag, err := ref.GetIfChanged(ctx, etag, &latest)
			if err != nil {
				if ctx.Err() == nil {
					log.Error().Err(err).Str("path", path).Msg("Error polling firebase path")
				}
				continue
			}

			if !changed || stopped.Load() {
				continue
			}

			etag = newETag
			onChange(Snapshot{Path: path, Value: latest})
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			stopped.Store(true)
			cancel()
		})
	}, nil
}

func (s *FirebaseStore) Close(ctx context.Context) error {
	return nil
}
