package datastore

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/travigo/youroute/pkg/config"
	"github.com/travigo/youroute/pkg/database"
	"github.com/travigo/youroute/pkg/firebase_client"
)

const (
	BackendMemory   = "memory"
	BackendFirebase = "firebase"
	BackendMongo    = "mongo"
)

// Open connects the backend selected by cfg.Datastore.Backend
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	log.Info().Str("backend", cfg.Datastore.Backend).Msg("Opening datastore")

	switch cfg.Datastore.Backend {
	case BackendMemory, "":
		return NewMemoryStore(), nil
	case BackendFirebase:
		app, err := firebase_client.Connect(ctx, cfg.Firebase)
		if err != nil {
			return nil, err
		}

		client, err := app.Database(ctx)
		if err != nil {
			return nil, fmt.Errorf("opening firebase database: %w", err)
		}

		return NewFirebaseStore(client, cfg.Datastore.PollInterval), nil
	case BackendMongo:
		instance, err := database.Connect(ctx, cfg.Datastore)
		if err != nil {
			return nil, fmt.Errorf("connecting to mongodb: %w", err)
		}

		return NewMongoStore(instance), nil
	}

	return nil, fmt.Errorf("%w: backend %q", ErrUnsupported, cfg.Datastore.Backend)
}
