package datastore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/travigo/youroute/pkg/config"
)

func TestOpenMemory(t *testing.T) {
	cfg := config.Default()

	store, err := Open(context.Background(), &cfg)
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, store)
	assert.NoError(t, store.Close(context.Background()))
}

func TestOpenUnknownBackend(t *testing.T) {
	cfg := config.Default()
	cfg.Datastore.Backend = "postgres"

	_, err := Open(context.Background(), &cfg)
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestOpenFirebaseWithoutCredentials(t *testing.T) {
	cfg := config.Default()
	cfg.Datastore.Backend = BackendFirebase

	_, err := Open(context.Background(), &cfg)
	assert.Error(t, err)
}
