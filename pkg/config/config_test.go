package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsAreValid(t *testing.T) {
	cfg, err := LoadWithEnvironment(map[string]string{})
	require.NoError(t, err)

	assert.Equal(t, "wss://api.youroute.com/ws", cfg.LiveFeed.URL)
	assert.Equal(t, time.Second, cfg.LiveFeed.BaseDelay)
	assert.Equal(t, 5, cfg.LiveFeed.MaxAttempts)
	assert.Equal(t, "memory", cfg.Datastore.Backend)
	assert.Equal(t, 5.0, cfg.Tracking.NearbyRadiusKm)
}

func TestLoadFromFileThenEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "youroute.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
livefeed:
  url: ws://localhost:9000/ws
  base_delay: 250ms
  max_attempts: 3
datastore:
  backend: mongo
  mongo_database: transit
redis:
  address: redis:6379
`), 0o600))

	cfg, err := LoadWithEnvironment(map[string]string{
		"YOUROUTE_CONFIG":                path,
		"YOUROUTE_LIVEFEED_MAX_ATTEMPTS": "8",
		"YOUROUTE_LIVEFEED_DIAL_TIMEOUT": "2500",
		"YOUROUTE_NEARBY_RADIUS_KM":      "2.5",
	})
	require.NoError(t, err)

	assert.Equal(t, "ws://localhost:9000/ws", cfg.LiveFeed.URL)
	assert.Equal(t, 250*time.Millisecond, cfg.LiveFeed.BaseDelay)
	assert.Equal(t, 8, cfg.LiveFeed.MaxAttempts)
	assert.Equal(t, 2500*time.Millisecond, cfg.LiveFeed.DialTimeout)
	assert.Equal(t, "mongo", cfg.Datastore.Backend)
	assert.Equal(t, "transit", cfg.Datastore.MongoDatabase)
	assert.Equal(t, "mongodb://localhost:27017/", cfg.Datastore.MongoConnection)
	assert.Equal(t, "redis:6379", cfg.Redis.Address)
	assert.Equal(t, 2.5, cfg.Tracking.NearbyRadiusKm)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "unparseable int", env: map[string]string{"YOUROUTE_LIVEFEED_MAX_ATTEMPTS": "many"}},
		{name: "zero attempts", env: map[string]string{"YOUROUTE_LIVEFEED_MAX_ATTEMPTS": "0"}},
		{name: "unknown backend", env: map[string]string{"YOUROUTE_DATASTORE": "postgres"}},
		{name: "bad duration", env: map[string]string{"YOUROUTE_LIVEFEED_BASE_DELAY": "soon"}},
		{name: "negative radius", env: map[string]string{"YOUROUTE_NEARBY_RADIUS_KM": "-1"}},
		{name: "missing file", env: map[string]string{"YOUROUTE_CONFIG": "/nonexistent/youroute.yml"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadWithEnvironment(tt.env)
			assert.Error(t, err)
		})
	}
}
