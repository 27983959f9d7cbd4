package redis_client

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/travigo/youroute/pkg/config"
)

func TestConnect(t *testing.T) {
	server := miniredis.RunT(t)

	require.NoError(t, Connect(config.RedisConfig{Address: server.Addr()}))
	defer Client.Close()

	assert.NotNil(t, QueueConnection)

	queue, err := QueueConnection.OpenQueue("test-queue")
	require.NoError(t, err)
	require.NoError(t, queue.Publish("hello"))

	count, err := queue.ReadyCount()
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestConnectFailsWithoutServer(t *testing.T) {
	server := miniredis.RunT(t)
	address := server.Addr()
	server.Close()

	assert.Error(t, Connect(config.RedisConfig{Address: address}))
}
