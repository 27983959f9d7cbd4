package redis_client

import (
	"context"

	"github.com/adjust/rmq/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/travigo/youroute/pkg/config"
)

const queueConnectionTag = "youroute"

var Client *redis.Client
var QueueConnection rmq.Connection

func Connect(cfg config.RedisConfig) error {
	options := &redis.Options{
		Addr: cfg.Address,
		DB:   cfg.Database,
	}
	if cfg.Password != "" {
		options.Password = cfg.Password
	}

	return ConnectClient(redis.NewClient(options))
}

// ConnectClient installs an existing client and opens the queue connection on it
func ConnectClient(client *redis.Client) error {
	if err := client.Ping(context.Background()).Err(); err != nil {
		return err
	}

	errors := make(chan error, 16)
	queueConnection, err := rmq.OpenConnectionWithRedisClient(queueConnectionTag, client, errors)
	if err != nil {
		return err
	}

	go logQueueErrors(errors)

	Client = client
	QueueConnection = queueConnection

	log.Info().Str("address", client.Options().Addr).Msg("Connected to Redis")

	return nil
}

func logQueueErrors(errors <-chan error) {
	for err := range errors {
		log.Error().Err(err).Msg("Redis queue error")
	}
}
