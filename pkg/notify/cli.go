package notify

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/travigo/youroute/pkg/config"
	"github.com/travigo/youroute/pkg/consumer"
	"github.com/travigo/youroute/pkg/firebase_client"
	"github.com/travigo/youroute/pkg/redis_client"
	"github.com/travigo/youroute/pkg/tracking"
	"github.com/urfave/cli/v2"
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "notify",
		Usage: "Provides the notification system",
		Subcommands: []*cli.Command{
			{
				Name:  "run",
				Usage: "run notify server",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "stats-listen",
						Usage: "Address for the queue stats and health server",
						Value: ":3333",
					},
				},
				Action: func(c *cli.Context) error {
					ctx := context.Background()

					cfg, err := config.Load()
					if err != nil {
						return err
					}
					if err := redis_client.Connect(cfg.Redis); err != nil {
						return err
					}

					service, err := tracking.Open(ctx, cfg, redis_client.Client)
					if err != nil {
						return err
					}
					defer service.Store().Close(ctx)

					app, err := firebase_client.Connect(ctx, cfg.Firebase)
					if err != nil {
						return err
					}
					pusher, err := NewFCMPusher(ctx, app)
					if err != nil {
						return err
					}

					redisConsumer := consumer.RedisConsumer{
						Connection:      redis_client.QueueConnection,
						QueueName:       QueueName,
						NumberConsumers: 5,
						BatchSize:       20,
						Timeout:         2 * time.Second,
						Consumer:        NewNotifyBatchConsumer(service, pusher),
					}
					if _, err := redisConsumer.Start(); err != nil {
						return err
					}

					statsServer := redisConsumer.StatsServer(c.String("stats-listen"), func(ctx context.Context) error {
						return redis_client.Client.Ping(ctx).Err()
					})
					go func() {
						if err := statsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
							log.Error().Err(err).Msg("Stats server failed")
						}
					}()

					signals := make(chan os.Signal, 1)
					signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
					defer signal.Stop(signals)

					<-signals // wait for signal
					go func() {
						<-signals // hard exit on second signal (in case shutdown gets stuck)
						os.Exit(1)
					}()

					statsServer.Shutdown(ctx)
					<-redis_client.QueueConnection.StopAllConsuming() // wait for all Consume() calls to finish

					return nil
				},
			},
		},
	}
}
