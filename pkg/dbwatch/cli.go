package dbwatch

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/travigo/youroute/pkg/config"
	"github.com/travigo/youroute/pkg/notify"
	"github.com/travigo/youroute/pkg/redis_client"
	"github.com/travigo/youroute/pkg/tracking"
	"github.com/urfave/cli/v2"
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "dbwatch",
		Usage: "Watches the datastore and raises notifications",
		Subcommands: []*cli.Command{
			{
				Name:  "run",
				Usage: "run dbwatch server",
				Action: func(c *cli.Context) error {
					ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
					defer stop()

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
					defer service.Store().Close(context.Background())

					eventQueue, err := redis_client.QueueConnection.OpenQueue(notify.QueueName)
					if err != nil {
						log.Fatal().Err(err).Msg("Failed to start event queue")
					}

					log.Info().Msg("Starting dbwatch server")

					return NewRouteStatusWatch(service, eventQueue).Run(ctx)
				},
			},
		},
	}
}
