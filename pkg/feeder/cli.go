package feeder

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/travigo/youroute/pkg/config"
	"github.com/travigo/youroute/pkg/livefeed"
	"github.com/travigo/youroute/pkg/tracking"
	"github.com/urfave/cli/v2"
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "feeder",
		Usage: "Feeds GTFS-RT vehicle positions into the live store",
		Subcommands: []*cli.Command{
			{
				Name:  "run",
				Usage: "poll the configured vehicle positions feed",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "publish",
						Usage: "Also publish each position on the live feed",
					},
				},
				Action: func(c *cli.Context) error {
					ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
					defer stop()

					cfg, err := config.Load()
					if err != nil {
						return err
					}

					service, err := tracking.Open(ctx, cfg, nil)
					if err != nil {
						return err
					}
					defer service.Store().Close(context.Background())

					var opts []Option
					if c.Bool("publish") {
						client := livefeed.NewClient(livefeed.Config{
							URL:         cfg.LiveFeed.URL,
							BaseDelay:   cfg.LiveFeed.BaseDelay,
							MaxAttempts: cfg.LiveFeed.MaxAttempts,
							DialTimeout: cfg.LiveFeed.DialTimeout,
						})
						_ = client.Connect(ctx) // retried in the background
						defer client.Disconnect()

						opts = append(opts, WithPublisher(client))
					}

					return New(cfg.Feeder, service, opts...).Run(ctx)
				},
			},
		},
	}
}
