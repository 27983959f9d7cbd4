package api

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"github.com/travigo/youroute/pkg/config"
	"github.com/travigo/youroute/pkg/realtime"
	"github.com/travigo/youroute/pkg/redis_client"
	"github.com/travigo/youroute/pkg/tracking"
	"github.com/urfave/cli/v2"
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "web-api",
		Usage: "Provides the core web API",
		Subcommands: []*cli.Command{
			{
				Name:  "run",
				Usage: "run web api server",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "listen",
						Usage: "listen target for the web server, overrides the configured address",
					},
					&cli.BoolFlag{
						Name:  "publish",
						Usage: "Publish accepted vehicle locations on the live feed",
					},
				},
				Action: func(c *cli.Context) error {
					ctx := context.Background()

					cfg, err := config.Load()
					if err != nil {
						return err
					}

					if err := redis_client.Connect(cfg.Redis); err != nil {
						log.Warn().Err(err).Msg("Redis unavailable, stop catalog will not be cached")
					}

					service, err := tracking.Open(ctx, cfg, redis_client.Client)
					if err != nil {
						return err
					}
					defer service.Store().Close(ctx)

					registry := prometheus.NewRegistry()
					deps := Dependencies{
						Tracking: service,
						Metrics:  registry,
					}

					if cfg.API.AuthDomain != "" {
						jwtValidator, err := NewTokenValidator(cfg.API)
						if err != nil {
							return err
						}
						deps.Auth = EnsureValidToken(jwtValidator)
					} else {
						log.Warn().Msg("Auth0 is not configured, account routes are disabled")
					}

					if c.Bool("publish") {
						client := realtime.NewClient(cfg.LiveFeed, registry)
						_ = client.Connect(ctx) // retried in the background
						defer client.Disconnect()

						deps.Publisher = client
					}

					listen := cfg.API.ListenAddress
					if c.String("listen") != "" {
						listen = c.String("listen")
					}

					return SetupServer(listen, deps)
				},
			},
		},
	}
}
