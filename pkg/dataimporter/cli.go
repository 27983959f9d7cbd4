package dataimporter

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/travigo/youroute/pkg/config"
	"github.com/travigo/youroute/pkg/redis_client"
	"github.com/travigo/youroute/pkg/tracking"
	"github.com/urfave/cli/v2"

	"github.com/rs/zerolog/log"
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "stops",
		Usage: "Manage the stop catalog",
		Subcommands: []*cli.Command{
			{
				Name:  "import",
				Usage: "Import stops from a GTFS zip or stops.txt",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "source",
						Usage:    "Path or URL of the GTFS data",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "no-cache",
						Usage: "Do not connect to Redis to clear the cached catalog",
					},
				},
				Action: func(c *cli.Context) error {
					ctx := context.Background()

					cfg, err := config.Load()
					if err != nil {
						return err
					}

					if !c.Bool("no-cache") {
						if err := redis_client.Connect(cfg.Redis); err != nil {
							log.Fatal().Err(err).Msg("Failed to connect to Redis")
						}
					}

					service, err := tracking.Open(ctx, cfg, redis_client.Client)
					if err != nil {
						return err
					}
					defer service.Store().Close(ctx)

					source, err := openSource(ctx, c.String("source"))
					if err != nil {
						return err
					}
					defer source.Close()

					startTime := time.Now()

					count, err := ImportStops(ctx, service, source)
					if err != nil {
						return err
					}

					log.Info().Int("stops", count).Str("duration", time.Since(startTime).String()).Msg("Stop import complete")

					return nil
				},
			},
		},
	}
}

func openSource(ctx context.Context, source string) (io.ReadCloser, error) {
	if !strings.HasPrefix(source, "http://") && !strings.HasPrefix(source, "https://") {
		return os.Open(source)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, source)
	}

	return resp.Body, nil
}
