package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/travigo/youroute/pkg/api"
	"github.com/travigo/youroute/pkg/dataimporter"
	"github.com/travigo/youroute/pkg/dbwatch"
	"github.com/travigo/youroute/pkg/feeder"
	"github.com/travigo/youroute/pkg/notify"
	"github.com/travigo/youroute/pkg/realtime"
	"github.com/travigo/youroute/pkg/util"
	"github.com/urfave/cli/v2"
)

func main() {
	if os.Getenv("YOUROUTE_LOG_FORMAT") != "JSON" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}

	if util.EnvironmentFlag("YOUROUTE_DEBUG") {
		log.Logger = log.Logger.Level(zerolog.DebugLevel)
	} else {
		log.Logger = log.Logger.Level(zerolog.InfoLevel)
	}

	app := &cli.App{
		Name:        "youroute",
		Description: "Single binary of truth for YouRoute - runs all the services",

		Commands: []*cli.Command{
			api.RegisterCLI(),
			realtime.RegisterCLI(),
			notify.RegisterCLI(),
			feeder.RegisterCLI(),
			dataimporter.RegisterCLI(),
			dbwatch.RegisterCLI(),
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatal().Err(err).Send()
	}
}
