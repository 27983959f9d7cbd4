package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/kr/pretty"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/travigo/youroute/pkg/config"
	"github.com/travigo/youroute/pkg/elastic_client"
	"github.com/travigo/youroute/pkg/livefeed"
	"github.com/travigo/youroute/pkg/notify"
	"github.com/travigo/youroute/pkg/redis_client"
	"github.com/travigo/youroute/pkg/tracking"
	"github.com/urfave/cli/v2"
)

func RegisterCLI() *cli.Command {
	return &cli.Command{
		Name:  "realtime",
		Usage: "Live feed connection",
		Subcommands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Stay connected to the live feed and forward its messages",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "metrics-listen",
						Usage: "Address to serve prometheus metrics on",
						Value: ":3333",
					},
					&cli.BoolFlag{
						Name:  "notify",
						Usage: "Queue notification messages for the notify service",
					},
				},
				Action: run,
			},
			{
				Name:  "tail",
				Usage: "Print every live feed message",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:  "topic",
						Usage: "Only print these topics",
					},
				},
				Action: tail,
			},
		},
	}
}

func run(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	client := NewClient(cfg.LiveFeed, registry)

	var sinks []Sink

	if c.Bool("notify") {
		if err := redis_client.Connect(cfg.Redis); err != nil {
			return err
		}

		forwarder, err := notify.NewForwarder(redis_client.QueueConnection)
		if err != nil {
			return err
		}
		defer forwarder.Close()

		sinks = append(sinks, forwarder)
	}

	if cfg.Elasticsearch.Address != "" {
		if err := elastic_client.Connect(cfg.Elasticsearch); err != nil {
			return err
		}

		archiver, err := elastic_client.NewArchiver(elastic_client.Client, cfg.Elasticsearch.Index, 15*time.Second)
		if err != nil {
			return err
		}
		defer archiver.Close(context.Background())

		sinks = append(sinks, archiver)
	} else {
		log.Info().Msg("Skipping Elasticsearch setup")
	}

	service, err := tracking.Open(ctx, cfg, redis_client.Client)
	if err != nil {
		return err
	}

	pipeline := NewPipeline(client, sinks...)
	defer pipeline.Close()

	if err := pipeline.FollowRoutes(ctx, service); err != nil {
		return err
	}

	metricsServer := &http.Server{
		Addr:    c.String("metrics-listen"),
		Handler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Metrics server failed")
		}
	}()
	defer metricsServer.Shutdown(context.Background())

	_ = client.Connect(ctx) // retried in the background
	defer client.Disconnect()

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := client.Err(); err != nil {
				return fmt.Errorf("live feed stopped: %w", err)
			}
		}
	}
}

func tail(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	client := NewClient(cfg.LiveFeed, nil)

	topics := livefeed.AllTopics
	if selected := c.StringSlice("topic"); len(selected) > 0 {
		topics = nil
		for _, topic := range selected {
			if !livefeed.Topic(topic).Valid() {
				return fmt.Errorf("unknown topic %q", topic)
			}
			topics = append(topics, livefeed.Topic(topic))
		}
	}

	for _, topic := range topics {
		client.Subscribe(topic, func(message livefeed.Message) error {
			var data interface{}
			if err := json.Unmarshal(message.Data, &data); err != nil {
				return err
			}

			fmt.Printf("%s %s\n", message.Time().Format(time.RFC3339), message.Topic)
			pretty.Println(data)
			return nil
		})
	}

	if err := client.Connect(ctx); err != nil {
		return err
	}
	defer client.Disconnect()

	<-ctx.Done()

	return nil
}
