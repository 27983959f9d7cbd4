package feeder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/travigo/youroute/pkg/config"
	"github.com/travigo/youroute/pkg/ctdf"
	"github.com/travigo/youroute/pkg/livefeed"
)

// LocationWriter persists a vehicle position. *tracking.Service satisfies it.
type LocationWriter interface {
	UpdateVehicleLocation(ctx context.Context, vehicleID string, latitude float64, longitude float64, heading float64, speed float64) error
}

// LocationPublisher announces a vehicle position. *livefeed.Client satisfies it.
type LocationPublisher interface {
	SendVehicleLocation(vehicle ctdf.Vehicle) error
}

type Option func(*Feeder)

func WithHTTPClient(client *http.Client) Option {
	return func(f *Feeder) { f.httpClient = client }
}

func WithPublisher(publisher LocationPublisher) Option {
	return func(f *Feeder) { f.publisher = publisher }
}

func WithTransportType(transportType ctdf.TransportType) Option {
	return func(f *Feeder) { f.transportType = transportType }
}

func WithClock(now func() time.Time) Option {
	return func(f *Feeder) { f.now = now }
}

type Feeder struct {
	url          string
	pollInterval time.Duration
	maxAge       time.Duration

	writer        LocationWriter
	publisher     LocationPublisher
	httpClient    *http.Client
	transportType ctdf.TransportType
	now           func() time.Time
}

func New(cfg config.FeederConfig, writer LocationWriter, opts ...Option) *Feeder {
	f := &Feeder{
		url:           cfg.URL,
		pollInterval:  cfg.PollInterval,
		maxAge:        cfg.MaxAge,
		writer:        writer,
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		transportType: ctdf.TransportTypeBus,
		now:           time.Now,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Run polls until ctx is cancelled. Failed polls are logged and retried on
// the next tick.
func (f *Feeder) Run(ctx context.Context) error {
	if f.url == "" {
		return errors.New("feeder url is not configured")
	}

	ticker := time.NewTicker(f.pollInterval)
	defer ticker.Stop()

	for {
		if _, err := f.Poll(ctx); err != nil {
			log.Error().Err(err).Str("url", f.url).Msg("Failed to poll vehicle positions")
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Poll fetches the feed once and returns the number of vehicles written
func (f *Feeder) Poll(ctx context.Context) (int, error) {
	body, err := f.fetch(ctx)
	if err != nil {
		return 0, err
	}

	vehicles, err := ParseVehiclePositions(body, f.now(), f.maxAge, f.transportType)
	if err != nil {
		return 0, err
	}

	written := 0
	for _, vehicle := range vehicles {
		err := f.writer.UpdateVehicleLocation(ctx, vehicle.ID, vehicle.Location.Latitude, vehicle.Location.Longitude, vehicle.Heading, vehicle.Speed)
		if err != nil {
			log.Error().Err(err).Str("vehicle", vehicle.ID).Msg("Failed to write vehicle location")
			continue
		}
		written++

		if f.publisher != nil {
			if err := f.publisher.SendVehicleLocation(vehicle); err != nil && !errors.Is(err, livefeed.ErrNotConnected) {
				log.Warn().Err(err).Str("vehicle", vehicle.ID).Msg("Failed to publish vehicle location")
			}
		}
	}

	log.Info().
		Int("parsed", len(vehicles)).
		Int("written", written).
		Msg("Processed GTFS-RT vehicle positions")

	return written, nil
}

func (f *Feeder) fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "youroute-feeder")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, f.url)
	}

	return io.ReadAll(resp.Body)
}
