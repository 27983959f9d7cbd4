package elastic_client

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esutil"
	"github.com/rs/zerolog/log"
	"github.com/travigo/youroute/pkg/ctdf"
	"github.com/travigo/youroute/pkg/livefeed"
)

// LocationDocument is the archived form of one location_update message
type LocationDocument struct {
	VehicleID string             `json:"vehicle_id"`
	Type      ctdf.TransportType `json:"type"`
	Status    ctdf.VehicleStatus `json:"status"`

	Location LocationPoint `json:"location"`
	Heading  float64       `json:"heading"`
	Speed    float64       `json:"speed"`

	Timestamp time.Time `json:"timestamp"`
}

// LocationPoint matches the elasticsearch geo_point object form
type LocationPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Archiver bulk indexes live vehicle locations
type Archiver struct {
	index   string
	indexer esutil.BulkIndexer

	unsubscribe func()
	once        sync.Once
}

func NewArchiver(client *elasticsearch.Client, index string, flushInterval time.Duration) (*Archiver, error) {
	indexer, err := esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
		Client:        client,
		Index:         index,
		FlushInterval: flushInterval,
	})
	if err != nil {
		return nil, err
	}

	return &Archiver{index: index, indexer: indexer}, nil
}

func (a *Archiver) Bind(feed livefeed.Subscriber) {
	a.unsubscribe = feed.Subscribe(livefeed.TopicLocationUpdate, a.archive)
}

func (a *Archiver) archive(message livefeed.Message) error {
	vehicle, err := message.Vehicle()
	if err != nil {
		return err
	}

	document, err := json.Marshal(LocationDocument{
		VehicleID: vehicle.ID,
		Type:      vehicle.Type,
		Status:    vehicle.Status,
		Location: LocationPoint{
			Lat: vehicle.Location.Latitude,
			Lon: vehicle.Location.Longitude,
		},
		Heading:   vehicle.Heading,
		Speed:     vehicle.Speed,
		Timestamp: message.Time(),
	})
	if err != nil {
		return err
	}

	return a.indexer.Add(
		context.Background(),
		esutil.BulkIndexerItem{
			Action: "index",
			Body:   bytes.NewReader(document),
			OnFailure: func(ctx context.Context, item esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem, err error) {
				if err != nil {
					log.Error().Err(err).Str("indexName", a.index).Msg("Failed to index document")
				} else {
					log.Error().Str("type", res.Error.Type).Str("reason", res.Error.Reason).Msg("Failed to index document")
				}
			},
		},
	)
}

func (a *Archiver) Stats() esutil.BulkIndexerStats {
	return a.indexer.Stats()
}

// Close unsubscribes and waits for queued documents to be flushed
func (a *Archiver) Close(ctx context.Context) error {
	var err error

	a.once.Do(func() {
		if a.unsubscribe != nil {
			a.unsubscribe()
		}
		err = a.indexer.Close(ctx)
	})

	return err
}
