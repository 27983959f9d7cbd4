package elastic_client

import (
	"errors"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/rs/zerolog/log"
	"github.com/travigo/youroute/pkg/config"
)

var ErrNotConfigured = errors.New("elasticsearch address is not configured")

var Client *elasticsearch.Client

// NewClient builds a client that retries overloaded responses with
// exponential backoff
func NewClient(cfg config.ElasticsearchConfig) (*elasticsearch.Client, error) {
	if cfg.Address == "" {
		return nil, ErrNotConfigured
	}

	retryBackoff := backoff.NewExponentialBackOff()

	return elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.Address},
		Username:  cfg.Username,
		Password:  cfg.Password,
		Transport: http.DefaultTransport.(*http.Transport).Clone(),

		RetryOnStatus: []int{502, 503, 504, 429},

		RetryBackoff: func(i int) time.Duration {
			if i == 1 {
				retryBackoff.Reset()
			}
			return retryBackoff.NextBackOff()
		},
		MaxRetries: 5,
	})
}

// Connect sets Client after checking the cluster answers
func Connect(cfg config.ElasticsearchConfig) error {
	es, err := NewClient(cfg)
	if err != nil {
		return err
	}

	res, err := es.Info()
	if err != nil {
		return err
	}
	res.Body.Close()

	Client = es

	log.Info().Msgf("Elasticsearch client setup for %s", cfg.Address)

	return nil
}
