package tracking

import (
	"time"

	"github.com/travigo/youroute/pkg/datastore"
)

// DefaultRadiusKm is the nearby stop radius used when none is given
const DefaultRadiusKm = 5.0

type Option func(*Service)

func WithStopCache(cache *StopCatalogCache) Option {
	return func(s *Service) { s.stopCache = cache }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithDefaultRadius(radiusKm float64) Option {
	return func(s *Service) { s.defaultRadiusKm = radiusKm }
}

// Service answers location queries and manages live subscriptions against
// the backing store
type Service struct {
	store     datastore.Store
	stopCache *StopCatalogCache

	now             func() time.Time
	defaultRadiusKm float64
}

func NewService(store datastore.Store, opts ...Option) *Service {
	s := &Service{
		store:           store,
		now:             time.Now,
		defaultRadiusKm: DefaultRadiusKm,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *Service) Store() datastore.Store {
	return s.store
}
