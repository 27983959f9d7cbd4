package tracking

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/rs/zerolog/log"
	"github.com/travigo/youroute/pkg/ctdf"
	"github.com/travigo/youroute/pkg/util"
)

// NearbyStops returns the stops within the default radius of the origin
func (s *Service) NearbyStops(ctx context.Context, latitude float64, longitude float64) ([]ctdf.Stop, error) {
	return s.NearbyStopsWithin(ctx, latitude, longitude, s.defaultRadiusKm)
}

// NearbyStopsWithin returns every catalog stop whose distance from the origin
// is at most radiusKm. Backing store failures are logged and produce an
// empty result rather than an error.
func (s *Service) NearbyStopsWithin(ctx context.Context, latitude float64, longitude float64, radiusKm float64) ([]ctdf.Stop, error) {
	origin := ctdf.GeoPoint{Latitude: latitude, Longitude: longitude}
	if err := origin.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidArgument, err)
	}
	if radiusKm < 0 || math.IsNaN(radiusKm) {
		return nil, fmt.Errorf("%w: radius %f", ErrInvalidArgument, radiusKm)
	}

	catalog, err := s.stopCatalog(ctx)
	if err != nil {
		log.Error().Err(err).Float64("latitude", latitude).Float64("longitude", longitude).Msg("Failed to load stop catalog")
		return []ctdf.Stop{}, nil
	}

	nearby := make([]ctdf.Stop, len(catalog))
	copy(nearby, catalog)

	util.InPlaceFilter(&nearby, func(stop ctdf.Stop) bool {
		return origin.Distance(stop.Location) <= radiusKm
	})

	log.Debug().
		Float64("latitude", latitude).
		Float64("longitude", longitude).
		Float64("radius", radiusKm).
		Int("matches", len(nearby)).
		Msg("Nearby stop query")

	return nearby, nil
}

func (s *Service) stopCatalog(ctx context.Context) ([]ctdf.Stop, error) {
	if s.stopCache != nil {
		if stops, ok := s.stopCache.Get(ctx); ok {
			return stops, nil
		}
	}

	stops, err := s.loadStopCatalog(ctx)
	if err != nil {
		return nil, err
	}

	if s.stopCache != nil {
		s.stopCache.Set(ctx, stops)
	}

	return stops, nil
}

// loadStopCatalog reads the stops map and orders it by id so results are
// stable for a given snapshot
func (s *Service) loadStopCatalog(ctx context.Context) ([]ctdf.Stop, error) {
	snapshot, err := s.store.Get(ctx, StopsPath)
	if err != nil {
		return nil, &QueryError{Path: StopsPath, Err: err}
	}
	if !snapshot.Exists() {
		return []ctdf.Stop{}, nil
	}

	var stopsByID map[string]ctdf.Stop
	if err := snapshot.Decode(&stopsByID); err != nil {
		return nil, &QueryError{Path: StopsPath, Err: err}
	}

	stops := make([]ctdf.Stop, 0, len(stopsByID))
	for id, stop := range stopsByID {
		if stop.ID == "" {
			stop.ID = id
		}
		stops = append(stops, stop)
	}

	sort.Slice(stops, func(i, j int) bool {
		return stops[i].ID < stops[j].ID
	})

	return stops, nil
}
