package tracking

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/travigo/youroute/pkg/ctdf"
)

// ReplaceStops overwrites the whole stop catalog and drops the cached copy
func (s *Service) ReplaceStops(ctx context.Context, stops []ctdf.Stop) error {
	stopsByID := make(map[string]ctdf.Stop, len(stops))
	for _, stop := range stops {
		if stop.ID == "" {
			return fmt.Errorf("%w: stop without id", ErrInvalidArgument)
		}
		stopsByID[stop.ID] = stop
	}

	if err := s.store.Set(ctx, StopsPath, stopsByID); err != nil {
		return &QueryError{Path: StopsPath, Err: err}
	}

	if s.stopCache != nil {
		if err := s.stopCache.Invalidate(ctx); err != nil {
			log.Error().Err(err).Msg("Failed to invalidate stop catalog cache")
		}
	}

	return nil
}
