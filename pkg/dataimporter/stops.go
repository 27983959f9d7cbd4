package dataimporter

import (
	"context"
	"io"

	"github.com/rs/zerolog/log"
	"github.com/travigo/youroute/pkg/ctdf"
	"github.com/travigo/youroute/pkg/dataimporter/gtfs"
)

// StopCatalog replaces the stored stop catalog. *tracking.Service satisfies it.
type StopCatalog interface {
	ReplaceStops(ctx context.Context, stops []ctdf.Stop) error
}

// ImportStops loads the boardable stops of a GTFS feed into the catalog and
// returns how many were written
func ImportStops(ctx context.Context, catalog StopCatalog, reader io.Reader) (int, error) {
	gtfsStops, err := gtfs.ParseStops(reader)
	if err != nil {
		return 0, err
	}

	stops := make([]ctdf.Stop, 0, len(gtfsStops))
	skipped := 0

	for _, gtfsStop := range gtfsStops {
		if !gtfsStop.Boardable() {
			skipped++
			continue
		}

		stop := gtfsStop.ToCTDF()
		if err := stop.Location.Validate(); err != nil || stop.ID == "" {
			log.Debug().Str("stop", gtfsStop.ID).Msg("Skipping stop with invalid location")
			skipped++
			continue
		}

		stops = append(stops, stop)
	}

	if err := catalog.ReplaceStops(ctx, stops); err != nil {
		return 0, err
	}

	log.Info().Int("imported", len(stops)).Int("skipped", skipped).Msg("Imported stops")

	return len(stops), nil
}
