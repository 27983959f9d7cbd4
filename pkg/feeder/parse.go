package feeder

import (
	"fmt"
	"math"
	"time"

	"github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"github.com/travigo/youroute/pkg/ctdf"
	"google.golang.org/protobuf/proto"
)

// ParseVehiclePositions decodes a GTFS-RT feed and returns one vehicle per
// position entity recorded within maxAge of now. Entities without a position
// are skipped.
func ParseVehiclePositions(body []byte, now time.Time, maxAge time.Duration, transportType ctdf.TransportType) ([]ctdf.Vehicle, error) {
	feed := gtfs.FeedMessage{}
	if err := proto.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("parsing GTFS-RT protobuf: %w", err)
	}

	vehicles := []ctdf.Vehicle{}

	for _, entity := range feed.GetEntity() {
		if entity.GetIsDeleted() {
			continue
		}

		vehiclePosition := entity.GetVehicle()
		if vehiclePosition == nil || vehiclePosition.GetPosition() == nil {
			continue
		}

		if timestamp := vehiclePosition.GetTimestamp(); timestamp != 0 && maxAge > 0 {
			recordedAt := time.Unix(int64(timestamp), 0)

			// Skip any records that haven't been updated recently
			if now.Sub(recordedAt) > maxAge {
				continue
			}
		}

		vehicleID := vehiclePosition.GetVehicle().GetId()
		if vehicleID == "" {
			vehicleID = entity.GetId()
		}
		if vehicleID == "" {
			continue
		}

		position := vehiclePosition.GetPosition()
		vehicles = append(vehicles, ctdf.Vehicle{
			ID:   vehicleID,
			Type: transportType,
			Location: ctdf.GeoPoint{
				Latitude:  float64(position.GetLatitude()),
				Longitude: float64(position.GetLongitude()),
			},
			Heading: normaliseBearing(position.GetBearing()),
			Speed:   float64(position.GetSpeed()),
			Status:  ctdf.VehicleStatusActive,
		})
	}

	return vehicles, nil
}

// normaliseBearing folds a GTFS-RT bearing into [0,360)
func normaliseBearing(bearing float32) float64 {
	heading := math.Mod(float64(bearing), 360)
	if heading < 0 {
		heading += 360
	}

	return heading
}
