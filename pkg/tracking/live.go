package tracking

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/travigo/youroute/pkg/ctdf"
	"github.com/travigo/youroute/pkg/datastore"
)

// vehicleRecord accepts both the flat location record written by
// UpdateVehicleLocation and a full vehicle document
type vehicleRecord struct {
	ctdf.Vehicle

	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Timestamp int64    `json:"timestamp"`
}

func decodeVehicle(vehicleID string, snapshot datastore.Snapshot) (ctdf.Vehicle, error) {
	var record vehicleRecord
	if err := snapshot.Decode(&record); err != nil {
		return ctdf.Vehicle{}, err
	}

	vehicle := record.Vehicle
	if vehicle.ID == "" {
		vehicle.ID = vehicleID
	}
	if record.Latitude != nil && record.Longitude != nil {
		vehicle.Location = ctdf.GeoPoint{Latitude: *record.Latitude, Longitude: *record.Longitude}
	}

	return vehicle, nil
}

// SubscribeToVehicle calls onUpdate with the current and every later
// position of the vehicle. Empty values are skipped.
func (s *Service) SubscribeToVehicle(ctx context.Context, vehicleID string, onUpdate func(ctdf.Vehicle)) (func(), error) {
	if vehicleID == "" {
		return nil, fmt.Errorf("%w: empty vehicle id", ErrInvalidArgument)
	}

	path := VehicleLocationPath(vehicleID)

	return s.store.Subscribe(ctx, path, func(snapshot datastore.Snapshot) {
		if !snapshot.Exists() {
			return
		}

		vehicle, err := decodeVehicle(vehicleID, snapshot)
		if err != nil {
			log.Error().Err(err).Str("path", path).Msg("Failed to decode vehicle location")
			return
		}

		onUpdate(vehicle)
	})
}

// SubscribeToRoute calls onUpdate with the current and every later version
// of the route. Empty values are skipped.
func (s *Service) SubscribeToRoute(ctx context.Context, routeID string, onUpdate func(ctdf.Route)) (func(), error) {
	if routeID == "" {
		return nil, fmt.Errorf("%w: empty route id", ErrInvalidArgument)
	}

	path := RoutePath(routeID)

	return s.store.Subscribe(ctx, path, func(snapshot datastore.Snapshot) {
		if !snapshot.Exists() {
			return
		}

		var route ctdf.Route
		if err := snapshot.Decode(&route); err != nil {
			log.Error().Err(err).Str("path", path).Msg("Failed to decode route")
			return
		}
		if route.ID == "" {
			route.ID = routeID
		}

		onUpdate(route)
	})
}

// UpdateVehicleLocation writes the flat location record stamped with the current time
func (s *Service) UpdateVehicleLocation(ctx context.Context, vehicleID string, latitude float64, longitude float64, heading float64, speed float64) error {
	if vehicleID == "" {
		return fmt.Errorf("%w: empty vehicle id", ErrInvalidArgument)
	}

	location := ctdf.VehicleLocation{
		Latitude:  latitude,
		Longitude: longitude,
		Heading:   heading,
		Speed:     speed,
		Timestamp: s.now().UnixMilli(),
	}
	if err := location.Validate(); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidArgument, err)
	}

	if err := s.store.Set(ctx, VehicleLocationPath(vehicleID), location); err != nil {
		return fmt.Errorf("updating vehicle %s location: %w", vehicleID, err)
	}

	return nil
}
