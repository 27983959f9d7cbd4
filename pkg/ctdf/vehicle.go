package ctdf

import (
	"errors"
	"fmt"
)

type VehicleStatus string

const (
	VehicleStatusActive      VehicleStatus = "active"
	VehicleStatusInactive    VehicleStatus = "inactive"
	VehicleStatusMaintenance VehicleStatus = "maintenance"
)

type Vehicle struct {
	ID   string        `json:"id" groups:"basic"`
	Type TransportType `json:"type" groups:"basic"`

	Location GeoPoint `json:"location" groups:"basic"`
	Heading  float64  `json:"heading" groups:"basic"`
	Speed    float64  `json:"speed" groups:"basic"`

	Capacity VehicleCapacity `json:"capacity" groups:"detailed"`
	Status   VehicleStatus   `json:"status" groups:"basic"`
}

type VehicleCapacity struct {
	Total   int `json:"total" groups:"detailed"`
	Current int `json:"current" groups:"detailed"`
}

func (v *Vehicle) Validate() error {
	if v.ID == "" {
		return errors.New("vehicle id is empty")
	}
	if !v.Type.Valid() {
		return fmt.Errorf("unknown vehicle type %q", v.Type)
	}
	if err := v.Location.Validate(); err != nil {
		return err
	}
	if err := validateMotion(v.Heading, v.Speed); err != nil {
		return err
	}
	if v.Capacity.Total <= 0 || v.Capacity.Current < 0 || v.Capacity.Current > v.Capacity.Total {
		return fmt.Errorf("invalid capacity %d/%d", v.Capacity.Current, v.Capacity.Total)
	}

	switch v.Status {
	case VehicleStatusActive, VehicleStatusInactive, VehicleStatusMaintenance:
	default:
		return fmt.Errorf("unknown vehicle status %q", v.Status)
	}

	return nil
}

// VehicleLocation is the flat record kept under vehicleLocations/{id}
type VehicleLocation struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Heading   float64 `json:"heading"`
	Speed     float64 `json:"speed"`
	Timestamp int64   `json:"timestamp"`
}

func (l VehicleLocation) Point() GeoPoint {
	return GeoPoint{Latitude: l.Latitude, Longitude: l.Longitude}
}

func (l VehicleLocation) Validate() error {
	if err := l.Point().Validate(); err != nil {
		return err
	}

	return validateMotion(l.Heading, l.Speed)
}

func validateMotion(heading float64, speed float64) error {
	if heading < 0 || heading >= 360 {
		return fmt.Errorf("heading %f outside [0,360)", heading)
	}
	if speed < 0 {
		return fmt.Errorf("negative speed %f", speed)
	}

	return nil
}
