package ctdf

type RouteStatus string

const (
	RouteStatusActive    RouteStatus = "active"
	RouteStatusSuspended RouteStatus = "suspended"
	RouteStatusModified  RouteStatus = "modified"
)

type Route struct {
	ID   string        `json:"id" groups:"basic"`
	Name string        `json:"name" groups:"basic"`
	Type TransportType `json:"type" groups:"basic"`

	Stops []Stop `json:"stops" groups:"detailed"`

	Schedule RouteSchedule `json:"schedule" groups:"detailed"`
	Fare     RouteFare     `json:"fare" groups:"basic"`
	Status   RouteStatus   `json:"status" groups:"basic"`

	VehicleLocation *Vehicle `json:"vehicleLocation,omitempty" groups:"basic"`
}

type RouteSchedule struct {
	Weekday []ScheduleEntry `json:"weekday" groups:"detailed"`
	Weekend []ScheduleEntry `json:"weekend" groups:"detailed"`
}

type ScheduleEntry struct {
	DepartureTime string `json:"departureTime" groups:"detailed"`
	// Frequency is the headway in minutes
	Frequency int `json:"frequency" groups:"detailed"`
}

type RouteFare struct {
	Base     float64 `json:"base" groups:"basic"`
	PerKm    float64 `json:"perKm" groups:"basic"`
	Currency string  `json:"currency" groups:"basic"`
}

// FareForDistance returns the fare for a journey of the given length in kilometres
func (f RouteFare) FareForDistance(distanceKm float64) float64 {
	if distanceKm < 0 {
		distanceKm = 0
	}

	return f.Base + f.PerKm*distanceKm
}

// StopIndex returns the position of the stop with the given id or -1
func (r *Route) StopIndex(stopID string) int {
	for i, stop := range r.Stops {
		if stop.ID == stopID {
			return i
		}
	}

	return -1
}
