package ctdf

type Stop struct {
	ID   string `json:"id" groups:"basic"`
	Name string `json:"name" groups:"basic"`

	Location GeoPoint `json:"location" groups:"basic"`

	ArrivalTime   string `json:"arrivalTime" groups:"detailed"`
	DepartureTime string `json:"departureTime" groups:"detailed"`

	Facilities []string `json:"facilities" groups:"detailed"`
}

func (s *Stop) HasFacility(facility string) bool {
	for _, f := range s.Facilities {
		if f == facility {
			return true
		}
	}

	return false
}
