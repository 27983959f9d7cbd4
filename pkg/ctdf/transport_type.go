package ctdf

type TransportType string

const (
	TransportTypeBus   TransportType = "bus"
	TransportTypeTrain TransportType = "train"
	TransportTypeOther TransportType = "other"
)

func (t TransportType) Valid() bool {
	switch t {
	case TransportTypeBus, TransportTypeTrain, TransportTypeOther:
		return true
	}

	return false
}
