package homeassistant

import "encoding/json"

type DeviceClass int64

const (
	NoDeviceClass DeviceClass = iota
	Battery
	Current
	Distance
	Duration
	Energy
	Speed
	Voltage
)

func (s DeviceClass) String() string {
	switch s {
	case NoDeviceClass:
		return ""
	case Battery:
		return "battery"
	case Current:
		return "current"
	case Distance:
		return "distance"
	case Duration:
		return "duration"
	case Energy:
		return "energy"
	case Speed:
		return "speed"
	case Voltage:
		return "voltage"
	}
	return "unknown"
}

func (s DeviceClass) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}
