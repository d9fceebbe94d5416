package homeassistant

import "encoding/json"

type Unit int64

const (
	None Unit = iota
	MetersPerSecond
	Meters
	Percent
	J
	Seconds
	V
	A
)

func (s Unit) String() string {
	switch s {
	case None:
		return "None"
	case MetersPerSecond:
		return "m/s"
	case Meters:
		return "m"
	case Percent:
		return "%"
	case J:
		return "J"
	case Seconds:
		return "s"
	case V:
		return "V"
	case A:
		return "A"
	}
	return "unknown"
}

func (s Unit) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}
