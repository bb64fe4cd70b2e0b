package weather

import (
	"fmt"
	"math"
)

// Message keys shared with the watch firmware (appinfo.json appKeys).
const (
	KeyIcon        = "WEATHER_MESSAGE_ICON"
	KeyTemperature = "WEATHER_MESSAGE_TEMPERATURE"
)

// Coordinates is a position reported by the geolocation capability.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Result is what the watch face displays.
type Result struct {
	Icon             int
	TemperatureLabel string
}

// Payload is the outbound message for one request. The zero value is the
// empty payload, which tells the watch to leave its display unchanged.
type Payload struct {
	result *Result
}

// Empty returns the payload sent on any failure.
func Empty() Payload {
	return Payload{}
}

// Success wraps a result for sending.
func Success(r Result) Payload {
	return Payload{result: &r}
}

// IsEmpty reports whether p carries no result.
func (p Payload) IsEmpty() bool {
	return p.result == nil
}

// Result returns the carried result, if any.
func (p Payload) Result() (Result, bool) {
	if p.result == nil {
		return Result{}, false
	}
	return *p.result, true
}

// Message flattens the payload into the key/value dictionary the device expects.
func (p Payload) Message() map[string]any {
	if p.result == nil {
		return map[string]any{}
	}
	return map[string]any{
		KeyIcon:        p.result.Icon,
		KeyTemperature: p.result.TemperatureLabel,
	}
}

func (p Payload) String() string {
	if p.result == nil {
		return "{}"
	}
	return fmt.Sprintf("{%s:%d %s:%q}", KeyIcon, p.result.Icon, KeyTemperature, p.result.TemperatureLabel)
}

// CelsiusLabel converts Kelvin to whole degrees Celsius, truncating toward
// zero, and appends the unit marker.
func CelsiusLabel(kelvin float64) string {
	c := int(math.Trunc(kelvin - 273.15))
	return fmt.Sprintf("%d°C", c)
}
