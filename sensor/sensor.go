// Package sensor models Home Assistant sensor states and adapts them onto
// the trixel network's canonical measurement types.
package sensor

import "time"

// MeasurementType is a canonical quantity the trixel network accepts.
type MeasurementType string

const (
	AmbientTemperature MeasurementType = "ambient_temperature"
	RelativeHumidity   MeasurementType = "relative_humidity"
)

// Types lists all supported measurement types in a stable order.
func Types() []MeasurementType {
	return []MeasurementType{AmbientTemperature, RelativeHumidity}
}

func (t MeasurementType) Valid() bool {
	switch t {
	case AmbientTemperature, RelativeHumidity:
		return true
	default:
		return false
	}
}

// DeviceClass is the Home Assistant sensor device class.
type DeviceClass string

const (
	DeviceClassTemperature DeviceClass = "temperature"
	DeviceClassHumidity    DeviceClass = "humidity"
)

var typeByDeviceClass = map[DeviceClass]MeasurementType{
	DeviceClassTemperature: AmbientTemperature,
	DeviceClassHumidity:    RelativeHumidity,
}

// TypeForDeviceClass maps a device class to its measurement type.
func TypeForDeviceClass(dc DeviceClass) (MeasurementType, bool) {
	t, ok := typeByDeviceClass[dc]

	return t, ok
}

const (
	StateUnavailable = "unavailable"
	StateUnknown     = "unknown"
)

const (
	UnitCelsius    = "°C"
	UnitFahrenheit = "°F"
	UnitKelvin     = "K"
	UnitPercent    = "%"
)

// Reading is the raw state of a single Home Assistant sensor entity.
type Reading struct {
	EntityID     string      `json:"entity_id"`
	State        string      `json:"state"`
	DeviceClass  DeviceClass `json:"device_class"`
	Unit         string      `json:"unit_of_measurement"`
	LastReported time.Time   `json:"last_reported"`
}

// Measurement is one aggregated value submitted for a measurement type.
type Measurement struct {
	Value       float64   `json:"value"`
	Unit        string    `json:"unit"`
	SensorCount int       `json:"sensor_count"`
	Timestamp   time.Time `json:"timestamp"`
}

// Batch holds one contribution cycle's aggregated values. It is ephemeral:
// a failed batch is dropped and the next cycle builds a fresh one.
type Batch map[MeasurementType]Measurement
