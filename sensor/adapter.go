package sensor

import (
	"fmt"
	"strconv"
	"time"

	"github.com/trixelnet/contributor/pkg/errors"
)

// Adapt converts a raw reading into the network's canonical value for its
// measurement type. Temperatures are normalized to Celsius, humidity to
// percent. It is a pure transform with no side effects.
func Adapt(r Reading) (MeasurementType, float64, string, error) {
	mt, ok := TypeForDeviceClass(r.DeviceClass)
	if !ok {
		return "", 0, "", fmt.Errorf("%w: %q", errors.ErrUnsupportedSensor, r.DeviceClass)
	}

	switch r.State {
	case "", StateUnavailable, StateUnknown:
		return "", 0, "", fmt.Errorf("%w: entity %s is %q", errors.ErrInvalidValue, r.EntityID, r.State)
	}

	value, err := strconv.ParseFloat(r.State, 64)
	if err != nil {
		return "", 0, "", fmt.Errorf("%w: entity %s state %q", errors.ErrInvalidValue, r.EntityID, r.State)
	}

	switch mt {
	case AmbientTemperature:
		value, err = toCelsius(value, r.Unit)
		if err != nil {
			return "", 0, "", err
		}

		return mt, value, UnitCelsius, nil
	case RelativeHumidity:
		if r.Unit != "" && r.Unit != UnitPercent {
			return "", 0, "", fmt.Errorf("%w: humidity unit %q", errors.ErrUnsupportedSensor, r.Unit)
		}

		return mt, value, UnitPercent, nil
	default:
		return "", 0, "", fmt.Errorf("%w: %q", errors.ErrUnsupportedSensor, mt)
	}
}

func toCelsius(value float64, unit string) (float64, error) {
	switch unit {
	case "", UnitCelsius:
		return value, nil
	case UnitFahrenheit:
		return (value - 32) * 5 / 9, nil
	case UnitKelvin:
		return value - 273.15, nil
	default:
		return 0, fmt.Errorf("%w: temperature unit %q", errors.ErrUnsupportedSensor, unit)
	}
}

// Skipped records a reading excluded from a batch and why.
type Skipped struct {
	EntityID string
	Err      error
}

// Aggregate folds readings into a batch, averaging values that share a
// measurement type by arithmetic mean. Readings that cannot be adapted are
// excluded and reported; they never abort aggregation. A measurement type
// with no usable readings is simply absent from the batch.
func Aggregate(readings []Reading, now time.Time) (Batch, []Skipped) {
	type acc struct {
		sum   float64
		count int
		unit  string
	}

	sums := make(map[MeasurementType]*acc)
	var skipped []Skipped

	for _, r := range readings {
		mt, value, unit, err := Adapt(r)
		if err != nil {
			skipped = append(skipped, Skipped{EntityID: r.EntityID, Err: err})

			continue
		}

		a, ok := sums[mt]
		if !ok {
			a = &acc{unit: unit}
			sums[mt] = a
		}
		a.sum += value
		a.count++
	}

	batch := make(Batch, len(sums))
	for mt, a := range sums {
		batch[mt] = Measurement{
			Value:       a.sum / float64(a.count),
			Unit:        a.unit,
			SensorCount: a.count,
			Timestamp:   now,
		}
	}

	return batch, skipped
}
