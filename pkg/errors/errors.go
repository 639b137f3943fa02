package errors

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrEmptyKey     = errors.New("empty key")
	ErrInvalidData  = errors.New("invalid data type")
	ErrEntityExists = errors.New("entity already exists")

	// ErrNoHome indicates a missing or placeholder home location.
	ErrNoHome = errors.New("home location is not configured")

	ErrUnsupportedSensor = errors.New("sensor device class has no measurement type mapping")
	ErrInvalidValue      = errors.New("sensor state is not a usable value")
	ErrInvalidDepth      = errors.New("trixel depth out of range")

	ErrRegistrationExpired = errors.New("measurement station registration expired")
	ErrRejected            = errors.New("submission rejected by measurement service")
	ErrNetwork             = errors.New("measurement service unreachable")
)
