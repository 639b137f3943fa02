// Package storage holds the station's state: the in-memory cache of the
// latest sensor readings and the persisted station identity issued by the
// measurement service.
package storage

import (
	"context"
	"time"

	"github.com/trixelnet/contributor/sensor"
	"github.com/trixelnet/contributor/trixel"
)

// ReadingStore caches the most recent state per sensor entity.
type ReadingStore interface {
	Put(ctx context.Context, reading sensor.Reading) error
	Get(ctx context.Context, entityID string) (sensor.Reading, error)
	List(ctx context.Context) ([]sensor.Reading, error)
}

// StationIdentity is the server-issued registration of this station.
// Exactly one identity exists per station instance.
type StationIdentity struct {
	StationID string                   `json:"station_id"`
	Token     string                   `json:"token"`
	TMSHost   string                   `json:"tms_host"`
	TrixelID  trixel.ID                `json:"trixel_id"`
	Depth     int                      `json:"depth"`
	Types     []sensor.MeasurementType `json:"types"`
	RenewedAt time.Time                `json:"renewed_at"`
}

// IdentityStore persists the station identity across restarts. Load
// returns errors.ErrNotFound when no identity has been saved yet.
type IdentityStore interface {
	Load(ctx context.Context) (StationIdentity, error)
	Save(ctx context.Context, identity StationIdentity) error
	Clear(ctx context.Context) error
}
