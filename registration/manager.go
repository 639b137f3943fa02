// Package registration owns the lifecycle of the station's identity with
// the trixel measurement service: lookup, registration, per-type
// subscriptions, renewal on loss and graceful removal.
package registration

import (
	"context"
	goerrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/trixelnet/contributor/pkg/errors"
	"github.com/trixelnet/contributor/pkg/storage"
	"github.com/trixelnet/contributor/pkg/tsc"
	"github.com/trixelnet/contributor/sensor"
	"github.com/trixelnet/contributor/trixel"
)

// Health of the station's registration.
type Health string

const (
	HealthUnregistered Health = "unregistered"
	HealthHealthy      Health = "healthy"
	HealthExpired      Health = "expired"
)

// SubmitResult is the outcome of one batch submission. A depth directive
// or privacy violation notice does not make the submission a failure; the
// batch is accepted unless the service explicitly rejects it.
type SubmitResult struct {
	Accepted         bool
	DepthDirective   *int
	PrivacyViolation bool
	Reregistered     bool
}

// Manager maintains exactly one live registration for this station
// instance. It is mutated only by the contribution cycle; Health may be
// read concurrently by the diagnostic surface.
type Manager struct {
	client tsc.Client
	store  storage.IdentityStore
	name   string
	k      int
	types  []sensor.MeasurementType
	logger *slog.Logger

	mu       sync.Mutex
	identity *storage.StationIdentity
	health   Health
}

func NewManager(client tsc.Client, store storage.IdentityStore, name string, k int, types []sensor.MeasurementType, logger *slog.Logger) *Manager {
	return &Manager{
		client: client,
		store:  store,
		name:   name,
		k:      k,
		types:  types,
		logger: logger,
		health: HealthUnregistered,
	}
}

// Health reports the current registration health.
func (m *Manager) Health() Health {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.health
}

// StationID returns the server-issued station ID, empty when unregistered.
func (m *Manager) StationID() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.identity == nil {
		return ""
	}

	return m.identity.StationID
}

// EnsureRegistered returns the live registration, creating one when
// needed. It is idempotent: a cached healthy identity is returned as is,
// a persisted identity is revived, and only then is a fresh registration
// performed. When the operating trixel has moved since registration, the
// station record at the measurement service is updated in place.
func (m *Manager) EnsureRegistered(ctx context.Context, trixelID trixel.ID, depth int) (storage.StationIdentity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.identity == nil {
		identity, err := m.store.Load(ctx)
		switch {
		case err == nil:
			m.logger.Info("revived persisted station registration",
				slog.String("station_id", identity.StationID))
			m.identity = &identity
		case goerrors.Is(err, errors.ErrNotFound):
			// first run, register below
		default:
			m.logger.Warn("failed to load persisted registration, registering afresh",
				slog.Any("error", err))
		}
	}

	if m.identity != nil {
		if m.identity.TrixelID != trixelID || m.identity.Depth != depth {
			if err := m.updateStation(ctx, trixelID, depth); err != nil {
				if !goerrors.Is(err, errors.ErrRegistrationExpired) {
					return storage.StationIdentity{}, err
				}
				m.invalidate(ctx)
			}
		}
		if m.identity != nil {
			m.health = HealthHealthy

			return *m.identity, nil
		}
	}

	return m.register(ctx, trixelID, depth)
}

// Submit sends the batch tagged with the current trixel and station
// identity. On a RegistrationExpired response it invalidates the cached
// registration and retries registration plus submission exactly once
// within the same call before giving up for this cycle.
func (m *Manager) Submit(ctx context.Context, batch sensor.Batch, trixelID trixel.ID, depth int) (SubmitResult, error) {
	identity, err := m.EnsureRegistered(ctx, trixelID, depth)
	if err != nil {
		return SubmitResult{}, err
	}

	resp, err := m.submitOnce(ctx, identity, batch, trixelID)
	if err == nil {
		return m.result(resp, false), nil
	}
	if !goerrors.Is(err, errors.ErrRegistrationExpired) {
		return SubmitResult{}, err
	}

	m.logger.Info("registration expired, re-registering",
		slog.String("station_id", identity.StationID))

	m.mu.Lock()
	m.invalidate(ctx)
	identity, err = m.register(ctx, trixelID, depth)
	m.mu.Unlock()
	if err != nil {
		return SubmitResult{}, fmt.Errorf("re-registration failed: %w", err)
	}

	resp, err = m.submitOnce(ctx, identity, batch, trixelID)
	if err != nil {
		return SubmitResult{}, err
	}

	return m.result(resp, true), nil
}

// Deregister removes the station from the measurement service and clears
// the persisted identity.
func (m *Manager) Deregister(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.identity == nil {
		identity, err := m.store.Load(ctx)
		if err != nil {
			if goerrors.Is(err, errors.ErrNotFound) {
				return nil
			}

			return err
		}
		m.identity = &identity
	}

	if err := m.client.DeleteStation(ctx, m.identity.TMSHost, m.identity.StationID, m.identity.Token); err != nil &&
		!goerrors.Is(err, errors.ErrRegistrationExpired) && !goerrors.Is(err, errors.ErrNotFound) {
		return err
	}

	m.invalidate(ctx)

	return nil
}

// register must be called with the mutex held.
func (m *Manager) register(ctx context.Context, trixelID trixel.ID, depth int) (storage.StationIdentity, error) {
	tmsHost, err := m.client.LookupTMS(ctx, trixelID)
	if err != nil {
		m.health = HealthUnregistered

		return storage.StationIdentity{}, fmt.Errorf("measurement service lookup failed: %w", err)
	}

	resp, err := m.client.Register(ctx, tmsHost, tsc.RegisterRequest{
		Name:         m.name,
		TrixelID:     trixelID,
		KRequirement: m.k,
		Types:        m.types,
	})
	if err != nil {
		m.health = HealthUnregistered

		return storage.StationIdentity{}, fmt.Errorf("station registration failed: %w", err)
	}

	identity := storage.StationIdentity{
		StationID: resp.StationID,
		Token:     resp.Token,
		TMSHost:   tmsHost,
		TrixelID:  trixelID,
		Depth:     depth,
		Types:     m.types,
		RenewedAt: time.Now().UTC(),
	}
	if err := m.store.Save(ctx, identity); err != nil {
		m.logger.Warn("failed to persist station registration", slog.Any("error", err))
	}

	m.identity = &identity
	m.health = HealthHealthy
	m.logger.Info("registered measurement station",
		slog.String("station_id", identity.StationID),
		slog.String("tms_host", tmsHost),
		slog.Uint64("trixel_id", uint64(trixelID)))

	return identity, nil
}

// updateStation must be called with the mutex held.
func (m *Manager) updateStation(ctx context.Context, trixelID trixel.ID, depth int) error {
	err := m.client.UpdateStation(ctx, m.identity.TMSHost, m.identity.StationID, m.identity.Token, tsc.RegisterRequest{
		Name:         m.name,
		TrixelID:     trixelID,
		KRequirement: m.k,
		Types:        m.types,
	})
	if err != nil {
		return err
	}

	m.identity.TrixelID = trixelID
	m.identity.Depth = depth
	m.identity.RenewedAt = time.Now().UTC()
	if err := m.store.Save(ctx, *m.identity); err != nil {
		m.logger.Warn("failed to persist updated registration", slog.Any("error", err))
	}

	return nil
}

// invalidate must be called with the mutex held.
func (m *Manager) invalidate(ctx context.Context) {
	m.identity = nil
	m.health = HealthExpired
	if err := m.store.Clear(ctx); err != nil {
		m.logger.Warn("failed to clear persisted registration", slog.Any("error", err))
	}
}

func (m *Manager) submitOnce(ctx context.Context, identity storage.StationIdentity, batch sensor.Batch, trixelID trixel.ID) (tsc.SubmitResponse, error) {
	return m.client.Submit(ctx, identity.TMSHost, identity.Token, trixelID, tsc.SubmitRequest{
		StationID:    identity.StationID,
		BatchID:      uuid.NewString(),
		Measurements: batch,
	})
}

func (m *Manager) result(resp tsc.SubmitResponse, reregistered bool) SubmitResult {
	if !resp.Accepted {
		m.logger.Warn("measurement service did not accept the batch")
	}

	return SubmitResult{
		Accepted:         resp.Accepted,
		DepthDirective:   resp.DepthDirective,
		PrivacyViolation: resp.PrivacyViolation,
		Reregistered:     reregistered,
	}
}
