// Package station orchestrates contribution cycles: reading sensors,
// adapting them onto network measurement types, resolving the operating
// trixel under the privacy policy and submitting batches to the
// measurement service.
package station

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/trixelnet/contributor/privacy"
	"github.com/trixelnet/contributor/registration"
	"github.com/trixelnet/contributor/sensor"
	"github.com/trixelnet/contributor/trixel"
)

// failureEscalationThreshold is the number of consecutive failed cycles
// after which failures are escalated to warnings.
const failureEscalationThreshold = 5

// Home is the station's fixed location, set at configuration time.
type Home struct {
	Latitude  float64
	Longitude float64
}

// Source supplies the latest readings for the requested entities.
type Source interface {
	Readings(ctx context.Context, entityIDs []string) ([]sensor.Reading, error)
}

// Service is the contribution station core.
type Service interface {
	// RunCycle executes one contribution cycle and refreshes the
	// diagnostic snapshot regardless of the outcome.
	RunCycle(ctx context.Context) error

	// Status returns the diagnostic snapshot of the last cycle attempt.
	Status(ctx context.Context) (Status, error)

	// Deregister removes the station from the network and clears its
	// persisted identity.
	Deregister(ctx context.Context) error
}

type service struct {
	instanceID string
	home       Home
	selections map[sensor.MeasurementType][]string
	source     Source
	controller *privacy.Controller
	registry   *registration.Manager
	logger     *slog.Logger
	now        func() time.Time

	mu           sync.Mutex
	snapshot     Status
	lastReported map[string]time.Time
	failures     int
}

func NewService(instanceID string, home Home, selections map[sensor.MeasurementType][]string, source Source, controller *privacy.Controller, registry *registration.Manager, logger *slog.Logger) Service {
	return &service{
		instanceID: instanceID,
		home:       home,
		selections: selections,
		source:     source,
		controller: controller,
		registry:   registry,
		logger:     logger,
		now:        time.Now,
		snapshot: Status{
			InstanceID: instanceID,
			Outcome:    OutcomePending,
		},
		lastReported: make(map[string]time.Time),
	}
}

func (svc *service) RunCycle(ctx context.Context) error {
	depth := svc.controller.Apply()

	readings, stamps, err := svc.collectReadings(ctx)
	if err != nil {
		svc.recordFailure(depth, 0, fmt.Sprintf("reading sensors failed: %s", err))

		return err
	}

	batch, skipped := sensor.Aggregate(readings, svc.now().UTC())
	for _, s := range skipped {
		svc.logger.Debug("sensor excluded from batch",
			slog.String("entity_id", s.EntityID),
			slog.Any("error", s.Err))
	}

	if len(batch) == 0 {
		svc.recordSkip(depth, "no data")

		return nil
	}

	trixelID, err := trixel.Locate(svc.home.Latitude, svc.home.Longitude, depth)
	if err != nil {
		svc.recordFailure(depth, 0, fmt.Sprintf("trixel lookup failed: %s", err))

		return err
	}

	result, err := svc.registry.Submit(ctx, batch, trixelID, depth)
	if err != nil {
		svc.recordFailure(depth, trixelID, err.Error())

		return err
	}

	if result.DepthDirective != nil {
		svc.controller.Enqueue(*result.DepthDirective)
	}
	// Only an accepted batch counts as a server confirmation; a rejection
	// must not lift the hold-down or mark the current depth as safe.
	switch {
	case result.PrivacyViolation:
		svc.controller.Retreat()
	case result.Accepted:
		svc.controller.Confirm()
	}

	if !result.Accepted {
		svc.recordFailure(depth, trixelID, "batch rejected by measurement service")

		return fmt.Errorf("batch rejected by measurement service")
	}

	// Only a submitted batch consumes the readings; a failed cycle keeps
	// them eligible so values are never lost, while unchanged timestamps
	// are never double-counted.
	svc.commitTimestamps(stamps)

	outcome := OutcomeSuccess
	if len(skipped) > 0 {
		outcome = OutcomePartial
	}
	svc.recordSuccess(depth, trixelID, outcome, len(batch))

	return nil
}

func (svc *service) Status(_ context.Context) (Status, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	snapshot := svc.snapshot
	snapshot.Depth = svc.controller.Depth()
	snapshot.ControllerState = svc.controller.State()
	snapshot.RegistrationHealth = svc.registry.Health()
	snapshot.StationID = svc.registry.StationID()

	return snapshot, nil
}

func (svc *service) Deregister(ctx context.Context) error {
	if err := svc.registry.Deregister(ctx); err != nil {
		return err
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()
	svc.snapshot.Outcome = OutcomePending
	svc.snapshot.Message = "deregistered"

	return nil
}

// collectReadings gathers the configured entities' states, drops readings
// whose device class does not match their selection and readings already
// contributed in a previous cycle. The returned stamps are committed only
// after a successful submission.
func (svc *service) collectReadings(ctx context.Context) ([]sensor.Reading, map[string]time.Time, error) {
	var fresh []sensor.Reading
	stamps := make(map[string]time.Time)

	for mt, entities := range svc.selections {
		if len(entities) == 0 {
			continue
		}

		readings, err := svc.source.Readings(ctx, entities)
		if err != nil {
			return nil, nil, err
		}

		for _, r := range readings {
			if expected, ok := sensor.TypeForDeviceClass(r.DeviceClass); ok && expected != mt {
				svc.logger.Warn("entity cannot contribute with wrong device class",
					slog.String("entity_id", r.EntityID),
					slog.String("device_class", string(r.DeviceClass)))

				continue
			}
			if !r.LastReported.IsZero() && r.LastReported.Equal(svc.lastStamp(r.EntityID)) {
				svc.logger.Debug("skipping already contributed reading",
					slog.String("entity_id", r.EntityID))

				continue
			}

			fresh = append(fresh, r)
			stamps[r.EntityID] = r.LastReported
		}
	}

	return fresh, stamps, nil
}

func (svc *service) lastStamp(entityID string) time.Time {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	return svc.lastReported[entityID]
}

func (svc *service) commitTimestamps(stamps map[string]time.Time) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	for entityID, ts := range stamps {
		svc.lastReported[entityID] = ts
	}
}

func (svc *service) recordSuccess(depth int, trixelID trixel.ID, outcome Outcome, measurements int) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	svc.failures = 0
	svc.snapshot.LastCycle = svc.now().UTC()
	svc.snapshot.Outcome = outcome
	svc.snapshot.Message = ""
	svc.snapshot.Depth = depth
	svc.snapshot.TrixelID = trixelID
	svc.snapshot.ConsecutiveFailures = 0

	svc.logger.Info("contribution cycle completed",
		slog.String("outcome", string(outcome)),
		slog.Int("measurement_types", measurements),
		slog.Uint64("trixel_id", uint64(trixelID)),
		slog.Int("depth", depth))
}

func (svc *service) recordSkip(depth int, message string) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	svc.snapshot.LastCycle = svc.now().UTC()
	svc.snapshot.Outcome = OutcomeSkipped
	svc.snapshot.Message = message
	svc.snapshot.Depth = depth
	svc.snapshot.ConsecutiveFailures = svc.failures

	svc.logger.Info("contribution cycle skipped", slog.String("reason", message))
}

func (svc *service) recordFailure(depth int, trixelID trixel.ID, message string) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	svc.failures++
	svc.snapshot.LastCycle = svc.now().UTC()
	svc.snapshot.Outcome = OutcomeFailed
	svc.snapshot.Message = message
	svc.snapshot.Depth = depth
	svc.snapshot.TrixelID = trixelID
	svc.snapshot.ConsecutiveFailures = svc.failures

	if svc.failures >= failureEscalationThreshold {
		svc.logger.Warn("contribution cycles failing persistently",
			slog.Int("consecutive_failures", svc.failures),
			slog.String("last_error", message))

		return
	}
	svc.logger.Info("contribution cycle failed, retrying at next tick",
		slog.String("error", message))
}
