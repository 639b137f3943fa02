package station

import (
	"time"

	"github.com/trixelnet/contributor/privacy"
	"github.com/trixelnet/contributor/registration"
	"github.com/trixelnet/contributor/trixel"
)

// Outcome classifies the last contribution cycle.
type Outcome string

const (
	// OutcomePending means no cycle has completed yet.
	OutcomePending Outcome = "pending"
	// OutcomeSuccess means the batch was submitted and accepted.
	OutcomeSuccess Outcome = "success"
	// OutcomePartial means the batch was accepted but one or more
	// sensors were excluded from it.
	OutcomePartial Outcome = "partial"
	// OutcomeSkipped means no data was available, so no network call
	// was made.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeFailed means the submission could not be completed; the
	// next scheduled tick retries with fresh readings.
	OutcomeFailed Outcome = "failed"
)

// Status is the diagnostic snapshot exposed to the host. It is refreshed
// after every cycle attempt, success or failure, and is read-only from
// outside the station.
type Status struct {
	InstanceID          string              `json:"instance_id"`
	LastCycle           time.Time           `json:"last_cycle,omitempty"`
	Outcome             Outcome             `json:"outcome"`
	Message             string              `json:"message,omitempty"`
	Depth               int                 `json:"depth"`
	TrixelID            trixel.ID           `json:"trixel_id,omitempty"`
	ControllerState     privacy.State       `json:"controller_state"`
	RegistrationHealth  registration.Health `json:"registration_health"`
	StationID           string              `json:"station_id,omitempty"`
	ConsecutiveFailures int                 `json:"consecutive_failures"`
}
