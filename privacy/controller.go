// Package privacy holds the trixel depth policy for a measurement station.
// The controller reconciles server-issued depth directives with the locally
// configured K-anonymity requirement and maximum depth.
package privacy

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/trixelnet/contributor/pkg/errors"
)

// State of the depth controller.
type State string

const (
	// StateInitial means the configured starting depth has not yet been
	// confirmed by the measurement service.
	StateInitial State = "initial"
	// StateStable means the station operates at an acknowledged depth.
	StateStable State = "stable"
	// StateTransitioning means a depth directive is queued and takes
	// effect at the start of the next contribution cycle.
	StateTransitioning State = "transitioning"
)

// Controller is the depth state machine. Directives arriving from the
// measurement service are queued and consumed only between cycles, so a
// single cycle never observes two depths. After a privacy violation the
// controller retreats to a coarser depth and refuses to descend again
// until the service confirms a submission.
type Controller struct {
	mu       sync.Mutex
	k        int
	maxDepth int
	depth    int
	lastSafe int
	state    State
	pending  []int
	holdDown bool
	logger   *slog.Logger
}

// NewController builds a controller operating at startDepth, clamped into
// [0, maxDepth]. The K requirement is a read-only input; the controller
// never mutates it.
func NewController(startDepth, maxDepth, k int, logger *slog.Logger) (*Controller, error) {
	if maxDepth < 0 {
		return nil, fmt.Errorf("%w: max depth %d", errors.ErrInvalidDepth, maxDepth)
	}
	if k < 1 {
		return nil, fmt.Errorf("k requirement must be at least 1, got %d", k)
	}
	if startDepth < 0 {
		startDepth = 0
	}
	if startDepth > maxDepth {
		startDepth = maxDepth
	}

	return &Controller{
		k:        k,
		maxDepth: maxDepth,
		depth:    startDepth,
		lastSafe: -1,
		state:    StateInitial,
		logger:   logger,
	}, nil
}

// Depth returns the current operating depth.
func (c *Controller) Depth() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.depth
}

// State returns the current controller state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

// K returns the configured K-anonymity requirement.
func (c *Controller) K() int {
	return c.k
}

// MaxDepth returns the configured depth ceiling.
func (c *Controller) MaxDepth() int {
	return c.maxDepth
}

// Enqueue records a depth directive from the measurement service. The
// directive is clamped into [0, maxDepth] and takes effect at the next
// Apply call, never mid-cycle.
func (c *Controller) Enqueue(target int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	clamped := target
	if clamped > c.maxDepth {
		clamped = c.maxDepth
		c.logger.Warn("depth directive exceeds configured maximum, clamping",
			slog.Int("directive", target),
			slog.Int("max_depth", c.maxDepth))
	}
	if clamped < 0 {
		clamped = 0
	}

	c.pending = append(c.pending, clamped)
	if clamped != c.depth {
		c.state = StateTransitioning
	}
}

// Apply consumes queued directives and returns the depth the next cycle
// must use. The latest queued directive wins. While the controller is in
// hold-down after a privacy violation, directives finer than the current
// depth are discarded.
func (c *Controller) Apply() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.pending) == 0 {
		return c.depth
	}

	target := c.pending[len(c.pending)-1]
	c.pending = c.pending[:0]

	if c.holdDown && target > c.depth {
		c.logger.Info("ignoring finer depth directive during privacy hold-down",
			slog.Int("directive", target),
			slog.Int("depth", c.depth))
		c.state = StateStable

		return c.depth
	}

	if target != c.depth {
		c.logger.Info("adopting new trixel depth",
			slog.Int("from", c.depth),
			slog.Int("to", target))
		c.depth = target
	}
	c.state = StateStable

	return c.depth
}

// Confirm records a successful server confirmation at the current depth,
// marking it as satisfying the K requirement and lifting any hold-down.
func (c *Controller) Confirm() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lastSafe = c.depth
	c.holdDown = false
	if c.state == StateInitial {
		c.state = StateStable
	}
}

// Retreat handles a privacy violation reported at the current depth: the
// anonymity set is too small, so the station must move strictly coarser.
// It falls back to the last depth known to satisfy K, or one level up
// when no depth has been confirmed yet, and returns the new operating
// depth.
func (c *Controller) Retreat() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	target := c.depth - 1
	if c.lastSafe >= 0 && c.lastSafe < c.depth {
		target = c.lastSafe
	}
	if target < 0 {
		target = 0
	}

	if target != c.depth {
		c.logger.Info("insufficient anonymity set, retreating to coarser depth",
			slog.Int("from", c.depth),
			slog.Int("to", target),
			slog.Int("k_requirement", c.k))
	}

	c.depth = target
	c.holdDown = true
	c.pending = c.pending[:0]
	c.state = StateStable

	return c.depth
}
