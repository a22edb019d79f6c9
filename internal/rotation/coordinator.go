// Package rotation orchestrates secret rotation across every registered
// secret service and sensitive record store, guarded by a process-local
// single-flight lock.
package rotation

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	apperrors "github.com/sealbox/sealbox/internal/errors"
	"github.com/sealbox/sealbox/internal/metrics"
	secretDomain "github.com/sealbox/sealbox/internal/secret/domain"
)

// ErrRotationInFlight is returned when a rotation trigger arrives while a run
// is already executing. Triggers are rejected, never queued.
var ErrRotationInFlight = fmt.Errorf("rotation already in flight: %w", apperrors.ErrConflict)

// Rotator is the slice of a secret service the coordinator drives.
type Rotator interface {
	Slot() string
	Fixed() bool
	Rotate(ctx context.Context) (*secretDomain.Secret, error)
	GetCurrent(ctx context.Context) (*secretDomain.Secret, error)
}

// Sweeper is the slice of a sensitive record store the coordinator drives.
type Sweeper interface {
	Name() string
	ReencryptAll(ctx context.Context) (int, error)
}

// Result describes a finished rotation run.
type Result struct {
	StartedAt  time.Time
	FinishedAt time.Time
	// Rewritten maps collection name to the number of records re-encrypted.
	Rewritten map[string]int
	// Errors holds one message per failed component. Component failures are
	// isolated; a run with errors still finishes the remaining components.
	Errors []string
}

// SlotStatus reports the current secret of one registered slot.
type SlotStatus struct {
	Slot            string    `json:"slot"`
	Fixed           bool      `json:"fixed"`
	SecretID        string    `json:"secretId"`
	SecretCreatedAt time.Time `json:"secretCreatedAt"`
}

// Status is the administrative view of the coordinator.
type Status struct {
	InFlight bool
	LastRun  *Result
	Slots    []SlotStatus
}

// Coordinator runs rotations: every registered non-fixed slot is rotated,
// then every registered store is swept so persisted envelopes rebind to the
// new secrets.
//
// At most one rotation runs at a time within a process; the guard is an
// atomic compare-and-set, so a second trigger is rejected immediately rather
// than queued. The flag is process-local only: it does not coordinate across
// horizontally scaled instances, which can therefore rotate concurrently.
// Backends tolerate that (secrets are never deleted, last indirection write
// wins) but the extra secrets are wasteful, so multi-instance deployments
// should route administrative triggers to a single instance.
type Coordinator struct {
	rotators []Rotator
	sweepers []Sweeper
	metrics  metrics.RotationMetrics
	logger   *slog.Logger

	inFlight atomic.Bool

	mu      sync.Mutex
	lastRun *Result
}

// NewCoordinator creates a coordinator with no registered components.
func NewCoordinator(rotationMetrics metrics.RotationMetrics, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		metrics: rotationMetrics,
		logger:  logger,
	}
}

// RegisterRotator adds a secret service to the rotation run. Registration
// happens at construction time, before the first trigger; it is not
// synchronized with running rotations.
func (c *Coordinator) RegisterRotator(r Rotator) {
	c.rotators = append(c.rotators, r)
}

// RegisterSweeper adds a record store to the rotation run.
func (c *Coordinator) RegisterSweeper(s Sweeper) {
	c.sweepers = append(c.sweepers, s)
}

// Trigger starts a rotation run in the background and returns immediately.
// The returned channel is closed when the run finishes, so callers that need
// completion (tests, CLI) can wait on it; the HTTP trigger ignores it.
// Returns ErrRotationInFlight if a run is already executing.
func (c *Coordinator) Trigger(ctx context.Context) (<-chan struct{}, error) {
	if !c.inFlight.CompareAndSwap(false, true) {
		c.logger.WarnContext(ctx, "rotation trigger rejected, run already in flight")
		c.metrics.RecordRejected(ctx)
		return nil, ErrRotationInFlight
	}

	done := make(chan struct{})

	// The run outlives the triggering request; detach from its cancellation
	// but keep its values (request ID and the like) for logging.
	runCtx := context.WithoutCancel(ctx)
	go func() {
		defer close(done)
		c.run(runCtx)
	}()

	return done, nil
}

// Run executes a rotation synchronously. Used by the scheduler and the CLI;
// the single-flight guard applies exactly as with Trigger.
func (c *Coordinator) Run(ctx context.Context) error {
	done, err := c.Trigger(ctx)
	if err != nil {
		return err
	}
	<-done
	return nil
}

// Status reports the in-flight flag, the most recent run and the current
// secret of every registered slot.
func (c *Coordinator) Status(ctx context.Context) (*Status, error) {
	slots := make([]SlotStatus, 0, len(c.rotators))
	for _, rotator := range c.rotators {
		current, err := rotator.GetCurrent(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve current secret for slot %q: %w", rotator.Slot(), err)
		}
		slots = append(slots, SlotStatus{
			Slot:            rotator.Slot(),
			Fixed:           rotator.Fixed(),
			SecretID:        current.ID,
			SecretCreatedAt: current.CreatedAt,
		})
	}

	c.mu.Lock()
	lastRun := c.lastRun
	c.mu.Unlock()

	return &Status{
		InFlight: c.inFlight.Load(),
		LastRun:  lastRun,
		Slots:    slots,
	}, nil
}

// run rotates every slot, then sweeps every store. Failures are logged per
// component and collected; they never abort the remaining components, and
// the coordinator always returns to idle so the next trigger can proceed.
func (c *Coordinator) run(ctx context.Context) {
	defer c.inFlight.Store(false)

	result := &Result{
		StartedAt: time.Now().UTC(),
		Rewritten: make(map[string]int),
	}
	c.logger.InfoContext(ctx, "rotation run started",
		"slots", len(c.rotators),
		"collections", len(c.sweepers),
	)

	for _, rotator := range c.rotators {
		slot := rotator.Slot()
		if rotator.Fixed() {
			c.logger.InfoContext(ctx, "slot is fixed, skipping rotation", "slot", slot)
			c.metrics.RecordSlotRotation(ctx, slot, "skipped")
			continue
		}

		secret, err := rotator.Rotate(ctx)
		if err != nil {
			c.logger.ErrorContext(ctx, "slot rotation failed", "slot", slot, "error", err)
			c.metrics.RecordSlotRotation(ctx, slot, "error")
			result.Errors = append(result.Errors, fmt.Sprintf("rotate %s: %v", slot, err))
			continue
		}

		c.logger.InfoContext(ctx, "slot rotated", "slot", slot, "secret_id", secret.ID)
		c.metrics.RecordSlotRotation(ctx, slot, "success")
	}

	for _, sweeper := range c.sweepers {
		collection := sweeper.Name()
		rewritten, err := sweeper.ReencryptAll(ctx)
		result.Rewritten[collection] = rewritten
		if err != nil {
			c.logger.ErrorContext(ctx, "re-encryption sweep failed",
				"collection", collection,
				"rewritten", rewritten,
				"error", err,
			)
			c.metrics.RecordSweep(ctx, collection, "error", rewritten)
			result.Errors = append(result.Errors, fmt.Sprintf("sweep %s: %v", collection, err))
			continue
		}

		c.metrics.RecordSweep(ctx, collection, "success", rewritten)
	}

	result.FinishedAt = time.Now().UTC()
	duration := result.FinishedAt.Sub(result.StartedAt)

	status := "success"
	if len(result.Errors) > 0 {
		status = "error"
	}
	c.metrics.RecordRun(ctx, duration, status)
	c.logger.InfoContext(ctx, "rotation run finished",
		"duration", duration,
		"errors", len(result.Errors),
	)

	c.mu.Lock()
	c.lastRun = result
	c.mu.Unlock()
}
