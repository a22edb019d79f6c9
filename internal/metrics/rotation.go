package metrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// RotationMetrics records rotation lifecycle events: per-slot rotations,
// per-collection re-encryption sweeps, and whole-run durations.
type RotationMetrics interface {
	// RecordSlotRotation records a rotation attempt for one slot.
	// Status examples: "success", "error", "skipped".
	RecordSlotRotation(ctx context.Context, slot, status string)

	// RecordSweep records a re-encryption sweep over one collection,
	// including how many records were rewritten.
	RecordSweep(ctx context.Context, collection, status string, rewritten int)

	// RecordRun records a completed rotation run with its total duration.
	RecordRun(ctx context.Context, duration time.Duration, status string)

	// RecordRejected records a rotation trigger rejected because a run
	// was already in flight.
	RecordRejected(ctx context.Context)
}

type rotationMetrics struct {
	slotCounter     metric.Int64Counter
	sweepCounter    metric.Int64Counter
	rewrittenTotal  metric.Int64Counter
	runDuration     metric.Float64Histogram
	rejectedCounter metric.Int64Counter
}

// NewRotationMetrics creates a RotationMetrics implementation using the
// provided meter provider. The namespace prefixes all metric names.
func NewRotationMetrics(meterProvider metric.MeterProvider, namespace string) (RotationMetrics, error) {
	meter := meterProvider.Meter(namespace)

	slotCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_slot_rotations_total", namespace),
		metric.WithDescription("Total number of per-slot rotation attempts"),
		metric.WithUnit("{rotation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create slot rotation counter: %w", err)
	}

	sweepCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_reencryption_sweeps_total", namespace),
		metric.WithDescription("Total number of re-encryption sweeps"),
		metric.WithUnit("{sweep}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create sweep counter: %w", err)
	}

	rewrittenTotal, err := meter.Int64Counter(
		fmt.Sprintf("%s_reencrypted_records_total", namespace),
		metric.WithDescription("Total number of records rewritten by re-encryption sweeps"),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create rewritten records counter: %w", err)
	}

	runDuration, err := meter.Float64Histogram(
		fmt.Sprintf("%s_rotation_run_duration_seconds", namespace),
		metric.WithDescription("Duration of full rotation runs in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create run duration histogram: %w", err)
	}

	rejectedCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_rotation_rejected_total", namespace),
		metric.WithDescription("Total number of rotation triggers rejected while a run was in flight"),
		metric.WithUnit("{trigger}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create rejected trigger counter: %w", err)
	}

	return &rotationMetrics{
		slotCounter:     slotCounter,
		sweepCounter:    sweepCounter,
		rewrittenTotal:  rewrittenTotal,
		runDuration:     runDuration,
		rejectedCounter: rejectedCounter,
	}, nil
}

func (r *rotationMetrics) RecordSlotRotation(ctx context.Context, slot, status string) {
	r.slotCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("slot", slot),
			attribute.String("status", status),
		),
	)
}

func (r *rotationMetrics) RecordSweep(ctx context.Context, collection, status string, rewritten int) {
	attrs := metric.WithAttributes(
		attribute.String("collection", collection),
		attribute.String("status", status),
	)
	r.sweepCounter.Add(ctx, 1, attrs)
	r.rewrittenTotal.Add(ctx, int64(rewritten), attrs)
}

func (r *rotationMetrics) RecordRun(ctx context.Context, duration time.Duration, status string) {
	r.runDuration.Record(ctx, duration.Seconds(),
		metric.WithAttributes(attribute.String("status", status)),
	)
}

func (r *rotationMetrics) RecordRejected(ctx context.Context) {
	r.rejectedCounter.Add(ctx, 1)
}

// NoOpRotationMetrics is used when metrics are disabled.
type NoOpRotationMetrics struct{}

// NewNoOpRotationMetrics creates a no-op RotationMetrics implementation.
func NewNoOpRotationMetrics() RotationMetrics {
	return &NoOpRotationMetrics{}
}

func (n *NoOpRotationMetrics) RecordSlotRotation(context.Context, string, string) {}

func (n *NoOpRotationMetrics) RecordSweep(context.Context, string, string, int) {}

func (n *NoOpRotationMetrics) RecordRun(context.Context, time.Duration, string) {}

func (n *NoOpRotationMetrics) RecordRejected(context.Context) {}
