package metrics

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRotationMetrics(t *testing.T) {
	provider, err := NewProvider("test_app")
	require.NoError(t, err)

	rm, err := NewRotationMetrics(provider.MeterProvider(), "test_app")
	require.NoError(t, err)
	assert.NotNil(t, rm)
}

func TestRotationMetrics_Record(t *testing.T) {
	provider, err := NewProvider("test_app")
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, provider.Shutdown(context.Background()))
	}()

	rm, err := NewRotationMetrics(provider.MeterProvider(), "test_app")
	require.NoError(t, err)

	ctx := context.Background()
	rm.RecordSlotRotation(ctx, "encryption", "success")
	rm.RecordSlotRotation(ctx, "hash", "skipped")
	rm.RecordSweep(ctx, "payment_details", "success", 3)
	rm.RecordRun(ctx, 250*time.Millisecond, "success")
	rm.RecordRejected(ctx)

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest("GET", "/metrics", nil)
	provider.Handler().ServeHTTP(recorder, request)

	body, err := io.ReadAll(recorder.Body)
	require.NoError(t, err)
	output := string(body)

	assert.Contains(t, output, "test_app_slot_rotations_total")
	assert.Contains(t, output, "test_app_reencryption_sweeps_total")
	assert.Contains(t, output, "test_app_reencrypted_records_total")
	assert.Contains(t, output, "test_app_rotation_run_duration_seconds")
	assert.Contains(t, output, "test_app_rotation_rejected_total")
}

func TestNoOpRotationMetrics(t *testing.T) {
	rm := NewNoOpRotationMetrics()

	ctx := context.Background()
	rm.RecordSlotRotation(ctx, "encryption", "success")
	rm.RecordSweep(ctx, "payment_details", "error", 0)
	rm.RecordRun(ctx, time.Second, "error")
	rm.RecordRejected(ctx)
}
