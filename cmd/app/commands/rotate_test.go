package commands

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sealbox/sealbox/internal/metrics"
	"github.com/sealbox/sealbox/internal/rotation"
	"github.com/sealbox/sealbox/internal/secret/backend"
	secretDomain "github.com/sealbox/sealbox/internal/secret/domain"
	"github.com/sealbox/sealbox/internal/secret/service"
	"github.com/sealbox/sealbox/internal/testutil"
)

func newTestCoordinator(t *testing.T) (*rotation.Coordinator, *service.Service) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	encryption := service.New(
		secretDomain.SlotEncryption,
		false,
		secretDomain.AESGCM,
		testutil.NewMemoryBackend(),
		backend.NewCache(),
		logger,
	)

	coordinator := rotation.NewCoordinator(metrics.NewNoOpRotationMetrics(), logger)
	coordinator.RegisterRotator(encryption)
	return coordinator, encryption
}

func TestRunRotate(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	t.Run("success", func(t *testing.T) {
		coordinator, encryption := newTestCoordinator(t)

		before, err := encryption.GetCurrent(ctx)
		require.NoError(t, err)

		var output bytes.Buffer
		require.NoError(t, RunRotate(ctx, coordinator, logger, &output, "text"))

		after, err := encryption.GetCurrent(ctx)
		require.NoError(t, err)
		require.NotEqual(t, before.ID, after.ID)
		require.Contains(t, output.String(), secretDomain.SlotEncryption)
		require.Contains(t, output.String(), after.ID)
	})

	t.Run("invalid-format", func(t *testing.T) {
		coordinator, _ := newTestCoordinator(t)

		var output bytes.Buffer
		err := RunRotate(ctx, coordinator, logger, &output, "yaml")
		require.Error(t, err)
		require.Contains(t, err.Error(), "invalid format")
	})
}
