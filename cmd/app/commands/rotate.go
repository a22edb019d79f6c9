package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/sealbox/sealbox/internal/rotation"
)

// RunRotate performs a synchronous rotation run: every rotatable slot gets a
// new secret and every sensitive collection is re-encrypted under it. Fixed
// slots keep their secret. The command blocks until the run finishes and then
// prints the resulting rotation state.
func RunRotate(
	ctx context.Context,
	coordinator *rotation.Coordinator,
	logger *slog.Logger,
	writer io.Writer,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	logger.Info("starting rotation run")

	if err := coordinator.Run(ctx); err != nil {
		return fmt.Errorf("failed to run rotation: %w", err)
	}

	status, err := coordinator.Status(ctx)
	if err != nil {
		return fmt.Errorf("failed to read rotation status: %w", err)
	}

	logger.Info("rotation run finished")
	return writeStatus(writer, format, status)
}
