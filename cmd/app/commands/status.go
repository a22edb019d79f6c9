package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/sealbox/sealbox/internal/http/dto"
	"github.com/sealbox/sealbox/internal/rotation"
)

// RunStatus prints the rotation state of every registered slot plus the
// outcome of the most recent run, if any.
func RunStatus(
	ctx context.Context,
	coordinator *rotation.Coordinator,
	logger *slog.Logger,
	writer io.Writer,
	format string,
) error {
	if err := validateFormat(format); err != nil {
		return err
	}

	status, err := coordinator.Status(ctx)
	if err != nil {
		return fmt.Errorf("failed to read rotation status: %w", err)
	}

	return writeStatus(writer, format, status)
}

// writeStatus renders the rotation status in the requested format. The JSON
// form matches the administrative API response.
func writeStatus(writer io.Writer, format string, status *rotation.Status) error {
	if format == "json" {
		encoder := json.NewEncoder(writer)
		encoder.SetIndent("", "  ")
		return encoder.Encode(dto.NewRotationStatusResponse(status))
	}

	fmt.Fprintf(writer, "in flight: %t\n", status.InFlight)
	for _, slot := range status.Slots {
		fmt.Fprintf(writer, "slot=%s fixed=%t secret_id=%s created_at=%s\n",
			slot.Slot,
			slot.Fixed,
			slot.SecretID,
			slot.SecretCreatedAt.Format(time.RFC3339),
		)
	}

	if status.LastRun == nil {
		fmt.Fprintln(writer, "no rotation run recorded")
		return nil
	}

	fmt.Fprintf(writer, "last run: started=%s finished=%s\n",
		status.LastRun.StartedAt.Format(time.RFC3339),
		status.LastRun.FinishedAt.Format(time.RFC3339),
	)
	for collection, count := range status.LastRun.Rewritten {
		fmt.Fprintf(writer, "rewritten: collection=%s records=%d\n", collection, count)
	}
	for _, message := range status.LastRun.Errors {
		fmt.Fprintf(writer, "error: %s\n", message)
	}

	return nil
}
