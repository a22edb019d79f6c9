package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sealbox/sealbox/internal/http/dto"
	"github.com/sealbox/sealbox/internal/httputil"
	"github.com/sealbox/sealbox/internal/rotation"
)

// RotationHandler exposes the administrative rotation surface.
type RotationHandler struct {
	coordinator *rotation.Coordinator
	logger      *slog.Logger
}

// NewRotationHandler creates a rotation handler.
func NewRotationHandler(coordinator *rotation.Coordinator, logger *slog.Logger) *RotationHandler {
	return &RotationHandler{
		coordinator: coordinator,
		logger:      logger,
	}
}

// Trigger starts a rotation in the background and returns immediately with
// 202 Accepted. A trigger while a rotation is already in flight is rejected
// with 409 Conflict.
func (h *RotationHandler) Trigger(c *gin.Context) {
	if _, err := h.coordinator.Trigger(c.Request.Context()); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusAccepted, dto.TriggerRotationResponse{Status: "rotation_started"})
}

// Status reports the in-flight flag, the most recent run and the current
// secret of every slot.
func (h *RotationHandler) Status(c *gin.Context) {
	status, err := h.coordinator.Status(c.Request.Context())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.NewRotationStatusResponse(status))
}
