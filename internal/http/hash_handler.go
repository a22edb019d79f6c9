package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sealbox/sealbox/internal/hash"
	"github.com/sealbox/sealbox/internal/http/dto"
	"github.com/sealbox/sealbox/internal/httputil"
)

// HashHandler derives searchable keyed hashes.
type HashHandler struct {
	hasher *hash.Hasher
	logger *slog.Logger
}

// NewHashHandler creates a hash handler.
func NewHashHandler(hasher *hash.Hasher, logger *slog.Logger) *HashHandler {
	return &HashHandler{
		hasher: hasher,
		logger: logger,
	}
}

// Hash returns the deterministic keyed hash of the submitted value.
func (h *HashHandler) Hash(c *gin.Context) {
	var request dto.HashRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := request.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	digest, err := h.hasher.Hash(c.Request.Context(), request.Value)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.HashResponse{Digest: digest})
}
