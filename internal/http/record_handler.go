package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/sealbox/sealbox/internal/errors"
	"github.com/sealbox/sealbox/internal/http/dto"
	"github.com/sealbox/sealbox/internal/httputil"
	"github.com/sealbox/sealbox/internal/record"
)

// RecordHandler serves the configured sensitive record collections. Payloads
// are opaque JSON documents; they are encrypted before persistence and only
// ever decrypted on the way out.
type RecordHandler struct {
	stores map[string]*record.Store[json.RawMessage]
	logger *slog.Logger
}

// NewRecordHandler creates a record handler serving the given stores, indexed
// by collection name.
func NewRecordHandler(stores []*record.Store[json.RawMessage], logger *slog.Logger) *RecordHandler {
	indexed := make(map[string]*record.Store[json.RawMessage], len(stores))
	for _, store := range stores {
		indexed[store.Name()] = store
	}
	return &RecordHandler{
		stores: indexed,
		logger: logger,
	}
}

// Save stores a record in the collection, encrypting the payload with the
// current encryption secret.
func (h *RecordHandler) Save(c *gin.Context) {
	store, ok := h.store(c)
	if !ok {
		return
	}

	var request dto.SaveRecordRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := request.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	saved, err := store.Save(c.Request.Context(), &record.Record[json.RawMessage]{
		Payload: request.Payload,
	})
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.NewRecordResponse(saved))
}

// Get fetches a record by ID and returns it decrypted.
func (h *RecordHandler) Get(c *gin.Context) {
	store, ok := h.store(c)
	if !ok {
		return
	}

	rec, err := store.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.NewRecordResponse(rec))
}

// List returns every record in the collection, decrypted.
func (h *RecordHandler) List(c *gin.Context) {
	store, ok := h.store(c)
	if !ok {
		return
	}

	records, err := store.FindAll(c.Request.Context())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.NewRecordListResponse(records))
}

func (h *RecordHandler) store(c *gin.Context) (*record.Store[json.RawMessage], bool) {
	name := c.Param("collection")
	store, exists := h.stores[name]
	if !exists {
		httputil.HandleErrorGin(
			c,
			fmt.Errorf("unknown collection %q: %w", name, apperrors.ErrNotFound),
			h.logger,
		)
		return nil, false
	}
	return store, true
}
