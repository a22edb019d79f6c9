package dto

import (
	"encoding/json"
	"time"

	"github.com/sealbox/sealbox/internal/record"
	"github.com/sealbox/sealbox/internal/rotation"
)

// TriggerRotationResponse acknowledges a rotation trigger. The rotation runs
// in the background; this only means "started", not "complete".
type TriggerRotationResponse struct {
	Status string `json:"status"`
}

// RotationRunResponse describes the most recent rotation run.
type RotationRunResponse struct {
	StartedAt  time.Time      `json:"startedAt"`
	FinishedAt time.Time      `json:"finishedAt"`
	Rewritten  map[string]int `json:"rewritten"`
	Errors     []string       `json:"errors,omitempty"`
}

// RotationStatusResponse is the administrative rotation status view.
type RotationStatusResponse struct {
	InFlight bool                  `json:"inFlight"`
	Slots    []rotation.SlotStatus `json:"slots"`
	LastRun  *RotationRunResponse  `json:"lastRun,omitempty"`
}

// NewRotationStatusResponse maps the coordinator status to its response form.
func NewRotationStatusResponse(status *rotation.Status) *RotationStatusResponse {
	response := &RotationStatusResponse{
		InFlight: status.InFlight,
		Slots:    status.Slots,
	}
	if status.LastRun != nil {
		response.LastRun = &RotationRunResponse{
			StartedAt:  status.LastRun.StartedAt,
			FinishedAt: status.LastRun.FinishedAt,
			Rewritten:  status.LastRun.Rewritten,
			Errors:     status.LastRun.Errors,
		}
	}
	return response
}

// IssueTokenResponse carries a newly issued signed token.
type IssueTokenResponse struct {
	Token string `json:"token"`
}

// VerifyTokenResponse carries the claims of a verified token.
type VerifyTokenResponse struct {
	Subject   string    `json:"subject"`
	Issuer    string    `json:"issuer"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// HashResponse carries a derived keyed hash.
type HashResponse struct {
	Digest string `json:"digest"`
}

// RecordResponse carries a decrypted sensitive record.
type RecordResponse struct {
	ID        string          `json:"id"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// NewRecordResponse maps a decrypted record to its response form.
func NewRecordResponse(rec *record.Record[json.RawMessage]) *RecordResponse {
	return &RecordResponse{
		ID:        rec.ID,
		Payload:   rec.Payload,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}
}

// RecordListResponse wraps a collection listing.
type RecordListResponse struct {
	Records []*RecordResponse `json:"records"`
}

// NewRecordListResponse maps decrypted records to their response form.
func NewRecordListResponse(records []*record.Record[json.RawMessage]) *RecordListResponse {
	response := &RecordListResponse{Records: make([]*RecordResponse, 0, len(records))}
	for _, rec := range records {
		response.Records = append(response.Records, NewRecordResponse(rec))
	}
	return response
}
