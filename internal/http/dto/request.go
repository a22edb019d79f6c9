// Package dto provides data transfer objects for HTTP request and response handling.
package dto

import (
	"encoding/json"

	validation "github.com/jellydator/validation"
)

// IssueTokenRequest contains the parameters for issuing a signed token.
type IssueTokenRequest struct {
	Subject string `json:"subject" binding:"required"`
}

// Validate checks if the issue token request is valid.
func (r *IssueTokenRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Subject,
			validation.Required,
			validation.Length(1, 255),
		),
	)
}

// VerifyTokenRequest contains the token to verify.
type VerifyTokenRequest struct {
	Token string `json:"token" binding:"required"`
}

// Validate checks if the verify token request is valid.
func (r *VerifyTokenRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Token, validation.Required),
	)
}

// SaveRecordRequest contains an arbitrary JSON payload to store encrypted.
type SaveRecordRequest struct {
	Payload json.RawMessage `json:"payload" binding:"required"`
}

// Validate checks if the save record request is valid.
func (r *SaveRecordRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Payload, validation.Required),
	)
}

// HashRequest contains the value to derive a searchable keyed hash for.
type HashRequest struct {
	Value string `json:"value" binding:"required"`
}

// Validate checks if the hash request is valid.
func (r *HashRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Value,
			validation.Required,
			validation.Length(1, 4096),
		),
	)
}
