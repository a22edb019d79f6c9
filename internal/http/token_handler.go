package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sealbox/sealbox/internal/http/dto"
	"github.com/sealbox/sealbox/internal/httputil"
	"github.com/sealbox/sealbox/internal/token"
)

// TokenHandler issues and verifies signed session tokens.
type TokenHandler struct {
	signer *token.Signer
	logger *slog.Logger
}

// NewTokenHandler creates a token handler.
func NewTokenHandler(signer *token.Signer, logger *slog.Logger) *TokenHandler {
	return &TokenHandler{
		signer: signer,
		logger: logger,
	}
}

// Issue signs a token for the requested subject with the current signing secret.
func (h *TokenHandler) Issue(c *gin.Context) {
	var request dto.IssueTokenRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := request.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	signed, err := h.signer.Sign(c.Request.Context(), request.Subject)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.IssueTokenResponse{Token: signed})
}

// Verify validates a token and returns its claims. Tokens issued before a
// signing rotation verify until their own expiry.
func (h *TokenHandler) Verify(c *gin.Context) {
	var request dto.VerifyTokenRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := request.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	claims, err := h.signer.Verify(c.Request.Context(), request.Token)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	response := dto.VerifyTokenResponse{
		Subject: claims.Subject,
		Issuer:  claims.Issuer,
	}
	if claims.ExpiresAt != nil {
		response.ExpiresAt = claims.ExpiresAt.Time
	}

	c.JSON(http.StatusOK, response)
}
