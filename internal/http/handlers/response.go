package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	pkgerrors "github.com/aletheia-labs/graphweave/internal/pkg/errors"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// RespondDomainError maps sentinel errors onto HTTP statuses so handlers
// never switch on error strings.
func RespondDomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, pkgerrors.ErrUnknownOntology):
		RespondError(c, http.StatusNotFound, "unknown_ontology", err)
	case errors.Is(err, pkgerrors.ErrNotFound):
		RespondError(c, http.StatusNotFound, "not_found", err)
	case errors.Is(err, pkgerrors.ErrMalformedCandidate),
		errors.Is(err, pkgerrors.ErrInvalidArgument),
		errors.Is(err, pkgerrors.ErrReversedRelationshipType):
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
	case errors.Is(err, pkgerrors.ErrEmbeddingDimsMismatch),
		errors.Is(err, pkgerrors.ErrVocabularyConflict):
		RespondError(c, http.StatusConflict, "conflict", err)
	case errors.Is(err, pkgerrors.ErrProviderUnavailable):
		RespondError(c, http.StatusBadGateway, "provider_unavailable", err)
	default:
		RespondError(c, http.StatusInternalServerError, "internal", err)
	}
}
