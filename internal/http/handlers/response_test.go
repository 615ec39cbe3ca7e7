package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	pkgerrors "github.com/aletheia-labs/graphweave/internal/pkg/errors"
)

func TestRespondDomainErrorStatusMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		err    error
		status int
	}{
		{pkgerrors.ErrUnknownOntology, http.StatusNotFound},
		{pkgerrors.ErrNotFound, http.StatusNotFound},
		{pkgerrors.ErrMalformedCandidate, http.StatusBadRequest},
		{pkgerrors.ErrInvalidArgument, http.StatusBadRequest},
		{pkgerrors.ErrReversedRelationshipType, http.StatusBadRequest},
		{pkgerrors.ErrEmbeddingDimsMismatch, http.StatusConflict},
		{pkgerrors.ErrVocabularyConflict, http.StatusConflict},
		{pkgerrors.ErrProviderUnavailable, http.StatusBadGateway},
		{fmt.Errorf("something else"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		rec := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(rec)
		// Wrapped errors must map the same as bare sentinels.
		RespondDomainError(c, fmt.Errorf("context: %w", tc.err))
		if rec.Code != tc.status {
			t.Fatalf("error %v mapped to %d, want %d", tc.err, rec.Code, tc.status)
		}
	}
}

func TestHealthCheck(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/healthcheck", nil)

	HealthCheck(c)
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthcheck = %d %q", rec.Code, rec.Body.String())
	}
}
