package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/aletheia-labs/graphweave/internal/engine/resolver"
	"github.com/aletheia-labs/graphweave/internal/platform/logger"
)

type ResolveHandler struct {
	log *logger.Logger
	res *resolver.Resolver
}

func NewResolveHandler(log *logger.Logger, res *resolver.Resolver) *ResolveHandler {
	return &ResolveHandler{
		log: log.With("handler", "ResolveHandler"),
		res: res,
	}
}

type resolveRequest struct {
	Label       string     `json:"label" binding:"required"`
	SearchTerms []string   `json:"search_terms,omitempty"`
	PredictedID *uuid.UUID `json:"predicted_id,omitempty"`
	Quote       string     `json:"quote,omitempty"`
	SourceID    *uuid.UUID `json:"source_id,omitempty"`
	Confidence  *float64   `json:"confidence,omitempty"`
}

// POST /api/ontologies/:ontology/resolve
func (h *ResolveHandler) Resolve(c *gin.Context) {
	var req resolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	res, err := h.res.Resolve(c.Request.Context(), resolver.Candidate{
		Label:       req.Label,
		SearchTerms: req.SearchTerms,
		PredictedID: req.PredictedID,
		Quote:       req.Quote,
		SourceID:    req.SourceID,
		Confidence:  req.Confidence,
	}, c.Param("ontology"))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, res)
}
