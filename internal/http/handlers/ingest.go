package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aletheia-labs/graphweave/internal/engine/ingest"
	"github.com/aletheia-labs/graphweave/internal/platform/logger"
)

type IngestHandler struct {
	log *logger.Logger
	svc *ingest.Service
}

func NewIngestHandler(log *logger.Logger, svc *ingest.Service) *IngestHandler {
	return &IngestHandler{
		log: log.With("handler", "IngestHandler"),
		svc: svc,
	}
}

// POST /api/ingest/:ontology
func (h *IngestHandler) Ingest(c *gin.Context) {
	var batch ingest.Batch
	if err := c.ShouldBindJSON(&batch); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	report, err := h.svc.Ingest(c.Request.Context(), c.Param("ontology"), batch)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, report)
}
