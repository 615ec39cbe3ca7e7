package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aletheia-labs/graphweave/internal/data/repos"
	"github.com/aletheia-labs/graphweave/internal/engine/vocab"
	"github.com/aletheia-labs/graphweave/internal/pkg/dbctx"
	"github.com/aletheia-labs/graphweave/internal/platform/logger"
)

type VocabularyHandler struct {
	log   *logger.Logger
	svc   *vocab.Service
	store repos.VocabularyRepo
}

func NewVocabularyHandler(log *logger.Logger, svc *vocab.Service, store repos.VocabularyRepo) *VocabularyHandler {
	return &VocabularyHandler{
		log:   log.With("handler", "VocabularyHandler"),
		svc:   svc,
		store: store,
	}
}

type normalizeRequest struct {
	Type string `json:"type" binding:"required"`
}

// POST /api/vocabulary/normalize
func (h *VocabularyHandler) Normalize(c *gin.Context) {
	var req normalizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	norm, err := h.svc.Normalize(c.Request.Context(), req.Type)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, norm)
}

// GET /api/vocabulary
func (h *VocabularyHandler) List(c *gin.Context) {
	rows, err := h.store.ListActive(dbctx.Context{Ctx: c.Request.Context()})
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		if row == nil {
			continue
		}
		out = append(out, gin.H{
			"name":        row.Name,
			"category":    row.Category,
			"is_builtin":  row.IsBuiltin,
			"usage_count": row.UsageCount,
			"embed_model": row.EmbedModel,
			"created_at":  row.CreatedAt,
		})
	}
	RespondOK(c, gin.H{"types": out, "version": h.svc.Version()})
}
