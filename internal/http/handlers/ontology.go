package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/aletheia-labs/graphweave/internal/data/repos"
	types "github.com/aletheia-labs/graphweave/internal/domain"
	"github.com/aletheia-labs/graphweave/internal/pkg/dbctx"
	pkgerrors "github.com/aletheia-labs/graphweave/internal/pkg/errors"
	"github.com/aletheia-labs/graphweave/internal/platform/logger"
)

type OntologyHandler struct {
	log   *logger.Logger
	ontos repos.OntologyRepo
}

func NewOntologyHandler(log *logger.Logger, ontos repos.OntologyRepo) *OntologyHandler {
	return &OntologyHandler{
		log:   log.With("handler", "OntologyHandler"),
		ontos: ontos,
	}
}

type createOntologyRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description,omitempty"`
}

// POST /api/ontologies
func (h *OntologyHandler) Create(c *gin.Context) {
	var req createOntologyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		RespondDomainError(c, fmt.Errorf("ontology name required: %w", pkgerrors.ErrInvalidArgument))
		return
	}

	existing, err := h.ontos.GetByName(dbctx.Context{Ctx: c.Request.Context()}, name)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	if existing != nil {
		RespondOK(c, existing)
		return
	}

	row, err := h.ontos.Create(dbctx.Context{Ctx: c.Request.Context()}, &types.Ontology{
		ID:          uuid.New(),
		Name:        name,
		Description: strings.TrimSpace(req.Description),
	})
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, row)
}

// GET /api/ontologies
func (h *OntologyHandler) List(c *gin.Context) {
	rows, err := h.ontos.List(dbctx.Context{Ctx: c.Request.Context()})
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"ontologies": rows})
}
