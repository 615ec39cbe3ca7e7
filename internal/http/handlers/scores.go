package handlers

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/aletheia-labs/graphweave/internal/engine/polarity"
	pkgerrors "github.com/aletheia-labs/graphweave/internal/pkg/errors"
	"github.com/aletheia-labs/graphweave/internal/platform/logger"
)

type ScoreHandler struct {
	log    *logger.Logger
	engine *polarity.Engine
}

func NewScoreHandler(log *logger.Logger, engine *polarity.Engine) *ScoreHandler {
	return &ScoreHandler{
		log:    log.With("handler", "ScoreHandler"),
		engine: engine,
	}
}

// GET /api/concepts/:id/grounding
// Custom axis pairs come in as repeated "pair" query params, "POSITIVE:NEGATIVE".
func (h *ScoreHandler) Grounding(c *gin.Context) {
	conceptID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondDomainError(c, fmt.Errorf("bad concept id: %w", pkgerrors.ErrInvalidArgument))
		return
	}

	pairs, err := parsePairs(c.QueryArray("pair"))
	if err != nil {
		RespondDomainError(c, err)
		return
	}

	score, err := h.engine.Grounding(c.Request.Context(), conceptID, pairs)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"concept_id": conceptID, "grounding": score})
}

// GET /api/concepts/:id/diversity
func (h *ScoreHandler) Diversity(c *gin.Context) {
	conceptID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondDomainError(c, fmt.Errorf("bad concept id: %w", pkgerrors.ErrInvalidArgument))
		return
	}

	score, err := h.engine.Diversity(c.Request.Context(), conceptID, intQuery(c, "max_hops"), intQuery(c, "limit"))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	RespondOK(c, gin.H{"concept_id": conceptID, "diversity": score})
}

func parsePairs(raw []string) ([]polarity.SeedPair, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	pairs := make([]polarity.SeedPair, 0, len(raw))
	for _, r := range raw {
		pos, neg, ok := strings.Cut(strings.TrimSpace(r), ":")
		if !ok || pos == "" || neg == "" {
			return nil, fmt.Errorf("pair %q must be POSITIVE:NEGATIVE: %w", r, pkgerrors.ErrInvalidArgument)
		}
		pairs = append(pairs, polarity.SeedPair{Positive: pos, Negative: neg})
	}
	return pairs, nil
}

func intQuery(c *gin.Context, key string) int {
	v := c.Query(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
