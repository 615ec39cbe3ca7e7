package polarity

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	types "github.com/aletheia-labs/graphweave/internal/domain"
	"github.com/aletheia-labs/graphweave/internal/pkg/dbctx"
	"github.com/aletheia-labs/graphweave/internal/pkg/vecmath"
	"github.com/aletheia-labs/graphweave/internal/platform/envutil"
	"github.com/aletheia-labs/graphweave/internal/platform/logger"
	"github.com/aletheia-labs/graphweave/internal/platform/redisdb"
)

type RelationshipStore interface {
	GetTouching(dbc dbctx.Context, conceptID uuid.UUID) ([]*types.Relationship, error)
	GetTouchingAny(dbc dbctx.Context, conceptIDs []uuid.UUID) ([]*types.Relationship, error)
}

type ConceptStore interface {
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Concept, error)
}

// NeighborhoodExpander walks the graph mirror when one is wired; the engine
// falls back to BFS over the relationship table without it.
type NeighborhoodExpander interface {
	NeighborhoodIDs(ctx context.Context, conceptID uuid.UUID, maxHops, limit int) ([]uuid.UUID, error)
}

// ScoreCache holds versioned score artifacts; a nil cache means every call
// computes fresh.
type ScoreCache interface {
	GetScore(ctx context.Context, kind, conceptID string, vocabVersion int64) (*redisdb.ScoreArtifact, error)
	PutScore(ctx context.Context, art redisdb.ScoreArtifact)
}

type Config struct {
	// DiversityMaxHops bounds the undirected neighborhood walk.
	DiversityMaxHops int
	// DiversityLimit caps how many neighbors feed the pairwise similarity.
	DiversityLimit int
}

func ConfigFromEnv(log *logger.Logger) Config {
	return Config{
		DiversityMaxHops: envutil.GetEnvAsInt("DIVERSITY_MAX_HOPS", 2, log),
		DiversityLimit:   envutil.GetEnvAsInt("DIVERSITY_NEIGHBOR_LIMIT", 50, log),
	}
}

// Engine computes grounding and diversity, always from current graph and
// vocabulary state. Both stores evolve continuously, so no score computed
// here is ever treated as durable; cached copies carry the vocabulary
// version they were computed against.
type Engine struct {
	log        *logger.Logger
	vocab      VocabularyLookup
	rels       RelationshipStore
	concepts   ConceptStore
	graph      NeighborhoodExpander
	cache      ScoreCache
	embedModel string
	pairs      []SeedPair
	cfg        Config
}

func NewEngine(log *logger.Logger, vocab VocabularyLookup, rels RelationshipStore, concepts ConceptStore, graph NeighborhoodExpander, cache ScoreCache, embedModel string, pairs []SeedPair, cfg Config) *Engine {
	if len(pairs) == 0 {
		pairs = DefaultSeedPairs()
	}
	return &Engine{
		log:        log.With("service", "PolarityEngine"),
		vocab:      vocab,
		rels:       rels,
		concepts:   concepts,
		graph:      graph,
		cache:      cache,
		embedModel: embedModel,
		pairs:      pairs,
		cfg:        cfg,
	}
}

// Grounding is the confidence-weighted mean of the polarity-axis strengths
// of all edges touching the concept. Only direct edges count; nothing is
// propagated across hops.
func (e *Engine) Grounding(ctx context.Context, conceptID uuid.UUID, pairs []SeedPair) (float64, error) {
	custom := len(pairs) > 0
	if !custom {
		pairs = e.pairs
	}

	version := e.vocab.Version()
	if !custom && e.cache != nil {
		if art, _ := e.cache.GetScore(ctx, "grounding", conceptID.String(), version); art != nil && art.EmbedModel == e.embedModel {
			return art.Value, nil
		}
	}

	axis, err := BuildAxis(e.vocab, pairs)
	if err != nil {
		return 0, err
	}

	edges, err := e.rels.GetTouching(dbctx.Context{Ctx: ctx}, conceptID)
	if err != nil {
		return 0, fmt.Errorf("load edges for grounding: %w", err)
	}

	var weighted, weights float64
	for _, edge := range edges {
		if edge == nil {
			continue
		}
		emb, ok := e.vocab.Embedding(edge.TypeName)
		if !ok {
			continue
		}
		w := edge.Confidence
		if w <= 0 {
			w = 1
		}
		weighted += w * EdgeStrength(axis, emb)
		weights += w
	}
	if weights == 0 {
		return 0, nil
	}
	score := weighted / weights

	if !custom && e.cache != nil {
		e.cache.PutScore(ctx, redisdb.ScoreArtifact{
			ConceptID:    conceptID.String(),
			Kind:         "grounding",
			Value:        score,
			VocabVersion: version,
			EmbedModel:   e.embedModel,
			ComputedAt:   time.Now().UTC(),
		})
	}
	return score, nil
}

// TypeStrength projects one vocabulary type onto the default polarity axis.
// Ingestion annotates new edges with this at write time; the stored value is
// advisory and grounding always recomputes against current state.
func (e *Engine) TypeStrength(typeName string) (float64, bool) {
	emb, ok := e.vocab.Embedding(typeName)
	if !ok {
		return 0, false
	}
	axis, err := BuildAxis(e.vocab, e.pairs)
	if err != nil {
		return 0, false
	}
	return EdgeStrength(axis, emb), true
}

// Diversity is 1 − mean pairwise cosine similarity across the concept's
// undirected neighborhood. Fewer than two neighbors yields 0: there is no
// independent support to measure.
func (e *Engine) Diversity(ctx context.Context, conceptID uuid.UUID, maxHops, limit int) (float64, error) {
	if maxHops <= 0 {
		maxHops = e.cfg.DiversityMaxHops
	}
	if limit <= 0 {
		limit = e.cfg.DiversityLimit
	}
	defaults := maxHops == e.cfg.DiversityMaxHops && limit == e.cfg.DiversityLimit

	version := e.vocab.Version()
	if defaults && e.cache != nil {
		if art, _ := e.cache.GetScore(ctx, "diversity", conceptID.String(), version); art != nil && art.EmbedModel == e.embedModel {
			return art.Value, nil
		}
	}

	ids, err := e.neighborhood(ctx, conceptID, maxHops, limit)
	if err != nil {
		return 0, err
	}
	if len(ids) < 2 {
		return 0, nil
	}

	rows, err := e.concepts.GetByIDs(dbctx.Context{Ctx: ctx}, ids)
	if err != nil {
		return 0, fmt.Errorf("load neighborhood concepts: %w", err)
	}
	vecs := make([][]float32, 0, len(rows))
	for _, c := range rows {
		if c == nil {
			continue
		}
		if vec, ok := types.DecodeEmbedding(c.Embedding); ok {
			vecs = append(vecs, vec)
		}
	}
	if len(vecs) < 2 {
		return 0, nil
	}

	var sum float64
	var n int
	for i := 0; i < len(vecs); i++ {
		for j := i + 1; j < len(vecs); j++ {
			sum += vecmath.Cosine(vecs[i], vecs[j])
			n++
		}
	}
	score := 1 - sum/float64(n)

	if defaults && e.cache != nil {
		e.cache.PutScore(ctx, redisdb.ScoreArtifact{
			ConceptID:    conceptID.String(),
			Kind:         "diversity",
			Value:        score,
			VocabVersion: version,
			EmbedModel:   e.embedModel,
			ComputedAt:   time.Now().UTC(),
		})
	}
	return score, nil
}

// neighborhood prefers the graph mirror and falls back to BFS over the
// relationship table. Traversal is undirected: inbound and outbound edges
// both contribute.
func (e *Engine) neighborhood(ctx context.Context, conceptID uuid.UUID, maxHops, limit int) ([]uuid.UUID, error) {
	if e.graph != nil {
		ids, err := e.graph.NeighborhoodIDs(ctx, conceptID, maxHops, limit)
		if err == nil {
			return ids, nil
		}
		e.log.Warn("graph neighborhood query failed, falling back to relational BFS", "error", err)
	}

	seen := map[uuid.UUID]bool{conceptID: true}
	frontier := []uuid.UUID{conceptID}
	out := make([]uuid.UUID, 0, limit)

	for hop := 0; hop < maxHops && len(frontier) > 0 && len(out) < limit; hop++ {
		edges, err := e.rels.GetTouchingAny(dbctx.Context{Ctx: ctx}, frontier)
		if err != nil {
			return nil, fmt.Errorf("expand neighborhood: %w", err)
		}
		next := make([]uuid.UUID, 0, len(edges))
		for _, edge := range edges {
			if edge == nil {
				continue
			}
			for _, id := range []uuid.UUID{edge.FromConceptID, edge.ToConceptID} {
				if id == uuid.Nil || seen[id] {
					continue
				}
				seen[id] = true
				next = append(next, id)
				out = append(out, id)
				if len(out) >= limit {
					break
				}
			}
			if len(out) >= limit {
				break
			}
		}
		frontier = next
	}
	return out, nil
}
