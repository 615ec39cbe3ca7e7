package resolver

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	types "github.com/aletheia-labs/graphweave/internal/domain"
	"github.com/aletheia-labs/graphweave/internal/pkg/dbctx"
	pkgerrors "github.com/aletheia-labs/graphweave/internal/pkg/errors"
	"github.com/aletheia-labs/graphweave/internal/platform/envutil"
	"github.com/aletheia-labs/graphweave/internal/platform/logger"
	"github.com/aletheia-labs/graphweave/internal/platform/openai"
)

const (
	ActionMatched = "matched"
	ActionCreated = "created"
)

type Embedder interface {
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
	ModelInfo() openai.ModelInfo
}

type ConceptStore interface {
	GetByOntology(dbc dbctx.Context, ontologyID uuid.UUID) ([]*types.Concept, error)
	Create(dbc dbctx.Context, rows []*types.Concept) ([]*types.Concept, error)
}

type InstanceStore interface {
	Create(dbc dbctx.Context, rows []*types.ConceptInstance) ([]*types.ConceptInstance, error)
}

type OntologyStore interface {
	GetByName(dbc dbctx.Context, name string) (*types.Ontology, error)
}

// Candidate is one extracted concept waiting to be merged or created.
type Candidate struct {
	Label       string
	SearchTerms []string
	PredictedID *uuid.UUID
	Quote       string
	SourceID    *uuid.UUID
	Confidence  *float64
}

type Resolution struct {
	ConceptID  uuid.UUID `json:"concept_id"`
	Action     string    `json:"action"`
	Similarity float64   `json:"similarity"`
}

type Config struct {
	// SimilarityThreshold is the merge cutoff: max cosine similarity at or
	// above it resolves to the existing concept.
	SimilarityThreshold float64
	// NearTieGap triggers an audit log when the runner-up is this close to
	// the winner. The winner is still taken; ties are never broken randomly.
	NearTieGap float64
}

func ConfigFromEnv(log *logger.Logger) Config {
	return Config{
		SimilarityThreshold: envutil.GetEnvAsFloat("CONCEPT_SIMILARITY_THRESHOLD", 0.85, log),
		NearTieGap:          envutil.GetEnvAsFloat("CONCEPT_NEAR_TIE_GAP", 0.02, log),
	}
}

// Resolver decides merge-or-create for candidate concepts. Resolution within
// one ontology is serialized behind that ontology's index lock; different
// ontologies share no state and resolve in parallel.
type Resolver struct {
	log        *logger.Logger
	emb        Embedder
	concepts   ConceptStore
	instances  InstanceStore
	ontologies OntologyStore
	cfg        Config

	mu      sync.Mutex
	indexes map[uuid.UUID]*ontologyIndex
}

type ontologyIndex struct {
	mu     sync.Mutex
	idx    NearestNeighborIndex
	loaded bool
}

func New(log *logger.Logger, emb Embedder, concepts ConceptStore, instances InstanceStore, ontologies OntologyStore, cfg Config) *Resolver {
	return &Resolver{
		log:        log.With("service", "ConceptResolver"),
		emb:        emb,
		concepts:   concepts,
		instances:  instances,
		ontologies: ontologies,
		cfg:        cfg,
		indexes:    map[uuid.UUID]*ontologyIndex{},
	}
}

// Resolve embeds the candidate and runs the merge-or-create cascade.
// The embedding provider failing fails this candidate closed: a concept is
// never created with a missing or garbage vector.
func (r *Resolver) Resolve(ctx context.Context, cand Candidate, ontologyName string) (Resolution, error) {
	if strings.TrimSpace(cand.Label) == "" {
		return Resolution{}, fmt.Errorf("candidate has no label: %w", pkgerrors.ErrMalformedCandidate)
	}
	vecs, err := r.emb.Embed(ctx, []string{EmbedText(cand)})
	if err != nil {
		return Resolution{}, fmt.Errorf("embed candidate %q: %w", cand.Label, err)
	}
	return r.ResolveWithEmbedding(ctx, cand, vecs[0], ontologyName)
}

// ResolveWithEmbedding runs the cascade with a caller-supplied vector. Batch
// ingestion embeds a whole document's candidates in one provider call and
// feeds them through here.
func (r *Resolver) ResolveWithEmbedding(ctx context.Context, cand Candidate, vec []float32, ontologyName string) (Resolution, error) {
	if strings.TrimSpace(cand.Label) == "" {
		return Resolution{}, fmt.Errorf("candidate has no label: %w", pkgerrors.ErrMalformedCandidate)
	}
	info := r.emb.ModelInfo()
	if len(vec) != info.Dims {
		return Resolution{}, fmt.Errorf("candidate %q vector has %d dims, model %s expects %d: %w",
			cand.Label, len(vec), info.Model, info.Dims, pkgerrors.ErrEmbeddingDimsMismatch)
	}

	ont, err := r.ontologies.GetByName(dbctx.Context{Ctx: ctx}, ontologyName)
	if err != nil {
		return Resolution{}, fmt.Errorf("load ontology %q: %w", ontologyName, err)
	}
	if ont == nil {
		return Resolution{}, fmt.Errorf("ontology %q: %w", ontologyName, pkgerrors.ErrUnknownOntology)
	}

	oi := r.indexFor(ont.ID)
	oi.mu.Lock()
	defer oi.mu.Unlock()

	if err := r.hydrateLocked(ctx, oi, ont.ID, info); err != nil {
		return Resolution{}, err
	}

	res, conceptID, err := r.resolveLocked(ctx, oi, ont.ID, cand, vec, info)
	if err != nil {
		return Resolution{}, err
	}

	// Evidence accumulates on every branch: matched or created, the quote is
	// appended as a new instance and prior instances are never touched.
	inst := &types.ConceptInstance{
		ID:         uuid.New(),
		ConceptID:  conceptID,
		SourceID:   cand.SourceID,
		Quote:      instanceQuote(cand),
		Confidence: cand.Confidence,
	}
	if _, err := r.instances.Create(dbctx.Context{Ctx: ctx}, []*types.ConceptInstance{inst}); err != nil {
		return Resolution{}, fmt.Errorf("append instance for concept %s: %w", conceptID, err)
	}

	return res, nil
}

func (r *Resolver) resolveLocked(ctx context.Context, oi *ontologyIndex, ontologyID uuid.UUID, cand Candidate, vec []float32, info openai.ModelInfo) (Resolution, uuid.UUID, error) {
	// Stage 1: trust an upstream predicted id when it exists in this ontology.
	if cand.PredictedID != nil && *cand.PredictedID != uuid.Nil && oi.idx.Has(*cand.PredictedID) {
		return Resolution{ConceptID: *cand.PredictedID, Action: ActionMatched, Similarity: 1.0}, *cand.PredictedID, nil
	}

	// Stage 2: exact linear scan over the ontology's concepts.
	matches := oi.idx.Search(vec, 2)
	if len(matches) > 0 && matches[0].Score >= r.cfg.SimilarityThreshold {
		best := matches[0]
		if len(matches) > 1 && matches[1].Score >= r.cfg.SimilarityThreshold && (best.Score-matches[1].Score) < r.cfg.NearTieGap {
			r.log.Warn("near-tie concept match",
				"label", cand.Label,
				"winner", best.ID.String(),
				"winner_score", best.Score,
				"runner_up", matches[1].ID.String(),
				"runner_up_score", matches[1].Score,
			)
		}
		return Resolution{ConceptID: best.ID, Action: ActionMatched, Similarity: best.Score}, best.ID, nil
	}

	// Stage 3: create, and make the new concept searchable for the rest of
	// the run immediately.
	now := time.Now().UTC()
	row := &types.Concept{
		ID:          uuid.New(),
		OntologyID:  ontologyID,
		Label:       strings.TrimSpace(cand.Label),
		SearchTerms: types.EncodeStrings(cand.SearchTerms),
		Embedding:   types.EncodeEmbedding(vec),
		EmbedModel:  info.Model,
		EmbedDims:   info.Dims,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := r.concepts.Create(dbctx.Context{Ctx: ctx}, []*types.Concept{row}); err != nil {
		return Resolution{}, uuid.Nil, fmt.Errorf("create concept %q: %w", cand.Label, err)
	}
	oi.idx.Add(Entry{ID: row.ID, Vector: vec, CreatedAt: now})

	sim := 0.0
	if len(matches) > 0 {
		sim = matches[0].Score
	}
	return Resolution{ConceptID: row.ID, Action: ActionCreated, Similarity: sim}, row.ID, nil
}

func (r *Resolver) indexFor(ontologyID uuid.UUID) *ontologyIndex {
	r.mu.Lock()
	defer r.mu.Unlock()
	oi, ok := r.indexes[ontologyID]
	if !ok {
		oi = &ontologyIndex{idx: NewLinearIndex()}
		r.indexes[ontologyID] = oi
	}
	return oi
}

func (r *Resolver) hydrateLocked(ctx context.Context, oi *ontologyIndex, ontologyID uuid.UUID, info openai.ModelInfo) error {
	if oi.loaded {
		return nil
	}
	rows, err := r.concepts.GetByOntology(dbctx.Context{Ctx: ctx}, ontologyID)
	if err != nil {
		return fmt.Errorf("hydrate ontology index: %w", err)
	}
	skipped := 0
	for _, c := range rows {
		if c == nil || c.ID == uuid.Nil {
			continue
		}
		vec, ok := types.DecodeEmbedding(c.Embedding)
		if !ok {
			skipped++
			continue
		}
		if c.EmbedModel != info.Model || len(vec) != info.Dims {
			// A concept embedded under another model is invisible to search
			// until the re-embedding migration catches it up.
			skipped++
			continue
		}
		oi.idx.Add(Entry{ID: c.ID, Vector: vec, CreatedAt: c.CreatedAt})
	}
	if skipped > 0 {
		r.log.Warn("skipped concepts during index hydration",
			"ontology_id", ontologyID.String(),
			"skipped", skipped,
			"model", info.Model,
		)
	}
	oi.loaded = true
	return nil
}

// InvalidateOntology drops the cached index so the next resolution rebuilds
// it from storage. The re-embedding migration calls this per batch.
func (r *Resolver) InvalidateOntology(ontologyID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.indexes, ontologyID)
}

// EmbedText is the provider input for a candidate: label plus search terms.
func EmbedText(cand Candidate) string {
	parts := []string{strings.TrimSpace(cand.Label)}
	for _, t := range cand.SearchTerms {
		t = strings.TrimSpace(t)
		if t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

func instanceQuote(cand Candidate) string {
	q := strings.TrimSpace(cand.Quote)
	if q != "" {
		return q
	}
	return strings.TrimSpace(cand.Label)
}
