package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"

	types "github.com/aletheia-labs/graphweave/internal/domain"
	"github.com/aletheia-labs/graphweave/internal/engine/resolver"
	"github.com/aletheia-labs/graphweave/internal/engine/vocab"
	"github.com/aletheia-labs/graphweave/internal/pkg/dbctx"
	pkgerrors "github.com/aletheia-labs/graphweave/internal/pkg/errors"
	"github.com/aletheia-labs/graphweave/internal/platform/logger"
	"github.com/aletheia-labs/graphweave/internal/platform/openai"
)

type Embedder interface {
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
	ModelInfo() openai.ModelInfo
}

type Resolver interface {
	ResolveWithEmbedding(ctx context.Context, cand resolver.Candidate, vec []float32, ontologyName string) (resolver.Resolution, error)
}

type Normalizer interface {
	Normalize(ctx context.Context, rawType string) (vocab.Normalization, error)
}

type OntologyStore interface {
	GetByName(dbc dbctx.Context, name string) (*types.Ontology, error)
}

type SourceStore interface {
	Create(dbc dbctx.Context, row *types.Source) (*types.Source, error)
}

type ConceptStore interface {
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Concept, error)
}

type InstanceStore interface {
	GetByConceptIDs(dbc dbctx.Context, conceptIDs []uuid.UUID) ([]*types.ConceptInstance, error)
}

type RelationshipStore interface {
	Create(dbc dbctx.Context, rows []*types.Relationship) ([]*types.Relationship, error)
}

// Scorer annotates accepted edges with their default polarity-axis strength.
type Scorer interface {
	TypeStrength(typeName string) (float64, bool)
}

// GraphSync mirrors accepted rows into the traversal store. Sync failures
// never fail an ingest; the mirror is rebuildable.
type GraphSync interface {
	UpsertConceptGraph(ctx context.Context, ontology *types.Ontology, concepts []*types.Concept, rels []*types.Relationship) error
	UpsertEvidence(ctx context.Context, instances []*types.ConceptInstance, sources []*types.Source) error
}

// ConceptCandidate is one extracted concept in a batch.
type ConceptCandidate struct {
	Label       string     `json:"label"`
	SearchTerms []string   `json:"search_terms,omitempty"`
	PredictedID *uuid.UUID `json:"predicted_id,omitempty"`
	Quote       string     `json:"quote,omitempty"`
	Confidence  *float64   `json:"confidence,omitempty"`
}

// RelationshipCandidate references its endpoints by the labels of concept
// candidates in the same batch.
type RelationshipCandidate struct {
	FromLabel  string  `json:"from_label"`
	ToLabel    string  `json:"to_label"`
	Type       string  `json:"type"`
	Confidence float64 `json:"confidence,omitempty"`
}

// Batch is one extraction payload: every concept and relationship pulled out
// of a single document or paragraph.
type Batch struct {
	DocumentRef   string                  `json:"document_ref"`
	ParagraphRef  string                  `json:"paragraph_ref,omitempty"`
	Concepts      []ConceptCandidate      `json:"concepts"`
	Relationships []RelationshipCandidate `json:"relationships,omitempty"`
}

type ConceptOutcome struct {
	Label      string    `json:"label"`
	ConceptID  uuid.UUID `json:"concept_id,omitempty"`
	Action     string    `json:"action,omitempty"`
	Similarity float64   `json:"similarity,omitempty"`
	Error      string    `json:"error,omitempty"`
}

type RelationshipOutcome struct {
	RawType       string    `json:"raw_type"`
	CanonicalType string    `json:"canonical_type,omitempty"`
	FromConceptID uuid.UUID `json:"from_concept_id,omitempty"`
	ToConceptID   uuid.UUID `json:"to_concept_id,omitempty"`
	Polarity      *float64  `json:"polarity,omitempty"`
	Created       bool      `json:"created"`
	Error         string    `json:"error,omitempty"`
}

// Report is the per-batch outcome: one entry per candidate, accepted or not,
// plus rollup counters.
type Report struct {
	SourceID      uuid.UUID             `json:"source_id"`
	Concepts      []ConceptOutcome      `json:"concepts"`
	Relationships []RelationshipOutcome `json:"relationships,omitempty"`

	ConceptsMatched       int `json:"concepts_matched"`
	ConceptsCreated       int `json:"concepts_created"`
	ConceptsRejected      int `json:"concepts_rejected"`
	RelationshipsCreated  int `json:"relationships_created"`
	RelationshipsRejected int `json:"relationships_rejected"`
	TypesRegistered       int `json:"types_registered"`
}

// Service drives a whole extraction batch through resolution, vocabulary
// normalization, and edge creation. One bad candidate rejects only itself;
// the embedding provider being down rejects the whole batch before any row
// is written.
type Service struct {
	log       *logger.Logger
	emb       Embedder
	resolver  Resolver
	normal    Normalizer
	ontos     OntologyStore
	sources   SourceStore
	concepts  ConceptStore
	instances InstanceStore
	rels      RelationshipStore
	graph     GraphSync
	scorer    Scorer
}

func NewService(log *logger.Logger, emb Embedder, res Resolver, normal Normalizer, ontos OntologyStore, sources SourceStore, concepts ConceptStore, instances InstanceStore, rels RelationshipStore, graph GraphSync, scorer Scorer) *Service {
	return &Service{
		log:       log.With("service", "IngestService"),
		emb:       emb,
		resolver:  res,
		normal:    normal,
		ontos:     ontos,
		sources:   sources,
		concepts:  concepts,
		instances: instances,
		rels:      rels,
		graph:     graph,
		scorer:    scorer,
	}
}

func (s *Service) Ingest(ctx context.Context, ontologyName string, batch Batch) (*Report, error) {
	if strings.TrimSpace(batch.DocumentRef) == "" {
		return nil, fmt.Errorf("batch has no document_ref: %w", pkgerrors.ErrInvalidArgument)
	}
	if len(batch.Concepts) == 0 {
		return nil, fmt.Errorf("batch has no concepts: %w", pkgerrors.ErrInvalidArgument)
	}

	ont, err := s.ontos.GetByName(dbctx.Context{Ctx: ctx}, ontologyName)
	if err != nil {
		return nil, fmt.Errorf("load ontology %q: %w", ontologyName, err)
	}
	if ont == nil {
		return nil, fmt.Errorf("ontology %q: %w", ontologyName, pkgerrors.ErrUnknownOntology)
	}

	report := &Report{Concepts: make([]ConceptOutcome, 0, len(batch.Concepts))}

	// Pre-validate, then embed every valid candidate in one provider call.
	// A provider failure here aborts the batch before a single row exists.
	valid := make([]int, 0, len(batch.Concepts))
	inputs := make([]string, 0, len(batch.Concepts))
	for i, cc := range batch.Concepts {
		if strings.TrimSpace(cc.Label) == "" {
			report.Concepts = append(report.Concepts, ConceptOutcome{
				Label: cc.Label,
				Error: pkgerrors.ErrMalformedCandidate.Error(),
			})
			report.ConceptsRejected++
			continue
		}
		valid = append(valid, i)
		inputs = append(inputs, resolver.EmbedText(resolver.Candidate{Label: cc.Label, SearchTerms: cc.SearchTerms}))
	}
	if len(valid) == 0 {
		return nil, fmt.Errorf("every concept candidate malformed: %w", pkgerrors.ErrMalformedCandidate)
	}

	vecs, err := s.emb.Embed(ctx, inputs)
	if err != nil {
		return nil, fmt.Errorf("embed batch of %d candidates: %w", len(inputs), err)
	}

	src, err := s.sources.Create(dbctx.Context{Ctx: ctx}, &types.Source{
		ID:           uuid.New(),
		OntologyID:   ont.ID,
		DocumentRef:  strings.TrimSpace(batch.DocumentRef),
		ParagraphRef: strings.TrimSpace(batch.ParagraphRef),
	})
	if err != nil {
		return nil, fmt.Errorf("create source: %w", err)
	}
	report.SourceID = src.ID

	// Resolution is per-candidate fallible: one rejection never poisons the
	// rest of the batch.
	byLabel := map[string]uuid.UUID{}
	touched := make([]uuid.UUID, 0, len(valid))
	for n, i := range valid {
		cc := batch.Concepts[i]
		cand := resolver.Candidate{
			Label:       cc.Label,
			SearchTerms: cc.SearchTerms,
			PredictedID: cc.PredictedID,
			Quote:       cc.Quote,
			SourceID:    &src.ID,
			Confidence:  cc.Confidence,
		}
		res, err := s.resolver.ResolveWithEmbedding(ctx, cand, vecs[n], ontologyName)
		if err != nil {
			s.log.Warn("candidate rejected during resolution", "label", cc.Label, "error", err)
			report.Concepts = append(report.Concepts, ConceptOutcome{Label: cc.Label, Error: err.Error()})
			report.ConceptsRejected++
			continue
		}
		report.Concepts = append(report.Concepts, ConceptOutcome{
			Label:      cc.Label,
			ConceptID:  res.ConceptID,
			Action:     res.Action,
			Similarity: res.Similarity,
		})
		switch res.Action {
		case resolver.ActionCreated:
			report.ConceptsCreated++
		default:
			report.ConceptsMatched++
		}
		key := labelKey(cc.Label)
		if _, ok := byLabel[key]; !ok {
			byLabel[key] = res.ConceptID
		}
		touched = append(touched, res.ConceptID)
	}

	rels := s.ingestRelationships(ctx, ont, src, batch.Relationships, byLabel, report)

	s.syncMirror(ctx, ont, src, touched, rels)

	return report, nil
}

func (s *Service) ingestRelationships(ctx context.Context, ont *types.Ontology, src *types.Source, cands []RelationshipCandidate, byLabel map[string]uuid.UUID, report *Report) []*types.Relationship {
	if len(cands) == 0 {
		return nil
	}
	report.Relationships = make([]RelationshipOutcome, 0, len(cands))

	rows := make([]*types.Relationship, 0, len(cands))
	accepted := make([]int, 0, len(cands))
	for _, rc := range cands {
		from, okFrom := byLabel[labelKey(rc.FromLabel)]
		to, okTo := byLabel[labelKey(rc.ToLabel)]
		if !okFrom || !okTo || strings.TrimSpace(rc.Type) == "" {
			report.Relationships = append(report.Relationships, RelationshipOutcome{
				RawType: rc.Type,
				Error:   "endpoint or type missing from batch",
			})
			report.RelationshipsRejected++
			continue
		}

		norm, err := s.normal.Normalize(ctx, rc.Type)
		if err != nil {
			if errors.Is(err, pkgerrors.ErrReversedRelationshipType) {
				s.log.Warn("reversed relationship type rejected", "raw_type", rc.Type)
			}
			report.Relationships = append(report.Relationships, RelationshipOutcome{
				RawType: rc.Type,
				Error:   err.Error(),
			})
			report.RelationshipsRejected++
			continue
		}
		if norm.Created {
			report.TypesRegistered++
		}

		row := &types.Relationship{
			ID:            uuid.New(),
			OntologyID:    ont.ID,
			FromConceptID: from,
			ToConceptID:   to,
			TypeName:      norm.CanonicalType,
			RawType:       rc.Type,
			Confidence:    rc.Confidence,
			SourceID:      &src.ID,
		}
		var polarity *float64
		if s.scorer != nil {
			if v, ok := s.scorer.TypeStrength(norm.CanonicalType); ok {
				polarity = &v
				if meta, err := json.Marshal(map[string]float64{"polarity": v}); err == nil {
					row.Metadata = datatypes.JSON(meta)
				}
			}
		}
		rows = append(rows, row)
		accepted = append(accepted, len(report.Relationships))
		report.Relationships = append(report.Relationships, RelationshipOutcome{
			RawType:       rc.Type,
			CanonicalType: norm.CanonicalType,
			FromConceptID: from,
			ToConceptID:   to,
			Polarity:      polarity,
			Created:       true,
		})
	}

	if len(rows) == 0 {
		return nil
	}
	if _, err := s.rels.Create(dbctx.Context{Ctx: ctx}, rows); err != nil {
		s.log.Error("relationship batch insert failed", "count", len(rows), "error", err)
		for _, idx := range accepted {
			report.Relationships[idx].Created = false
			report.Relationships[idx].Error = err.Error()
			report.RelationshipsRejected++
		}
		return nil
	}
	report.RelationshipsCreated = len(rows)
	return rows
}

// syncMirror pushes accepted rows to the graph mirror. Concept and evidence
// sync run concurrently; either failing only logs.
func (s *Service) syncMirror(ctx context.Context, ont *types.Ontology, src *types.Source, conceptIDs []uuid.UUID, rels []*types.Relationship) {
	if s.graph == nil || len(conceptIDs) == 0 {
		return
	}

	conceptRows, err := s.concepts.GetByIDs(dbctx.Context{Ctx: ctx}, dedupe(conceptIDs))
	if err != nil {
		s.log.Warn("mirror sync skipped, concept load failed", "error", err)
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.graph.UpsertConceptGraph(gctx, ont, conceptRows, rels)
	})
	g.Go(func() error {
		instances, err := s.instances.GetByConceptIDs(dbctx.Context{Ctx: gctx}, dedupe(conceptIDs))
		if err != nil {
			return err
		}
		return s.graph.UpsertEvidence(gctx, instances, []*types.Source{src})
	})
	if err := g.Wait(); err != nil {
		s.log.Warn("graph mirror sync failed", "source_id", src.ID.String(), "error", err)
	}
}

func labelKey(label string) string {
	return strings.ToLower(strings.TrimSpace(label))
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
