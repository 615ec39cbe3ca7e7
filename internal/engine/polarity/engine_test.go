package polarity

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"

	types "github.com/aletheia-labs/graphweave/internal/domain"
	"github.com/aletheia-labs/graphweave/internal/pkg/dbctx"
	pkgerrors "github.com/aletheia-labs/graphweave/internal/pkg/errors"
	"github.com/aletheia-labs/graphweave/internal/platform/logger"
	"github.com/aletheia-labs/graphweave/internal/platform/redisdb"
)

type stubVocab struct {
	embeddings map[string][]float32
	version    int64
}

func (s *stubVocab) Embedding(name string) ([]float32, bool) {
	v, ok := s.embeddings[name]
	return v, ok
}

func (s *stubVocab) Version() int64 { return s.version }

type memRelStore struct {
	rows []*types.Relationship
}

func (m *memRelStore) GetTouching(_ dbctx.Context, conceptID uuid.UUID) ([]*types.Relationship, error) {
	var out []*types.Relationship
	for _, r := range m.rows {
		if r.FromConceptID == conceptID || r.ToConceptID == conceptID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memRelStore) GetTouchingAny(_ dbctx.Context, ids []uuid.UUID) ([]*types.Relationship, error) {
	var out []*types.Relationship
	for _, r := range m.rows {
		for _, id := range ids {
			if r.FromConceptID == id || r.ToConceptID == id {
				out = append(out, r)
				break
			}
		}
	}
	return out, nil
}

type memConceptStore struct {
	byID map[uuid.UUID]*types.Concept
}

func (m *memConceptStore) GetByIDs(_ dbctx.Context, ids []uuid.UUID) ([]*types.Concept, error) {
	var out []*types.Concept
	for _, id := range ids {
		if c, ok := m.byID[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

type recordingCache struct {
	stored []redisdb.ScoreArtifact
	serve  *redisdb.ScoreArtifact
	gets   int
}

func (c *recordingCache) GetScore(_ context.Context, _, _ string, _ int64) (*redisdb.ScoreArtifact, error) {
	c.gets++
	return c.serve, nil
}

func (c *recordingCache) PutScore(_ context.Context, art redisdb.ScoreArtifact) {
	c.stored = append(c.stored, art)
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("failed to init logger: %v", err)
	}
	return log
}

func axisVocab() *stubVocab {
	return &stubVocab{
		version: 3,
		embeddings: map[string][]float32{
			"SUPPORTS":    {1, 0, 0},
			"CONTRADICTS": {-1, 0, 0},
			"VALIDATES":   {0.9, 0.1, 0},
			"REFUTES":     {-0.8, 0.2, 0},
			"RELATES_TO":  {0, 1, 0},
		},
	}
}

func TestBuildAxisSignCorrectness(t *testing.T) {
	vocab := axisVocab()
	axis, err := BuildAxis(vocab, []SeedPair{{Positive: "SUPPORTS", Negative: "CONTRADICTS"}})
	if err != nil {
		t.Fatalf("BuildAxis: %v", err)
	}

	validates, _ := vocab.Embedding("VALIDATES")
	if got := EdgeStrength(axis, validates); got <= 0.5 {
		t.Fatalf("VALIDATES strength = %v, want > 0.5", got)
	}
	refutes, _ := vocab.Embedding("REFUTES")
	if got := EdgeStrength(axis, refutes); got >= -0.5 {
		t.Fatalf("REFUTES strength = %v, want < -0.5", got)
	}
	// Orthogonal type sits near zero.
	relates, _ := vocab.Embedding("RELATES_TO")
	if got := EdgeStrength(axis, relates); math.Abs(got) > 0.1 {
		t.Fatalf("RELATES_TO strength = %v, want ~0", got)
	}
}

func TestBuildAxisSkipsUnresolvablePairs(t *testing.T) {
	vocab := axisVocab()
	axis, err := BuildAxis(vocab, []SeedPair{
		{Positive: "SUPPORTS", Negative: "CONTRADICTS"},
		{Positive: "NO_SUCH", Negative: "ALSO_MISSING"},
	})
	if err != nil {
		t.Fatalf("BuildAxis: %v", err)
	}
	if len(axis.Pairs) != 1 {
		t.Fatalf("used %d pairs, want 1", len(axis.Pairs))
	}

	_, err = BuildAxis(vocab, []SeedPair{{Positive: "NO_SUCH", Negative: "ALSO_MISSING"}})
	if !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Fatalf("want ErrNotFound when nothing resolves, got %v", err)
	}

	_, err = BuildAxis(vocab, nil)
	if !errors.Is(err, pkgerrors.ErrInvalidArgument) {
		t.Fatalf("want ErrInvalidArgument for empty pairs, got %v", err)
	}
}

func newEngine(t *testing.T, vocab *stubVocab, rels *memRelStore, concepts *memConceptStore, cache ScoreCache) *Engine {
	t.Helper()
	return NewEngine(testLogger(t), vocab, rels, concepts, nil, cache, "test-embed",
		[]SeedPair{{Positive: "SUPPORTS", Negative: "CONTRADICTS"}},
		Config{DiversityMaxHops: 2, DiversityLimit: 50})
}

func TestGroundingConfidenceWeightedMean(t *testing.T) {
	vocab := axisVocab()
	concept := uuid.New()
	a, b := uuid.New(), uuid.New()
	rels := &memRelStore{rows: []*types.Relationship{
		{FromConceptID: concept, ToConceptID: a, TypeName: "SUPPORTS", Confidence: 1.0},
		{FromConceptID: b, ToConceptID: concept, TypeName: "CONTRADICTS", Confidence: 0.5},
	}}

	eng := newEngine(t, vocab, rels, &memConceptStore{}, nil)
	got, err := eng.Grounding(context.Background(), concept, nil)
	if err != nil {
		t.Fatalf("Grounding: %v", err)
	}
	// (1.0*1 + 0.5*(-1)) / 1.5
	want := 1.0 / 3.0
	if math.Abs(got-want) > 1e-6 {
		t.Fatalf("grounding = %v, want %v", got, want)
	}
}

func TestGroundingNoEdges(t *testing.T) {
	eng := newEngine(t, axisVocab(), &memRelStore{}, &memConceptStore{}, nil)
	got, err := eng.Grounding(context.Background(), uuid.New(), nil)
	if err != nil {
		t.Fatalf("Grounding: %v", err)
	}
	if got != 0 {
		t.Fatalf("grounding with no edges = %v, want 0", got)
	}
}

func TestGroundingCacheArtifacts(t *testing.T) {
	vocab := axisVocab()
	concept := uuid.New()
	rels := &memRelStore{rows: []*types.Relationship{
		{FromConceptID: concept, ToConceptID: uuid.New(), TypeName: "SUPPORTS", Confidence: 1.0},
	}}
	cache := &recordingCache{}

	eng := newEngine(t, vocab, rels, &memConceptStore{}, cache)
	if _, err := eng.Grounding(context.Background(), concept, nil); err != nil {
		t.Fatalf("Grounding: %v", err)
	}
	if len(cache.stored) != 1 {
		t.Fatalf("stored %d artifacts, want 1", len(cache.stored))
	}
	art := cache.stored[0]
	if art.Kind != "grounding" || art.VocabVersion != vocab.version || art.EmbedModel != "test-embed" {
		t.Fatalf("artifact not versioned: %+v", art)
	}
	if art.ComputedAt.IsZero() || time.Since(art.ComputedAt) > time.Minute {
		t.Fatalf("artifact timestamp wrong: %v", art.ComputedAt)
	}

	// A served artifact short-circuits the computation.
	cache.serve = &art
	got, err := eng.Grounding(context.Background(), concept, nil)
	if err != nil {
		t.Fatalf("cached Grounding: %v", err)
	}
	if got != art.Value {
		t.Fatalf("cached value = %v, want %v", got, art.Value)
	}

	// Custom pairs must bypass the cache entirely.
	gets := cache.gets
	if _, err := eng.Grounding(context.Background(), concept, []SeedPair{{Positive: "SUPPORTS", Negative: "CONTRADICTS"}}); err != nil {
		t.Fatalf("custom-pair Grounding: %v", err)
	}
	if cache.gets != gets {
		t.Fatalf("custom pairs consulted the cache")
	}
}

func diversityFixture(center uuid.UUID, vecs [][]float32) (*memRelStore, *memConceptStore) {
	rels := &memRelStore{}
	concepts := &memConceptStore{byID: map[uuid.UUID]*types.Concept{}}
	for _, v := range vecs {
		id := uuid.New()
		rels.rows = append(rels.rows, &types.Relationship{FromConceptID: center, ToConceptID: id, TypeName: "SUPPORTS"})
		concepts.byID[id] = &types.Concept{ID: id, Embedding: types.EncodeEmbedding(v)}
	}
	return rels, concepts
}

func TestDiversityContrast(t *testing.T) {
	tight := uuid.New()
	tightRels, tightConcepts := diversityFixture(tight, [][]float32{
		{1, 0, 0}, {0.995, 0.0998, 0}, {0.995, -0.0998, 0},
	})
	spread := uuid.New()
	spreadRels, spreadConcepts := diversityFixture(spread, [][]float32{
		{1, 0, 0}, {0, 1, 0}, {0, 0, 1},
	})

	lo, err := newEngine(t, axisVocab(), tightRels, tightConcepts, nil).Diversity(context.Background(), tight, 0, 0)
	if err != nil {
		t.Fatalf("tight Diversity: %v", err)
	}
	hi, err := newEngine(t, axisVocab(), spreadRels, spreadConcepts, nil).Diversity(context.Background(), spread, 0, 0)
	if err != nil {
		t.Fatalf("spread Diversity: %v", err)
	}

	if lo >= hi {
		t.Fatalf("tight cluster diversity %v not below spread %v", lo, hi)
	}
	if lo > 0.1 {
		t.Fatalf("tight cluster diversity = %v, want near 0", lo)
	}
	// Mutually orthogonal neighbors: pairwise cosine 0, diversity 1.
	if math.Abs(hi-1) > 1e-6 {
		t.Fatalf("orthogonal diversity = %v, want 1", hi)
	}
}

func TestDiversityFewNeighbors(t *testing.T) {
	center := uuid.New()
	rels, concepts := diversityFixture(center, [][]float32{{1, 0, 0}})

	got, err := newEngine(t, axisVocab(), rels, concepts, nil).Diversity(context.Background(), center, 0, 0)
	if err != nil {
		t.Fatalf("Diversity: %v", err)
	}
	if got != 0 {
		t.Fatalf("single-neighbor diversity = %v, want 0", got)
	}
}

func TestTypeStrength(t *testing.T) {
	eng := newEngine(t, axisVocab(), &memRelStore{}, &memConceptStore{}, nil)

	v, ok := eng.TypeStrength("VALIDATES")
	if !ok || v <= 0 {
		t.Fatalf("TypeStrength(VALIDATES) = (%v, %v)", v, ok)
	}
	if _, ok := eng.TypeStrength("NO_SUCH"); ok {
		t.Fatalf("unknown type reported a strength")
	}
}
