package reembed

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	types "github.com/aletheia-labs/graphweave/internal/domain"
	"github.com/aletheia-labs/graphweave/internal/pkg/dbctx"
	pkgerrors "github.com/aletheia-labs/graphweave/internal/pkg/errors"
	"github.com/aletheia-labs/graphweave/internal/platform/logger"
	"github.com/aletheia-labs/graphweave/internal/platform/openai"
)

type stubEmbedder struct {
	mu   sync.Mutex
	fail bool
}

func (s *stubEmbedder) Embed(_ context.Context, inputs []string) ([][]float32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return nil, pkgerrors.ErrProviderUnavailable
	}
	out := make([][]float32, len(inputs))
	for i := range inputs {
		out[i] = []float32{0, 1, 0}
	}
	return out, nil
}

func (s *stubEmbedder) ModelInfo() openai.ModelInfo {
	return openai.ModelInfo{Model: "new-model", Dims: 3}
}

type memConceptStore struct {
	mu    sync.Mutex
	rows  []*types.Concept
	pages int
	// onPage fires after each page is served, with the page number.
	onPage func(page int)
}

func (m *memConceptStore) GetByEmbedModelNot(_ dbctx.Context, model string, afterID uuid.UUID, limit int) ([]*types.Concept, error) {
	m.mu.Lock()
	var out []*types.Concept
	for _, c := range m.rows {
		if c.EmbedModel == model {
			continue
		}
		if afterID != uuid.Nil && c.ID.String() <= afterID.String() {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	if len(out) > limit {
		out = out[:limit]
	}
	m.pages++
	page := m.pages
	hook := m.onPage
	m.mu.Unlock()
	if hook != nil {
		hook(page)
	}
	return out, nil
}

func (m *memConceptStore) UpdateEmbedding(_ dbctx.Context, id uuid.UUID, embedding datatypes.JSON, model string, dims int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.rows {
		if c.ID == id {
			c.Embedding = embedding
			c.EmbedModel = model
			c.EmbedDims = dims
			return nil
		}
	}
	return fmt.Errorf("concept %s: %w", id, pkgerrors.ErrNotFound)
}

type recordingInvalidator struct {
	mu  sync.Mutex
	ids map[uuid.UUID]int
}

func (r *recordingInvalidator) InvalidateOntology(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ids == nil {
		r.ids = map[uuid.UUID]int{}
	}
	r.ids[id]++
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("failed to init logger: %v", err)
	}
	return log
}

func seedStore(oldCount, currentCount int, ontologyID uuid.UUID) *memConceptStore {
	store := &memConceptStore{}
	for i := 0; i < oldCount; i++ {
		store.rows = append(store.rows, &types.Concept{
			ID:         uuid.New(),
			OntologyID: ontologyID,
			Label:      fmt.Sprintf("stale-%d", i),
			Embedding:  types.EncodeEmbedding([]float32{1, 0, 0}),
			EmbedModel: "old-model",
		})
	}
	for i := 0; i < currentCount; i++ {
		store.rows = append(store.rows, &types.Concept{
			ID:         uuid.New(),
			OntologyID: ontologyID,
			Label:      fmt.Sprintf("fresh-%d", i),
			Embedding:  types.EncodeEmbedding([]float32{0, 1, 0}),
			EmbedModel: "new-model",
		})
	}
	return store
}

func TestRunDrainsBacklog(t *testing.T) {
	ontologyID := uuid.New()
	store := seedStore(5, 2, ontologyID)
	inval := &recordingInvalidator{}

	m := NewMigrator(testLogger(t), &stubEmbedder{}, store, inval, Config{BatchSize: 2, Concurrency: 2, ChunkSize: 2})
	prog, err := m.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !prog.Complete || prog.Scanned != 5 || prog.Updated != 5 || prog.Failed != 0 {
		t.Fatalf("unexpected progress: %+v", prog)
	}

	for _, c := range store.rows {
		if c.EmbedModel != "new-model" {
			t.Fatalf("concept %s still on %s", c.Label, c.EmbedModel)
		}
	}
	// Each of the three batches touched the ontology and invalidated it.
	if inval.ids[ontologyID] != 3 {
		t.Fatalf("invalidations = %d, want 3", inval.ids[ontologyID])
	}
}

func TestRunHonorsCancellationBetweenBatches(t *testing.T) {
	ontologyID := uuid.New()
	store := seedStore(6, 0, ontologyID)
	ctx, cancel := context.WithCancel(context.Background())
	store.onPage = func(page int) {
		if page == 1 {
			cancel()
		}
	}

	m := NewMigrator(testLogger(t), &stubEmbedder{}, store, &recordingInvalidator{}, Config{BatchSize: 2, Concurrency: 1, ChunkSize: 2})
	prog, err := m.Run(ctx)
	if err != context.Canceled {
		t.Fatalf("want context.Canceled, got %v", err)
	}
	// The first batch finished; the second never started.
	if prog.Scanned != 2 || prog.Updated != 2 {
		t.Fatalf("unexpected progress after cancel: %+v", prog)
	}
}

func TestRunResumesFromCursor(t *testing.T) {
	ontologyID := uuid.New()
	store := seedStore(4, 0, ontologyID)

	sorted := make([]*types.Concept, len(store.rows))
	copy(sorted, store.rows)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID.String() < sorted[j].ID.String() })

	m := NewMigrator(testLogger(t), &stubEmbedder{}, store, &recordingInvalidator{},
		Config{BatchSize: 10, Concurrency: 1, ChunkSize: 10, StartAfter: sorted[1].ID})
	prog, err := m.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	// Only the two concepts after the cursor are picked up.
	if prog.Scanned != 2 || prog.Updated != 2 {
		t.Fatalf("cursor resume wrong: %+v", prog)
	}
	if sorted[0].EmbedModel != "old-model" || sorted[1].EmbedModel != "old-model" {
		t.Fatalf("rows before the cursor were touched")
	}
}

func TestRunProviderFailureSkipsChunkAndAdvances(t *testing.T) {
	ontologyID := uuid.New()
	store := seedStore(3, 0, ontologyID)

	m := NewMigrator(testLogger(t), &stubEmbedder{fail: true}, store, &recordingInvalidator{}, Config{BatchSize: 2, Concurrency: 1, ChunkSize: 2})
	prog, err := m.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	// The run terminates despite every chunk failing: the cursor advances
	// past failed rows and a later run retries them.
	if !prog.Complete || prog.Scanned != 3 || prog.Updated != 0 || prog.Failed != 3 {
		t.Fatalf("unexpected progress: %+v", prog)
	}
	for _, c := range store.rows {
		if c.EmbedModel != "old-model" {
			t.Fatalf("failed chunk still updated %s", c.Label)
		}
	}
}
