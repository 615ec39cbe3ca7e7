package repos

import (
	"context"
	"testing"

	"github.com/google/uuid"

	types "github.com/aletheia-labs/graphweave/internal/domain"
	"github.com/aletheia-labs/graphweave/internal/data/repos/testutil"
	"github.com/aletheia-labs/graphweave/internal/pkg/dbctx"
)

func seedOntology(t *testing.T, dbc dbctx.Context, db OntologyRepo) *types.Ontology {
	t.Helper()
	row, err := db.Create(dbc, &types.Ontology{ID: uuid.New(), Name: "test-" + uuid.NewString()})
	if err != nil {
		t.Fatalf("create ontology: %v", err)
	}
	return row
}

func TestConceptGetByEmbedModelNotPaging(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)
	concepts := NewConceptRepo(db, log)
	ontologies := NewOntologyRepo(db, log)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}

	ont := seedOntology(t, dbc, ontologies)
	for i := 0; i < 5; i++ {
		if _, err := concepts.Create(dbc, []*types.Concept{{
			ID:         uuid.New(),
			OntologyID: ont.ID,
			Label:      "stale",
			Embedding:  types.EncodeEmbedding([]float32{1, 0}),
			EmbedModel: "old-model",
			EmbedDims:  2,
		}}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	if _, err := concepts.Create(dbc, []*types.Concept{{
		ID:         uuid.New(),
		OntologyID: ont.ID,
		Label:      "fresh",
		Embedding:  types.EncodeEmbedding([]float32{0, 1}),
		EmbedModel: "new-model",
		EmbedDims:  2,
	}}); err != nil {
		t.Fatalf("create: %v", err)
	}

	var cursor uuid.UUID
	seen := map[uuid.UUID]bool{}
	for {
		page, err := concepts.GetByEmbedModelNot(dbc, "new-model", cursor, 2)
		if err != nil {
			t.Fatalf("page: %v", err)
		}
		if len(page) == 0 {
			break
		}
		for _, c := range page {
			if c.EmbedModel == "new-model" {
				t.Fatalf("current-model row returned: %s", c.ID)
			}
			if seen[c.ID] {
				t.Fatalf("row %s returned twice", c.ID)
			}
			seen[c.ID] = true
		}
		cursor = page[len(page)-1].ID
	}
	if len(seen) != 5 {
		t.Fatalf("paged %d stale rows, want 5", len(seen))
	}
}

func TestConceptUpdateEmbedding(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)
	concepts := NewConceptRepo(db, log)
	ontologies := NewOntologyRepo(db, log)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}

	ont := seedOntology(t, dbc, ontologies)
	rows, err := concepts.Create(dbc, []*types.Concept{{
		ID:         uuid.New(),
		OntologyID: ont.ID,
		Label:      "dopamine",
		Embedding:  types.EncodeEmbedding([]float32{1, 0}),
		EmbedModel: "old-model",
		EmbedDims:  2,
	}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	newVec := []float32{0, 1, 0}
	if err := concepts.UpdateEmbedding(dbc, rows[0].ID, types.EncodeEmbedding(newVec), "new-model", 3); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := concepts.GetByID(dbc, rows[0].ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.EmbedModel != "new-model" || got.EmbedDims != 3 {
		t.Fatalf("model identity not updated: %+v", got)
	}
	vec, ok := types.DecodeEmbedding(got.Embedding)
	if !ok || len(vec) != 3 || vec[1] != 1 {
		t.Fatalf("embedding not updated: %v", vec)
	}
}
