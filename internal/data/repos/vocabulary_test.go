package repos

import (
	"context"
	"testing"

	"github.com/google/uuid"

	types "github.com/aletheia-labs/graphweave/internal/domain"
	"github.com/aletheia-labs/graphweave/internal/data/repos/testutil"
	"github.com/aletheia-labs/graphweave/internal/pkg/dbctx"
)

func TestVocabularyUpsertByName(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	repo := NewVocabularyRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}

	row := &types.VocabularyType{
		ID:        uuid.New(),
		Name:      "SUPPORTS_TEST",
		Category:  "evidential",
		Embedding: types.EncodeEmbedding([]float32{1, 0, 0}),
		IsActive:  true,
	}
	winner, created, err := repo.UpsertByName(dbc, row)
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if !created || winner.ID != row.ID {
		t.Fatalf("first upsert not treated as create: created=%v winner=%s", created, winner.ID)
	}

	// A second writer with the same name loses and gets the winner back.
	loser := &types.VocabularyType{
		ID:        uuid.New(),
		Name:      "SUPPORTS_TEST",
		Category:  "general",
		Embedding: types.EncodeEmbedding([]float32{0, 1, 0}),
		IsActive:  true,
	}
	winner2, created2, err := repo.UpsertByName(dbc, loser)
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if created2 {
		t.Fatalf("conflicting upsert reported created")
	}
	if winner2.ID != row.ID || winner2.Category != "evidential" {
		t.Fatalf("loser did not get winner row: %+v", winner2)
	}
}

func TestVocabularyIncrementUsage(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	repo := NewVocabularyRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}

	row := &types.VocabularyType{
		ID:        uuid.New(),
		Name:      "CAUSES_TEST",
		Category:  "causal",
		Embedding: types.EncodeEmbedding([]float32{1, 0, 0}),
		IsActive:  true,
	}
	if _, _, err := repo.UpsertByName(dbc, row); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	if err := repo.IncrementUsage(dbc, "CAUSES_TEST"); err != nil {
		t.Fatalf("increment: %v", err)
	}
	if err := repo.IncrementUsage(dbc, "CAUSES_TEST"); err != nil {
		t.Fatalf("increment: %v", err)
	}

	got, err := repo.GetByName(dbc, "CAUSES_TEST")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil || got.UsageCount != 2 {
		t.Fatalf("usage count = %+v, want 2", got)
	}
}

func TestVocabularySetActiveFiltersListActive(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	repo := NewVocabularyRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}

	row := &types.VocabularyType{
		ID:        uuid.New(),
		Name:      "DEPRECATED_TEST",
		Category:  "general",
		Embedding: types.EncodeEmbedding([]float32{1, 0, 0}),
		IsActive:  true,
	}
	if _, _, err := repo.UpsertByName(dbc, row); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := repo.SetActive(dbc, "DEPRECATED_TEST", false); err != nil {
		t.Fatalf("set inactive: %v", err)
	}

	active, err := repo.ListActive(dbc)
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	for _, r := range active {
		if r.Name == "DEPRECATED_TEST" {
			t.Fatalf("inactive row still listed as active")
		}
	}
}
