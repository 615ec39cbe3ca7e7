package repos

import (
	"context"
	"testing"

	"github.com/google/uuid"

	types "github.com/aletheia-labs/graphweave/internal/domain"
	"github.com/aletheia-labs/graphweave/internal/data/repos/testutil"
	"github.com/aletheia-labs/graphweave/internal/pkg/dbctx"
)

func TestRelationshipGetTouchingBothDirections(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	log := testutil.Logger(t)
	rels := NewRelationshipRepo(db, log)
	ontologies := NewOntologyRepo(db, log)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}

	ont := seedOntology(t, dbc, ontologies)
	center, other, third := uuid.New(), uuid.New(), uuid.New()

	if _, err := rels.Create(dbc, []*types.Relationship{
		{ID: uuid.New(), OntologyID: ont.ID, FromConceptID: center, ToConceptID: other, TypeName: "SUPPORTS", Confidence: 0.9},
		{ID: uuid.New(), OntologyID: ont.ID, FromConceptID: third, ToConceptID: center, TypeName: "CONTRADICTS", Confidence: 0.8},
		{ID: uuid.New(), OntologyID: ont.ID, FromConceptID: other, ToConceptID: third, TypeName: "CAUSES", Confidence: 0.7},
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	touching, err := rels.GetTouching(dbc, center)
	if err != nil {
		t.Fatalf("get touching: %v", err)
	}
	if len(touching) != 2 {
		t.Fatalf("touching = %d edges, want 2 (inbound and outbound)", len(touching))
	}

	any, err := rels.GetTouchingAny(dbc, []uuid.UUID{center, third})
	if err != nil {
		t.Fatalf("get touching any: %v", err)
	}
	if len(any) != 3 {
		t.Fatalf("touching any = %d edges, want 3", len(any))
	}
}
