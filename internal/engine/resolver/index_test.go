package resolver

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestLinearIndexSearchRanksBySimilarity(t *testing.T) {
	ix := NewLinearIndex()
	a, b := uuid.New(), uuid.New()
	ix.Add(Entry{ID: a, Vector: []float32{1, 0, 0}, CreatedAt: time.Now()})
	ix.Add(Entry{ID: b, Vector: []float32{0, 1, 0}, CreatedAt: time.Now()})

	got := ix.Search([]float32{0.9, 0.1, 0}, 2)
	if len(got) != 2 {
		t.Fatalf("got %d matches, want 2", len(got))
	}
	if got[0].ID != a {
		t.Fatalf("best match = %s, want %s", got[0].ID, a)
	}
	if got[0].Score <= got[1].Score {
		t.Fatalf("scores not descending: %v, %v", got[0].Score, got[1].Score)
	}
}

func TestLinearIndexTieBreakPrefersEarlierCreated(t *testing.T) {
	ix := NewLinearIndex()
	older := Entry{ID: uuid.New(), Vector: []float32{1, 0}, CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	newer := Entry{ID: uuid.New(), Vector: []float32{1, 0}, CreatedAt: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)}
	// Insert newer first so ordering cannot come from insertion order.
	ix.Add(newer)
	ix.Add(older)

	got := ix.Search([]float32{1, 0}, 1)
	if len(got) != 1 || got[0].ID != older.ID {
		t.Fatalf("tie-break picked %v, want older entry %s", got, older.ID)
	}
}

func TestLinearIndexTieBreakFallsBackToID(t *testing.T) {
	ts := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	id1 := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	id2 := uuid.MustParse("00000000-0000-0000-0000-000000000002")

	ix := NewLinearIndex()
	ix.Add(Entry{ID: id2, Vector: []float32{0, 1}, CreatedAt: ts})
	ix.Add(Entry{ID: id1, Vector: []float32{0, 1}, CreatedAt: ts})

	got := ix.Search([]float32{0, 1}, 1)
	if len(got) != 1 || got[0].ID != id1 {
		t.Fatalf("tie-break picked %v, want lexically lower id %s", got, id1)
	}
}

func TestLinearIndexIgnoresDuplicatesAndEmpties(t *testing.T) {
	ix := NewLinearIndex()
	id := uuid.New()
	ix.Add(Entry{ID: id, Vector: []float32{1}})
	ix.Add(Entry{ID: id, Vector: []float32{0.5}})
	ix.Add(Entry{ID: uuid.New()}) // no vector
	ix.Add(Entry{Vector: []float32{1}})

	if ix.Len() != 1 {
		t.Fatalf("Len = %d, want 1", ix.Len())
	}
	if !ix.Has(id) {
		t.Fatalf("Has(%s) = false", id)
	}
	if got := ix.Search(nil, 1); got != nil {
		t.Fatalf("empty query returned %v", got)
	}
}
