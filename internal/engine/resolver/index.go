package resolver

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/aletheia-labs/graphweave/internal/pkg/vecmath"
)

type Entry struct {
	ID        uuid.UUID
	Vector    []float32
	CreatedAt time.Time
}

type Match struct {
	ID    uuid.UUID
	Score float64
}

// NearestNeighborIndex hides the search strategy from the resolver. The
// in-memory implementation below is an exact linear scan; swapping in an
// approximate index later must not touch resolver call sites.
type NearestNeighborIndex interface {
	Add(e Entry)
	Search(vec []float32, k int) []Match
	Has(id uuid.UUID) bool
	Len() int
}

// linearIndex is an exact O(N) scan. Accurate and simple; acceptable to
// roughly ten thousand concepts per ontology.
type linearIndex struct {
	entries []Entry
	byID    map[uuid.UUID]int
}

func NewLinearIndex() NearestNeighborIndex {
	return &linearIndex{byID: map[uuid.UUID]int{}}
}

func (ix *linearIndex) Add(e Entry) {
	if e.ID == uuid.Nil || len(e.Vector) == 0 {
		return
	}
	if _, ok := ix.byID[e.ID]; ok {
		return
	}
	ix.byID[e.ID] = len(ix.entries)
	ix.entries = append(ix.entries, e)
}

func (ix *linearIndex) Has(id uuid.UUID) bool {
	_, ok := ix.byID[id]
	return ok
}

func (ix *linearIndex) Len() int { return len(ix.entries) }

// Search returns the top k matches by cosine similarity, descending. Exact
// score ties keep the earlier-created entry first so resolution stays
// deterministic across runs.
func (ix *linearIndex) Search(vec []float32, k int) []Match {
	if len(vec) == 0 || len(ix.entries) == 0 || k <= 0 {
		return nil
	}
	type scored struct {
		e     Entry
		score float64
	}
	all := make([]scored, 0, len(ix.entries))
	for _, e := range ix.entries {
		all = append(all, scored{e: e, score: vecmath.Cosine(vec, e.Vector)})
	}
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].score != all[j].score {
			return all[i].score > all[j].score
		}
		if !all[i].e.CreatedAt.Equal(all[j].e.CreatedAt) {
			return all[i].e.CreatedAt.Before(all[j].e.CreatedAt)
		}
		return all[i].e.ID.String() < all[j].e.ID.String()
	})
	if k > len(all) {
		k = len(all)
	}
	out := make([]Match, 0, k)
	for i := 0; i < k; i++ {
		out = append(out, Match{ID: all[i].e.ID, Score: all[i].score})
	}
	return out
}
