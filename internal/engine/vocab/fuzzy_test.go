package vocab

import (
	"math"
	"testing"
)

func TestSequenceRatio(t *testing.T) {
	if got := sequenceRatio("SUPPORTS", "SUPPORTS"); got != 1 {
		t.Fatalf("identical strings: got %v, want 1", got)
	}
	if got := sequenceRatio("", ""); got != 1 {
		t.Fatalf("two empty strings: got %v, want 1", got)
	}
	if got := sequenceRatio("SUPPORTS", ""); got != 0 {
		t.Fatalf("one empty string: got %v, want 0", got)
	}

	// One transposed letter should stay close to 1.
	if got := sequenceRatio("SUPPORTS", "SUPPROTS"); got < 0.75 {
		t.Fatalf("near-typo too dissimilar: got %v", got)
	}

	// Unrelated names must land well below the default 0.7 threshold.
	if got := sequenceRatio("CAUSES", "PART_OF"); got >= 0.7 {
		t.Fatalf("unrelated names too similar: got %v", got)
	}

	// Symmetry.
	a, b := sequenceRatio("PRECEDES", "PREVENTS"), sequenceRatio("PREVENTS", "PRECEDES")
	if math.Abs(a-b) > 1e-12 {
		t.Fatalf("asymmetric ratio: %v vs %v", a, b)
	}
}
