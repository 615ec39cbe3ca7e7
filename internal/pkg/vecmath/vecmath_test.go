package vecmath

import (
	"math"
	"testing"
)

func TestCosine(t *testing.T) {
	if got := Cosine([]float32{1, 0}, []float32{1, 0}); math.Abs(got-1) > 1e-9 {
		t.Fatalf("identical vectors: got %v, want 1", got)
	}
	if got := Cosine([]float32{1, 0}, []float32{0, 1}); math.Abs(got) > 1e-9 {
		t.Fatalf("orthogonal vectors: got %v, want 0", got)
	}
	if got := Cosine([]float32{1, 0}, []float32{-1, 0}); math.Abs(got+1) > 1e-9 {
		t.Fatalf("opposite vectors: got %v, want -1", got)
	}
	if got := Cosine(nil, []float32{1}); got != 0 {
		t.Fatalf("empty vector: got %v, want 0", got)
	}
	if got := Cosine([]float32{0, 0}, []float32{1, 1}); got != 0 {
		t.Fatalf("zero magnitude: got %v, want 0", got)
	}
}

func TestDot(t *testing.T) {
	if got := Dot([]float32{1, 2, 3}, []float32{4, 5, 6}); math.Abs(got-32) > 1e-9 {
		t.Fatalf("got %v, want 32", got)
	}
	if got := Dot([]float32{2, -3}, []float32{3, 2}); math.Abs(got) > 1e-9 {
		t.Fatalf("orthogonal: got %v, want 0", got)
	}
}

func TestNormalize(t *testing.T) {
	v := Normalize([]float32{3, 4})
	if got := Norm(v); math.Abs(got-1) > 1e-6 {
		t.Fatalf("normalized norm: got %v, want 1", got)
	}
	zero := Normalize([]float32{0, 0})
	if zero[0] != 0 || zero[1] != 0 {
		t.Fatalf("zero vector changed: %v", zero)
	}
}
