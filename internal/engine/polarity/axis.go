package polarity

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	pkgerrors "github.com/aletheia-labs/graphweave/internal/pkg/errors"
	"github.com/aletheia-labs/graphweave/internal/pkg/vecmath"
)

// SeedPair names two vocabulary types spanning one semantic dimension, e.g.
// SUPPORTS vs CONTRADICTS.
type SeedPair struct {
	Positive string `yaml:"positive" json:"positive"`
	Negative string `yaml:"negative" json:"negative"`
}

// Axis is a unit vector through embedding space. It is derived state: always
// recomputed from the current vocabulary, never persisted as truth.
type Axis struct {
	Vector []float32
	Pairs  []SeedPair
}

// VocabularyLookup is the slice of the vocabulary service the axis math
// needs: current embeddings and the change counter.
type VocabularyLookup interface {
	Embedding(name string) ([]float32, bool)
	Version() int64
}

// BuildAxis averages the (positive − negative) embedding differences of the
// seed pairs and normalizes the result to unit length. Pairs whose types are
// missing from the vocabulary are skipped; all pairs missing is an error.
func BuildAxis(vocab VocabularyLookup, pairs []SeedPair) (Axis, error) {
	if len(pairs) == 0 {
		return Axis{}, fmt.Errorf("no polarity seed pairs: %w", pkgerrors.ErrInvalidArgument)
	}

	var sum []float32
	used := make([]SeedPair, 0, len(pairs))
	for _, p := range pairs {
		pos, okPos := vocab.Embedding(p.Positive)
		neg, okNeg := vocab.Embedding(p.Negative)
		if !okPos || !okNeg || len(pos) != len(neg) {
			continue
		}
		if sum == nil {
			sum = make([]float32, len(pos))
		}
		if len(pos) != len(sum) {
			continue
		}
		for i := range sum {
			sum[i] += pos[i] - neg[i]
		}
		used = append(used, p)
	}
	if len(used) == 0 {
		return Axis{}, fmt.Errorf("no seed pair resolved against the vocabulary: %w", pkgerrors.ErrNotFound)
	}

	for i := range sum {
		sum[i] /= float32(len(used))
	}
	return Axis{Vector: vecmath.Normalize(sum), Pairs: used}, nil
}

// EdgeStrength projects a relationship type's embedding onto the axis. Sign
// picks the pole, magnitude how strongly; the value is deliberately not
// clamped.
func EdgeStrength(axis Axis, typeEmbedding []float32) float64 {
	return vecmath.Dot(typeEmbedding, axis.Vector)
}

func DefaultSeedPairs() []SeedPair {
	return []SeedPair{
		{Positive: "SUPPORTS", Negative: "CONTRADICTS"},
		{Positive: "ENABLES", Negative: "PREVENTS"},
	}
}

// LoadSeedPairs reads operator-supplied pairs when path is non-empty.
func LoadSeedPairs(path string) ([]SeedPair, error) {
	if path == "" {
		return DefaultSeedPairs(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read polarity seeds %s: %w", path, err)
	}
	var file struct {
		Pairs []SeedPair `yaml:"pairs"`
	}
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse polarity seeds %s: %w", path, err)
	}
	if len(file.Pairs) == 0 {
		return DefaultSeedPairs(), nil
	}
	return file.Pairs, nil
}
