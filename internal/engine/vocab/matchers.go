package vocab

import (
	"fmt"
	"regexp"
	"strings"

	pkgerrors "github.com/aletheia-labs/graphweave/internal/pkg/errors"
)

// Snapshot is a consistent read of the vocabulary taken at the start of one
// normalization. Registrations landing concurrently are invisible to it,
// which is safe: the registration upsert converges racing writers anyway.
type Snapshot struct {
	Names   []string // sorted, active names
	Version int64
}

type MatchResult struct {
	CanonicalType string  `json:"canonical_type"`
	Confidence    float64 `json:"confidence"`
	Stage         string  `json:"stage"`
}

// matcher is one stage of the normalization cascade: a pure function of the
// raw name and a vocabulary snapshot. Stages run in order and short-circuit
// on the first hit; each stage owns its threshold so thresholds stay
// independently tunable and testable.
type matcher struct {
	name string
	fn   func(raw string, snap *Snapshot, cfg Config) (*MatchResult, error)
}

func cascade() []matcher {
	return []matcher{
		{name: "exact", fn: matchExact},
		{name: "reversed", fn: rejectReversed},
		{name: "prefix", fn: matchPrefix},
		{name: "contains", fn: matchContains},
		{name: "fuzzy", fn: matchFuzzy},
	}
}

var typeNameJunk = regexp.MustCompile(`[^A-Z0-9_]+`)
var underscoreRuns = regexp.MustCompile(`_+`)

// NormalizeTypeName maps a freely-worded label onto the canonical
// UPPER_SNAKE format: "supports claim" -> "SUPPORTS_CLAIM".
func NormalizeTypeName(raw string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	s = strings.NewReplacer(" ", "_", "-", "_", ".", "_").Replace(s)
	s = typeNameJunk.ReplaceAllString(s, "")
	s = underscoreRuns.ReplaceAllString(s, "_")
	return strings.Trim(s, "_")
}

func matchExact(raw string, snap *Snapshot, _ Config) (*MatchResult, error) {
	for _, name := range snap.Names {
		if name == raw {
			return &MatchResult{CanonicalType: name, Confidence: 1.0, Stage: "exact"}, nil
		}
	}
	return nil, nil
}

// rejectReversed refuses "_BY"-suffixed inversions (CAUSED_BY, SUPPORTED_BY).
// Normalizing them onto the forward canonical form would silently flip edge
// direction; the extractor is expected to emit the forward form instead.
func rejectReversed(raw string, _ *Snapshot, _ Config) (*MatchResult, error) {
	if strings.HasSuffix(raw, "_BY") {
		return nil, fmt.Errorf("raw type %q: %w", raw, pkgerrors.ErrReversedRelationshipType)
	}
	return nil, nil
}

// matchPrefix handles truncated forms: the raw type is a strict prefix of
// exactly one canonical name. Ambiguous prefixes fall through.
func matchPrefix(raw string, snap *Snapshot, _ Config) (*MatchResult, error) {
	if len(raw) < 3 {
		return nil, nil
	}
	var hit string
	for _, name := range snap.Names {
		if len(name) > len(raw) && strings.HasPrefix(name, raw) {
			if hit != "" {
				return nil, nil
			}
			hit = name
		}
	}
	if hit == "" {
		return nil, nil
	}
	return &MatchResult{CanonicalType: hit, Confidence: 0.9, Stage: "prefix"}, nil
}

// matchContains handles suffixed or elaborated forms: a canonical name is a
// strict prefix of the raw type. The longest such canonical wins.
func matchContains(raw string, snap *Snapshot, _ Config) (*MatchResult, error) {
	var hit string
	for _, name := range snap.Names {
		if len(raw) > len(name) && strings.HasPrefix(raw, name) && len(name) > len(hit) {
			hit = name
		}
	}
	if hit == "" {
		return nil, nil
	}
	return &MatchResult{CanonicalType: hit, Confidence: 0.85, Stage: "contains"}, nil
}

// matchFuzzy is the last-resort near-typo net. The threshold is deliberately
// high: looser settings merge textually similar but semantically unrelated
// terms.
func matchFuzzy(raw string, snap *Snapshot, cfg Config) (*MatchResult, error) {
	best := ""
	bestScore := 0.0
	// Names is sorted, so equal scores keep the lexically lower name.
	for _, name := range snap.Names {
		score := sequenceRatio(raw, name)
		if score > bestScore {
			best = name
			bestScore = score
		}
	}
	if best == "" || bestScore < cfg.FuzzyThreshold {
		return nil, nil
	}
	return &MatchResult{CanonicalType: best, Confidence: bestScore, Stage: "fuzzy"}, nil
}
