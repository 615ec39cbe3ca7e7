package vocab

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	types "github.com/aletheia-labs/graphweave/internal/domain"
	"github.com/aletheia-labs/graphweave/internal/pkg/dbctx"
	pkgerrors "github.com/aletheia-labs/graphweave/internal/pkg/errors"
	"github.com/aletheia-labs/graphweave/internal/pkg/vecmath"
	"github.com/aletheia-labs/graphweave/internal/platform/envutil"
	"github.com/aletheia-labs/graphweave/internal/platform/logger"
	"github.com/aletheia-labs/graphweave/internal/platform/openai"
)

type Embedder interface {
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
	ModelInfo() openai.ModelInfo
}

type Store interface {
	ListActive(dbc dbctx.Context) ([]*types.VocabularyType, error)
	UpsertByName(dbc dbctx.Context, row *types.VocabularyType) (*types.VocabularyType, bool, error)
	IncrementUsage(dbc dbctx.Context, name string) error
}

type Config struct {
	// FuzzyThreshold gates the last-resort sequence-similarity stage.
	FuzzyThreshold float64
	// CategoryThreshold gates category assignment for new registrations.
	CategoryThreshold float64
}

func ConfigFromEnv(log *logger.Logger) Config {
	return Config{
		FuzzyThreshold:    envutil.GetEnvAsFloat("VOCAB_FUZZY_THRESHOLD", 0.7, log),
		CategoryThreshold: envutil.GetEnvAsFloat("VOCAB_CATEGORY_THRESHOLD", 0.75, log),
	}
}

// Normalization is the outcome of mapping one raw label onto the vocabulary.
type Normalization struct {
	CanonicalType string  `json:"canonical_type"`
	Category      string  `json:"category"`
	Confidence    float64 `json:"confidence"`
	Stage         string  `json:"stage"`
	Created       bool    `json:"created"`
}

// Service is the in-process view of the relationship vocabulary: an
// append-mostly registry with a monotonically increasing version counter.
// Readers work off snapshots, so the vocabulary growing mid-lookup is safe.
type Service struct {
	log   *logger.Logger
	emb   Embedder
	store Store
	cfg   Config
	seeds SeedConfig

	mu      sync.RWMutex
	entries map[string]*types.VocabularyType
	names   []string
	version int64
}

func NewService(log *logger.Logger, emb Embedder, store Store, cfg Config, seeds SeedConfig) *Service {
	return &Service{
		log:     log.With("service", "VocabularyService"),
		emb:     emb,
		store:   store,
		cfg:     cfg,
		seeds:   seeds,
		entries: map[string]*types.VocabularyType{},
	}
}

// Load hydrates the snapshot from storage. Call once at startup, after
// SeedBuiltins.
func (s *Service) Load(ctx context.Context) error {
	rows, err := s.store.ListActive(dbctx.Context{Ctx: ctx})
	if err != nil {
		return fmt.Errorf("load vocabulary: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]*types.VocabularyType, len(rows))
	s.names = s.names[:0]
	for _, row := range rows {
		if row == nil || row.Name == "" {
			continue
		}
		s.entries[row.Name] = row
		s.names = append(s.names, row.Name)
	}
	sort.Strings(s.names)
	s.version++
	s.log.Info("vocabulary loaded", "types", len(s.names), "version", s.version)
	return nil
}

// SeedBuiltins registers any missing builtin types. Embeddings for missing
// builtins go out as one provider call.
func (s *Service) SeedBuiltins(ctx context.Context) error {
	existing, err := s.store.ListActive(dbctx.Context{Ctx: ctx})
	if err != nil {
		return fmt.Errorf("seed builtins: %w", err)
	}
	have := map[string]bool{}
	for _, row := range existing {
		if row != nil {
			have[row.Name] = true
		}
	}

	missing := make([]SeedType, 0, len(s.seeds.Builtins))
	inputs := make([]string, 0, len(s.seeds.Builtins))
	for _, seed := range s.seeds.Builtins {
		name := NormalizeTypeName(seed.Name)
		if name == "" || have[name] {
			continue
		}
		missing = append(missing, SeedType{Name: name, Category: seed.Category})
		inputs = append(inputs, embedInput(name))
	}
	if len(missing) == 0 {
		return nil
	}

	vecs, err := s.emb.Embed(ctx, inputs)
	if err != nil {
		return fmt.Errorf("embed builtin vocabulary: %w", err)
	}
	info := s.emb.ModelInfo()
	for i, seed := range missing {
		row := &types.VocabularyType{
			ID:         uuid.New(),
			Name:       seed.Name,
			Category:   seed.Category,
			Embedding:  types.EncodeEmbedding(vecs[i]),
			EmbedModel: info.Model,
			IsBuiltin:  true,
			IsActive:   true,
		}
		if _, _, err := s.store.UpsertByName(dbctx.Context{Ctx: ctx}, row); err != nil {
			return fmt.Errorf("seed builtin %s: %w", seed.Name, err)
		}
	}
	s.log.Info("builtin vocabulary seeded", "added", len(missing))
	return nil
}

// Version is the change counter: bumped on every load and every registration.
func (s *Service) Version() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Embedding returns the stored vector for a canonical type name.
func (s *Service) Embedding(name string) ([]float32, bool) {
	s.mu.RLock()
	row, ok := s.entries[name]
	s.mu.RUnlock()
	if !ok || row == nil {
		return nil, false
	}
	return types.DecodeEmbedding(row.Embedding)
}

func (s *Service) snapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, len(s.names))
	copy(names, s.names)
	return &Snapshot{Names: names, Version: s.version}
}

// Normalize maps a raw extracted relationship label onto a canonical
// vocabulary entry, registering a new one when the whole cascade misses.
func (s *Service) Normalize(ctx context.Context, rawType string) (Normalization, error) {
	name := NormalizeTypeName(rawType)
	if name == "" {
		return Normalization{}, fmt.Errorf("empty relationship type: %w", pkgerrors.ErrInvalidArgument)
	}

	snap := s.snapshot()
	for _, m := range cascade() {
		res, err := m.fn(name, snap, s.cfg)
		if err != nil {
			return Normalization{}, err
		}
		if res == nil {
			continue
		}
		if err := s.store.IncrementUsage(dbctx.Context{Ctx: ctx}, res.CanonicalType); err != nil {
			s.log.Warn("usage counter bump failed", "type", res.CanonicalType, "error", err)
		}
		return Normalization{
			CanonicalType: res.CanonicalType,
			Category:      s.categoryOf(res.CanonicalType),
			Confidence:    res.Confidence,
			Stage:         res.Stage,
		}, nil
	}

	return s.register(ctx, name)
}

func (s *Service) register(ctx context.Context, name string) (Normalization, error) {
	vecs, err := s.emb.Embed(ctx, []string{embedInput(name)})
	if err != nil {
		return Normalization{}, fmt.Errorf("embed new vocabulary type %q: %w", name, err)
	}
	vec := vecs[0]
	category := s.categorize(vec)
	info := s.emb.ModelInfo()

	row := &types.VocabularyType{
		ID:         uuid.New(),
		Name:       name,
		Category:   category,
		Embedding:  types.EncodeEmbedding(vec),
		EmbedModel: info.Model,
		IsBuiltin:  false,
		IsActive:   true,
		UsageCount: 1,
	}
	winner, created, err := s.store.UpsertByName(dbctx.Context{Ctx: ctx}, row)
	if err != nil {
		return Normalization{}, fmt.Errorf("register vocabulary type %q: %w", name, err)
	}
	if !created {
		// Lost the race: another extraction registered the same name first.
		// Discard our embedding and adopt the winner's row.
		s.log.Info("vocabulary registration converged on existing row", "type", winner.Name)
	}

	s.mu.Lock()
	if _, ok := s.entries[winner.Name]; !ok {
		s.entries[winner.Name] = winner
		s.names = append(s.names, winner.Name)
		sort.Strings(s.names)
	}
	if created {
		s.version++
	}
	s.mu.Unlock()

	return Normalization{
		CanonicalType: winner.Name,
		Category:      winner.Category,
		Confidence:    1.0,
		Stage:         "registered",
		Created:       created,
	}, nil
}

// categorize assigns the category whose exemplar embeddings sit closest to
// the new type's vector, when that closeness clears the threshold.
func (s *Service) categorize(vec []float32) string {
	bestCategory := "general"
	bestScore := 0.0

	categories := make([]string, 0, len(s.seeds.Categories))
	for cat := range s.seeds.Categories {
		categories = append(categories, cat)
	}
	sort.Strings(categories)

	for _, cat := range categories {
		var sum float64
		var n int
		for _, exemplar := range s.seeds.Categories[cat] {
			ev, ok := s.Embedding(NormalizeTypeName(exemplar))
			if !ok {
				continue
			}
			sum += vecmath.Cosine(vec, ev)
			n++
		}
		if n == 0 {
			continue
		}
		mean := sum / float64(n)
		if mean > bestScore {
			bestScore = mean
			bestCategory = cat
		}
	}
	if bestScore < s.cfg.CategoryThreshold {
		return "general"
	}
	return bestCategory
}

func (s *Service) categoryOf(name string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if row, ok := s.entries[name]; ok && row != nil {
		return row.Category
	}
	return "general"
}

// embedInput is the text embedded for a type name: the human-readable form
// carries more semantics than UPPER_SNAKE.
func embedInput(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, "_", " "))
}
