package reembed

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"

	types "github.com/aletheia-labs/graphweave/internal/domain"
	"github.com/aletheia-labs/graphweave/internal/pkg/dbctx"
	"github.com/aletheia-labs/graphweave/internal/platform/envutil"
	"github.com/aletheia-labs/graphweave/internal/platform/logger"
	"github.com/aletheia-labs/graphweave/internal/platform/openai"
)

type Embedder interface {
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
	ModelInfo() openai.ModelInfo
}

type ConceptStore interface {
	GetByEmbedModelNot(dbc dbctx.Context, model string, afterID uuid.UUID, limit int) ([]*types.Concept, error)
	UpdateEmbedding(dbc dbctx.Context, id uuid.UUID, embedding datatypes.JSON, model string, dims int) error
}

// IndexInvalidator drops any in-memory search state for an ontology after its
// concepts change under it.
type IndexInvalidator interface {
	InvalidateOntology(ontologyID uuid.UUID)
}

type Config struct {
	// BatchSize is how many concepts one checkpointed pass claims.
	BatchSize int
	// Concurrency bounds parallel provider calls within a batch.
	Concurrency int
	// ChunkSize is how many texts go into one provider call.
	ChunkSize int
	// StartAfter resumes a previous run from its reported cursor.
	StartAfter uuid.UUID
}

func ConfigFromEnv(log *logger.Logger) Config {
	return Config{
		BatchSize:   envutil.GetEnvAsInt("REEMBED_BATCH_SIZE", 200, log),
		Concurrency: envutil.GetEnvAsInt("REEMBED_CONCURRENCY", 4, log),
		ChunkSize:   envutil.GetEnvAsInt("REEMBED_CHUNK_SIZE", 64, log),
	}
}

// Progress is the durable state of a run. LastID is the resume cursor: feed
// it back as StartAfter to continue an interrupted migration.
type Progress struct {
	Scanned  int       `json:"scanned"`
	Updated  int       `json:"updated"`
	Failed   int       `json:"failed"`
	LastID   uuid.UUID `json:"last_id"`
	Complete bool      `json:"complete"`
}

// Migrator re-embeds every concept whose stored vector came from a different
// model than the active one. The index for a touched ontology is invalidated
// after each batch, never mid-batch, so searches stay against a coherent
// snapshot.
type Migrator struct {
	log      *logger.Logger
	emb      Embedder
	concepts ConceptStore
	inval    IndexInvalidator
	cfg      Config
}

func NewMigrator(log *logger.Logger, emb Embedder, concepts ConceptStore, inval IndexInvalidator, cfg Config) *Migrator {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 200
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 64
	}
	return &Migrator{
		log:      log.With("job", "ReembedMigrator"),
		emb:      emb,
		concepts: concepts,
		inval:    inval,
		cfg:      cfg,
	}
}

// Run walks the backlog in id order until it drains or the context cancels.
// Cancellation is honored between batches so a partially processed batch is
// never left with mixed-model rows unaccounted for.
func (m *Migrator) Run(ctx context.Context) (*Progress, error) {
	info := m.emb.ModelInfo()
	prog := &Progress{LastID: m.cfg.StartAfter}

	for {
		select {
		case <-ctx.Done():
			m.log.Info("re-embed interrupted", "scanned", prog.Scanned, "updated", prog.Updated, "cursor", prog.LastID.String())
			return prog, ctx.Err()
		default:
		}

		rows, err := m.concepts.GetByEmbedModelNot(dbctx.Context{Ctx: ctx}, info.Model, prog.LastID, m.cfg.BatchSize)
		if err != nil {
			return prog, fmt.Errorf("load re-embed batch: %w", err)
		}
		if len(rows) == 0 {
			prog.Complete = true
			m.log.Info("re-embed complete", "scanned", prog.Scanned, "updated", prog.Updated, "failed", prog.Failed, "model", info.Model)
			return prog, nil
		}

		updated, failed, touched := m.processBatch(ctx, rows, info)
		prog.Scanned += len(rows)
		prog.Updated += updated
		prog.Failed += failed
		prog.LastID = rows[len(rows)-1].ID

		for ontID := range touched {
			m.inval.InvalidateOntology(ontID)
		}

		m.log.Info("re-embed batch done",
			"batch", len(rows),
			"updated", updated,
			"failed", failed,
			"cursor", prog.LastID.String(),
		)
	}
}

// processBatch embeds the batch in bounded-parallel chunks. A chunk failing
// skips only its own rows; they stay on the old model and a later run
// retries them.
func (m *Migrator) processBatch(ctx context.Context, rows []*types.Concept, info openai.ModelInfo) (updated, failed int, touched map[uuid.UUID]bool) {
	touched = map[uuid.UUID]bool{}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.cfg.Concurrency)

	for start := 0; start < len(rows); start += m.cfg.ChunkSize {
		end := start + m.cfg.ChunkSize
		if end > len(rows) {
			end = len(rows)
		}
		chunk := rows[start:end]

		g.Go(func() error {
			inputs := make([]string, len(chunk))
			for i, c := range chunk {
				inputs[i] = embedText(c)
			}
			vecs, err := m.emb.Embed(gctx, inputs)
			if err != nil {
				m.log.Warn("re-embed chunk failed", "size", len(chunk), "error", err)
				mu.Lock()
				failed += len(chunk)
				mu.Unlock()
				return nil
			}
			for i, c := range chunk {
				err := m.concepts.UpdateEmbedding(dbctx.Context{Ctx: gctx}, c.ID, types.EncodeEmbedding(vecs[i]), info.Model, info.Dims)
				mu.Lock()
				if err != nil {
					m.log.Warn("re-embed update failed", "concept_id", c.ID.String(), "error", err)
					failed++
				} else {
					updated++
					touched[c.OntologyID] = true
				}
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return updated, failed, touched
}

func embedText(c *types.Concept) string {
	parts := []string{c.Label}
	parts = append(parts, types.DecodeStrings(c.SearchTerms)...)
	out := parts[0]
	for _, p := range parts[1:] {
		if p != "" {
			out += " " + p
		}
	}
	return out
}
