package redisdb

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/aletheia-labs/graphweave/internal/platform/logger"
)

// ScoreArtifact is a cached grounding or diversity result. Scores are never
// durable truth: the artifact carries the vocabulary version and embedding
// model it was computed against, and readers discard it when either moved on.
type ScoreArtifact struct {
	ConceptID    string    `json:"concept_id"`
	Kind         string    `json:"kind"` // "grounding" | "diversity"
	Value        float64   `json:"value"`
	VocabVersion int64     `json:"vocab_version"`
	EmbedModel   string    `json:"embed_model"`
	ComputedAt   time.Time `json:"computed_at"`
}

type Client struct {
	rdb *goredis.Client
	log *logger.Logger
	ttl time.Duration
}

// NewFromEnv returns (nil, nil) when REDIS_ADDR is unset; the score cache is
// advisory and every score is recomputable from graph + vocabulary state.
func NewFromEnv(log *logger.Logger) (*Client, error) {
	if log == nil {
		return nil, fmt.Errorf("redisdb: logger required")
	}

	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, nil
	}

	ttl := 10 * time.Minute
	if v := strings.TrimSpace(os.Getenv("REDIS_SCORE_TTL_SECONDS")); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			ttl = time.Duration(parsed) * time.Second
		}
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    os.Getenv("REDIS_PASSWORD"),
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redisdb: ping: %w", err)
	}

	return &Client{
		rdb: rdb,
		log: log.With("client", "RedisDB"),
		ttl: ttl,
	}, nil
}

func scoreKey(kind, conceptID string, vocabVersion int64) string {
	return fmt.Sprintf("graphweave:score:%s:%s:v%d", kind, conceptID, vocabVersion)
}

// GetScore returns (nil, nil) on a miss or any cache error; callers compute fresh.
func (c *Client) GetScore(ctx context.Context, kind, conceptID string, vocabVersion int64) (*ScoreArtifact, error) {
	if c == nil || c.rdb == nil {
		return nil, nil
	}
	raw, err := c.rdb.Get(ctx, scoreKey(kind, conceptID, vocabVersion)).Bytes()
	if err == goredis.Nil {
		return nil, nil
	}
	if err != nil {
		c.log.Warn("score cache read failed", "kind", kind, "error", err)
		return nil, nil
	}
	var art ScoreArtifact
	if err := json.Unmarshal(raw, &art); err != nil {
		return nil, nil
	}
	return &art, nil
}

func (c *Client) PutScore(ctx context.Context, art ScoreArtifact) {
	if c == nil || c.rdb == nil {
		return
	}
	raw, err := json.Marshal(art)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, scoreKey(art.Kind, art.ConceptID, art.VocabVersion), raw, c.ttl).Err(); err != nil {
		c.log.Warn("score cache write failed", "kind", art.Kind, "error", err)
	}
}

func (c *Client) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}
