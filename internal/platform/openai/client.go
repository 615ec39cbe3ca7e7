package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	pkgerrors "github.com/aletheia-labs/graphweave/internal/pkg/errors"
	"github.com/aletheia-labs/graphweave/internal/platform/logger"
)

// ModelInfo identifies the embedding model behind a vector so stored and
// freshly computed embeddings are never compared across models silently.
type ModelInfo struct {
	Model string
	Dims  int
}

// Client is the embedding provider used by the upsert engine.
type Client interface {
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
	ModelInfo() ModelInfo
}

type client struct {
	log        *logger.Logger
	baseURL    string
	apiKey     string
	embedModel string
	embedDims  int
	httpClient *http.Client
	maxRetries int
}

var knownEmbedDims = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

func NewClient(log *logger.Logger) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	apiKey := strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	if apiKey == "" {
		return nil, fmt.Errorf("missing OPENAI_API_KEY")
	}

	baseURL := strings.TrimSpace(os.Getenv("OPENAI_BASE_URL"))
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}
	baseURL = strings.TrimRight(baseURL, "/")

	embed := strings.TrimSpace(os.Getenv("OPENAI_EMBED_MODEL"))
	if embed == "" {
		embed = "text-embedding-3-small"
	}

	dims := knownEmbedDims[embed]
	if v := strings.TrimSpace(os.Getenv("OPENAI_EMBED_DIMS")); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			dims = parsed
		}
	}
	if dims <= 0 {
		return nil, fmt.Errorf("unknown embed model %q: set OPENAI_EMBED_DIMS", embed)
	}

	timeoutSec := 60
	if v := os.Getenv("OPENAI_TIMEOUT_SECONDS"); v != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && parsed > 0 {
			timeoutSec = parsed
		}
	}

	maxRetries := 3
	if v := os.Getenv("OPENAI_MAX_RETRIES"); v != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && parsed >= 0 {
			maxRetries = parsed
		}
	}

	return &client{
		log:        log.With("service", "OpenAIClient"),
		baseURL:    baseURL,
		apiKey:     apiKey,
		embedModel: embed,
		embedDims:  dims,
		httpClient: &http.Client{Timeout: time.Duration(timeoutSec) * time.Second},
		maxRetries: maxRetries,
	}, nil
}

func (c *client) ModelInfo() ModelInfo {
	return ModelInfo{Model: c.embedModel, Dims: c.embedDims}
}

type embeddingsRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingsResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

func (c *client) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	if len(inputs) == 0 {
		return [][]float32{}, nil
	}

	clean := make([]string, len(inputs))
	for i := range inputs {
		s := strings.TrimSpace(inputs[i])
		if s == "" {
			s = " "
		}
		clean[i] = s
	}

	req := embeddingsRequest{Model: c.embedModel, Input: clean}

	var resp embeddingsResponse
	if err := c.do(ctx, "POST", "/v1/embeddings", req, &resp); err != nil {
		return nil, err
	}

	out := make([][]float32, len(clean))
	for _, d := range resp.Data {
		vec := make([]float32, len(d.Embedding))
		for i, f := range d.Embedding {
			vec[i] = float32(f)
		}
		if d.Index >= 0 && d.Index < len(out) {
			out[d.Index] = vec
		}
	}

	for i := range out {
		if len(out[i]) == 0 {
			return nil, fmt.Errorf("openai embeddings missing index %d: requested=%d returned=%d model=%s: %w",
				i, len(clean), len(resp.Data), c.embedModel, pkgerrors.ErrProviderUnavailable)
		}
		if len(out[i]) != c.embedDims {
			return nil, fmt.Errorf("openai embeddings returned %d dims, expected %d for model %s: %w",
				len(out[i]), c.embedDims, c.embedModel, pkgerrors.ErrEmbeddingDimsMismatch)
		}
	}
	return out, nil
}

// do posts JSON to the embeddings endpoint with bounded retries and
// exponential backoff. Exhausted retries surface ErrProviderUnavailable.
func (c *client) do(ctx context.Context, method, path string, body any, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("openai: marshal request: %w", err)
	}

	var lastErr error
	backoff := 500 * time.Millisecond
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("openai: %w: %w", ctx.Err(), pkgerrors.ErrProviderUnavailable)
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(raw))
		if err != nil {
			return fmt.Errorf("openai: build request: %w", err)
		}
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
		httpReq.Header.Set("Content-Type", "application/json")

		httpResp, err := c.httpClient.Do(httpReq)
		if err != nil {
			lastErr = err
			c.log.Warn("embeddings request failed", "attempt", attempt+1, "error", err)
			continue
		}

		data, readErr := io.ReadAll(httpResp.Body)
		_ = httpResp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			continue
		}

		if httpResp.StatusCode == http.StatusTooManyRequests || httpResp.StatusCode >= 500 {
			lastErr = fmt.Errorf("openai: status %d: %s", httpResp.StatusCode, truncate(string(data), 200))
			c.log.Warn("embeddings request retryable status", "attempt", attempt+1, "status", httpResp.StatusCode)
			continue
		}
		if httpResp.StatusCode != http.StatusOK {
			return fmt.Errorf("openai: status %d: %s", httpResp.StatusCode, truncate(string(data), 400))
		}

		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("openai: decode response: %w", err)
		}
		return nil
	}

	if lastErr == nil {
		lastErr = errors.New("no attempts made")
	}
	return fmt.Errorf("openai: retries exhausted: %v: %w", lastErr, pkgerrors.ErrProviderUnavailable)
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
