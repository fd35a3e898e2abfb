package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codescope-dev/codescope/pkg/types"
)

const (
	// DefaultOllamaHost is the local Ollama endpoint.
	DefaultOllamaHost = "http://localhost:11434"

	// DefaultOllamaModel is the embedding model requested by default.
	DefaultOllamaModel = "nomic-embed-text"

	// DefaultOllamaDimension is the vector size of the default model.
	DefaultOllamaDimension = 768

	maxRetries     = 3
	initialBackoff = 100 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// OllamaProvider generates embeddings through a local Ollama server.
type OllamaProvider struct {
	host       string
	model      string
	dimension  int
	httpClient *http.Client
}

// NewOllamaProvider creates a provider against host (empty means
// DefaultOllamaHost) using model (empty means DefaultOllamaModel).
func NewOllamaProvider(host, model string, dimension int) *OllamaProvider {
	if host == "" {
		host = DefaultOllamaHost
	}
	if model == "" {
		model = DefaultOllamaModel
	}
	if dimension <= 0 {
		dimension = DefaultOllamaDimension
	}
	return &OllamaProvider{
		host:      host,
		model:     model,
		dimension: dimension,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Embed returns the embedding for a single text.
func (p *OllamaProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 {
		return nil, fmt.Errorf("%w: ollama returned no embeddings", types.ErrEmbeddingUnavailable)
	}
	return vecs[0], nil
}

// EmbedBatch returns one normalized vector per input text. Transient
// failures are retried with exponential backoff; persistent failure
// wraps ErrEmbeddingUnavailable so callers can degrade to lexical
// search.
func (p *OllamaProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var vecs [][]float32
	var err error
	backoff := initialBackoff
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			log.Debug().
				Int("attempt", attempt).
				Dur("backoff", backoff).
				Msg("retrying ollama embedding request")
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
		}
		vecs, err = p.callAPI(ctx, texts)
		if err == nil {
			return vecs, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return nil, fmt.Errorf("%w: %v", types.ErrEmbeddingUnavailable, err)
}

type ollamaEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type ollamaEmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

func (p *OllamaProvider) callAPI(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(ollamaEmbedRequest{
		Model: p.model,
		Input: texts,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.host+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("ollama status %d: %s", resp.StatusCode, snippet)
	}

	var parsed ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Embeddings) != len(texts) {
		return nil, fmt.Errorf("ollama returned %d embeddings for %d texts", len(parsed.Embeddings), len(texts))
	}
	for i := range parsed.Embeddings {
		parsed.Embeddings[i] = Normalize(parsed.Embeddings[i])
	}
	return parsed.Embeddings, nil
}

// Dimension returns the configured vector dimension.
func (p *OllamaProvider) Dimension() int { return p.dimension }

// Name identifies this provider in logs and status output.
func (p *OllamaProvider) Name() string { return "ollama/" + p.model }

// Close is a no-op; the HTTP client holds no persistent resources.
func (p *OllamaProvider) Close() error { return nil }
