package embed

import (
	"context"
	"hash/fnv"
	"regexp"
	"strings"
)

// DefaultStaticDimension is the vector size of the static provider.
const DefaultStaticDimension = 256

const (
	staticTokenWeight = 0.7
	staticNgramWeight = 0.3
	staticNgramSize   = 3
)

var staticTokenRe = regexp.MustCompile(`[A-Za-z0-9]+`)

// staticStopWords filters language keywords that carry no identity.
var staticStopWords = map[string]bool{
	"function": true, "const": true, "let": true, "var": true,
	"return": true, "import": true, "export": true, "class": true,
	"async": true, "await": true, "this": true, "new": true,
	"true": true, "false": true, "null": true, "undefined": true,
}

// StaticProvider produces deterministic hash-based embeddings without
// any external service. Semantic quality is limited, but identical
// texts always map to identical vectors, which makes it the offline
// fallback and the test double.
type StaticProvider struct {
	dimension int
}

// NewStaticProvider creates a static provider. A non-positive
// dimension falls back to DefaultStaticDimension.
func NewStaticProvider(dimension int) *StaticProvider {
	if dimension <= 0 {
		dimension = DefaultStaticDimension
	}
	return &StaticProvider{dimension: dimension}
}

// Embed returns a normalized hash-based vector for text. Empty or
// whitespace-only input yields the zero vector.
func (p *StaticProvider) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, p.dimension)
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return vec, nil
	}

	lower := strings.ToLower(trimmed)
	for _, token := range staticTokenRe.FindAllString(lower, -1) {
		if staticStopWords[token] {
			continue
		}
		vec[hashToIndex(token, p.dimension)] += staticTokenWeight
		for i := 0; i+staticNgramSize <= len(token); i++ {
			vec[hashToIndex(token[i:i+staticNgramSize], p.dimension)] += staticNgramWeight
		}
	}
	return Normalize(vec), nil
}

// EmbedBatch embeds each text independently.
func (p *StaticProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := p.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

// Dimension returns the configured vector dimension.
func (p *StaticProvider) Dimension() int { return p.dimension }

// Name identifies this provider.
func (p *StaticProvider) Name() string { return "static" }

// Close is a no-op.
func (p *StaticProvider) Close() error { return nil }

func hashToIndex(s string, dim int) int {
	h := fnv.New32a()
	h.Write([]byte(s))
	return int(h.Sum32() % uint32(dim))
}
