package searcher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codescope-dev/codescope/internal/config"
	"github.com/codescope-dev/codescope/internal/embed"
	"github.com/codescope-dev/codescope/internal/index"
	"github.com/codescope-dev/codescope/pkg/types"
)

type failingProvider struct{}

func (failingProvider) Embed(context.Context, string) ([]float32, error) {
	return nil, errors.New("provider down")
}
func (failingProvider) EmbedBatch(context.Context, []string) ([][]float32, error) {
	return nil, errors.New("provider down")
}
func (failingProvider) Dimension() int { return 0 }
func (failingProvider) Name() string   { return "failing" }
func (failingProvider) Close() error   { return nil }

func embeddedIndex(t *testing.T, provider embed.Provider, chunks ...*types.Chunk) *index.Index {
	t.Helper()
	for _, c := range chunks {
		vec, err := provider.Embed(context.Background(), c.Text)
		require.NoError(t, err)
		c.Embedding = vec
	}
	idx, err := index.Build(chunks, time.Unix(200, 0))
	require.NoError(t, err)
	return idx
}

func TestSearchEmptyIndex(t *testing.T) {
	s := New(embed.NewStaticProvider(32), config.Default().Ranking)

	results, err := s.Search(context.Background(), index.New(), "anything", 5)
	require.NoError(t, err, "empty index is not an error")
	assert.Empty(t, results)
}

func TestSearchBlankQuery(t *testing.T) {
	idx := buildIndex(t,
		newChunk(types.KindFunction, "main", "src/main.js", 0, 5, "function main() {}", ""),
	)
	s := New(nil, config.Default().Ranking)

	results, err := s.Search(context.Background(), idx, "   ", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchAddTwoNumbers(t *testing.T) {
	provider := embed.NewStaticProvider(128)
	idx := embeddedIndex(t, provider,
		newChunk(types.KindFunction, "add", "src/math.js", 0, 2,
			"function add(a, b) {\n\treturn a + b;\n}", "// Adds two numbers."),
		newChunk(types.KindFunction, "multiply", "src/math.js", 4, 6,
			"function multiply(a, b) {\n\treturn a * b;\n}", ""),
		newChunk(types.KindClass, "Matrix", "src/matrix.js", 0, 3,
			"class Matrix {", ""),
	)

	s := New(provider, config.Default().Ranking)
	results, err := s.Search(context.Background(), idx, "how do I add two numbers", 3)
	require.NoError(t, err)
	require.NotEmpty(t, results)

	assert.Equal(t, "add", results[0].Name)
	assert.Equal(t, "src/math.js", results[0].File)
	assert.Equal(t, 1, results[0].StartLine)
}

func TestSearchLexicalFallbackOnProviderFailure(t *testing.T) {
	idx := buildIndex(t,
		newChunk(types.KindFunction, "connectWebsocket", "src/ws.js", 0, 12,
			"function connectWebsocket(url) { return new WebSocket(url); }", ""),
	)

	s := New(failingProvider{}, config.Default().Ranking)
	results, err := s.Search(context.Background(), idx, "websocket", 5)
	require.NoError(t, err, "embedding failure must degrade, not fail")
	require.NotEmpty(t, results)
	assert.Equal(t, "connectWebsocket", results[0].Name)
}

func TestSearchUsesDefaultTopK(t *testing.T) {
	chunks := make([]*types.Chunk, 0, 12)
	files := []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l"}
	for i, f := range files {
		chunks = append(chunks, newChunk(types.KindFunction, "handleEvent", "src/"+f+".js", i, i+2,
			"function handleEvent(e) {}", ""))
	}
	idx := buildIndex(t, chunks...)

	s := New(nil, config.Default().Ranking)
	results, err := s.Search(context.Background(), idx, "handleEvent", 0)
	require.NoError(t, err)
	assert.Len(t, results, config.Default().Ranking.DefaultTopK)
}

func TestSearchDeterministic(t *testing.T) {
	provider := embed.NewStaticProvider(64)
	idx := embeddedIndex(t, provider,
		newChunk(types.KindFunction, "saveUser", "src/users.js", 0, 6, "function saveUser(u) { db.put(u); }", ""),
		newChunk(types.KindFunction, "saveSession", "src/sessions.js", 0, 6, "function saveSession(s) { db.put(s); }", ""),
		newChunk(types.KindFunction, "loadUser", "src/users.js", 8, 14, "function loadUser(id) { return db.get(id); }", ""),
	)
	s := New(provider, config.Default().Ranking)

	first, err := s.Search(context.Background(), idx, "save the user", 5)
	require.NoError(t, err)
	second, err := s.Search(context.Background(), idx, "save the user", 5)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
