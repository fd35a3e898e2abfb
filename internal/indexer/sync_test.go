package indexer

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codescope-dev/codescope/internal/discovery"
	"github.com/codescope-dev/codescope/internal/embed"
	"github.com/codescope-dev/codescope/internal/extract"
	"github.com/codescope-dev/codescope/internal/index"
	"github.com/codescope-dev/codescope/pkg/types"
)

// trackingProvider wraps the static provider and records every text it
// is asked to embed.
type trackingProvider struct {
	inner embed.Provider

	mu    sync.Mutex
	texts []string
	fail  bool
	gate  chan struct{} // non-nil blocks EmbedBatch until closed
}

func newTrackingProvider() *trackingProvider {
	return &trackingProvider{inner: embed.NewStaticProvider(32)}
}

func (p *trackingProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (p *trackingProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	p.mu.Lock()
	gate := p.gate
	fail := p.fail
	p.texts = append(p.texts, texts...)
	p.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if fail {
		return nil, types.ErrEmbeddingUnavailable
	}
	return p.inner.EmbedBatch(ctx, texts)
}

func (p *trackingProvider) Dimension() int { return p.inner.Dimension() }
func (p *trackingProvider) Name() string   { return "tracking" }
func (p *trackingProvider) Close() error   { return nil }

func (p *trackingProvider) embedded() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.texts)
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newTestIndexer(provider embed.Provider, opts Options) *Indexer {
	finder := discovery.NewFinder(nil)
	return New(finder, extract.New(0), provider, nil, opts)
}

const authSrc = `function login(user, pass) {
	return check(user, pass);
}

function logout(session) {
	session.destroy();
}
`

const mathSrc = `export function add(a, b) {
	return a + b;
}
`

func TestSyncInitial(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "auth.js", authSrc)
	writeFile(t, dir, "math.js", mathSrc)

	provider := newTrackingProvider()
	ix := newTestIndexer(provider, Options{})

	idx, stats, err := ix.Sync(context.Background(), []string{dir}, index.New())
	require.NoError(t, err)

	// Two file chunks plus three functions.
	assert.Equal(t, 5, idx.Len())
	assert.Equal(t, 5, stats.TotalChunks)
	assert.Equal(t, 5, stats.NewChunks)
	assert.Equal(t, 5, stats.Reembedded)
	assert.Equal(t, 2, stats.FilesScanned)
	assert.False(t, stats.NoOp)

	for _, c := range idx.All() {
		assert.NotNil(t, c.Embedding, "chunk %s should be embedded", c.Name)
	}
	assert.False(t, idx.SyncedAt().IsZero())
}

func TestSyncSecondPassIsNoOp(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "auth.js", authSrc)

	provider := newTrackingProvider()
	ix := newTestIndexer(provider, Options{})
	ctx := context.Background()

	first, _, err := ix.Sync(ctx, []string{dir}, index.New())
	require.NoError(t, err)
	before := provider.embedded()

	second, stats, err := ix.Sync(ctx, []string{dir}, first)
	require.NoError(t, err)

	assert.True(t, stats.NoOp)
	assert.Same(t, first, second)
	assert.Equal(t, 0, stats.Reembedded)
	assert.Equal(t, before, provider.embedded(), "no-op pass must not embed anything")
}

func TestSyncReembedsOnlyChangedFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "auth.js", authSrc)
	mathPath := writeFile(t, dir, "math.js", mathSrc)

	provider := newTrackingProvider()
	ix := newTestIndexer(provider, Options{})
	ctx := context.Background()

	first, _, err := ix.Sync(ctx, []string{dir}, index.New())
	require.NoError(t, err)
	before := provider.embedded()

	changed := mathSrc + `
export function subtract(a, b) {
	return a - b;
}
`
	require.NoError(t, os.WriteFile(mathPath, []byte(changed), 0o644))
	future := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(mathPath, future, future))

	second, stats, err := ix.Sync(ctx, []string{dir}, first)
	require.NoError(t, err)
	assert.False(t, stats.NoOp)

	// math.js now has file + add + subtract; only those three change.
	assert.Equal(t, 3, stats.Reembedded)
	assert.Equal(t, 3, provider.embedded()-before)
	assert.Equal(t, 6, second.Len())

	// auth.js chunks kept their identity and embeddings.
	loginID := types.ChunkID(types.KindFunction, "login", filepath.Join(dir, "auth.js"))
	login, ok := second.Get(loginID)
	require.True(t, ok)
	assert.NotNil(t, login.Embedding)
}

func TestSyncStableIDAcrossBodyEdit(t *testing.T) {
	dir := t.TempDir()
	authPath := writeFile(t, dir, "auth.js", authSrc)

	provider := newTrackingProvider()
	ix := newTestIndexer(provider, Options{})
	ctx := context.Background()

	first, _, err := ix.Sync(ctx, []string{dir}, index.New())
	require.NoError(t, err)
	loginID := types.ChunkID(types.KindFunction, "login", authPath)
	_, ok := first.Get(loginID)
	require.True(t, ok)

	edited := `function login(user, pass) {
	audit(user);
	return check(user, pass);
}

function logout(session) {
	session.destroy();
}
`
	require.NoError(t, os.WriteFile(authPath, []byte(edited), 0o644))
	future := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(authPath, future, future))

	second, stats, err := ix.Sync(ctx, []string{dir}, first)
	require.NoError(t, err)

	login, ok := second.Get(loginID)
	require.True(t, ok, "body edit must not change the chunk identity")
	assert.Contains(t, login.Text, "audit(user)")
	assert.Equal(t, 0, stats.DeletedChunks)
}

func TestSyncDeletedFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "auth.js", authSrc)
	mathPath := writeFile(t, dir, "math.js", mathSrc)

	provider := newTrackingProvider()
	ix := newTestIndexer(provider, Options{})
	ctx := context.Background()

	first, _, err := ix.Sync(ctx, []string{dir}, index.New())
	require.NoError(t, err)
	require.Equal(t, 5, first.Len())

	require.NoError(t, os.Remove(mathPath))

	second, stats, err := ix.Sync(ctx, []string{dir}, first)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.DeletedChunks, "file chunk and function chunk of math.js")
	assert.Equal(t, 3, second.Len())
	assert.Empty(t, second.File(mathPath))
}

func TestSyncOversizedFileSkipped(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "auth.js", authSrc)

	provider := newTrackingProvider()
	ix := newTestIndexer(provider, Options{MaxFileBytes: 8})

	idx, stats, err := ix.Sync(context.Background(), []string{dir}, index.New())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.FilesSkipped)
	assert.Equal(t, 0, idx.Len())
}

// stripEmbeddings rebuilds an index from vectorless copies of its
// chunks, the shape a snapshot has right after being loaded from the
// store.
func stripEmbeddings(t *testing.T, idx *index.Index) *index.Index {
	t.Helper()
	stripped := make([]*types.Chunk, 0, idx.Len())
	for _, c := range idx.All() {
		cp := *c
		cp.Embedding = nil
		stripped = append(stripped, &cp)
	}
	cold, err := index.Build(stripped, idx.SyncedAt())
	require.NoError(t, err)
	return cold
}

func TestSyncRehydratesColdSnapshot(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "auth.js", authSrc)
	writeFile(t, dir, "math.js", mathSrc)

	provider := newTrackingProvider()
	ix := newTestIndexer(provider, Options{})
	ctx := context.Background()

	first, _, err := ix.Sync(ctx, []string{dir}, index.New())
	require.NoError(t, err)
	cold := stripEmbeddings(t, first)
	before := provider.embedded()

	// Files are untouched, so only the vectors need recomputing.
	warm, stats, err := ix.Sync(ctx, []string{dir}, cold)
	require.NoError(t, err)

	assert.False(t, stats.NoOp)
	assert.Equal(t, 5, stats.Reembedded)
	assert.Equal(t, 5, provider.embedded()-before)
	assert.NotSame(t, cold, warm)
	for _, c := range warm.All() {
		assert.NotNil(t, c.Embedding, "chunk %s should be embedded after rehydration", c.Name)
	}
	for _, c := range cold.All() {
		assert.Nil(t, c.Embedding, "the served snapshot must never be written through")
	}

	// Once warm, the pass is a true no-op again.
	again, stats, err := ix.Sync(ctx, []string{dir}, warm)
	require.NoError(t, err)
	assert.True(t, stats.NoOp)
	assert.Same(t, warm, again)
}

func TestSyncRehydrateWaitsOutProviderOutage(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "auth.js", authSrc)

	provider := newTrackingProvider()
	ix := newTestIndexer(provider, Options{})
	ctx := context.Background()

	first, _, err := ix.Sync(ctx, []string{dir}, index.New())
	require.NoError(t, err)
	cold := stripEmbeddings(t, first)

	provider.fail = true
	same, stats, err := ix.Sync(ctx, []string{dir}, cold)
	require.NoError(t, err)
	assert.True(t, stats.NoOp)
	assert.Same(t, cold, same)

	provider.fail = false
	warm, stats, err := ix.Sync(ctx, []string{dir}, cold)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Reembedded)
	for _, c := range warm.All() {
		assert.NotNil(t, c.Embedding)
	}
}

func TestSyncLeavesServedSnapshotUntouched(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "auth.js", authSrc)

	provider := newTrackingProvider()
	provider.fail = true
	ix := newTestIndexer(provider, Options{})
	ctx := context.Background()

	first, _, err := ix.Sync(ctx, []string{dir}, index.New())
	require.NoError(t, err)

	// A new file forces a full pass that reuses the vectorless auth.js
	// chunks while searches may still be reading first.
	writeFile(t, dir, "math.js", mathSrc)
	provider.fail = false

	second, stats, err := ix.Sync(ctx, []string{dir}, first)
	require.NoError(t, err)

	assert.Equal(t, 5, stats.Reembedded)
	for _, c := range second.All() {
		assert.NotNil(t, c.Embedding)
	}
	for _, c := range first.All() {
		assert.Nil(t, c.Embedding, "reused chunks must be copied before embedding")
	}
}

func TestSyncEmbeddingFailureDegrades(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "auth.js", authSrc)

	provider := newTrackingProvider()
	provider.fail = true
	ix := newTestIndexer(provider, Options{})

	idx, stats, err := ix.Sync(context.Background(), []string{dir}, index.New())
	require.NoError(t, err, "embedding failure must not fail the sync")

	assert.Equal(t, 3, idx.Len())
	assert.Equal(t, 0, stats.Reembedded)
	for _, c := range idx.All() {
		assert.Nil(t, c.Embedding)
	}
}

func TestSyncNewlyOversizedFileDropsChunks(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "auth.js", authSrc)
	mathPath := writeFile(t, dir, "math.js", mathSrc)

	provider := newTrackingProvider()
	ix := newTestIndexer(provider, Options{MaxFileBytes: 256})
	ctx := context.Background()

	first, _, err := ix.Sync(ctx, []string{dir}, index.New())
	require.NoError(t, err)
	require.Equal(t, 5, first.Len())

	// Grown past the cap the file can no longer be indexed, so its old
	// chunks must not be served as if they were current.
	grown := mathSrc + strings.Repeat("// generated\n", 40)
	require.NoError(t, os.WriteFile(mathPath, []byte(grown), 0o644))
	future := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(mathPath, future, future))

	second, stats, err := ix.Sync(ctx, []string{dir}, first)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.FilesSkipped)
	assert.Equal(t, 2, stats.DeletedChunks)
	assert.Equal(t, 3, second.Len())
	assert.Empty(t, second.File(mathPath))
}

func TestSyncConcurrentCallsCoalesce(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "auth.js", authSrc)

	provider := newTrackingProvider()
	provider.gate = make(chan struct{})
	ix := newTestIndexer(provider, Options{})
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make([]*index.Index, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		i := i
		go func() {
			defer wg.Done()
			idx, _, err := ix.Sync(ctx, []string{dir}, index.New())
			assert.NoError(t, err)
			results[i] = idx
		}()
	}

	// Let both callers reach the in-flight pass, then release it.
	time.Sleep(100 * time.Millisecond)
	close(provider.gate)
	wg.Wait()

	assert.Same(t, results[0], results[1], "concurrent syncs share one pass")
	assert.Equal(t, 3, provider.embedded(), "the pass runs once")
}

func TestTrySyncSkipsWhenBusy(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "auth.js", authSrc)

	provider := newTrackingProvider()
	ix := newTestIndexer(provider, Options{})

	require.True(t, ix.mu.TryLock())
	_, _, ran, err := ix.TrySync(context.Background(), []string{dir}, index.New())
	ix.mu.Unlock()

	require.NoError(t, err)
	assert.False(t, ran)

	_, stats, ran, err := ix.TrySync(context.Background(), []string{dir}, index.New())
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, 3, stats.TotalChunks)
}
