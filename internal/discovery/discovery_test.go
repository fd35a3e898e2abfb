package discovery

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestListCandidateFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "src", "app.ts"), "export const a = 1;")
	writeFile(t, filepath.Join(root, "src", "util.js"), "function f() {}")
	writeFile(t, filepath.Join(root, "README.md"), "# readme")
	writeFile(t, filepath.Join(root, "node_modules", "dep", "index.js"), "x")
	writeFile(t, filepath.Join(root, ".git", "config.js"), "x")
	writeFile(t, filepath.Join(root, "dist", "bundle.js"), "x")

	f := NewFinder([]string{".js", ".ts"})
	files, err := f.ListCandidateFiles(root)
	require.NoError(t, err)

	paths := make([]string, 0, len(files))
	for _, fi := range files {
		rel, _ := filepath.Rel(root, fi.Path)
		paths = append(paths, rel)
		assert.False(t, fi.MTime.IsZero())
		assert.Greater(t, fi.Size, int64(0))
	}
	assert.ElementsMatch(t, []string{
		filepath.Join("src", "app.ts"),
		filepath.Join("src", "util.js"),
	}, paths)
}

func TestListCandidateFiles_ExtensionCaseInsensitive(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "A.TS"), "const a = 1;")

	f := NewFinder([]string{".ts"})
	files, err := f.ListCandidateFiles(root)
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestListAll_Deduplicates(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.ts"), "const a = 1;")

	f := NewFinder([]string{".ts"})
	files, err := f.ListAll([]string{root, root})
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestNewestMTime(t *testing.T) {
	assert.True(t, NewestMTime(nil).IsZero())

	now := time.Now()
	files := []FileInfo{
		{Path: "a", MTime: now.Add(-time.Hour)},
		{Path: "b", MTime: now},
		{Path: "c", MTime: now.Add(-time.Minute)},
	}
	assert.Equal(t, now, NewestMTime(files))
}
