// Package discovery enumerates candidate source files for the indexer. It
// owns the extension allow-list and the standard ignore set (VCS metadata,
// dependency directories, build output); finer-grained ignore policy belongs
// to the caller, not here.
package discovery

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/karrick/godirwalk"
	"github.com/rs/zerolog/log"
)

// FileInfo describes one candidate file. MTime and Size come from the walk
// so the sync fast path needs no second stat pass.
type FileInfo struct {
	Path  string
	MTime time.Time
	Size  int64
}

// ignoredDirs are skipped entirely during the walk.
var ignoredDirs = map[string]bool{
	".git":         true,
	".hg":          true,
	".svn":         true,
	"node_modules": true,
	"vendor":       true,
	"dist":         true,
	"build":        true,
	"out":          true,
	"coverage":     true,
	"__pycache__":  true,
}

// Finder lists candidate files under a set of roots.
type Finder struct {
	extensions map[string]bool
}

// DefaultExtensions is the allow-list used when none is configured.
var DefaultExtensions = []string{".js", ".jsx", ".ts", ".tsx", ".mjs", ".cjs"}

// NewFinder creates a Finder for the given extension allow-list. An
// empty list falls back to DefaultExtensions.
func NewFinder(extensions []string) *Finder {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	allowed := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		allowed[strings.ToLower(ext)] = true
	}
	return &Finder{extensions: allowed}
}

// ListCandidateFiles walks root and returns every allow-listed file that is
// not under an ignored or hidden directory. Unreadable entries are logged
// and skipped; the walk itself only fails if the root is unusable.
func (f *Finder) ListCandidateFiles(root string) ([]FileInfo, error) {
	var files []FileInfo

	err := godirwalk.Walk(root, &godirwalk.Options{
		Unsorted: false,
		Callback: func(path string, de *godirwalk.Dirent) error {
			name := de.Name()
			if de.IsDir() {
				if path != root && (ignoredDirs[name] || strings.HasPrefix(name, ".")) {
					return filepath.SkipDir
				}
				return nil
			}
			if !de.IsRegular() {
				return nil
			}
			if !f.extensions[strings.ToLower(filepath.Ext(name))] {
				return nil
			}

			info, err := os.Stat(path)
			if err != nil {
				log.Warn().Err(err).Str("path", path).Msg("skipping unreadable file")
				return nil
			}
			files = append(files, FileInfo{Path: path, MTime: info.ModTime(), Size: info.Size()})
			return nil
		},
		ErrorCallback: func(path string, err error) godirwalk.ErrorAction {
			log.Warn().Err(err).Str("path", path).Msg("walk error, skipping node")
			return godirwalk.SkipNode
		},
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// ListAll aggregates candidates across multiple roots, deduplicating paths.
func (f *Finder) ListAll(roots []string) ([]FileInfo, error) {
	seen := make(map[string]bool)
	var all []FileInfo
	for _, root := range roots {
		files, err := f.ListCandidateFiles(root)
		if err != nil {
			return nil, err
		}
		for _, fi := range files {
			if seen[fi.Path] {
				continue
			}
			seen[fi.Path] = true
			all = append(all, fi)
		}
	}
	return all, nil
}

// NewestMTime returns the most recent modification time among files. The
// zero time is returned for an empty slice.
func NewestMTime(files []FileInfo) time.Time {
	var newest time.Time
	for _, fi := range files {
		if fi.MTime.After(newest) {
			newest = fi.MTime
		}
	}
	return newest
}
