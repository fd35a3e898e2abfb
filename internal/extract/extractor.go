// Package extract splits source files into ordered semantic chunks using a
// line scanner with brace-depth tracking. It is deterministic: identical
// input always yields identical chunk boundaries and IDs.
package extract

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codescope-dev/codescope/pkg/types"
)

const (
	// DefaultMaxChunkLines is the hard ceiling on a chunk's span. It keeps
	// degenerate input (minified bundles, generated code) from producing
	// unbounded chunks.
	DefaultMaxChunkLines = 300

	// TruncateOverBytes marks chunks whose text exceeds this size as
	// truncated; only their head is embedded downstream.
	TruncateOverBytes = 8 * 1024
)

// Extractor produces chunks from a single file's text.
type Extractor struct {
	maxChunkLines int
}

// New creates an Extractor. maxChunkLines <= 0 selects the default ceiling.
func New(maxChunkLines int) *Extractor {
	if maxChunkLines <= 0 {
		maxChunkLines = DefaultMaxChunkLines
	}
	return &Extractor{maxChunkLines: maxChunkLines}
}

// unit is a raw declaration span found by the scanner, before it becomes a
// chunk.
type unit struct {
	kind      types.ChunkKind
	name      string
	start     int // 0-based line index
	end       int // inclusive
	exported  bool
	static    bool
	extends   string
	degraded  bool
	importSrc string
}

// Extract scans fileText and returns the ordered chunk list: the synthetic
// file chunk first, then every declaration in source order. It never fails;
// malformed input degrades to coarser chunks.
func (e *Extractor) Extract(fileText, filePath string, mtime time.Time) []*types.Chunk {
	lines := strings.Split(fileText, "\n")
	sc := newScanner(lines)

	units := e.scanTopLevel(sc)

	fileChunk := e.buildFileChunk(lines, filePath, mtime, units)
	chunks := []*types.Chunk{fileChunk}

	for _, u := range units {
		switch u.kind {
		case types.KindClass:
			class := e.buildClassChunk(lines, filePath, mtime, u, fileChunk.ID)
			chunks = append(chunks, class...)
		default:
			chunks = append(chunks, e.buildChunk(lines, filePath, mtime, u, fileChunk.ID, ""))
		}
	}

	// Degenerate input can repeat a declaration shape (two bare imports of
	// the same module, say). The first occurrence wins so the extractor
	// never emits colliding IDs.
	seen := make(map[string]bool, len(chunks))
	deduped := chunks[:0]
	for _, c := range chunks {
		if seen[c.ID] {
			log.Debug().Str("id", c.ID).Str("name", c.Name).Msg("dropping duplicate declaration")
			continue
		}
		seen[c.ID] = true
		deduped = append(deduped, c)
	}
	return deduped
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

// scanTopLevel walks the file at depth zero looking for declaration starts.
func (e *Extractor) scanTopLevel(sc *scanner) []unit {
	var units []unit

	for i := 0; i < len(sc.lines); i++ {
		if sc.depthBefore(i) != 0 || sc.inComment(i) {
			continue
		}
		line := sc.lines[i]

		u, ok := e.matchTopLevel(line)
		if !ok {
			continue
		}
		u.start = i
		u.end = e.closeUnit(sc, i)
		if u.end < 0 {
			u.end = len(sc.lines) - 1
			u.degraded = true
			log.Debug().Err(types.ErrParseDegraded).Int("line", i+1).Msg("chunk force-closed at EOF")
		}
		if u.kind == types.KindImport && u.importSrc == "" {
			// Multi-line imports carry their source on a later line.
			span := strings.Join(sc.lines[u.start:u.end+1], "\n")
			if m := reImportSource.FindStringSubmatch(span); m != nil {
				u.importSrc = m[1]
				u.name = moduleBase(m[1])
			}
		}
		units = append(units, u)
		i = u.end
	}
	return units
}

// matchTopLevel classifies a depth-zero line. Pattern order matters: the
// export keyword prefixes most declaration forms, so the specific shapes are
// tried before the bare export statement.
func (e *Extractor) matchTopLevel(line string) (unit, bool) {
	if m := reFunction.FindStringSubmatch(line); m != nil {
		return unit{kind: types.KindFunction, name: m[3], exported: m[1] != ""}, true
	}
	if m := reClass.FindStringSubmatch(line); m != nil {
		return unit{kind: types.KindClass, name: m[2], exported: m[1] != "", extends: m[3]}, true
	}
	if m := reArrow.FindStringSubmatch(line); m != nil {
		return unit{kind: types.KindFunction, name: m[2], exported: m[1] != ""}, true
	}
	if m := reFuncExpr.FindStringSubmatch(line); m != nil {
		return unit{kind: types.KindFunction, name: m[2], exported: m[1] != ""}, true
	}
	if m := reRequire.FindStringSubmatch(line); m != nil {
		return unit{kind: types.KindImport, name: moduleBase(m[1]), importSrc: m[1]}, true
	}
	if reImport.MatchString(line) {
		src := ""
		if m := reImportSource.FindStringSubmatch(line); m != nil {
			src = m[1]
		}
		return unit{kind: types.KindImport, name: moduleBase(src), importSrc: src}, true
	}
	if reExportStmt.MatchString(line) {
		return unit{kind: types.KindExport, name: exportName(line), exported: true}, true
	}
	return unit{}, false
}

// closeUnit finds the line on which the construct opened at start closes:
// when brace and paren depth return to their level before start and the line
// carries no continuation. Returns -1 when the construct never closes.
func (e *Extractor) closeUnit(sc *scanner, start int) int {
	base := sc.depthBefore(start)
	ceiling := start + e.maxChunkLines - 1

	for i := start; i < len(sc.lines); i++ {
		if i >= ceiling {
			return i
		}
		if sc.depthAfter(i) <= base && sc.parensAfter(i) == 0 {
			if !continues(sc.lines[i]) || i == len(sc.lines)-1 {
				return i
			}
		}
	}
	return -1
}

// continues reports whether a balanced line still awaits more input, e.g. a
// trailing operator or comma in a multi-line expression.
func continues(line string) bool {
	t := strings.TrimSpace(stripLineComment(line))
	if t == "" {
		return false
	}
	for _, suffix := range []string{",", "=>", "=", "+", "-", "*", "/", "&&", "||", "(", "[", ".", ":", "?"} {
		if strings.HasSuffix(t, suffix) {
			return true
		}
	}
	return false
}

// buildChunk materializes a unit into a chunk.
func (e *Extractor) buildChunk(lines []string, filePath string, mtime time.Time, u unit, parentID, qualPrefix string) *types.Chunk {
	text := strings.Join(lines[u.start:u.end+1], "\n")
	qname := u.name
	switch {
	case qualPrefix != "":
		qname = qualPrefix + "." + u.name
	case u.kind == types.KindImport:
		qname = "import:" + firstNonEmpty(u.importSrc, u.name)
	case u.kind == types.KindExport:
		qname = "export:" + u.name
	}

	c := &types.Chunk{
		ID:            types.ChunkID(u.kind, qname, filePath),
		Kind:          u.kind,
		Name:          u.name,
		QualifiedName: qname,
		ParentID:      parentID,
		File:          filePath,
		StartLine:     u.start,
		EndLine:       u.end,
		LineCount:     u.end - u.start + 1,
		Text:          text,
		DocComment:    docCommentAbove(lines, u.start),
		TokenCount:    types.EstimateTokens(text),
		MTime:         mtime,
		Truncated:     len(text) > TruncateOverBytes || u.end-u.start+1 >= e.maxChunkLines,
	}
	c.Meta = buildMeta(u, text)
	return c
}

// buildClassChunk emits the class header chunk plus one chunk per method and
// property. The header chunk spans only the lines before the first member so
// member spans never overlap it; the file-level chunk is the only span
// allowed to contain others.
func (e *Extractor) buildClassChunk(lines []string, filePath string, mtime time.Time, u unit, fileID string) []*types.Chunk {
	members := e.scanClassBody(lines, u)

	headerEnd := u.end
	if len(members) > 0 {
		headerEnd = members[0].start - 1
	}
	header := u
	header.end = headerEnd

	classChunk := e.buildChunk(lines, filePath, mtime, header, fileID, "")
	// Surface the whole class size, not just the header's.
	classChunk.LineCount = u.end - u.start + 1

	names := make([]string, 0, len(members))
	for _, m := range members {
		names = append(names, m.name)
	}
	classChunk.Meta.Children = names

	out := []*types.Chunk{classChunk}
	for _, m := range members {
		mc := e.buildChunk(lines, filePath, mtime, m, classChunk.ID, u.name)
		mc.Meta.IsExported = u.exported
		out = append(out, mc)
	}
	return out
}

// scanClassBody locates method and property boundaries inside a class span
// using the same depth rule, constrained to member depth.
func (e *Extractor) scanClassBody(lines []string, class unit) []unit {
	if class.end <= class.start {
		return nil
	}
	body := lines[class.start : class.end+1]
	sc := newScanner(body)

	var members []unit
	for i := 1; i < len(body); i++ {
		if sc.depthBefore(i) != 1 || sc.inComment(i) {
			continue
		}
		m, ok := matchMember(body[i])
		if !ok {
			continue
		}
		m.start = i
		m.end = e.closeUnit(sc, i)
		if m.end < 0 {
			m.end = len(body) - 1
			m.degraded = true
		}
		// Translate back to absolute file lines.
		m.start += class.start
		m.end += class.start
		members = append(members, m)
		i = m.end - class.start
	}
	return members
}

// matchMember classifies a line at member depth inside a class body.
func matchMember(line string) (unit, bool) {
	if m := reMethod.FindStringSubmatch(line); m != nil && !controlKeywords[m[2]] {
		return unit{kind: types.KindMethod, name: m[2], static: m[1] != ""}, true
	}
	if m := reProperty.FindStringSubmatch(line); m != nil && !controlKeywords[m[2]] {
		return unit{kind: types.KindProperty, name: m[2], static: m[1] != ""}, true
	}
	return unit{}, false
}

// buildFileChunk emits the synthetic file-level chunk spanning the whole
// file, listing direct children and which of them are exported.
func (e *Extractor) buildFileChunk(lines []string, filePath string, mtime time.Time, units []unit) *types.Chunk {
	text := strings.Join(lines, "\n")
	name := filepath.Base(filePath)

	var children, exports, deps []string
	for _, u := range units {
		if u.kind == types.KindImport {
			if u.importSrc != "" {
				deps = append(deps, u.importSrc)
			}
			continue
		}
		children = append(children, u.name)
		if u.exported {
			exports = append(exports, u.name)
		}
	}

	c := &types.Chunk{
		ID:            types.ChunkID(types.KindFile, filePath, filePath),
		Kind:          types.KindFile,
		Name:          name,
		QualifiedName: filePath,
		File:          filePath,
		StartLine:     0,
		EndLine:       maxInt(len(lines)-1, 0),
		LineCount:     len(lines),
		Text:          text,
		TokenCount:    types.EstimateTokens(text),
		MTime:         mtime,
		Truncated:     len(text) > TruncateOverBytes,
		Meta: types.StructuralMeta{
			Children:     children,
			Exports:      exports,
			Dependencies: deps,
		},
	}
	return c
}

// docCommentAbove collects the contiguous comment block immediately above a
// declaration, if any.
func docCommentAbove(lines []string, declLine int) string {
	end := declLine - 1
	if end < 0 {
		return ""
	}

	// Block comment ending right above the declaration.
	if strings.HasSuffix(strings.TrimSpace(lines[end]), "*/") {
		for i := end; i >= 0; i-- {
			t := strings.TrimSpace(lines[i])
			if strings.HasPrefix(t, "/*") {
				return strings.Join(lines[i:end+1], "\n")
			}
		}
		return ""
	}

	// Run of line comments.
	start := end
	for start >= 0 && strings.HasPrefix(strings.TrimSpace(lines[start]), "//") {
		start--
	}
	if start == end {
		return ""
	}
	return strings.Join(lines[start+1:end+1], "\n")
}

// exportName derives a stable name for a bare export statement.
func exportName(line string) string {
	t := strings.TrimSpace(line)
	t = strings.TrimPrefix(t, "export")
	names := reExportNames.FindAllString(t, 3)
	filtered := names[:0]
	for _, n := range names {
		if n != "default" && n != "from" && n != "type" && !controlKeywords[n] {
			filtered = append(filtered, n)
		}
	}
	if len(filtered) == 0 {
		return "export"
	}
	return strings.Join(filtered, ",")
}

// moduleBase reduces an import source to a short name.
func moduleBase(src string) string {
	if src == "" {
		return "import"
	}
	base := filepath.Base(src)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if base == "" || base == "." {
		return src
	}
	return base
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
