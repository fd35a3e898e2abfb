package searcher

import (
	"regexp"
	"strings"

	"github.com/codescope-dev/codescope/pkg/types"
)

// Query is the preprocessed form of a raw search string.
type Query struct {
	Original  string
	Canonical string // lowercased, scaffolding stripped
	Words     []string
	// Variants are identifier-shaped renderings of the canonical phrase
	// and its words, for matching against code names.
	Variants []string
	// Kinds lists chunk kinds the query names explicitly.
	Kinds []types.ChunkKind
	// IsNaturalLanguage is set when stripping shortened the query
	// materially, meaning it was phrased as a question or request.
	IsNaturalLanguage bool
}

// stripPatterns remove natural-language scaffolding. Order matters:
// the first pattern that captures wins.
var stripPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^find\s+(?:a\s+|the\s+)?(?:function|method|class|code|file)s?\s+(?:that|which|to)\s+(.+)$`),
	regexp.MustCompile(`(?i)^find\s+(?:all\s+|the\s+)?(.+)$`),
	regexp.MustCompile(`(?i)^how\s+(?:do\s+(?:i|you)|to|can\s+i)\s+(.+)$`),
	regexp.MustCompile(`(?i)^show\s+me\s+(?:the\s+|all\s+)?(.+)$`),
	regexp.MustCompile(`(?i)^where\s+(?:is|are|does)\s+(?:the\s+)?(.+)$`),
	regexp.MustCompile(`(?i)^(?:search|look)\s+for\s+(.+)$`),
	regexp.MustCompile(`(?i)^what\s+(?:is|does)\s+(?:the\s+)?(.+)$`),
	regexp.MustCompile(`(?i)^(?:code|function|method|class)s?\s+(?:that|which|to|for)\s+(.+)$`),
}

var wordRe = regexp.MustCompile(`[A-Za-z0-9]+`)

// kindMentions maps query words to the chunk kind they name.
var kindMentions = map[string]types.ChunkKind{
	"function":  types.KindFunction,
	"functions": types.KindFunction,
	"class":     types.KindClass,
	"classes":   types.KindClass,
	"method":    types.KindMethod,
	"methods":   types.KindMethod,
	"variable":  types.KindProperty,
	"variables": types.KindProperty,
	"property":  types.KindProperty,
	"file":      types.KindFile,
	"files":     types.KindFile,
	"import":    types.KindImport,
	"imports":   types.KindImport,
	"export":    types.KindExport,
	"exports":   types.KindExport,
}

// Preprocess normalizes a raw query into canonical and identifier
// variants.
func Preprocess(raw string) Query {
	q := Query{Original: raw}

	lowered := strings.ToLower(strings.TrimSpace(raw))
	lowered = strings.TrimRight(lowered, "?!. ")

	canonical := lowered
	for _, re := range stripPatterns {
		if m := re.FindStringSubmatch(canonical); m != nil {
			canonical = strings.TrimSpace(m[1])
			break
		}
	}
	q.Canonical = canonical
	if len(lowered) > 0 {
		q.IsNaturalLanguage = float64(len(canonical)) < 0.75*float64(len(lowered))
	}

	for _, w := range wordRe.FindAllString(canonical, -1) {
		if len(w) >= 2 {
			q.Words = append(q.Words, w)
		}
	}

	// Kind mentions are taken from the unstripped query; stripping may
	// have consumed the word that names the kind.
	seenKind := map[types.ChunkKind]bool{}
	for _, w := range wordRe.FindAllString(lowered, -1) {
		if k, ok := kindMentions[w]; ok && !seenKind[k] {
			seenKind[k] = true
			q.Kinds = append(q.Kinds, k)
		}
	}

	q.Variants = identifierVariants(q.Words)
	return q
}

// identifierVariants renders the phrase and each word the way they
// would appear as code identifiers.
func identifierVariants(words []string) []string {
	if len(words) == 0 {
		return nil
	}
	seen := map[string]bool{}
	var out []string
	add := func(v string) {
		if v != "" && !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}

	if len(words) > 1 {
		add(toCamel(words))
		add(strings.Join(words, "_"))
		add(strings.Join(words, "-"))
		add(strings.Join(words, ""))
	}
	for _, w := range words {
		add(w)
	}
	return out
}

func toCamel(words []string) string {
	var b strings.Builder
	for i, w := range words {
		if i == 0 {
			b.WriteString(w)
			continue
		}
		b.WriteString(strings.ToUpper(w[:1]))
		b.WriteString(w[1:])
	}
	return b.String()
}
