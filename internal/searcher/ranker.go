package searcher

import (
	"sort"
	"strings"

	"github.com/codescope-dev/codescope/internal/config"
	"github.com/codescope-dev/codescope/internal/embed"
	"github.com/codescope-dev/codescope/internal/index"
	"github.com/codescope-dev/codescope/pkg/types"
)

const maxScore = 2.0

// Ranker scores chunks against a preprocessed query using vector
// similarity blended with lexical and structural signals.
type Ranker struct {
	cfg config.RankingConfig
}

// NewRanker creates a ranker with the given weights.
func NewRanker(cfg config.RankingConfig) *Ranker {
	return &Ranker{cfg: cfg}
}

// Rank scores every chunk, drops non-positive scores, orders the rest
// and returns at most topK results. Ordering is deterministic: score
// descending, ties by shorter file path, then lower start line.
func (r *Ranker) Rank(q Query, queryVec []float32, idx *index.Index, topK int) []types.SearchResult {
	if topK <= 0 {
		topK = r.cfg.DefaultTopK
	}

	type scored struct {
		chunk *types.Chunk
		score float64
	}
	var hits []scored
	for _, c := range idx.All() {
		s := r.score(q, queryVec, c)
		if s <= 0 {
			continue
		}
		hits = append(hits, scored{chunk: c, score: s})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		a, b := hits[i].chunk, hits[j].chunk
		if len(a.File) != len(b.File) {
			return len(a.File) < len(b.File)
		}
		if a.File != b.File {
			return a.File < b.File
		}
		return a.StartLine < b.StartLine
	})
	if len(hits) > topK {
		hits = hits[:topK]
	}

	results := make([]types.SearchResult, len(hits))
	for i, h := range hits {
		c := h.chunk
		results[i] = types.SearchResult{
			File:          c.File,
			StartLine:     c.StartLine + 1,
			EndLine:       c.EndLine + 1,
			Kind:          c.Kind,
			Name:          c.Name,
			QualifiedName: c.QualifiedName,
			Score:         h.score,
			CodePreview:   preview(c.Text, r.cfg.PreviewLength),
			Truncated:     c.Truncated,
			Meta:          c.Meta,
		}
	}
	return results
}

func (r *Ranker) score(q Query, queryVec []float32, c *types.Chunk) float64 {
	lexical := r.lexical(q, c)
	intent := r.intent(q, c)

	var base float64
	if queryVec != nil && c.Embedding != nil {
		cos := embed.Cosine(queryVec, c.Embedding)
		base = r.cfg.VectorWeight*cos + r.cfg.LexicalWeight*lexical + intent
	} else {
		// Lexical fallback: the sole signal keeps its full magnitude.
		base = lexical + intent
	}

	score := base * r.kindMultiplier(q, c.Kind)
	if score > maxScore {
		score = maxScore
	}
	return score
}

// lexical scores identifier and text matches in [0, maxScore]. The
// strongest signal wins rather than signals stacking, so an exact name
// match cannot be outscored by a pile of weak containments.
func (r *Ranker) lexical(q Query, c *types.Chunk) float64 {
	name := strings.ToLower(c.Name)
	qualified := strings.ToLower(c.QualifiedName)

	var best float64
	for _, v := range q.Variants {
		lv := strings.ToLower(v)
		if lv == name || lv == qualified {
			return maxScore
		}
		target := name
		if !strings.Contains(target, lv) {
			if !strings.Contains(qualified, lv) {
				continue
			}
			target = qualified
		}
		ratio := float64(len(lv)) / float64(len(target))
		s := 1.2 * ratio
		if strings.HasPrefix(target, lv) {
			s += 0.4
		}
		if s > best {
			best = s
		}
	}

	if f := wordFraction(q.Words, strings.ToLower(c.DocComment)); f > 0 {
		if s := 0.8 * f; s > best {
			best = s
		}
	}

	text := strings.ToLower(c.Text)
	if q.Canonical != "" && strings.Contains(text, q.Canonical) {
		if best < 0.5 {
			best = 0.5
		}
	}
	if f := wordFraction(q.Words, text); f > 0 {
		if s := 0.3 * f; s > best {
			best = s
		}
	}

	if best > maxScore {
		best = maxScore
	}
	return best
}

// wordFraction returns the fraction of words contained in text.
func wordFraction(words []string, text string) float64 {
	if len(words) == 0 || text == "" {
		return 0
	}
	found := 0
	for _, w := range words {
		if strings.Contains(text, w) {
			found++
		}
	}
	return float64(found) / float64(len(words))
}

// intentFamilies group verbs and nouns that express the same purpose.
// A family aligned between query and chunk earns one additive bonus.
var intentFamilies = [][]string{
	{"find", "get", "fetch", "lookup", "search", "query"},
	{"create", "add", "new", "insert", "make", "build"},
	{"update", "set", "modify", "change", "edit"},
	{"delete", "remove", "clear", "drop", "destroy"},
	{"validate", "check", "verify", "ensure"},
	{"parse", "decode", "read", "load"},
	{"format", "encode", "render", "serialize", "stringify"},
	{"api", "endpoint", "route", "request", "handler"},
	{"data", "db", "database", "store", "model", "repository"},
	{"ui", "view", "component", "display", "widget"},
	{"util", "helper", "common", "shared"},
}

func (r *Ranker) intent(q Query, c *types.Chunk) float64 {
	if len(q.Words) == 0 {
		return 0
	}
	chunkText := strings.ToLower(c.Name + " " + c.File)

	var bonus float64
	for _, family := range intentFamilies {
		if familyHit(family, q.Words) && familyHitText(family, chunkText) {
			bonus += r.cfg.IntentBonus
		}
	}
	// Two aligned families (an action plus a domain) are plenty.
	if bonus > 2*r.cfg.IntentBonus {
		bonus = 2 * r.cfg.IntentBonus
	}
	return bonus
}

func familyHit(family, words []string) bool {
	for _, w := range words {
		for _, f := range family {
			if w == f {
				return true
			}
		}
	}
	return false
}

func familyHitText(family []string, text string) bool {
	for _, f := range family {
		if strings.Contains(text, f) {
			return true
		}
	}
	return false
}

// kindMultiplier boosts kinds the query names and otherwise applies
// the configured per-kind prior.
func (r *Ranker) kindMultiplier(q Query, kind types.ChunkKind) float64 {
	for _, k := range q.Kinds {
		if k == kind {
			return r.cfg.KindBoost
		}
	}
	if prior, ok := r.cfg.KindPriors[string(kind)]; ok {
		return prior
	}
	return 1.0
}

func preview(text string, limit int) string {
	if limit <= 0 || len(text) <= limit {
		return text
	}
	cut := limit
	// Do not split a UTF-8 sequence.
	for cut > 0 && text[cut]&0xC0 == 0x80 {
		cut--
	}
	return text[:cut] + "..."
}
