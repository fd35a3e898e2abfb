package extract

import (
	"strings"

	"github.com/codescope-dev/codescope/pkg/types"
)

// maxCallTargets caps the call list so pathological chunks stay cheap.
const maxCallTargets = 20

// buildMeta derives kind-specific structural facts from a unit's text.
func buildMeta(u unit, text string) types.StructuralMeta {
	meta := types.StructuralMeta{
		IsExported: u.exported,
		IsStatic:   u.static,
		Extends:    u.extends,
	}

	switch u.kind {
	case types.KindFunction, types.KindMethod:
		meta.Parameters = parseParams(text)
		meta.ReturnType = inferReturnType(text)
		meta.Complexity = estimateComplexity(text)
		meta.Calls = callTargets(text, u.name)
	case types.KindClass:
		meta.Complexity = estimateComplexity(text)
	case types.KindImport:
		if u.importSrc != "" {
			meta.Dependencies = []string{u.importSrc}
		}
	}
	return meta
}

// parseParams extracts parameter names from the first parenthesized group of
// a declaration, stripping TypeScript annotations and defaults.
func parseParams(text string) []string {
	// Only the signature portion matters: everything before the arrow for
	// arrow functions, the leading parenthesized group otherwise.
	header := text
	if idx := strings.Index(text, "=>"); idx >= 0 {
		header = text[:idx]
	}

	open := strings.IndexByte(header, '(')
	if open < 0 {
		// Single-parameter arrow without parens: `x => ...`.
		fields := strings.Fields(header)
		if len(fields) > 0 {
			last := fields[len(fields)-1]
			if isIdentifier(last) {
				return []string{last}
			}
		}
		return nil
	}
	text = header

	// Find the matching close paren, respecting nesting.
	depth := 0
	close := -1
	for i := open; i < len(text); i++ {
		switch text[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				close = i
			}
		}
		if close >= 0 {
			break
		}
	}
	if close < 0 {
		return nil
	}

	inner := text[open+1 : close]
	if strings.TrimSpace(inner) == "" {
		return nil
	}

	var params []string
	for _, part := range splitTopLevel(inner) {
		name := strings.TrimSpace(part)
		// Strip annotation and default value.
		if idx := strings.IndexAny(name, ":="); idx >= 0 {
			name = strings.TrimSpace(name[:idx])
		}
		name = strings.TrimSuffix(name, "?")
		name = strings.TrimPrefix(name, "...")
		if name == "" || strings.ContainsAny(name, "{[") {
			// Destructured parameters keep their literal shape.
			name = strings.TrimSpace(part)
			if idx := strings.Index(name, ":"); idx > strings.Index(name, "}") && strings.Contains(name, "}") {
				name = strings.TrimSpace(name[:idx])
			}
		}
		if name != "" {
			params = append(params, name)
		}
	}
	return params
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		alpha := r == '_' || r == '$' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		if !alpha && (i == 0 || r < '0' || r > '9') {
			return false
		}
	}
	return !controlKeywords[s]
}

// splitTopLevel splits on commas that are not nested in brackets.
func splitTopLevel(s string) []string {
	var parts []string
	depth := 0
	last := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(', '[', '{', '<':
			depth++
		case ')', ']', '}', '>':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				parts = append(parts, s[last:i])
				last = i + 1
			}
		}
	}
	parts = append(parts, s[last:])
	return parts
}

// inferReturnType reads an explicit annotation when present and otherwise
// guesses from the body. A best-effort label, not a type checker.
func inferReturnType(text string) string {
	firstLine := text
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		firstLine = text[:idx]
	}

	// `): Type {` annotation on the signature line.
	if idx := strings.LastIndex(firstLine, "):"); idx >= 0 {
		rest := firstLine[idx+2:]
		for _, stop := range []string{"{", "=>"} {
			if s := strings.Index(rest, stop); s >= 0 {
				rest = rest[:s]
			}
		}
		if t := strings.TrimSpace(rest); t != "" {
			return t
		}
	}

	if strings.Contains(text, "return ") {
		return "unknown"
	}
	return "void"
}

// estimateComplexity is a simple cyclomatic estimate: one plus the number of
// branch points in the text.
func estimateComplexity(text string) int {
	return 1 + len(reComplexity.FindAllStringIndex(text, -1))
}

// callTargets lists distinct call-expression heads in first-seen order,
// excluding keywords and the declaring name itself.
func callTargets(text, selfName string) []string {
	matches := reCall.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(matches))
	var calls []string
	for _, m := range matches {
		name := m[1]
		if name == selfName || controlKeywords[name] || seen[name] {
			continue
		}
		seen[name] = true
		calls = append(calls, name)
		if len(calls) >= maxCallTargets {
			break
		}
	}
	return calls
}
