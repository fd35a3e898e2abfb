package extract

import "strings"

// scanner precomputes, per line, the brace and paren depth and whether the
// line begins inside a block comment. Braces inside strings, template
// literals, and comments are not counted. Template interpolation is treated
// as literal text; this loses nesting inside ${...} but never corrupts the
// running depth, which is all the chunk boundary rule needs.
type scanner struct {
	lines []string

	braceBefore []int
	braceAfter  []int
	parenAfter  []int
	comment     []bool // line starts inside a block comment
}

type lexState struct {
	brace      int
	paren      int
	inComment  bool
	inTemplate bool
}

func newScanner(lines []string) *scanner {
	sc := &scanner{
		lines:       lines,
		braceBefore: make([]int, len(lines)),
		braceAfter:  make([]int, len(lines)),
		parenAfter:  make([]int, len(lines)),
		comment:     make([]bool, len(lines)),
	}

	st := lexState{}
	for i, line := range lines {
		sc.braceBefore[i] = st.brace
		sc.comment[i] = st.inComment
		st = scanLine(line, st)
		sc.braceAfter[i] = st.brace
		sc.parenAfter[i] = st.paren
	}
	return sc
}

func (s *scanner) depthBefore(i int) int { return s.braceBefore[i] }
func (s *scanner) depthAfter(i int) int  { return s.braceAfter[i] }
func (s *scanner) parensAfter(i int) int { return s.parenAfter[i] }
func (s *scanner) inComment(i int) bool  { return s.comment[i] }

// scanLine advances the lexical state across one line.
func scanLine(line string, st lexState) lexState {
	var inSingle, inDouble bool
	runes := []rune(line)

	for i := 0; i < len(runes); i++ {
		ch := runes[i]
		next := rune(0)
		if i+1 < len(runes) {
			next = runes[i+1]
		}

		switch {
		case st.inComment:
			if ch == '*' && next == '/' {
				st.inComment = false
				i++
			}
		case inSingle:
			if ch == '\\' {
				i++
			} else if ch == '\'' {
				inSingle = false
			}
		case inDouble:
			if ch == '\\' {
				i++
			} else if ch == '"' {
				inDouble = false
			}
		case st.inTemplate:
			if ch == '\\' {
				i++
			} else if ch == '`' {
				st.inTemplate = false
			}
		default:
			switch ch {
			case '/':
				if next == '/' {
					return st // rest of line is a comment
				}
				if next == '*' {
					st.inComment = true
					i++
				}
			case '\'':
				inSingle = true
			case '"':
				inDouble = true
			case '`':
				st.inTemplate = true
			case '{':
				st.brace++
			case '}':
				if st.brace > 0 {
					st.brace--
				}
			case '(':
				st.paren++
			case ')':
				if st.paren > 0 {
					st.paren--
				}
			}
		}
	}
	// Single- and double-quoted strings cannot span lines.
	return st
}

// stripLineComment removes a trailing // comment from a line. It is a rough
// cut used only by the continuation check, so string-embedded slashes are
// tolerable.
func stripLineComment(line string) string {
	if idx := strings.Index(line, "//"); idx >= 0 {
		return line[:idx]
	}
	return line
}
