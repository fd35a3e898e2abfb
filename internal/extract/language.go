package extract

import "regexp"

// Declaration patterns for the JavaScript/TypeScript family. This is a
// best-effort structural approximation driven by keyword sets and brace
// tracking, not a parser; precision is traded for resilience to files a
// real front end would reject.
var (
	reFunction = regexp.MustCompile(`^\s*(export\s+(?:default\s+)?)?(async\s+)?function\s*\*?\s*([A-Za-z_$][\w$]*)\s*\(`)

	reArrow = regexp.MustCompile(`^\s*(export\s+)?(?:const|let|var)\s+([A-Za-z_$][\w$]*)(?:\s*:\s*[^=]+?)?\s*=\s*(?:async\s+)?(?:\([^()]*\)|[A-Za-z_$][\w$]*)\s*=>`)

	reFuncExpr = regexp.MustCompile(`^\s*(export\s+)?(?:const|let|var)\s+([A-Za-z_$][\w$]*)(?:\s*:\s*[^=]+?)?\s*=\s*(?:async\s+)?function\b`)

	reClass = regexp.MustCompile(`^\s*(export\s+(?:default\s+)?)?(?:abstract\s+)?class\s+([A-Za-z_$][\w$]*)(?:\s+extends\s+([A-Za-z_$][\w$.]*))?`)

	reImport  = regexp.MustCompile(`^\s*import\b`)
	reRequire = regexp.MustCompile(`^\s*(?:const|let|var)\s+[\w${},\s]+=\s*require\s*\(\s*['"]([^'"]+)['"]`)

	reExportStmt = regexp.MustCompile(`^\s*export\s+(?:\*|\{|default\b|const\b|let\b|var\b|type\b|interface\b|enum\b)`)

	reImportSource = regexp.MustCompile(`(?:from\s+|^\s*import\s+)['"]([^'"]+)['"]`)

	reMethod = regexp.MustCompile(`^\s*(?:(?:public|private|protected|override)\s+)*(static\s+)?(?:async\s+)?(?:(?:get|set)\s+)?\*?\s*([A-Za-z_$][\w$]*)\s*(?:<[^<>]*>)?\s*\(`)

	reProperty = regexp.MustCompile(`^\s*(?:(?:public|private|protected|readonly|declare)\s+)*(static\s+)?([A-Za-z_$][\w$]*)\s*(?:\?\s*)?(?::\s*[^=;]+)?\s*[=;]`)

	reExportNames = regexp.MustCompile(`[A-Za-z_$][\w$]*`)
)

// controlKeywords are identifiers that look like method or call heads but
// open control-flow constructs instead.
var controlKeywords = map[string]bool{
	"if": true, "else": true, "for": true, "while": true, "switch": true,
	"catch": true, "return": true, "do": true, "try": true, "finally": true,
	"new": true, "typeof": true, "throw": true, "await": true, "case": true,
	"function": true, "class": true, "import": true, "export": true,
	"const": true, "let": true, "var": true, "in": true, "of": true,
	"yield": true, "delete": true, "void": true, "super": true,
}

// reComplexity counts branch points for the cyclomatic estimate.
var reComplexity = regexp.MustCompile(`\bif\b|\bfor\b|\bwhile\b|\bcase\b|\bcatch\b|&&|\|\||\?`)

// reCall matches call-expression heads for call-target extraction.
var reCall = regexp.MustCompile(`([A-Za-z_$][\w$]*)\s*\(`)
