// Package extract turns JavaScript and TypeScript source text into
// chunks without a full parser.
//
// A line scanner tracks brace and parenthesis depth while staying
// aware of strings, template literals and comments, so braces inside
// those never skew the depth. Declarations are recognized at depth
// zero by a small set of anchored patterns (functions, classes, arrow
// and function expressions, imports, exports); each one is closed at
// the line where its depth returns to the baseline. Unbalanced input
// force-closes at end of file and oversized chunks are cut at a line
// ceiling and marked truncated, so extraction always produces usable
// spans.
//
// Class bodies are scanned one level deeper for methods and
// properties, which become chunks of their own linked to the class by
// parent reference. Every file additionally gets a file-level chunk
// summarizing its children, exports and dependencies.
//
// Chunk identity hashes (kind, qualified name, file path), so editing
// a function body, or moving it within its file, does not change its
// ID. Sync relies on this to keep embeddings for unchanged code.
package extract
