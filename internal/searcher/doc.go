// Package searcher turns natural-language queries into ranked chunk
// results.
//
// Preprocess strips question scaffolding ("find the function that...",
// "how do I...") and derives identifier-shaped variants of the
// remaining phrase, so "parse user input" can match parseUserInput,
// parse_user_input or parse-user-input. The ranker blends cosine
// similarity over embeddings with lexical signals (exact and partial
// name matches, doc-comment overlap, code containment), an intent
// bonus for aligned verb/domain families, and a per-kind multiplier.
// When embeddings are missing on either side the lexical signal stands
// alone, so search still works offline.
package searcher
