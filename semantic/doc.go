// Package semantic implements the control plane's semantic cache: it
// collapses semantically equivalent queries onto a canonical key, applies
// category-aware TTLs, and enforces a large never-cache rule set so that
// state-changing or context-dependent queries are never served stale.
//
// Grounded on the teacher's multi-level cache (llm/cache/prompt_cache.go,
// the LRU+Redis layering) and on original_source/src/orchestrator/
// semantic_cache.py for the exact category order, TTL table, never-cache
// regex corpus, and location canonicalisation rules, which this package
// ports into Go verbatim in meaning.
package semantic
