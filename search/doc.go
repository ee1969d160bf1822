// Package search implements the Parallel Search Engine: intent
// classification, deadline-bounded fan-out across web-search providers,
// and result fusion (dedup, cross-validation, authority weighting).
//
// Grounded on original_source/src/orchestrator/search_providers/
// (parallel_search.py, provider_router.py, intent_classifier.py,
// result_fusion.py, base.py) and on the teacher's structured-concurrency
// idiom (golang.org/x/sync/errgroup is used the way the teacher's
// llm/router.HealthChecker uses goroutines+channels for bounded fan-out).
package search
