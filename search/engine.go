package search

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Config controls the engine's global deadline and per-provider result cap.
type Config struct {
	GlobalDeadline time.Duration
}

// DefaultConfig mirrors the Python engine's 3-second default.
func DefaultConfig() Config {
	return Config{GlobalDeadline: 3 * time.Second}
}

// Engine is the Parallel Search Engine: classify intent, fan out to the
// intent's provider set under a global deadline, and optionally fuse.
// Grounded on parallel_search.py's ParallelSearchEngine.
type Engine struct {
	router *Router
	fusion *Fusion
	config Config
	logger *zap.Logger
}

// NewEngine wires a provider router and fusion stage into an engine.
func NewEngine(router *Router, fusion *Fusion, config Config, logger *zap.Logger) *Engine {
	if config.GlobalDeadline <= 0 {
		config = DefaultConfig()
	}
	return &Engine{router: router, fusion: fusion, config: config, logger: logger.With(zap.String("component", "search_engine"))}
}

// Search runs the full algorithm of spec §4.4: classify, RAG short-circuit,
// provider resolution, deadline-bounded fan-out, and fusion (dedup,
// cross-validation, authority weighting, filter, rank).
func (e *Engine) Search(ctx context.Context, query, location string, limitPerProvider int, forceSearch bool, opts Options) (Intent, []Result) {
	intent, confidence := ClassifyIntent(query)
	e.logger.Debug("classified search intent",
		zap.String("intent", string(intent)),
		zap.Float64("confidence", confidence),
		zap.String("query", query),
	)

	if !forceSearch && e.router.ShouldUseRAG(intent) {
		e.logger.Debug("intent handled by RAG, skipping web search", zap.String("intent", string(intent)))
		return intent, nil
	}

	providers := e.router.ProvidersForIntent(intent)
	if len(providers) == 0 {
		e.logger.Warn("no providers available for intent", zap.String("intent", string(intent)))
		return intent, nil
	}

	deadlineCtx, cancel := context.WithTimeout(ctx, e.config.GlobalDeadline)
	defer cancel()

	type providerOutcome struct {
		name    string
		results []Result
	}
	outcomes := make(chan providerOutcome, len(providers))

	// A plain (context-less) errgroup.Group: one provider failing must
	// never cancel its siblings, so this does not use WithContext, only
	// the concurrent-fan-out/Wait-for-all shape.
	var g errgroup.Group
	for _, p := range providers {
		p := p
		g.Go(func() error {
			results, err := p.Search(deadlineCtx, query, location, limitPerProvider, opts)
			if err != nil {
				e.logger.Warn("provider search failed", zap.String("provider", p.Name()), zap.Error(err))
				return nil
			}
			select {
			case outcomes <- providerOutcome{name: p.Name(), results: results}:
			case <-deadlineCtx.Done():
			}
			return nil
		})
	}

	go func() {
		g.Wait()
		close(outcomes)
	}()

	var all []Result
	completed := 0
drain:
	for {
		select {
		case outcome, ok := <-outcomes:
			if !ok {
				break drain
			}
			all = append(all, outcome.results...)
			completed++
		case <-deadlineCtx.Done():
			e.logger.Warn("search deadline exceeded, returning partial results",
				zap.Int("providers_completed", completed),
				zap.Int("providers_total", len(providers)),
			)
			break drain
		}
	}

	if e.fusion != nil {
		all = e.fusion.Fuse(all, query, intent)
	}
	return intent, all
}
