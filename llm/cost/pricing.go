package cost

import (
	"fmt"

	"github.com/ariavoice/control-plane/configplane"
)

// Table is a model-name-keyed pricing and context-window lookup, refilled
// from the config plane's backend descriptors (BackendDescriptor.Pricing,
// BackendDescriptor.MaxTokens).
type Table struct {
	byModel   map[string]configplane.Pricing
	maxTokens map[string]int
}

// NewTable builds a pricing table from the current backend descriptor
// snapshot. Models without a Pricing entry are priced at zero (e.g. local
// inference backends have no per-token cost). Models without a positive
// MaxTokens skip the context-window check entirely.
func NewTable(descriptors []configplane.BackendDescriptor) *Table {
	t := &Table{
		byModel:   make(map[string]configplane.Pricing, len(descriptors)),
		maxTokens: make(map[string]int, len(descriptors)),
	}
	for _, d := range descriptors {
		if d.Pricing != nil {
			t.byModel[d.ModelName] = *d.Pricing
		}
		if d.MaxTokens > 0 {
			t.maxTokens[d.ModelName] = d.MaxTokens
		}
	}
	return t
}

// Lookup returns the pricing for model, and whether one was configured.
func (t *Table) Lookup(model string) (configplane.Pricing, bool) {
	p, ok := t.byModel[model]
	return p, ok
}

// Compute applies the standard per-million-token cost formula:
// cost = inputTokens/1e6 * InputPerMillion + outputTokens/1e6 * OutputPerMillion.
// Returns 0 for a model with no configured pricing (e.g. local inference),
// matching the invariant that a usage record is only written for calls
// that actually produced billable tokens.
func (t *Table) Compute(model string, inputTokens, outputTokens int) float64 {
	pricing, ok := t.Lookup(model)
	if !ok {
		return 0
	}
	const million = 1_000_000.0
	return float64(inputTokens)/million*pricing.InputPerMillion +
		float64(outputTokens)/million*pricing.OutputPerMillion
}

// CheckContextWindow returns an error when promptTokens plus the
// requested completion budget would exceed model's configured context
// window (BackendDescriptor.MaxTokens), so a caller can reject the
// request before paying for a call the backend would refuse outright. A
// model with no configured MaxTokens (e.g. an unconfigured local
// inference backend) skips the check.
func (t *Table) CheckContextWindow(model string, promptTokens, requestedCompletionTokens int) error {
	max, ok := t.maxTokens[model]
	if !ok {
		return nil
	}
	if promptTokens+requestedCompletionTokens > max {
		return fmt.Errorf("prompt (%d tokens) plus requested completion (%d tokens) exceeds %s's context window (%d tokens)",
			promptTokens, requestedCompletionTokens, model, max)
	}
	return nil
}
