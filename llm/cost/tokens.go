package cost

import "github.com/ariavoice/control-plane/llm/tokenizer"

// CountPromptTokens estimates a prompt's token count for model, using
// tiktoken's exact BPE counts for OpenAI-family models (gpt-4o, gpt-4,
// gpt-3.5-turbo, ...) and falling back to the CJK-aware character
// estimator for anything else, so a context-window check can run ahead of
// a provider call regardless of backend.
func CountPromptTokens(model, prompt string) int {
	count, err := tokenizer.GetTokenizerOrEstimator(model).CountTokens(prompt)
	if err != nil {
		return len(prompt) / 4
	}
	return count
}
