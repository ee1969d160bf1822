package configplane

import "time"

// BackendType enumerates the backend kinds a model can route to.
type BackendType string

const (
	BackendLocalInferenceA   BackendType = "local_inference_a"
	BackendLocalInferenceB   BackendType = "local_inference_b"
	BackendProviderOpenAI    BackendType = "provider_openai"
	BackendProviderAnthropic BackendType = "provider_anthropic"
	BackendProviderGoogle    BackendType = "provider_google"
	BackendAuto              BackendType = "auto"
)

// BackendDescriptor is the config-store record for one model's routing
// target. A descriptor is referenced by at most one active model;
// replacing it atomically swaps the cached snapshot (see Cache.Invalidate).
type BackendDescriptor struct {
	ModelName          string        `json:"model_name" yaml:"model_name"`
	BackendType        BackendType   `json:"backend_type" yaml:"backend_type"`
	Endpoint           string        `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	Priority           int           `json:"priority" yaml:"priority"`
	Enabled            bool          `json:"enabled" yaml:"enabled"`
	MaxTokens          int           `json:"max_tokens" yaml:"max_tokens"`
	DefaultTemperature float32       `json:"default_temperature" yaml:"default_temperature"`
	Timeout            time.Duration `json:"timeout" yaml:"timeout"`
	// KeepAliveSeconds: -1 keeps the backend warm forever, 0 releases
	// immediately after use, >0 is a release delay in seconds.
	KeepAliveSeconds int      `json:"keep_alive_seconds" yaml:"keep_alive_seconds"`
	Pricing          *Pricing `json:"pricing,omitempty" yaml:"pricing,omitempty"`
}

// Pricing is the per-model cost table entry, consumed by llm/cost.
type Pricing struct {
	InputPerMillion  float64 `json:"input_per_million" yaml:"input_per_million"`
	OutputPerMillion float64 `json:"output_per_million" yaml:"output_per_million"`
}

// ModelExecutionConfig is a per-model parameter bundle, kept separate from
// BackendDescriptor so one backend can serve many models with different
// execution profiles.
type ModelExecutionConfig struct {
	ModelName      string         `json:"model_name" yaml:"model_name"`
	ContextWindow  int            `json:"context_window" yaml:"context_window"`
	BatchSize      int            `json:"batch_size" yaml:"batch_size"`
	SamplingParams map[string]any `json:"sampling_params,omitempty" yaml:"sampling_params,omitempty"`
	BackendOptions map[string]any `json:"backend_options,omitempty" yaml:"backend_options,omitempty"`
}

// FeatureFlag is the control-plane's feature-flag contract (spec'd
// verbatim): name, enabled state, a free-form category, optional
// structured config, and whether the flag is required for startup.
type FeatureFlag struct {
	Name     string         `json:"name" yaml:"name"`
	Enabled  bool           `json:"enabled" yaml:"enabled"`
	Category string         `json:"category" yaml:"category"`
	Config   map[string]any `json:"config,omitempty" yaml:"config,omitempty"`
	Required bool           `json:"required,omitempty" yaml:"required,omitempty"`
}

// neverCachedCategories are feature categories whose lookups always bypass
// the local cache because they gate security-critical behavior.
var neverCachedCategories = map[string]bool{
	"security": true,
	"auth":     true,
}

// BypassesCache reports whether flags in this category must always be
// read fresh from the store.
func (f FeatureFlag) BypassesCache() bool {
	return neverCachedCategories[f.Category]
}

// RoutingRule maps an intent category to a preferred provider ordering,
// backing the intent-to-provider routing table the admin surface edits.
type RoutingRule struct {
	Intent            string   `json:"intent" yaml:"intent"`
	PreferredBackends []string `json:"preferred_backends" yaml:"preferred_backends"`
}
