package gateway

import "strings"

// Route is the pre-routing decision the keyword classifier or its optional
// LLM-backed upgrade produces for an incoming Query.
type Route string

const (
	// RouteOrchestrator sends the query to the orchestrator/search/
	// smart-home pipeline instead of straight to an LLM completion.
	RouteOrchestrator Route = "orchestrator"
	// RouteDirect sends the query straight to the LLM router.
	RouteDirect Route = "direct"
)

// controlVerbs, teamNames, cuisineNames, and the remaining word lists below
// are ported verbatim from original_source/src/gateway/main.go's
// is_athena_query_keywords, which routes a query to the orchestrator when
// any of these terms appear, and to a direct LLM completion otherwise.
var controlVerbs = []string{
	"turn on", "turn off", "dim", "brighten", "lock", "unlock",
	"open", "close", "set the", "switch on", "switch off",
}

var teamNames = []string{"ravens", "orioles"}

var cuisineNames = []string{
	"italian", "mexican", "chinese", "japanese", "thai", "indian",
	"greek", "french", "korean", "vietnamese", "jamaican", "american",
	"sushi", "pizza", "cajun",
}

var orchestratorKeywordGroups = [][]string{
	controlVerbs,
	teamNames,
	cuisineNames,
	{"restaurant", "food", "eat", "dining"},
	{"weather", "temperature", "forecast", "rain"},
	{"score", "game", "sports"},
	{"flight", "airport", "plane"},
	{"news", "headline"},
	{"stock", "market", "price"},
	{"recipe", "cook", "make"},
	{"light", "switch", "thermostat"},
}

// ClassifyKeywords is is_athena_query_keywords ported to Go: it reports
// RouteOrchestrator when text contains any control, sports, cuisine,
// restaurant, weather, flight, news, stock, recipe, or device-control
// keyword, and RouteDirect otherwise.
func ClassifyKeywords(text string) Route {
	lower := strings.ToLower(text)
	for _, group := range orchestratorKeywordGroups {
		for _, kw := range group {
			if strings.Contains(lower, kw) {
				return RouteOrchestrator
			}
		}
	}
	return RouteDirect
}

// LLMClassifier calls an LLM to classify intent, matching
// classify_intent_llm's optional, feature-flag-gated upgrade path.
type LLMClassifier func(text string) (Route, error)

// IntentRouter pre-routes a Query before it reaches the LLM Router or the
// search/smart-home orchestrator. When an LLMClassifier is configured and
// the feature flag enabling it is on, the classifier runs first; any
// failure falls back to ClassifyKeywords, matching the original's
// fallback-on-error behavior.
type IntentRouter struct {
	llmEnabled bool
	classifier LLMClassifier
}

// NewIntentRouter builds an IntentRouter. Pass llmEnabled=false (or a nil
// classifier) to always use the keyword path.
func NewIntentRouter(llmEnabled bool, classifier LLMClassifier) *IntentRouter {
	return &IntentRouter{llmEnabled: llmEnabled, classifier: classifier}
}

// Route classifies text, preferring the LLM classifier when enabled and
// falling back to keywords on any error or when it is disabled.
func (r *IntentRouter) Route(text string) Route {
	if r.llmEnabled && r.classifier != nil {
		if route, err := r.classifier(text); err == nil {
			return route
		}
	}
	return ClassifyKeywords(text)
}
