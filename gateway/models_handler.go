package gateway

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ariavoice/control-plane/api/handlers"
	"github.com/ariavoice/control-plane/configplane"
	"github.com/ariavoice/control-plane/llm"
)

// ModelsHandler serves GET /v1/models: the configplane's configured
// backend descriptors presented as the OpenAI models list shape, so a
// client can discover available models the same way it would against any
// OpenAI-compatible endpoint.
type ModelsHandler struct {
	cache  *configplane.Cache
	logger *zap.Logger
}

// NewModelsHandler builds a ModelsHandler backed by the configuration
// plane's in-process cache.
func NewModelsHandler(cache *configplane.Cache, logger *zap.Logger) *ModelsHandler {
	return &ModelsHandler{cache: cache, logger: logger.With(zap.String("component", "gateway_models_handler"))}
}

type modelsListResponse struct {
	Object string      `json:"object"`
	Data   []llm.Model `json:"data"`
}

func (h *ModelsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		handlers.WriteSuccess(w, modelsListResponse{Object: "list", Data: []llm.Model{}})
		return
	}
	descriptors, err := h.cache.BackendDescriptors()
	if err != nil {
		h.logger.Warn("failed to load backend descriptors", zap.Error(err))
		handlers.WriteSuccess(w, modelsListResponse{Object: "list", Data: []llm.Model{}})
		return
	}
	models := make([]llm.Model, 0, len(descriptors))
	for _, d := range descriptors {
		if !d.Enabled {
			continue
		}
		models = append(models, llm.Model{
			ID:      d.ModelName,
			Object:  "model",
			OwnedBy: string(d.BackendType),
		})
	}
	handlers.WriteSuccess(w, modelsListResponse{Object: "list", Data: models})
}
