package configplane

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Handler serves the configuration control-plane HTTP surface named in
// spec §6: GET /config, POST /config/refresh,
// POST /admin/invalidate-feature-cache, GET /debug/feature-flags.
// Grounded on the teacher's ConfigAPIHandler (config/api.go), generalized
// from a single *Config struct to this package's Cache/Store split.
type Handler struct {
	cache  *Cache
	store  *FileStore
	logger *zap.Logger
}

// NewHandler wires a Handler to serve cache and store.
func NewHandler(cache *Cache, store *FileStore, logger *zap.Logger) *Handler {
	return &Handler{cache: cache, store: store, logger: logger.With(zap.String("component", "configplane_api"))}
}

// RegisterRoutes attaches the control-plane surface to mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/config", h.handleConfig)
	mux.HandleFunc("/config/refresh", h.handleRefresh)
	mux.HandleFunc("/admin/invalidate-feature-cache", h.handleInvalidate)
	mux.HandleFunc("/debug/feature-flags", h.handleDebugFlags)
}

type configResponse struct {
	Backends  []BackendDescriptor    `json:"backends"`
	Models    []ModelExecutionConfig `json:"models"`
	Routing   []RoutingRule          `json:"routing"`
	Flags     []FeatureFlag          `json:"feature_flags"`
	Timestamp time.Time              `json:"timestamp"`
}

func (h *Handler) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.methodNotAllowed(w)
		return
	}

	backends, err := h.cache.BackendDescriptors()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}
	models, err := h.cache.ModelExecutionConfigs()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}
	routing, err := h.cache.RoutingRules()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}
	flags, err := h.cache.FeatureFlags()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}

	h.writeJSON(w, http.StatusOK, configResponse{
		Backends:  backends,
		Models:    models,
		Routing:   routing,
		Flags:     flags,
		Timestamp: time.Now(),
	})
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.methodNotAllowed(w)
		return
	}
	if err := h.store.Reload(); err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}
	h.cache.Invalidate()
	h.logger.Info("config force-reloaded via /config/refresh")
	h.writeJSON(w, http.StatusOK, map[string]any{"reloaded": true, "timestamp": time.Now()})
}

type invalidateRequest struct {
	Flags []string `json:"flags"`
}

func (h *Handler) handleInvalidate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.methodNotAllowed(w)
		return
	}

	var req invalidateRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	if len(req.Flags) == 0 {
		h.cache.Invalidate()
		h.logger.Info("feature flag cache fully invalidated")
	} else {
		h.cache.InvalidateFlags(req.Flags)
		h.logger.Info("feature flag cache partially invalidated", zap.Strings("flags", req.Flags))
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"invalidated": true, "flags": req.Flags})
}

func (h *Handler) handleDebugFlags(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.methodNotAllowed(w)
		return
	}

	flags, err := h.cache.FeatureFlags()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"flags":     flags,
		"filled_at": h.cache.FilledAt(),
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode response", zap.Error(err))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, err error) {
	h.logger.Error("configplane request failed", zap.Error(err))
	h.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (h *Handler) methodNotAllowed(w http.ResponseWriter) {
	h.writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
}
