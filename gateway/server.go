package gateway

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ariavoice/control-plane/api/handlers"
	"github.com/ariavoice/control-plane/configplane"
)

// Server assembles every Gateway HTTP surface onto one mux: the
// OpenAI-compatible chat endpoints, the Responses-API streaming endpoint,
// model discovery, health checks, Prometheus metrics, and the
// configuration plane's admin surface. Grounded on internal/server.Manager,
// which wraps whatever http.Handler this produces with the teacher's
// listen/serve/shutdown lifecycle.
type Server struct {
	Mux *http.ServeMux
}

// NewServer wires every handler onto a fresh mux. health may be nil to
// skip registering health endpoints (tests).
func NewServer(
	chat *ChatHandler,
	responses *ResponsesHandler,
	models *ModelsHandler,
	configHandler *configplane.Handler,
	health *handlers.HealthHandler,
	logger *zap.Logger,
) *Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/v1/chat/completions", chat.HandleCompletion)
	mux.HandleFunc("/v1/chat/completions/stream", chat.HandleStream)
	mux.HandleFunc("/v1/responses", responses.HandleStream)
	mux.HandleFunc("/v1/models", models.HandleList)

	if configHandler != nil {
		configHandler.RegisterRoutes(mux)
	}

	if health != nil {
		mux.HandleFunc("/health", health.HandleHealth)
		mux.HandleFunc("/health/live", health.HandleHealthz)
		mux.HandleFunc("/health/ready", health.HandleReady)
	}

	mux.Handle("/metrics", promhttp.Handler())

	return &Server{Mux: mux}
}

// Handler returns the assembled http.Handler for internal/server.Manager
// to serve.
func (s *Server) Handler() http.Handler {
	return s.Mux
}
