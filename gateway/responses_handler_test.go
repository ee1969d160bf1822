package gateway

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ariavoice/control-plane/api"
	"github.com/ariavoice/control-plane/llm/circuitbreaker"
)

func TestResponsesHandlerEmitsEventsInOrder(t *testing.T) {
	breaker := circuitbreaker.NewCircuitBreaker(circuitbreaker.DefaultConfig(), zap.NewNop())
	admission := NewAdmission(600, breaker, zap.NewNop())
	router := NewIntentRouter(false, nil)
	chat := NewChatHandler(&fakeProvider{reply: "the answer"}, admission, router, nil, nil, nil, nil, zap.NewNop())
	h := NewResponsesHandler(chat, zap.NewNop())

	body, _ := json.Marshal(api.ChatRequest{
		Model:    "gpt-4",
		Messages: []api.Message{{Role: "user", Content: "tell me something"}},
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/responses", strings.NewReader(string(body)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	h.HandleStream(w, req)

	var types_ []string
	for _, frame := range strings.Split(strings.TrimSpace(w.Body.String()), "\n\n") {
		payload := strings.TrimPrefix(frame, "data: ")
		var evt map[string]any
		if err := json.Unmarshal([]byte(payload), &evt); err != nil {
			continue
		}
		if t, ok := evt["type"].(string); ok {
			types_ = append(types_, t)
		}
	}

	require.Contains(t, types_, "response.created")
	expectedOrder := []string{
		"response.created",
		"response.output_item.added",
		"response.content_part.added",
	}
	for i, want := range expectedOrder {
		assert.Equal(t, want, types_[i])
	}

	assert.Equal(t, "response.done", types_[len(types_)-1])
	assert.Contains(t, types_, "response.output_text.done")
	assert.Contains(t, types_, "response.content_part.done")
	assert.Contains(t, types_, "response.output_item.done")
}
