package gateway

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/ariavoice/control-plane/api"
	"github.com/ariavoice/control-plane/api/handlers"
	"github.com/ariavoice/control-plane/types"
)

// ResponsesHandler serves the Responses-API-shaped streaming endpoint,
// emitting the fixed 8-event sequence OpenAI's Responses API SDK requires:
// response.created, response.output_item.added, response.content_part.added,
// response.output_text.delta (repeated), response.output_text.done,
// response.content_part.done, response.output_item.done, response.done.
//
// Ported from original_source/src/gateway/main.go's stream_responses_api,
// which documents this exact ordering and JSON shape in its own docstring.
type ResponsesHandler struct {
	chat   *ChatHandler
	logger *zap.Logger
}

// NewResponsesHandler wires a ResponsesHandler on top of an existing
// ChatHandler so both endpoints share admission control, routing, and the
// ack-before-token queue.
func NewResponsesHandler(chat *ChatHandler, logger *zap.Logger) *ResponsesHandler {
	return &ResponsesHandler{chat: chat, logger: logger.With(zap.String("component", "gateway_responses_handler"))}
}

// responseEvent is the envelope every Responses-API SSE frame shares: a
// discriminator "type" plus a type-specific payload, matching the
// original's per-event dict literals.
type responseEvent map[string]any

func (h *ResponsesHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	if !handlers.ValidateContentType(w, r, h.logger) {
		return
	}

	var req api.ChatRequest
	if err := handlers.DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}
	if err := h.chat.validate(&req); err != nil {
		handlers.WriteError(w, err, h.logger)
		return
	}
	if err := h.chat.admission.Acquire(); err != nil {
		handlers.WriteError(w, err.(*types.Error), h.logger)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	flusher, ok := w.(http.Flusher)
	if !ok {
		handlers.WriteError(w, types.NewError(types.ErrInternalError, "streaming not supported"), h.logger)
		return
	}

	responseID := "resp_" + randomHex(24)
	itemID := "item_" + randomHex(16)

	writeEvent(w, flusher, responseEvent{
		"type": "response.created",
		"response": map[string]any{
			"id": responseID, "object": "response", "status": "in_progress", "output": []any{},
		},
	})
	writeEvent(w, flusher, responseEvent{
		"type": "response.output_item.added", "output_index": 0,
		"item": map[string]any{"id": itemID, "type": "message", "role": "assistant", "content": []any{}},
	})
	writeEvent(w, flusher, responseEvent{
		"type": "response.content_part.added", "item_id": itemID, "output_index": 0, "content_index": 0,
		"part": map[string]any{"type": "output_text", "text": ""},
	})

	ctx := r.Context()
	query := h.chat.buildQuery(r, &req)
	ack := AckPhrase(query.Text, 0)
	route := h.chat.router.Route(query.Text)

	fullText := ""
	emitDelta := func(delta string) {
		fullText += delta
		writeEvent(w, flusher, responseEvent{
			"type": "response.output_text.delta", "item_id": itemID, "output_index": 0,
			"content_index": 0, "delta": delta,
		})
	}

	tokens := h.collectTokens(ctx, ack, route, query, &req)
	for tok := range tokens {
		if tok.Err != nil {
			h.writeError(w, flusher, tok.Err)
			return
		}
		if tok.Text != "" {
			emitDelta(tok.Text)
		}
		if tok.Done {
			break
		}
	}

	writeEvent(w, flusher, responseEvent{
		"type": "response.output_text.done", "item_id": itemID, "output_index": 0, "content_index": 0, "text": fullText,
	})
	writeEvent(w, flusher, responseEvent{
		"type": "response.content_part.done", "item_id": itemID, "output_index": 0, "content_index": 0,
		"part": map[string]any{"type": "output_text", "text": fullText},
	})
	writeEvent(w, flusher, responseEvent{
		"type": "response.output_item.done", "output_index": 0,
		"item": map[string]any{
			"id": itemID, "type": "message", "role": "assistant",
			"content": []any{map[string]any{"type": "output_text", "text": fullText}},
		},
	})
	writeEvent(w, flusher, responseEvent{
		"type": "response.done",
		"response": map[string]any{
			"id": responseID, "object": "response", "status": "completed",
			"output": []any{map[string]any{
				"id": itemID, "type": "message", "role": "assistant",
				"content": []any{map[string]any{"type": "output_text", "text": fullText}},
			}},
		},
	})
}

func (h *ResponsesHandler) collectTokens(ctx context.Context, ack string, route Route, query Query, req *api.ChatRequest) <-chan Token {
	var source TokenSource
	if route == RouteOrchestrator && h.chat.orchestratorReady() {
		source = func(ctx context.Context) (<-chan Token, error) {
			out := make(chan Token, 1)
			go func() {
				defer close(out)
				text, err := h.chat.answerFromOrchestrator(ctx, query)
				if err != nil {
					out <- Token{Err: err}
					return
				}
				out <- Token{Text: text, Done: true}
			}()
			return out, nil
		}
	} else {
		source = func(ctx context.Context) (<-chan Token, error) {
			return h.chat.streamDirect(ctx, req)
		}
	}
	return AckThenStream(ctx, ack, source)
}

func (h *ResponsesHandler) writeError(w http.ResponseWriter, flusher http.Flusher, err error) {
	msg := err.Error()
	if typed, ok := err.(*types.Error); ok {
		msg = typed.Message
	}
	writeEvent(w, flusher, responseEvent{
		"type": "error", "error": map[string]any{"message": msg, "type": "server_error"},
	})
}

func writeEvent(w http.ResponseWriter, flusher http.Flusher, event responseEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	w.Write([]byte("data: "))
	w.Write(payload)
	w.Write([]byte("\n\n"))
	flusher.Flush()
}

func randomHex(n int) string {
	buf := make([]byte, n/2+1)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%x", buf)[:n]
	}
	return hex.EncodeToString(buf)[:n]
}
