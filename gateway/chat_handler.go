package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ariavoice/control-plane/api"
	"github.com/ariavoice/control-plane/api/handlers"
	"github.com/ariavoice/control-plane/llm"
	"github.com/ariavoice/control-plane/llm/cost"
	"github.com/ariavoice/control-plane/search"
	"github.com/ariavoice/control-plane/semantic"
	"github.com/ariavoice/control-plane/smarthome"
	"github.com/ariavoice/control-plane/types"
)

// ChatHandler is the Gateway's OpenAI-compatible entry point. It layers
// admission control, intent pre-routing, semantic caching, and
// ack-before-token streaming on top of api/handlers.ChatHandler's
// decode/validate/convert/respond shape.
type ChatHandler struct {
	provider  llm.Provider
	admission *Admission
	router    *IntentRouter
	cache     *semantic.Cache
	search    *search.Engine
	smarthome *smarthome.Controller
	rooms     *RoomDetector
	costSink  cost.Sink
	pricing   *cost.Table
	logger    *zap.Logger
}

// SetCostSink attaches a usage-persistence sink and its pricing table;
// direct-LLM completions record one UsageRecord per call once set. Nil (the
// default) disables recording, matching the teacher's "db not available,
// feature disabled" degrade-gracefully pattern rather than failing the
// request.
func (h *ChatHandler) SetCostSink(sink cost.Sink, pricing *cost.Table) {
	h.costSink = sink
	h.pricing = pricing
}

// NewChatHandler wires every Gateway collaborator together. search,
// smarthome, cache, and rooms may be nil to run in a reduced
// direct-LLM-only mode (useful for tests).
func NewChatHandler(
	provider llm.Provider,
	admission *Admission,
	router *IntentRouter,
	cache *semantic.Cache,
	searchEngine *search.Engine,
	home *smarthome.Controller,
	rooms *RoomDetector,
	logger *zap.Logger,
) *ChatHandler {
	return &ChatHandler{
		provider:  provider,
		admission: admission,
		router:    router,
		cache:     cache,
		search:    searchEngine,
		smarthome: home,
		rooms:     rooms,
		logger:    logger.With(zap.String("component", "gateway_chat_handler")),
	}
}

// HandleCompletion serves POST /v1/chat/completions. Orchestrator-routed
// queries (weather, dining, sports, smart-home control, ...) are answered
// from the Search Engine / Smart-Home Controller; everything else goes
// straight to the LLM Router. Both paths go through admission control
// first.
func (h *ChatHandler) HandleCompletion(w http.ResponseWriter, r *http.Request) {
	if !handlers.ValidateContentType(w, r, h.logger) {
		return
	}

	var req api.ChatRequest
	if err := handlers.DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	if err := h.validate(&req); err != nil {
		handlers.WriteError(w, err, h.logger)
		return
	}

	if err := h.admission.Acquire(); err != nil {
		handlers.WriteError(w, err.(*types.Error), h.logger)
		return
	}

	ctx := r.Context()
	query := h.buildQuery(r, &req)
	route := h.router.Route(query.Text)

	if route == RouteOrchestrator && h.orchestratorReady() {
		text, err := h.answerFromOrchestrator(ctx, query)
		if err == nil {
			handlers.WriteSuccess(w, h.wrapAsCompletion(&req, text))
			return
		}
		h.logger.Warn("orchestrator path failed, falling back to llm", zap.Error(err))
	}

	h.completeDirect(ctx, w, &req)
}

// HandleStream serves the SSE variant of HandleCompletion, always
// emitting the acknowledgment phrase as the first chunk before any real
// token, whichever path answers the query.
func (h *ChatHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	if !handlers.ValidateContentType(w, r, h.logger) {
		return
	}

	var req api.ChatRequest
	if err := handlers.DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	if err := h.validate(&req); err != nil {
		handlers.WriteError(w, err, h.logger)
		return
	}

	if err := h.admission.Acquire(); err != nil {
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

	ctx := r.Context()
	query := h.buildQuery(r, &req)
	ack := AckPhrase(query.Text, 0)
	route := h.router.Route(query.Text)

	var source TokenSource
	if route == RouteOrchestrator && h.orchestratorReady() {
		source = func(ctx context.Context) (<-chan Token, error) {
			out := make(chan Token, 1)
			go func() {
				defer close(out)
				text, err := h.answerFromOrchestrator(ctx, query)
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
			return h.streamDirect(ctx, &req)
		}
	}

	for tok := range AckThenStream(ctx, ack, source) {
		if tok.Err != nil {
			h.writeStreamError(w, flusher, tok.Err)
			return
		}
		h.writeStreamChunk(w, flusher, tok.Text, tok.Done)
		if tok.Done {
			break
		}
	}

	w.Write([]byte("data: [DONE]\n\n"))
	flusher.Flush()
}

func (h *ChatHandler) validate(req *api.ChatRequest) *types.Error {
	if req.Model == "" {
		return types.NewError(types.ErrBadRequest, "model is required").WithHTTPStatus(http.StatusBadRequest)
	}
	if len(req.Messages) == 0 {
		return types.NewError(types.ErrBadRequest, "messages cannot be empty").WithHTTPStatus(http.StatusBadRequest)
	}
	return nil
}

func (h *ChatHandler) buildQuery(r *http.Request, req *api.ChatRequest) Query {
	messages := make([]types.Message, len(req.Messages))
	for i, m := range req.Messages {
		messages[i] = types.Message{Role: types.Role(m.Role), Content: m.Content, Name: m.Name, ToolCalls: toTypesToolCalls(m.ToolCalls), ToolCallID: m.ToolCallID}
	}
	deviceID := r.Header.Get("X-Device-ID")
	room := deviceID
	if h.rooms != nil {
		room = h.rooms.Detect(r.Context(), deviceID)
	}
	return Query{
		Text:        LastUserText(messages),
		SessionID:   req.TraceID,
		DeviceID:    deviceID,
		Room:        room,
		Mode:        ModeOwner,
		Streaming:   false,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		RequestID:   req.TraceID,
	}
}

func (h *ChatHandler) orchestratorReady() bool {
	return h.admission.OrchestratorAvailable() && (h.search != nil || h.smarthome != nil)
}

// answerFromOrchestrator checks the semantic cache, then falls through to
// the Smart-Home Controller for device-control intents or the Search
// Engine for everything else, caching cacheable results.
func (h *ChatHandler) answerFromOrchestrator(ctx context.Context, q Query) (string, error) {
	decision := semantic.Decide(q.Text)

	var cacheKey string
	if h.cache != nil && decision.Cacheable {
		cacheKey = semantic.Key(decision.NormalizedQuery, nil)
		if entry, ok := h.cache.Get(ctx, cacheKey); ok {
			var cached string
			if err := json.Unmarshal(entry.Payload, &cached); err == nil {
				return cached, nil
			}
		}
	}

	var answer string
	err := h.admission.CallOrchestrator(ctx, func() error {
		out, err := h.dispatchOrchestrator(ctx, q)
		if err != nil {
			return err
		}
		answer = out
		return nil
	})
	if err != nil {
		return "", err
	}

	if h.cache != nil && decision.Cacheable {
		payload, _ := json.Marshal(answer)
		h.cache.Set(ctx, cacheKey, &semantic.Entry{
			Category:        decision.Category,
			NormalizedQuery: decision.NormalizedQuery,
			Payload:         payload,
			StoredAt:        time.Now(),
		}, time.Duration(decision.TTL)*time.Second)
	}

	return answer, nil
}

func (h *ChatHandler) dispatchOrchestrator(ctx context.Context, q Query) (string, error) {
	category, _ := semantic.Classify(q.Text)
	if h.smarthome != nil && category == semantic.CategorySmartHome {
		intent, err := h.smarthome.ExtractIntent(q.Text, q.Room, nil)
		if err != nil {
			return "", err
		}
		return h.smarthome.Execute(ctx, intent)
	}

	if h.search == nil {
		return "", types.NewError(types.ErrUpstreamUnavailable, "search engine not configured").WithHTTPStatus(http.StatusBadGateway)
	}

	_, results := h.search.Search(ctx, q.Text, q.Room, 5, false, nil)
	if len(results) == 0 {
		return "I couldn't find anything for that.", nil
	}
	return results[0].Snippet, nil
}

func (h *ChatHandler) completeDirect(ctx context.Context, w http.ResponseWriter, req *api.ChatRequest) {
	llmReq := h.toLLMRequest(req)
	if cwErr := h.checkContextWindow(llmReq); cwErr != nil {
		handlers.WriteError(w, cwErr, h.logger)
		return
	}
	start := time.Now()
	resp, err := h.provider.Completion(ctx, llmReq)
	if err != nil {
		h.handleProviderError(w, err)
		return
	}
	h.recordUsage(resp, req.TraceID, time.Since(start), false)
	handlers.WriteSuccess(w, h.fromLLMResponse(resp))
}

// checkContextWindow rejects a request whose prompt plus requested
// completion budget would exceed the target model's configured context
// window, counting message tokens with llm/cost.CountPromptTokens and tool
// schema overhead with types.EstimateTokenizer (a bound tool definition can
// be large enough on its own to matter) ahead of the provider call. Nil
// when no pricing table is attached (SetCostSink not called), matching the
// rest of the cost-tracking feature's degrade-gracefully-when-unconfigured
// behavior.
func (h *ChatHandler) checkContextWindow(llmReq *llm.ChatRequest) *types.Error {
	if h.pricing == nil {
		return nil
	}
	promptTokens := 0
	for _, m := range llmReq.Messages {
		promptTokens += cost.CountPromptTokens(llmReq.Model, m.Content)
	}
	if len(llmReq.Tools) > 0 {
		promptTokens += types.NewEstimateTokenizer().EstimateToolTokens(llmReq.Tools)
	}
	if err := h.pricing.CheckContextWindow(llmReq.Model, promptTokens, llmReq.MaxTokens); err != nil {
		return types.NewError(types.ErrContextTooLong, err.Error()).WithHTTPStatus(http.StatusRequestEntityTooLarge)
	}
	return nil
}

// recordUsage writes one UsageRecord per completed direct-LLM call when a
// cost sink is attached. Orchestrator-answered queries never reach here
// since they don't call the provider.
func (h *ChatHandler) recordUsage(resp *llm.ChatResponse, requestID string, latency time.Duration, streaming bool) {
	if h.costSink == nil {
		return
	}
	var costUSD float64
	if h.pricing != nil {
		costUSD = h.pricing.Compute(resp.Model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	}
	h.costSink.Record(cost.UsageRecord{
		Provider:     resp.Provider,
		Model:        resp.Model,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
		CostUSD:      costUSD,
		LatencyMS:    latency.Milliseconds(),
		Streaming:    streaming,
		RequestID:    requestID,
		StoredAt:     time.Now(),
	})
}

func (h *ChatHandler) streamDirect(ctx context.Context, req *api.ChatRequest) (<-chan Token, error) {
	llmReq := h.toLLMRequest(req)
	if cwErr := h.checkContextWindow(llmReq); cwErr != nil {
		return nil, cwErr
	}
	upstream, err := h.provider.Stream(ctx, llmReq)
	if err != nil {
		return nil, err
	}
	out := make(chan Token, 1)
	go func() {
		defer close(out)
		for chunk := range upstream {
			if chunk.Err != nil {
				out <- Token{Err: chunk.Err}
				return
			}
			out <- Token{Text: chunk.Delta.Content, Done: chunk.FinishReason != ""}
		}
	}()
	return out, nil
}

func (h *ChatHandler) toLLMRequest(req *api.ChatRequest) *llm.ChatRequest {
	messages := make([]types.Message, len(req.Messages))
	for i, m := range req.Messages {
		messages[i] = types.Message{Role: types.Role(m.Role), Content: m.Content, Name: m.Name, ToolCalls: toTypesToolCalls(m.ToolCalls), ToolCallID: m.ToolCallID}
	}
	tools := make([]types.ToolSchema, len(req.Tools))
	for i, t := range req.Tools {
		tools[i] = types.ToolSchema{Name: t.Name, Description: t.Description, Parameters: t.Parameters}
	}
	timeout := 30 * time.Second
	if req.Timeout != "" {
		if d, err := time.ParseDuration(req.Timeout); err == nil {
			timeout = d
		}
	}
	return &llm.ChatRequest{
		TraceID:     req.TraceID,
		Model:       req.Model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		TopP:        req.TopP,
		Stop:        req.Stop,
		Tools:       tools,
		ToolChoice:  req.ToolChoice,
		Timeout:     timeout,
		Metadata:    req.Metadata,
		Tags:        req.Tags,
	}
}

func (h *ChatHandler) fromLLMResponse(resp *llm.ChatResponse) *api.ChatResponse {
	choices := make([]api.ChatChoice, len(resp.Choices))
	for i, c := range resp.Choices {
		choices[i] = api.ChatChoice{
			Index:        c.Index,
			FinishReason: c.FinishReason,
			Message: api.Message{
				Role:       string(c.Message.Role),
				Content:    c.Message.Content,
				Name:       c.Message.Name,
				ToolCalls:  toAPIToolCalls(c.Message.ToolCalls),
				ToolCallID: c.Message.ToolCallID,
			},
		}
	}
	return &api.ChatResponse{
		ID:        resp.ID,
		Provider:  resp.Provider,
		Model:     resp.Model,
		Choices:   choices,
		Usage:     api.ChatUsage{PromptTokens: resp.Usage.PromptTokens, CompletionTokens: resp.Usage.CompletionTokens, TotalTokens: resp.Usage.TotalTokens},
		CreatedAt: resp.CreatedAt,
	}
}

func (h *ChatHandler) wrapAsCompletion(req *api.ChatRequest, text string) *api.ChatResponse {
	return &api.ChatResponse{
		ID:        fmt.Sprintf("orch-%d", time.Now().UnixNano()),
		Provider:  "orchestrator",
		Model:     req.Model,
		Choices:   []api.ChatChoice{{Index: 0, FinishReason: "stop", Message: api.Message{Role: string(types.RoleAssistant), Content: text}}},
		CreatedAt: time.Now(),
	}
}

// toTypesToolCalls and toAPIToolCalls copy tool-call slices between the
// wire-format and canonical packages; api.ToolCall is an alias of
// types.ToolCall, so each element is copied field for field.
func toTypesToolCalls(calls []api.ToolCall) []types.ToolCall {
	if calls == nil {
		return nil
	}
	out := make([]types.ToolCall, len(calls))
	for i, c := range calls {
		out[i] = types.ToolCall{ID: c.ID, Name: c.Name, Arguments: c.Arguments}
	}
	return out
}

func toAPIToolCalls(calls []types.ToolCall) []api.ToolCall {
	if calls == nil {
		return nil
	}
	out := make([]api.ToolCall, len(calls))
	for i, c := range calls {
		out[i] = api.ToolCall{ID: c.ID, Name: c.Name, Arguments: c.Arguments}
	}
	return out
}

func (h *ChatHandler) handleProviderError(w http.ResponseWriter, err error) {
	if typed, ok := err.(*types.Error); ok {
		handlers.WriteError(w, typed, h.logger)
		return
	}
	handlers.WriteError(w, types.NewError(types.ErrInternalError, "provider error").WithCause(err).WithRetryable(false), h.logger)
}

func (h *ChatHandler) writeStreamChunk(w http.ResponseWriter, flusher http.Flusher, text string, done bool) {
	chunk := api.StreamChunk{Delta: api.Message{Role: string(types.RoleAssistant), Content: text}}
	if done {
		chunk.FinishReason = "stop"
	}
	payload, _ := json.Marshal(chunk)
	w.Write([]byte("data: "))
	w.Write(payload)
	w.Write([]byte("\n\n"))
	flusher.Flush()
}

func (h *ChatHandler) writeStreamError(w http.ResponseWriter, flusher http.Flusher, err error) {
	msg := err.Error()
	if typed, ok := err.(*types.Error); ok {
		msg = typed.Message
	}
	payload, _ := json.Marshal(map[string]string{"error": msg})
	w.Write([]byte("event: error\ndata: "))
	w.Write(payload)
	w.Write([]byte("\n\n"))
	flusher.Flush()
}
