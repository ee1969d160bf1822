// Package gateway is the front door for the voice-assistant control
// plane: admission control, OpenAI-compatible and Responses-style HTTP
// translation, acknowledgment-before-token streaming, and room detection.
// Grounded on api/handlers/chat.go (request decode/validate/convert/
// respond shape), api/handlers/health.go, and internal/server/manager.go
// (the HTTP server lifecycle), with the admission, pre-routing,
// acknowledgment-phrase, and room-detection logic ported from
// original_source/src/gateway/main.go's is_athena_query_keywords,
// _detect_room_from_active_satellite, and the ack_text heuristic in
// stream_responses_api.
package gateway
