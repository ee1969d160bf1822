// Package smarthome extracts structured device-control intent from free
// text and dispatches it against a home-automation API.
//
// Grounded on original_source/src/orchestrator/smart_home_controller.py: a
// large prioritised fast-path rule engine handles the common command
// families without invoking the LLM; anything left over goes through an
// LLM extraction pass with a heuristic degrade on parse failure. The
// keyword/regex corpora here are a representative subset of the original's
// much larger round-accumulated lists (see DESIGN.md) — every family named
// in the specification is implemented, not every historical phrasing.
package smarthome
