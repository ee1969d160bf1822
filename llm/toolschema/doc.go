// Package toolschema converts the canonical OpenAI function-tool shape
// types.ToolSchema already carries into each provider's own wire format,
// and normalises tool-call responses back to the canonical
// {tool_calls: [{id, type: "function", function: {name, arguments}}]}
// shape regardless of which provider produced them.
//
// Grounded on the teacher's llm/providers/tool_schema_conversion_property_
// test.go, which establishes the canonical/provider-specific tool shapes
// (mockOpenAITool, mockMiniMaxTool) inline per provider rather than via a
// shared conversion package; this package factors that same conversion
// logic out once so the Anthropic, Google, and OpenAI-compatible shapes
// all round-trip through one tested place instead of being duplicated
// per provider client.
package toolschema
