package testutil

import (
	"fmt"

	"github.com/switchboard-dev/switchboard/core"
)

// ToolCallMessage builds an assistant message carrying the given tool
// calls, in order, the shape a model emits when it wants tools run.
func ToolCallMessage(calls ...core.ToolCall) core.Message {
	parts := make([]core.Part, 0, len(calls))
	for _, call := range calls {
		parts = append(parts, core.ToolCallPart{ToolCall: call})
	}
	return core.NewAssistantMessage(parts...)
}

// Call builds one tool call with a generated id. Arguments are rendered
// as a single-key JSON object.
func Call(name, argKey, argValue string) core.ToolCall {
	return core.ToolCall{
		ID:        "call_" + name,
		Name:      name,
		Arguments: fmt.Sprintf(`{%q:%q}`, argKey, argValue),
	}
}
