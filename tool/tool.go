// Package tool implements the function calling subsystem that lets agents
// invoke structured capabilities (APIs, computations, lookups) with schema
// validated arguments and consistent error handling.
package tool

import (
	"context"
	"fmt"

	"github.com/switchboard-dev/switchboard/internal/util"
)

// Error codes carried by ToolError.
const (
	// CodeValidationError marks a schema or argument mismatch.
	CodeValidationError = "VALIDATION_ERROR"
	// CodeExecutionError marks a failure inside the tool handler.
	CodeExecutionError = "EXECUTION_ERROR"
)

// ValidationError represents argument validation errors with detailed information.
type ValidationError = util.ValidationError

// ToolError represents errors that occur during tool execution.
type ToolError struct {
	Tool    string `json:"tool"`              // Name of the tool that failed
	Message string `json:"message"`           // Error message
	Code    string `json:"code"`              // Error code for categorization
	Details any    `json:"details,omitempty"` // Additional error details
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// NewToolError creates a new ToolError with the specified details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{
		Tool:    tool,
		Message: message,
		Code:    code,
	}
}

// Handler is the implementation of a tool. It receives already validated
// arguments and returns a string result for the model. Handlers must honor
// ctx cancellation; the runtime bounds every call with a deadline.
type Handler func(ctx context.Context, args map[string]any) (string, error)

// Tool describes one callable capability as a plain record: a unique
// snake_case name, a description shown to models, a JSON-schema-like
// argument specification and the handler. Tools are immutable after
// construction and safe for concurrent use.
type Tool struct {
	Name        string
	Description string
	InputSchema map[string]any
	Handler     Handler
}

// New constructs a Tool, rejecting empty or malformed names, a missing
// handler, and a schema without object shape.
func New(name, description string, inputSchema map[string]any, handler Handler) (*Tool, error) {
	if !validName(name) {
		return nil, fmt.Errorf("invalid tool name %q: must be a non-empty identifier", name)
	}
	if handler == nil {
		return nil, fmt.Errorf("tool %q: handler must not be nil", name)
	}
	if inputSchema == nil {
		inputSchema = map[string]any{"type": "object", "properties": map[string]any{}}
	}
	if typ, _ := inputSchema["type"].(string); typ != "object" {
		return nil, fmt.Errorf("tool %q: input schema type must be \"object\", got %q", name, typ)
	}
	return &Tool{
		Name:        name,
		Description: description,
		InputSchema: inputSchema,
		Handler:     handler,
	}, nil
}

// MustNew is New that panics on error, for static tool tables.
func MustNew(name, description string, inputSchema map[string]any, handler Handler) *Tool {
	t, err := New(name, description, inputSchema, handler)
	if err != nil {
		panic(err)
	}
	return t
}

// FromStruct derives the argument schema from a struct via reflection. json
// tags name the arguments, description tags document them, and non-pointer
// fields without omitempty become required.
//
// Example:
//
//	type SumArgs struct {
//	  A float64 `json:"a" description:"First addend"`
//	  B float64 `json:"b" description:"Second addend"`
//	}
//
//	sum, err := tool.FromStruct(
//	  "calculate_sum",
//	  "Calculate the sum of two numbers",
//	  SumArgs{},
//	  func(ctx context.Context, args map[string]any) (string, error) {
//	    return fmt.Sprintf("%g", args["a"].(float64)+args["b"].(float64)), nil
//	  },
//	)
func FromStruct(name, description string, structType any, handler Handler) (*Tool, error) {
	return New(name, description, util.CreateSchema(structType), handler)
}

// Call validates args against the declared schema then invokes the handler.
//
// Error semantics:
//
//	*ToolError (returned directly)  -> forwarded unchanged
//	validation failure              -> *ToolError{Code: VALIDATION_ERROR}
//	other error                     -> *ToolError{Code: EXECUTION_ERROR}
func (t *Tool) Call(ctx context.Context, args map[string]any) (string, error) {
	if args == nil {
		args = map[string]any{}
	}
	if err := util.ValidateArguments(args, t.InputSchema); err != nil {
		return "", &ToolError{
			Tool:    t.Name,
			Message: fmt.Sprintf("argument validation failed: %v", err),
			Code:    CodeValidationError,
			Details: err,
		}
	}

	result, err := t.Handler(ctx, args)
	if err != nil {
		if toolErr, ok := err.(*ToolError); ok {
			return "", toolErr
		}
		return "", &ToolError{
			Tool:    t.Name,
			Message: err.Error(),
			Code:    CodeExecutionError,
		}
	}

	return result, nil
}

// validName accepts identifier-shaped names: letters, digits and
// underscores, not starting with a digit.
func validName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_':
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}
