// Package middleware implements the request pipeline that runs around every
// model call.
//
// A Middleware wraps a Handler, rewriting the outgoing request or observing
// the result. Chain composes them with the first middleware outermost. The
// engine applies a fixed order around both supervisor and specialist calls:
// DatetimeContext, then ToolInstructions when knowledge tools are present,
// then any caller registered middlewares, then Summarization when enabled,
// and PromptDebug innermost when debugging.
//
// Middlewares that only mutate the request implement the smaller RequestHook
// interface and are adapted with FromHook.
package middleware
