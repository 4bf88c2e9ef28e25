// Package agent defines chat agents and the runtime that executes them.
//
// An Agent is a declarative bundle: a name, a capabilities prompt, tools,
// an optional knowledge store, and middleware. The Runtime runs an agent's
// tool loop against the shared model client, bounded by a per-role timeout
// and a recursion limit. Specialists absorb their timeout into a readable
// result so a calling supervisor can recover; supervisors raise it.
//
// A Registry holds the specialist agents in registration order, which is
// the order they appear in the supervisor's prompt and tool list.
package agent
