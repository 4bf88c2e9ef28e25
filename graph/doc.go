// Package graph wires agents into the two-node turn pipeline.
//
// A turn flows through a fixed state machine: the supervisor agent routes
// the query across specialists exposed as wrapper tools, then the
// formatter turns the raw specialist output into the user-visible reply.
// The SupervisorBuilder recomposes the supervisor each turn from the
// registry, so prompt and tool list always match the registered agents.
// Failures are translated into fixed user-facing messages; the full error
// is only logged.
package graph
