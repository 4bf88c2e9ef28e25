// Package core provides the foundational domain types shared across
// Switchboard. It defines the core abstractions for:
//
//   - Messages (role-tagged conversation records with typed parts)
//   - ChatbotState (the value a turn threads through the graph)
//   - Progress events and the per-turn Sink streaming them to clients
//
// The package intentionally keeps orchestration concerns (agents, models,
// middleware, graph execution) out of scope so that higher layers depend on
// it without cycles.
package core
