// Package session holds per-conversation state between turns and
// serializes turn execution per session.
//
// A Session is the conversation history one client accumulates across
// turns; the Store interface owns persistence so the in-memory default
// can be swapped for a durable backend without touching callers. The
// Manager bridges sessions to the graph executor: it loads history, runs
// the turn, and writes the grown history back, holding a per-session lock
// so the next turn never starts before the previous one returns.
package session
