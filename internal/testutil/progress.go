package testutil

import "github.com/switchboard-dev/switchboard/core"

// DrainSink collects every event from a closed (or closing) sink. Call it
// after the turn producing events has returned, or concurrently from the
// consumer side; it returns once the sink is closed.
func DrainSink(sink *core.Sink) []core.Event {
	var events []core.Event
	for ev := range sink.Events() {
		events = append(events, ev)
	}
	return events
}

// EventsOfType filters events to the concrete type E, preserving order.
func EventsOfType[E core.Event](events []core.Event) []E {
	var out []E
	for _, ev := range events {
		if e, ok := ev.(E); ok {
			out = append(out, e)
		}
	}
	return out
}
