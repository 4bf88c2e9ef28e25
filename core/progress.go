package core

import (
	"context"
	"errors"
	"sync"
)

// DefaultSinkBuffer is the event queue capacity used when NewSink is called
// with a non-positive buffer size.
const DefaultSinkBuffer = 64

// ErrSinkClosed is returned by Send after the sink has been closed.
var ErrSinkClosed = errors.New("progress sink closed")

// Event is a progress notification streamed to clients during a turn.
// Concrete event types implement the unexported marker forming a closed set.
type Event interface{ isEvent() }

// ProgressText reports coarse status from an agent or the engine, for
// example "processing" or "calling weather_agent".
type ProgressText struct {
	Source string `json:"source"`
	Text   string `json:"text"`
}

func (ProgressText) isEvent() {}

// ToolCallStarted announces a tool invocation before its handler runs.
type ToolCallStarted struct {
	Agent       string `json:"agent"`
	Tool        string `json:"tool"`
	ArgsPreview string `json:"args_preview,omitempty"`
}

func (ToolCallStarted) isEvent() {}

// ToolCallFinished reports the completion of a tool invocation.
type ToolCallFinished struct {
	Agent string `json:"agent"`
	Tool  string `json:"tool"`
	OK    bool   `json:"ok"`
}

func (ToolCallFinished) isEvent() {}

// PartialToken carries one streamed fragment of the final reply.
type PartialToken struct {
	Text string `json:"text"`
}

func (PartialToken) isEvent() {}

// Final carries the formatted user-visible response.
type Final struct {
	Text string `json:"text"`
}

func (Final) isEvent() {}

// Error carries a user-presentable failure message.
type Error struct {
	Message string `json:"message"`
}

func (Error) isEvent() {}

// Sink is a bounded event queue scoped to a single turn. One producer side
// (the engine and its tool goroutines) sends; one consumer (the client)
// ranges over Events until the channel closes. Send blocks when the queue
// is full, so a stalled consumer applies backpressure to the turn.
type Sink struct {
	mu     sync.RWMutex
	ch     chan Event
	closed bool
}

// NewSink creates a sink with the given buffer capacity. Non-positive
// values fall back to DefaultSinkBuffer.
func NewSink(buffer int) *Sink {
	if buffer <= 0 {
		buffer = DefaultSinkBuffer
	}
	return &Sink{ch: make(chan Event, buffer)}
}

// Send enqueues an event, blocking while the queue is full. It returns
// ctx.Err() if the context is cancelled first and ErrSinkClosed if the sink
// has been closed. A nil sink discards events, which lets callers emit
// progress unconditionally.
func (s *Sink) Send(ctx context.Context, ev Event) error {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrSinkClosed
	}
	select {
	case s.ch <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Events exposes the consumer side. The channel is closed by Close, after
// which ranging over it terminates.
func (s *Sink) Events() <-chan Event {
	if s == nil {
		return nil
	}
	return s.ch
}

// Close marks the sink closed and closes the event channel. It waits for
// in-flight Send calls to finish and is safe to call more than once.
func (s *Sink) Close() {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
}
