package core

import (
	"context"
	"testing"
	"time"
)

func TestSinkSendReceive(t *testing.T) {
	sink := NewSink(4)
	ctx := context.Background()

	events := []Event{
		ProgressText{Source: "supervisor", Text: "processing"},
		ToolCallStarted{Agent: "supervisor", Tool: "weather_agent"},
		ToolCallFinished{Agent: "supervisor", Tool: "weather_agent", OK: true},
		Final{Text: "done"},
	}
	for _, ev := range events {
		if err := sink.Send(ctx, ev); err != nil {
			t.Fatalf("Send: %v", err)
		}
	}
	sink.Close()

	var got []Event
	for ev := range sink.Events() {
		got = append(got, ev)
	}
	if len(got) != len(events) {
		t.Fatalf("received %d events, want %d", len(got), len(events))
	}
	for i := range events {
		if got[i] != events[i] {
			t.Errorf("event %d = %#v, want %#v", i, got[i], events[i])
		}
	}
}

func TestSinkSendAfterClose(t *testing.T) {
	sink := NewSink(1)
	sink.Close()
	err := sink.Send(context.Background(), ProgressText{Source: "a", Text: "late"})
	if err != ErrSinkClosed {
		t.Fatalf("Send after close = %v, want ErrSinkClosed", err)
	}
}

func TestSinkCloseIdempotent(t *testing.T) {
	sink := NewSink(1)
	sink.Close()
	sink.Close() // must not panic
}

func TestSinkSendBlocksUntilCancelled(t *testing.T) {
	sink := NewSink(1)
	ctx, cancel := context.WithCancel(context.Background())

	if err := sink.Send(ctx, PartialToken{Text: "x"}); err != nil {
		t.Fatalf("first Send: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- sink.Send(ctx, PartialToken{Text: "y"})
	}()

	select {
	case err := <-done:
		t.Fatalf("Send returned %v before cancel with full queue", err)
	case <-time.After(20 * time.Millisecond):
	}

	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Fatalf("Send = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Send did not unblock after cancel")
	}
	sink.Close()
}

func TestSinkNilReceiver(t *testing.T) {
	var sink *Sink
	if err := sink.Send(context.Background(), Final{Text: "x"}); err != nil {
		t.Fatalf("nil sink Send = %v, want nil", err)
	}
	sink.Close() // must not panic
}

func TestSinkDefaultBuffer(t *testing.T) {
	sink := NewSink(0)
	ctx := context.Background()
	for i := 0; i < DefaultSinkBuffer; i++ {
		if err := sink.Send(ctx, PartialToken{Text: "t"}); err != nil {
			t.Fatalf("Send %d: %v", i, err)
		}
	}
	sink.Close()
}
