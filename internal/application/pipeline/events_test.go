package pipeline

import (
	"context"
	"testing"
	"time"
)

func TestEmitterDropsWhenBufferFull(t *testing.T) {
	e := NewEmitter(1)
	ctx := context.Background()

	e.Emit(ctx, Event{Type: EventStep})
	e.Emit(ctx, Event{Type: EventImageProgress}) // 缓冲已满，应被丢弃
	e.Close()

	var got []Event
	for ev := range e.Events() {
		got = append(got, ev)
	}
	if len(got) != 1 || got[0].Type != EventStep {
		t.Errorf("expected only the first event to survive, got %v", got)
	}
}

func TestEmitTerminalWaitsForConsumer(t *testing.T) {
	e := NewEmitter(1)
	ctx := context.Background()

	e.Emit(ctx, Event{Type: EventStep})

	delivered := make(chan struct{})
	go func() {
		e.EmitTerminal(ctx, Event{Type: EventComplete})
		close(delivered)
	}()

	// 终态事件在缓冲满时必须等待消费者，而不是丢弃
	select {
	case <-delivered:
		t.Fatal("terminal event must block while the buffer is full")
	case <-time.After(20 * time.Millisecond):
	}

	if ev := <-e.Events(); ev.Type != EventStep {
		t.Fatalf("unexpected first event %s", ev.Type)
	}

	select {
	case <-delivered:
	case <-time.After(time.Second):
		t.Fatal("terminal event not delivered after buffer drained")
	}

	if ev := <-e.Events(); ev.Type != EventComplete {
		t.Errorf("expected terminal event, got %s", ev.Type)
	}
}

func TestEmitTerminalGivesUpOnCancelledContext(t *testing.T) {
	e := NewEmitter(1)
	ctx, cancel := context.WithCancel(context.Background())

	e.Emit(ctx, Event{Type: EventStep})
	cancel()

	done := make(chan struct{})
	go func() {
		e.EmitTerminal(ctx, Event{Type: EventError})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("EmitTerminal must return once the consumer is gone")
	}
}

func TestNilEmitterIsSafe(t *testing.T) {
	var e *Emitter
	ctx := context.Background()

	e.Emit(ctx, Event{Type: EventStep})
	e.EmitTerminal(ctx, Event{Type: EventComplete})
	e.Close()
}

func TestNewEmitterDefaultBuffer(t *testing.T) {
	e := NewEmitter(0)
	if cap(e.ch) != DefaultEventBuffer {
		t.Errorf("buffer = %d, want %d", cap(e.ch), DefaultEventBuffer)
	}
}
