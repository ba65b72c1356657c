package events

import (
	"context"
	"errors"
	"testing"
)

func TestChannelEmitter_Delivers(t *testing.T) {
	e := NewChannelEmitter(4)
	ctx := context.Background()

	ev := Event{
		Type: TypePublished,
		TsMs: 1000,
		Payload: Published{
			SignalID:        "sig1",
			Symbol:          "BTCUSDT",
			ConfluenceScore: 78,
			RR:              2.0,
		},
	}
	if err := e.Emit(ctx, ev); err != nil {
		t.Fatalf("Emit failed: %v", err)
	}

	got := <-e.Events()
	if got.Type != TypePublished {
		t.Errorf("Type mismatch: got %s", got.Type)
	}
	p, ok := got.Payload.(Published)
	if !ok {
		t.Fatalf("Payload type mismatch: %T", got.Payload)
	}
	if p.SignalID != "sig1" || p.ConfluenceScore != 78 {
		t.Errorf("Payload mismatch: %+v", p)
	}
}

func TestChannelEmitter_FullBufferDrops(t *testing.T) {
	e := NewChannelEmitter(1)
	ctx := context.Background()

	if err := e.Emit(ctx, Event{Type: TypePublished}); err != nil {
		t.Fatalf("First emit failed: %v", err)
	}

	err := e.Emit(ctx, Event{Type: TypeTriggered})
	if !errors.Is(err, ErrBufferFull) {
		t.Errorf("Expected ErrBufferFull, got %v", err)
	}

	// The first event is still intact.
	got := <-e.Events()
	if got.Type != TypePublished {
		t.Errorf("Expected first event preserved, got %s", got.Type)
	}
}

func TestChannelEmitter_CloseEndsRange(t *testing.T) {
	e := NewChannelEmitter(2)
	ctx := context.Background()

	for _, typ := range []string{TypePublished, TypeClosed} {
		if err := e.Emit(ctx, Event{Type: typ}); err != nil {
			t.Fatalf("Emit failed: %v", err)
		}
	}
	if err := e.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	var types []string
	for ev := range e.Events() {
		types = append(types, ev.Type)
	}
	if len(types) != 2 || types[0] != TypePublished || types[1] != TypeClosed {
		t.Errorf("Unexpected drained events: %v", types)
	}
}
