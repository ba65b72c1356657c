package events

import (
	"context"
	"errors"
)

// ErrBufferFull is returned when an emitter cannot accept the event
// without blocking.
var ErrBufferFull = errors.New("event buffer full")

// Emitter publishes lifecycle events. Emission is advisory: callers
// log failures and move on, a lost event never blocks or rolls back
// the durable write that preceded it.
type Emitter interface {
	Emit(ctx context.Context, e Event) error
	Close() error
}

// NopEmitter discards all events.
type NopEmitter struct{}

// Emit discards the event.
func (NopEmitter) Emit(_ context.Context, _ Event) error { return nil }

// Close is a no-op.
func (NopEmitter) Close() error { return nil }

// Compile-time interface check.
var _ Emitter = NopEmitter{}
