package events

import "context"

// ChannelEmitter delivers events over a buffered in-process channel,
// for tests and single-binary runs. A full buffer drops the event
// rather than blocking the caller.
type ChannelEmitter struct {
	ch chan Event
}

// NewChannelEmitter creates a channel emitter with the given buffer size.
func NewChannelEmitter(buffer int) *ChannelEmitter {
	return &ChannelEmitter{ch: make(chan Event, buffer)}
}

// Compile-time interface check.
var _ Emitter = (*ChannelEmitter)(nil)

// Emit delivers the event if buffer space is available, otherwise
// returns ErrBufferFull.
func (e *ChannelEmitter) Emit(_ context.Context, ev Event) error {
	select {
	case e.ch <- ev:
		return nil
	default:
		return ErrBufferFull
	}
}

// Events returns the receive side of the channel.
func (e *ChannelEmitter) Events() <-chan Event {
	return e.ch
}

// Close closes the channel. Emit must not be called after Close.
func (e *ChannelEmitter) Close() error {
	close(e.ch)
	return nil
}
