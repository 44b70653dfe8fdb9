// Package bus is a lightweight in-process publisher backed by a buffered
// channel. It serves single-node deployments and tests; a full broker sits
// behind the same Publisher interface via the httpbridge transport.
package bus

import (
	"context"
)

// Message is one published event.
type Message struct {
	Topic   string
	Payload []byte
}

// Bus implements notify.Publisher. Publish never blocks: when the buffer is
// full the message is dropped, which matches the at-most-once posture of a
// fire-and-forget notifier.
type Bus struct {
	ch chan Message
}

// New creates a bus with the given buffer size.
func New(buffer int) *Bus {
	if buffer <= 0 {
		buffer = 64
	}
	return &Bus{ch: make(chan Message, buffer)}
}

func (b *Bus) Publish(_ context.Context, topic string, payload []byte) error {
	select {
	case b.ch <- Message{Topic: topic, Payload: payload}:
	default:
	}
	return nil
}

// Subscribe returns the read side for consumers.
func (b *Bus) Subscribe() <-chan Message {
	return b.ch
}
