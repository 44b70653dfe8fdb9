package bus

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishSubscribe(t *testing.T) {
	b := New(4)

	require.NoError(t, b.Publish(context.Background(), "abc/created", []byte(`{"id":"1"}`)))

	msg := <-b.Subscribe()
	assert.Equal(t, "abc/created", msg.Topic)
	assert.JSONEq(t, `{"id":"1"}`, string(msg.Payload))
}

func TestPublishNeverBlocks(t *testing.T) {
	b := New(1)

	// Second publish overflows the buffer and is dropped, not blocked on.
	require.NoError(t, b.Publish(context.Background(), "t", []byte("a")))
	require.NoError(t, b.Publish(context.Background(), "t", []byte("b")))

	msg := <-b.Subscribe()
	assert.Equal(t, "a", string(msg.Payload))

	select {
	case extra := <-b.Subscribe():
		t.Fatalf("unexpected buffered message: %q", extra.Payload)
	default:
	}
}
