package notify

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listsync/listsync/server/internal/model"
)

const testKey = "notify-test-namespace-key"

type recordingPub struct {
	topics   []string
	payloads [][]byte
	fail     bool
}

func (p *recordingPub) Publish(_ context.Context, topic string, payload []byte) error {
	if p.fail {
		return errors.New("broker down")
	}
	p.topics = append(p.topics, topic)
	p.payloads = append(p.payloads, payload)
	return nil
}

func TestDeriveTopic(t *testing.T) {
	topic, err := DeriveTopic(testKey, model.EventCreated)
	require.NoError(t, err)

	sum := sha256.Sum256([]byte(testKey))
	want := hex.EncodeToString(sum[:])[:topicPrefixLen] + "/created"
	assert.Equal(t, want, topic)

	// Same key, different kind shares the prefix.
	other, err := DeriveTopic(testKey, model.EventDeleted)
	require.NoError(t, err)
	assert.Equal(t, topic[:topicPrefixLen], other[:topicPrefixLen])
}

func TestDeriveTopicShortKey(t *testing.T) {
	_, err := DeriveTopic("short", model.EventCreated)
	assert.ErrorIs(t, err, model.ErrKeyTooShort)
}

func TestNotifyPublishesEvent(t *testing.T) {
	pub := &recordingPub{}
	n := New(pub, zerolog.Nop())

	n.Notify(context.Background(), model.EventUpdated, testKey, model.ChangeEvent{
		ID: "item-1", Title: "Milk", Revision: 3,
	})

	require.Len(t, pub.topics, 1)
	assert.Contains(t, pub.topics[0], "/updated")

	var ev model.ChangeEvent
	require.NoError(t, json.Unmarshal(pub.payloads[0], &ev))
	assert.Equal(t, "item-1", ev.ID)
	assert.Equal(t, int64(3), ev.Revision)
}

func TestNotifySwallowsFailures(t *testing.T) {
	n := New(&recordingPub{fail: true}, zerolog.Nop())

	// Must not panic or propagate anything.
	n.Notify(context.Background(), model.EventCreated, testKey, model.ChangeEvent{ID: "x"})
	n.Notify(context.Background(), model.EventCreated, "short", model.ChangeEvent{ID: "x"})
}
