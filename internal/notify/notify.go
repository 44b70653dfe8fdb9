// Package notify fans out change notifications after accepted mutations.
//
// Delivery is fire-and-forget: a publish failure is logged and swallowed,
// never propagated, so store mutations do not depend on broker
// availability. Topics carry only a short hash prefix of the namespace key;
// the key itself is a secret and never goes on the wire.
package notify

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/listsync/listsync/server/internal/config"
	"github.com/listsync/listsync/server/internal/model"
)

// topicPrefixLen is the number of hex characters of the key hash used as
// the per-user topic prefix. Fixed length keeps topics collision-resistant
// without leaking key material.
const topicPrefixLen = 12

// Publisher is the broker boundary. Implementations live under
// internal/notify/<transport>/ (bus, httpbridge).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

// DeriveTopic builds the broker topic for a user and event kind. Keys below
// the minimum length are rejected before any derivation.
func DeriveTopic(userKey string, kind model.EventKind) (string, error) {
	if len(userKey) < config.MinNamespaceKeyLength {
		return "", model.ErrKeyTooShort
	}
	sum := sha256.Sum256([]byte(userKey))
	return fmt.Sprintf("%s/%s", hex.EncodeToString(sum[:])[:topicPrefixLen], kind), nil
}

// Notifier publishes change events through a Publisher.
type Notifier struct {
	pub Publisher
	log zerolog.Logger
}

func New(pub Publisher, log zerolog.Logger) *Notifier {
	return &Notifier{pub: pub, log: log}
}

// Notify publishes one change event. Errors are logged and swallowed.
func (n *Notifier) Notify(ctx context.Context, kind model.EventKind, userKey string, ev model.ChangeEvent) {
	topic, err := DeriveTopic(userKey, kind)
	if err != nil {
		n.log.Error().Err(err).Str("kind", string(kind)).Msg("notification topic derivation failed")
		return
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		n.log.Error().Err(err).Str("topic", topic).Msg("notification payload marshal failed")
		return
	}

	if err := n.pub.Publish(ctx, topic, payload); err != nil {
		n.log.Error().Err(err).Str("topic", topic).Str("item", ev.ID).Msg("notification publish failed")
	}
}
