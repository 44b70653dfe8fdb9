package store

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/listsync/listsync/server/internal/kv/memkv"
	"github.com/listsync/listsync/server/internal/model"
	"github.com/listsync/listsync/server/internal/notify"
)

const testUser = "unit-test-namespace-key-1"

// capturePub records published events; optionally fails every publish.
type capturePub struct {
	mu     sync.Mutex
	topics []string
	fail   bool
}

func (p *capturePub) Publish(_ context.Context, topic string, _ []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("broker down")
	}
	p.topics = append(p.topics, topic)
	return nil
}

func (p *capturePub) kinds() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.topics))
	for _, t := range p.topics {
		// topic is "<prefix>/<kind>"
		for i := len(t) - 1; i >= 0; i-- {
			if t[i] == '/' {
				out = append(out, t[i+1:])
				break
			}
		}
	}
	return out
}

func newTestStore(t *testing.T) (*Store, *memkv.Store, *capturePub) {
	t.Helper()
	backend := memkv.New()
	pub := &capturePub{}
	s := New(backend, notify.New(pub, zerolog.Nop()), zerolog.Nop())
	return s, backend, pub
}

func TestCreate_FirstItem(t *testing.T) {
	s, _, pub := newTestStore(t)
	ctx := context.Background()

	item, err := s.Create(ctx, testUser, "Milk", []string{"dairy"}, false, "ref-1")
	require.NoError(t, err)
	require.NotEmpty(t, item.ID)
	require.Equal(t, int64(1), item.Revision)

	tags, err := s.Tags(ctx, testUser)
	require.NoError(t, err)
	require.Equal(t, []string{"dairy"}, tags)

	require.Equal(t, []string{"created"}, pub.kinds())
}

func TestCreate_InsertionOrderAndScores(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	first, err := s.Create(ctx, testUser, "Milk", nil, false, "")
	require.NoError(t, err)
	second, err := s.Create(ctx, testUser, "Bread", nil, false, "")
	require.NoError(t, err)

	max, ok, err := s.HighestScore(ctx, testUser)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(1), max)

	items, err := s.List(ctx, testUser)
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, first.ID, items[0].ID)
	require.Equal(t, second.ID, items[1].ID)
}

func TestUpdate_StructuralChangeBumpsRevision(t *testing.T) {
	s, _, pub := newTestStore(t)
	ctx := context.Background()

	item, err := s.Create(ctx, testUser, "Milk", []string{"dairy"}, false, "")
	require.NoError(t, err)

	updated, err := s.Update(ctx, testUser, item.ID, "Oat milk", []string{"dairy"}, false)
	require.NoError(t, err)
	require.Equal(t, int64(2), updated.Revision)

	updated, err = s.Update(ctx, testUser, item.ID, "Oat milk", []string{"vegan"}, false)
	require.NoError(t, err)
	require.Equal(t, int64(3), updated.Revision)

	tags, err := s.Tags(ctx, testUser)
	require.NoError(t, err)
	require.Equal(t, []string{"vegan"}, tags)

	require.Equal(t, []string{"created", "updated", "updated"}, pub.kinds())
}

func TestUpdate_DoneOnlyKeepsRevision(t *testing.T) {
	s, _, pub := newTestStore(t)
	ctx := context.Background()

	item, err := s.Create(ctx, testUser, "Milk", []string{"dairy"}, false, "")
	require.NoError(t, err)

	updated, err := s.Update(ctx, testUser, item.ID, "Milk", []string{"dairy"}, true)
	require.NoError(t, err)
	require.True(t, updated.Done)
	require.Equal(t, int64(1), updated.Revision)

	// done-only path publishes done-changed, never updated
	require.Equal(t, []string{"created", "done-changed"}, pub.kinds())
}

func TestUpdate_NoChangeIsNoOp(t *testing.T) {
	s, _, pub := newTestStore(t)
	ctx := context.Background()

	item, err := s.Create(ctx, testUser, "Milk", []string{"dairy"}, false, "")
	require.NoError(t, err)

	same, err := s.Update(ctx, testUser, item.ID, "Milk", []string{"dairy"}, false)
	require.NoError(t, err)
	require.Equal(t, item.Revision, same.Revision)
	require.Equal(t, []string{"created"}, pub.kinds())
}

func TestUpdate_TagOrderIrrelevant(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	item, err := s.Create(ctx, testUser, "Milk", []string{"a", "b"}, false, "")
	require.NoError(t, err)

	same, err := s.Update(ctx, testUser, item.ID, "Milk", []string{"b", "a"}, false)
	require.NoError(t, err)
	require.Equal(t, int64(1), same.Revision)
}

func TestUpdate_UnknownIDIsSilent(t *testing.T) {
	s, _, pub := newTestStore(t)

	got, err := s.Update(context.Background(), testUser, "no-such-id", "x", nil, false)
	require.NoError(t, err)
	require.Nil(t, got)
	require.Empty(t, pub.kinds())
}

func TestSetDone_AlwaysNotifiesNeverBumps(t *testing.T) {
	s, _, pub := newTestStore(t)
	ctx := context.Background()

	item, err := s.Create(ctx, testUser, "Milk", nil, false, "")
	require.NoError(t, err)

	got, err := s.SetDone(ctx, testUser, item.ID, true)
	require.NoError(t, err)
	require.True(t, got.Done)
	require.Equal(t, int64(1), got.Revision)

	// Same value again still fires a notification.
	_, err = s.SetDone(ctx, testUser, item.ID, true)
	require.NoError(t, err)
	require.Equal(t, []string{"created", "done-changed", "done-changed"}, pub.kinds())

	_, err = s.SetDone(ctx, testUser, "no-such-id", true)
	require.ErrorIs(t, err, model.ErrNotFound)
}

func TestDelete_RemovesItemAndRecomputesTags(t *testing.T) {
	s, backend, pub := newTestStore(t)
	ctx := context.Background()

	a, err := s.Create(ctx, testUser, "Milk", []string{"dairy"}, false, "")
	require.NoError(t, err)
	_, err = s.Create(ctx, testUser, "Peas", []string{"frozen"}, false, "")
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, testUser, a.ID))

	items, err := s.List(ctx, testUser)
	require.NoError(t, err)
	require.Len(t, items, 1)

	tags, err := s.Tags(ctx, testUser)
	require.NoError(t, err)
	require.Equal(t, []string{"frozen"}, tags)

	// Deleting the last item removes the index key entirely.
	require.NoError(t, s.Delete(ctx, testUser, items[0].ID))
	members, err := backend.SMembers(ctx, testUser+":tags")
	require.NoError(t, err)
	require.Empty(t, members)

	require.Contains(t, pub.kinds(), "deleted")
	require.ErrorIs(t, s.Delete(ctx, testUser, "no-such-id"), model.ErrNotFound)
}

func TestMutationSucceedsWhenBrokerDown(t *testing.T) {
	backend := memkv.New()
	pub := &capturePub{fail: true}
	s := New(backend, notify.New(pub, zerolog.Nop()), zerolog.Nop())
	ctx := context.Background()

	item, err := s.Create(ctx, testUser, "Milk", []string{"dairy"}, false, "")
	require.NoError(t, err)

	_, err = s.Update(ctx, testUser, item.ID, "Bread", nil, false)
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, testUser, item.ID))
}

func TestRevisionMonotonicAcrossMixedOps(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	item, err := s.Create(ctx, testUser, "Milk", nil, false, "")
	require.NoError(t, err)

	last := item.Revision
	titles := []string{"A", "B", "C"}
	for i, title := range titles {
		updated, err := s.Update(ctx, testUser, item.ID, title, nil, i%2 == 0)
		require.NoError(t, err)
		require.Greater(t, updated.Revision, last)
		last = updated.Revision

		// interleave a done toggle; revision must hold
		toggled, err := s.SetDone(ctx, testUser, item.ID, i%2 == 1)
		require.NoError(t, err)
		require.Equal(t, last, toggled.Revision)
	}
}
