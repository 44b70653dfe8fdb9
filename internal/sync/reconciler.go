// Package sync reconciles a client's locally edited item snapshot against
// the server's authoritative state.
//
// Each client item gets exactly one of three classifications against the
// server snapshot taken at the start of the call: overwrite in place when
// the client's edit is based on the current server revision, fork into a
// brand-new item when the client edited concurrently with a newer server
// change it never saw, or create when the item only exists on the client.
// Everything else is left untouched for the client's next read.
package sync

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/listsync/listsync/server/internal/model"
	"github.com/listsync/listsync/server/internal/store"
)

// Reconciler implements the sync classification over the item store.
type Reconciler struct {
	store *store.Store
	log   zerolog.Logger
}

func New(s *store.Store, log zerolog.Logger) *Reconciler {
	return &Reconciler{store: s, log: log}
}

type classification int

const (
	// classSkip leaves the item untouched; covers synced clients with a
	// revision mismatch, which by contract reconcile on their next read.
	classSkip classification = iota
	// classOverwrite applies the client edit in place.
	classOverwrite
	// classFork creates a new item from the client's data, preserving the
	// newer server-side edit under the original id.
	classFork
	// classCreate uploads a client-only item for the first time.
	classCreate
)

// classify is pure: it inspects one client item against the immutable
// server index and performs no I/O. Forks created earlier in the same pass
// carry fresh server ids, so they can never influence later lookups.
func classify(ci model.ClientItem, index map[string]model.Item) classification {
	server, matched := index[ci.ID]

	switch {
	case matched && ci.LastSyncedRevision != nil && *ci.LastSyncedRevision == server.Revision:
		return classOverwrite
	case matched && !ci.Synced && ci.LastSyncedRevision != nil && *ci.LastSyncedRevision < server.Revision:
		return classFork
	case !matched && !ci.Synced:
		return classCreate
	default:
		return classSkip
	}
}

// Sync reconciles the client snapshot and returns the new authoritative
// snapshot. Items created by this call (forks and first-time uploads) are
// annotated with the client-side placeholder id they replace.
func (r *Reconciler) Sync(ctx context.Context, userKey string, clientItems []model.ClientItem) ([]model.SyncedItem, error) {
	snapshot, err := r.store.List(ctx, userKey)
	if err != nil {
		return nil, err
	}

	index := make(map[string]model.Item, len(snapshot))
	for _, item := range snapshot {
		index[item.ID] = item
	}

	// new server id -> client-submitted id it replaces
	newToOld := make(map[string]string)

	for _, ci := range clientItems {
		switch classify(ci, index) {
		case classOverwrite:
			// The only path that mutates an existing id. A nil result
			// means the item vanished since the snapshot; nothing to do.
			if _, err := r.store.Update(ctx, userKey, ci.ID, ci.Title, ci.Tags, ci.Done); err != nil {
				return nil, err
			}

		case classFork:
			created, err := r.store.Create(ctx, userKey, ci.Title, ci.Tags, ci.Done, ci.ID)
			if err != nil {
				return nil, err
			}
			newToOld[created.ID] = ci.ID
			r.log.Debug().
				Str("old_id", ci.ID).
				Str("new_id", created.ID).
				Int64("server_revision", index[ci.ID].Revision).
				Msg("forked stale client edit")

		case classCreate:
			created, err := r.store.Create(ctx, userKey, ci.Title, ci.Tags, ci.Done, ci.ID)
			if err != nil {
				return nil, err
			}
			newToOld[created.ID] = ci.ID

		case classSkip:
		}
	}

	items, err := r.store.List(ctx, userKey)
	if err != nil {
		return nil, err
	}

	out := make([]model.SyncedItem, len(items))
	for i, item := range items {
		out[i] = model.SyncedItem{Item: item}
		if oldID, ok := newToOld[item.ID]; ok {
			out[i].OldID = &oldID
		}
	}
	return out, nil
}
