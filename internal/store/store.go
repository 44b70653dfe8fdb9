// Package store implements the revisioned item store: per-user CRUD over
// items carrying a monotonic revision counter, plus the derived tag index.
//
// All state lives in the key-value backend under the namespace key:
//
//	{userKey}:items            ordered id set (insertion order via score)
//	{userKey}:items:{id}:title
//	{userKey}:items:{id}:tags
//	{userKey}:items:{id}:done  "0" or "1"
//	{userKey}:items:{id}:rev
//	{userKey}:tags             union of live items' tag sets
//
// The backend is per-key-atomic only; a mutation touches several keys in
// sequence. The tag index recompute is therefore always the final step and
// is idempotent, so a replay after a mid-sequence failure converges.
package store

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/listsync/listsync/server/internal/kv"
	"github.com/listsync/listsync/server/internal/model"
	"github.com/listsync/listsync/server/internal/notify"
)

// Store owns item persistence and the tag index for every user namespace.
// Operations on the same namespace are serialized through a per-user mutex;
// different namespaces never contend.
type Store struct {
	kv       kv.KV
	notifier *notify.Notifier
	locks    userLocks
	log      zerolog.Logger
}

func New(backend kv.KV, notifier *notify.Notifier, log zerolog.Logger) *Store {
	return &Store{kv: backend, notifier: notifier, log: log}
}

func itemsKey(userKey string) string { return userKey + ":items" }
func tagsKey(userKey string) string  { return userKey + ":tags" }
func fieldKey(userKey, id, field string) string {
	return fmt.Sprintf("%s:items:%s:%s", userKey, id, field)
}

// Create assigns a new id, appends it to the ordered set with score
// max+1 (0 for an empty list), writes the fields, and initializes the
// revision to 1 via the counter's first increment.
func (s *Store) Create(ctx context.Context, userKey, title string, tags []string, done bool, clientRef string) (*model.Item, error) {
	unlock := s.locks.lock(userKey)
	defer unlock()
	return s.create(ctx, userKey, title, tags, done, clientRef)
}

func (s *Store) create(ctx context.Context, userKey, title string, tags []string, done bool, clientRef string) (*model.Item, error) {
	id := uuid.New().String()
	tags = normalizeTags(tags)

	score := int64(0)
	if max, ok, err := s.kv.ZMaxScore(ctx, itemsKey(userKey)); err != nil {
		return nil, fmt.Errorf("read highest score: %w", err)
	} else if ok {
		score = max + 1
	}

	if err := s.kv.ZAdd(ctx, itemsKey(userKey), id, score); err != nil {
		return nil, fmt.Errorf("append item id: %w", err)
	}
	if err := s.writeFields(ctx, userKey, id, title, tags, done); err != nil {
		return nil, err
	}
	rev, err := s.kv.Incr(ctx, fieldKey(userKey, id, "rev"))
	if err != nil {
		return nil, fmt.Errorf("initialize revision: %w", err)
	}
	if err := s.recomputeTags(ctx, userKey); err != nil {
		return nil, err
	}

	item := &model.Item{ID: id, Title: title, Tags: tags, Done: done, Revision: rev}
	s.notifier.Notify(ctx, model.EventCreated, userKey, model.ChangeEvent{
		ID: id, Title: title, Tags: tags, Revision: rev, ClientRef: clientRef,
	})
	return item, nil
}

// Get reads a single item. A missing id yields (nil, nil).
func (s *Store) Get(ctx context.Context, userKey, id string) (*model.Item, error) {
	return s.readItem(ctx, userKey, id)
}

// List returns the user's items in insertion order.
func (s *Store) List(ctx context.Context, userKey string) ([]model.Item, error) {
	ids, err := s.kv.ZRange(ctx, itemsKey(userKey))
	if err != nil {
		return nil, fmt.Errorf("read item ids: %w", err)
	}

	items := make([]model.Item, 0, len(ids))
	for _, id := range ids {
		item, err := s.readItem(ctx, userKey, id)
		if err != nil {
			return nil, err
		}
		if item == nil {
			// Half-deleted leftover from an interrupted mutation; skip.
			continue
		}
		items = append(items, *item)
	}
	return items, nil
}

// Update replaces title and tag set, and bumps the revision only when one
// of them actually changed; a done-only change never touches the revision.
// A fully unchanged update is a no-op returning the stored item. Unknown
// ids return (nil, nil) — callers check existence beforehand.
func (s *Store) Update(ctx context.Context, userKey, id, title string, tags []string, done bool) (*model.Item, error) {
	unlock := s.locks.lock(userKey)
	defer unlock()
	return s.update(ctx, userKey, id, title, tags, done)
}

func (s *Store) update(ctx context.Context, userKey, id, title string, tags []string, done bool) (*model.Item, error) {
	cur, err := s.readItem(ctx, userKey, id)
	if err != nil {
		return nil, err
	}
	if cur == nil {
		return nil, nil
	}

	tags = normalizeTags(tags)
	structural := title != cur.Title || !equalTagSets(tags, cur.Tags)
	doneChanged := done != cur.Done

	if !structural && !doneChanged {
		return cur, nil
	}

	if !structural {
		return s.setDone(ctx, userKey, cur, done)
	}

	if err := s.writeFields(ctx, userKey, id, title, tags, done); err != nil {
		return nil, err
	}
	rev, err := s.kv.Incr(ctx, fieldKey(userKey, id, "rev"))
	if err != nil {
		return nil, fmt.Errorf("bump revision: %w", err)
	}
	if err := s.recomputeTags(ctx, userKey); err != nil {
		return nil, err
	}

	item := &model.Item{ID: id, Title: title, Tags: tags, Done: done, Revision: rev}
	s.notifier.Notify(ctx, model.EventUpdated, userKey, model.ChangeEvent{
		ID: id, Title: title, Tags: tags, Done: &done, Revision: rev,
	})
	return item, nil
}

// SetDone sets the completion flag only. The revision is untouched and a
// done-changed notification always fires, even when the value is unchanged.
func (s *Store) SetDone(ctx context.Context, userKey, id string, done bool) (*model.Item, error) {
	unlock := s.locks.lock(userKey)
	defer unlock()

	cur, err := s.readItem(ctx, userKey, id)
	if err != nil {
		return nil, err
	}
	if cur == nil {
		return nil, model.ErrNotFound
	}
	return s.setDone(ctx, userKey, cur, done)
}

func (s *Store) setDone(ctx context.Context, userKey string, cur *model.Item, done bool) (*model.Item, error) {
	if err := s.kv.Set(ctx, fieldKey(userKey, cur.ID, "done"), boolToFlag(done)); err != nil {
		return nil, fmt.Errorf("write done flag: %w", err)
	}
	out := *cur
	out.Done = done
	s.notifier.Notify(ctx, model.EventDoneChanged, userKey, model.ChangeEvent{
		ID: cur.ID, Done: &done, Revision: cur.Revision,
	})
	return &out, nil
}

// Delete removes the ordered-set entry and all per-item fields, then
// recomputes the tag index.
func (s *Store) Delete(ctx context.Context, userKey, id string) error {
	unlock := s.locks.lock(userKey)
	defer unlock()

	cur, err := s.readItem(ctx, userKey, id)
	if err != nil {
		return err
	}
	if cur == nil {
		return model.ErrNotFound
	}

	if err := s.kv.ZRem(ctx, itemsKey(userKey), id); err != nil {
		return fmt.Errorf("remove item id: %w", err)
	}
	if err := s.kv.Del(ctx,
		fieldKey(userKey, id, "title"),
		fieldKey(userKey, id, "tags"),
		fieldKey(userKey, id, "done"),
		fieldKey(userKey, id, "rev"),
	); err != nil {
		return fmt.Errorf("delete item fields: %w", err)
	}
	if err := s.recomputeTags(ctx, userKey); err != nil {
		return err
	}

	s.notifier.Notify(ctx, model.EventDeleted, userKey, model.ChangeEvent{ID: id})
	return nil
}

// HighestScore reports the current maximum insertion score; ok is false for
// an empty namespace.
func (s *Store) HighestScore(ctx context.Context, userKey string) (int64, bool, error) {
	return s.kv.ZMaxScore(ctx, itemsKey(userKey))
}

// Tags returns the derived per-user tag index.
func (s *Store) Tags(ctx context.Context, userKey string) ([]string, error) {
	return s.kv.SMembers(ctx, tagsKey(userKey))
}

// recomputeTags stores the union of every live item's tag set. With zero
// items the index key is removed entirely, never left as an empty set.
func (s *Store) recomputeTags(ctx context.Context, userKey string) error {
	ids, err := s.kv.ZRange(ctx, itemsKey(userKey))
	if err != nil {
		return fmt.Errorf("recompute tags: %w", err)
	}

	union := make(map[string]struct{})
	for _, id := range ids {
		tags, err := s.kv.SMembers(ctx, fieldKey(userKey, id, "tags"))
		if err != nil {
			return fmt.Errorf("recompute tags: %w", err)
		}
		for _, t := range tags {
			union[t] = struct{}{}
		}
	}

	all := make([]string, 0, len(union))
	for t := range union {
		all = append(all, t)
	}
	sort.Strings(all)
	if err := s.kv.SetReplace(ctx, tagsKey(userKey), all); err != nil {
		return fmt.Errorf("recompute tags: %w", err)
	}
	return nil
}

func (s *Store) writeFields(ctx context.Context, userKey, id, title string, tags []string, done bool) error {
	if err := s.kv.Set(ctx, fieldKey(userKey, id, "title"), title); err != nil {
		return fmt.Errorf("write title: %w", err)
	}
	if err := s.kv.SetReplace(ctx, fieldKey(userKey, id, "tags"), tags); err != nil {
		return fmt.Errorf("write tags: %w", err)
	}
	if err := s.kv.Set(ctx, fieldKey(userKey, id, "done"), boolToFlag(done)); err != nil {
		return fmt.Errorf("write done flag: %w", err)
	}
	return nil
}

func (s *Store) readItem(ctx context.Context, userKey, id string) (*model.Item, error) {
	title, ok, err := s.kv.Get(ctx, fieldKey(userKey, id, "title"))
	if err != nil {
		return nil, fmt.Errorf("read title: %w", err)
	}
	if !ok {
		return nil, nil
	}

	tags, err := s.kv.SMembers(ctx, fieldKey(userKey, id, "tags"))
	if err != nil {
		return nil, fmt.Errorf("read tags: %w", err)
	}
	if tags == nil {
		tags = []string{}
	}

	doneRaw, _, err := s.kv.Get(ctx, fieldKey(userKey, id, "done"))
	if err != nil {
		return nil, fmt.Errorf("read done flag: %w", err)
	}

	rev := int64(0)
	if raw, ok, err := s.kv.Get(ctx, fieldKey(userKey, id, "rev")); err != nil {
		return nil, fmt.Errorf("read revision: %w", err)
	} else if ok {
		rev, _ = strconv.ParseInt(raw, 10, 64)
	}

	return &model.Item{
		ID:       id,
		Title:    title,
		Tags:     tags,
		Done:     doneRaw == "1",
		Revision: rev,
	}, nil
}

func boolToFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func normalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func equalTagSets(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]struct{}, len(a))
	for _, t := range a {
		set[t] = struct{}{}
	}
	for _, t := range b {
		if _, ok := set[t]; !ok {
			return false
		}
	}
	return true
}
