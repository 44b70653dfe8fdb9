// Package memkv provides an in-process kv.KV backed by maps. It is the
// default driver for tests and throwaway local runs; nothing is persisted.
package memkv

import (
	"context"
	"sort"
	"strconv"
	"sync"

	"github.com/listsync/listsync/server/internal/kv"
)

type zmember struct {
	member string
	score  int64
}

// Store implements kv.KV. The zero value is not usable; call New.
type Store struct {
	mu      sync.RWMutex
	strings map[string]string
	sets    map[string]map[string]struct{}
	zsets   map[string][]zmember
}

var _ kv.KV = (*Store)(nil)

func New() *Store {
	return &Store{
		strings: make(map[string]string),
		sets:    make(map[string]map[string]struct{}),
		zsets:   make(map[string][]zmember),
	}
}

func (s *Store) ZAdd(_ context.Context, key, member string, score int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	zs := s.zsets[key]
	for i := range zs {
		if zs[i].member == member {
			zs[i].score = score
			return nil
		}
	}
	s.zsets[key] = append(zs, zmember{member: member, score: score})
	return nil
}

func (s *Store) ZRange(_ context.Context, key string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	zs := s.zsets[key]
	sorted := make([]zmember, len(zs))
	copy(sorted, zs)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].score < sorted[j].score })
	out := make([]string, len(sorted))
	for i, m := range sorted {
		out[i] = m.member
	}
	return out, nil
}

func (s *Store) ZRem(_ context.Context, key, member string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	zs := s.zsets[key]
	for i := range zs {
		if zs[i].member == member {
			s.zsets[key] = append(zs[:i], zs[i+1:]...)
			break
		}
	}
	if len(s.zsets[key]) == 0 {
		delete(s.zsets, key)
	}
	return nil
}

func (s *Store) ZMaxScore(_ context.Context, key string) (int64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	zs := s.zsets[key]
	if len(zs) == 0 {
		return 0, false, nil
	}
	max := zs[0].score
	for _, m := range zs[1:] {
		if m.score > max {
			max = m.score
		}
	}
	return max, true, nil
}

func (s *Store) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.strings[key]
	return v, ok, nil
}

func (s *Store) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.strings[key] = value
	return nil
}

func (s *Store) SMembers(_ context.Context, key string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set := s.sets[key]
	out := make([]string, 0, len(set))
	for m := range set {
		out = append(out, m)
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) SetReplace(_ context.Context, key string, members []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(members) == 0 {
		delete(s.sets, key)
		return nil
	}
	set := make(map[string]struct{}, len(members))
	for _, m := range members {
		set[m] = struct{}{}
	}
	s.sets[key] = set
	return nil
}

func (s *Store) Incr(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, _ := strconv.ParseInt(s.strings[key], 10, 64)
	cur++
	s.strings[key] = strconv.FormatInt(cur, 10)
	return cur, nil
}

func (s *Store) Del(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.strings, k)
		delete(s.sets, k)
		delete(s.zsets, k)
	}
	return nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }
