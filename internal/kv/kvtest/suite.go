// Package kvtest exercises a compliance suite against a kv.KV driver.
package kvtest

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/listsync/listsync/server/internal/kv"
)

// Run exercises a minimal compliance suite against a kv.KV implementation.
// Implementations should provide a clean, isolated store from makeKV.
func Run(t *testing.T, makeKV func(t *testing.T) kv.KV) {
	t.Helper()

	s := makeKV(t)
	ctx := context.Background()

	// Unique key prefix so reruns against a persistent backend stay isolated.
	p := "kvtest-" + uuid.New().String() + ":"

	// Strings
	if _, ok, err := s.Get(ctx, p+"missing"); err != nil || ok {
		t.Fatalf("Get missing: ok=%v err=%v", ok, err)
	}
	if err := s.Set(ctx, p+"title", "Milk"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if v, ok, err := s.Get(ctx, p+"title"); err != nil || !ok || v != "Milk" {
		t.Fatalf("Get: v=%q ok=%v err=%v", v, ok, err)
	}
	if err := s.Set(ctx, p+"title", "Bread"); err != nil {
		t.Fatalf("Set overwrite: %v", err)
	}
	if v, _, _ := s.Get(ctx, p+"title"); v != "Bread" {
		t.Fatalf("Get after overwrite: %q", v)
	}

	// Counter: missing key initializes to 1
	if n, err := s.Incr(ctx, p+"rev"); err != nil || n != 1 {
		t.Fatalf("Incr init: n=%d err=%v", n, err)
	}
	if n, err := s.Incr(ctx, p+"rev"); err != nil || n != 2 {
		t.Fatalf("Incr: n=%d err=%v", n, err)
	}

	// Ordered set
	if _, ok, err := s.ZMaxScore(ctx, p+"items"); err != nil || ok {
		t.Fatalf("ZMaxScore empty: ok=%v err=%v", ok, err)
	}
	for i, id := range []string{"a", "b", "c"} {
		if err := s.ZAdd(ctx, p+"items", id, int64(i)); err != nil {
			t.Fatalf("ZAdd %s: %v", id, err)
		}
	}
	if members, err := s.ZRange(ctx, p+"items"); err != nil || len(members) != 3 ||
		members[0] != "a" || members[1] != "b" || members[2] != "c" {
		t.Fatalf("ZRange: %v err=%v", members, err)
	}
	if max, ok, err := s.ZMaxScore(ctx, p+"items"); err != nil || !ok || max != 2 {
		t.Fatalf("ZMaxScore: max=%d ok=%v err=%v", max, ok, err)
	}
	// Re-adding an existing member updates its score instead of duplicating
	if err := s.ZAdd(ctx, p+"items", "a", 5); err != nil {
		t.Fatalf("ZAdd rescore: %v", err)
	}
	if members, _ := s.ZRange(ctx, p+"items"); len(members) != 3 || members[2] != "a" {
		t.Fatalf("ZRange after rescore: %v", members)
	}
	if err := s.ZRem(ctx, p+"items", "b"); err != nil {
		t.Fatalf("ZRem: %v", err)
	}
	if members, _ := s.ZRange(ctx, p+"items"); len(members) != 2 {
		t.Fatalf("ZRange after ZRem: %v", members)
	}

	// Sets
	if err := s.SetReplace(ctx, p+"tags", []string{"dairy", "frozen"}); err != nil {
		t.Fatalf("SetReplace: %v", err)
	}
	if members, err := s.SMembers(ctx, p+"tags"); err != nil || len(members) != 2 {
		t.Fatalf("SMembers: %v err=%v", members, err)
	}
	if err := s.SetReplace(ctx, p+"tags", []string{"frozen"}); err != nil {
		t.Fatalf("SetReplace shrink: %v", err)
	}
	if members, _ := s.SMembers(ctx, p+"tags"); len(members) != 1 || members[0] != "frozen" {
		t.Fatalf("SMembers after shrink: %v", members)
	}
	// Replacing with an empty slice removes the key entirely
	if err := s.SetReplace(ctx, p+"tags", nil); err != nil {
		t.Fatalf("SetReplace empty: %v", err)
	}
	if members, _ := s.SMembers(ctx, p+"tags"); len(members) != 0 {
		t.Fatalf("SMembers after empty replace: %v", members)
	}

	// Del covers every kind and ignores missing keys
	if err := s.Del(ctx, p+"title", p+"rev", p+"items", p+"nope"); err != nil {
		t.Fatalf("Del: %v", err)
	}
	if _, ok, _ := s.Get(ctx, p+"title"); ok {
		t.Fatalf("Get after Del: key survived")
	}
	if members, _ := s.ZRange(ctx, p+"items"); len(members) != 0 {
		t.Fatalf("ZRange after Del: %v", members)
	}

	if err := s.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}
