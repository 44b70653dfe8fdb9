package sqlitekv

import (
	"path/filepath"
	"testing"

	"github.com/listsync/listsync/server/internal/kv"
	"github.com/listsync/listsync/server/internal/kv/kvtest"
)

func makeStore(t *testing.T) kv.KV {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "kv.db"))
	if err != nil {
		t.Fatalf("sqlite open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSqliteKV_Compliance(t *testing.T) {
	kvtest.Run(t, makeStore)
}

func TestSqliteKV_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kv.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.Set(t.Context(), "k", "v"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = s2.Close() }()
	if v, ok, err := s2.Get(t.Context(), "k"); err != nil || !ok || v != "v" {
		t.Fatalf("value did not survive reopen: v=%q ok=%v err=%v", v, ok, err)
	}
}
