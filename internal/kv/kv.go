// Package kv defines the key-value store boundary used by the item store.
//
// The interface mirrors the per-key-atomic primitives of the backing store:
// each call touches exactly one key and is atomic on its own, but there is
// no transaction spanning keys. Multi-key mutations in callers interleave
// at this granularity, which is part of the store contract.
package kv

import "context"

// KV exposes the primitives required by the item store. Implementations
// live under internal/kv/<driver>/ (memkv, sqlitekv, postgreskv).
type KV interface {
	// Ordered set, sorted by ascending integer score. Member order for
	// equal scores is unspecified.
	ZAdd(ctx context.Context, key, member string, score int64) error
	ZRange(ctx context.Context, key string) ([]string, error)
	ZRem(ctx context.Context, key, member string) error
	// ZMaxScore reports the highest score in the ordered set; ok is false
	// when the set is empty or absent.
	ZMaxScore(ctx context.Context, key string) (score int64, ok bool, err error)

	// Plain string values. Get reports ok=false for a missing key.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error

	// Unordered string sets. SetReplace overwrites the whole set; an empty
	// members slice is equivalent to deleting the key.
	SMembers(ctx context.Context, key string) ([]string, error)
	SetReplace(ctx context.Context, key string, members []string) error

	// Incr adds one to the integer value at key, initializing a missing
	// key to 1, and returns the new value.
	Incr(ctx context.Context, key string) (int64, error)

	// Del removes the given keys regardless of their kind. Missing keys
	// are ignored.
	Del(ctx context.Context, keys ...string) error

	// Ping reports backend reachability for health checks.
	Ping(ctx context.Context) error

	Close() error
}
