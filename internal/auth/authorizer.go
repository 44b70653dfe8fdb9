// Package auth gates every endpoint on the namespace key. The key doubles
// as the store prefix for the caller's list, so a valid key is both
// authentication and scoping; there is no further identity system.
package auth

import (
	"context"
	"crypto/subtle"

	"github.com/listsync/listsync/server/internal/config"
	"github.com/listsync/listsync/server/internal/model"
)

// Authorizer validates namespace keys.
type Authorizer interface {
	// Authorize returns nil when the key is an authorized namespace key.
	Authorize(ctx context.Context, key string) error
}

// StaticAuthorizer checks keys against a fixed list using constant-time
// comparison, so timing does not reveal how much of a key matched.
type StaticAuthorizer struct {
	keys []string
}

func NewStaticAuthorizer(keys []string) *StaticAuthorizer {
	return &StaticAuthorizer{keys: keys}
}

func (a *StaticAuthorizer) Authorize(_ context.Context, key string) error {
	if len(key) < config.MinNamespaceKeyLength {
		return model.ErrKeyTooShort
	}

	authorized := false
	for _, k := range a.keys {
		// Compare every entry; no early exit on match.
		if subtle.ConstantTimeCompare([]byte(k), []byte(key)) == 1 {
			authorized = true
		}
	}
	if !authorized {
		return model.ErrValidation
	}
	return nil
}
