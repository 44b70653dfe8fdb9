package api

import (
	"context"
	"net/http"

	"github.com/listsync/listsync/server/internal/api/respond"
	"github.com/listsync/listsync/server/internal/auth"
)

type contextKey int

const namespaceKeyCtx contextKey = iota

// RequireKey rejects requests whose `k` query parameter is not an
// authorized namespace key. The core never sees an unvalidated key.
func RequireKey(authorizer auth.Authorizer, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.URL.Query().Get("k")
		if err := authorizer.Authorize(r.Context(), key); err != nil {
			respond.WriteUnauthorized(w)
			return
		}
		ctx := context.WithValue(r.Context(), namespaceKeyCtx, key)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// namespaceKey returns the pre-validated key placed by RequireKey.
func namespaceKey(r *http.Request) string {
	key, _ := r.Context().Value(namespaceKeyCtx).(string)
	return key
}
