package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/listsync/listsync/server/internal/api/recovery"
	"github.com/listsync/listsync/server/internal/auth"
	"github.com/listsync/listsync/server/internal/store"
	syncer "github.com/listsync/listsync/server/internal/sync"
)

// NewRouter wires all routes. Every item/tag route runs behind the
// namespace-key check; health does not.
//
// "UPDATE" is a nonstandard method but it is what the deployed web clients
// send for item and done edits, so the router matches it as-is.
func NewRouter(s *store.Store, r *syncer.Reconciler, authorizer auth.Authorizer, isHealthy func() bool, log zerolog.Logger) *mux.Router {
	root := mux.NewRouter()
	root.Use(recovery.Middleware)

	items := NewItemsHandler(s, r, log)

	v1 := root.PathPrefix("/api/v1").Subrouter()
	guard := func(h http.HandlerFunc) http.Handler { return RequireKey(authorizer, h) }

	v1.Handle("/items", guard(items.ListItems)).Methods("GET")
	v1.Handle("/items", guard(items.CreateItem)).Methods("POST")
	v1.Handle("/items/sync", guard(items.SyncItems)).Methods("POST")
	v1.Handle("/items/{id}", guard(items.UpdateItem)).Methods("UPDATE")
	v1.Handle("/items/{id}", guard(items.DeleteItem)).Methods("DELETE")
	v1.Handle("/items/{id}/done", guard(items.GetDone)).Methods("GET")
	v1.Handle("/items/{id}/done", guard(items.UpdateDone)).Methods("UPDATE")
	v1.Handle("/tags", guard(items.GetTags)).Methods("GET")

	health := NewHealthHandler(isHealthy)
	v1.HandleFunc("/health", health.CheckHealth).Methods("GET")

	return root
}
