package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/listsync/listsync/server/internal/api/respond"
	"github.com/listsync/listsync/server/internal/model"
	"github.com/listsync/listsync/server/internal/store"
	syncer "github.com/listsync/listsync/server/internal/sync"
)

// jsonBool accepts true/false as well as the 0/1 the legacy web client
// sends, and marshals back to a plain bool.
type jsonBool bool

func (b *jsonBool) UnmarshalJSON(data []byte) error {
	switch string(bytes.TrimSpace(data)) {
	case "true", "1":
		*b = true
	case "false", "0", "null":
		*b = false
	default:
		return errors.New("done must be a boolean or 0/1")
	}
	return nil
}

// itemData is the client-supplied portion of an item.
type itemData struct {
	Title string    `json:"title"`
	Tags  []string  `json:"tags"`
	Done  *jsonBool `json:"done,omitempty"`
}

// ItemsHandler provides the HTTP transport for item CRUD and sync.
type ItemsHandler struct {
	store      *store.Store
	reconciler *syncer.Reconciler
	log        zerolog.Logger
}

func NewItemsHandler(s *store.Store, r *syncer.Reconciler, log zerolog.Logger) *ItemsHandler {
	return &ItemsHandler{store: s, reconciler: r, log: log}
}

// ListItems GET /api/v1/items
func (h *ItemsHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.List(r.Context(), namespaceKey(r))
	if err != nil {
		h.log.Error().Err(err).Msg("list items failed")
		respond.WriteInternalError(w, "store unavailable")
		return
	}
	respond.WriteJSON(w, http.StatusOK, items)
}

// CreateItem POST /api/v1/items
func (h *ItemsHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ItemData  *itemData `json:"itemData"`
		ClientRef string    `json:"clientRef"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	if req.ItemData == nil || req.ItemData.Title == "" {
		respond.WriteBadRequest(w, "itemData with a title is required")
		return
	}

	done := req.ItemData.Done != nil && bool(*req.ItemData.Done)
	item, err := h.store.Create(r.Context(), namespaceKey(r), req.ItemData.Title, req.ItemData.Tags, done, req.ClientRef)
	if err != nil {
		h.log.Error().Err(err).Msg("create item failed")
		respond.WriteInternalError(w, "store unavailable")
		return
	}

	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"newId":    item.ID,
		"revision": item.Revision,
	})
}

// SyncItems POST /api/v1/items/sync
func (h *ItemsHandler) SyncItems(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ClientItems []model.ClientItem `json:"clientItems"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	if req.ClientItems == nil {
		respond.WriteBadRequest(w, "clientItems is required")
		return
	}

	out, err := h.reconciler.Sync(r.Context(), namespaceKey(r), req.ClientItems)
	if err != nil {
		h.log.Error().Err(err).Msg("sync failed")
		respond.WriteInternalError(w, "store unavailable")
		return
	}
	respond.WriteJSON(w, http.StatusOK, out)
}

// UpdateItem UPDATE /api/v1/items/{id}
func (h *ItemsHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req struct {
		ItemData *itemData `json:"itemData"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	if req.ItemData == nil || req.ItemData.Title == "" {
		respond.WriteBadRequest(w, "itemData with a title is required")
		return
	}

	userKey := namespaceKey(r)
	cur, err := h.store.Get(r.Context(), userKey, id)
	if err != nil {
		h.log.Error().Err(err).Msg("read item failed")
		respond.WriteInternalError(w, "store unavailable")
		return
	}
	if cur == nil {
		respond.WriteNotFound(w, "unknown item")
		return
	}

	done := cur.Done
	if req.ItemData.Done != nil {
		done = bool(*req.ItemData.Done)
	}
	item, err := h.store.Update(r.Context(), userKey, id, req.ItemData.Title, req.ItemData.Tags, done)
	if err != nil {
		h.log.Error().Err(err).Msg("update item failed")
		respond.WriteInternalError(w, "store unavailable")
		return
	}
	if item == nil {
		respond.WriteNotFound(w, "unknown item")
		return
	}

	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"revision": item.Revision,
	})
}

// DeleteItem DELETE /api/v1/items/{id}
func (h *ItemsHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	err := h.store.Delete(r.Context(), namespaceKey(r), mux.Vars(r)["id"])
	if errors.Is(err, model.ErrNotFound) {
		respond.WriteNotFound(w, "unknown item")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("delete item failed")
		respond.WriteInternalError(w, "store unavailable")
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// GetDone GET /api/v1/items/{id}/done
func (h *ItemsHandler) GetDone(w http.ResponseWriter, r *http.Request) {
	item, err := h.store.Get(r.Context(), namespaceKey(r), mux.Vars(r)["id"])
	if err != nil {
		h.log.Error().Err(err).Msg("read item failed")
		respond.WriteInternalError(w, "store unavailable")
		return
	}
	if item == nil {
		respond.WriteNotFound(w, "unknown item")
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{"done": item.Done})
}

// UpdateDone UPDATE /api/v1/items/{id}/done
func (h *ItemsHandler) UpdateDone(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Done *jsonBool `json:"done"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	if req.Done == nil {
		respond.WriteBadRequest(w, "done is required")
		return
	}

	_, err := h.store.SetDone(r.Context(), namespaceKey(r), mux.Vars(r)["id"], bool(*req.Done))
	if errors.Is(err, model.ErrNotFound) {
		respond.WriteNotFound(w, "unknown item")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("set done failed")
		respond.WriteInternalError(w, "store unavailable")
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// GetTags GET /api/v1/tags
func (h *ItemsHandler) GetTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.store.Tags(r.Context(), namespaceKey(r))
	if err != nil {
		h.log.Error().Err(err).Msg("read tags failed")
		respond.WriteInternalError(w, "store unavailable")
		return
	}
	if tags == nil {
		tags = []string{}
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{"tags": tags})
}
