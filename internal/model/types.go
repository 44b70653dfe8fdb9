package model

// Item is the unit of synchronization. The id is assigned by the server on
// create and never reused; Revision increases on every structural mutation
// (title or tag-set change) and is the sole conflict-detection token.
type Item struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Tags     []string `json:"tags"`
	Done     bool     `json:"done"`
	Revision int64    `json:"revision"`
}

// ClientItem is one entry of the snapshot a client submits to sync. The ID
// may be a server-assigned id or a throwaway client-side placeholder for an
// item that has never been synced. LastSyncedRevision is nil when the client
// has never seen a server revision for this item; nil and zero are distinct.
type ClientItem struct {
	ID                 string   `json:"id"`
	Title              string   `json:"title"`
	Tags               []string `json:"tags"`
	Done               bool     `json:"done"`
	LastSyncedRevision *int64   `json:"lastSyncedRevision"`
	Synced             bool     `json:"synced"`
}

// SyncedItem is an Item in a sync response, annotated with the client-side
// placeholder id it replaces when the item was created by this sync call.
type SyncedItem struct {
	Item
	OldID *string `json:"oldId"`
}

// EventKind names the change-notification topics.
type EventKind string

const (
	EventCreated     EventKind = "created"
	EventUpdated     EventKind = "updated"
	EventDoneChanged EventKind = "done-changed"
	EventDeleted     EventKind = "deleted"
)

// ChangeEvent is the payload published after an accepted mutation.
// ClientRef carries the opaque correlation id supplied on create so the
// originating client can ignore its own echo.
type ChangeEvent struct {
	ID        string   `json:"id"`
	Title     string   `json:"title,omitempty"`
	Tags      []string `json:"tags,omitempty"`
	Done      *bool    `json:"done,omitempty"`
	Revision  int64    `json:"revision,omitempty"`
	ClientRef string   `json:"clientRef,omitempty"`
}
