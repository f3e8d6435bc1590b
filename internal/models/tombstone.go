package models

import "strings"

// DeletionKey is the tombstone and ledger key for (store, id).
func DeletionKey(store Collection, id string) string {
	return string(store) + ":" + id
}

// SplitDeletionKey reverses DeletionKey. Ids may contain ':'.
func SplitDeletionKey(key string) (Collection, string, bool) {
	store, id, ok := strings.Cut(key, ":")
	if !ok || id == "" {
		return "", "", false
	}
	return Collection(store), id, true
}

// Tombstone marks (Store, ID) as deleted on every device that observes it.
type Tombstone struct {
	Store     Collection `json:"store"`
	ID        string     `json:"id"`
	DeletedAt string     `json:"deletedAt"`
}

func (t Tombstone) Key() string { return DeletionKey(t.Store, t.ID) }

// Record renders t as a document of the deletions collection.
func (t Tombstone) Record() Record {
	return Record{"store": string(t.Store), "id": t.ID, "deletedAt": t.DeletedAt}
}

// TombstoneFromRecord reads a deletions document. Documents naming an
// unknown store or without an id are rejected.
func TombstoneFromRecord(r Record) (Tombstone, bool) {
	t := Tombstone{
		Store:     Collection(r.String("store")),
		ID:        r.String("id"),
		DeletedAt: r.String("deletedAt"),
	}
	if !t.Store.Valid() || t.ID == "" {
		return Tombstone{}, false
	}
	return t, true
}

// PendingDeletion is a local deletion not yet written to the tombstone log.
type PendingDeletion struct {
	Key       string     `json:"key"`
	Store     Collection `json:"store"`
	ID        string     `json:"id"`
	DeletedAt string     `json:"deletedAt"`
}

// Tombstone converts the pending entry into the document flushed remotely.
func (p PendingDeletion) Tombstone() Tombstone {
	return Tombstone{Store: p.Store, ID: p.ID, DeletedAt: p.DeletedAt}
}
