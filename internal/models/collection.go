package models

import (
	"fmt"
	"slices"

	"github.com/dmitrijs2005/finsync/internal/common"
)

// Collection names a local store and its remote mirror.
type Collection string

const (
	Profiles     Collection = "profiles"
	Transactions Collection = "transactions"
	Categories   Collection = "categories"
	Debts        Collection = "debts"
	Investments  Collection = "investments"
	Bills        Collection = "bills"
	Notes        Collection = "notes"

	// Deletions is the remote tombstone log. It has no local store.
	Deletions Collection = "deletions"
)

// Collections lists the synchronised data collections in a fixed order.
var Collections = []Collection{Profiles, Transactions, Categories, Debts, Investments, Bills, Notes}

var indexes = map[Collection][]string{
	Profiles:     {"name"},
	Transactions: {FieldProfileID, "date", "type", "categoryId"},
	Categories:   {FieldProfileID, "type"},
	Debts:        {FieldProfileID, "type"},
	Investments:  {FieldProfileID, "type"},
	Bills:        {FieldProfileID, "dueDate"},
	Notes:        {FieldProfileID},
}

// Valid reports whether c is one of the data collections.
func (c Collection) Valid() bool {
	return slices.Contains(Collections, c)
}

// Remote reports whether c exists in the remote store (data or tombstones).
func (c Collection) Remote() bool {
	return c == Deletions || c.Valid()
}

// HasIndex reports whether field is a secondary index of c.
func (c Collection) HasIndex(field string) bool {
	return slices.Contains(indexes[c], field)
}

// Indexes returns the secondary index fields of c.
func (c Collection) Indexes() []string {
	return slices.Clone(indexes[c])
}

// ParseCollection validates a data collection name.
func ParseCollection(s string) (Collection, error) {
	c := Collection(s)
	if !c.Valid() {
		return "", fmt.Errorf("%w: unknown collection %q", common.ErrorInvalidArgument, s)
	}
	return c, nil
}
