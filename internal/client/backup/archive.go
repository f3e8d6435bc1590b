// Package backup exports the local store to a portable archive, restores
// it, and ships sealed archives to object storage.
package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/finsync/internal/client/repositories/records"
	"github.com/dmitrijs2005/finsync/internal/cryptox"
	"github.com/dmitrijs2005/finsync/internal/models"
)

// Version is written into every archive and required on import.
const Version = "1.0.0"

var (
	ErrInvalidArchive     = errors.New("invalid backup archive")
	ErrUnsupportedVersion = errors.New("unsupported backup version")
)

// Archive is the on-disk backup format: one array per collection.
type Archive struct {
	Version      string          `json:"version"`
	ExportDate   string          `json:"exportDate"`
	Profiles     []models.Record `json:"profiles"`
	Transactions []models.Record `json:"transactions"`
	Categories   []models.Record `json:"categories"`
	Debts        []models.Record `json:"debts"`
	Investments  []models.Record `json:"investments"`
	Bills        []models.Record `json:"bills"`
	Notes        []models.Record `json:"notes"`
}

func (a *Archive) slot(c models.Collection) *[]models.Record {
	switch c {
	case models.Profiles:
		return &a.Profiles
	case models.Transactions:
		return &a.Transactions
	case models.Categories:
		return &a.Categories
	case models.Debts:
		return &a.Debts
	case models.Investments:
		return &a.Investments
	case models.Bills:
		return &a.Bills
	case models.Notes:
		return &a.Notes
	}
	return nil
}

// Records returns the documents of c held by the archive.
func (a *Archive) Records(c models.Collection) []models.Record {
	if s := a.slot(c); s != nil {
		return *s
	}
	return nil
}

// Len is the number of documents in the archive.
func (a *Archive) Len() int {
	n := 0
	for _, c := range models.Collections {
		n += len(a.Records(c))
	}
	return n
}

// Export reads every collection of store.
func Export(ctx context.Context, store records.Repository, now time.Time) (*Archive, error) {
	a := &Archive{Version: Version, ExportDate: now.UTC().Format(time.RFC3339)}
	for _, c := range models.Collections {
		recs, err := store.GetAll(ctx, c)
		if err != nil {
			return nil, fmt.Errorf("export %s: %w", c, err)
		}
		if recs == nil {
			recs = []models.Record{}
		}
		*a.slot(c) = recs
	}
	return a, nil
}

// Validate checks the header and that profiles are present.
func (a *Archive) Validate() error {
	if a.Version == "" || a.Profiles == nil {
		return ErrInvalidArchive
	}
	if a.Version != Version {
		return fmt.Errorf("%w: %s", ErrUnsupportedVersion, a.Version)
	}
	for _, c := range models.Collections {
		for i, rec := range a.Records(c) {
			if rec.ID() == "" {
				return fmt.Errorf("%w: %s[%d] has no id", ErrInvalidArchive, c, i)
			}
		}
	}
	return nil
}

// Import upserts every archived document into store and returns how many
// were written. Existing documents with the same id are replaced; nothing
// is deleted.
func Import(ctx context.Context, store records.Repository, a *Archive) (int, error) {
	if err := a.Validate(); err != nil {
		return 0, err
	}
	n := 0
	for _, c := range models.Collections {
		for _, rec := range a.Records(c) {
			if err := store.Put(ctx, c, rec); err != nil {
				return n, fmt.Errorf("import %s/%s: %w", c, rec.ID(), err)
			}
			n++
		}
	}
	return n, nil
}

// Encode serializes a. A non-empty passphrase seals the JSON with
// cryptox.Seal.
func Encode(a *Archive, passphrase []byte) ([]byte, error) {
	raw, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	if len(passphrase) == 0 {
		return raw, nil
	}
	return cryptox.Seal(raw, passphrase)
}

// Decode reverses Encode.
func Decode(blob, passphrase []byte) (*Archive, error) {
	raw := blob
	if len(passphrase) > 0 {
		var err error
		if raw, err = cryptox.Open(blob, passphrase); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidArchive, err)
		}
	}
	var a Archive
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArchive, err)
	}
	return &a, nil
}
