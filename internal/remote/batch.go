package remote

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/finsync/internal/models"
)

// DefaultBatchLimit keeps each commit safely below the remote ceiling of
// 500 operations.
const DefaultBatchLimit = 450

// Batch collects writes destined for one atomic commit.
type Batch struct {
	writes []Write
}

// Set upserts data as document id of collection c.
func (b *Batch) Set(c models.Collection, id string, data models.Record) {
	b.writes = append(b.writes, Write{Kind: Set, Collection: c, ID: id, Data: data})
}

// Delete removes document id of collection c.
func (b *Batch) Delete(c models.Collection, id string) {
	b.writes = append(b.writes, Write{Kind: Delete, Collection: c, ID: id})
}

func (b *Batch) Len() int { return len(b.writes) }

func (b *Batch) Writes() []Write { return b.writes }

// Op adds one logical operation (one or more writes) to a batch.
type Op func(b *Batch)

// Committer is the part of Store needed to commit batches.
type Committer interface {
	Commit(ctx context.Context, writes []Write) error
}

// CommitInBatches groups ops into chunks of at most limit ops and commits
// them one after another, in order. Each chunk is atomic. A failing chunk
// stops the run; chunks committed before it stay committed, and the
// returned count says how many ops made it.
func CommitInBatches(ctx context.Context, c Committer, ops []Op, limit int) (int, error) {
	if limit <= 0 {
		limit = DefaultBatchLimit
	}

	done := 0
	for start := 0; start < len(ops); start += limit {
		end := min(start+limit, len(ops))

		var b Batch
		for _, op := range ops[start:end] {
			op(&b)
		}
		if b.Len() == 0 {
			done = end
			continue
		}
		if err := c.Commit(ctx, b.writes); err != nil {
			return done, fmt.Errorf("commit batch %d-%d: %w", start, end, err)
		}
		done = end
	}
	return done, nil
}

// SetOp upserts rec into c under its own id.
func SetOp(c models.Collection, rec models.Record) Op {
	return func(b *Batch) { b.Set(c, rec.ID(), rec) }
}
