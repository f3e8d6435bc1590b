package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/finsync/internal/common"
	"github.com/dmitrijs2005/finsync/internal/dbx"
	"github.com/dmitrijs2005/finsync/internal/logging"
	"github.com/dmitrijs2005/finsync/internal/models"
	"github.com/dmitrijs2005/finsync/internal/remote"
	"github.com/dmitrijs2005/finsync/internal/server/repositories/documents"
	"github.com/dmitrijs2005/finsync/internal/server/repositories/repomanager"
)

// DocumentService serves the per-user document namespaces and publishes
// every committed change to the feed.
type DocumentService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	feed        *remote.Feed
	maxOps      int
	logger      logging.Logger
}

func NewDocumentService(db *sql.DB, m repomanager.RepositoryManager, feed *remote.Feed, maxOps int, l logging.Logger) *DocumentService {
	if maxOps <= 0 {
		maxOps = common.DefaultMaxBatchOps
	}
	return &DocumentService{
		db:          db,
		repomanager: m,
		feed:        feed,
		maxOps:      maxOps,
		logger:      logging.OrNop(l).With("module", "documents"),
	}
}

func checkCollection(c models.Collection) error {
	if !c.Remote() {
		return fmt.Errorf("%w: %q", remote.ErrUnknownCollection, c)
	}
	return nil
}

func decode(data []byte) (models.Record, error) {
	var r models.Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return r, nil
}

// Fetch returns every document of c.
func (s *DocumentService) Fetch(ctx context.Context, userID string, c models.Collection) ([]models.Record, error) {
	if err := checkCollection(c); err != nil {
		return nil, err
	}
	docs, err := s.repomanager.Documents(s.db).List(ctx, userID, c)
	if err != nil {
		return nil, err
	}
	out := make([]models.Record, 0, len(docs))
	for _, d := range docs {
		r, err := decode(d.Data)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

type encodedWrite struct {
	remote.Write
	data []byte
}

// Commit applies writes in order inside one transaction. It returns the
// number of writes applied, which is all of them or an error.
func (s *DocumentService) Commit(ctx context.Context, userID string, writes []remote.Write) (int, error) {
	if len(writes) > s.maxOps {
		return 0, fmt.Errorf("%w: %d > %d", remote.ErrBatchTooLarge, len(writes), s.maxOps)
	}

	encoded := make([]encodedWrite, len(writes))
	for i, w := range writes {
		if err := w.Validate(); err != nil {
			return 0, fmt.Errorf("%w: write %d: %w", common.ErrorInvalidArgument, i, err)
		}
		ew := encodedWrite{Write: w}
		if w.Kind == remote.Set {
			data, err := models.Normalize(w.Data)
			if err != nil {
				return 0, fmt.Errorf("%w: write %d: %w", common.ErrorInvalidArgument, i, err)
			}
			if ew.data, err = json.Marshal(data); err != nil {
				return 0, fmt.Errorf("%w: write %d: %w", common.ErrorInvalidArgument, i, err)
			}
			ew.Data = data
		}
		encoded[i] = ew
	}

	var changes changeSet
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Documents(tx)
		for _, w := range encoded {
			switch w.Kind {
			case remote.Set:
				outcome, err := repo.Upsert(ctx, userID, w.Collection, w.ID, w.data)
				if err != nil {
					return err
				}
				switch outcome {
				case documents.Inserted:
					changes.add(w.Collection, remote.Change{Kind: remote.Added, ID: w.ID, Data: w.Data})
				case documents.Updated:
					changes.add(w.Collection, remote.Change{Kind: remote.Modified, ID: w.ID, Data: w.Data})
				}
			case remote.Delete:
				prev, err := repo.Delete(ctx, userID, w.Collection, w.ID)
				if err != nil {
					return err
				}
				if prev != nil {
					data, _ := decode(prev)
					changes.add(w.Collection, remote.Change{Kind: remote.Removed, ID: w.ID, Data: data})
				}
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.publish(ctx, userID, changes)
	return len(writes), nil
}

// Clear removes every document of c and returns how many there were.
func (s *DocumentService) Clear(ctx context.Context, userID string, c models.Collection) (int, error) {
	if err := checkCollection(c); err != nil {
		return 0, err
	}
	removed, err := s.repomanager.Documents(s.db).DeleteAll(ctx, userID, c)
	if err != nil {
		return 0, err
	}

	var changes changeSet
	for _, d := range removed {
		data, _ := decode(d.Data)
		changes.add(c, remote.Change{Kind: remote.Removed, ID: d.ID, Data: data})
	}
	s.publish(ctx, userID, changes)
	return len(removed), nil
}

// Watch calls send with every change batch committed to c until ctx ends,
// send fails or the watcher falls behind.
func (s *DocumentService) Watch(ctx context.Context, userID string, c models.Collection, send func([]remote.Change) error) error {
	if err := checkCollection(c); err != nil {
		return err
	}

	batches := make(chan []remote.Change)
	errs := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)

	sub := s.feed.Subscribe(remote.FeedKey(userID, c),
		func(changes []remote.Change) {
			select {
			case batches <- changes:
			case <-done:
			}
		},
		func(err error) {
			select {
			case errs <- err:
			default:
			}
		},
	)
	defer sub.Stop()

	s.logger.Debug(ctx, "watch started", "user", userID, "collection", c)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-errs:
			s.logger.Warn(ctx, "watcher dropped", "user", userID, "collection", c, "error", err)
			return err
		case changes := <-batches:
			if err := send(changes); err != nil {
				return err
			}
		}
	}
}

func (s *DocumentService) publish(ctx context.Context, userID string, cs changeSet) {
	for _, c := range cs.order {
		s.feed.Publish(remote.FeedKey(userID, c), cs.byColl[c])
	}
	if len(cs.order) > 0 {
		s.logger.Debug(ctx, "published changes", "user", userID, "collections", len(cs.order))
	}
}

// changeSet groups changes per collection, keeping first-seen order.
type changeSet struct {
	order  []models.Collection
	byColl map[models.Collection][]remote.Change
}

func (cs *changeSet) add(c models.Collection, ch remote.Change) {
	if cs.byColl == nil {
		cs.byColl = make(map[models.Collection][]remote.Change)
	}
	if _, ok := cs.byColl[c]; !ok {
		cs.order = append(cs.order, c)
	}
	cs.byColl[c] = append(cs.byColl[c], ch)
}
