// Package memory is an in-process remote document store. It backs the
// engine tests and local development without a server.
package memory

import (
	"context"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"sync"

	"github.com/dmitrijs2005/finsync/internal/common"
	"github.com/dmitrijs2005/finsync/internal/models"
	"github.com/dmitrijs2005/finsync/internal/remote"
)

// Server holds every user's namespace.
type Server struct {
	mu       sync.Mutex
	docs     map[string]map[models.Collection]map[string]models.Record
	feed     *remote.Feed
	maxOps   int
	failures []error
	commits  [][]remote.Write
}

func NewServer() *Server {
	return &Server{
		docs:   make(map[string]map[models.Collection]map[string]models.Record),
		feed:   remote.NewFeed(256),
		maxOps: common.DefaultMaxBatchOps,
	}
}

// SetMaxOps changes the per-commit operation ceiling.
func (s *Server) SetMaxOps(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.maxOps = n
}

// FailNext makes the next n store calls (any kind) fail with err.
func (s *Server) FailNext(n int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for range n {
		s.failures = append(s.failures, err)
	}
}

// Commits returns the write batches accepted so far.
func (s *Server) Commits() [][]remote.Write {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.commits)
}

// Count returns the number of documents user holds in c.
func (s *Server) Count(userID string, c models.Collection) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.docs[userID][c])
}

// Get returns a copy of one document, or nil.
func (s *Server) Get(userID string, c models.Collection, id string) models.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[userID][c][id]
	if !ok {
		return nil
	}
	out, _ := models.Normalize(doc)
	return out
}

// Store returns the namespace of userID.
func (s *Server) Store(userID string) remote.Store {
	return &store{srv: s, user: userID}
}

func (s *Server) nextFailure() error {
	if len(s.failures) == 0 {
		return nil
	}
	err := s.failures[0]
	s.failures = s.failures[1:]
	return err
}

func (s *Server) collection(userID string, c models.Collection) map[string]models.Record {
	ns := s.docs[userID]
	if ns == nil {
		ns = make(map[models.Collection]map[string]models.Record)
		s.docs[userID] = ns
	}
	if ns[c] == nil {
		ns[c] = make(map[string]models.Record)
	}
	return ns[c]
}

type store struct {
	srv  *Server
	user string
}

func (st *store) Fetch(ctx context.Context, c models.Collection) ([]models.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !c.Remote() {
		return nil, remote.ErrUnknownCollection
	}

	s := st.srv
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.nextFailure(); err != nil {
		return nil, err
	}

	docs := s.docs[st.user][c]
	out := make([]models.Record, 0, len(docs))
	for _, doc := range docs {
		cp, err := models.Normalize(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, cp)
	}
	slices.SortFunc(out, func(a, b models.Record) int { return strings.Compare(a.ID(), b.ID()) })
	return out, nil
}

func (st *store) Commit(ctx context.Context, writes []remote.Write) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	normalized := make([]remote.Write, len(writes))
	for i, w := range writes {
		if err := w.Validate(); err != nil {
			return fmt.Errorf("write %d: %w", i, err)
		}
		if w.Kind == remote.Set {
			data, err := models.Normalize(w.Data)
			if err != nil {
				return fmt.Errorf("write %d: %w", i, err)
			}
			w.Data = data
		}
		normalized[i] = w
	}

	s := st.srv
	s.mu.Lock()
	if err := s.nextFailure(); err != nil {
		s.mu.Unlock()
		return err
	}
	if len(normalized) > s.maxOps {
		s.mu.Unlock()
		return fmt.Errorf("%w: %d > %d", remote.ErrBatchTooLarge, len(normalized), s.maxOps)
	}

	changes := make(map[models.Collection][]remote.Change)
	var order []models.Collection
	record := func(c models.Collection, ch remote.Change) {
		if _, ok := changes[c]; !ok {
			order = append(order, c)
		}
		changes[c] = append(changes[c], ch)
	}

	for _, w := range normalized {
		docs := s.collection(st.user, w.Collection)
		prev, existed := docs[w.ID]
		switch w.Kind {
		case remote.Set:
			docs[w.ID] = w.Data
			switch {
			case !existed:
				record(w.Collection, remote.Change{Kind: remote.Added, ID: w.ID, Data: w.Data})
			case !reflect.DeepEqual(prev, w.Data):
				record(w.Collection, remote.Change{Kind: remote.Modified, ID: w.ID, Data: w.Data})
			}
		case remote.Delete:
			if existed {
				delete(docs, w.ID)
				record(w.Collection, remote.Change{Kind: remote.Removed, ID: w.ID, Data: prev})
			}
		}
	}
	s.commits = append(s.commits, normalized)
	s.mu.Unlock()

	for _, c := range order {
		s.feed.Publish(remote.FeedKey(st.user, c), changes[c])
	}
	return nil
}

func (st *store) Clear(ctx context.Context, c models.Collection) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !c.Remote() {
		return remote.ErrUnknownCollection
	}

	s := st.srv
	s.mu.Lock()
	if err := s.nextFailure(); err != nil {
		s.mu.Unlock()
		return err
	}
	docs := s.docs[st.user][c]
	changes := make([]remote.Change, 0, len(docs))
	for id, doc := range docs {
		changes = append(changes, remote.Change{Kind: remote.Removed, ID: id, Data: doc})
	}
	if s.docs[st.user] != nil {
		delete(s.docs[st.user], c)
	}
	s.mu.Unlock()

	s.feed.Publish(remote.FeedKey(st.user, c), changes)
	return nil
}

func (st *store) Subscribe(ctx context.Context, c models.Collection, onChange remote.ChangeHandler, onError remote.ErrorHandler) (remote.Subscription, error) {
	if !c.Remote() {
		return nil, remote.ErrUnknownCollection
	}
	sub := st.srv.feed.Subscribe(remote.FeedKey(st.user, c), onChange, onError)
	context.AfterFunc(ctx, sub.Stop)
	return sub, nil
}
