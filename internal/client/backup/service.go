package backup

import (
	"context"
	"time"

	"github.com/dmitrijs2005/finsync/internal/client/repositories/records"
	"github.com/dmitrijs2005/finsync/internal/logging"
)

// Refresher rebuilds application state after an import.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// ChangeNotifier is told that local data changed so it can be pushed.
type ChangeNotifier interface {
	LocalChanged()
}

type Service struct {
	store records.Repository
	sink  Sink
	state Refresher
	sync  ChangeNotifier
	now   func() time.Time
	log   logging.Logger
}

// NewService builds the backup service. sink, st and sync may be nil.
func NewService(store records.Repository, sink Sink, st Refresher, sync ChangeNotifier, l logging.Logger) *Service {
	return &Service{
		store: store,
		sink:  sink,
		state: st,
		sync:  sync,
		now:   time.Now,
		log:   logging.OrNop(l).With("module", "backup"),
	}
}

func (s *Service) Export(ctx context.Context) (*Archive, error) {
	return Export(ctx, s.store, s.now())
}

// Import restores a and announces the change.
func (s *Service) Import(ctx context.Context, a *Archive) (int, error) {
	n, err := Import(ctx, s.store, a)
	if n > 0 {
		if s.state != nil {
			if rerr := s.state.Refresh(ctx); rerr != nil {
				s.log.Error(ctx, "state refresh after import failed", "error", rerr)
			}
		}
		if s.sync != nil {
			s.sync.LocalChanged()
		}
	}
	if err != nil {
		return n, err
	}
	s.log.Info(ctx, "backup imported", "records", n)
	return n, nil
}

// Upload exports, seals and stores an archive, returning its key.
func (s *Service) Upload(ctx context.Context, passphrase []byte) (string, error) {
	if s.sink == nil {
		return "", ErrNoBucket
	}
	a, err := s.Export(ctx)
	if err != nil {
		return "", err
	}
	blob, err := Encode(a, passphrase)
	if err != nil {
		return "", err
	}
	key := NewKey(s.now())
	if err := s.sink.Put(ctx, key, blob); err != nil {
		return "", err
	}
	s.log.Info(ctx, "backup uploaded", "key", key, "records", a.Len())
	return key, nil
}

// Download fetches the archive stored under key and imports it. An empty
// key selects the newest archive.
func (s *Service) Download(ctx context.Context, key string, passphrase []byte) (int, error) {
	if s.sink == nil {
		return 0, ErrNoBucket
	}
	if key == "" {
		keys, err := s.sink.List(ctx)
		if err != nil {
			return 0, err
		}
		if len(keys) == 0 {
			return 0, ErrInvalidArchive
		}
		key = keys[len(keys)-1]
	}
	blob, err := s.sink.Get(ctx, key)
	if err != nil {
		return 0, err
	}
	a, err := Decode(blob, passphrase)
	if err != nil {
		return 0, err
	}
	return s.Import(ctx, a)
}
