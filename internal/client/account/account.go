// Package account ties the auth provider to the sync engine: signing in
// enables sync, signing out disables it, and a new account receives the
// data already on this device.
package account

import (
	"context"

	"github.com/dmitrijs2005/finsync/internal/client/grpcclient"
	"github.com/dmitrijs2005/finsync/internal/logging"
	"github.com/dmitrijs2005/finsync/internal/remote"
)

// Provider is the authentication backend.
type Provider interface {
	SignUp(ctx context.Context, email string, password []byte) (*grpcclient.User, error)
	SignIn(ctx context.Context, email string, password []byte) (*grpcclient.User, error)
	SignOut(ctx context.Context)
	CurrentUser() *grpcclient.User
	OnAuthStateChanged(fn func(*grpcclient.User)) func()
	Store() (remote.Store, error)
}

// Syncer is the part of the engine driven by auth changes.
type Syncer interface {
	HandleAuthState(ctx context.Context, rs remote.Store) error
	SyncToCloud(ctx context.Context, silent bool) error
}

type Service struct {
	provider Provider
	sync     Syncer
	log      logging.Logger
}

func New(p Provider, s Syncer, l logging.Logger) *Service {
	return &Service{provider: p, sync: s, log: logging.OrNop(l).With("module", "account")}
}

// Start follows the provider's auth state until the returned func is
// called. The current state is applied before Start returns.
func (s *Service) Start(ctx context.Context) func() {
	return s.provider.OnAuthStateChanged(func(u *grpcclient.User) {
		if u == nil {
			_ = s.sync.HandleAuthState(ctx, nil)
			return
		}
		rs, err := s.provider.Store()
		if err != nil {
			s.log.Warn(ctx, "no remote store for signed-in user", "error", err)
			return
		}
		if err := s.sync.HandleAuthState(ctx, rs); err != nil {
			s.log.Warn(ctx, "initial pull failed", "user", u.ID, "error", err)
		}
	})
}

// SignUp creates the account and uploads the local data to it.
func (s *Service) SignUp(ctx context.Context, email string, password []byte) (*grpcclient.User, error) {
	u, err := s.provider.SignUp(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if err := s.sync.SyncToCloud(ctx, true); err != nil {
		s.log.Warn(ctx, "initial upload failed", "user", u.ID, "error", err)
	}
	return u, nil
}

func (s *Service) SignIn(ctx context.Context, email string, password []byte) (*grpcclient.User, error) {
	return s.provider.SignIn(ctx, email, password)
}

func (s *Service) SignOut(ctx context.Context) {
	s.provider.SignOut(ctx)
}

func (s *Service) CurrentUser() *grpcclient.User {
	return s.provider.CurrentUser()
}
