package grpcclient

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"sync"
	"testing"

	"github.com/dmitrijs2005/finsync/internal/common"
	"github.com/dmitrijs2005/finsync/internal/remote"
	"github.com/dmitrijs2005/finsync/internal/remote/memory"
	"github.com/dmitrijs2005/finsync/internal/rpc"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

type account struct {
	id       string
	salt     []byte
	verifier []byte
}

// fakeBackend implements both services over an in-memory document store.
type fakeBackend struct {
	mem *memory.Server

	mu        sync.Mutex
	seq       int
	accounts  map[string]account
	access    map[string]string
	refresh   map[string]string
	expired   map[string]bool
	refreshes int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		mem:      memory.NewServer(),
		accounts: make(map[string]account),
		access:   make(map[string]string),
		refresh:  make(map[string]string),
		expired:  make(map[string]bool),
	}
}

func (b *fakeBackend) issue(uid string) *rpc.TokenResponse {
	b.seq++
	a := fmt.Sprintf("access-%d", b.seq)
	r := fmt.Sprintf("refresh-%d", b.seq)
	b.access[a] = uid
	b.refresh[r] = uid
	return &rpc.TokenResponse{UserID: uid, AccessToken: a, RefreshToken: r}
}

// expireAll marks every access token issued so far as expired.
func (b *fakeBackend) expireAll(revokeRefresh bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for tok := range b.access {
		b.expired[tok] = true
	}
	if revokeRefresh {
		b.refresh = make(map[string]string)
	}
}

func (b *fakeBackend) refreshCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.refreshes
}

func (b *fakeBackend) GetSalt(_ context.Context, req *rpc.GetSaltRequest) (*rpc.GetSaltResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if a, ok := b.accounts[req.Username]; ok {
		return &rpc.GetSaltResponse{Salt: a.salt}, nil
	}
	return &rpc.GetSaltResponse{Salt: []byte("unknown-user-salt")}, nil
}

func (b *fakeBackend) Register(_ context.Context, req *rpc.RegisterRequest) (*rpc.RegisterResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.accounts[req.Username]; ok {
		return nil, rpc.ToStatus(common.ErrorAlreadyExists)
	}
	id := fmt.Sprintf("user-%d", len(b.accounts)+1)
	b.accounts[req.Username] = account{id: id, salt: req.Salt, verifier: req.Verifier}
	return &rpc.RegisterResponse{UserID: id}, nil
}

func (b *fakeBackend) Login(_ context.Context, req *rpc.LoginRequest) (*rpc.TokenResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	a, ok := b.accounts[req.Username]
	if !ok || !bytes.Equal(a.verifier, req.VerifierCandidate) {
		return nil, rpc.ToStatus(common.ErrorUnauthorized)
	}
	return b.issue(a.id), nil
}

func (b *fakeBackend) Refresh(_ context.Context, req *rpc.RefreshRequest) (*rpc.TokenResponse, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	uid, ok := b.refresh[req.RefreshToken]
	if !ok {
		return nil, rpc.ToStatus(common.ErrRefreshTokenExpired)
	}
	delete(b.refresh, req.RefreshToken)
	b.refreshes++
	return b.issue(uid), nil
}

func (b *fakeBackend) user(ctx context.Context) (string, error) {
	md, _ := metadata.FromIncomingContext(ctx)
	vals := md.Get(common.AccessTokenHeaderName)
	if len(vals) == 0 || vals[0] == "" {
		return "", status.Error(codes.Unauthenticated, "missing token")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	uid, ok := b.access[vals[0]]
	if !ok {
		return "", rpc.ToStatus(common.ErrInvalidToken)
	}
	if b.expired[vals[0]] {
		return "", rpc.ToStatus(common.ErrTokenExpired)
	}
	return uid, nil
}

type docsServer struct{ b *fakeBackend }

func (d docsServer) Fetch(ctx context.Context, req *rpc.FetchRequest) (*rpc.FetchResponse, error) {
	uid, err := d.b.user(ctx)
	if err != nil {
		return nil, err
	}
	docs, err := d.b.mem.Store(uid).Fetch(ctx, req.Collection)
	if err != nil {
		return nil, rpc.ToStatus(err)
	}
	return &rpc.FetchResponse{Documents: docs}, nil
}

func (d docsServer) Commit(ctx context.Context, req *rpc.CommitRequest) (*rpc.CommitResponse, error) {
	uid, err := d.b.user(ctx)
	if err != nil {
		return nil, err
	}
	if err := d.b.mem.Store(uid).Commit(ctx, req.Writes); err != nil {
		return nil, rpc.ToStatus(err)
	}
	return &rpc.CommitResponse{Applied: len(req.Writes)}, nil
}

func (d docsServer) Clear(ctx context.Context, req *rpc.ClearRequest) (*rpc.ClearResponse, error) {
	uid, err := d.b.user(ctx)
	if err != nil {
		return nil, err
	}
	return &rpc.ClearResponse{}, rpc.ToStatus(d.b.mem.Store(uid).Clear(ctx, req.Collection))
}

func (d docsServer) Watch(req *rpc.WatchRequest, stream rpc.WatchServer) error {
	ctx := stream.Context()
	uid, err := d.b.user(ctx)
	if err != nil {
		return err
	}
	batches := make(chan []remote.Change, 16)
	sub, err := d.b.mem.Store(uid).Subscribe(ctx, req.Collection, func(ch []remote.Change) {
		select {
		case batches <- ch:
		case <-ctx.Done():
		}
	}, nil)
	if err != nil {
		return rpc.ToStatus(err)
	}
	defer sub.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ch := <-batches:
			if err := stream.Send(&rpc.ChangeBatch{Changes: ch}); err != nil {
				return err
			}
		}
	}
}

// dialer starts a bufconn server for b and returns the dial option
// connecting to it.
func dialer(t *testing.T, b *fakeBackend) grpc.DialOption {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	rpc.RegisterAuthServer(srv, b)
	rpc.RegisterDocumentsServer(srv, docsServer{b})
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	return grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	})
}

func newTestClient(t *testing.T, dial grpc.DialOption, opts ...Option) *Client {
	t.Helper()
	c, err := New("passthrough:///bufnet", []grpc.DialOption{dial}, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}
