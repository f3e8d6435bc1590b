package grpc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/dmitrijs2005/finsync/internal/common"
	"github.com/dmitrijs2005/finsync/internal/models"
	"github.com/dmitrijs2005/finsync/internal/remote"
	"github.com/dmitrijs2005/finsync/internal/remote/memory"
	"github.com/dmitrijs2005/finsync/internal/rpc"
	"github.com/dmitrijs2005/finsync/internal/server/auth"
	servermodels "github.com/dmitrijs2005/finsync/internal/server/models"
	"github.com/dmitrijs2005/finsync/internal/server/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

const secret = "test-secret"

type fakeUsers struct {
	LastUsername string
}

func (f *fakeUsers) Register(_ context.Context, username string, _, _ []byte) (*servermodels.User, error) {
	f.LastUsername = username
	if username == "taken" {
		return nil, common.ErrorAlreadyExists
	}
	return &servermodels.User{ID: "u-" + username, UserName: username}, nil
}

func (f *fakeUsers) GetSalt(context.Context, string) ([]byte, error) {
	return []byte("salt"), nil
}

func (f *fakeUsers) Login(_ context.Context, username string, verifier []byte) (*services.TokenPair, error) {
	if string(verifier) != "ok" {
		return nil, common.ErrorUnauthorized
	}
	tok, err := auth.GenerateToken("u-"+username, []byte(secret), time.Hour)
	if err != nil {
		return nil, err
	}
	return &services.TokenPair{UserID: "u-" + username, AccessToken: tok, RefreshToken: "r"}, nil
}

func (f *fakeUsers) RefreshToken(context.Context, string) (*services.TokenPair, error) {
	return nil, common.ErrRefreshTokenExpired
}

// memoryDocs serves documents from the in-process store.
type memoryDocs struct {
	srv *memory.Server
}

func (m memoryDocs) Fetch(ctx context.Context, uid string, c models.Collection) ([]models.Record, error) {
	return m.srv.Store(uid).Fetch(ctx, c)
}

func (m memoryDocs) Commit(ctx context.Context, uid string, writes []remote.Write) (int, error) {
	if err := m.srv.Store(uid).Commit(ctx, writes); err != nil {
		return 0, err
	}
	return len(writes), nil
}

func (m memoryDocs) Clear(ctx context.Context, uid string, c models.Collection) (int, error) {
	n := m.srv.Count(uid, c)
	return n, m.srv.Store(uid).Clear(ctx, c)
}

func (m memoryDocs) Watch(ctx context.Context, uid string, c models.Collection, send func([]remote.Change) error) error {
	errs := make(chan error, 1)
	sub, err := m.srv.Store(uid).Subscribe(ctx, c, func(ch []remote.Change) {
		if err := send(ch); err != nil {
			select {
			case errs <- err:
			default:
			}
		}
	}, func(err error) {
		select {
		case errs <- err:
		default:
		}
	})
	if err != nil {
		return err
	}
	defer sub.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errs:
		return err
	}
}

type testEnv struct {
	auth  *rpc.AuthClient
	docs  *rpc.DocumentsClient
	users *fakeUsers
	mem   *memory.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{users: &fakeUsers{}, mem: memory.NewServer()}
	s := NewGRPCServer("", nil, env.users, memoryDocs{env.mem}, secret)

	lis := bufconn.Listen(1 << 20)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.Serve(ctx, lis)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	env.auth = rpc.NewAuthClient(conn)
	env.docs = rpc.NewDocumentsClient(conn)
	return env
}

func (e *testEnv) login(t *testing.T, user string) context.Context {
	t.Helper()
	tok, err := e.auth.Login(context.Background(), &rpc.LoginRequest{Username: user, VerifierCandidate: []byte("ok")})
	require.NoError(t, err)
	return metadata.AppendToOutgoingContext(context.Background(), common.AccessTokenHeaderName, tok.AccessToken)
}

func TestAuthEndpoints(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	reg, err := env.auth.Register(ctx, &rpc.RegisterRequest{Username: "alice", Salt: []byte{1}, Verifier: []byte{2}})
	require.NoError(t, err)
	assert.Equal(t, "u-alice", reg.UserID)

	_, err = env.auth.Register(ctx, &rpc.RegisterRequest{Username: "taken"})
	assert.Equal(t, codes.AlreadyExists, status.Code(err))

	_, err = env.auth.Login(ctx, &rpc.LoginRequest{Username: "alice", VerifierCandidate: []byte("bad")})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	_, err = env.auth.Refresh(ctx, &rpc.RefreshRequest{RefreshToken: "r"})
	assert.ErrorIs(t, rpc.FromStatus(err), common.ErrRefreshTokenExpired)
}

func TestDocuments_RequireToken(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.docs.Fetch(context.Background(), &rpc.FetchRequest{Collection: models.Notes})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
	assert.Equal(t, "missing token", status.Convert(err).Message())

	expired, err := auth.GenerateToken("u1", []byte(secret), -time.Minute)
	require.NoError(t, err)
	ctx := metadata.AppendToOutgoingContext(context.Background(), common.AccessTokenHeaderName, expired)
	_, err = env.docs.Fetch(ctx, &rpc.FetchRequest{Collection: models.Notes})
	assert.ErrorIs(t, rpc.FromStatus(err), common.ErrTokenExpired)

	ctx = metadata.AppendToOutgoingContext(context.Background(), common.AccessTokenHeaderName, "garbage")
	stream, err := env.docs.Watch(ctx, &rpc.WatchRequest{Collection: models.Notes})
	if err == nil {
		_, err = stream.Recv()
	}
	assert.ErrorIs(t, rpc.FromStatus(err), common.ErrInvalidToken)
}

func TestDocuments_CommitFetchClear(t *testing.T) {
	env := newTestEnv(t)
	ctx := env.login(t, "alice")

	res, err := env.docs.Commit(ctx, &rpc.CommitRequest{Writes: []remote.Write{
		{Kind: remote.Set, Collection: models.Notes, ID: "n1", Data: models.Record{"id": "n1", "title": "hi"}},
	}})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Applied)
	assert.Equal(t, 1, env.mem.Count("u-alice", models.Notes))

	got, err := env.docs.Fetch(ctx, &rpc.FetchRequest{Collection: models.Notes})
	require.NoError(t, err)
	require.Len(t, got.Documents, 1)
	assert.Equal(t, "hi", got.Documents[0]["title"])

	bob := env.login(t, "bob")
	other, err := env.docs.Fetch(bob, &rpc.FetchRequest{Collection: models.Notes})
	require.NoError(t, err)
	assert.Empty(t, other.Documents)

	_, err = env.docs.Fetch(ctx, &rpc.FetchRequest{Collection: "wallets"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	cleared, err := env.docs.Clear(ctx, &rpc.ClearRequest{Collection: models.Notes})
	require.NoError(t, err)
	assert.Equal(t, 1, cleared.Removed)
}

func TestDocuments_Watch(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithCancel(env.login(t, "alice"))
	defer cancel()

	stream, err := env.docs.Watch(ctx, &rpc.WatchRequest{Collection: models.Debts})
	require.NoError(t, err)

	// The subscription is registered asynchronously; keep committing new
	// documents until one arrives.
	received := make(chan *rpc.ChangeBatch, 1)
	go func() {
		b, err := stream.Recv()
		if err == nil {
			received <- b
		}
	}()

	writer := env.login(t, "alice")
	for i := 0; ; i++ {
		_, err := env.docs.Commit(writer, &rpc.CommitRequest{Writes: []remote.Write{
			{Kind: remote.Set, Collection: models.Debts, ID: "d1", Data: models.Record{"id": "d1", "n": float64(i)}},
		}})
		require.NoError(t, err)
		select {
		case b := <-received:
			require.NotEmpty(t, b.Changes)
			assert.Equal(t, "d1", b.Changes[0].ID)
			return
		case <-time.After(20 * time.Millisecond):
		}
		require.Less(t, i, 100, "no change delivered")
	}
}
