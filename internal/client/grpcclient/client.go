// Package grpcclient talks to the finsync server. It is the account
// provider of the client (sign up, sign in, sign out) and vends the
// signed-in user's remote.Store.
package grpcclient

import (
	"context"
	"errors"
	"strings"
	"sync"

	clientmeta "github.com/dmitrijs2005/finsync/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/finsync/internal/common"
	"github.com/dmitrijs2005/finsync/internal/logging"
	"github.com/dmitrijs2005/finsync/internal/rpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// User is the signed-in account.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type session struct {
	user         User
	accessToken  string
	refreshToken string
}

// persisted is the part of a session kept across restarts.
type persisted struct {
	User         User   `json:"user"`
	RefreshToken string `json:"refreshToken"`
}

const sessionKey = "session"

type Client struct {
	conn *grpc.ClientConn
	auth *rpc.AuthClient
	docs *rpc.DocumentsClient
	meta clientmeta.Repository
	log  logging.Logger

	mu        sync.RWMutex
	session   *session
	listeners map[int]func(*User)
	nextID    int

	// refreshMu serializes token refreshes
	refreshMu sync.Mutex
}

// Option configures a Client.
type Option func(*Client)

// WithSessionStore keeps the refresh token in r so Restore can resume the
// session after a restart.
func WithSessionStore(r clientmeta.Repository) Option { return func(c *Client) { c.meta = r } }

func WithLogger(l logging.Logger) Option { return func(c *Client) { c.log = logging.OrNop(l) } }

// New connects to the server at target. Extra dial options are appended
// after the defaults.
func New(target string, dialOpts []grpc.DialOption, opts ...Option) (*Client, error) {
	c := &Client{log: logging.Nop(), listeners: make(map[int]func(*User))}
	for _, o := range opts {
		o(c)
	}
	c.log = c.log.With("module", "grpcclient")

	all := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(c.accessTokenInterceptor),
		grpc.WithStreamInterceptor(c.accessTokenStreamInterceptor),
	}, dialOpts...)

	conn, err := grpc.NewClient(target, all...)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	c.auth = rpc.NewAuthClient(conn)
	c.docs = rpc.NewDocumentsClient(conn)
	return c, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Set(common.AccessTokenHeaderName, token)
	return metadata.NewOutgoingContext(ctx, md)
}

func needsToken(method string) bool {
	return strings.HasPrefix(method, "/"+rpc.DocumentsServiceName+"/")
}

func (c *Client) accessToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return ""
	}
	return c.session.accessToken
}

func isTokenExpired(err error) bool {
	st, ok := status.FromError(err)
	return ok && st.Code() == codes.Unauthenticated && st.Message() == common.ErrTokenExpired.Error()
}

// accessTokenInterceptor attaches the access token to document calls and
// retries once after refreshing an expired token.
func (c *Client) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	if !needsToken(method) {
		return invoker(ctx, method, req, reply, cc, opts...)
	}

	token := c.accessToken()
	err := invoker(withAccessToken(ctx, token), method, req, reply, cc, opts...)
	if err == nil || !isTokenExpired(err) {
		return err
	}

	fresh, rerr := c.refresh(ctx, token)
	if rerr != nil {
		return err
	}
	return invoker(withAccessToken(ctx, fresh), method, req, reply, cc, opts...)
}

func (c *Client) accessTokenStreamInterceptor(
	ctx context.Context,
	desc *grpc.StreamDesc,
	cc *grpc.ClientConn,
	method string,
	streamer grpc.Streamer,
	opts ...grpc.CallOption,
) (grpc.ClientStream, error) {
	if needsToken(method) {
		ctx = withAccessToken(ctx, c.accessToken())
	}
	return streamer(ctx, desc, cc, method, opts...)
}

// refresh trades the refresh token for a new pair. stale is the access
// token the failed call used; when another caller already replaced it the
// current token is returned without a second round trip.
func (c *Client) refresh(ctx context.Context, stale string) (string, error) {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	c.mu.RLock()
	s := c.session
	c.mu.RUnlock()
	if s == nil {
		return "", ErrNotSignedIn
	}
	if s.accessToken != stale {
		return s.accessToken, nil
	}

	resp, err := c.auth.Refresh(ctx, &rpc.RefreshRequest{RefreshToken: s.refreshToken})
	if err != nil {
		err = mapError(err)
		if errors.Is(err, common.ErrRefreshTokenExpired) || errors.Is(err, common.ErrInvalidToken) {
			c.log.Warn(ctx, "session expired", "error", err)
			c.endSession(ctx)
		}
		return "", err
	}

	c.mu.Lock()
	if c.session != nil {
		c.session.accessToken = resp.AccessToken
		c.session.refreshToken = resp.RefreshToken
	}
	c.mu.Unlock()
	c.persist(ctx)
	return resp.AccessToken, nil
}

// mapError turns transport errors into the shared sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if st, ok := status.FromError(err); ok && st.Code() == codes.Unavailable {
		return ErrUnavailable
	}
	return rpc.FromStatus(err)
}
