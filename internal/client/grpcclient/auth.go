package grpcclient

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/finsync/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/finsync/internal/common"
	"github.com/dmitrijs2005/finsync/internal/cryptox"
	"github.com/dmitrijs2005/finsync/internal/rpc"
)

// SignUp creates the account and signs it in.
func (c *Client) SignUp(ctx context.Context, email string, password []byte) (*User, error) {
	email = strings.TrimSpace(email)
	if email == "" || len(password) == 0 {
		return nil, ErrInvalidInput
	}

	salt := common.GenerateRandByteArray(32)
	key := cryptox.DeriveMasterKey(password, salt)
	verifier := cryptox.MakeVerifier(key)
	common.WipeByteArray(key)

	if _, err := c.auth.Register(ctx, &rpc.RegisterRequest{Username: email, Salt: salt, Verifier: verifier}); err != nil {
		return nil, fmt.Errorf("register error: %w", mapError(err))
	}
	return c.login(ctx, email, verifier)
}

// SignIn derives the login verifier from the password and the salt the
// server holds for email.
func (c *Client) SignIn(ctx context.Context, email string, password []byte) (*User, error) {
	email = strings.TrimSpace(email)
	if email == "" || len(password) == 0 {
		return nil, ErrInvalidInput
	}

	resp, err := c.auth.GetSalt(ctx, &rpc.GetSaltRequest{Username: email})
	if err != nil {
		return nil, fmt.Errorf("get salt error: %w", mapError(err))
	}

	key := cryptox.DeriveMasterKey(password, resp.Salt)
	verifier := cryptox.MakeVerifier(key)
	common.WipeByteArray(key)

	return c.login(ctx, email, verifier)
}

func (c *Client) login(ctx context.Context, email string, verifier []byte) (*User, error) {
	resp, err := c.auth.Login(ctx, &rpc.LoginRequest{Username: email, VerifierCandidate: verifier})
	if err != nil {
		return nil, fmt.Errorf("login error: %w", mapError(err))
	}

	u := User{ID: resp.UserID, Email: email}
	c.mu.Lock()
	c.session = &session{user: u, accessToken: resp.AccessToken, refreshToken: resp.RefreshToken}
	c.mu.Unlock()

	c.persist(ctx)
	c.log.Info(ctx, "signed in", "user", u.ID)
	c.emit(&u)
	return &u, nil
}

// SignOut forgets the session. It never contacts the server.
func (c *Client) SignOut(ctx context.Context) {
	c.endSession(ctx)
}

func (c *Client) endSession(ctx context.Context) {
	c.mu.Lock()
	had := c.session != nil
	c.session = nil
	c.mu.Unlock()

	if c.meta != nil {
		if err := c.meta.Delete(ctx, sessionKey); err != nil {
			c.log.Error(ctx, "failed to forget session", "error", err)
		}
	}
	if had {
		c.emit(nil)
	}
}

// Restore resumes a persisted session by redeeming its refresh token.
// It reports false when there was nothing to resume or the token is no
// longer accepted.
func (c *Client) Restore(ctx context.Context) (bool, error) {
	if c.meta == nil {
		return false, nil
	}
	var p persisted
	ok, err := metadata.GetJSON(ctx, c.meta, sessionKey, &p)
	if err != nil || !ok || p.RefreshToken == "" {
		return false, err
	}

	c.mu.Lock()
	c.session = &session{user: p.User, refreshToken: p.RefreshToken}
	c.mu.Unlock()

	if _, err := c.refresh(ctx, ""); err != nil {
		c.mu.Lock()
		c.session = nil
		c.mu.Unlock()
		if errors.Is(err, ErrUnavailable) {
			return false, err
		}
		return false, nil
	}

	u := p.User
	c.emit(&u)
	return true, nil
}

func (c *Client) persist(ctx context.Context) {
	if c.meta == nil {
		return
	}
	c.mu.RLock()
	s := c.session
	c.mu.RUnlock()
	if s == nil {
		return
	}
	if err := metadata.SetJSON(ctx, c.meta, sessionKey, persisted{User: s.user, RefreshToken: s.refreshToken}); err != nil {
		c.log.Error(ctx, "failed to persist session", "error", err)
	}
}

// CurrentUser returns the signed-in user or nil.
func (c *Client) CurrentUser() *User {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return nil
	}
	u := c.session.user
	return &u
}

// OnAuthStateChanged calls fn with the current user right away and again
// on every sign-in and sign-out; nil means signed out. The returned func
// unregisters fn.
func (c *Client) OnAuthStateChanged(fn func(*User)) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	var current *User
	if c.session != nil {
		u := c.session.user
		current = &u
	}
	c.mu.Unlock()

	fn(current)
	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

func (c *Client) emit(u *User) {
	c.mu.RLock()
	fns := make([]func(*User), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.mu.RUnlock()

	for _, fn := range fns {
		fn(u)
	}
}
