package grpcclient

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/finsync/internal/models"
	"github.com/dmitrijs2005/finsync/internal/remote"
	"github.com/dmitrijs2005/finsync/internal/rpc"
)

// Store returns the remote document store of the signed-in user.
func (c *Client) Store() (remote.Store, error) {
	if c.CurrentUser() == nil {
		return nil, ErrNotSignedIn
	}
	return &store{c: c}, nil
}

type store struct {
	c *Client
}

func (s *store) Fetch(ctx context.Context, col models.Collection) ([]models.Record, error) {
	resp, err := s.c.docs.Fetch(ctx, &rpc.FetchRequest{Collection: col})
	if err != nil {
		return nil, mapError(err)
	}
	return resp.Documents, nil
}

func (s *store) Commit(ctx context.Context, writes []remote.Write) error {
	_, err := s.c.docs.Commit(ctx, &rpc.CommitRequest{Writes: writes})
	return mapError(err)
}

func (s *store) Clear(ctx context.Context, col models.Collection) error {
	_, err := s.c.docs.Clear(ctx, &rpc.ClearRequest{Collection: col})
	return mapError(err)
}

type subscription struct {
	cancel context.CancelFunc
	once   sync.Once
}

func (s *subscription) Stop() { s.once.Do(s.cancel) }

// Subscribe opens a Watch stream. An expired access token on the first
// receive is refreshed and the stream reopened once.
func (s *store) Subscribe(ctx context.Context, col models.Collection, onChange remote.ChangeHandler, onError remote.ErrorHandler) (remote.Subscription, error) {
	subCtx, cancel := context.WithCancel(ctx)
	sub := &subscription{cancel: cancel}

	token := s.c.accessToken()
	stream, err := s.c.docs.Watch(subCtx, &rpc.WatchRequest{Collection: col})
	if err != nil {
		cancel()
		return nil, mapError(err)
	}

	go func() {
		defer sub.Stop()
		retried := false
		for {
			b, err := stream.Recv()
			if err == nil {
				retried = true
				onChange(b.Changes)
				continue
			}
			if subCtx.Err() != nil {
				return
			}
			if !retried && isTokenExpired(err) {
				retried = true
				if _, rerr := s.c.refresh(subCtx, token); rerr == nil {
					if stream, err = s.c.docs.Watch(subCtx, &rpc.WatchRequest{Collection: col}); err == nil {
						continue
					}
				}
			}
			if onError != nil {
				onError(mapError(err))
			}
			return
		}
	}()
	return sub, nil
}
