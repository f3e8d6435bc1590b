package grpc

import (
	"context"

	"github.com/dmitrijs2005/finsync/internal/remote"
	"github.com/dmitrijs2005/finsync/internal/rpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type authHandler struct{ s *GRPCServer }

func (h authHandler) GetSalt(ctx context.Context, req *rpc.GetSaltRequest) (*rpc.GetSaltResponse, error) {
	salt, err := h.s.users.GetSalt(ctx, req.Username)
	if err != nil {
		return nil, h.s.fail(ctx, "get salt", err)
	}
	return &rpc.GetSaltResponse{Salt: salt}, nil
}

func (h authHandler) Register(ctx context.Context, req *rpc.RegisterRequest) (*rpc.RegisterResponse, error) {
	u, err := h.s.users.Register(ctx, req.Username, req.Salt, req.Verifier)
	if err != nil {
		return nil, h.s.fail(ctx, "register", err)
	}
	h.s.logger.Info(ctx, "Registered", "username", u.UserName)
	return &rpc.RegisterResponse{UserID: u.ID}, nil
}

func (h authHandler) Login(ctx context.Context, req *rpc.LoginRequest) (*rpc.TokenResponse, error) {
	pair, err := h.s.users.Login(ctx, req.Username, req.VerifierCandidate)
	if err != nil {
		return nil, h.s.fail(ctx, "login", err)
	}
	return &rpc.TokenResponse{UserID: pair.UserID, AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken}, nil
}

func (h authHandler) Refresh(ctx context.Context, req *rpc.RefreshRequest) (*rpc.TokenResponse, error) {
	pair, err := h.s.users.RefreshToken(ctx, req.RefreshToken)
	if err != nil {
		return nil, h.s.fail(ctx, "refresh", err)
	}
	return &rpc.TokenResponse{UserID: pair.UserID, AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken}, nil
}

type documentsHandler struct{ s *GRPCServer }

func userID(ctx context.Context) (string, error) {
	id, ok := UserIDFromContext(ctx)
	if !ok {
		return "", status.Error(codes.Unauthenticated, "missing user")
	}
	return id, nil
}

func (h documentsHandler) Fetch(ctx context.Context, req *rpc.FetchRequest) (*rpc.FetchResponse, error) {
	uid, err := userID(ctx)
	if err != nil {
		return nil, err
	}
	docs, err := h.s.documents.Fetch(ctx, uid, req.Collection)
	if err != nil {
		return nil, h.s.fail(ctx, "fetch", err)
	}
	return &rpc.FetchResponse{Documents: docs}, nil
}

func (h documentsHandler) Commit(ctx context.Context, req *rpc.CommitRequest) (*rpc.CommitResponse, error) {
	uid, err := userID(ctx)
	if err != nil {
		return nil, err
	}
	n, err := h.s.documents.Commit(ctx, uid, req.Writes)
	if err != nil {
		return nil, h.s.fail(ctx, "commit", err)
	}
	return &rpc.CommitResponse{Applied: n}, nil
}

func (h documentsHandler) Clear(ctx context.Context, req *rpc.ClearRequest) (*rpc.ClearResponse, error) {
	uid, err := userID(ctx)
	if err != nil {
		return nil, err
	}
	n, err := h.s.documents.Clear(ctx, uid, req.Collection)
	if err != nil {
		return nil, h.s.fail(ctx, "clear", err)
	}
	return &rpc.ClearResponse{Removed: n}, nil
}

func (h documentsHandler) Watch(req *rpc.WatchRequest, stream rpc.WatchServer) error {
	ctx := stream.Context()
	uid, err := userID(ctx)
	if err != nil {
		return err
	}
	err = h.s.documents.Watch(ctx, uid, req.Collection, func(changes []remote.Change) error {
		return stream.Send(&rpc.ChangeBatch{Changes: changes})
	})
	if err != nil && ctx.Err() == nil {
		return h.s.fail(ctx, "watch", err)
	}
	return nil
}

// fail logs err and converts it to a status error.
func (s *GRPCServer) fail(ctx context.Context, op string, err error) error {
	st := rpc.ToStatus(err)
	if status.Code(st) == codes.Internal {
		s.logger.Error(ctx, op+" failed", "error", err)
	} else {
		s.logger.Debug(ctx, op+" rejected", "error", err)
	}
	return st
}
