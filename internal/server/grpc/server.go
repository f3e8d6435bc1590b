// Package grpc exposes the user and document services over gRPC.
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/finsync/internal/logging"
	"github.com/dmitrijs2005/finsync/internal/models"
	"github.com/dmitrijs2005/finsync/internal/remote"
	"github.com/dmitrijs2005/finsync/internal/rpc"
	servermodels "github.com/dmitrijs2005/finsync/internal/server/models"
	"github.com/dmitrijs2005/finsync/internal/server/services"
	"google.golang.org/grpc"
)

// UserService is the account logic behind the Auth service.
type UserService interface {
	Register(ctx context.Context, username string, salt, verifier []byte) (*servermodels.User, error)
	GetSalt(ctx context.Context, username string) ([]byte, error)
	Login(ctx context.Context, username string, verifierCandidate []byte) (*services.TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string) (*services.TokenPair, error)
}

// DocumentService is the storage logic behind the Documents service.
type DocumentService interface {
	Fetch(ctx context.Context, userID string, c models.Collection) ([]models.Record, error)
	Commit(ctx context.Context, userID string, writes []remote.Write) (int, error)
	Clear(ctx context.Context, userID string, c models.Collection) (int, error)
	Watch(ctx context.Context, userID string, c models.Collection, send func([]remote.Change) error) error
}

type GRPCServer struct {
	address   string
	users     UserService
	documents DocumentService
	logger    logging.Logger
	jwtSecret []byte
}

func NewGRPCServer(address string, l logging.Logger, us UserService, ds DocumentService, secretKey string) *GRPCServer {
	return &GRPCServer{
		address:   address,
		logger:    logging.OrNop(l).With("module", "grpc_server"),
		users:     us,
		documents: ds,
		jwtSecret: []byte(secretKey),
	}
}

// NewServer builds a grpc.Server with both services and the auth
// interceptors registered.
func (s *GRPCServer) NewServer(opts ...grpc.ServerOption) *grpc.Server {
	opts = append(opts,
		grpc.ChainUnaryInterceptor(s.accessTokenInterceptor),
		grpc.ChainStreamInterceptor(s.accessTokenStreamInterceptor),
	)
	srv := grpc.NewServer(opts...)
	rpc.RegisterAuthServer(srv, authHandler{s})
	rpc.RegisterDocumentsServer(srv, documentsHandler{s})
	return srv
}

// Serve runs on lis until ctx ends, then stops gracefully.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := s.NewServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(context.Background(), "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())
	return srv.Serve(lis)
}

func (s *GRPCServer) Run(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, lis)
}
