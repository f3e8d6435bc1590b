package rpc

import (
	"context"

	"google.golang.org/grpc"
)

const AuthServiceName = "finsync.Auth"

const (
	AuthGetSaltMethod  = "/" + AuthServiceName + "/GetSalt"
	AuthRegisterMethod = "/" + AuthServiceName + "/Register"
	AuthLoginMethod    = "/" + AuthServiceName + "/Login"
	AuthRefreshMethod  = "/" + AuthServiceName + "/Refresh"
)

// AuthServer issues tokens. None of its methods require an access token.
type AuthServer interface {
	GetSalt(context.Context, *GetSaltRequest) (*GetSaltResponse, error)
	Register(context.Context, *RegisterRequest) (*RegisterResponse, error)
	Login(context.Context, *LoginRequest) (*TokenResponse, error)
	Refresh(context.Context, *RefreshRequest) (*TokenResponse, error)
}

func RegisterAuthServer(s grpc.ServiceRegistrar, srv AuthServer) {
	s.RegisterService(&AuthServiceDesc, srv)
}

// unary builds a method handler decoding Req and calling call on the
// registered implementation.
func unary[S any, Req any, Resp any](method string, call func(S, context.Context, *Req) (*Resp, error)) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(S), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(S), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var AuthServiceDesc = grpc.ServiceDesc{
	ServiceName: AuthServiceName,
	HandlerType: (*AuthServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetSalt", Handler: unary(AuthGetSaltMethod, AuthServer.GetSalt)},
		{MethodName: "Register", Handler: unary(AuthRegisterMethod, AuthServer.Register)},
		{MethodName: "Login", Handler: unary(AuthLoginMethod, AuthServer.Login)},
		{MethodName: "Refresh", Handler: unary(AuthRefreshMethod, AuthServer.Refresh)},
	},
	Metadata: "finsync/auth",
}

// AuthClient is the client side of AuthServer.
type AuthClient struct {
	cc grpc.ClientConnInterface
}

func NewAuthClient(cc grpc.ClientConnInterface) *AuthClient {
	return &AuthClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	if err := cc.Invoke(ctx, method, in, out, append(opts, CallOption())...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *AuthClient) GetSalt(ctx context.Context, in *GetSaltRequest, opts ...grpc.CallOption) (*GetSaltResponse, error) {
	return invoke[GetSaltResponse](ctx, c.cc, AuthGetSaltMethod, in, opts)
}

func (c *AuthClient) Register(ctx context.Context, in *RegisterRequest, opts ...grpc.CallOption) (*RegisterResponse, error) {
	return invoke[RegisterResponse](ctx, c.cc, AuthRegisterMethod, in, opts)
}

func (c *AuthClient) Login(ctx context.Context, in *LoginRequest, opts ...grpc.CallOption) (*TokenResponse, error) {
	return invoke[TokenResponse](ctx, c.cc, AuthLoginMethod, in, opts)
}

func (c *AuthClient) Refresh(ctx context.Context, in *RefreshRequest, opts ...grpc.CallOption) (*TokenResponse, error) {
	return invoke[TokenResponse](ctx, c.cc, AuthRefreshMethod, in, opts)
}
