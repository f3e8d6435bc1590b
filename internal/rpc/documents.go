package rpc

import (
	"context"

	"google.golang.org/grpc"
)

const DocumentsServiceName = "finsync.Documents"

const (
	DocumentsFetchMethod  = "/" + DocumentsServiceName + "/Fetch"
	DocumentsCommitMethod = "/" + DocumentsServiceName + "/Commit"
	DocumentsClearMethod  = "/" + DocumentsServiceName + "/Clear"
	DocumentsWatchMethod  = "/" + DocumentsServiceName + "/Watch"
)

// DocumentsServer serves the authenticated user's document namespace.
type DocumentsServer interface {
	Fetch(context.Context, *FetchRequest) (*FetchResponse, error)
	Commit(context.Context, *CommitRequest) (*CommitResponse, error)
	Clear(context.Context, *ClearRequest) (*ClearResponse, error)
	Watch(*WatchRequest, WatchServer) error
}

// WatchServer is the sending side of a Watch stream.
type WatchServer interface {
	Send(*ChangeBatch) error
	grpc.ServerStream
}

type watchServer struct {
	grpc.ServerStream
}

func (s *watchServer) Send(b *ChangeBatch) error {
	return s.ServerStream.SendMsg(b)
}

func watchHandler(srv any, stream grpc.ServerStream) error {
	in := new(WatchRequest)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(DocumentsServer).Watch(in, &watchServer{stream})
}

func RegisterDocumentsServer(s grpc.ServiceRegistrar, srv DocumentsServer) {
	s.RegisterService(&DocumentsServiceDesc, srv)
}

var DocumentsServiceDesc = grpc.ServiceDesc{
	ServiceName: DocumentsServiceName,
	HandlerType: (*DocumentsServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Fetch", Handler: unary(DocumentsFetchMethod, DocumentsServer.Fetch)},
		{MethodName: "Commit", Handler: unary(DocumentsCommitMethod, DocumentsServer.Commit)},
		{MethodName: "Clear", Handler: unary(DocumentsClearMethod, DocumentsServer.Clear)},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "Watch", Handler: watchHandler, ServerStreams: true},
	},
	Metadata: "finsync/documents",
}

// DocumentsClient is the client side of DocumentsServer.
type DocumentsClient struct {
	cc grpc.ClientConnInterface
}

func NewDocumentsClient(cc grpc.ClientConnInterface) *DocumentsClient {
	return &DocumentsClient{cc: cc}
}

func (c *DocumentsClient) Fetch(ctx context.Context, in *FetchRequest, opts ...grpc.CallOption) (*FetchResponse, error) {
	return invoke[FetchResponse](ctx, c.cc, DocumentsFetchMethod, in, opts)
}

func (c *DocumentsClient) Commit(ctx context.Context, in *CommitRequest, opts ...grpc.CallOption) (*CommitResponse, error) {
	return invoke[CommitResponse](ctx, c.cc, DocumentsCommitMethod, in, opts)
}

func (c *DocumentsClient) Clear(ctx context.Context, in *ClearRequest, opts ...grpc.CallOption) (*ClearResponse, error) {
	return invoke[ClearResponse](ctx, c.cc, DocumentsClearMethod, in, opts)
}

// WatchClient is the receiving side of a Watch stream.
type WatchClient interface {
	Recv() (*ChangeBatch, error)
	grpc.ClientStream
}

type watchClient struct {
	grpc.ClientStream
}

func (c *watchClient) Recv() (*ChangeBatch, error) {
	m := new(ChangeBatch)
	if err := c.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (c *DocumentsClient) Watch(ctx context.Context, in *WatchRequest, opts ...grpc.CallOption) (WatchClient, error) {
	stream, err := c.cc.NewStream(ctx, &DocumentsServiceDesc.Streams[0], DocumentsWatchMethod, append(opts, CallOption())...)
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &watchClient{stream}, nil
}
