package handler

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "omnipos.assetscan.v1.ScanService"

// ScanServiceServer is the server API. Requests and responses are
// google.protobuf.Struct documents.
type ScanServiceServer interface {
	CommitScan(context.Context, *structpb.Struct) (*structpb.Struct, error)
	PreviewScan(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Sync(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListHistory(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteRecords(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ClearHistory(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Export(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(ScanServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func method(name string, call unaryCall) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(ScanServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: FullMethod(name),
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(ScanServiceServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

func FullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

var ScanServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ScanServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		method("CommitScan", ScanServiceServer.CommitScan),
		method("PreviewScan", ScanServiceServer.PreviewScan),
		method("Sync", ScanServiceServer.Sync),
		method("ListHistory", ScanServiceServer.ListHistory),
		method("DeleteRecords", ScanServiceServer.DeleteRecords),
		method("ClearHistory", ScanServiceServer.ClearHistory),
		method("Export", ScanServiceServer.Export),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "omnipos/assetscan/v1/scan.proto",
}

func RegisterScanServiceServer(s grpc.ServiceRegistrar, srv ScanServiceServer) {
	s.RegisterService(&ScanServiceDesc, srv)
}
