package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const WalletServiceName = "harvest.wallet.v1.HarvestWallet"

// HarvestWalletServer is the server API of the HarvestWallet service. Every
// method takes and returns a google.protobuf.Struct carrying the same
// payload a callable function would.
type HarvestWalletServer interface {
	AddHarvestWalletCash(context.Context, *structpb.Struct) (*structpb.Struct, error)
	PayPickerFromWallet(context.Context, *structpb.Struct) (*structpb.Struct, error)
	PayPickersFromWalletBatch(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetWalletSummary(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Health(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type walletMethod func(HarvestWalletServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(name string, call walletMethod) grpc.MethodDesc {
	fullMethod := "/" + WalletServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(HarvestWalletServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(HarvestWalletServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// HarvestWalletServiceDesc describes the service for grpc.Server.RegisterService.
var HarvestWalletServiceDesc = grpc.ServiceDesc{
	ServiceName: WalletServiceName,
	HandlerType: (*HarvestWalletServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryHandler("AddHarvestWalletCash", HarvestWalletServer.AddHarvestWalletCash),
		unaryHandler("PayPickerFromWallet", HarvestWalletServer.PayPickerFromWallet),
		unaryHandler("PayPickersFromWalletBatch", HarvestWalletServer.PayPickersFromWalletBatch),
		unaryHandler("GetWalletSummary", HarvestWalletServer.GetWalletSummary),
		unaryHandler("Health", HarvestWalletServer.Health),
	},
	Streams: []grpc.StreamDesc{},
}

func RegisterHarvestWalletServer(s grpc.ServiceRegistrar, srv HarvestWalletServer) {
	s.RegisterService(&HarvestWalletServiceDesc, srv)
}

// HarvestWalletClient calls the service with Struct payloads.
type HarvestWalletClient struct {
	cc grpc.ClientConnInterface
}

func NewHarvestWalletClient(cc grpc.ClientConnInterface) *HarvestWalletClient {
	return &HarvestWalletClient{cc: cc}
}

// Invoke calls method (e.g. "AddHarvestWalletCash") with data.
func (c *HarvestWalletClient) Invoke(ctx context.Context, method string, data map[string]any, opts ...grpc.CallOption) (map[string]any, error) {
	in, err := structpb.NewStruct(data)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+WalletServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out.AsMap(), nil
}
