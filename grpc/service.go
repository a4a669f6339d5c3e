package seqgrpc

import (
	"context"
	"fmt"

	"google.golang.org/grpc"

	"github.com/blockberries/seqtest/types"
)

const serviceName = "seqtest.v1.SequencerService"

// SequencerServiceServer is the server-side interface for the
// sequencer gRPC service.
type SequencerServiceServer interface {
	GetInfo(context.Context, *InfoRequest) (*InfoResponse, error)
	SubmitDeployment(context.Context, *types.ProgramDeploymentTransaction) (*types.SubmitAck, error)
	SubmitInvocation(context.Context, *types.PublicTransaction) (*types.SubmitAck, error)
	GetAccount(context.Context, *AccountRequest) (*types.Account, error)
	GetLastBlock(context.Context, *LastBlockRequest) (*LastBlockResponse, error)
	GetReceipt(context.Context, *ReceiptRequest) (*types.Receipt, error)
}

// RegisterSequencerServiceServer registers srv on a gRPC server.
func RegisterSequencerServiceServer(s *grpc.Server, srv SequencerServiceServer) {
	s.RegisterService(&serviceDesc, srv)
}

// --- Handler functions ---

func handlerGetInfo(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
	req := new(InfoRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	return srv.(SequencerServiceServer).GetInfo(ctx, req)
}

func handlerSubmitDeployment(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
	req := new(types.ProgramDeploymentTransaction)
	if err := dec(req); err != nil {
		return nil, err
	}
	return srv.(SequencerServiceServer).SubmitDeployment(ctx, req)
}

func handlerSubmitInvocation(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
	req := new(types.PublicTransaction)
	if err := dec(req); err != nil {
		return nil, err
	}
	return srv.(SequencerServiceServer).SubmitInvocation(ctx, req)
}

func handlerGetAccount(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
	req := new(AccountRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	return srv.(SequencerServiceServer).GetAccount(ctx, req)
}

func handlerGetLastBlock(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
	req := new(LastBlockRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	return srv.(SequencerServiceServer).GetLastBlock(ctx, req)
}

func handlerGetReceipt(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
	req := new(ReceiptRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	return srv.(SequencerServiceServer).GetReceipt(ctx, req)
}

// fullMethod builds the full gRPC method path.
func fullMethod(method string) string {
	return fmt.Sprintf("/%s/%s", serviceName, method)
}

// serviceDesc is the manual gRPC service descriptor.
var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*SequencerServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetInfo", Handler: handlerGetInfo},
		{MethodName: "SubmitDeployment", Handler: handlerSubmitDeployment},
		{MethodName: "SubmitInvocation", Handler: handlerSubmitInvocation},
		{MethodName: "GetAccount", Handler: handlerGetAccount},
		{MethodName: "GetLastBlock", Handler: handlerGetLastBlock},
		{MethodName: "GetReceipt", Handler: handlerGetReceipt},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "seqtest/v1/sequencer.cram",
}
