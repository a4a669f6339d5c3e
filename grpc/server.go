package seqgrpc

import (
	"context"
	"net"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/blockberries/seqtest"
	"github.com/blockberries/seqtest/types"
)

// Compile-time interface check.
var _ SequencerServiceServer = (*GRPCServer)(nil)

// GRPCServer exposes a sequencer over gRPC. Domain types are
// serialized directly via cramberry.
type GRPCServer struct {
	seq       seqtest.Sequencer
	receipts  seqtest.ReceiptReader
	blockTime time.Duration
	log       *zap.Logger
}

// ServerOption configures a GRPCServer.
type ServerOption func(*GRPCServer)

// WithBlockTime advertises the engine's block interval to clients.
func WithBlockTime(d time.Duration) ServerOption {
	return func(s *GRPCServer) { s.blockTime = d }
}

// WithServerLogger sets the logger.
func WithServerLogger(l *zap.Logger) ServerOption {
	return func(s *GRPCServer) { s.log = l }
}

// NewGRPCServer creates a gRPC server for seq. If seq implements
// seqtest.ReceiptReader, receipts are served too.
func NewGRPCServer(seq seqtest.Sequencer, opts ...ServerOption) *GRPCServer {
	s := &GRPCServer{seq: seq, log: zap.NewNop()}
	s.receipts, _ = seq.(seqtest.ReceiptReader)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register adds the sequencer service to a gRPC server.
func (s *GRPCServer) Register(gs *grpc.Server) {
	RegisterSequencerServiceServer(gs, s)
}

// Serve starts a gRPC server on the given listener and blocks.
func (s *GRPCServer) Serve(lis net.Listener, opts ...grpc.ServerOption) error {
	gs := grpc.NewServer(opts...)
	s.Register(gs)
	return gs.Serve(lis)
}

func (s *GRPCServer) GetInfo(context.Context, *InfoRequest) (*InfoResponse, error) {
	return &InfoResponse{
		Receipts:       s.receipts != nil,
		BlockTimeNanos: int64(s.blockTime),
	}, nil
}

func (s *GRPCServer) SubmitDeployment(ctx context.Context, req *types.ProgramDeploymentTransaction) (*types.SubmitAck, error) {
	ack, err := s.seq.SubmitDeployment(ctx, *req)
	if err != nil {
		s.log.Debug("Deployment refused", zap.Error(err))
		return nil, toStatus(err)
	}
	return &ack, nil
}

func (s *GRPCServer) SubmitInvocation(ctx context.Context, req *types.PublicTransaction) (*types.SubmitAck, error) {
	ack, err := s.seq.SubmitInvocation(ctx, *req)
	if err != nil {
		s.log.Debug("Invocation refused", zap.Error(err))
		return nil, toStatus(err)
	}
	return &ack, nil
}

func (s *GRPCServer) GetAccount(ctx context.Context, req *AccountRequest) (*types.Account, error) {
	acc, err := s.seq.Account(ctx, req.AccountID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &acc, nil
}

func (s *GRPCServer) GetLastBlock(ctx context.Context, _ *LastBlockRequest) (*LastBlockResponse, error) {
	h, err := s.seq.LastBlockHeight(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return &LastBlockResponse{Height: h}, nil
}

func (s *GRPCServer) GetReceipt(ctx context.Context, req *ReceiptRequest) (*types.Receipt, error) {
	if s.receipts == nil {
		return nil, status.Error(codes.Unimplemented, "receipts not supported")
	}
	r, err := s.receipts.Receipt(ctx, req.TxHash)
	if err != nil {
		return nil, toStatus(err)
	}
	return &r, nil
}
