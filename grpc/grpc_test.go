package seqgrpc_test

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/blockberries/seqtest"
	"github.com/blockberries/seqtest/example/double"
	seqgrpc "github.com/blockberries/seqtest/grpc"
	"github.com/blockberries/seqtest/local"
	seqtesttest "github.com/blockberries/seqtest/testing"
	"github.com/blockberries/seqtest/tx"
	"github.com/blockberries/seqtest/types"
)

// startServer starts a gRPC server on a random port and returns
// the listener address and a cleanup function.
func startServer(t *testing.T, gs *seqgrpc.GRPCServer) (string, func()) {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	s := grpc.NewServer()
	gs.Register(s)

	go func() {
		// Returns on GracefulStop.
		_ = s.Serve(lis)
	}()

	return lis.Addr().String(), func() {
		s.GracefulStop()
	}
}

func dial(t *testing.T, addr string) *seqgrpc.Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	client, err := seqgrpc.Dial(ctx, addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	return client
}

func TestGRPC_Double_Lifecycle(t *testing.T) {
	reg, err := seqtesttest.Registry(seqtesttest.Double())
	if err != nil {
		t.Fatal(err)
	}
	seq, err := local.New(reg)
	if err != nil {
		t.Fatalf("local.New: %v", err)
	}
	defer seq.Close()

	addr, cleanup := startServer(t, seqgrpc.NewGRPCServer(seq, seqgrpc.WithBlockTime(time.Second)))
	defer cleanup()

	client := dial(t, addr)
	defer client.Close()

	ctx := context.Background()

	if got := client.BlockTime(); got != time.Second {
		t.Errorf("advertised block time %v, want 1s", got)
	}
	receipts := client.AsReceiptReader()
	if receipts == nil {
		t.Fatal("expected receipts to be advertised")
	}

	dtx, pid, err := tx.Deployment(double.Bytecode())
	if err != nil {
		t.Fatal(err)
	}
	ack, err := client.SubmitDeployment(ctx, dtx)
	if err != nil {
		t.Fatalf("SubmitDeployment: %v", err)
	}
	want, _ := dtx.Hash()
	if ack.TxHash != want {
		t.Errorf("ack hash %s, want %s", ack.TxHash, want)
	}

	r, err := receipts.Receipt(ctx, ack.TxHash)
	if err != nil {
		t.Fatalf("Receipt: %v", err)
	}
	if r.Status != types.TxPending {
		t.Errorf("status before block %s, want pending", r.Status)
	}

	if _, err := seq.ProduceBlock(ctx); err != nil {
		t.Fatal(err)
	}
	h, err := client.LastBlockHeight(ctx)
	if err != nil {
		t.Fatalf("LastBlockHeight: %v", err)
	}
	if h != 1 {
		t.Errorf("height %d, want 1", h)
	}

	account := types.NewAccountID(1)
	ptx, err := tx.Invocation(pid, []types.AccountID{account}, double.Instruction{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := client.SubmitInvocation(ctx, ptx); err != nil {
		t.Fatalf("SubmitInvocation: %v", err)
	}
	if _, err := seq.ProduceBlock(ctx); err != nil {
		t.Fatal(err)
	}

	acc, err := client.Account(ctx, account)
	if err != nil {
		t.Fatalf("Account: %v", err)
	}
	if acc.ProgramOwner != pid {
		t.Errorf("owner %s, want %s", acc.ProgramOwner, pid)
	}
	if v, _ := double.Value(acc); v != 1 {
		t.Errorf("value %d, want 1", v)
	}
}

func TestGRPC_DefaultAccount(t *testing.T) {
	addr, cleanup := startServer(t, seqgrpc.NewGRPCServer(&seqtesttest.MockSequencer{}))
	defer cleanup()
	client := dial(t, addr)
	defer client.Close()

	acc, err := client.Account(context.Background(), types.NewAccountID(5))
	if err != nil {
		t.Fatalf("Account: %v", err)
	}
	if !acc.IsDefault() {
		t.Errorf("expected default account, got %+v", acc)
	}
}

func TestGRPC_ValidationErrorRoundTrip(t *testing.T) {
	mock := &seqtesttest.MockSequencer{
		SubmitInvocationFn: func(context.Context, types.PublicTransaction) (types.SubmitAck, error) {
			return types.SubmitAck{}, seqtest.NewValidationError("submit invocation", tx.ErrNoAccounts)
		},
	}
	addr, cleanup := startServer(t, seqgrpc.NewGRPCServer(mock))
	defer cleanup()
	client := dial(t, addr)
	defer client.Close()

	_, err := client.SubmitInvocation(context.Background(), types.PublicTransaction{})
	if _, ok := seqtest.IsValidation(err); !ok {
		t.Fatalf("expected ValidationError, got %T: %v", err, err)
	}
	if _, ok := seqtest.IsNetwork(err); ok {
		t.Error("validation failure reported as network error")
	}
}

func TestGRPC_MempoolFull(t *testing.T) {
	mock := &seqtesttest.MockSequencer{
		SubmitDeploymentFn: func(context.Context, types.ProgramDeploymentTransaction) (types.SubmitAck, error) {
			return types.SubmitAck{}, seqtest.ErrMempoolFull
		},
	}
	addr, cleanup := startServer(t, seqgrpc.NewGRPCServer(mock))
	defer cleanup()
	client := dial(t, addr)
	defer client.Close()

	_, err := client.SubmitDeployment(context.Background(), types.ProgramDeploymentTransaction{})
	if !errors.Is(err, seqtest.ErrMempoolFull) {
		t.Fatalf("expected ErrMempoolFull, got %v", err)
	}
	if _, ok := seqtest.IsNetwork(err); !ok {
		t.Errorf("expected NetworkError, got %T", err)
	}
}

func TestGRPC_InternalErrorIsNetwork(t *testing.T) {
	mock := &seqtesttest.MockSequencer{
		LastBlockHeightFn: func(context.Context) (types.BlockHeight, error) {
			return 0, errors.New("disk on fire")
		},
	}
	addr, cleanup := startServer(t, seqgrpc.NewGRPCServer(mock))
	defer cleanup()
	client := dial(t, addr)
	defer client.Close()

	_, err := client.LastBlockHeight(context.Background())
	if _, ok := seqtest.IsNetwork(err); !ok {
		t.Fatalf("expected NetworkError, got %T: %v", err, err)
	}
}

func TestGRPC_ReceiptsCapability(t *testing.T) {
	t.Run("not_advertised", func(t *testing.T) {
		// A bare Sequencer without Receipt.
		var seq seqtest.Sequencer = struct{ seqtest.Sequencer }{&seqtesttest.MockSequencer{}}
		addr, cleanup := startServer(t, seqgrpc.NewGRPCServer(seq))
		defer cleanup()
		client := dial(t, addr)
		defer client.Close()

		if client.AsReceiptReader() != nil {
			t.Error("receipts advertised by a sequencer without them")
		}
	})

	t.Run("unknown_tx", func(t *testing.T) {
		mock := &seqtesttest.MockSequencer{
			ReceiptFn: func(context.Context, types.Hash) (types.Receipt, error) {
				return types.Receipt{}, seqtest.ErrUnknownTx
			},
		}
		addr, cleanup := startServer(t, seqgrpc.NewGRPCServer(mock))
		defer cleanup()
		client := dial(t, addr)
		defer client.Close()

		rr := client.AsReceiptReader()
		if rr == nil {
			t.Fatal("expected receipts to be advertised")
		}
		_, err := rr.Receipt(context.Background(), types.Hash{1})
		if !errors.Is(err, seqtest.ErrUnknownTx) {
			t.Errorf("expected ErrUnknownTx, got %v", err)
		}
	})
}

func TestDial_Unreachable(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := lis.Addr().String()
	lis.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	_, err = seqgrpc.Dial(ctx, addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if _, ok := seqtest.IsNetwork(err); !ok {
		t.Fatalf("expected NetworkError, got %T: %v", err, err)
	}
}
