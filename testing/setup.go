package seqtesttest

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/blockberries/seqtest"
	"github.com/blockberries/seqtest/client"
	"github.com/blockberries/seqtest/confirm"
	seqgrpc "github.com/blockberries/seqtest/grpc"
	"github.com/blockberries/seqtest/local"
	"github.com/blockberries/seqtest/store"
	"github.com/blockberries/seqtest/types"
)

// NumAccounts is the number of pre-generated accounts in a Context.
const NumAccounts = 10

// Context bundles a running engine with a client and fixtures.
type Context struct {
	t *testing.T

	Client *client.Client
	Engine *local.Sequencer
	// Conn is what Client talks to: a gRPC client, or the engine
	// itself when set up InProcess.
	Conn seqtest.Connection
	// Accounts[i] is the account id with every byte set to i+1.
	Accounts [NumAccounts]types.AccountID
	// ArtifactDir holds <name>.bin for every registered program.
	ArtifactDir string
}

type setupConfig struct {
	programs  []Program
	blockTime time.Duration
	inProcess bool
	logger    *zap.Logger
}

// SetupOption configures Setup.
type SetupOption func(*setupConfig)

// WithProgram registers an extra program with the engine and writes
// its artifact.
func WithProgram(p Program) SetupOption {
	return func(c *setupConfig) { c.programs = append(c.programs, p) }
}

// WithBlockTime overrides the engine's block interval. The waiter
// follows it.
func WithBlockTime(d time.Duration) SetupOption {
	return func(c *setupConfig) { c.blockTime = d }
}

// InProcess skips the gRPC transport; the client talks to the engine
// directly.
func InProcess() SetupOption {
	return func(c *setupConfig) { c.inProcess = true }
}

// WithLogger replaces the per-test logger.
func WithLogger(l *zap.Logger) SetupOption {
	return func(c *setupConfig) { c.logger = l }
}

// Setup starts an engine on a temporary store with the double program
// registered, serves it over gRPC on a loopback port and connects a
// client. Everything is torn down when the test ends.
func Setup(t *testing.T, opts ...SetupOption) *Context {
	t.Helper()
	cfg := setupConfig{
		programs:  []Program{Double()},
		blockTime: confirm.DefaultBlockTime,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = zaptest.NewLogger(t, zaptest.Level(zap.InfoLevel))
	}
	log := cfg.logger

	reg, err := Registry(cfg.programs...)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	dir := t.TempDir()
	artifacts := filepath.Join(dir, "programs")
	if err := os.MkdirAll(artifacts, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	for _, p := range cfg.programs {
		if err := os.WriteFile(filepath.Join(artifacts, p.Name+".bin"), p.Bytecode, 0o644); err != nil {
			t.Fatalf("write artifact %s: %v", p.Name, err)
		}
	}

	st, err := store.Open(filepath.Join(dir, "db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	engineCfg := local.DefaultConfig()
	engineCfg.BlockTime = cfg.blockTime
	engine, err := local.New(reg,
		local.WithConfig(engineCfg),
		local.WithStore(st),
		local.WithLogger(log.Named("engine")),
	)
	if err != nil {
		st.Close()
		t.Fatalf("local.New failed: %v", err)
	}
	engine.Start()
	log.Info("Sequencer started", zap.Duration("blockTime", cfg.blockTime))
	t.Cleanup(func() {
		engine.Close()
		st.Close()
	})

	var conn seqtest.Connection = engine
	if !cfg.inProcess {
		conn = serveGRPC(t, engine, cfg.blockTime, log)
	}

	poller := confirm.FromBlockTime(conn, cfg.blockTime)
	c := &Context{
		t:           t,
		Client:      client.New(conn, client.WithPoller(poller), client.WithLogger(log.Named("client"))),
		Engine:      engine,
		Conn:        conn,
		ArtifactDir: artifacts,
	}
	for i := range c.Accounts {
		c.Accounts[i] = types.NewAccountID(byte(i + 1))
	}
	return c
}

func serveGRPC(t *testing.T, engine *local.Sequencer, blockTime time.Duration, log *zap.Logger) *seqgrpc.Client {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	gs := grpc.NewServer()
	seqgrpc.NewGRPCServer(engine,
		seqgrpc.WithBlockTime(blockTime),
		seqgrpc.WithServerLogger(log.Named("grpc")),
	).Register(gs)
	go func() {
		// Serve returns on Stop; nothing to report.
		_ = gs.Serve(lis)
	}()
	log.Info("Sequencer listening", zap.Stringer("addr", lis.Addr()))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, err := seqgrpc.Dial(ctx, lis.Addr().String(),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		gs.Stop()
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() {
		conn.Close()
		gs.Stop()
	})
	return conn
}

// DeployProgram reads <name>.bin from ArtifactDir and submits it. It
// does not wait for the deployment block.
func (c *Context) DeployProgram(name string) types.ProgramID {
	c.t.Helper()
	id, _, err := c.Client.DeployFile(context.Background(), filepath.Join(c.ArtifactDir, name+".bin"))
	if err != nil {
		c.t.Fatalf("deploy %s: %v", name, err)
	}
	return id
}

// SendUnsigned submits an unsigned invocation without waiting.
func (c *Context) SendUnsigned(pid types.ProgramID, accounts []types.AccountID, instruction any) types.SubmitAck {
	c.t.Helper()
	ack, err := c.Client.SendUnsigned(context.Background(), pid, accounts, instruction)
	if err != nil {
		c.t.Fatalf("send: %v", err)
	}
	return ack
}

// Account reads committed account state.
func (c *Context) Account(id types.AccountID) types.Account {
	c.t.Helper()
	acc, err := c.Client.Account(context.Background(), id)
	if err != nil {
		c.t.Fatalf("get account %s: %v", id, err)
	}
	return acc
}

// WaitForBlock waits for the next block and fails the test on timeout.
func (c *Context) WaitForBlock() types.BlockHeight {
	c.t.Helper()
	h, err := c.Client.WaitForBlock(context.Background())
	if err != nil {
		c.t.Fatalf("wait for block: %v", err)
	}
	return h
}
