// Package local provides an in-process reference sequencer.
//
// It keeps a bounded mempool, produces a block every BlockTime and
// executes it with server.Executor against a pebble store. A block's
// writes are committed before its height is published, so anything
// acknowledged before a height h is observed is readable once the
// height moves past h.
package local

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/blockberries/seqtest"
	"github.com/blockberries/seqtest/guest"
	"github.com/blockberries/seqtest/program"
	"github.com/blockberries/seqtest/server"
	"github.com/blockberries/seqtest/store"
	"github.com/blockberries/seqtest/tx"
	"github.com/blockberries/seqtest/types"
)

// Compile-time interface checks.
var (
	_ seqtest.Connection    = (*Sequencer)(nil)
	_ seqtest.ReceiptReader = (*Sequencer)(nil)
)

// Config holds the engine's timing and capacity knobs.
type Config struct {
	BlockTime     time.Duration
	MaxTxPerBlock int
	MempoolSize   int
}

// DefaultConfig returns the reference engine settings.
func DefaultConfig() Config {
	return Config{
		BlockTime:     200 * time.Millisecond,
		MaxTxPerBlock: 20,
		MempoolSize:   10_000,
	}
}

// Option configures a Sequencer.
type Option func(*Sequencer)

// WithConfig replaces the default config.
func WithConfig(cfg Config) Option {
	return func(s *Sequencer) { s.cfg = cfg }
}

// WithClock sets the clock driving block production.
func WithClock(c clock.Clock) Option {
	return func(s *Sequencer) { s.clock = c }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Sequencer) { s.log = l }
}

// WithRegisterer registers engine metrics with r.
func WithRegisterer(r prometheus.Registerer) Option {
	return func(s *Sequencer) { s.registerer = r }
}

// WithStore uses st instead of an in-memory store. The caller keeps
// ownership of st.
func WithStore(st *store.Store) Option {
	return func(s *Sequencer) { s.store = st }
}

// Sequencer is the in-process engine. It is safe for concurrent use.
type Sequencer struct {
	cfg        Config
	clock      clock.Clock
	log        *zap.Logger
	registerer prometheus.Registerer
	store      *store.Store
	ownsStore  bool
	exec       *server.Executor
	metrics    *metrics

	mu      sync.Mutex
	mempool []server.Tx
	queued  map[types.Hash]struct{}

	// Serializes block production.
	produceMu sync.Mutex
	// Held for writing from mempool take to height publish, and for
	// reading by submissions. A submission acknowledged while the
	// height reads h is taken by block h+1 unless the mempool holds
	// more than MaxTxPerBlock older transactions.
	publishMu sync.RWMutex
	height    atomic.Uint64

	// Readers of the store hold lifeMu.RLock; Close takes the write
	// lock before closing it.
	lifeMu    sync.RWMutex
	closed    atomic.Bool
	startOnce sync.Once
	stopOnce  sync.Once
	stop      chan struct{}
	done      chan struct{}
}

// New creates a sequencer that runs programs from programs. Call
// Start to produce blocks on a timer, or ProduceBlock to step it.
func New(programs *guest.Registry, opts ...Option) (*Sequencer, error) {
	s := &Sequencer{
		cfg:    DefaultConfig(),
		clock:  clock.New(),
		log:    zap.NewNop(),
		queued: make(map[types.Hash]struct{}),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cfg.BlockTime <= 0 || s.cfg.MaxTxPerBlock <= 0 || s.cfg.MempoolSize <= 0 {
		return nil, fmt.Errorf("local: invalid config %+v", s.cfg)
	}
	if s.store == nil {
		st, err := store.OpenMemory()
		if err != nil {
			return nil, err
		}
		s.store, s.ownsStore = st, true
	}
	m, err := newMetrics(s.registerer)
	if err != nil {
		s.closeStore()
		return nil, fmt.Errorf("local: register metrics: %w", err)
	}
	s.metrics = m

	h, err := s.store.Height()
	if err != nil {
		s.closeStore()
		return nil, err
	}
	s.height.Store(uint64(h))
	s.exec = server.New(s.store, programs, s.log)
	return s, nil
}

// Config returns the engine config.
func (s *Sequencer) Config() Config { return s.cfg }

// Start launches the block producer. It is a no-op after the first call.
func (s *Sequencer) Start() {
	s.startOnce.Do(func() {
		go s.run()
	})
}

func (s *Sequencer) run() {
	defer close(s.done)
	ticker := s.clock.Ticker(s.cfg.BlockTime)
	defer ticker.Stop()

	s.log.Info("Block producer started",
		zap.Duration("blockTime", s.cfg.BlockTime),
		zap.Int("maxTxPerBlock", s.cfg.MaxTxPerBlock))
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			if _, err := s.ProduceBlock(context.Background()); err != nil && !errors.Is(err, seqtest.ErrClosed) {
				s.log.Error("Block production failed", zap.Error(err))
			}
		}
	}
}

// ProduceBlock takes up to MaxTxPerBlock transactions from the
// mempool, executes and commits them, then publishes the new height.
// Blocks are produced even when the mempool is empty.
func (s *Sequencer) ProduceBlock(ctx context.Context) (types.BlockHeight, error) {
	s.produceMu.Lock()
	defer s.produceMu.Unlock()
	s.lifeMu.RLock()
	defer s.lifeMu.RUnlock()
	if s.closed.Load() {
		return 0, seqtest.ErrClosed
	}

	s.publishMu.Lock()
	defer s.publishMu.Unlock()
	txs := s.take()
	start := s.clock.Now()
	block := server.Block{Height: types.BlockHeight(s.height.Load()) + 1, Txs: txs}

	outcome, err := s.exec.ExecuteBlock(ctx, block)
	if err != nil {
		s.requeue(txs)
		return 0, fmt.Errorf("execute block %d: %w", block.Height, err)
	}
	h, err := s.exec.Commit(ctx)
	if err != nil {
		s.forget(txs)
		return 0, err
	}
	s.forget(txs)
	// Publish only after commit.
	s.height.Store(uint64(h))

	executed := outcome.Executed()
	s.metrics.blocks.Inc()
	s.metrics.executed.Add(float64(executed))
	s.metrics.rejected.Add(float64(len(txs) - executed))
	s.metrics.height.Set(float64(h))
	s.metrics.blockTime.Observe(s.clock.Since(start).Seconds())
	if len(txs) > 0 {
		s.log.Info("Block produced",
			zap.Uint64("height", uint64(h)),
			zap.Int("txs", len(txs)),
			zap.Int("executed", executed))
	}
	return h, nil
}

func (s *Sequencer) take() []server.Tx {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := min(len(s.mempool), s.cfg.MaxTxPerBlock)
	txs := append([]server.Tx(nil), s.mempool[:n]...)
	s.mempool = s.mempool[n:]
	s.metrics.mempoolSize.Set(float64(len(s.mempool)))
	return txs
}

// requeue puts txs back at the front after a failed execution.
func (s *Sequencer) requeue(txs []server.Tx) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mempool = append(append([]server.Tx(nil), txs...), s.mempool...)
	s.metrics.mempoolSize.Set(float64(len(s.mempool)))
}

func (s *Sequencer) forget(txs []server.Tx) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range txs {
		delete(s.queued, t.Hash)
	}
}

func (s *Sequencer) enqueue(t server.Tx) (types.SubmitAck, error) {
	s.publishMu.RLock()
	defer s.publishMu.RUnlock()
	if s.closed.Load() {
		return types.SubmitAck{}, seqtest.ErrClosed
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.queued[t.Hash]; dup {
		return types.SubmitAck{TxHash: t.Hash, Status: "duplicate"}, nil
	}
	if len(s.mempool) >= s.cfg.MempoolSize {
		return types.SubmitAck{}, seqtest.ErrMempoolFull
	}
	s.mempool = append(s.mempool, t)
	s.queued[t.Hash] = struct{}{}
	s.metrics.mempoolSize.Set(float64(len(s.mempool)))
	s.metrics.submitted.WithLabelValues(t.Kind()).Inc()
	return types.SubmitAck{TxHash: t.Hash, Status: "pending"}, nil
}

// SubmitDeployment queues a deployment after checking the bytecode
// is a valid executable.
func (s *Sequencer) SubmitDeployment(_ context.Context, d types.ProgramDeploymentTransaction) (types.SubmitAck, error) {
	p, err := program.New(d.Message.Bytecode)
	if err != nil {
		return types.SubmitAck{}, seqtest.NewValidationError("submit deployment", err)
	}
	t, err := server.DeployTx(d)
	if err != nil {
		return types.SubmitAck{}, err
	}
	ack, err := s.enqueue(t)
	if err == nil {
		s.log.Debug("Deployment queued", zap.Stringer("program", p.ID()), zap.Stringer("tx", ack.TxHash))
	}
	return ack, err
}

// SubmitInvocation queues a public transaction after checking its
// message shape and witnesses.
func (s *Sequencer) SubmitInvocation(_ context.Context, p types.PublicTransaction) (types.SubmitAck, error) {
	if len(p.Message.AccountIDs) == 0 {
		return types.SubmitAck{}, seqtest.NewValidationError("submit invocation", tx.ErrNoAccounts)
	}
	if err := tx.VerifyWitnesses(p); err != nil {
		return types.SubmitAck{}, err
	}
	t, err := server.InvokeTx(p)
	if err != nil {
		return types.SubmitAck{}, err
	}
	ack, err := s.enqueue(t)
	if err == nil {
		s.log.Debug("Invocation queued", zap.Stringer("program", p.Message.ProgramID), zap.Stringer("tx", ack.TxHash))
	}
	return ack, err
}

// Account reads committed state.
func (s *Sequencer) Account(_ context.Context, id types.AccountID) (types.Account, error) {
	s.lifeMu.RLock()
	defer s.lifeMu.RUnlock()
	if s.closed.Load() {
		return types.Account{}, seqtest.ErrClosed
	}
	return s.store.Account(id)
}

// LastBlockHeight returns the last published height.
func (s *Sequencer) LastBlockHeight(context.Context) (types.BlockHeight, error) {
	if s.closed.Load() {
		return 0, seqtest.ErrClosed
	}
	return types.BlockHeight(s.height.Load()), nil
}

// Receipt returns the outcome of a transaction. Queued transactions
// report TxPending.
func (s *Sequencer) Receipt(_ context.Context, h types.Hash) (types.Receipt, error) {
	s.lifeMu.RLock()
	defer s.lifeMu.RUnlock()
	if s.closed.Load() {
		return types.Receipt{}, seqtest.ErrClosed
	}
	// A resubmitted transaction is pending again until its next block.
	s.mu.Lock()
	_, queued := s.queued[h]
	s.mu.Unlock()
	if queued {
		return types.Receipt{TxHash: h, Status: types.TxPending}, nil
	}
	r, ok, err := s.store.Receipt(h)
	if err != nil {
		return types.Receipt{}, err
	}
	if ok {
		return r, nil
	}
	return types.Receipt{}, fmt.Errorf("%w: %s", seqtest.ErrUnknownTx, h)
}

// MempoolLen returns the number of queued transactions.
func (s *Sequencer) MempoolLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.mempool)
}

func (s *Sequencer) AsReceiptReader() seqtest.ReceiptReader { return s }

// Close stops block production and releases the store if the
// sequencer opened it.
func (s *Sequencer) Close() error {
	var err error
	s.stopOnce.Do(func() {
		s.closed.Store(true)
		close(s.stop)
		// Never started: nothing to wait for.
		s.startOnce.Do(func() { close(s.done) })
		<-s.done

		s.lifeMu.Lock()
		defer s.lifeMu.Unlock()
		err = s.closeStore()
	})
	return err
}

func (s *Sequencer) closeStore() error {
	if s.ownsStore {
		return s.store.Close()
	}
	return nil
}
