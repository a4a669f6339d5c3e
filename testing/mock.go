// Package seqtesttest provides test utilities for programs and
// sequencer clients: a configurable mock sequencer, a harness around
// the in-process engine, end-to-end setup helpers and an ownership
// compliance suite for program logic.
package seqtesttest

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/blockberries/seqtest"
	"github.com/blockberries/seqtest/types"
)

// Compile-time check that MockSequencer satisfies the interfaces.
var (
	_ seqtest.Connection    = (*MockSequencer)(nil)
	_ seqtest.ReceiptReader = (*MockSequencer)(nil)
)

// MockSequencer is a configurable mock engine for client testing.
// All methods are configurable via function fields. Unconfigured
// methods fall back to a tiny in-memory model: submissions are
// acknowledged, accounts come from Accounts and the height from
// Height.
type MockSequencer struct {
	mu sync.Mutex

	// Accounts backs the default Account handler.
	Accounts map[types.AccountID]types.Account
	// Height backs the default LastBlockHeight handler.
	Height atomic.Uint64
	// DeclareReceipts makes AsReceiptReader return the mock.
	DeclareReceipts bool

	// Configurable handlers. If nil, defaults are used.
	SubmitDeploymentFn func(context.Context, types.ProgramDeploymentTransaction) (types.SubmitAck, error)
	SubmitInvocationFn func(context.Context, types.PublicTransaction) (types.SubmitAck, error)
	AccountFn          func(context.Context, types.AccountID) (types.Account, error)
	LastBlockHeightFn  func(context.Context) (types.BlockHeight, error)
	ReceiptFn          func(context.Context, types.Hash) (types.Receipt, error)

	// Call counters (atomic for concurrent access).
	SubmitDeploymentCalls atomic.Int64
	SubmitInvocationCalls atomic.Int64
	AccountCalls          atomic.Int64
	LastBlockHeightCalls  atomic.Int64
	ReceiptCalls          atomic.Int64

	// Submitted transactions, in order.
	Deployments []types.ProgramDeploymentTransaction
	Invocations []types.PublicTransaction

	closed atomic.Bool
}

func (m *MockSequencer) SubmitDeployment(ctx context.Context, t types.ProgramDeploymentTransaction) (types.SubmitAck, error) {
	m.SubmitDeploymentCalls.Add(1)
	m.mu.Lock()
	m.Deployments = append(m.Deployments, t)
	m.mu.Unlock()
	if m.SubmitDeploymentFn != nil {
		return m.SubmitDeploymentFn(ctx, t)
	}
	h, err := t.Hash()
	return types.SubmitAck{TxHash: h, Status: "pending"}, err
}

func (m *MockSequencer) SubmitInvocation(ctx context.Context, t types.PublicTransaction) (types.SubmitAck, error) {
	m.SubmitInvocationCalls.Add(1)
	m.mu.Lock()
	m.Invocations = append(m.Invocations, t)
	m.mu.Unlock()
	if m.SubmitInvocationFn != nil {
		return m.SubmitInvocationFn(ctx, t)
	}
	h, err := t.Hash()
	return types.SubmitAck{TxHash: h, Status: "pending"}, err
}

func (m *MockSequencer) Account(ctx context.Context, id types.AccountID) (types.Account, error) {
	m.AccountCalls.Add(1)
	if m.AccountFn != nil {
		return m.AccountFn(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if acc, ok := m.Accounts[id]; ok {
		return acc.Clone(), nil
	}
	return types.DefaultAccount(), nil
}

// SetAccount stores acc for the default Account handler.
func (m *MockSequencer) SetAccount(id types.AccountID, acc types.Account) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Accounts == nil {
		m.Accounts = make(map[types.AccountID]types.Account)
	}
	m.Accounts[id] = acc.Clone()
}

func (m *MockSequencer) LastBlockHeight(ctx context.Context) (types.BlockHeight, error) {
	m.LastBlockHeightCalls.Add(1)
	if m.LastBlockHeightFn != nil {
		return m.LastBlockHeightFn(ctx)
	}
	return types.BlockHeight(m.Height.Load()), nil
}

func (m *MockSequencer) Receipt(ctx context.Context, h types.Hash) (types.Receipt, error) {
	m.ReceiptCalls.Add(1)
	if m.ReceiptFn != nil {
		return m.ReceiptFn(ctx, h)
	}
	return types.Receipt{TxHash: h, Status: types.TxExecuted, Height: types.BlockHeight(m.Height.Load())}, nil
}

func (m *MockSequencer) AsReceiptReader() seqtest.ReceiptReader {
	if m.DeclareReceipts {
		return m
	}
	return nil
}

func (m *MockSequencer) Close() error {
	m.closed.Store(true)
	return nil
}

// Closed reports whether Close was called.
func (m *MockSequencer) Closed() bool { return m.closed.Load() }
