// Package seqtest defines the client boundary of an account-based
// sequencer and the error taxonomy of the confirmation protocol built
// on top of it.
//
// The core [Sequencer] interface is required. Optional capabilities
// such as [ReceiptReader] are discovered via Go type assertion.
package seqtest

import (
	"context"

	"github.com/blockberries/seqtest/types"
)

// Sequencer is the engine surface the protocol consumes.
//
// The engine guarantees that once a submission is acknowledged, its
// effects are visible to Account no later than the next block height
// LastBlockHeight reports after the acknowledgement.
type Sequencer interface {
	// SubmitDeployment queues a program deployment. The program id is
	// implied by the bytecode.
	SubmitDeployment(ctx context.Context, tx types.ProgramDeploymentTransaction) (types.SubmitAck, error)

	// SubmitInvocation queues a public transaction.
	SubmitInvocation(ctx context.Context, tx types.PublicTransaction) (types.SubmitAck, error)

	// Account reads committed account state. Unknown ids read as
	// types.DefaultAccount().
	Account(ctx context.Context, id types.AccountID) (types.Account, error)

	// LastBlockHeight returns the height of the last produced block.
	LastBlockHeight(ctx context.Context) (types.BlockHeight, error)
}

// ReceiptReader exposes per-transaction execution outcomes. Engines
// that implement it let callers tell a rejected transaction apart
// from one that never ran.
type ReceiptReader interface {
	Receipt(ctx context.Context, hash types.Hash) (types.Receipt, error)
}

// Connection is a transport-agnostic handle to a sequencer. Both the
// gRPC client and the in-process engine implement it.
type Connection interface {
	Sequencer

	// AsReceiptReader returns the ReceiptReader capability, or nil if
	// the engine does not provide one.
	AsReceiptReader() ReceiptReader

	// Close releases the connection.
	Close() error
}
