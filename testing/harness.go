package seqtesttest

import (
	"context"
	"testing"

	"github.com/blockberries/seqtest/crypto/ed25519"
	"github.com/blockberries/seqtest/guest"
	"github.com/blockberries/seqtest/local"
	"github.com/blockberries/seqtest/tx"
	"github.com/blockberries/seqtest/types"
)

// Harness steps an in-process engine block by block. It is the
// synchronous counterpart of Setup: every helper submits and then
// produces exactly one block, so tests need no waiting.
type Harness struct {
	t   *testing.T
	seq *local.Sequencer
}

// NewHarness creates a harness over a fresh engine running programs
// from reg. The engine is closed when the test ends.
func NewHarness(t *testing.T, reg *guest.Registry, opts ...local.Option) *Harness {
	t.Helper()
	seq, err := local.New(reg, opts...)
	if err != nil {
		t.Fatalf("local.New failed: %v", err)
	}
	t.Cleanup(func() { seq.Close() })
	return &Harness{t: t, seq: seq}
}

// Sequencer returns the underlying engine for direct access.
func (h *Harness) Sequencer() *local.Sequencer {
	return h.seq
}

// Step produces one block and returns its height.
func (h *Harness) Step() types.BlockHeight {
	h.t.Helper()
	height, err := h.seq.ProduceBlock(context.Background())
	if err != nil {
		h.t.Fatalf("ProduceBlock failed: %v", err)
	}
	return height
}

// Deploy deploys bytecode in its own block and fails the test unless
// the deployment executed.
func (h *Harness) Deploy(bytecode []byte) types.ProgramID {
	h.t.Helper()
	dtx, id, err := tx.Deployment(bytecode)
	if err != nil {
		h.t.Fatalf("Deployment failed: %v", err)
	}
	ack, err := h.seq.SubmitDeployment(context.Background(), dtx)
	if err != nil {
		h.t.Fatalf("SubmitDeployment failed: %v", err)
	}
	h.Step()
	if r := h.Receipt(ack.TxHash); r.Status != types.TxExecuted {
		h.t.Fatalf("deployment of %s %s: %s", id, r.Status, r.Reason)
	}
	return id
}

// Invoke submits an invocation, produces a block and returns the
// receipt.
func (h *Harness) Invoke(pid types.ProgramID, accounts []types.AccountID, instruction any, signers ...ed25519.PrivateKey) types.Receipt {
	h.t.Helper()
	ptx, err := tx.Invocation(pid, accounts, instruction, signers...)
	if err != nil {
		h.t.Fatalf("Invocation failed: %v", err)
	}
	ack, err := h.seq.SubmitInvocation(context.Background(), ptx)
	if err != nil {
		h.t.Fatalf("SubmitInvocation failed: %v", err)
	}
	h.Step()
	return h.Receipt(ack.TxHash)
}

// MustExecute invokes and fails the test if the engine rejected it.
func (h *Harness) MustExecute(pid types.ProgramID, accounts []types.AccountID, instruction any, signers ...ed25519.PrivateKey) {
	h.t.Helper()
	if r := h.Invoke(pid, accounts, instruction, signers...); r.Status != types.TxExecuted {
		h.t.Fatalf("expected executed, got %s: %s", r.Status, r.Reason)
	}
}

// MustReject invokes and fails the test unless the engine rejected it.
func (h *Harness) MustReject(pid types.ProgramID, accounts []types.AccountID, instruction any, signers ...ed25519.PrivateKey) types.Receipt {
	h.t.Helper()
	r := h.Invoke(pid, accounts, instruction, signers...)
	if r.Status != types.TxRejected {
		h.t.Fatalf("expected rejection, got %s", r.Status)
	}
	return r
}

// Receipt returns the receipt for a transaction hash.
func (h *Harness) Receipt(hash types.Hash) types.Receipt {
	h.t.Helper()
	r, err := h.seq.Receipt(context.Background(), hash)
	if err != nil {
		h.t.Fatalf("Receipt(%s) failed: %v", hash, err)
	}
	return r
}

// Account reads committed account state.
func (h *Harness) Account(id types.AccountID) types.Account {
	h.t.Helper()
	acc, err := h.seq.Account(context.Background(), id)
	if err != nil {
		h.t.Fatalf("Account(%s) failed: %v", id, err)
	}
	return acc
}
