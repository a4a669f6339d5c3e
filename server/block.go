package server

import (
	"fmt"

	"github.com/blockberries/seqtest/types"
)

// Tx is a queued transaction: exactly one of Deploy or Invoke is set.
type Tx struct {
	Hash   types.Hash
	Deploy *types.ProgramDeploymentTransaction
	Invoke *types.PublicTransaction
}

// DeployTx wraps a deployment for execution.
func DeployTx(t types.ProgramDeploymentTransaction) (Tx, error) {
	h, err := t.Hash()
	if err != nil {
		return Tx{}, fmt.Errorf("hash deployment: %w", err)
	}
	return Tx{Hash: h, Deploy: &t}, nil
}

// InvokeTx wraps a public transaction for execution.
func InvokeTx(t types.PublicTransaction) (Tx, error) {
	h, err := t.Hash()
	if err != nil {
		return Tx{}, fmt.Errorf("hash invocation: %w", err)
	}
	return Tx{Hash: h, Invoke: &t}, nil
}

// Kind names the transaction type for logs and metrics.
func (t Tx) Kind() string {
	if t.Deploy != nil {
		return "deploy"
	}
	return "invoke"
}

// Block is an ordered batch of transactions to execute at Height.
type Block struct {
	Height types.BlockHeight
	Txs    []Tx
}

// BlockOutcome holds one receipt per transaction, in block order.
type BlockOutcome struct {
	Height   types.BlockHeight
	Receipts []types.Receipt
}

// Executed counts the receipts with status TxExecuted.
func (o BlockOutcome) Executed() int {
	n := 0
	for _, r := range o.Receipts {
		if r.Status == types.TxExecuted {
			n++
		}
	}
	return n
}
