// Package client composes the confirmation protocol over a
// sequencer: deploy a program, submit invocations, wait for the next
// block and read the resulting account state.
//
// Every submit-and-wait helper reads the block height after the
// engine acknowledges the submission and returns once the height has
// moved past it. State read afterwards reflects the submission.
package client

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/blockberries/seqtest"
	"github.com/blockberries/seqtest/confirm"
	"github.com/blockberries/seqtest/crypto/ed25519"
	"github.com/blockberries/seqtest/program"
	"github.com/blockberries/seqtest/tx"
	"github.com/blockberries/seqtest/types"
)

// ErrRejected is returned when a confirmed transaction's receipt
// reports that the engine rejected it.
var ErrRejected = errors.New("transaction rejected")

// ErrNotIncluded is returned when a transaction is still pending after
// the block it was expected in.
var ErrNotIncluded = errors.New("transaction not included in the next block")

// Client runs protocol operations against a sequencer.
type Client struct {
	seq      seqtest.Sequencer
	receipts seqtest.ReceiptReader
	poller   *confirm.Poller
	log      *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithPoller replaces the waiter. Its Source is set to the client's
// sequencer if nil.
func WithPoller(p *confirm.Poller) Option {
	return func(c *Client) { c.poller = p }
}

// New returns a client for seq. The default waiter assumes
// confirm.DefaultBlockTime.
func New(seq seqtest.Sequencer, opts ...Option) *Client {
	c := &Client{seq: seq, log: zap.NewNop()}
	switch r := seq.(type) {
	case seqtest.Connection:
		c.receipts = r.AsReceiptReader()
	case seqtest.ReceiptReader:
		c.receipts = r
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.poller == nil {
		c.poller = confirm.FromBlockTime(seq, confirm.DefaultBlockTime)
	}
	if c.poller.Source == nil {
		c.poller.Source = seq
	}
	if c.poller.Logger == nil {
		c.poller.Logger = c.log
	}
	return c
}

// Sequencer returns the underlying sequencer.
func (c *Client) Sequencer() seqtest.Sequencer { return c.seq }

// Deploy submits bytecode for deployment and returns the program id
// it will be registered under. It does not wait.
func (c *Client) Deploy(ctx context.Context, bytecode []byte) (types.ProgramID, types.SubmitAck, error) {
	dtx, id, err := tx.Deployment(bytecode)
	if err != nil {
		return types.ProgramID{}, types.SubmitAck{}, err
	}
	ack, err := c.seq.SubmitDeployment(ctx, dtx)
	if err != nil {
		return types.ProgramID{}, types.SubmitAck{}, fmt.Errorf("deploy %s: %w", id, err)
	}
	c.log.Info("Deploy TX sent", zap.Stringer("program", id), zap.Stringer("tx", ack.TxHash))
	return id, ack, nil
}

// DeployFile loads bytecode from path and deploys it.
func (c *Client) DeployFile(ctx context.Context, path string) (types.ProgramID, types.SubmitAck, error) {
	p, err := program.Load(path)
	if err != nil {
		return types.ProgramID{}, types.SubmitAck{}, err
	}
	return c.Deploy(ctx, p.Bytecode())
}

// SendUnsigned submits an invocation with no witnesses.
func (c *Client) SendUnsigned(ctx context.Context, pid types.ProgramID, accounts []types.AccountID, instruction any) (types.SubmitAck, error) {
	return c.Send(ctx, pid, accounts, instruction)
}

// Send submits an invocation signed by signers.
func (c *Client) Send(
	ctx context.Context,
	pid types.ProgramID,
	accounts []types.AccountID,
	instruction any,
	signers ...ed25519.PrivateKey,
) (types.SubmitAck, error) {
	ptx, err := tx.Invocation(pid, accounts, instruction, signers...)
	if err != nil {
		return types.SubmitAck{}, err
	}
	ack, err := c.seq.SubmitInvocation(ctx, ptx)
	if err != nil {
		return types.SubmitAck{}, fmt.Errorf("send to %s: %w", pid, err)
	}
	c.log.Info("TX sent",
		zap.Stringer("program", pid),
		zap.Int("accounts", len(accounts)),
		zap.Int("signers", len(signers)),
		zap.Stringer("tx", ack.TxHash))
	return ack, nil
}

// Account reads committed account state.
func (c *Client) Account(ctx context.Context, id types.AccountID) (types.Account, error) {
	return c.seq.Account(ctx, id)
}

// LastBlockHeight reads the engine's current height.
func (c *Client) LastBlockHeight(ctx context.Context) (types.BlockHeight, error) {
	return c.seq.LastBlockHeight(ctx)
}

// WaitForBlock waits for the height to move past its current value.
func (c *Client) WaitForBlock(ctx context.Context) (types.BlockHeight, error) {
	h, err := c.poller.WaitForBlock(ctx)
	if err != nil {
		return 0, err
	}
	c.log.Debug("New block", zap.Uint64("height", uint64(h)))
	return h, nil
}

// Confirm waits for the block that includes ack and, when the engine
// provides receipts, checks the outcome. A rejected transaction
// yields ErrRejected, one still queued yields ErrNotIncluded. Without
// receipts the returned receipt is zero.
func (c *Client) Confirm(ctx context.Context, ack types.SubmitAck) (types.Receipt, error) {
	if _, err := c.WaitForBlock(ctx); err != nil {
		return types.Receipt{}, err
	}
	if c.receipts == nil {
		return types.Receipt{}, nil
	}
	r, err := c.receipts.Receipt(ctx, ack.TxHash)
	if err != nil {
		return types.Receipt{}, err
	}
	switch r.Status {
	case types.TxRejected:
		return r, fmt.Errorf("%w: %s: %s", ErrRejected, ack.TxHash, r.Reason)
	case types.TxPending:
		return r, fmt.Errorf("%w: %s", ErrNotIncluded, ack.TxHash)
	}
	return r, nil
}

// Receipts returns the engine's receipt capability, or nil.
func (c *Client) Receipts() seqtest.ReceiptReader { return c.receipts }

// DeployAndWait deploys bytecode and waits for the deployment block.
func (c *Client) DeployAndWait(ctx context.Context, bytecode []byte) (types.ProgramID, error) {
	id, ack, err := c.Deploy(ctx, bytecode)
	if err != nil {
		return types.ProgramID{}, err
	}
	if _, err := c.Confirm(ctx, ack); err != nil {
		return types.ProgramID{}, err
	}
	return id, nil
}

// SendAndWait submits a signed invocation and waits for its block.
func (c *Client) SendAndWait(
	ctx context.Context,
	pid types.ProgramID,
	accounts []types.AccountID,
	instruction any,
	signers ...ed25519.PrivateKey,
) (types.Receipt, error) {
	ack, err := c.Send(ctx, pid, accounts, instruction, signers...)
	if err != nil {
		return types.Receipt{}, err
	}
	return c.Confirm(ctx, ack)
}
