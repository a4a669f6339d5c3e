package server

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/blockberries/seqtest"
	"github.com/blockberries/seqtest/guest"
	"github.com/blockberries/seqtest/ownership"
	"github.com/blockberries/seqtest/program"
	"github.com/blockberries/seqtest/store"
	"github.com/blockberries/seqtest/tx"
	"github.com/blockberries/seqtest/types"
)

var (
	ErrProgramExists      = errors.New("program already deployed")
	ErrProgramNotDeployed = errors.New("program not deployed")
	ErrDuplicateAccount   = errors.New("account listed twice")
	ErrPostStateCount     = errors.New("post state count does not match accounts")
	ErrProgramPanic       = errors.New("program panicked")
	ErrHeightMismatch     = errors.New("block height does not follow last commit")
)

// Executor runs blocks against a store. Each transaction is atomic:
// either all of its account writes are staged or none are. Staged
// writes of a block become visible together on Commit.
type Executor struct {
	store    *store.Store
	programs *guest.Registry
	guard    *BlockGuard
	log      *zap.Logger

	// Held between ExecuteBlock and Commit.
	staged *overlay
}

// New creates an executor over st that runs programs from programs.
func New(st *store.Store, programs *guest.Registry, log *zap.Logger) *Executor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Executor{
		store:    st,
		programs: programs,
		guard:    NewBlockGuard(),
		log:      log,
	}
}

// overlay is the uncommitted state of a block in progress.
type overlay struct {
	height   types.BlockHeight
	accounts map[types.AccountID]types.Account
	programs map[types.ProgramID][]byte
	receipts []types.Receipt
}

func newOverlay(h types.BlockHeight) *overlay {
	return &overlay{
		height:   h,
		accounts: make(map[types.AccountID]types.Account),
		programs: make(map[types.ProgramID][]byte),
	}
}

// ExecuteBlock executes every transaction of block and stages the
// result. Rejected transactions get a receipt and no writes. Commit
// must follow before the next ExecuteBlock.
func (e *Executor) ExecuteBlock(ctx context.Context, block Block) (BlockOutcome, error) {
	e.guard.AcquireExecute()

	last, err := e.store.Height()
	if err != nil {
		e.guard.FailExecute()
		return BlockOutcome{}, err
	}
	if block.Height != last+1 {
		e.guard.FailExecute()
		return BlockOutcome{}, fmt.Errorf("%w: got %d, last %d", ErrHeightMismatch, block.Height, last)
	}

	ov := newOverlay(block.Height)
	for _, t := range block.Txs {
		if err := ctx.Err(); err != nil {
			e.guard.FailExecute()
			return BlockOutcome{}, err
		}
		r := types.Receipt{TxHash: t.Hash, Status: types.TxExecuted, Height: block.Height}
		if err := e.apply(ctx, ov, t); err != nil {
			r.Status = types.TxRejected
			r.Reason = err.Error()
			e.log.Debug("Transaction rejected",
				zap.String("kind", t.Kind()),
				zap.Stringer("tx", t.Hash),
				zap.Error(err))
		}
		ov.receipts = append(ov.receipts, r)
	}

	e.staged = ov
	e.guard.CompleteExecute()
	return BlockOutcome{Height: block.Height, Receipts: ov.receipts}, nil
}

// Commit persists the staged block and returns its height.
func (e *Executor) Commit(_ context.Context) (types.BlockHeight, error) {
	e.guard.AcquireCommit()
	defer e.guard.CompleteCommit()

	ov := e.staged
	e.staged = nil

	b := e.store.NewBatch()
	if err := writeOverlay(b, ov); err != nil {
		b.Cancel()
		return 0, err
	}
	if err := b.Commit(); err != nil {
		return 0, fmt.Errorf("commit block %d: %w", ov.height, err)
	}
	return ov.height, nil
}

func writeOverlay(b *store.Batch, ov *overlay) error {
	for id, acc := range ov.accounts {
		if err := b.PutAccount(id, acc); err != nil {
			return err
		}
	}
	for id, code := range ov.programs {
		if err := b.PutProgram(id, code); err != nil {
			return err
		}
	}
	for _, r := range ov.receipts {
		if err := b.PutReceipt(r); err != nil {
			return err
		}
	}
	return b.SetHeight(ov.height)
}

// State returns the block state machine's current state.
func (e *Executor) State() string { return e.guard.State() }

func (e *Executor) apply(ctx context.Context, ov *overlay, t Tx) error {
	if t.Deploy != nil {
		return e.deploy(ov, *t.Deploy)
	}
	if t.Invoke == nil {
		return seqtest.NewValidationError("execute", errors.New("empty transaction"))
	}
	writes, err := e.invoke(ctx, ov, *t.Invoke)
	if err != nil {
		return err
	}
	for id, acc := range writes {
		ov.accounts[id] = acc
	}
	return nil
}

func (e *Executor) deploy(ov *overlay, t types.ProgramDeploymentTransaction) error {
	p, err := program.New(t.Message.Bytecode)
	if err != nil {
		return err
	}
	deployed, err := e.deployed(ov, p.ID())
	if err != nil {
		return err
	}
	if deployed {
		return fmt.Errorf("%w: %s", ErrProgramExists, p.ID())
	}
	ov.programs[p.ID()] = p.Bytecode()
	e.log.Info("Program deployed",
		zap.Stringer("program", p.ID()),
		zap.String("name", e.programs.Name(p.ID())),
		zap.Int("size", p.Size()))
	return nil
}

func (e *Executor) deployed(ov *overlay, id types.ProgramID) (bool, error) {
	if _, ok := ov.programs[id]; ok {
		return true, nil
	}
	return e.store.HasProgram(id)
}

func (e *Executor) account(ov *overlay, id types.AccountID) (types.Account, error) {
	if acc, ok := ov.accounts[id]; ok {
		return acc.Clone(), nil
	}
	return e.store.Account(id)
}

// invoke runs a public transaction and returns the account writes it
// produces. Nothing is written on error.
func (e *Executor) invoke(ctx context.Context, ov *overlay, t types.PublicTransaction) (map[types.AccountID]types.Account, error) {
	msg := t.Message
	if len(msg.AccountIDs) == 0 {
		return nil, seqtest.NewValidationError("execute", tx.ErrNoAccounts)
	}
	seen := make(map[types.AccountID]bool, len(msg.AccountIDs))
	for _, id := range msg.AccountIDs {
		if seen[id] {
			return nil, seqtest.NewValidationError("execute", fmt.Errorf("%w: %s", ErrDuplicateAccount, id))
		}
		seen[id] = true
	}
	if err := tx.VerifyWitnesses(t); err != nil {
		return nil, err
	}

	deployed, err := e.deployed(ov, msg.ProgramID)
	if err != nil {
		return nil, err
	}
	if !deployed {
		return nil, fmt.Errorf("%w: %s", ErrProgramNotDeployed, msg.ProgramID)
	}
	logic, err := e.programs.Lookup(msg.ProgramID)
	if err != nil {
		return nil, err
	}

	authorized := tx.AuthorizedAccounts(t)
	pre := make([]types.AccountWithMetadata, len(msg.AccountIDs))
	for i, id := range msg.AccountIDs {
		acc, err := e.account(ov, id)
		if err != nil {
			return nil, err
		}
		pre[i] = types.AccountWithMetadata{AccountID: id, Account: acc, IsAuthorized: authorized[id]}
	}

	post, err := run(ctx, logic, guest.Input{
		ProgramID:   msg.ProgramID,
		PreStates:   pre,
		Instruction: msg.Instruction,
	})
	if err != nil {
		return nil, err
	}
	if len(post) != len(pre) {
		return nil, fmt.Errorf("%w: %d post states, %d accounts", ErrPostStateCount, len(post), len(pre))
	}

	writes := make(map[types.AccountID]types.Account, len(pre))
	for i, p := range pre {
		acc, tr, err := ownership.ApplyTransition(p.Account, post[i], msg.ProgramID)
		if err != nil {
			return nil, err
		}
		if tr == ownership.TransitionNone {
			continue
		}
		e.log.Debug("Account transition",
			zap.Stringer("account", p.AccountID),
			zap.Stringer("program", msg.ProgramID),
			zap.Stringer("transition", tr))
		writes[p.AccountID] = acc
	}
	return writes, nil
}

// run calls the program and turns a panic into an error.
func run(ctx context.Context, logic guest.Program, in guest.Input) (post []types.AccountPostState, err error) {
	defer func() {
		if r := recover(); r != nil {
			post, err = nil, fmt.Errorf("%w: %v", ErrProgramPanic, r)
		}
	}()
	return logic.Run(ctx, in)
}
