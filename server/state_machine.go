// Package server executes blocks of transactions against engine
// state and enforces the execute/commit ordering of block production.
package server

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// blockState represents a state in the block production state machine.
type blockState uint32

const (
	// stateReady: waiting for the next block. ExecuteBlock is the
	// only valid sequential call.
	stateReady blockState = iota
	// stateExecuting: ExecuteBlock has been called. Waiting for it
	// to return.
	stateExecuting
	// stateExecuted: ExecuteBlock returned and its writes are staged.
	// Commit is the only valid next sequential call.
	stateExecuted
	// stateCommitting: Commit has been called. Waiting for it
	// to return.
	stateCommitting
)

func (s blockState) String() string {
	switch s {
	case stateReady:
		return "Ready"
	case stateExecuting:
		return "Executing"
	case stateExecuted:
		return "Executed"
	case stateCommitting:
		return "Committing"
	default:
		return fmt.Sprintf("unknown(%d)", s)
	}
}

// BlockGuard enforces the block state machine. Reads never go
// through the guard; only ExecuteBlock and Commit do.
type BlockGuard struct {
	state atomic.Uint32
	// Held for the duration of a sequential call.
	seqMu sync.Mutex
}

// NewBlockGuard creates a guard in the Ready state.
func NewBlockGuard() *BlockGuard {
	g := &BlockGuard{}
	g.state.Store(uint32(stateReady))
	return g
}

// State returns the current state name.
func (g *BlockGuard) State() string {
	return blockState(g.state.Load()).String()
}

// AcquireExecute transitions Ready → Executing.
// Blocks if another sequential operation is in progress.
// Panics if not in Ready state.
func (g *BlockGuard) AcquireExecute() {
	g.seqMu.Lock()
	if state := blockState(g.state.Load()); state != stateReady {
		g.seqMu.Unlock()
		panic(fmt.Sprintf("seqtest: ExecuteBlock called in state %s (expected Ready)", state))
	}
	g.state.Store(uint32(stateExecuting))
}

// CompleteExecute transitions Executing → Executed.
func (g *BlockGuard) CompleteExecute() {
	g.state.Store(uint32(stateExecuted))
	g.seqMu.Unlock()
}

// FailExecute transitions Executing → Ready on error, allowing retry.
func (g *BlockGuard) FailExecute() {
	g.state.Store(uint32(stateReady))
	g.seqMu.Unlock()
}

// AcquireCommit transitions Executed → Committing.
// Panics if not in Executed state.
func (g *BlockGuard) AcquireCommit() {
	g.seqMu.Lock()
	if state := blockState(g.state.Load()); state != stateExecuted {
		g.seqMu.Unlock()
		panic(fmt.Sprintf("seqtest: Commit called in state %s (expected Executed)", state))
	}
	g.state.Store(uint32(stateCommitting))
}

// CompleteCommit transitions Committing → Ready.
func (g *BlockGuard) CompleteCommit() {
	g.state.Store(uint32(stateReady))
	g.seqMu.Unlock()
}

// IsReady returns true if the guard is in the Ready state.
func (g *BlockGuard) IsReady() bool {
	return blockState(g.state.Load()) == stateReady
}
