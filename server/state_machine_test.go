package server

import (
	"testing"
)

func TestBlockGuard_HappyPath(t *testing.T) {
	g := NewBlockGuard()
	if !g.IsReady() {
		t.Fatal("expected Ready on creation")
	}

	// Ready → Executing → Executed
	g.AcquireExecute()
	if g.State() != "Executing" {
		t.Fatalf("expected Executing, got %s", g.State())
	}
	g.CompleteExecute()

	// Executed → Committing → Ready
	g.AcquireCommit()
	g.CompleteCommit()

	if !g.IsReady() {
		t.Fatal("expected Ready after commit")
	}

	// Should be able to cycle again.
	g.AcquireExecute()
	g.CompleteExecute()
	g.AcquireCommit()
	g.CompleteCommit()

	if !g.IsReady() {
		t.Fatal("expected Ready after second cycle")
	}
}

func TestBlockGuard_FailExecute(t *testing.T) {
	g := NewBlockGuard()
	g.AcquireExecute()
	g.FailExecute()

	if !g.IsReady() {
		t.Fatal("expected Ready after failed execute")
	}
	// Retry is allowed.
	g.AcquireExecute()
	g.CompleteExecute()
}

func TestBlockGuard_CommitWithoutExecute(t *testing.T) {
	g := NewBlockGuard()

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic for Commit in Ready state")
		}
	}()

	g.AcquireCommit()
}

func TestBlockGuard_DoubleExecute(t *testing.T) {
	g := NewBlockGuard()
	g.AcquireExecute()
	g.CompleteExecute()

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic for ExecuteBlock in Executed state")
		}
	}()

	g.AcquireExecute()
}

func TestBlockState_String(t *testing.T) {
	if got := blockState(42).String(); got != "unknown(42)" {
		t.Errorf("unexpected string %q", got)
	}
}
