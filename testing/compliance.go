package seqtesttest

import (
	"testing"

	"github.com/blockberries/seqtest/program"
	"github.com/blockberries/seqtest/types"
)

// RunOwnershipSuite runs the account ownership compliance suite
// against program logic that takes a single account and claims it on
// first use, such as the double example.
//
// The factory function should return the program under test; each
// subtest runs it on a fresh engine. instruction is passed on every
// invocation.
func RunOwnershipSuite(t *testing.T, factory func() Program, instruction any) {
	t.Helper()

	setup := func(t *testing.T, extra ...Program) (*Harness, types.ProgramID) {
		t.Helper()
		p := factory()
		reg, err := Registry(append([]Program{p}, extra...)...)
		if err != nil {
			t.Fatalf("registry: %v", err)
		}
		h := NewHarness(t, reg)
		id := h.Deploy(p.Bytecode)
		for _, e := range extra {
			h.Deploy(e.Bytecode)
		}
		return h, id
	}
	account := types.NewAccountID(1)
	accounts := []types.AccountID{account}

	t.Run("default_account_read", func(t *testing.T) {
		h, _ := setup(t)
		acc := h.Account(account)
		if !acc.ProgramOwner.IsDefault() {
			t.Errorf("untouched account has owner %s", acc.ProgramOwner)
		}
		if len(acc.Data) != 0 {
			t.Errorf("untouched account has %d bytes of data", len(acc.Data))
		}
	})

	t.Run("first_invocation_claims", func(t *testing.T) {
		h, id := setup(t)
		h.MustExecute(id, accounts, instruction)
		if got := h.Account(account).ProgramOwner; got != id {
			t.Errorf("expected owner %s, got %s", id, got)
		}
	})

	t.Run("subsequent_invocations_keep_owner", func(t *testing.T) {
		h, id := setup(t)
		for i := 0; i < 3; i++ {
			h.MustExecute(id, accounts, instruction)
			if got := h.Account(account).ProgramOwner; got != id {
				t.Fatalf("invocation %d: expected owner %s, got %s", i+1, id, got)
			}
		}
	})

	t.Run("foreign_program_cannot_mutate", func(t *testing.T) {
		stomp := Stomp()
		h, id := setup(t, stomp)
		h.MustExecute(id, accounts, instruction)
		before := h.Account(account)

		h.MustReject(stomp.ID(), accounts, nil)
		after := h.Account(account)
		if !after.Equal(before) {
			t.Errorf("foreign write landed: before %+v, after %+v", before, after)
		}
	})

	t.Run("does_not_take_claimed_account", func(t *testing.T) {
		squatter := Claimer()
		squatter.Name = "squatter"
		squatter.Bytecode = program.BuildImage([]byte("seqtest fixture: squatter"))
		h, id := setup(t, squatter)
		h.MustExecute(squatter.ID(), accounts, nil)

		h.Invoke(id, accounts, instruction)
		if got := h.Account(account).ProgramOwner; got != squatter.ID() {
			t.Errorf("owner changed from %s to %s", squatter.ID(), got)
		}
	})

	t.Run("deterministic", func(t *testing.T) {
		h1, id := setup(t)
		h2, _ := setup(t)
		for i := 0; i < 3; i++ {
			h1.Invoke(id, accounts, instruction)
			h2.Invoke(id, accounts, instruction)
			if a, b := h1.Account(account), h2.Account(account); !a.Equal(b) {
				t.Fatalf("invocation %d: non-deterministic: %+v != %+v", i+1, a, b)
			}
		}
	})
}
