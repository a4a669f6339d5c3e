package seqtesttest_test

import (
	"testing"

	"github.com/blockberries/seqtest/crypto/ed25519"
	"github.com/blockberries/seqtest/example/double"
	seqtesttest "github.com/blockberries/seqtest/testing"
	"github.com/blockberries/seqtest/types"
)

func TestHarness_Double(t *testing.T) {
	reg, err := seqtesttest.Registry(seqtesttest.Double())
	if err != nil {
		t.Fatal(err)
	}
	h := seqtesttest.NewHarness(t, reg)
	pid := h.Deploy(double.Bytecode())

	account := []types.AccountID{types.NewAccountID(1)}
	for _, want := range []uint64{1, 2, 4, 8} {
		h.MustExecute(pid, account, double.Instruction{})
		if got, _ := double.Value(h.Account(account[0])); got != want {
			t.Fatalf("value %d, want %d", got, want)
		}
	}
	if got := h.Sequencer().MempoolLen(); got != 0 {
		t.Errorf("mempool has %d txs left", got)
	}
}

func TestHarness_SignedInvocation(t *testing.T) {
	reg, err := seqtesttest.Registry(seqtesttest.Double())
	if err != nil {
		t.Fatal(err)
	}
	h := seqtesttest.NewHarness(t, reg)
	pid := h.Deploy(double.Bytecode())

	key, err := ed25519.GeneratePrivateKey()
	if err != nil {
		t.Fatal(err)
	}
	account := []types.AccountID{key.AccountID()}
	h.MustExecute(pid, account, double.Instruction{}, key)
	if got := h.Account(account[0]).ProgramOwner; got != pid {
		t.Errorf("owner %s, want %s", got, pid)
	}
}

func TestHarness_UndeployedProgramRejected(t *testing.T) {
	reg, err := seqtesttest.Registry(seqtesttest.Double())
	if err != nil {
		t.Fatal(err)
	}
	h := seqtesttest.NewHarness(t, reg)
	r := h.MustReject(double.ID(), []types.AccountID{types.NewAccountID(1)}, double.Instruction{})
	if r.Reason == "" {
		t.Error("rejection without reason")
	}
}
