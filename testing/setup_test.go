package seqtesttest_test

import (
	"context"
	"testing"
	"time"

	"github.com/blockberries/seqtest/example/double"
	seqtesttest "github.com/blockberries/seqtest/testing"
	"github.com/blockberries/seqtest/types"
)

func runDoubleScenario(t *testing.T, c *seqtesttest.Context) {
	t.Helper()
	pid := c.DeployProgram(double.Name)
	if pid != double.ID() {
		t.Fatalf("deployed id %s, want %s", pid, double.ID())
	}
	c.WaitForBlock()

	account := c.Accounts[0]
	if acc := c.Account(account); !acc.IsDefault() {
		t.Fatalf("fresh account is not default: %+v", acc)
	}

	for i, want := range []uint64{1, 2, 4} {
		c.SendUnsigned(pid, []types.AccountID{account}, double.Instruction{})
		c.WaitForBlock()

		acc := c.Account(account)
		got, err := double.Value(acc)
		if err != nil {
			t.Fatalf("invocation %d: %v", i+1, err)
		}
		if got != want {
			t.Fatalf("invocation %d: value %d, want %d", i+1, got, want)
		}
		if acc.ProgramOwner != pid {
			t.Fatalf("invocation %d: owner %s, want %s", i+1, acc.ProgramOwner, pid)
		}
	}

	// Accounts the program never saw stay untouched.
	if acc := c.Account(c.Accounts[1]); !acc.IsDefault() {
		t.Errorf("unrelated account changed: %+v", acc)
	}
}

func TestDouble_OverGRPC(t *testing.T) {
	if testing.Short() {
		t.Skip("runs real blocks")
	}
	c := seqtesttest.Setup(t)
	runDoubleScenario(t, c)
}

func TestDouble_InProcess(t *testing.T) {
	if testing.Short() {
		t.Skip("runs real blocks")
	}
	c := seqtesttest.Setup(t, seqtesttest.InProcess(), seqtesttest.WithBlockTime(50*time.Millisecond))
	runDoubleScenario(t, c)
}

func TestSetup_Accounts(t *testing.T) {
	c := seqtesttest.Setup(t, seqtesttest.InProcess())
	seen := make(map[types.AccountID]bool)
	for i, id := range c.Accounts {
		if id[0] != byte(i+1) || id[31] != byte(i+1) {
			t.Errorf("account %d = %s", i, id)
		}
		if seen[id] {
			t.Errorf("account %d repeats %s", i, id)
		}
		seen[id] = true
	}
}

func TestSetup_ConfirmReportsRejection(t *testing.T) {
	if testing.Short() {
		t.Skip("runs real blocks")
	}
	stomp := seqtesttest.Stomp()
	c := seqtesttest.Setup(t, seqtesttest.WithProgram(stomp), seqtesttest.WithBlockTime(50*time.Millisecond))

	pid := c.DeployProgram(double.Name)
	sid := c.DeployProgram(stomp.Name)
	c.WaitForBlock()

	account := []types.AccountID{c.Accounts[2]}
	c.SendUnsigned(pid, account, double.Instruction{})
	c.WaitForBlock()

	ack := c.SendUnsigned(sid, account, nil)
	r, err := c.Client.Confirm(context.Background(), ack)
	if err == nil {
		t.Fatalf("foreign write confirmed: %+v", r)
	}
	if r.Status != types.TxRejected {
		t.Fatalf("status %s, want rejected", r.Status)
	}
	if got, _ := double.Value(c.Account(account[0])); got != 1 {
		t.Errorf("value %d after rejected write, want 1", got)
	}
}
