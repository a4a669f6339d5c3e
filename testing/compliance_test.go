package seqtesttest_test

import (
	"testing"

	"github.com/blockberries/seqtest/example/double"
	seqtesttest "github.com/blockberries/seqtest/testing"
)

func TestDoubleOwnershipCompliance(t *testing.T) {
	seqtesttest.RunOwnershipSuite(t, seqtesttest.Double, double.Instruction{})
}

func TestClaimerOwnershipCompliance(t *testing.T) {
	seqtesttest.RunOwnershipSuite(t, seqtesttest.Claimer, nil)
}
