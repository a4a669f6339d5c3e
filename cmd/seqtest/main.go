// "seqtest" runs a reference sequencer and drives transactions
// against one.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"

	"github.com/blockberries/seqtest/cmd/seqtest/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s %+v\n", color.RedString("seqtest exited with error:"), err)
		os.Exit(1)
	}
	os.Exit(0)
}
