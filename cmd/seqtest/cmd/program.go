package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/blockberries/seqtest/example/double"
	"github.com/blockberries/seqtest/guest"
	"github.com/blockberries/seqtest/program"
)

// builtins returns the programs the reference engine can run.
func builtins() (*guest.Registry, error) {
	reg := guest.NewRegistry()
	if _, err := double.Register(reg); err != nil {
		return nil, err
	}
	return reg, nil
}

var programCmd = &cobra.Command{
	Use:   "program",
	Short: "Inspect and export program artifacts",
	RunE: func(*cobra.Command, []string) error {
		return ErrMissingSubcommand
	},
}

var programIDCmd = &cobra.Command{
	Use:   "id [path]",
	Short: "Print the program id of an artifact",
	PreRunE: func(_ *cobra.Command, args []string) error {
		if len(args) != 1 {
			return ErrInvalidArgs
		}
		return nil
	},
	RunE: func(_ *cobra.Command, args []string) error {
		p, err := program.Load(resolveArtifact(args[0]))
		if err != nil {
			return err
		}
		fmt.Println(p.ID())
		return nil
	},
}

var programExportCmd = &cobra.Command{
	Use:   "export [dir]",
	Short: "Write <name>.bin for every built-in program",
	PreRunE: func(_ *cobra.Command, args []string) error {
		if len(args) > 1 {
			return ErrInvalidArgs
		}
		return nil
	},
	RunE: func(_ *cobra.Command, args []string) error {
		dir := cfg.Programs
		if len(args) == 1 {
			dir = args[0]
		}
		if dir == "" {
			return fmt.Errorf("%w: no output directory", ErrInvalidArgs)
		}
		reg, err := builtins()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
		for _, name := range reg.Names() {
			bytecode, ok := builtinBytecode(name)
			if !ok {
				continue
			}
			path := filepath.Join(dir, name+".bin")
			if err := os.WriteFile(path, bytecode, 0o644); err != nil {
				return err
			}
			color.Green("wrote %s", path)
		}
		return nil
	},
}

func builtinBytecode(name string) ([]byte, bool) {
	switch name {
	case double.Name:
		return double.Bytecode(), true
	default:
		return nil, false
	}
}

func init() {
	programCmd.AddCommand(programIDCmd, programExportCmd)
}

// resolveArtifact maps a bare program name to <programs>/<name>.bin.
// Anything that looks like a path is returned as is.
func resolveArtifact(arg string) string {
	if filepath.Ext(arg) != "" || filepath.Base(arg) != arg || cfg.Programs == "" {
		return arg
	}
	return filepath.Join(cfg.Programs, arg+".bin")
}
