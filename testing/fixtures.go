package seqtesttest

import (
	"context"

	"github.com/blockberries/seqtest/example/double"
	"github.com/blockberries/seqtest/guest"
	"github.com/blockberries/seqtest/program"
	"github.com/blockberries/seqtest/types"
)

// Program bundles what an engine needs to run a program: its
// bytecode and the logic bound to it.
type Program struct {
	Name     string
	Bytecode []byte
	Logic    guest.Program
}

// ID returns the program id of the bytecode.
func (p Program) ID() types.ProgramID {
	id, err := program.Identity(p.Bytecode)
	if err != nil {
		panic("seqtesttest: fixture " + p.Name + " has invalid bytecode: " + err.Error())
	}
	return id
}

// Register binds p in reg.
func (p Program) Register(reg *guest.Registry) (types.ProgramID, error) {
	return reg.Register(p.Name, p.Bytecode, p.Logic)
}

// Double is the example double program.
func Double() Program {
	return Program{Name: double.Name, Bytecode: double.Bytecode(), Logic: double.Program{}}
}

// Stomp overwrites the data of every account it is given with 0xff
// and never claims. Against an account another program owns it must
// be rejected.
func Stomp() Program {
	return Program{
		Name:     "stomp",
		Bytecode: program.BuildImage([]byte("seqtest fixture: stomp")),
		Logic: guest.ProgramFunc(func(_ context.Context, in guest.Input) ([]types.AccountPostState, error) {
			out := make([]types.AccountPostState, len(in.PreStates))
			for i, pre := range in.PreStates {
				acc := pre.Account.Clone()
				acc.Data = types.Data{0xff}
				out[i] = types.NewPostState(acc)
			}
			return out, nil
		}),
	}
}

// Claimer claims every unclaimed account it is given, marking it
// with a single 0x01 byte, and leaves claimed accounts untouched.
func Claimer() Program {
	return Program{
		Name:     "claimer",
		Bytecode: program.BuildImage([]byte("seqtest fixture: claimer")),
		Logic: guest.ProgramFunc(func(_ context.Context, in guest.Input) ([]types.AccountPostState, error) {
			out := make([]types.AccountPostState, len(in.PreStates))
			for i, pre := range in.PreStates {
				if !pre.Account.ProgramOwner.IsDefault() {
					out[i] = types.NewPostState(pre.Account)
					continue
				}
				acc := pre.Account.Clone()
				acc.Data = types.Data{0x01}
				out[i] = types.NewClaimedPostState(acc)
			}
			return out, nil
		}),
	}
}

// Registry returns a registry holding progs.
func Registry(progs ...Program) (*guest.Registry, error) {
	reg := guest.NewRegistry()
	for _, p := range progs {
		if _, err := p.Register(reg); err != nil {
			return nil, err
		}
	}
	return reg, nil
}
