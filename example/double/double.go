// Package double implements a minimal program that claims the account
// it is invoked on and doubles a counter stored in it.
//
// Account data format: 8 bytes, little-endian uint64. The first call
// on an empty account stores 1; every later call doubles the value.
// The program takes exactly one account and an empty instruction.
package double

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/blockberries/seqtest/guest"
	"github.com/blockberries/seqtest/ownership"
	"github.com/blockberries/seqtest/program"
	"github.com/blockberries/seqtest/types"
)

// Name is the program's registry and artifact name.
const Name = "double"

// Instruction is the (empty) instruction the program accepts.
type Instruction = struct{}

// ErrNotU64 is returned when the account holds data that is not an
// 8-byte counter.
var ErrNotU64 = errors.New("account data is not a valid u64")

// Compile-time interface check.
var _ guest.Program = Program{}

var text = []byte("seqtest example program: double v1")

// Bytecode returns the program's executable image.
func Bytecode() []byte {
	return program.BuildImage(text)
}

var id = sync.OnceValue(func() types.ProgramID {
	pid, err := program.Identity(Bytecode())
	if err != nil {
		panic(fmt.Sprintf("double: invalid bytecode: %v", err))
	}
	return pid
})

// ID returns the program id of Bytecode().
func ID() types.ProgramID { return id() }

// Register binds the program to its bytecode in r.
func Register(r *guest.Registry) (types.ProgramID, error) {
	return r.Register(Name, Bytecode(), Program{})
}

// Program is the double logic.
type Program struct{}

func (Program) Run(_ context.Context, in guest.Input) ([]types.AccountPostState, error) {
	if _, err := guest.Decode[Instruction](in.Instruction); err != nil {
		return nil, err
	}
	pre, err := guest.Single(in)
	if err != nil {
		return nil, err
	}

	value := uint64(1)
	if len(pre.Account.Data) > 0 {
		v, err := Value(pre.Account)
		if err != nil {
			return nil, err
		}
		value = v * 2
	}

	post := pre.Account.Clone()
	post.Data = Encode(value)
	return []types.AccountPostState{ownership.PostStateFor(pre.Account, post)}, nil
}

// Value decodes the counter stored in acc.
func Value(acc types.Account) (uint64, error) {
	if len(acc.Data) != 8 {
		return 0, fmt.Errorf("%w: %d bytes", ErrNotU64, len(acc.Data))
	}
	return binary.LittleEndian.Uint64(acc.Data), nil
}

// Encode returns the account data for value.
func Encode(value uint64) types.Data {
	buf := make(types.Data, 8)
	binary.LittleEndian.PutUint64(buf, value)
	return buf
}
