// Package guest defines the program logic the reference engine runs
// for deployed bytecode.
//
// The reference engine does not interpret RISC-V. A deployed program
// is executed by the Go logic registered for its bytecode identity;
// deploying bytecode with no registered logic succeeds, but invoking
// it is rejected.
package guest

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/near/borsh-go"

	"github.com/blockberries/seqtest/program"
	"github.com/blockberries/seqtest/types"
)

var (
	ErrUnknownProgram    = errors.New("no logic registered for program")
	ErrAlreadyRegistered = errors.New("program already registered")
	ErrAccountCount      = errors.New("unexpected number of accounts")
)

// Input is what a program sees when invoked.
type Input struct {
	ProgramID   types.ProgramID
	PreStates   []types.AccountWithMetadata
	Instruction []byte
}

// Program is the logic behind deployed bytecode. Run returns one post
// state per pre state, in the same order. It must not keep references
// to the input after returning.
type Program interface {
	Run(ctx context.Context, in Input) ([]types.AccountPostState, error)
}

// ProgramFunc adapts a function to Program.
type ProgramFunc func(ctx context.Context, in Input) ([]types.AccountPostState, error)

func (f ProgramFunc) Run(ctx context.Context, in Input) ([]types.AccountPostState, error) {
	return f(ctx, in)
}

// Decode reads a borsh-encoded instruction. Empty data decodes to the
// zero value of zero-sized types such as struct{}.
func Decode[T any](data []byte) (T, error) {
	var v T
	if len(data) == 0 {
		if t := reflect.TypeOf(v); t == nil || t.Size() == 0 {
			return v, nil
		}
	}
	if err := borsh.Deserialize(&v, data); err != nil {
		return v, fmt.Errorf("decode instruction: %w", err)
	}
	return v, nil
}

// Single returns the only pre state of in.
func Single(in Input) (types.AccountWithMetadata, error) {
	if len(in.PreStates) != 1 {
		return types.AccountWithMetadata{}, fmt.Errorf("%w: want 1, got %d", ErrAccountCount, len(in.PreStates))
	}
	return in.PreStates[0], nil
}

// Registry binds program identities to their logic. It is safe for
// concurrent use.
type Registry struct {
	mu       sync.RWMutex
	programs map[types.ProgramID]entry
}

type entry struct {
	name  string
	logic Program
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{programs: make(map[types.ProgramID]entry)}
}

// Register validates bytecode and binds its identity to logic.
func (r *Registry) Register(name string, bytecode []byte, logic Program) (types.ProgramID, error) {
	p, err := program.New(bytecode)
	if err != nil {
		return types.ProgramID{}, err
	}
	id := p.ID()

	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.programs[id]; ok {
		return id, fmt.Errorf("%w: %s as %q", ErrAlreadyRegistered, id, e.name)
	}
	r.programs[id] = entry{name: name, logic: logic}
	return id, nil
}

// MustRegister is Register that panics on error. For wiring fixed
// programs at startup.
func (r *Registry) MustRegister(name string, bytecode []byte, logic Program) types.ProgramID {
	id, err := r.Register(name, bytecode, logic)
	if err != nil {
		panic(fmt.Sprintf("guest: register %s: %v", name, err))
	}
	return id
}

// Lookup returns the logic bound to id.
func (r *Registry) Lookup(id types.ProgramID) (Program, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.programs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProgram, id)
	}
	return e.logic, nil
}

// Name returns the registered name of id, or "" if unknown.
func (r *Registry) Name(id types.ProgramID) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.programs[id].name
}

// Names lists registered program names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.programs))
	for _, e := range r.programs {
		out = append(out, e.name)
	}
	sort.Strings(out)
	return out
}
