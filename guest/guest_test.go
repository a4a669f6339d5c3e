package guest

import (
	"context"
	"testing"

	"github.com/near/borsh-go"
	"github.com/stretchr/testify/require"

	"github.com/blockberries/seqtest"
	"github.com/blockberries/seqtest/program"
	"github.com/blockberries/seqtest/types"
)

var noop = ProgramFunc(func(_ context.Context, in Input) ([]types.AccountPostState, error) {
	out := make([]types.AccountPostState, len(in.PreStates))
	for i, pre := range in.PreStates {
		out[i] = types.NewPostState(pre.Account)
	}
	return out, nil
})

func TestDecode(t *testing.T) {
	_, err := Decode[struct{}](nil)
	require.NoError(t, err)

	type set struct {
		Value uint64
	}
	data, err := borsh.Serialize(set{Value: 7})
	require.NoError(t, err)
	got, err := Decode[set](data)
	require.NoError(t, err)
	require.Equal(t, uint64(7), got.Value)

	_, err = Decode[set](nil)
	require.Error(t, err)
}

func TestSingle(t *testing.T) {
	_, err := Single(Input{})
	require.ErrorIs(t, err, ErrAccountCount)

	pre := types.AccountWithMetadata{AccountID: types.NewAccountID(1)}
	got, err := Single(Input{PreStates: []types.AccountWithMetadata{pre}})
	require.NoError(t, err)
	require.Equal(t, pre.AccountID, got.AccountID)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	code := program.BuildImage([]byte("noop"))

	id, err := r.Register("noop", code, noop)
	require.NoError(t, err)
	want, err := program.Identity(code)
	require.NoError(t, err)
	require.Equal(t, want, id)

	logic, err := r.Lookup(id)
	require.NoError(t, err)
	require.NotNil(t, logic)
	require.Equal(t, "noop", r.Name(id))
	require.Equal(t, []string{"noop"}, r.Names())

	_, err = r.Register("again", code, noop)
	require.ErrorIs(t, err, ErrAlreadyRegistered)

	_, err = r.Lookup(types.ProgramID{9})
	require.ErrorIs(t, err, ErrUnknownProgram)
}

func TestRegistry_InvalidBytecode(t *testing.T) {
	_, err := NewRegistry().Register("bad", []byte("bad"), noop)
	_, ok := seqtest.IsParse(err)
	require.True(t, ok)

	require.Panics(t, func() { NewRegistry().MustRegister("bad", nil, noop) })
}
