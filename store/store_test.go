package store

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/blockberries/seqtest/types"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, s.Close()) })
	return s
}

func TestStore_DefaultReads(t *testing.T) {
	s := newStore(t)

	acc, err := s.Account(types.NewAccountID(1))
	require.NoError(t, err)
	require.True(t, acc.IsDefault())

	h, err := s.Height()
	require.NoError(t, err)
	require.Zero(t, h)

	ok, err := s.HasProgram(types.ProgramID{1})
	require.NoError(t, err)
	require.False(t, ok)

	_, ok, err = s.Receipt(types.Hash{1})
	require.NoError(t, err)
	require.False(t, ok)
}

func TestStore_BatchCommit(t *testing.T) {
	s := newStore(t)
	id := types.NewAccountID(1)
	acc := types.Account{ProgramOwner: types.ProgramID{7}, Data: types.Data{1, 2, 3}}
	receipt := types.Receipt{TxHash: types.Hash{5}, Status: types.TxExecuted, Height: 1}

	b := s.NewBatch()
	require.NoError(t, b.PutAccount(id, acc))
	require.NoError(t, b.PutProgram(types.ProgramID{7}, []byte("code")))
	require.NoError(t, b.PutReceipt(receipt))
	require.NoError(t, b.SetHeight(1))

	// Nothing is visible before commit.
	got, err := s.Account(id)
	require.NoError(t, err)
	require.True(t, got.IsDefault())

	require.NoError(t, b.Commit())

	got, err = s.Account(id)
	require.NoError(t, err)
	require.True(t, got.Equal(acc))

	code, ok, err := s.Program(types.ProgramID{7})
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("code"), code)

	r, ok, err := s.Receipt(receipt.TxHash)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, receipt, r)

	h, err := s.Height()
	require.NoError(t, err)
	require.Equal(t, types.BlockHeight(1), h)
}

func TestStore_Cancel(t *testing.T) {
	s := newStore(t)
	b := s.NewBatch()
	require.NoError(t, b.SetHeight(9))
	b.Cancel()

	h, err := s.Height()
	require.NoError(t, err)
	require.Zero(t, h)
}

func TestStore_Reopen(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)
	b := s.NewBatch()
	require.NoError(t, b.SetHeight(3))
	require.NoError(t, b.Commit())
	require.NoError(t, s.Close())

	s, err = Open(dir)
	require.NoError(t, err)
	defer s.Close()
	h, err := s.Height()
	require.NoError(t, err)
	require.Equal(t, types.BlockHeight(3), h)
}
