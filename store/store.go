// Package store persists engine state in pebble: accounts, deployed
// programs, transaction receipts and the last block height.
//
// Values are cramberry-encoded. All writes of a block go through a
// Batch and become visible atomically on Commit.
package store

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/blockberries/cramberry/pkg/cramberry"
	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"

	"github.com/blockberries/seqtest/types"
)

const (
	accountPrefix byte = 0x0
	programPrefix byte = 0x1
	receiptPrefix byte = 0x2
	heightPrefix  byte = 0x3
)

var heightKey = []byte{heightPrefix}

// Store is a pebble-backed state store. Reads are safe for
// concurrent use.
type Store struct {
	db *pebble.DB
	wo *pebble.WriteOptions
}

// Open opens (or creates) a store in dir.
func Open(dir string) (*Store, error) {
	return open(dir, &pebble.Options{})
}

// OpenMemory opens a store that lives in memory only.
func OpenMemory() (*Store, error) {
	return open("", &pebble.Options{FS: vfs.NewMem()})
}

func open(dir string, opts *pebble.Options) (*Store, error) {
	db, err := pebble.Open(dir, opts)
	if err != nil {
		return nil, fmt.Errorf("open pebble: %w", err)
	}
	return &Store{db: db, wo: pebble.Sync}, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

func accountKey(id types.AccountID) []byte {
	k := make([]byte, 1+len(id))
	k[0] = accountPrefix
	copy(k[1:], id[:])
	return k
}

func programKey(id types.ProgramID) []byte {
	k := make([]byte, 1+len(id))
	k[0] = programPrefix
	copy(k[1:], id[:])
	return k
}

func receiptKey(h types.Hash) []byte {
	k := make([]byte, 1+len(h))
	k[0] = receiptPrefix
	copy(k[1:], h[:])
	return k
}

// get returns a copy of the value at key, or ok=false if absent.
func (s *Store) get(key []byte) ([]byte, bool, error) {
	v, closer, err := s.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	ret := make([]byte, len(v))
	copy(ret, v)
	closer.Close()
	return ret, true, nil
}

// Account returns committed account state. Unknown ids read as the
// default account.
func (s *Store) Account(id types.AccountID) (types.Account, error) {
	v, ok, err := s.get(accountKey(id))
	if err != nil {
		return types.Account{}, fmt.Errorf("get account %s: %w", id, err)
	}
	if !ok {
		return types.DefaultAccount(), nil
	}
	var acc types.Account
	if err := cramberry.Unmarshal(v, &acc); err != nil {
		return types.Account{}, fmt.Errorf("decode account %s: %w", id, err)
	}
	return acc, nil
}

// Program returns deployed bytecode for id.
func (s *Store) Program(id types.ProgramID) ([]byte, bool, error) {
	v, ok, err := s.get(programKey(id))
	if err != nil {
		return nil, false, fmt.Errorf("get program %s: %w", id, err)
	}
	return v, ok, nil
}

// HasProgram reports whether id has been deployed.
func (s *Store) HasProgram(id types.ProgramID) (bool, error) {
	_, ok, err := s.Program(id)
	return ok, err
}

// Receipt returns the receipt for a transaction hash.
func (s *Store) Receipt(h types.Hash) (types.Receipt, bool, error) {
	v, ok, err := s.get(receiptKey(h))
	if err != nil || !ok {
		return types.Receipt{}, false, err
	}
	var r types.Receipt
	if err := cramberry.Unmarshal(v, &r); err != nil {
		return types.Receipt{}, false, fmt.Errorf("decode receipt %s: %w", h, err)
	}
	return r, true, nil
}

// Height returns the last committed block height, 0 if none.
func (s *Store) Height() (types.BlockHeight, error) {
	v, ok, err := s.get(heightKey)
	if err != nil || !ok {
		return 0, err
	}
	if len(v) != 8 {
		return 0, fmt.Errorf("corrupt height record: %d bytes", len(v))
	}
	return types.BlockHeight(binary.BigEndian.Uint64(v)), nil
}

// Batch stages writes for one block.
type Batch struct {
	b  *pebble.Batch
	wo *pebble.WriteOptions
}

// NewBatch starts a write batch.
func (s *Store) NewBatch() *Batch {
	return &Batch{b: s.db.NewBatch(), wo: s.wo}
}

func (b *Batch) PutAccount(id types.AccountID, acc types.Account) error {
	v, err := cramberry.Marshal(acc)
	if err != nil {
		return fmt.Errorf("encode account %s: %w", id, err)
	}
	return b.b.Set(accountKey(id), v, nil)
}

func (b *Batch) PutProgram(id types.ProgramID, bytecode []byte) error {
	return b.b.Set(programKey(id), bytecode, nil)
}

func (b *Batch) PutReceipt(r types.Receipt) error {
	v, err := cramberry.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode receipt %s: %w", r.TxHash, err)
	}
	return b.b.Set(receiptKey(r.TxHash), v, nil)
}

func (b *Batch) SetHeight(h types.BlockHeight) error {
	v := make([]byte, 8)
	binary.BigEndian.PutUint64(v, uint64(h))
	return b.b.Set(heightKey, v, nil)
}

// Commit applies the batch atomically.
func (b *Batch) Commit() error { return b.b.Commit(b.wo) }

// Cancel discards the batch.
func (b *Batch) Cancel() { b.b.Close() }
