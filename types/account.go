package types

import (
	"bytes"
	"errors"
	"fmt"
)

// MaxDataLen bounds the data an account can hold.
const MaxDataLen = 100 * 1024

// ErrDataTooLarge is returned when account data exceeds MaxDataLen.
var ErrDataTooLarge = errors.New("account data exceeds maximum length")

// Data is the byte payload stored in an account.
type Data []byte

// NewData copies b into a Data value, rejecting oversize payloads.
func NewData(b []byte) (Data, error) {
	if len(b) > MaxDataLen {
		return nil, fmt.Errorf("%w: %d > %d", ErrDataTooLarge, len(b), MaxDataLen)
	}
	d := make(Data, len(b))
	copy(d, b)
	return d, nil
}

// Account is the state the engine keeps for an AccountID.
//
// Accounts are never created explicitly: reading an unknown id
// yields the default account (sentinel owner, empty data).
type Account struct {
	ProgramOwner ProgramID `cramberry:"1"`
	Data         Data      `cramberry:"2"`
}

// DefaultAccount returns the state of a never-touched account.
func DefaultAccount() Account {
	return Account{ProgramOwner: DefaultProgramID}
}

// IsDefault reports whether the account is unclaimed and empty.
func (a Account) IsDefault() bool {
	return a.ProgramOwner.IsDefault() && len(a.Data) == 0
}

// Equal compares owner and data. Nil and empty data are equal.
func (a Account) Equal(o Account) bool {
	return a.ProgramOwner == o.ProgramOwner && bytes.Equal(a.Data, o.Data)
}

// Clone returns a deep copy of the account.
func (a Account) Clone() Account {
	c := Account{ProgramOwner: a.ProgramOwner}
	if len(a.Data) > 0 {
		c.Data = append(Data(nil), a.Data...)
	}
	return c
}

// AccountWithMetadata is the pre-state a program sees for one of
// the accounts named by a message.
type AccountWithMetadata struct {
	AccountID AccountID `cramberry:"1"`
	Account   Account   `cramberry:"2"`
	// Set when the message carries a valid witness for this account.
	IsAuthorized bool `cramberry:"3"`
}
