// Package types defines the data model shared by the sequencer
// client boundary, the transaction builder and the reference engine.
//
// These are plain Go structs with cramberry struct tags for
// deterministic binary serialization. Transport concerns
// (gRPC codec registration) are handled in the transport packages.
package types

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Hash is a 32-byte cryptographic hash.
type Hash [32]byte

// String returns the hex encoding of the hash.
func (h Hash) String() string { return hex.EncodeToString(h[:]) }

// AccountID is an opaque account identifier chosen by the caller.
// It is never derived from account contents.
type AccountID [32]byte

// NewAccountID returns an AccountID with every byte set to b.
// Handy for fixtures: NewAccountID(1) is 0x0101...01.
func NewAccountID(b byte) AccountID {
	var id AccountID
	for i := range id {
		id[i] = b
	}
	return id
}

// String returns the hex encoding of the account id.
func (id AccountID) String() string { return hex.EncodeToString(id[:]) }

// AccountIDFromHex parses a 64-character hex string.
func AccountIDFromHex(s string) (AccountID, error) {
	var id AccountID
	if err := decodeHex32(s, id[:]); err != nil {
		return AccountID{}, fmt.Errorf("account id: %w", err)
	}
	return id, nil
}

const accountDomain = "seqtest/account/v1"

// AccountIDFromPublicKey derives the account id controlled by a
// signing key. Signer accounts are the only derived account ids.
func AccountIDFromPublicKey(pub [32]byte) AccountID {
	h := sha256.New()
	h.Write([]byte(accountDomain))
	h.Write([]byte{0x00})
	h.Write(pub[:])
	var id AccountID
	copy(id[:], h.Sum(nil))
	return id
}

// ProgramID identifies a program by the hash of its bytecode.
type ProgramID [32]byte

// DefaultProgramID is the sentinel owner of an account that no
// program has claimed yet.
var DefaultProgramID = ProgramID{}

// IsDefault reports whether id is the unclaimed sentinel.
func (id ProgramID) IsDefault() bool { return id == DefaultProgramID }

// String returns the hex encoding of the program id.
func (id ProgramID) String() string { return hex.EncodeToString(id[:]) }

// ProgramIDFromHex parses a 64-character hex string.
func ProgramIDFromHex(s string) (ProgramID, error) {
	var id ProgramID
	if err := decodeHex32(s, id[:]); err != nil {
		return ProgramID{}, fmt.Errorf("program id: %w", err)
	}
	return id, nil
}

func decodeHex32(s string, dst []byte) error {
	b, err := hex.DecodeString(s)
	if err != nil {
		return err
	}
	if len(b) != len(dst) {
		return fmt.Errorf("expected %d bytes, got %d", len(dst), len(b))
	}
	copy(dst, b)
	return nil
}
