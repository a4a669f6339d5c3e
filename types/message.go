package types

import (
	"crypto/sha256"
	"fmt"

	"github.com/blockberries/cramberry/pkg/cramberry"
)

// Message names the program to run, the accounts it reads and
// writes, the accounts that must authorize it and the serialized
// instruction handed to the program.
type Message struct {
	ProgramID   ProgramID   `cramberry:"1"`
	AccountIDs  []AccountID `cramberry:"2"`
	SignerIDs   []AccountID `cramberry:"3"`
	Instruction []byte      `cramberry:"4"`
}

// Digest is the hash every witness signs.
func (m Message) Digest() (Hash, error) {
	return hashOf(m)
}

// Witness is a signer's proof of authorization over a message digest.
type Witness struct {
	PublicKey [32]byte `cramberry:"1"`
	Signature [64]byte `cramberry:"2"`
}

// WitnessSet carries one witness per message signer, in signer order.
// An empty set marks an unsigned invocation.
type WitnessSet struct {
	Witnesses []Witness `cramberry:"1"`
}

// Unsigned reports whether the set carries no witnesses.
func (w WitnessSet) Unsigned() bool { return len(w.Witnesses) == 0 }

func hashOf(v any) (Hash, error) {
	data, err := cramberry.Marshal(v)
	if err != nil {
		return Hash{}, fmt.Errorf("cramberry marshal: %w", err)
	}
	return Hash(sha256.Sum256(data)), nil
}
