// Package ed25519 provides the signing keys behind message witnesses.
package ed25519

import (
	"crypto/ed25519"
	"errors"
	"io"

	"github.com/hdevalence/ed25519consensus"

	"github.com/blockberries/seqtest/types"
)

type (
	PublicKey  [ed25519.PublicKeySize]byte
	PrivateKey [ed25519.PrivateKeySize]byte
	Signature  [ed25519.SignatureSize]byte
)

// Signatures are checked with ZIP-215 validity rules
// (https://zips.z.cash/zip-0215) so that every engine agrees on the
// verdict for the same witness.
const (
	PublicKeyLen  = ed25519.PublicKeySize
	PrivateKeyLen = ed25519.PrivateKeySize
	// PrivateKeySeedLen is the seed prefix of a PrivateKey
	// (privateKey = seed|publicKey).
	PrivateKeySeedLen = ed25519.SeedSize
	SignatureLen      = ed25519.SignatureSize
)

var (
	EmptyPrivateKey = [ed25519.PrivateKeySize]byte{}

	ErrInvalidSeed = errors.New("invalid ed25519 seed length")
)

// GeneratePrivateKey returns a new random PrivateKey.
func GeneratePrivateKey() (PrivateKey, error) {
	return generate(nil)
}

// GenerateFrom reads the key seed from r. Tests use a deterministic
// reader to get stable signer accounts.
func GenerateFrom(r io.Reader) (PrivateKey, error) {
	return generate(r)
}

func generate(r io.Reader) (PrivateKey, error) {
	_, k, err := ed25519.GenerateKey(r)
	if err != nil {
		return EmptyPrivateKey, err
	}
	return PrivateKey(k), nil
}

// PrivateKeyFromSeed derives the key for a 32-byte seed.
func PrivateKeyFromSeed(seed []byte) (PrivateKey, error) {
	if len(seed) != PrivateKeySeedLen {
		return EmptyPrivateKey, ErrInvalidSeed
	}
	return PrivateKey(ed25519.NewKeyFromSeed(seed)), nil
}

// PublicKey returns the public half of p, the last 32 bytes of p.
func (p PrivateKey) PublicKey() PublicKey {
	return PublicKey(p[PrivateKeySeedLen:])
}

// AccountID returns the signer account controlled by p.
func (p PrivateKey) AccountID() types.AccountID {
	return p.PublicKey().AccountID()
}

// AccountID returns the signer account controlled by the key.
func (p PublicKey) AccountID() types.AccountID {
	return types.AccountIDFromPublicKey(p)
}

// Sign returns a signature for msg using pk.
func Sign(msg []byte, pk PrivateKey) Signature {
	return Signature(ed25519.Sign(pk[:], msg))
}

// Verify reports whether s is a valid signature of msg by p.
func Verify(msg []byte, p PublicKey, s Signature) bool {
	return ed25519consensus.Verify(p[:], msg, s[:])
}

// Batch verifies several signatures at once.
type Batch struct {
	bv ed25519consensus.BatchVerifier
}

// NewBatch preallocates a batch verifier for size signatures.
func NewBatch(size int) *Batch {
	return &Batch{bv: ed25519consensus.NewPreallocatedBatchVerifier(size)}
}

func (b *Batch) Add(msg []byte, p PublicKey, s Signature) {
	b.bv.Add(p[:], msg, s[:])
}

// Verify reports whether every added signature is valid.
func (b *Batch) Verify() bool {
	return b.bv.Verify()
}
