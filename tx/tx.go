// Package tx builds the transactions the protocol submits: program
// deployments and public invocations with their witness sets.
package tx

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/near/borsh-go"

	"github.com/blockberries/seqtest"
	"github.com/blockberries/seqtest/crypto/ed25519"
	"github.com/blockberries/seqtest/program"
	"github.com/blockberries/seqtest/types"
)

var (
	ErrNoAccounts       = errors.New("message names no accounts")
	ErrMissingSigner    = errors.New("no key for declared signer")
	ErrWitnessCount     = errors.New("witness count does not match signers")
	ErrWitnessSigner    = errors.New("witness key does not match signer")
	ErrInvalidSignature = errors.New("invalid witness signature")
)

// Deployment validates bytecode and wraps it in a deployment
// transaction. The returned id is what the engine will register the
// program under.
func Deployment(bytecode []byte) (types.ProgramDeploymentTransaction, types.ProgramID, error) {
	p, err := program.New(bytecode)
	if err != nil {
		return types.ProgramDeploymentTransaction{}, types.ProgramID{}, err
	}
	return types.NewProgramDeploymentTransaction(p.Bytecode()), p.ID(), nil
}

// NewMessage assembles an invocation message. The instruction is
// borsh-encoded; a nil instruction or struct{}{} encodes to no bytes.
func NewMessage(
	programID types.ProgramID,
	accountIDs []types.AccountID,
	signerIDs []types.AccountID,
	instruction any,
) (types.Message, error) {
	if len(accountIDs) == 0 {
		return types.Message{}, seqtest.NewValidationError("new message", ErrNoAccounts)
	}
	data, err := EncodeInstruction(instruction)
	if err != nil {
		return types.Message{}, seqtest.NewValidationError("new message", err)
	}
	return types.Message{
		ProgramID:   programID,
		AccountIDs:  append([]types.AccountID(nil), accountIDs...),
		SignerIDs:   append([]types.AccountID(nil), signerIDs...),
		Instruction: data,
	}, nil
}

// EncodeInstruction serializes an instruction payload.
func EncodeInstruction(instruction any) ([]byte, error) {
	if isNil(instruction) {
		return nil, nil
	}
	if raw, ok := instruction.([]byte); ok {
		return append([]byte(nil), raw...), nil
	}
	data, err := borsh.Serialize(instruction)
	if err != nil {
		return nil, fmt.Errorf("encode instruction: %w", err)
	}
	return data, nil
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Slice, reflect.Map, reflect.Chan, reflect.Func:
		return rv.IsNil()
	}
	return false
}

// WitnessSetFor signs the message digest once per declared signer, in
// signer order. Keys may be passed in any order.
func WitnessSetFor(msg types.Message, keys ...ed25519.PrivateKey) (types.WitnessSet, error) {
	if len(msg.SignerIDs) == 0 {
		return types.WitnessSet{}, nil
	}
	byAccount := make(map[types.AccountID]ed25519.PrivateKey, len(keys))
	for _, k := range keys {
		byAccount[k.AccountID()] = k
	}
	digest, err := msg.Digest()
	if err != nil {
		return types.WitnessSet{}, err
	}

	ws := types.WitnessSet{Witnesses: make([]types.Witness, 0, len(msg.SignerIDs))}
	for _, signer := range msg.SignerIDs {
		k, ok := byAccount[signer]
		if !ok {
			return types.WitnessSet{}, seqtest.NewValidationError("witness set",
				fmt.Errorf("%w: %s", ErrMissingSigner, signer))
		}
		ws.Witnesses = append(ws.Witnesses, types.Witness{
			PublicKey: k.PublicKey(),
			Signature: ed25519.Sign(digest[:], k),
		})
	}
	return ws, nil
}

// Invocation builds a public transaction signed by signers. With no
// signers the transaction is unsigned.
func Invocation(
	programID types.ProgramID,
	accountIDs []types.AccountID,
	instruction any,
	signers ...ed25519.PrivateKey,
) (types.PublicTransaction, error) {
	signerIDs := make([]types.AccountID, 0, len(signers))
	for _, s := range signers {
		signerIDs = append(signerIDs, s.AccountID())
	}
	msg, err := NewMessage(programID, accountIDs, signerIDs, instruction)
	if err != nil {
		return types.PublicTransaction{}, err
	}
	ws, err := WitnessSetFor(msg, signers...)
	if err != nil {
		return types.PublicTransaction{}, err
	}
	return types.NewPublicTransaction(msg, ws), nil
}

// VerifyWitnesses checks that every declared signer carries a valid
// witness over the message digest.
func VerifyWitnesses(t types.PublicTransaction) error {
	msg := t.Message
	if len(t.WitnessSet.Witnesses) != len(msg.SignerIDs) {
		return seqtest.NewValidationError("verify witnesses",
			fmt.Errorf("%w: %d witnesses, %d signers", ErrWitnessCount,
				len(t.WitnessSet.Witnesses), len(msg.SignerIDs)))
	}
	if len(msg.SignerIDs) == 0 {
		return nil
	}
	digest, err := msg.Digest()
	if err != nil {
		return seqtest.NewValidationError("verify witnesses", err)
	}

	batch := ed25519.NewBatch(len(msg.SignerIDs))
	for i, w := range t.WitnessSet.Witnesses {
		pub := ed25519.PublicKey(w.PublicKey)
		if pub.AccountID() != msg.SignerIDs[i] {
			return seqtest.NewValidationError("verify witnesses",
				fmt.Errorf("%w: position %d", ErrWitnessSigner, i))
		}
		batch.Add(digest[:], pub, ed25519.Signature(w.Signature))
	}
	if !batch.Verify() {
		return seqtest.NewValidationError("verify witnesses", ErrInvalidSignature)
	}
	return nil
}

// AuthorizedAccounts returns the accounts that carry a witness.
// Call it only after VerifyWitnesses succeeded.
func AuthorizedAccounts(t types.PublicTransaction) map[types.AccountID]bool {
	out := make(map[types.AccountID]bool, len(t.Message.SignerIDs))
	for _, id := range t.Message.SignerIDs {
		out[id] = true
	}
	return out
}
