// Package ownership models who may write an account and how a program
// takes an unclaimed account for itself.
//
// An account is either Unclaimed (owner is the sentinel) or
// ClaimedBy a program. Programs never write the owner field directly;
// they tag their post states, and the engine applies the tag with
// Apply. Once claimed, an account stays claimed by the same program.
package ownership

import (
	"errors"
	"fmt"

	"github.com/blockberries/seqtest"
	"github.com/blockberries/seqtest/types"
)

var (
	// ErrOwnerRewrite is returned when a post state carries a program
	// owner different from the pre state.
	ErrOwnerRewrite = errors.New("program owner rewritten by program")
	// ErrUnclaimedMutation is returned when a program changes the data
	// of an unclaimed account without claiming it.
	ErrUnclaimedMutation = errors.New("data of unclaimed account changed without claim")
	// ErrAlreadyClaimed is returned for a claim on a claimed account.
	ErrAlreadyClaimed = errors.New("account already claimed")
	// ErrNotOwner is returned when a program changes the data of an
	// account claimed by another program.
	ErrNotOwner = errors.New("account claimed by another program")
)

// State is the ownership state of an account. It is either
// Unclaimed or ClaimedBy.
type State interface {
	fmt.Stringer
	ownershipState()
}

// Unclaimed is the state of an account whose owner is the sentinel.
type Unclaimed struct{}

// ClaimedBy is the state of an account owned by Program.
type ClaimedBy struct {
	Program types.ProgramID
}

func (Unclaimed) ownershipState() {}
func (ClaimedBy) ownershipState() {}

func (Unclaimed) String() string   { return "Unclaimed" }
func (c ClaimedBy) String() string { return "ClaimedBy(" + c.Program.String() + ")" }

// StateOf classifies an account.
func StateOf(acc types.Account) State {
	if acc.ProgramOwner.IsDefault() {
		return Unclaimed{}
	}
	return ClaimedBy{Program: acc.ProgramOwner}
}

// Claimed returns the ClaimedBy state for id. The sentinel yields
// Unclaimed.
func Claimed(id types.ProgramID) State {
	if id.IsDefault() {
		return Unclaimed{}
	}
	return ClaimedBy{Program: id}
}

// IsOwnedBy reports whether acc is claimed by program.
func IsOwnedBy(acc types.Account, program types.ProgramID) bool {
	c, ok := StateOf(acc).(ClaimedBy)
	return ok && c.Program == program
}

// PostStateFor tags post for commit. The decision looks only at the
// entry state: an unclaimed entry is claimed, anything else is a
// plain update.
func PostStateFor(entry, post types.Account) types.AccountPostState {
	if _, ok := StateOf(entry).(Unclaimed); ok {
		return types.NewClaimedPostState(post)
	}
	return types.NewPostState(post)
}

// Transition names what Apply did to an account.
type Transition uint8

const (
	// TransitionNone: account unchanged.
	TransitionNone Transition = iota
	// TransitionClaim: Unclaimed became ClaimedBy(executing).
	TransitionClaim
	// TransitionUpdate: owner kept, data changed.
	TransitionUpdate
)

func (t Transition) String() string {
	switch t {
	case TransitionNone:
		return "none"
	case TransitionClaim:
		return "claim"
	case TransitionUpdate:
		return "update"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
}

// Apply commits post over pre on behalf of the executing program and
// returns the resulting account. Every rejection is a
// *seqtest.ValidationError wrapping one of the Err values above.
func Apply(pre types.Account, post types.AccountPostState, executing types.ProgramID) (types.Account, error) {
	acc, _, err := ApplyTransition(pre, post, executing)
	return acc, err
}

// ApplyTransition is Apply that also reports the transition taken.
func ApplyTransition(pre types.Account, post types.AccountPostState, executing types.ProgramID) (types.Account, Transition, error) {
	if post.Account.ProgramOwner != pre.ProgramOwner {
		return pre, TransitionNone, reject(fmt.Errorf("%w: %s -> %s", ErrOwnerRewrite,
			pre.ProgramOwner, post.Account.ProgramOwner))
	}
	if len(post.Account.Data) > types.MaxDataLen {
		return pre, TransitionNone, reject(types.ErrDataTooLarge)
	}
	changed := !pre.Equal(post.Account)

	switch s := StateOf(pre).(type) {
	case Unclaimed:
		if post.IsClaim() {
			out := post.Account.Clone()
			out.ProgramOwner = executing
			return out, TransitionClaim, nil
		}
		if changed {
			return pre, TransitionNone, reject(ErrUnclaimedMutation)
		}
	case ClaimedBy:
		if post.IsClaim() {
			return pre, TransitionNone, reject(fmt.Errorf("%w by %s", ErrAlreadyClaimed, s.Program))
		}
		if changed && s.Program != executing {
			return pre, TransitionNone, reject(fmt.Errorf("%w: owner %s, executing %s", ErrNotOwner,
				s.Program, executing))
		}
	}
	if !changed {
		return pre, TransitionNone, nil
	}
	return post.Account.Clone(), TransitionUpdate, nil
}

func reject(err error) error {
	return seqtest.NewValidationError("apply post state", err)
}
