package types

import "fmt"

// PostStateKind tags how a program wants its output account committed.
type PostStateKind uint8

const (
	// PostStateUpdate commits the account with ownership as given.
	PostStateUpdate PostStateKind = 1
	// PostStateClaim asks the engine to make the executing program
	// the owner of a currently unclaimed account.
	PostStateClaim PostStateKind = 2
)

func (k PostStateKind) String() string {
	switch k {
	case PostStateUpdate:
		return "update"
	case PostStateClaim:
		return "claim"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

// AccountPostState is an account snapshot produced by a program,
// tagged with the commit semantics it requests.
type AccountPostState struct {
	Account Account       `cramberry:"1"`
	Kind    PostStateKind `cramberry:"2"`
}

// NewPostState tags acc as a plain update.
func NewPostState(acc Account) AccountPostState {
	return AccountPostState{Account: acc, Kind: PostStateUpdate}
}

// NewClaimedPostState tags acc as a claim.
func NewClaimedPostState(acc Account) AccountPostState {
	return AccountPostState{Account: acc, Kind: PostStateClaim}
}

// IsClaim reports whether the post state requests a claim.
func (p AccountPostState) IsClaim() bool { return p.Kind == PostStateClaim }
