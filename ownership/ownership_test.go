package ownership

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/blockberries/seqtest"
	"github.com/blockberries/seqtest/types"
)

var (
	progP = types.ProgramID{0xaa}
	progQ = types.ProgramID{0xbb}
)

func owned(p types.ProgramID, data ...byte) types.Account {
	return types.Account{ProgramOwner: p, Data: data}
}

func TestStateOf(t *testing.T) {
	require.Equal(t, Unclaimed{}, StateOf(types.DefaultAccount()))
	require.Equal(t, ClaimedBy{Program: progP}, StateOf(owned(progP)))
	require.Equal(t, Unclaimed{}, Claimed(types.DefaultProgramID))
	require.True(t, IsOwnedBy(owned(progP), progP))
	require.False(t, IsOwnedBy(owned(progP), progQ))
	require.False(t, IsOwnedBy(types.DefaultAccount(), types.DefaultProgramID))
}

func TestPostStateFor(t *testing.T) {
	post := owned(types.DefaultProgramID, 1)
	require.True(t, PostStateFor(types.DefaultAccount(), post).IsClaim())

	post = owned(progP, 2)
	ps := PostStateFor(owned(progP, 1), post)
	require.False(t, ps.IsClaim())
	require.Equal(t, post, ps.Account)
}

func TestApply(t *testing.T) {
	tests := []struct {
		name       string
		pre        types.Account
		post       types.AccountPostState
		executing  types.ProgramID
		want       types.Account
		transition Transition
		err        error
	}{
		{
			name:       "claim unclaimed",
			pre:        types.DefaultAccount(),
			post:       types.NewClaimedPostState(owned(types.DefaultProgramID, 1)),
			executing:  progP,
			want:       owned(progP, 1),
			transition: TransitionClaim,
		},
		{
			name:       "claim unclaimed without data",
			pre:        types.DefaultAccount(),
			post:       types.NewClaimedPostState(types.DefaultAccount()),
			executing:  progP,
			want:       owned(progP),
			transition: TransitionClaim,
		},
		{
			name:       "owner updates own account",
			pre:        owned(progP, 1),
			post:       types.NewPostState(owned(progP, 2)),
			executing:  progP,
			want:       owned(progP, 2),
			transition: TransitionUpdate,
		},
		{
			name:       "unchanged unclaimed update",
			pre:        types.DefaultAccount(),
			post:       types.NewPostState(types.DefaultAccount()),
			executing:  progP,
			want:       types.DefaultAccount(),
			transition: TransitionNone,
		},
		{
			name:       "foreign read-only touch",
			pre:        owned(progP, 1),
			post:       types.NewPostState(owned(progP, 1)),
			executing:  progQ,
			want:       owned(progP, 1),
			transition: TransitionNone,
		},
		{
			name:      "unclaimed mutation without claim",
			pre:       types.DefaultAccount(),
			post:      types.NewPostState(owned(types.DefaultProgramID, 1)),
			executing: progP,
			err:       ErrUnclaimedMutation,
		},
		{
			name:      "claim on claimed",
			pre:       owned(progP, 1),
			post:      types.NewClaimedPostState(owned(progP, 2)),
			executing: progP,
			err:       ErrAlreadyClaimed,
		},
		{
			name:      "foreign program mutation",
			pre:       owned(progP, 1),
			post:      types.NewPostState(owned(progP, 2)),
			executing: progQ,
			err:       ErrNotOwner,
		},
		{
			name:      "owner field rewrite",
			pre:       types.DefaultAccount(),
			post:      types.NewPostState(owned(progP)),
			executing: progP,
			err:       ErrOwnerRewrite,
		},
		{
			name:      "owner field rewrite on claimed",
			pre:       owned(progP, 1),
			post:      types.NewPostState(owned(progQ, 1)),
			executing: progQ,
			err:       ErrOwnerRewrite,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, tr, err := ApplyTransition(tt.pre, tt.post, tt.executing)
			if tt.err != nil {
				require.ErrorIs(t, err, tt.err)
				_, ok := seqtest.IsValidation(err)
				require.True(t, ok)
				require.True(t, got.Equal(tt.pre))
				return
			}
			require.NoError(t, err)
			require.True(t, got.Equal(tt.want), "got %+v want %+v", got, tt.want)
			require.Equal(t, tt.transition, tr)
		})
	}
}

func TestApply_OversizeData(t *testing.T) {
	big := make(types.Data, types.MaxDataLen+1)
	_, err := Apply(owned(progP), types.NewPostState(owned(progP, big...)), progP)
	require.ErrorIs(t, err, types.ErrDataTooLarge)
}

func TestApply_ResultDoesNotAlias(t *testing.T) {
	post := owned(types.DefaultProgramID, 1, 2, 3)
	got, err := Apply(types.DefaultAccount(), types.NewClaimedPostState(post), progP)
	require.NoError(t, err)
	post.Data[0] = 9
	require.Equal(t, types.Data{1, 2, 3}, got.Data)
}

// Once an account is claimed, no sequence of post states moves it to
// another owner or back to Unclaimed.
func TestApply_ClaimIsPermanent(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		programs := []types.ProgramID{progP, progQ, {0xcc}}
		acc := types.DefaultAccount()
		var owner types.ProgramID

		steps := rapid.IntRange(1, 30).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			exec := programs[rapid.IntRange(0, len(programs)-1).Draw(rt, "exec")]
			data := rapid.SliceOfN(rapid.Byte(), 0, 8).Draw(rt, "data")
			post := types.Account{ProgramOwner: acc.ProgramOwner, Data: data}

			var ps types.AccountPostState
			if rapid.Bool().Draw(rt, "tagByEntry") {
				ps = PostStateFor(acc, post)
			} else if rapid.Bool().Draw(rt, "claim") {
				ps = types.NewClaimedPostState(post)
			} else {
				ps = types.NewPostState(post)
			}

			next, err := Apply(acc, ps, exec)
			if err != nil {
				require.True(rt, next.Equal(acc))
				continue
			}
			if owner.IsDefault() && !next.ProgramOwner.IsDefault() {
				owner = next.ProgramOwner
				require.Equal(rt, exec, owner)
			}
			if !owner.IsDefault() {
				require.Equal(rt, owner, next.ProgramOwner)
			}
			acc = next
		}
	})
}
