package seqtest

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTimeoutError(t *testing.T) {
	err := &TimeoutError{Initial: 10, Stalled: 10, Timeout: 2 * time.Second}
	require.Contains(t, err.Error(), "stuck at block 10")
	require.Contains(t, err.Error(), "2s")
}

func TestIsTimeout_Wrapped(t *testing.T) {
	inner := &TimeoutError{Initial: 3, Stalled: 3, Timeout: time.Second}
	wrapped := fmt.Errorf("wait for deploy: %w", inner)

	got, ok := IsTimeout(wrapped)
	require.True(t, ok)
	require.Same(t, inner, got)
}

func TestIsTimeout_NotTimeout(t *testing.T) {
	_, ok := IsTimeout(errors.New("something else"))
	require.False(t, ok)

	_, ok = IsTimeout(nil)
	require.False(t, ok)
}

func TestIOError_KeepsCause(t *testing.T) {
	err := &IOError{Path: "double.bin", Err: fs.ErrNotExist}
	require.ErrorIs(t, err, fs.ErrNotExist)

	got, ok := IsIO(fmt.Errorf("deploy: %w", err))
	require.True(t, ok)
	require.Equal(t, "double.bin", got.Path)

	_, ok = IsParse(err)
	require.False(t, ok)
}

func TestParseError_Message(t *testing.T) {
	err := &ParseError{Reason: "not an ELF file"}
	require.Equal(t, "parse program: not an ELF file", err.Error())

	cause := errors.New("bad magic")
	err = &ParseError{Reason: "not an ELF file", Err: cause}
	require.ErrorIs(t, err, cause)
}

func TestValidationAndNetworkAreDistinct(t *testing.T) {
	sentinel := errors.New("empty account list")
	v := NewValidationError("new message", sentinel)
	n := NewNetworkError("submit invocation", errors.New("connection refused"))

	_, ok := IsValidation(v)
	require.True(t, ok)
	_, ok = IsNetwork(v)
	require.False(t, ok)

	_, ok = IsNetwork(n)
	require.True(t, ok)
	_, ok = IsValidation(n)
	require.False(t, ok)

	require.ErrorIs(t, v, sentinel)
}
