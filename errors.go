package seqtest

import (
	"errors"
	"fmt"
	"time"

	"github.com/blockberries/seqtest/types"
)

var (
	// ErrMempoolFull is returned by a submission the engine cannot queue.
	ErrMempoolFull = errors.New("mempool full")
	// ErrClosed is returned by calls on a closed engine or connection.
	ErrClosed = errors.New("sequencer closed")
	// ErrUnknownTx is returned for a receipt of a transaction the
	// engine never saw.
	ErrUnknownTx = errors.New("unknown transaction")
)

// IOError reports that program bytecode could not be read from its source.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("read bytecode %s: %v", e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// ParseError reports bytecode that fails structural validation for
// the execution format.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse program: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("parse program: %s", e.Reason)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ValidationError reports a malformed message or witness set, or a
// state transition the ownership rules forbid.
type ValidationError struct {
	Op  string
	Err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: invalid: %v", e.Op, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// NewValidationError wraps err as a ValidationError for op.
func NewValidationError(op string, err error) *ValidationError {
	return &ValidationError{Op: op, Err: err}
}

// NetworkError reports a transport-level failure talking to the engine.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// NewNetworkError wraps err as a NetworkError for op.
func NewNetworkError(op string, err error) *NetworkError {
	return &NetworkError{Op: op, Err: err}
}

// TimeoutError reports that the block height did not move past
// Initial within Timeout. Stalled is the last height observed.
type TimeoutError struct {
	Initial types.BlockHeight
	Stalled types.BlockHeight
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timed out waiting for new block after %s (stuck at block %d, waiting past %d)",
		e.Timeout, e.Stalled, e.Initial)
}

// IsIO checks whether an error is an IOError and returns it.
func IsIO(err error) (*IOError, bool) { return as[*IOError](err) }

// IsParse checks whether an error is a ParseError and returns it.
func IsParse(err error) (*ParseError, bool) { return as[*ParseError](err) }

// IsValidation checks whether an error is a ValidationError and returns it.
func IsValidation(err error) (*ValidationError, bool) { return as[*ValidationError](err) }

// IsNetwork checks whether an error is a NetworkError and returns it.
func IsNetwork(err error) (*NetworkError, bool) { return as[*NetworkError](err) }

// IsTimeout checks whether an error is a TimeoutError and returns it.
func IsTimeout(err error) (*TimeoutError, bool) { return as[*TimeoutError](err) }

func as[T error](err error) (T, bool) {
	var target T
	if errors.As(err, &target) {
		return target, true
	}
	return target, false
}
