package types

// BlockHeight is the engine's block counter. Successive
// observations of the same engine never decrease.
type BlockHeight uint64

// SubmitAck is the engine's acknowledgement of a submission. An
// acknowledged transaction is queued, not yet executed.
type SubmitAck struct {
	TxHash Hash   `cramberry:"1"`
	Status string `cramberry:"2"`
}

// TxStatus is the outcome of executing a transaction in a block.
type TxStatus uint8

const (
	TxPending  TxStatus = 0
	TxExecuted TxStatus = 1
	TxRejected TxStatus = 2
)

func (s TxStatus) String() string {
	switch s {
	case TxExecuted:
		return "executed"
	case TxRejected:
		return "rejected"
	default:
		return "pending"
	}
}

// Receipt records what happened to a submitted transaction.
type Receipt struct {
	TxHash Hash        `cramberry:"1"`
	Status TxStatus    `cramberry:"2"`
	Height BlockHeight `cramberry:"3"`
	// Rejection reason; empty unless Status is TxRejected.
	Reason string `cramberry:"4"`
}
