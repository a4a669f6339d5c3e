package seqgrpc

import "github.com/blockberries/seqtest/types"

// Transport-specific wrapper types for RPC methods whose interface
// signatures don't map to a single request/response struct.

// InfoRequest is the (empty) request for GetInfo.
type InfoRequest struct{}

// InfoResponse describes the remote engine.
type InfoResponse struct {
	// Set when the engine serves GetReceipt.
	Receipts bool `cramberry:"1"`
	// Block interval in nanoseconds, 0 if unknown.
	BlockTimeNanos int64 `cramberry:"2"`
}

// AccountRequest wraps the parameter of Sequencer.Account.
type AccountRequest struct {
	AccountID types.AccountID `cramberry:"1"`
}

// LastBlockRequest is the (empty) request for GetLastBlock.
type LastBlockRequest struct{}

// LastBlockResponse wraps the return value of Sequencer.LastBlockHeight.
type LastBlockResponse struct {
	Height types.BlockHeight `cramberry:"1"`
}

// ReceiptRequest wraps the parameter of ReceiptReader.Receipt.
type ReceiptRequest struct {
	TxHash types.Hash `cramberry:"1"`
}
