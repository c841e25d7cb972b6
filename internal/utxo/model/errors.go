package model

import "errors"

var (
	// ErrStorage marks a failure of the index storage engine (I/O, corruption).
	ErrStorage = errors.New("index storage failure")
	// ErrSerialization marks a stored index record that does not have its expected shape.
	ErrSerialization = errors.New("malformed index record")
	// ErrChainData marks a block or transaction the chain reader could not resolve.
	ErrChainData = errors.New("chain data unavailable")
	// ErrTransactionNotFound is wrapped together with ErrChainData when the chain does not know a txid.
	ErrTransactionNotFound = errors.New("transaction not found")
	// ErrNotYetIndexed means the transaction exists on chain but its block has not been scanned yet.
	// Callers should retry later.
	ErrNotYetIndexed = errors.New("transaction not yet indexed")
)
