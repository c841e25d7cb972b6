// Package chain defines the read-only view of the block chain shared by the scanner and the query engine.
package chain

import (
	"context"
	"iter"
	"math"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// Reader is read-only access to an immutable, linear block sequence.
type Reader interface {
	// BlockCount returns the number of blocks, i.e. the tip height plus one.
	BlockCount(ctx context.Context) (uint64, error)
	// Blocks yields blocks in height order for heights in [from, to).
	Blocks(ctx context.Context, from, to uint64) iter.Seq2[*Block, error]
	// TransactionTopology returns a transaction with the outpoints its inputs reference.
	TransactionTopology(ctx context.Context, txid chainhash.Hash) (*Transaction, error)
	// ConnectedTransaction returns a transaction whose inputs carry the value and script they spend.
	ConnectedTransaction(ctx context.Context, txid chainhash.Hash) (*ConnectedTransaction, error)
	// BlockHeader returns the header of the block at height.
	BlockHeader(ctx context.Context, height uint64) (*BlockHeader, error)
}

// Block is a block with its transactions in block order.
type Block struct {
	Height       uint64
	Hash         chainhash.Hash
	Timestamp    time.Time
	Transactions []Transaction
}

// BlockHeader carries the header fields the index needs.
type BlockHeader struct {
	Height    uint64
	Hash      chainhash.Hash
	Timestamp time.Time
}

// Transaction is the topology of a transaction: which outputs its inputs consume and what it creates.
type Transaction struct {
	TxID    chainhash.Hash
	Inputs  []Input
	Outputs []Output
}

// Input references a previous output.
type Input struct {
	PreviousOutPoint wire.OutPoint
}

// Output is a created output.
type Output struct {
	Value    uint64
	PkScript []byte
}

// ConnectedTransaction is a transaction whose inputs are resolved against the outputs they spend.
// Coinbase transactions have no connected inputs.
type ConnectedTransaction struct {
	TxID     chainhash.Hash
	Coinbase bool
	Inputs   []ConnectedInput
	Outputs  []Output
}

// ConnectedInput is an input annotated with the spent output's value and script.
type ConnectedInput struct {
	PreviousOutPoint wire.OutPoint
	Value            uint64
	PkScript         []byte
}

// IsCoinbase reports whether the transaction has the single null-outpoint input of a coinbase.
func (t *Transaction) IsCoinbase() bool {
	return len(t.Inputs) == 1 && IsNullOutPoint(t.Inputs[0].PreviousOutPoint)
}

// IsNullOutPoint reports whether op is the outpoint referenced by coinbase inputs.
func IsNullOutPoint(op wire.OutPoint) bool {
	return op.Index == math.MaxUint32 && op.Hash == (chainhash.Hash{})
}
