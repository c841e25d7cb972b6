package chain

import (
	"fmt"

	"github.com/btcsuite/btcd/wire"
	"github.com/goodnatureofminers/coinindex/pkg/safe"
)

// NewTransaction converts a wire transaction into its topology.
func NewTransaction(msg *wire.MsgTx) (Transaction, error) {
	tx := Transaction{
		TxID:    msg.TxHash(),
		Inputs:  make([]Input, 0, len(msg.TxIn)),
		Outputs: make([]Output, 0, len(msg.TxOut)),
	}
	for _, in := range msg.TxIn {
		tx.Inputs = append(tx.Inputs, Input{PreviousOutPoint: in.PreviousOutPoint})
	}
	for idx, out := range msg.TxOut {
		value, err := safe.Uint64(out.Value)
		if err != nil {
			return Transaction{}, fmt.Errorf("tx %s output %d value: %w", tx.TxID, idx, err)
		}
		tx.Outputs = append(tx.Outputs, Output{Value: value, PkScript: out.PkScript})
	}
	return tx, nil
}

// NewBlock converts a wire block at height into a Block.
func NewBlock(height uint64, msg *wire.MsgBlock) (*Block, error) {
	block := &Block{
		Height:       height,
		Hash:         msg.BlockHash(),
		Timestamp:    msg.Header.Timestamp.UTC(),
		Transactions: make([]Transaction, 0, len(msg.Transactions)),
	}
	for _, msgTx := range msg.Transactions {
		tx, err := NewTransaction(msgTx)
		if err != nil {
			return nil, fmt.Errorf("block %d: %w", height, err)
		}
		block.Transactions = append(block.Transactions, tx)
	}
	return block, nil
}
