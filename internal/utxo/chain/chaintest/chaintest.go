// Package chaintest provides an in-memory chain.Reader for tests.
package chaintest

import (
	"context"
	"encoding/binary"
	"fmt"
	"iter"
	"math"
	"sync"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/goodnatureofminers/coinindex/internal/utxo/chain"
	"github.com/goodnatureofminers/coinindex/internal/utxo/model"
)

// GenesisTime is the timestamp of the block at height 0; each following block is ten minutes later.
var GenesisTime = time.Unix(1231006505, 0).UTC()

type location struct {
	height uint64
	pos    int
}

// Chain is a linear in-memory chain. It is safe for concurrent use.
type Chain struct {
	mu       sync.RWMutex
	blocks   []*chain.Block
	txs      map[chainhash.Hash]location
	failures map[uint64]error
}

var _ chain.Reader = (*Chain)(nil)

// New returns an empty chain.
func New() *Chain {
	return &Chain{
		txs:      make(map[chainhash.Hash]location),
		failures: make(map[uint64]error),
	}
}

// AddBlock appends a block holding txs at the next height.
func (c *Chain) AddBlock(txs ...*wire.MsgTx) *chain.Block {
	c.mu.Lock()
	defer c.mu.Unlock()

	height := uint64(len(c.blocks))
	block := &chain.Block{
		Height:    height,
		Hash:      chainhash.HashH(binary.BigEndian.AppendUint64(nil, height)),
		Timestamp: GenesisTime.Add(time.Duration(height) * 10 * time.Minute),
	}
	for pos, msg := range txs {
		tx, err := chain.NewTransaction(msg)
		if err != nil {
			panic(fmt.Sprintf("chaintest: block %d tx %d: %v", height, pos, err))
		}
		block.Transactions = append(block.Transactions, tx)
		c.txs[tx.TxID] = location{height: height, pos: pos}
	}
	c.blocks = append(c.blocks, block)
	return block
}

// Fill appends coinbase-only blocks until the chain has count blocks.
func (c *Chain) Fill(count uint64) {
	for {
		c.mu.RLock()
		next := uint64(len(c.blocks))
		c.mu.RUnlock()
		if next >= count {
			return
		}
		c.AddBlock(Coinbase(next, 50_0000_0000))
	}
}

// FailBlock makes iteration return err when it reaches height.
func (c *Chain) FailBlock(height uint64, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures[height] = err
}

// BlockCount implements chain.Reader.
func (c *Chain) BlockCount(context.Context) (uint64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return uint64(len(c.blocks)), nil
}

// Blocks implements chain.Reader.
func (c *Chain) Blocks(ctx context.Context, from, to uint64) iter.Seq2[*chain.Block, error] {
	return func(yield func(*chain.Block, error) bool) {
		for height := from; height < to; height++ {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			c.mu.RLock()
			failure := c.failures[height]
			var block *chain.Block
			if height < uint64(len(c.blocks)) {
				block = c.blocks[height]
			}
			c.mu.RUnlock()

			if failure != nil {
				yield(nil, failure)
				return
			}
			if block == nil {
				yield(nil, fmt.Errorf("%w: block %d beyond tip", model.ErrChainData, height))
				return
			}
			if !yield(block, nil) {
				return
			}
		}
	}
}

// TransactionTopology implements chain.Reader.
func (c *Chain) TransactionTopology(_ context.Context, txid chainhash.Hash) (*chain.Transaction, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	tx, err := c.lookup(txid)
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

// ConnectedTransaction implements chain.Reader.
func (c *Chain) ConnectedTransaction(_ context.Context, txid chainhash.Hash) (*chain.ConnectedTransaction, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	tx, err := c.lookup(txid)
	if err != nil {
		return nil, err
	}

	connected := &chain.ConnectedTransaction{TxID: tx.TxID, Coinbase: tx.IsCoinbase(), Outputs: tx.Outputs}
	if connected.Coinbase {
		return connected, nil
	}
	for _, in := range tx.Inputs {
		prev, err := c.lookup(in.PreviousOutPoint.Hash)
		if err != nil {
			return nil, err
		}
		if int(in.PreviousOutPoint.Index) >= len(prev.Outputs) {
			return nil, fmt.Errorf("%w: %s references missing output", model.ErrChainData, in.PreviousOutPoint)
		}
		out := prev.Outputs[in.PreviousOutPoint.Index]
		connected.Inputs = append(connected.Inputs, chain.ConnectedInput{
			PreviousOutPoint: in.PreviousOutPoint,
			Value:            out.Value,
			PkScript:         out.PkScript,
		})
	}
	return connected, nil
}

// BlockHeader implements chain.Reader.
func (c *Chain) BlockHeader(_ context.Context, height uint64) (*chain.BlockHeader, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if height >= uint64(len(c.blocks)) {
		return nil, fmt.Errorf("%w: block %d beyond tip", model.ErrChainData, height)
	}
	b := c.blocks[height]
	return &chain.BlockHeader{Height: b.Height, Hash: b.Hash, Timestamp: b.Timestamp}, nil
}

func (c *Chain) lookup(txid chainhash.Hash) (chain.Transaction, error) {
	loc, ok := c.txs[txid]
	if !ok {
		return chain.Transaction{}, fmt.Errorf("%w: %w: %s", model.ErrChainData, model.ErrTransactionNotFound, txid)
	}
	return c.blocks[loc.height].Transactions[loc.pos], nil
}

// Coinbase builds a coinbase transaction for height paying values.
func Coinbase(height uint64, values ...int64) *wire.MsgTx {
	tx := wire.NewMsgTx(wire.TxVersion)
	sigScript := binary.LittleEndian.AppendUint64(nil, height)
	tx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(&chainhash.Hash{}, math.MaxUint32), sigScript, nil))
	for idx, value := range values {
		tx.AddTxOut(wire.NewTxOut(value, PayToPubKeyHash(uint32(height), uint32(idx))))
	}
	return tx
}

// NewTx builds a transaction spending inputs and paying each value to its own P2PKH script.
// lockTime keeps otherwise identical transactions distinct.
func NewTx(lockTime uint32, inputs []wire.OutPoint, values ...int64) *wire.MsgTx {
	tx := wire.NewMsgTx(wire.TxVersion)
	tx.LockTime = lockTime
	for i := range inputs {
		tx.AddTxIn(wire.NewTxIn(&inputs[i], nil, nil))
	}
	for idx, value := range values {
		tx.AddTxOut(wire.NewTxOut(value, PayToPubKeyHash(lockTime, uint32(idx))))
	}
	return tx
}

// PayToPubKeyHash returns a P2PKH script whose key hash is derived from seed and index.
func PayToPubKeyHash(seed, index uint32) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint32(buf[:4], seed)
	binary.BigEndian.PutUint32(buf[4:], index)
	hash := chainhash.HashB(buf[:])[:20]

	script, err := txscript.NewScriptBuilder().
		AddOp(txscript.OP_DUP).
		AddOp(txscript.OP_HASH160).
		AddData(hash).
		AddOp(txscript.OP_EQUALVERIFY).
		AddOp(txscript.OP_CHECKSIG).
		Script()
	if err != nil {
		panic(fmt.Sprintf("chaintest: build script: %v", err))
	}
	return script
}

// OutPoint is shorthand for the outpoint of output index of tx.
func OutPoint(tx *wire.MsgTx, index uint32) wire.OutPoint {
	return wire.OutPoint{Hash: tx.TxHash(), Index: index}
}
