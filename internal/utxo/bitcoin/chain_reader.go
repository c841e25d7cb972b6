package bitcoin

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"math"

	"github.com/btcsuite/btcd/btcjson"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/goodnatureofminers/coinindex/internal/utxo/chain"
	"github.com/goodnatureofminers/coinindex/internal/utxo/model"
	"github.com/goodnatureofminers/coinindex/pkg/safe"
	"github.com/goodnatureofminers/coinindex/pkg/workerpool"
)

const (
	defaultFetchWorkers   = 8
	defaultPrefetchWindow = 32
)

// ChainReader implements chain.Reader over a Bitcoin Core node.
type ChainReader struct {
	rpc     RPCClient
	workers int
	window  uint64
}

var _ chain.Reader = (*ChainReader)(nil)

// NewChainReader returns a reader fetching up to workers blocks concurrently. Non-positive
// values fall back to defaults.
func NewChainReader(rpc RPCClient, workers, window int) *ChainReader {
	if workers <= 0 {
		workers = defaultFetchWorkers
	}
	if window <= 0 {
		window = defaultPrefetchWindow
	}
	return &ChainReader{rpc: rpc, workers: workers, window: uint64(window)}
}

// BlockCount returns the tip height plus one.
func (r *ChainReader) BlockCount(ctx context.Context) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	count, err := r.rpc.GetBlockCount()
	if err != nil {
		return 0, chainError(fmt.Errorf("get block count: %w", err))
	}
	tip, err := safe.Uint64(count)
	if err != nil {
		return 0, fmt.Errorf("%w: block count: %w", model.ErrChainData, err)
	}
	return tip + 1, nil
}

// Blocks fetches windows of blocks on a worker pool and yields them strictly in height order.
// Iteration stops after the first error.
func (r *ChainReader) Blocks(ctx context.Context, from, to uint64) iter.Seq2[*chain.Block, error] {
	return func(yield func(*chain.Block, error) bool) {
		for start := from; start < to; start += r.window {
			end := min(start+r.window, to)
			heights := make([]uint64, 0, end-start)
			for height := start; height < end; height++ {
				heights = append(heights, height)
			}

			blocks, err := workerpool.Collect(ctx, r.workers, heights, r.block)
			if err != nil {
				yield(nil, err)
				return
			}
			for _, block := range blocks {
				if !yield(block, nil) {
					return
				}
			}
		}
	}
}

func (r *ChainReader) block(ctx context.Context, height uint64) (*chain.Block, error) {
	hash, err := r.blockHash(ctx, height)
	if err != nil {
		return nil, err
	}
	msg, err := r.rpc.GetBlock(hash)
	if err != nil {
		return nil, chainError(fmt.Errorf("get block %s at height %d: %w", hash, height, err))
	}
	block, err := chain.NewBlock(height, msg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrChainData, err)
	}
	return block, nil
}

func (r *ChainReader) blockHash(ctx context.Context, height uint64) (*chainhash.Hash, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if height > math.MaxInt64 {
		return nil, fmt.Errorf("%w: block height %d exceeds rpc limit", model.ErrChainData, height)
	}
	hash, err := r.rpc.GetBlockHash(int64(height))
	if err != nil {
		return nil, chainError(fmt.Errorf("get block hash at height %d: %w", height, err))
	}
	return hash, nil
}

// TransactionTopology looks txid up on the node.
func (r *ChainReader) TransactionTopology(ctx context.Context, txid chainhash.Hash) (*chain.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tx, err := r.transaction(txid)
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

// ConnectedTransaction resolves every input of txid against the transaction it spends. Distinct
// previous transactions are fetched once, concurrently.
func (r *ChainReader) ConnectedTransaction(ctx context.Context, txid chainhash.Hash) (*chain.ConnectedTransaction, error) {
	tx, err := r.TransactionTopology(ctx, txid)
	if err != nil {
		return nil, err
	}

	connected := &chain.ConnectedTransaction{TxID: tx.TxID, Coinbase: tx.IsCoinbase(), Outputs: tx.Outputs}
	if connected.Coinbase {
		return connected, nil
	}

	seen := make(map[chainhash.Hash]struct{}, len(tx.Inputs))
	prevIDs := make([]chainhash.Hash, 0, len(tx.Inputs))
	for _, in := range tx.Inputs {
		if _, ok := seen[in.PreviousOutPoint.Hash]; ok {
			continue
		}
		seen[in.PreviousOutPoint.Hash] = struct{}{}
		prevIDs = append(prevIDs, in.PreviousOutPoint.Hash)
	}

	prevTxs, err := workerpool.Collect(ctx, r.workers, prevIDs, func(_ context.Context, id chainhash.Hash) (chain.Transaction, error) {
		prevTx, err := r.transaction(id)
		if errors.Is(err, model.ErrTransactionNotFound) {
			return prevTx, fmt.Errorf("%w: previous transaction %s unavailable: %v", model.ErrChainData, id, err)
		}
		return prevTx, err
	})
	if err != nil {
		return nil, fmt.Errorf("resolve inputs of %s: %w", txid, err)
	}
	prev := make(map[chainhash.Hash]chain.Transaction, len(prevTxs))
	for _, p := range prevTxs {
		prev[p.TxID] = p
	}

	connected.Inputs = make([]chain.ConnectedInput, 0, len(tx.Inputs))
	for _, in := range tx.Inputs {
		op := in.PreviousOutPoint
		spent := prev[op.Hash]
		if int(op.Index) >= len(spent.Outputs) {
			return nil, fmt.Errorf("%w: %s spends missing output %s", model.ErrChainData, txid, op)
		}
		out := spent.Outputs[op.Index]
		connected.Inputs = append(connected.Inputs, chain.ConnectedInput{
			PreviousOutPoint: op,
			Value:            out.Value,
			PkScript:         out.PkScript,
		})
	}
	return connected, nil
}

// BlockHeader returns the header of the block at height.
func (r *ChainReader) BlockHeader(ctx context.Context, height uint64) (*chain.BlockHeader, error) {
	hash, err := r.blockHash(ctx, height)
	if err != nil {
		return nil, err
	}
	header, err := r.rpc.GetBlockHeader(hash)
	if err != nil {
		return nil, chainError(fmt.Errorf("get block header %s: %w", hash, err))
	}
	return &chain.BlockHeader{
		Height:    height,
		Hash:      *hash,
		Timestamp: header.Timestamp.UTC(),
	}, nil
}

func (r *ChainReader) transaction(txid chainhash.Hash) (chain.Transaction, error) {
	raw, err := r.rpc.GetRawTransaction(&txid)
	if err != nil {
		err = fmt.Errorf("get raw transaction %s: %w", txid, err)
		var rpcErr *btcjson.RPCError
		if errors.As(err, &rpcErr) && rpcErr.Code == btcjson.ErrRPCNoTxInfo {
			return chain.Transaction{}, fmt.Errorf("%w: %w: %w", model.ErrChainData, model.ErrTransactionNotFound, err)
		}
		return chain.Transaction{}, chainError(err)
	}
	tx, err := chain.NewTransaction(raw.MsgTx())
	if err != nil {
		return chain.Transaction{}, fmt.Errorf("%w: %w", model.ErrChainData, err)
	}
	return tx, nil
}

func chainError(err error) error {
	return fmt.Errorf("%w: %w", model.ErrChainData, err)
}
