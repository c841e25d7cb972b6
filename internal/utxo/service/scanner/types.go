package scanner

import (
	"context"
	"iter"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/goodnatureofminers/coinindex/internal/utxo/chain"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

type (
	ChainReader interface {
		BlockCount(ctx context.Context) (uint64, error)
		Blocks(ctx context.Context, from, to uint64) iter.Seq2[*chain.Block, error]
	}
	IndexStore interface {
		PutSpendingLink(ctx context.Context, op wire.OutPoint, spendingTxID chainhash.Hash) error
		PutHeightRecord(ctx context.Context, txid chainhash.Hash, height uint32) error
		PutCheckpoint(ctx context.Context, height uint32) error
		Checkpoint(ctx context.Context) (uint32, bool, error)
	}
	Metrics interface {
		ObserveBlock(err error, height uint64, txs int, started time.Time)
		ObserveCheckpoint(height uint32)
		ObserveThroughput(txPerSecond, blocksPerSecond float64)
	}
	// StatusReporter publishes whether the scanner has caught up with the chain tip.
	StatusReporter interface {
		SetScanning()
		SetDrained()
	}
)
