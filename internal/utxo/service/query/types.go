package query

import (
	"context"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/goodnatureofminers/coinindex/internal/utxo/chain"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

type (
	ChainReader interface {
		ConnectedTransaction(ctx context.Context, txid chainhash.Hash) (*chain.ConnectedTransaction, error)
		BlockHeader(ctx context.Context, height uint64) (*chain.BlockHeader, error)
	}
	IndexStore interface {
		SpendingLink(ctx context.Context, op wire.OutPoint) (chainhash.Hash, bool, error)
		HeightRecord(ctx context.Context, txid chainhash.Hash) (uint32, bool, error)
	}
	// ScriptDecoder extracts the owning address of an output script.
	ScriptDecoder interface {
		Decode(script []byte) (address, addressType string, ok bool)
	}
	Metrics interface {
		Observe(status string, started time.Time)
	}
)
