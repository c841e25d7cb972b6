// Package bitcoin reads the chain from a Bitcoin Core node and decodes Bitcoin output scripts.
package bitcoin

import (
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

type (
	// RPCClient is the node JSON-RPC surface the chain reader needs.
	// GetRawTransaction only resolves arbitrary transactions on nodes running with txindex=1.
	RPCClient interface {
		GetBlockCount() (int64, error)
		GetBlockHash(blockHeight int64) (*chainhash.Hash, error)
		GetBlock(blockHash *chainhash.Hash) (*wire.MsgBlock, error)
		GetBlockHeader(blockHash *chainhash.Hash) (*wire.BlockHeader, error)
		GetRawTransaction(txHash *chainhash.Hash) (*btcutil.Tx, error)
	}
)
