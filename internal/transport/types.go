package transport

import (
	"context"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/goodnatureofminers/coinindex/internal/utxo/model"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

type (
	TransactionQuery interface {
		Transaction(ctx context.Context, txid chainhash.Hash) (*model.TransactionView, error)
	}
)
