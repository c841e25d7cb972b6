package clickhouse

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/goodnatureofminers/coinindex/internal/utxo/model"
)

const (
	insertSpendingLinkQuery = `
INSERT INTO spending_links (
	txid,
	vout,
	spending_txid
) VALUES (?, ?, ?)`

	selectSpendingLinkQuery = `
SELECT spending_txid
FROM spending_links FINAL
WHERE txid = ? AND vout = ?
LIMIT 1`
)

// PutSpendingLink records that spendingTxID consumed op.
func (r *Repository) PutSpendingLink(ctx context.Context, op wire.OutPoint, spendingTxID chainhash.Hash) error {
	start := time.Now()
	var err error
	defer func() {
		r.metrics.Observe("put_spending_link", err, start)
	}()

	if err = r.conn.Exec(ctx, insertSpendingLinkQuery, op.Hash.String(), op.Index, spendingTxID.String()); err != nil {
		err = fmt.Errorf("%w: insert spending link %s: %w", model.ErrStorage, op, err)
		return err
	}
	return nil
}

// SpendingLink returns the transaction that spent op, if one has been indexed.
func (r *Repository) SpendingLink(ctx context.Context, op wire.OutPoint) (chainhash.Hash, bool, error) {
	start := time.Now()
	var err error
	defer func() {
		r.metrics.Observe("get_spending_link", err, start)
	}()

	var raw string
	err = r.conn.QueryRow(ctx, selectSpendingLinkQuery, op.Hash.String(), op.Index).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		err = nil
		return chainhash.Hash{}, false, nil
	}
	if err != nil {
		err = fmt.Errorf("%w: query spending link %s: %w", model.ErrStorage, op, err)
		return chainhash.Hash{}, false, err
	}

	txid, err := parseTxID(raw)
	if err != nil {
		err = fmt.Errorf("spending link %s: %w", op, err)
		return chainhash.Hash{}, false, err
	}
	return txid, true, nil
}
