package clickhouse

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/goodnatureofminers/coinindex/internal/utxo/model"
)

const (
	insertHeightRecordQuery = `
INSERT INTO tx_heights (
	txid,
	height
) VALUES (?, ?)`

	selectHeightRecordQuery = `
SELECT height
FROM tx_heights FINAL
WHERE txid = ?
LIMIT 1`
)

// PutHeightRecord records the height of the block containing txid.
func (r *Repository) PutHeightRecord(ctx context.Context, txid chainhash.Hash, height uint32) error {
	start := time.Now()
	var err error
	defer func() {
		r.metrics.Observe("put_height_record", err, start)
	}()

	if err = r.conn.Exec(ctx, insertHeightRecordQuery, txid.String(), height); err != nil {
		err = fmt.Errorf("%w: insert height record %s: %w", model.ErrStorage, txid, err)
		return err
	}
	return nil
}

// HeightRecord returns the block height of txid, if the transaction has been indexed.
func (r *Repository) HeightRecord(ctx context.Context, txid chainhash.Hash) (uint32, bool, error) {
	start := time.Now()
	var err error
	defer func() {
		r.metrics.Observe("get_height_record", err, start)
	}()

	var height uint32
	err = r.conn.QueryRow(ctx, selectHeightRecordQuery, txid.String()).Scan(&height)
	if errors.Is(err, sql.ErrNoRows) {
		err = nil
		return 0, false, nil
	}
	if err != nil {
		err = fmt.Errorf("%w: query height record %s: %w", model.ErrStorage, txid, err)
		return 0, false, err
	}
	return height, true, nil
}
