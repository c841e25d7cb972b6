// Package leveldb stores the spending index in an embedded LevelDB database.
package leveldb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/goodnatureofminers/coinindex/internal/utxo/model"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

type (
	Metrics interface {
		Observe(operation string, err error, started time.Time)
	}
)

// Store is the spending index over a single LevelDB database. It is safe for concurrent use:
// LevelDB serves readers alongside the single scanning writer without extra locking.
type Store struct {
	db      *leveldb.DB
	metrics Metrics
}

// Open opens or creates the database at path.
func Open(path string, metrics Metrics) (*Store, error) {
	if path == "" {
		return nil, errors.New("leveldb path is required")
	}
	db, err := leveldb.OpenFile(path, &opt.Options{
		BlockCacheCapacity: 64 * opt.MiB,
		WriteBuffer:        32 * opt.MiB,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: open leveldb %s: %w", model.ErrStorage, path, err)
	}
	return New(db, metrics), nil
}

// New wraps an already opened database.
func New(db *leveldb.DB, metrics Metrics) *Store {
	return &Store{db: db, metrics: metrics}
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// PutSpendingLink records that spendingTxID consumed op.
func (s *Store) PutSpendingLink(ctx context.Context, op wire.OutPoint, spendingTxID chainhash.Hash) (err error) {
	started := time.Now()
	defer func() {
		s.metrics.Observe("put_spending_link", err, started)
	}()

	if err = ctx.Err(); err != nil {
		return err
	}
	if err = s.db.Put(outpointKey(op), spendingTxID[:], nil); err != nil {
		return fmt.Errorf("%w: put spending link %s: %w", model.ErrStorage, op, err)
	}
	return nil
}

// SpendingLink returns the transaction that spent op, if one has been indexed.
func (s *Store) SpendingLink(ctx context.Context, op wire.OutPoint) (txid chainhash.Hash, found bool, err error) {
	started := time.Now()
	defer func() {
		s.metrics.Observe("get_spending_link", err, started)
	}()

	value, ok, err := s.get(ctx, outpointKey(op))
	if err != nil {
		return txid, false, fmt.Errorf("get spending link %s: %w", op, err)
	}
	if !ok {
		return txid, false, nil
	}
	if txid, err = decodeTxID(value); err != nil {
		return txid, false, fmt.Errorf("spending link %s: %w", op, err)
	}
	return txid, true, nil
}

// PutHeightRecord records the height of the block containing txid.
func (s *Store) PutHeightRecord(ctx context.Context, txid chainhash.Hash, height uint32) (err error) {
	started := time.Now()
	defer func() {
		s.metrics.Observe("put_height_record", err, started)
	}()

	if err = ctx.Err(); err != nil {
		return err
	}
	if err = s.db.Put(txidKey(txid), encodeHeight(height), nil); err != nil {
		return fmt.Errorf("%w: put height record %s: %w", model.ErrStorage, txid, err)
	}
	return nil
}

// HeightRecord returns the block height of txid, if the transaction has been indexed.
func (s *Store) HeightRecord(ctx context.Context, txid chainhash.Hash) (height uint32, found bool, err error) {
	started := time.Now()
	defer func() {
		s.metrics.Observe("get_height_record", err, started)
	}()

	value, ok, err := s.get(ctx, txidKey(txid))
	if err != nil {
		return 0, false, fmt.Errorf("get height record %s: %w", txid, err)
	}
	if !ok {
		return 0, false, nil
	}
	if height, err = decodeHeight(value); err != nil {
		return 0, false, fmt.Errorf("height record %s: %w", txid, err)
	}
	return height, true, nil
}

// PutCheckpoint stores the next height to scan. The write is synced, which also makes every
// earlier unsynced write in the journal durable.
func (s *Store) PutCheckpoint(ctx context.Context, height uint32) (err error) {
	started := time.Now()
	defer func() {
		s.metrics.Observe("put_checkpoint", err, started)
	}()

	if err = ctx.Err(); err != nil {
		return err
	}
	if err = s.db.Put(checkpointKey, encodeHeight(height), &opt.WriteOptions{Sync: true}); err != nil {
		return fmt.Errorf("%w: put checkpoint %d: %w", model.ErrStorage, height, err)
	}
	return nil
}

// Checkpoint returns the stored checkpoint, if any.
func (s *Store) Checkpoint(ctx context.Context) (height uint32, found bool, err error) {
	started := time.Now()
	defer func() {
		s.metrics.Observe("get_checkpoint", err, started)
	}()

	value, ok, err := s.get(ctx, checkpointKey)
	if err != nil {
		return 0, false, fmt.Errorf("get checkpoint: %w", err)
	}
	if !ok {
		return 0, false, nil
	}
	if height, err = decodeHeight(value); err != nil {
		return 0, false, fmt.Errorf("checkpoint: %w", err)
	}
	return height, true, nil
}

func (s *Store) get(ctx context.Context, key []byte) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	value, err := s.db.Get(key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: %w", model.ErrStorage, err)
	}
	return value, true, nil
}
