// Package clickhouse stores the spending index in ClickHouse.
package clickhouse

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/goodnatureofminers/coinindex/internal/utxo/model"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE
//go:generate mockgen -destination=row_mock_test.go -package=$GOPACKAGE github.com/ClickHouse/clickhouse-go/v2/lib/driver Row

var insertSettings = clickhouse.Settings{
	"async_insert":          1,
	"wait_for_async_insert": 1,
}

type (
	Metrics interface {
		Observe(operation string, err error, started time.Time)
	}

	// Conn is the part of clickhouse.Conn the repository relies on.
	Conn interface {
		Exec(ctx context.Context, query string, args ...any) error
		QueryRow(ctx context.Context, query string, args ...any) driver.Row
		Close() error
	}
)

// Repository is the spending index over ClickHouse tables. Rows are upserted through
// ReplacingMergeTree engines and read with FINAL, so repeated writes of the same key collapse.
type Repository struct {
	conn    Conn
	metrics Metrics
}

func NewRepository(dsn string, metrics Metrics) (*Repository, error) {
	if dsn == "" {
		return nil, errors.New("clickhouse dsn is required")
	}

	options, err := connectionOptions(dsn)
	if err != nil {
		return nil, err
	}

	conn, err := clickhouse.Open(options)
	if err != nil {
		return nil, fmt.Errorf("%w: open clickhouse connection: %w", model.ErrStorage, err)
	}

	return &Repository{conn: conn, metrics: metrics}, nil
}

// connectionOptions parses dsn and turns on server-side buffering for the point inserts the
// scanner issues. Each insert still waits for its flush, so writes keep their order and a
// stored checkpoint never runs ahead of the rows below it. Values given in the dsn win.
func connectionOptions(dsn string) (*clickhouse.Options, error) {
	options, err := clickhouse.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse clickhouse dsn: %w", err)
	}
	if options.Settings == nil {
		options.Settings = clickhouse.Settings{}
	}
	for name, value := range insertSettings {
		if _, ok := options.Settings[name]; !ok {
			options.Settings[name] = value
		}
	}
	return options, nil
}

// Close releases the connection pool.
func (r *Repository) Close() error {
	return r.conn.Close()
}

func parseTxID(value string) (chainhash.Hash, error) {
	if len(value) != 2*chainhash.HashSize {
		return chainhash.Hash{}, fmt.Errorf("%w: txid %q has %d characters", model.ErrSerialization, value, len(value))
	}
	txid, err := chainhash.NewHashFromStr(value)
	if err != nil {
		return chainhash.Hash{}, fmt.Errorf("%w: txid %q: %w", model.ErrSerialization, value, err)
	}
	return *txid, nil
}
