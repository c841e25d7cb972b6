package clickhouse

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goodnatureofminers/coinindex/internal/utxo/model"
)

// checkpointID is the key of the single scan_checkpoint row.
const checkpointID uint8 = 1

const (
	insertCheckpointQuery = `
INSERT INTO scan_checkpoint (
	id,
	height,
	version
) VALUES (?, ?, ?)`

	selectCheckpointQuery = `
SELECT height
FROM scan_checkpoint FINAL
WHERE id = ?
LIMIT 1`
)

// PutCheckpoint stores the next height to scan. The version column makes the latest write win,
// including a lower height written after a forced restart.
func (r *Repository) PutCheckpoint(ctx context.Context, height uint32) error {
	start := time.Now()
	var err error
	defer func() {
		r.metrics.Observe("put_checkpoint", err, start)
	}()

	if err = r.conn.Exec(ctx, insertCheckpointQuery, checkpointID, height, uint64(start.UnixNano())); err != nil {
		err = fmt.Errorf("%w: insert checkpoint %d: %w", model.ErrStorage, height, err)
		return err
	}
	return nil
}

// Checkpoint returns the stored checkpoint, if any.
func (r *Repository) Checkpoint(ctx context.Context) (uint32, bool, error) {
	start := time.Now()
	var err error
	defer func() {
		r.metrics.Observe("get_checkpoint", err, start)
	}()

	var height uint32
	err = r.conn.QueryRow(ctx, selectCheckpointQuery, checkpointID).Scan(&height)
	if errors.Is(err, sql.ErrNoRows) {
		err = nil
		return 0, false, nil
	}
	if err != nil {
		err = fmt.Errorf("%w: query checkpoint: %w", model.ErrStorage, err)
		return 0, false, err
	}
	return height, true, nil
}
