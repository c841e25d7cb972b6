// Package scanner walks the chain in height order and populates the spending index.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goodnatureofminers/coinindex/internal/clock"
	"github.com/goodnatureofminers/coinindex/internal/utxo/chain"
	"github.com/goodnatureofminers/coinindex/internal/utxo/model"
	"github.com/goodnatureofminers/coinindex/pkg/safe"
	"go.uber.org/zap"
)

// Service indexes spending links and transaction heights block by block. A pass is
// resumable: rerunning any height range rewrites identical entries, and the checkpoint
// only advances once every block below it has been written.
type Service struct {
	logger             *zap.Logger
	chain              ChainReader
	store              IndexStore
	metrics            Metrics
	status             StatusReporter
	wait               func(context.Context, time.Duration, <-chan struct{}) error
	now                func() time.Time
	checkpointInterval uint64
	throughputLogEvery uint64
}

func NewService(
	reader ChainReader,
	store IndexStore,
	metrics Metrics,
	status StatusReporter,
	logger *zap.Logger,
) (*Service, error) {
	if reader == nil {
		return nil, errors.New("scanner chain reader is required")
	}
	if store == nil {
		return nil, errors.New("scanner index store is required")
	}
	if metrics == nil {
		return nil, errors.New("scanner metrics is required")
	}
	if status == nil {
		status = nopStatus{}
	}

	return &Service{
		logger:             logger.Named("scanner"),
		chain:              reader,
		store:              store,
		metrics:            metrics,
		status:             status,
		wait:               clock.WaitForSignal,
		now:                time.Now,
		checkpointInterval: checkpointInterval,
		throughputLogEvery: throughputLogEvery,
	}, nil
}

// Run performs a single pass from the resume height to the current tip and returns the next
// height to scan. With restart set the stored checkpoint is ignored and the pass starts at 0.
func (s *Service) Run(ctx context.Context, restart bool) (uint64, error) {
	start, err := s.resumeHeight(ctx, restart)
	if err != nil {
		return 0, err
	}
	return s.scanToTip(ctx, start)
}

// Follow runs a pass, then keeps indexing new blocks. It waits pollInterval between passes,
// or less when newBlock fires. It returns only on error or context cancellation.
func (s *Service) Follow(ctx context.Context, restart bool, pollInterval time.Duration, newBlock <-chan struct{}) error {
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}

	next, err := s.Run(ctx, restart)
	if err != nil {
		return err
	}
	for {
		if err := s.wait(ctx, pollInterval, newBlock); err != nil {
			return err
		}
		if next, err = s.scanToTip(ctx, next); err != nil {
			return err
		}
	}
}

func (s *Service) resumeHeight(ctx context.Context, restart bool) (uint64, error) {
	if restart {
		s.logger.Info("forced restart, scanning from genesis")
		return 0, nil
	}
	height, found, err := s.store.Checkpoint(ctx)
	if err != nil {
		return 0, fmt.Errorf("read checkpoint: %w", err)
	}
	if !found {
		s.logger.Info("no checkpoint stored, scanning from genesis")
		return 0, nil
	}
	s.logger.Info("resuming from checkpoint", zap.Uint32("height", height))
	return uint64(height), nil
}

func (s *Service) scanToTip(ctx context.Context, start uint64) (uint64, error) {
	count, err := s.chain.BlockCount(ctx)
	if err != nil {
		return start, fmt.Errorf("read block count: %w", err)
	}
	if start >= count {
		s.status.SetDrained()
		s.logger.Debug("index is at chain tip", zap.Uint64("height", start))
		return start, nil
	}

	s.status.SetScanning()
	s.logger.Info("scanning blocks", zap.Uint64("from", start), zap.Uint64("to", count))
	next, err := s.ScanRange(ctx, start, count)
	if err != nil {
		return next, err
	}
	s.status.SetDrained()
	s.logger.Info("scan drained", zap.Uint64("next_height", next))
	return next, nil
}

// ScanRange indexes the blocks in [from, to) and returns the next height to scan. On error the
// returned height is the block that failed.
func (s *Service) ScanRange(ctx context.Context, from, to uint64) (uint64, error) {
	progress := newProgress(s.now(), s.throughputLogEvery)
	next := from

	for block, err := range s.chain.Blocks(ctx, from, to) {
		if err != nil {
			return next, fmt.Errorf("read block %d: %w", next, err)
		}
		if block.Height != next {
			return next, fmt.Errorf("%w: chain yielded block %d, want %d", model.ErrChainData, block.Height, next)
		}

		started := s.now()
		err = s.indexBlock(ctx, block, progress)
		s.metrics.ObserveBlock(err, block.Height, len(block.Transactions), started)
		if err != nil {
			return next, err
		}
		progress.blockDone()
		next++

		if next%s.checkpointInterval == 0 {
			if err := s.checkpoint(ctx, next); err != nil {
				return next, err
			}
		}
	}

	if next != to {
		if err := ctx.Err(); err != nil {
			return next, err
		}
		return next, fmt.Errorf("%w: chain ended at block %d, want %d", model.ErrChainData, next, to)
	}
	return next, nil
}

func (s *Service) indexBlock(ctx context.Context, block *chain.Block, progress *progress) error {
	height, err := safe.Uint32(block.Height)
	if err != nil {
		return fmt.Errorf("block height %d: %w", block.Height, err)
	}

	for _, tx := range block.Transactions {
		for _, in := range tx.Inputs {
			if chain.IsNullOutPoint(in.PreviousOutPoint) {
				continue
			}
			if err := s.store.PutSpendingLink(ctx, in.PreviousOutPoint, tx.TxID); err != nil {
				return fmt.Errorf("index block %d tx %s: %w", block.Height, tx.TxID, err)
			}
		}
		if err := s.store.PutHeightRecord(ctx, tx.TxID, height); err != nil {
			return fmt.Errorf("index block %d tx %s: %w", block.Height, tx.TxID, err)
		}

		if progress.txDone() {
			txRate, blockRate := progress.rates(s.now())
			s.metrics.ObserveThroughput(txRate, blockRate)
			s.logger.Info("scan progress",
				zap.Uint64("height", block.Height),
				zap.Float64("tx_per_second", txRate),
				zap.Float64("blocks_per_second", blockRate),
				zap.Stringer("txid", tx.TxID),
			)
		}
	}
	return nil
}

func (s *Service) checkpoint(ctx context.Context, next uint64) error {
	height, err := safe.Uint32(next)
	if err != nil {
		return fmt.Errorf("checkpoint height %d: %w", next, err)
	}
	if err := s.store.PutCheckpoint(ctx, height); err != nil {
		return fmt.Errorf("store checkpoint %d: %w", height, err)
	}
	s.metrics.ObserveCheckpoint(height)
	s.logger.Debug("checkpoint stored", zap.Uint32("height", height))
	return nil
}

type nopStatus struct{}

func (nopStatus) SetScanning() {}
func (nopStatus) SetDrained()  {}
