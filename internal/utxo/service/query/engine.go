// Package query assembles transaction views from chain data and the spending index.
package query

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/goodnatureofminers/coinindex/internal/utxo/chain"
	"github.com/goodnatureofminers/coinindex/internal/utxo/model"
	"github.com/goodnatureofminers/coinindex/pkg/safe"
	"go.uber.org/zap"
)

const (
	statusOK            = "ok"
	statusNotFound      = "not_found"
	statusNotYetIndexed = "not_yet_indexed"
	statusError         = "error"
)

// Engine answers transaction view queries. It only reads and is safe for concurrent use.
type Engine struct {
	logger  *zap.Logger
	chain   ChainReader
	store   IndexStore
	decoder ScriptDecoder
	metrics Metrics
	now     func() time.Time
}

func NewEngine(
	reader ChainReader,
	store IndexStore,
	decoder ScriptDecoder,
	metrics Metrics,
	logger *zap.Logger,
) (*Engine, error) {
	if reader == nil {
		return nil, errors.New("query chain reader is required")
	}
	if store == nil {
		return nil, errors.New("query index store is required")
	}
	if decoder == nil {
		return nil, errors.New("query script decoder is required")
	}
	if metrics == nil {
		return nil, errors.New("query metrics is required")
	}

	return &Engine{
		logger:  logger.Named("query"),
		chain:   reader,
		store:   store,
		decoder: decoder,
		metrics: metrics,
		now:     time.Now,
	}, nil
}

// Transaction returns the view of txid. It fails with model.ErrNotYetIndexed while the block holding
// txid has not been scanned, and with model.ErrTransactionNotFound when the chain does not know txid.
func (e *Engine) Transaction(ctx context.Context, txid chainhash.Hash) (view *model.TransactionView, err error) {
	started := e.now()
	defer func() {
		e.metrics.Observe(queryStatus(err), started)
	}()

	connected, err := e.chain.ConnectedTransaction(ctx, txid)
	if err != nil {
		return nil, chainError(err, "transaction %s", txid)
	}

	height, found, err := e.store.HeightRecord(ctx, txid)
	if err != nil {
		return nil, fmt.Errorf("height of %s: %w", txid, err)
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", model.ErrNotYetIndexed, txid)
	}

	header, err := e.chain.BlockHeader(ctx, uint64(height))
	if err != nil {
		return nil, chainError(err, "block header %d", height)
	}
	timestamp, err := safe.Uint32(header.Timestamp.Unix())
	if err != nil {
		return nil, fmt.Errorf("%w: block %d timestamp: %w", model.ErrChainData, height, err)
	}

	view = &model.TransactionView{
		Timestamp:   timestamp,
		BlockHeight: height,
		TxID:        txid.String(),
		Inputs:      e.inputs(connected),
	}
	view.Outputs, err = e.outputs(ctx, txid, connected.Outputs)
	if err != nil {
		return nil, err
	}
	return view, nil
}

// inputs pairs each spent outpoint with its connected value and script. Coinbase transactions
// spend nothing and have no inputs in the view.
func (e *Engine) inputs(connected *chain.ConnectedTransaction) []model.InputView {
	if connected.Coinbase {
		return []model.InputView{}
	}

	inputs := make([]model.InputView, 0, len(connected.Inputs))
	for _, in := range connected.Inputs {
		address, addressType, _ := e.decoder.Decode(in.PkScript)
		inputs = append(inputs, model.InputView{
			TxID:        in.PreviousOutPoint.Hash.String(),
			Vout:        in.PreviousOutPoint.Index,
			Value:       in.Value,
			Address:     address,
			AddressType: addressType,
		})
	}
	return inputs
}

func (e *Engine) outputs(ctx context.Context, txid chainhash.Hash, outs []chain.Output) ([]model.OutputView, error) {
	outputs := make([]model.OutputView, 0, len(outs))
	for idx, out := range outs {
		vout, err := safe.Uint32(idx)
		if err != nil {
			return nil, fmt.Errorf("%w: output %d of %s: %w", model.ErrChainData, idx, txid, err)
		}
		op := wire.OutPoint{Hash: txid, Index: vout}
		spender, spent, err := e.store.SpendingLink(ctx, op)
		if err != nil {
			return nil, fmt.Errorf("spending link of %s: %w", op, err)
		}

		address, addressType, _ := e.decoder.Decode(out.PkScript)
		output := model.OutputView{
			Value:       out.Value,
			Address:     address,
			AddressType: addressType,
		}
		if spent {
			s := spender.String()
			output.SpendingTxID = &s
		}
		outputs = append(outputs, output)
	}
	return outputs, nil
}

func chainError(err error, format string, args ...any) error {
	if errors.Is(err, model.ErrChainData) {
		return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
	}
	return fmt.Errorf("%w: %s: %w", model.ErrChainData, fmt.Sprintf(format, args...), err)
}

func queryStatus(err error) string {
	switch {
	case err == nil:
		return statusOK
	case errors.Is(err, model.ErrTransactionNotFound):
		return statusNotFound
	case errors.Is(err, model.ErrNotYetIndexed):
		return statusNotYetIndexed
	default:
		return statusError
	}
}
