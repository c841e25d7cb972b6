// Package transport exposes the spending index over HTTP and gRPC.
package transport

import (
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/goodnatureofminers/coinindex/internal/utxo/model"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

const (
	txPath = "/tx/{txid}"
	// retryAfter is the Retry-After hint, in seconds, for transactions the scanner has not reached.
	retryAfter = 30
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type errorResponse struct {
	Error string `json:"error"`
}

// TxHandler serves GET /tx/{txid}.
type TxHandler struct {
	query  TransactionQuery
	logger *zap.Logger
}

// NewTxHandler returns a TxHandler answering from query.
func NewTxHandler(query TransactionQuery, logger *zap.Logger) *TxHandler {
	return &TxHandler{query: query, logger: logger.Named("http")}
}

// NewRouter mounts the transaction endpoint. With dev set every origin may call it.
func NewRouter(tx *TxHandler, dev bool) http.Handler {
	mux := http.NewServeMux()
	mux.Handle(txPath, tx)
	if dev {
		return cors.AllowAll().Handler(mux)
	}
	return mux
}

func (h *TxHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		h.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	raw := r.PathValue("txid")
	txid, err := parseTxID(raw)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "could not parse txid: "+err.Error())
		return
	}

	view, err := h.query.Transaction(r.Context(), txid)
	if err != nil {
		status := statusFor(err)
		logger := h.logger.With(zap.String("txid", raw), zap.Int("status", status), zap.Error(err))
		if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
			logger.Error("transaction query failed")
		} else {
			logger.Debug("transaction query rejected")
		}
		if status == http.StatusServiceUnavailable {
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
		}
		h.writeError(w, status, errorMessage(status, err))
		return
	}

	h.writeJSON(w, http.StatusOK, view)
}

func (h *TxHandler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, errorResponse{Error: msg})
}

func (h *TxHandler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Warn("write response", zap.Error(err))
	}
}

// parseTxID accepts only the canonical 64 character hex form.
func parseTxID(raw string) (chainhash.Hash, error) {
	if len(raw) != 2*chainhash.HashSize {
		return chainhash.Hash{}, fmt.Errorf("want %d hex characters, got %d", 2*chainhash.HashSize, len(raw))
	}
	if _, err := hex.DecodeString(raw); err != nil {
		return chainhash.Hash{}, err
	}
	txid, err := chainhash.NewHashFromStr(raw)
	if err != nil {
		return chainhash.Hash{}, err
	}
	return *txid, nil
}

// errorMessage exposes the lookup error only for a missing transaction. Server side failures
// keep their detail in the log.
func errorMessage(status int, err error) string {
	if status == http.StatusNotFound {
		return err.Error()
	}
	return http.StatusText(status)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrTransactionNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrNotYetIndexed):
		return http.StatusServiceUnavailable
	case errors.Is(err, model.ErrStorage), errors.Is(err, model.ErrSerialization):
		return http.StatusInternalServerError
	case errors.Is(err, model.ErrChainData):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
