// Package model defines domain models shared by the spending index components.
package model

const (
	// UnknownAddress is reported for scripts that do not decode to an address.
	UnknownAddress = "unknown"
	// UnknownAddressType is reported alongside UnknownAddress.
	UnknownAddressType = "unknown"
)

// TransactionView is a transaction joined with its spending links and decoded addresses.
// It is assembled per request and never persisted.
type TransactionView struct {
	Timestamp   uint32       `json:"timestamp"`
	BlockHeight uint32       `json:"block_height"`
	TxID        string       `json:"txid"`
	Inputs      []InputView  `json:"inputs"`
	Outputs     []OutputView `json:"outputs"`
}

// InputView describes the output an input consumes.
type InputView struct {
	TxID        string `json:"txid"`
	Vout        uint32 `json:"vout"`
	Value       uint64 `json:"value"`
	Address     string `json:"address"`
	AddressType string `json:"address_type"`
}

// OutputView describes an output and, when indexed, the transaction that spent it.
type OutputView struct {
	SpendingTxID *string `json:"spending_txid"`
	Value        uint64  `json:"value"`
	Address      string  `json:"address"`
	AddressType  string  `json:"address_type"`
}
