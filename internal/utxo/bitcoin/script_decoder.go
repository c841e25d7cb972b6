package bitcoin

import (
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/goodnatureofminers/coinindex/internal/utxo/model"
)

var addressTypes = map[txscript.ScriptClass]string{
	txscript.PubKeyHashTy:          "p2pkh",
	txscript.ScriptHashTy:          "p2sh",
	txscript.WitnessV0PubKeyHashTy: "p2wpkh",
	txscript.WitnessV0ScriptHashTy: "p2wsh",
	txscript.WitnessV1TaprootTy:    "p2tr",
	txscript.PubKeyTy:              "p2pk",
}

// ScriptDecoder extracts the owning address of an output script.
type ScriptDecoder struct {
	params *chaincfg.Params
}

// NewScriptDecoder initializes a decoder for extracting addresses using params of the provided network.
func NewScriptDecoder(network model.Network) (*ScriptDecoder, error) {
	params, err := chainParamsForNetwork(network)
	if err != nil {
		return nil, err
	}
	return &ScriptDecoder{params: params}, nil
}

// Decode returns the address and address type owning script. Scripts that do not pay to exactly
// one standard address decode to model.UnknownAddress and model.UnknownAddressType with ok false.
func (d *ScriptDecoder) Decode(script []byte) (address, addressType string, ok bool) {
	class, addrs, _, err := txscript.ExtractPkScriptAddrs(script, d.params)
	if err != nil || len(addrs) != 1 {
		return model.UnknownAddress, model.UnknownAddressType, false
	}
	addressType, known := addressTypes[class]
	if !known {
		return model.UnknownAddress, model.UnknownAddressType, false
	}
	return addrs[0].EncodeAddress(), addressType, true
}

func chainParamsForNetwork(network model.Network) (*chaincfg.Params, error) {
	switch strings.ToLower(string(network)) {
	case "main", "mainnet", "bitcoin":
		return &chaincfg.MainNetParams, nil
	case "testnet", "testnet3":
		return &chaincfg.TestNet3Params, nil
	case "regtest":
		return &chaincfg.RegressionNetParams, nil
	case "signet":
		return &chaincfg.SigNetParams, nil
	default:
		return nil, fmt.Errorf("unsupported network %q", network)
	}
}
