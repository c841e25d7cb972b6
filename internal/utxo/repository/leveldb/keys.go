package leveldb

import (
	"encoding/binary"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/goodnatureofminers/coinindex/internal/utxo/model"
)

// The three namespaces share one keyspace and are told apart by key length:
// outpoint keys are 36 bytes, txid keys 32 bytes and the checkpoint key 12 bytes.
const (
	txidKeyLen     = chainhash.HashSize
	outpointKeyLen = chainhash.HashSize + 4
	heightValueLen = 4
)

var checkpointKey = []byte("block_height")

func outpointKey(op wire.OutPoint) []byte {
	key := make([]byte, outpointKeyLen)
	copy(key, op.Hash[:])
	binary.BigEndian.PutUint32(key[chainhash.HashSize:], op.Index)
	return key
}

func txidKey(txid chainhash.Hash) []byte {
	key := make([]byte, txidKeyLen)
	copy(key, txid[:])
	return key
}

func encodeHeight(height uint32) []byte {
	return binary.BigEndian.AppendUint32(make([]byte, 0, heightValueLen), height)
}

func decodeHeight(value []byte) (uint32, error) {
	if len(value) != heightValueLen {
		return 0, fmt.Errorf("%w: height value has %d bytes, want %d", model.ErrSerialization, len(value), heightValueLen)
	}
	return binary.BigEndian.Uint32(value), nil
}

func decodeTxID(value []byte) (chainhash.Hash, error) {
	var txid chainhash.Hash
	if len(value) != chainhash.HashSize {
		return txid, fmt.Errorf("%w: txid value has %d bytes, want %d", model.ErrSerialization, len(value), chainhash.HashSize)
	}
	copy(txid[:], value)
	return txid, nil
}
