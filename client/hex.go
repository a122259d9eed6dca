package client

import (
	"bytes"
	"encoding/hex"
	"io"

	"github.com/btcsuite/btcd/wire"

	"github.com/initia-labs/corerpc/types"
)

// DecodeBlockHeader decodes a serialized block header.
func DecodeBlockHeader(hexStr string) (*wire.BlockHeader, error) {
	var header wire.BlockHeader
	if err := decodeConsensusHex(hexStr, "block header", header.Deserialize); err != nil {
		return nil, err
	}
	return &header, nil
}

// DecodeBlock decodes a serialized block.
func DecodeBlock(hexStr string) (*wire.MsgBlock, error) {
	var block wire.MsgBlock
	if err := decodeConsensusHex(hexStr, "block", block.Deserialize); err != nil {
		return nil, err
	}
	return &block, nil
}

// DecodeTransaction decodes a serialized transaction, with or without witness.
func DecodeTransaction(hexStr string) (*wire.MsgTx, error) {
	var tx wire.MsgTx
	if err := decodeConsensusHex(hexStr, "transaction", tx.Deserialize); err != nil {
		return nil, err
	}
	return &tx, nil
}

func decodeConsensusHex(hexStr, what string, deserialize func(io.Reader) error) error {
	raw, err := hex.DecodeString(hexStr)
	if err != nil {
		return types.NewDecodeError(err, hexStr)
	}
	r := bytes.NewReader(raw)
	if err := deserialize(r); err != nil {
		return types.NewDecodeError(err, hexStr)
	}
	if r.Len() > 0 {
		return types.NewTrailingDataError(what, r.Len())
	}
	return nil
}
