package client

import (
	"context"
	"encoding/json"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"

	"github.com/initia-labs/corerpc/types"
	"github.com/initia-labs/corerpc/util"
)

// EstimateMode selects the fee estimation horizon for estimatesmartfee.
type EstimateMode string

const (
	EstimateModeUnset        EstimateMode = "UNSET"
	EstimateModeEconomical   EstimateMode = "ECONOMICAL"
	EstimateModeConservative EstimateMode = "CONSERVATIVE"
)

// SigHashType is the signature hash type passed to walletprocesspsbt.
type SigHashType string

const (
	SigHashAll                SigHashType = "ALL"
	SigHashNone               SigHashType = "NONE"
	SigHashSingle             SigHashType = "SINGLE"
	SigHashAllAnyoneCanPay    SigHashType = "ALL|ANYONECANPAY"
	SigHashNoneAnyoneCanPay   SigHashType = "NONE|ANYONECANPAY"
	SigHashSingleAnyoneCanPay SigHashType = "SINGLE|ANYONECANPAY"
)

func (c *Client) GetNetworkInfo(ctx context.Context) (*types.GetNetworkInfoResult, error) {
	var res types.GetNetworkInfoResult
	if err := c.Call(ctx, "getnetworkinfo", nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) GetBlockCount(ctx context.Context) (uint64, error) {
	return CallAs[uint64](ctx, c, "getblockcount")
}

func (c *Client) GetBestBlockHash(ctx context.Context) (*chainhash.Hash, error) {
	return c.callHash(ctx, "getbestblockhash", nil)
}

func (c *Client) GetBlockHash(ctx context.Context, height uint64) (*chainhash.Hash, error) {
	return c.callHash(ctx, "getblockhash", []any{height})
}

// GetBlockHeader fetches the serialized header of the block with hash.
func (c *Client) GetBlockHeader(ctx context.Context, hash *chainhash.Hash) (*wire.BlockHeader, error) {
	hexStr, err := CallAs[string](ctx, c, "getblockheader", hash.String(), false)
	if err != nil {
		return nil, err
	}
	return DecodeBlockHeader(hexStr)
}

// GetBlock fetches the serialized block with hash.
func (c *Client) GetBlock(ctx context.Context, hash *chainhash.Hash) (*wire.MsgBlock, error) {
	hexStr, err := CallAs[string](ctx, c, "getblock", hash.String(), 0)
	if err != nil {
		return nil, err
	}
	return DecodeBlock(hexStr)
}

// GetRawTransaction fetches a transaction. blockHash is only needed for
// confirmed transactions on nodes without -txindex.
func (c *Client) GetRawTransaction(ctx context.Context, txid *chainhash.Hash, blockHash *chainhash.Hash) (*wire.MsgTx, error) {
	var bh *string
	if blockHash != nil {
		s := blockHash.String()
		bh = &s
	}
	args := util.HandleDefaults([]any{txid.String(), false, util.Opt(bh)}, []any{nil})

	var hexStr string
	if err := c.Call(ctx, "getrawtransaction", args, &hexStr); err != nil {
		return nil, err
	}
	return DecodeTransaction(hexStr)
}

func (c *Client) GetDifficulty(ctx context.Context) (float64, error) {
	return CallAs[float64](ctx, c, "getdifficulty")
}

func (c *Client) GetConnectionCount(ctx context.Context) (uint64, error) {
	return CallAs[uint64](ctx, c, "getconnectioncount")
}

// Uptime returns the server uptime in seconds.
func (c *Client) Uptime(ctx context.Context) (uint64, error) {
	return CallAs[uint64](ctx, c, "uptime")
}

// GetNetworkHashPS estimates the network hashes per second over the last
// nblocks blocks ending at height. nil falls back to 120 blocks and the tip.
func (c *Client) GetNetworkHashPS(ctx context.Context, nblocks *int64, height *int64) (float64, error) {
	args := util.HandleDefaults([]any{util.Opt(nblocks), util.Opt(height)}, []any{int64(120), int64(-1)})
	var res float64
	if err := c.Call(ctx, "getnetworkhashps", args, &res); err != nil {
		return 0, err
	}
	return res, nil
}

func (c *Client) EstimateSmartFee(ctx context.Context, confTarget uint16, mode *EstimateMode) (*types.EstimateSmartFeeResult, error) {
	args := util.HandleDefaults([]any{confTarget, util.Opt(mode)}, []any{nil})
	var res types.EstimateSmartFeeResult
	if err := c.Call(ctx, "estimatesmartfee", args, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// RescanBlockchain rescans the chain for wallet transactions from start to
// stop. A stop without a start rescans from genesis.
func (c *Client) RescanBlockchain(ctx context.Context, start *uint64, stop *uint64) (*types.RescanBlockchainResult, error) {
	args := util.HandleDefaults([]any{util.Opt(start), util.Opt(stop)}, []any{uint64(0), nil})
	var res types.RescanBlockchainResult
	if err := c.Call(ctx, "rescanblockchain", args, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) FinalizePSBT(ctx context.Context, psbt string, extract *bool) (*types.FinalizePSBTResult, error) {
	args := util.HandleDefaults([]any{psbt, util.Opt(extract)}, []any{true})
	var res types.FinalizePSBTResult
	if err := c.Call(ctx, "finalizepsbt", args, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) WalletProcessPSBT(ctx context.Context, psbt string, sign *bool, sighashType *SigHashType, bip32Derivs *bool) (*types.WalletProcessPSBTResult, error) {
	args := util.HandleDefaults(
		[]any{psbt, util.Opt(sign), util.Opt(sighashType), util.Opt(bip32Derivs)},
		[]any{true, SigHashAll, true},
	)
	var res types.WalletProcessPSBTResult
	if err := c.Call(ctx, "walletprocesspsbt", args, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// SubmitBlockHex submits a serialized block. The node answers null on
// acceptance and a reason string otherwise.
func (c *Client) SubmitBlockHex(ctx context.Context, blockHex string) error {
	var res json.RawMessage
	if err := c.Call(ctx, "submitblock", []any{blockHex}, &res); err != nil {
		return err
	}
	if len(res) == 0 || string(res) == "null" {
		return nil
	}
	var reason string
	if err := json.Unmarshal(res, &reason); err != nil {
		reason = string(res)
	}
	return types.NewReturnedError("submitblock", reason)
}

func (c *Client) Ping(ctx context.Context) error {
	return c.Call(ctx, "ping", nil, nil)
}

// Stop requests a node shutdown.
func (c *Client) Stop(ctx context.Context) (string, error) {
	return CallAs[string](ctx, c, "stop")
}

func (c *Client) callHash(ctx context.Context, method string, args []any) (*chainhash.Hash, error) {
	var hashStr string
	if err := c.Call(ctx, method, args, &hashStr); err != nil {
		return nil, err
	}
	hash, err := chainhash.NewHashFromStr(hashStr)
	if err != nil {
		return nil, types.NewDecodeError(err, hashStr)
	}
	return hash, nil
}
