package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"slices"

	"github.com/initia-labs/corerpc/types"
)

// UnifiedSoftforksVersion is the first server version returning softforks
// as a single map. Older servers split them into a "softforks" array of
// buried deployments and a "bip9_softforks" map.
const UnifiedSoftforksVersion ServerVersion = 190000

// GetBlockchainInfo returns state info regarding blockchain processing, with
// softforks in the map form whatever the server version.
func (c *Client) GetBlockchainInfo(ctx context.Context) (*types.GetBlockchainInfoResult, error) {
	version, err := c.Version(ctx)
	if err != nil {
		return nil, err
	}
	return c.GetBlockchainInfoAt(ctx, version)
}

// GetBlockchainInfoAt is GetBlockchainInfo for a server version the caller
// already fetched.
func (c *Client) GetBlockchainInfoAt(ctx context.Context, version ServerVersion) (*types.GetBlockchainInfoResult, error) {
	var raw json.RawMessage
	if err := c.Call(ctx, "getblockchaininfo", nil, &raw); err != nil {
		return nil, err
	}

	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, types.NewDecodeError(fmt.Errorf("null getblockchaininfo result"), string(raw))
	}
	if version >= UnifiedSoftforksVersion {
		var res types.GetBlockchainInfoResult
		if err := json.Unmarshal(raw, &res); err != nil {
			return nil, types.NewDecodeError(err, string(raw))
		}
		return &res, nil
	}
	return upgradeLegacyBlockchainInfo(raw)
}

// legacySoftfork is one pre-unification softfork entry.
type legacySoftfork interface {
	unify() (string, types.Softfork)
}

// legacyBuriedSoftfork comes from the "softforks" array.
type legacyBuriedSoftfork struct {
	id     string
	active bool
}

func (l legacyBuriedSoftfork) unify() (string, types.Softfork) {
	return l.id, types.Softfork{
		Type:   types.SoftforkTypeBuried,
		Active: l.active,
	}
}

// legacyVersionbitsSoftfork comes from the "bip9_softforks" map.
type legacyVersionbitsSoftfork struct {
	id   string
	info types.Bip9SoftforkInfo
}

func (l legacyVersionbitsSoftfork) unify() (string, types.Softfork) {
	info := l.info
	return l.id, types.Softfork{
		Type:   types.SoftforkTypeBip9,
		Bip9:   &info,
		Active: info.Status == types.Bip9SoftforkStatusActive,
	}
}

// legacyBip9Fields uses pointers so missing fields can be told apart from
// zero values.
type legacyBip9Fields struct {
	Status     *types.Bip9SoftforkStatus     `json:"status"`
	Bit        *uint8                        `json:"bit"`
	StartTime  *int64                        `json:"startTime"`
	Timeout    *uint64                       `json:"timeout"`
	Since      *uint32                       `json:"since"`
	Statistics *types.Bip9SoftforkStatistics `json:"statistics"`
}

func upgradeLegacyBlockchainInfo(raw json.RawMessage) (*types.GetBlockchainInfoResult, error) {
	tree, err := decodeTree(raw)
	if err != nil {
		return nil, types.NewUnexpectedStructureError("getblockchaininfo result is not valid JSON", err)
	}
	obj, ok := tree.(map[string]any)
	if !ok {
		return nil, types.NewUnexpectedStructureError("getblockchaininfo result is not an object", nil)
	}

	bip9Softforks, ok := obj["bip9_softforks"]
	if !ok {
		return nil, types.NewUnexpectedStructureError("missing bip9_softforks", nil)
	}
	oldSoftforks, ok := obj["softforks"]
	if !ok {
		return nil, types.NewUnexpectedStructureError("missing softforks", nil)
	}
	delete(obj, "bip9_softforks")
	obj["softforks"] = map[string]any{}

	stripped, err := json.Marshal(obj)
	if err != nil {
		return nil, types.NewUnexpectedStructureError("failed to re-encode getblockchaininfo", err)
	}
	var res types.GetBlockchainInfoResult
	if err := json.Unmarshal(stripped, &res); err != nil {
		return nil, types.NewDecodeError(err, string(raw))
	}

	legacy, err := parseLegacySoftforks(oldSoftforks, bip9Softforks)
	if err != nil {
		return nil, err
	}
	if res.Softforks == nil {
		res.Softforks = make(map[string]types.Softfork, len(legacy))
	}
	for _, sf := range legacy {
		id, softfork := sf.unify()
		res.Softforks[id] = softfork
	}
	return &res, nil
}

func parseLegacySoftforks(buried, bip9 any) ([]legacySoftfork, error) {
	buriedList, ok := buried.([]any)
	if !ok {
		return nil, types.NewUnexpectedStructureError("softforks is not an array", nil)
	}
	bip9Map, ok := bip9.(map[string]any)
	if !ok {
		return nil, types.NewUnexpectedStructureError("bip9_softforks is not an object", nil)
	}

	out := make([]legacySoftfork, 0, len(buriedList)+len(bip9Map))
	for i, entry := range buriedList {
		sf, err := parseLegacyBuried(entry)
		if err != nil {
			return nil, types.NewUnexpectedStructureError(fmt.Sprintf("softforks[%d]", i), err)
		}
		out = append(out, sf)
	}
	for _, id := range slices.Sorted(maps.Keys(bip9Map)) {
		sf, err := parseLegacyVersionbits(id, bip9Map[id])
		if err != nil {
			return nil, types.NewUnexpectedStructureError(fmt.Sprintf("bip9_softforks[%s]", id), err)
		}
		out = append(out, sf)
	}
	return out, nil
}

func parseLegacyBuried(entry any) (legacyBuriedSoftfork, error) {
	obj, ok := entry.(map[string]any)
	if !ok {
		return legacyBuriedSoftfork{}, fmt.Errorf("entry is not an object")
	}
	id, ok := obj["id"].(string)
	if !ok {
		return legacyBuriedSoftfork{}, fmt.Errorf("id is missing or not a string")
	}
	reject, ok := obj["reject"].(map[string]any)
	if !ok {
		return legacyBuriedSoftfork{}, fmt.Errorf("reject is missing or not an object")
	}
	active, ok := reject["status"].(bool)
	if !ok {
		return legacyBuriedSoftfork{}, fmt.Errorf("reject.status is missing or not a bool")
	}
	return legacyBuriedSoftfork{id: id, active: active}, nil
}

func parseLegacyVersionbits(id string, entry any) (legacyVersionbitsSoftfork, error) {
	if _, ok := entry.(map[string]any); !ok {
		return legacyVersionbitsSoftfork{}, fmt.Errorf("entry is not an object")
	}
	encoded, err := json.Marshal(entry)
	if err != nil {
		return legacyVersionbitsSoftfork{}, err
	}
	var fields legacyBip9Fields
	if err := json.Unmarshal(encoded, &fields); err != nil {
		return legacyVersionbitsSoftfork{}, err
	}

	switch {
	case fields.Status == nil:
		return legacyVersionbitsSoftfork{}, fmt.Errorf("status is missing")
	case fields.StartTime == nil:
		return legacyVersionbitsSoftfork{}, fmt.Errorf("startTime is missing")
	case fields.Timeout == nil:
		return legacyVersionbitsSoftfork{}, fmt.Errorf("timeout is missing")
	case fields.Since == nil:
		return legacyVersionbitsSoftfork{}, fmt.Errorf("since is missing")
	}

	return legacyVersionbitsSoftfork{
		id: id,
		info: types.Bip9SoftforkInfo{
			Status:     *fields.Status,
			Bit:        fields.Bit,
			StartTime:  *fields.StartTime,
			Timeout:    *fields.Timeout,
			Since:      *fields.Since,
			Statistics: fields.Statistics,
		},
	}, nil
}

// decodeTree parses raw into a generic tree, keeping numbers exact.
func decodeTree(raw json.RawMessage) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var tree any
	if err := dec.Decode(&tree); err != nil {
		return nil, err
	}
	return tree, nil
}
