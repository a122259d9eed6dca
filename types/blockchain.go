package types

import (
	"encoding/json"
	"fmt"
)

type SoftforkType string

const (
	SoftforkTypeBuried SoftforkType = "buried"
	SoftforkTypeBip9   SoftforkType = "bip9"
)

func (t SoftforkType) Valid() bool {
	return t == SoftforkTypeBuried || t == SoftforkTypeBip9
}

func (t *SoftforkType) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	softforkType := SoftforkType(raw)
	if !softforkType.Valid() {
		return fmt.Errorf("unknown softfork type %q", raw)
	}
	*t = softforkType
	return nil
}

// Bip9SoftforkStatus is the versionbits deployment state.
type Bip9SoftforkStatus string

const (
	Bip9SoftforkStatusDefined  Bip9SoftforkStatus = "defined"
	Bip9SoftforkStatusStarted  Bip9SoftforkStatus = "started"
	Bip9SoftforkStatusLockedIn Bip9SoftforkStatus = "locked_in"
	Bip9SoftforkStatusActive   Bip9SoftforkStatus = "active"
	Bip9SoftforkStatusFailed   Bip9SoftforkStatus = "failed"
)

func (s Bip9SoftforkStatus) Valid() bool {
	switch s {
	case Bip9SoftforkStatusDefined, Bip9SoftforkStatusStarted, Bip9SoftforkStatusLockedIn,
		Bip9SoftforkStatusActive, Bip9SoftforkStatusFailed:
		return true
	}
	return false
}

func (s *Bip9SoftforkStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	status := Bip9SoftforkStatus(raw)
	if !status.Valid() {
		return fmt.Errorf("unknown bip9 softfork status %q", raw)
	}
	*s = status
	return nil
}

type Bip9SoftforkStatistics struct {
	Period    uint32  `json:"period"`
	Threshold *uint32 `json:"threshold,omitempty"`
	Elapsed   uint32  `json:"elapsed"`
	Count     uint32  `json:"count"`
	Possible  *bool   `json:"possible,omitempty"`
}

type Bip9SoftforkInfo struct {
	Status     Bip9SoftforkStatus      `json:"status"`
	Bit        *uint8                  `json:"bit,omitempty"`
	StartTime  int64                   `json:"start_time"`
	Timeout    uint64                  `json:"timeout"`
	Since      uint32                  `json:"since"`
	Statistics *Bip9SoftforkStatistics `json:"statistics,omitempty"`
}

// Softfork is the unified per-rule activation state.
type Softfork struct {
	Type   SoftforkType      `json:"type"`
	Bip9   *Bip9SoftforkInfo `json:"bip9,omitempty"`
	Height *uint32           `json:"height,omitempty"`
	Active bool              `json:"active"`
}

// Warnings accepts both the single string and the list form of the field.
type Warnings []string

func (w *Warnings) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		if single == "" {
			*w = Warnings{}
		} else {
			*w = Warnings{single}
		}
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*w = list
	return nil
}

// GetBlockchainInfoResult is the getblockchaininfo result with softforks in
// the map form regardless of server version.
type GetBlockchainInfoResult struct {
	Chain                string              `json:"chain"`
	Blocks               uint64              `json:"blocks"`
	Headers              uint64              `json:"headers"`
	BestBlockHash        string              `json:"bestblockhash"`
	Difficulty           float64             `json:"difficulty"`
	MedianTime           uint64              `json:"mediantime"`
	VerificationProgress float64             `json:"verificationprogress"`
	InitialBlockDownload bool                `json:"initialblockdownload"`
	ChainWork            string              `json:"chainwork"`
	SizeOnDisk           uint64              `json:"size_on_disk"`
	Pruned               bool                `json:"pruned"`
	PruneHeight          *uint64             `json:"pruneheight,omitempty"`
	AutomaticPruning     *bool               `json:"automatic_pruning,omitempty"`
	PruneTargetSize      *uint64             `json:"prune_target_size,omitempty"`
	Softforks            map[string]Softfork `json:"softforks"`
	Warnings             Warnings            `json:"warnings"`
}

type GetNetworkInfoResult struct {
	Version         uint64   `json:"version"`
	Subversion      string   `json:"subversion"`
	ProtocolVersion uint64   `json:"protocolversion"`
	LocalServices   string   `json:"localservices"`
	LocalRelay      bool     `json:"localrelay"`
	TimeOffset      int64    `json:"timeoffset"`
	Connections     uint64   `json:"connections"`
	NetworkActive   bool     `json:"networkactive"`
	RelayFee        float64  `json:"relayfee"`
	IncrementalFee  float64  `json:"incrementalfee"`
	Warnings        Warnings `json:"warnings"`
}

type EstimateSmartFeeResult struct {
	FeeRate *float64 `json:"feerate,omitempty"`
	Errors  []string `json:"errors,omitempty"`
	Blocks  int64    `json:"blocks"`
}

type RescanBlockchainResult struct {
	StartHeight uint64  `json:"start_height"`
	StopHeight  *uint64 `json:"stop_height"`
}

type FinalizePSBTResult struct {
	PSBT     string `json:"psbt,omitempty"`
	Hex      string `json:"hex,omitempty"`
	Complete bool   `json:"complete"`
}

type WalletProcessPSBTResult struct {
	PSBT     string `json:"psbt"`
	Complete bool   `json:"complete"`
}
