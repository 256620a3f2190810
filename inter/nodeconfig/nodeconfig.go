// Package nodeconfig is the configuration document a worker hands to the
// peer node runtime for every node in its window. The coordinator writes it
// into window files; workers read it back.
package nodeconfig

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/rony4d/opera-p2p-fuzzer/inter/pair"
	"github.com/rony4d/opera-p2p-fuzzer/inter/peerid"
)

const (
	// NetworkType is the only network kind the fuzzer provisions.
	NetworkType = "evm"
	// ModuleType selects the p2p oracle module of the node runtime.
	ModuleType = "P2PModule"
	// MinimumUpdateInterval forces a report at least this often (ms).
	MinimumUpdateInterval = 1_800_000
)

// Config is one node's full configuration.
type Config struct {
	P2P      P2P       `json:"p2p"`
	Networks []Network `json:"networks"`
	Modules  []Module  `json:"modules"`
}

// P2P carries the node identity, where it listens and whom it dials.
type P2P struct {
	PeerID    peerid.Identity `json:"peer_id"`
	Addresses Addresses       `json:"addresses"`
	Peers     []string        `json:"peers"`
}

// Addresses lists enode URLs.
type Addresses struct {
	Listen []string `json:"listen"`
}

// Network describes the chain the node submits reports to. The signing key
// itself never appears here, only the environment variable holding it.
type Network struct {
	Type             string `json:"type"`
	NetworkID        uint64 `json:"networkId"`
	ChainID          uint64 `json:"chainId"`
	PrivateKeyEnvKey string `json:"privateKeyEnvKey"`
	RPC              string `json:"rpc"`
}

// Module configures the oracle module itself.
type Module struct {
	NetworkID             uint64           `json:"networkId"`
	ContractAddress       common.Address   `json:"contractAddress"`
	DeviationPercentage   float64          `json:"deviationPercentage"`
	MinimumUpdateInterval int              `json:"minimumUpdateInterval"`
	Pairs                 []pair.Pair      `json:"pairs"`
	Interval              int              `json:"interval"`
	LogFile               string           `json:"logFile"`
	Creator               common.Address   `json:"creator"`
	Signers               []common.Address `json:"signers"`
	Type                  string           `json:"type"`
}

// Window is the content of one window file.
type Window struct {
	Configs []Config `json:"configs"`
}
