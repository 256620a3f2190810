package scenario

import (
	"fmt"

	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/ethereum/go-ethereum/common"

	"github.com/rony4d/opera-p2p-fuzzer/fuzzconfig"
	"github.com/rony4d/opera-p2p-fuzzer/inter/nodeconfig"
	"github.com/rony4d/opera-p2p-fuzzer/inter/pair"
	"github.com/rony4d/opera-p2p-fuzzer/inter/peerid"
)

// CreatorID is the node bound to the chain's own funding identity.
const CreatorID idx.ValidatorID = 0

// NodeDescriptor is one simulated peer after funding.
type NodeDescriptor struct {
	ID            idx.ValidatorID `json:"id"`
	Port          int             `json:"port"`
	PeerID        peerid.Identity `json:"peer_id"`
	Address       common.Address  `json:"address"`
	PrivateKeyEnv string          `json:"private_key_env"`
	RPC           string          `json:"rpc"`
}

// URL is the enode URL the node listens on.
func (n NodeDescriptor) URL() string {
	return n.PeerID.URL(n.Port)
}

// Topology lists nodes ordered by id; ids run 0..len-1.
type Topology []NodeDescriptor

// Check verifies the structural invariants: contiguous ids from zero and
// pairwise distinct ports.
func (t Topology) Check() error {
	ports := make(map[int]idx.ValidatorID, len(t))
	for i, n := range t {
		if n.ID != idx.ValidatorID(i) {
			return fmt.Errorf("node at position %d has id %d", i, n.ID)
		}
		if other, ok := ports[n.Port]; ok {
			return fmt.Errorf("nodes %d and %d share port %d", other, n.ID, n.Port)
		}
		ports[n.Port] = n.ID
	}
	return nil
}

// Deployment is what node configurations need to know about the chain.
type Deployment struct {
	Contract  common.Address
	Creator   common.Address
	NetworkID uint64
	ChainID   uint64
}

// NodeConfigs builds one configuration per node. Each node dials every other
// node and accepts the creator plus every other node as co-signer.
func (t Topology) NodeConfigs(settings fuzzconfig.NodeSettings, pairs []pair.Pair, d Deployment) []nodeconfig.Config {
	configs := make([]nodeconfig.Config, len(t))
	for i, n := range t {
		peers := make([]string, 0, len(t)-1)
		signers := make([]common.Address, 0, len(t))
		signers = append(signers, d.Creator)
		for j, p := range t {
			if j == i {
				continue
			}
			peers = append(peers, p.URL())
			signers = append(signers, p.Address)
		}

		configs[i] = nodeconfig.Config{
			P2P: nodeconfig.P2P{
				PeerID:    n.PeerID,
				Addresses: nodeconfig.Addresses{Listen: []string{n.URL()}},
				Peers:     peers,
			},
			Networks: []nodeconfig.Network{{
				Type:             nodeconfig.NetworkType,
				NetworkID:        d.NetworkID,
				ChainID:          d.ChainID,
				PrivateKeyEnvKey: n.PrivateKeyEnv,
				RPC:              n.RPC,
			}},
			Modules: []nodeconfig.Module{{
				NetworkID:             d.NetworkID,
				ContractAddress:       d.Contract,
				DeviationPercentage:   settings.Deviation,
				MinimumUpdateInterval: nodeconfig.MinimumUpdateInterval,
				Pairs:                 pairs,
				Interval:              settings.Interval,
				LogFile:               fmt.Sprintf("node%d_logs", n.ID),
				Creator:               d.Creator,
				Signers:               signers,
				Type:                  nodeconfig.ModuleType,
			}},
		}
	}
	return configs
}

// Span is the half-open index range [Start, End) of one window.
type Span struct {
	Start, End int
}

// Len is the number of nodes in the window.
func (s Span) Len() int {
	return s.End - s.Start
}

// Windows cuts n nodes into ceil(n/size) contiguous spans of at most size
// nodes. Only the last span may be shorter.
func Windows(n, size int) []Span {
	if size <= 0 {
		panic("window size must be positive")
	}
	spans := make([]Span, 0, (n+size-1)/size)
	for start := 0; start < n; start += size {
		end := start + size
		if end > n {
			end = n
		}
		spans = append(spans, Span{Start: start, End: end})
	}
	return spans
}

// Partition splits configs into windows of at most size entries.
func Partition(configs []nodeconfig.Config, size int) [][]nodeconfig.Config {
	spans := Windows(len(configs), size)
	out := make([][]nodeconfig.Config, len(spans))
	for i, s := range spans {
		out[i] = configs[s.Start:s.End]
	}
	return out
}
