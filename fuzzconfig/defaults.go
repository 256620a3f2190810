package fuzzconfig

import "runtime"

// Defaults applied to every optional field left out of the YAML file.
// Intervals are in milliseconds and chances in percent.
const (
	DefaultMinNodes = 2
	DefaultMaxNodes = 20
	DefaultMinPairs = 1
	DefaultMaxPairs = 7

	DefaultMaxDecimals = 8
	DefaultStringBytes = 8

	DefaultDisconnectIntervalMin  = 180_000
	DefaultDisconnectIntervalMax  = 200_000
	DefaultRandomDisconnectChance = 15
	DefaultReconnectIntervalMin   = 180_000
	DefaultReconnectIntervalMax   = 300_000

	DefaultUpdateNodesChance     = 15
	DefaultUpdateReportsChance   = 15
	DefaultOutdatedRoundsAllowed = 3
	DefaultMajorUpdateChance     = 15
	DefaultMinorUpdateChance     = 15

	DefaultBlockchainPort    = 8545
	DefaultCreatorPrivKeyEnv = "EVM_PRIVATE_KEY0"

	DefaultInterval  = 180_000
	DefaultDeviation = 0.3
)

// DefaultWindow is the number of nodes per worker process when unset: one
// worker per CPU.
func DefaultWindow() int {
	return runtime.NumCPU()
}

func intp(v int) *int { return &v }

// DefaultFile is the configuration written when the given path does not exist.
func DefaultFile() File {
	return File{
		GeneratePorts:  true,
		GeneratePairs:  true,
		MinPairs:       intp(DefaultMinPairs),
		MaxPairs:       intp(DefaultMaxPairs),
		BlockchainPort: intp(DefaultBlockchainPort),
		NodeConfig: NodeSettings{
			Networks:  []string{"evm"},
			Interval:  DefaultInterval,
			Deviation: DefaultDeviation,
		},
		P2PConfig: P2PFile{
			MinNodes:               intp(3),
			MaxNodes:               intp(10),
			GeneratePeerIDs:        true,
			AllowDisconnects:       false,
			DisconnectIntervalMin:  intp(DefaultDisconnectIntervalMin),
			DisconnectIntervalMax:  intp(DefaultDisconnectIntervalMax),
			RandomDisconnectChance: intp(DefaultRandomDisconnectChance),
			ReconnectIntervalMin:   intp(DefaultReconnectIntervalMin),
			ReconnectIntervalMax:   intp(DefaultReconnectIntervalMax),
			RandomlyUpdateNodes:    false,
			RandomlyUpdateReports:  false,
			OutdatedRoundsAllowed:  intp(DefaultOutdatedRoundsAllowed),
			CreatorPrivKeyEnv:      DefaultCreatorPrivKeyEnv,
		},
	}
}
