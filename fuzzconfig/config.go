// Package fuzzconfig loads and validates the scenario configuration of one
// fuzz run. The YAML file (File) may leave most fields out; Parse fills the
// gaps with defaults, checks bounds and returns an immutable Config.

package fuzzconfig

import (
	"time"

	"github.com/rony4d/opera-p2p-fuzzer/inter/pair"
	"github.com/rony4d/opera-p2p-fuzzer/inter/peerid"
)

// File mirrors the YAML layout of a scenario configuration.
type File struct {
	GeneratePorts  bool         `yaml:"generate_ports"`
	Ports          []int        `yaml:"ports,omitempty"`
	GeneratePairs  bool         `yaml:"generate_pairs"`
	MinPairs       *int         `yaml:"min_pairs,omitempty"`
	MaxPairs       *int         `yaml:"max_pairs,omitempty"`
	BlockchainPort *int         `yaml:"blockchain_port,omitempty"`
	NodeConfig     NodeSettings `yaml:"node_config"`
	P2PConfig      P2PFile      `yaml:"p2p_config"`
}

// NodeSettings are passed through to every node configuration.
type NodeSettings struct {
	Networks  []string `yaml:"networks" json:"networks"`
	Interval  int      `yaml:"interval" json:"interval"`
	Deviation float64  `yaml:"deviation" json:"deviation"`
}

// P2PFile is the p2p_config section of File.
type P2PFile struct {
	MinNodes        *int        `yaml:"min_nodes,omitempty"`
	MaxNodes        *int        `yaml:"max_nodes,omitempty"`
	Pairs           []pair.Pair `yaml:"pairs,omitempty"`
	GeneratePeerIDs bool        `yaml:"generate_peer_ids"`
	MaxDecimals     *int        `yaml:"max_decimals,omitempty"`
	StringBytes     *int        `yaml:"string_bytes,omitempty"`
	PeerIDs         []string    `yaml:"peer_ids,omitempty"`

	AllowDisconnects       bool `yaml:"allow_disconnects"`
	DisconnectIntervalMin  *int `yaml:"disconnect_interval_min,omitempty"`
	DisconnectIntervalMax  *int `yaml:"disconnect_interval_max,omitempty"`
	RandomDisconnectChance *int `yaml:"random_disconnect_chance,omitempty"`
	ReconnectIntervalMin   *int `yaml:"reconnect_interval_min,omitempty"`
	ReconnectIntervalMax   *int `yaml:"reconnect_interval_max,omitempty"`

	RandomlyUpdateNodes   bool `yaml:"randomly_update_nodes"`
	UpdateNodesChance     *int `yaml:"update_nodes_chance,omitempty"`
	RandomlyUpdateReports bool `yaml:"randomly_update_reports"`
	UpdateReportsChance   *int `yaml:"update_reports_chance,omitempty"`
	OutdatedRoundsAllowed *int `yaml:"outdated_rounds_allowed,omitempty"`
	MajorUpdateChance     *int `yaml:"major_update_chance,omitempty"`
	MinorUpdateChance     *int `yaml:"minor_update_chance,omitempty"`

	// ReportResetUsesNodeVersion reconciles the report axis to the node
	// version watermark instead of its own.
	ReportResetUsesNodeVersion bool `yaml:"report_reset_uses_node_version,omitempty"`

	Window            *int   `yaml:"window,omitempty"`
	CreatorPrivKeyEnv string `yaml:"creator_priv_key_env,omitempty"`
}

// Range is a closed integer interval.
type Range struct {
	Min, Max int
}

// Config is the validated scenario configuration. It is never mutated after Parse.
type Config struct {
	Nodes Range
	Pairs Range

	// Ports is set when port generation is disabled; it then fixes the node count.
	Ports          []int
	BlockchainPort int

	// FixedPairs is set when pair generation is disabled.
	FixedPairs  []pair.Pair
	MaxDecimals int
	StringBytes int

	// PeerIDs is set when identity generation is disabled.
	PeerIDs []peerid.Identity

	Node NodeSettings

	Churn Churn
	Skew  Skew

	Window            int
	CreatorPrivKeyEnv string
}

// Churn drives random disconnects. Intervals are milliseconds, chances percent.
type Churn struct {
	AllowDisconnects       bool
	DisconnectInterval     Range
	RandomDisconnectChance int
	ReconnectInterval      Range
}

// Skew drives version drift across workers. Chances are percent.
type Skew struct {
	RandomlyUpdateNodes        bool
	UpdateNodesChance          int
	RandomlyUpdateReports      bool
	UpdateReportsChance        int
	OutdatedRoundsAllowed      int
	MajorUpdateChance          int
	MinorUpdateChance          int
	ReportResetUsesNodeVersion bool
}

// Ms converts a millisecond bound to a duration.
func Ms(v int) time.Duration {
	return time.Duration(v) * time.Millisecond
}

// ExplicitNodes reports whether the node list is fixed by supplied ports.
func (c *Config) ExplicitNodes() bool {
	return len(c.Ports) > 0
}

func or(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

// Parse fills defaults into f and validates the result.
func Parse(f File) (*Config, error) {
	if !f.GeneratePairs && len(f.P2PConfig.Pairs) == 0 {
		return nil, configErr("pairs", "must be specified when generate_pairs is off")
	}
	if !f.P2PConfig.GeneratePeerIDs && len(f.P2PConfig.PeerIDs) == 0 {
		return nil, configErr("peer_ids", "must be specified when generate_peer_ids is off")
	}
	if !f.GeneratePorts && len(f.Ports) == 0 {
		return nil, configErr("ports", "must be specified when generate_ports is off")
	}

	p := f.P2PConfig
	cfg := &Config{
		Nodes:          Range{or(p.MinNodes, DefaultMinNodes), or(p.MaxNodes, DefaultMaxNodes)},
		Pairs:          Range{or(f.MinPairs, DefaultMinPairs), or(f.MaxPairs, DefaultMaxPairs)},
		BlockchainPort: or(f.BlockchainPort, DefaultBlockchainPort),
		MaxDecimals:    or(p.MaxDecimals, DefaultMaxDecimals),
		StringBytes:    or(p.StringBytes, DefaultStringBytes),
		Node:           f.NodeConfig,
		Churn: Churn{
			AllowDisconnects:       p.AllowDisconnects,
			DisconnectInterval:     Range{or(p.DisconnectIntervalMin, DefaultDisconnectIntervalMin), or(p.DisconnectIntervalMax, DefaultDisconnectIntervalMax)},
			RandomDisconnectChance: or(p.RandomDisconnectChance, DefaultRandomDisconnectChance),
			ReconnectInterval:      Range{or(p.ReconnectIntervalMin, DefaultReconnectIntervalMin), or(p.ReconnectIntervalMax, DefaultReconnectIntervalMax)},
		},
		Skew: Skew{
			RandomlyUpdateNodes:        p.RandomlyUpdateNodes,
			UpdateNodesChance:          or(p.UpdateNodesChance, DefaultUpdateNodesChance),
			RandomlyUpdateReports:      p.RandomlyUpdateReports,
			UpdateReportsChance:        or(p.UpdateReportsChance, DefaultUpdateReportsChance),
			OutdatedRoundsAllowed:      or(p.OutdatedRoundsAllowed, DefaultOutdatedRoundsAllowed),
			MajorUpdateChance:          or(p.MajorUpdateChance, DefaultMajorUpdateChance),
			MinorUpdateChance:          or(p.MinorUpdateChance, DefaultMinorUpdateChance),
			ReportResetUsesNodeVersion: p.ReportResetUsesNodeVersion,
		},
		Window:            or(p.Window, DefaultWindow()),
		CreatorPrivKeyEnv: p.CreatorPrivKeyEnv,
	}
	if cfg.CreatorPrivKeyEnv == "" {
		cfg.CreatorPrivKeyEnv = DefaultCreatorPrivKeyEnv
	}
	if cfg.Node.Interval == 0 {
		cfg.Node.Interval = DefaultInterval
	}
	if len(cfg.Node.Networks) == 0 {
		cfg.Node.Networks = []string{"evm"}
	}
	if !f.GeneratePorts {
		cfg.Ports = append([]int(nil), f.Ports...)
	}
	if !f.GeneratePairs {
		cfg.FixedPairs = append([]pair.Pair(nil), p.Pairs...)
	}
	if !p.GeneratePeerIDs {
		for i, raw := range p.PeerIDs {
			id, err := peerid.FromString(raw)
			if err != nil {
				return nil, configErr("peer_ids", "entry %d: %v", i, err)
			}
			cfg.PeerIDs = append(cfg.PeerIDs, id)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Window <= 0 {
		return configErr("window", "must be >= 1, got %d", c.Window)
	}
	if err := checkRange("min_nodes/max_nodes", c.Nodes, 1); err != nil {
		return err
	}
	if err := checkRange("min_pairs/max_pairs", c.Pairs, 1); err != nil {
		return err
	}
	// Rounds need a non-zero pause between them.
	if err := checkRange("disconnect_interval", c.Churn.DisconnectInterval, 1); err != nil {
		return err
	}
	if err := checkRange("reconnect_interval", c.Churn.ReconnectInterval, 0); err != nil {
		return err
	}
	if c.MaxDecimals < 1 {
		return configErr("max_decimals", "must be >= 1, got %d", c.MaxDecimals)
	}
	if c.StringBytes < 1 {
		return configErr("string_bytes", "must be >= 1, got %d", c.StringBytes)
	}
	if c.Skew.OutdatedRoundsAllowed < 0 {
		return configErr("outdated_rounds_allowed", "must be >= 0, got %d", c.Skew.OutdatedRoundsAllowed)
	}
	chances := map[string]int{
		"random_disconnect_chance": c.Churn.RandomDisconnectChance,
		"update_nodes_chance":      c.Skew.UpdateNodesChance,
		"update_reports_chance":    c.Skew.UpdateReportsChance,
		"major_update_chance":      c.Skew.MajorUpdateChance,
		"minor_update_chance":      c.Skew.MinorUpdateChance,
	}
	for field, v := range chances {
		if v < 0 || v > 100 {
			return configErr(field, "must be a percentage in [0, 100], got %d", v)
		}
	}
	if c.ExplicitNodes() {
		seen := make(map[int]bool, len(c.Ports))
		for _, p := range c.Ports {
			if p <= 0 || p > 65535 {
				return configErr("ports", "invalid port %d", p)
			}
			if seen[p] {
				return configErr("ports", "duplicate port %d", p)
			}
			seen[p] = true
		}
		if c.PeerIDs != nil && len(c.PeerIDs) != len(c.Ports) {
			return configErr("peer_ids", "%d identities supplied for %d ports", len(c.PeerIDs), len(c.Ports))
		}
	}
	for i, p := range c.FixedPairs {
		if len(p.Sources) == 0 {
			return configErr("pairs", "pair %d (%s) has no source", i, p.Pair)
		}
	}
	return nil
}

func checkRange(field string, r Range, floor int) error {
	if r.Min < floor {
		return configErr(field, "lower bound must be >= %d, got %d", floor, r.Min)
	}
	if r.Max < r.Min {
		return configErr(field, "upper bound %d is below lower bound %d", r.Max, r.Min)
	}
	return nil
}
