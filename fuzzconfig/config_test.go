package fuzzconfig

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rony4d/opera-p2p-fuzzer/inter/pair"
)

func TestParseDefaults(t *testing.T) {
	require := require.New(t)

	cfg, err := Parse(File{GeneratePorts: true, GeneratePairs: true, P2PConfig: P2PFile{GeneratePeerIDs: true}})
	require.NoError(err)

	require.Equal(Range{DefaultMinNodes, DefaultMaxNodes}, cfg.Nodes)
	require.Equal(Range{DefaultMinPairs, DefaultMaxPairs}, cfg.Pairs)
	require.Equal(Range{180000, 200000}, cfg.Churn.DisconnectInterval)
	require.Equal(Range{180000, 300000}, cfg.Churn.ReconnectInterval)
	require.Equal(DefaultRandomDisconnectChance, cfg.Churn.RandomDisconnectChance)
	require.Equal(DefaultOutdatedRoundsAllowed, cfg.Skew.OutdatedRoundsAllowed)
	require.Equal(DefaultWindow(), cfg.Window)
	require.Equal(DefaultCreatorPrivKeyEnv, cfg.CreatorPrivKeyEnv)
	require.Equal(DefaultBlockchainPort, cfg.BlockchainPort)
	require.Equal([]string{"evm"}, cfg.Node.Networks)
	require.False(cfg.ExplicitNodes())
	require.Nil(cfg.FixedPairs)
	require.Nil(cfg.PeerIDs)
}

// TestParseRejects walks every configuration error that must be raised
// before anything is spawned.
func TestParseRejects(t *testing.T) {
	base := func() File {
		return File{GeneratePorts: true, GeneratePairs: true, P2PConfig: P2PFile{GeneratePeerIDs: true}}
	}

	tests := []struct {
		name  string
		field string
		edit  func(f *File)
	}{
		{"pairs disabled without pairs", "pairs", func(f *File) { f.GeneratePairs = false }},
		{"peer ids disabled without ids", "peer_ids", func(f *File) { f.P2PConfig.GeneratePeerIDs = false }},
		{"ports disabled without ports", "ports", func(f *File) { f.GeneratePorts = false }},
		{"zero window", "window", func(f *File) { f.P2PConfig.Window = intp(0) }},
		{"negative window", "window", func(f *File) { f.P2PConfig.Window = intp(-2) }},
		{"inverted node range", "min_nodes/max_nodes", func(f *File) {
			f.P2PConfig.MinNodes, f.P2PConfig.MaxNodes = intp(5), intp(4)
		}},
		{"zero nodes", "min_nodes/max_nodes", func(f *File) { f.P2PConfig.MinNodes = intp(0) }},
		{"zero disconnect interval", "disconnect_interval", func(f *File) {
			f.P2PConfig.DisconnectIntervalMin, f.P2PConfig.DisconnectIntervalMax = intp(0), intp(0)
		}},
		{"inverted disconnect interval", "disconnect_interval", func(f *File) {
			f.P2PConfig.DisconnectIntervalMin, f.P2PConfig.DisconnectIntervalMax = intp(10), intp(5)
		}},
		{"chance above 100", "major_update_chance", func(f *File) { f.P2PConfig.MajorUpdateChance = intp(101) }},
		{"duplicate ports", "ports", func(f *File) { f.GeneratePorts = false; f.Ports = []int{9000, 9000} }},
		{"bad peer id", "peer_ids", func(f *File) {
			f.P2PConfig.GeneratePeerIDs = false
			f.P2PConfig.PeerIDs = []string{"zz"}
		}},
		{"pair without source", "pairs", func(f *File) {
			f.GeneratePairs = false
			f.P2PConfig.Pairs = []pair.Pair{{Pair: "X", Decimals: 1}}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := base()
			tt.edit(&f)
			_, err := Parse(f)
			require.Error(t, err)
			require.True(t, errors.Is(err, ErrConfiguration), err.Error())

			var cerr *ConfigurationError
			require.True(t, errors.As(err, &cerr))
			require.Equal(t, tt.field, cerr.Field)
		})
	}
}

// TestParseRejectsEmptyLists covers lists that are present in the file but
// empty while their generation is turned off.
func TestParseRejectsEmptyLists(t *testing.T) {
	tests := []struct {
		name  string
		field string
		raw   string
	}{
		{"empty ports", "ports", "generate_ports: false\nports: []\ngenerate_pairs: true\np2p_config:\n  generate_peer_ids: true\n"},
		{"empty pairs", "pairs", "generate_ports: true\ngenerate_pairs: false\np2p_config:\n  generate_peer_ids: true\n  pairs: []\n"},
		{"empty peer ids", "peer_ids", "generate_ports: true\ngenerate_pairs: true\np2p_config:\n  generate_peer_ids: false\n  peer_ids: []\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require := require.New(t)

			f, err := Decode([]byte(tt.raw))
			require.NoError(err)

			_, err = Parse(f)
			require.True(errors.Is(err, ErrConfiguration), "expected a configuration error, got %v", err)

			var cerr *ConfigurationError
			require.True(errors.As(err, &cerr))
			require.Equal(tt.field, cerr.Field)
		})
	}
}

func TestParseExplicitNodes(t *testing.T) {
	require := require.New(t)

	f := File{
		GeneratePorts: false,
		Ports:         []int{9100, 9101, 9102},
		GeneratePairs: false,
		P2PConfig: P2PFile{
			GeneratePeerIDs: true,
			Pairs: []pair.Pair{{
				Pair:     "ETH/USD",
				Decimals: 8,
				Sources:  []pair.Source{{SourcePath: pair.SourcePaths[6], EndPoint: pair.EndPoints[1]}},
			}},
		},
	}
	cfg, err := Parse(f)
	require.NoError(err)
	require.True(cfg.ExplicitNodes())
	require.Equal([]int{9100, 9101, 9102}, cfg.Ports)
	require.Len(cfg.FixedPairs, 1)
}

func TestLoadWritesDefaultWhenMissing(t *testing.T) {
	require := require.New(t)

	path := filepath.Join(t.TempDir(), "nested", "fuzz.yaml")
	_, err := Load(path)
	require.Error(err)
	require.True(errors.Is(err, ErrMissingConfig))

	_, statErr := os.Stat(path)
	require.NoError(statErr)

	// The generated default is itself a valid configuration.
	cfg, err := Load(path)
	require.NoError(err)
	require.Equal(Range{3, 10}, cfg.Nodes)
	require.False(cfg.Churn.AllowDisconnects)
}

func TestDecodeYAML(t *testing.T) {
	require := require.New(t)

	raw := []byte(`
generate_ports: true
generate_pairs: true
min_pairs: 2
max_pairs: 4
node_config:
  networks: [evm]
  interval: 60000
  deviation: 0.5
p2p_config:
  min_nodes: 5
  max_nodes: 5
  generate_peer_ids: true
  allow_disconnects: true
  random_disconnect_chance: 40
  randomly_update_nodes: true
  outdated_rounds_allowed: 2
  window: 2
`)
	f, err := Decode(raw)
	require.NoError(err)
	cfg, err := Parse(f)
	require.NoError(err)

	require.Equal(Range{5, 5}, cfg.Nodes)
	require.Equal(Range{2, 4}, cfg.Pairs)
	require.Equal(60000, cfg.Node.Interval)
	require.Equal(0.5, cfg.Node.Deviation)
	require.True(cfg.Churn.AllowDisconnects)
	require.Equal(40, cfg.Churn.RandomDisconnectChance)
	require.True(cfg.Skew.RandomlyUpdateNodes)
	require.False(cfg.Skew.RandomlyUpdateReports)
	require.Equal(2, cfg.Skew.OutdatedRoundsAllowed)
	require.Equal(2, cfg.Window)

	_, err = Decode([]byte("unknown_key: 1\n"))
	require.Error(err)
}
