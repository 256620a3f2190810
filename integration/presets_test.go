package integration

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rony4d/opera-p2p-fuzzer/fuzzconfig"
)

// TestPresetsParse verifies that every preset, laid over the default file,
// yields a valid scenario configuration.
func TestPresetsParse(t *testing.T) {
	for _, name := range PresetNames {
		t.Run(name, func(t *testing.T) {
			require := require.New(t)

			preset, err := GetPresetByName(name)
			require.NoError(err)
			require.Equal(name, preset.Name)

			file := fuzzconfig.DefaultFile()
			ApplyPreset(&file, preset)
			cfg, err := fuzzconfig.Parse(file)
			require.NoError(err)
			require.Equal(preset.AllowDisconnects, cfg.Churn.AllowDisconnects)
			require.LessOrEqual(cfg.Churn.DisconnectInterval.Min, cfg.Churn.DisconnectInterval.Max)
		})
	}
}

func TestDefaultPresetIsQuiet(t *testing.T) {
	require := require.New(t)

	cfg := DefaultPreset()
	require.False(cfg.AllowDisconnects)
	require.False(cfg.RandomlyUpdateNodes)
	require.False(cfg.RandomlyUpdateReports)
	require.Equal(fuzzconfig.DefaultOutdatedRoundsAllowed, cfg.OutdatedRoundsAllowed)
}

func TestApplyPreset(t *testing.T) {
	require := require.New(t)

	file := fuzzconfig.DefaultFile()
	file.P2PConfig.MinNodes = nil
	ApplyPreset(&file, ChaosPreset())

	// Case 1: zero fields leave the file alone.
	require.Nil(file.P2PConfig.MinNodes)
	require.Equal(10, *file.P2PConfig.MaxNodes)

	// Case 2: set fields and toggles override.
	require.True(file.P2PConfig.AllowDisconnects)
	require.True(file.P2PConfig.RandomlyUpdateNodes)
	require.True(file.P2PConfig.RandomlyUpdateReports)
	require.Equal(80, *file.P2PConfig.UpdateNodesChance)
	require.Equal(80, *file.P2PConfig.UpdateReportsChance)
	require.Equal(1, *file.P2PConfig.OutdatedRoundsAllowed)

	// Case 3: a later preset replaces toggles of an earlier one.
	ApplyPreset(&file, SmokePreset())
	require.False(file.P2PConfig.RandomlyUpdateNodes)
	require.Equal(2, *file.P2PConfig.MinNodes)
	require.Equal(4, *file.P2PConfig.MaxNodes)
}

func TestGetPresetByNameUnknown(t *testing.T) {
	_, err := GetPresetByName("turbo")
	require.Error(t, err)
}
