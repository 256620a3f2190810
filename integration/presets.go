// Package integration provides scenario presets: named bundles of churn and
// version-skew settings that can be laid over a scenario file with
// --preset, so a run can be switched from a quiet baseline to heavy chaos
// without editing the file.
//
// Usage:
//
//	preset, err := integration.GetPresetByName("chaos")
//	integration.ApplyPreset(&file, preset)
//
// Presets touch only churn, skew and population size. Ports, pairs, peer
// identities and node settings always come from the file.
package integration

import (
	"fmt"

	"github.com/rony4d/opera-p2p-fuzzer/fuzzconfig"
)

// PresetConfig captures the knobs that vary across presets. Intervals are in
// milliseconds, chances in percent. Zero numeric fields leave the file value
// alone; the toggles are always applied.
type PresetConfig struct {
	Name string // identifier used by --preset

	MinNodes int // lower bound of the population
	MaxNodes int // upper bound of the population

	AllowDisconnects       bool // random churn on/off
	DisconnectIntervalMin  int  // shortest pause between rounds
	DisconnectIntervalMax  int  // longest pause between rounds
	RandomDisconnectChance int  // chance of one random disconnect per round
	ReconnectIntervalMin   int  // shortest downtime of a disconnected worker
	ReconnectIntervalMax   int  // longest downtime of a disconnected worker

	RandomlyUpdateNodes   bool // node version drift on/off
	RandomlyUpdateReports bool // report version drift on/off
	UpdateChance          int  // chance of a bump on respawn, both axes
	MajorUpdateChance     int  // chance a bump is major
	MinorUpdateChance     int  // chance a non-major bump is minor
	OutdatedRoundsAllowed int  // rounds a mismatch is tolerated
}

// DefaultPreset is the quiet baseline: no churn and no drift.
func DefaultPreset() PresetConfig {
	return PresetConfig{
		Name:                   "default",
		DisconnectIntervalMin:  fuzzconfig.DefaultDisconnectIntervalMin,
		DisconnectIntervalMax:  fuzzconfig.DefaultDisconnectIntervalMax,
		RandomDisconnectChance: fuzzconfig.DefaultRandomDisconnectChance,
		ReconnectIntervalMin:   fuzzconfig.DefaultReconnectIntervalMin,
		ReconnectIntervalMax:   fuzzconfig.DefaultReconnectIntervalMax,
		UpdateChance:           fuzzconfig.DefaultUpdateNodesChance,
		MajorUpdateChance:      fuzzconfig.DefaultMajorUpdateChance,
		MinorUpdateChance:      fuzzconfig.DefaultMinorUpdateChance,
		OutdatedRoundsAllowed:  fuzzconfig.DefaultOutdatedRoundsAllowed,
	}
}

// SmokePreset is a tiny, fast-cycling run for checking a setup end to end.
func SmokePreset() PresetConfig {
	cfg := DefaultPreset()
	cfg.Name = "smoke"
	cfg.MinNodes = 2
	cfg.MaxNodes = 4
	cfg.AllowDisconnects = true
	cfg.DisconnectIntervalMin = 5_000 // a round every 5-10s
	cfg.DisconnectIntervalMax = 10_000
	cfg.RandomDisconnectChance = 50
	cfg.ReconnectIntervalMin = 2_000 // back within seconds
	cfg.ReconnectIntervalMax = 5_000
	return cfg
}

// ChurnPreset disconnects often but keeps every worker on one version.
func ChurnPreset() PresetConfig {
	cfg := DefaultPreset()
	cfg.Name = "churn"
	cfg.AllowDisconnects = true
	cfg.DisconnectIntervalMin = 20_000
	cfg.DisconnectIntervalMax = 40_000
	cfg.RandomDisconnectChance = 60
	cfg.ReconnectIntervalMin = 10_000
	cfg.ReconnectIntervalMax = 30_000
	return cfg
}

// SkewPreset lets versions drift on both axes and reconciles quickly.
func SkewPreset() PresetConfig {
	cfg := ChurnPreset()
	cfg.Name = "skew"
	cfg.RandomDisconnectChance = 50
	cfg.RandomlyUpdateNodes = true
	cfg.RandomlyUpdateReports = true
	cfg.UpdateChance = 50
	cfg.MajorUpdateChance = 30
	cfg.MinorUpdateChance = 30
	cfg.OutdatedRoundsAllowed = 2
	return cfg
}

// ChaosPreset turns everything up.
func ChaosPreset() PresetConfig {
	cfg := SkewPreset()
	cfg.Name = "chaos"
	cfg.DisconnectIntervalMin = 5_000
	cfg.DisconnectIntervalMax = 15_000
	cfg.RandomDisconnectChance = 80
	cfg.ReconnectIntervalMin = 5_000
	cfg.ReconnectIntervalMax = 15_000
	cfg.UpdateChance = 80
	cfg.MajorUpdateChance = 40
	cfg.OutdatedRoundsAllowed = 1
	return cfg
}

// PresetNames lists the known presets.
var PresetNames = []string{"default", "smoke", "churn", "skew", "chaos"}

// GetPresetByName looks up a preset by its identifier.
func GetPresetByName(name string) (PresetConfig, error) {
	switch name {
	case "default":
		return DefaultPreset(), nil
	case "smoke":
		return SmokePreset(), nil
	case "churn":
		return ChurnPreset(), nil
	case "skew":
		return SkewPreset(), nil
	case "chaos":
		return ChaosPreset(), nil
	default:
		return PresetConfig{}, fmt.Errorf("unknown preset: %q (valid: %v)", name, PresetNames)
	}
}

func setInt(dst **int, v int) {
	if v > 0 {
		*dst = &v
	}
}

// ApplyPreset lays preset over a scenario file before it is parsed.
func ApplyPreset(target *fuzzconfig.File, preset PresetConfig) {
	p := &target.P2PConfig
	setInt(&p.MinNodes, preset.MinNodes)
	setInt(&p.MaxNodes, preset.MaxNodes)

	p.AllowDisconnects = preset.AllowDisconnects
	setInt(&p.DisconnectIntervalMin, preset.DisconnectIntervalMin)
	setInt(&p.DisconnectIntervalMax, preset.DisconnectIntervalMax)
	setInt(&p.RandomDisconnectChance, preset.RandomDisconnectChance)
	setInt(&p.ReconnectIntervalMin, preset.ReconnectIntervalMin)
	setInt(&p.ReconnectIntervalMax, preset.ReconnectIntervalMax)

	p.RandomlyUpdateNodes = preset.RandomlyUpdateNodes
	p.RandomlyUpdateReports = preset.RandomlyUpdateReports
	setInt(&p.UpdateNodesChance, preset.UpdateChance)
	setInt(&p.UpdateReportsChance, preset.UpdateChance)
	setInt(&p.MajorUpdateChance, preset.MajorUpdateChance)
	setInt(&p.MinorUpdateChance, preset.MinorUpdateChance)
	setInt(&p.OutdatedRoundsAllowed, preset.OutdatedRoundsAllowed)
}
