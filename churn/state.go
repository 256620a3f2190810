package churn

import (
	"math/rand"

	"github.com/rony4d/opera-p2p-fuzzer/inter/version"
	"github.com/rony4d/opera-p2p-fuzzer/utils/rnd"
)

// Axis is one of the two independently tracked versions.
type Axis int

const (
	AxisNode Axis = iota
	AxisReport

	axes = 2
)

func (a Axis) String() string {
	if a == AxisReport {
		return "report"
	}
	return "node"
}

// State is the pool-level state of an axis.
type State int

const (
	Stable State = iota
	Mismatched
)

func (s State) String() string {
	if s == Mismatched {
		return "MISMATCHED"
	}
	return "STABLE"
}

// AxisState is the pool-level bookkeeping of one axis.
type AxisState struct {
	Watermark version.Version
	State     State
	Outdated  int
}

// Versions is the pair of versions a worker runs with.
type Versions struct {
	Node   version.Version
	Report version.Version
}

func (v Versions) get(a Axis) version.Version {
	if a == AxisReport {
		return v.Report
	}
	return v.Node
}

func (v *Versions) set(a Axis, ver version.Version) {
	if a == AxisReport {
		v.Report = ver
	} else {
		v.Node = ver
	}
}

// InitialVersions samples the versions every worker starts with: node
// versions in [0..3].[2..8].[3..11], report versions in [2..4].[0..1].[1..6].
func InitialVersions(r *rand.Rand) Versions {
	return Versions{
		Node: version.New(
			uint32(rnd.IntRange(r, 0, 3)),
			uint32(rnd.IntRange(r, 2, 8)),
			uint32(rnd.IntRange(r, 3, 11)),
		),
		Report: version.New(
			uint32(rnd.IntRange(r, 2, 4)),
			uint32(rnd.IntRange(r, 0, 1)),
			uint32(rnd.IntRange(r, 1, 6)),
		),
	}
}
