// Package version models the semantic protocol versions that the fuzzer skews
// across worker processes. Two independent axes are tracked with this type:
// the node version and the report version.
package version

import (
	"fmt"
	"strconv"
	"strings"
)

// Version is a (major, minor, patch) triple. Versions order lexicographically.
type Version struct {
	Major uint32
	Minor uint32
	Patch uint32
}

// New builds a Version from its three components.
func New(major, minor, patch uint32) Version {
	return Version{Major: major, Minor: minor, Patch: patch}
}

// Parse reads a "major.minor.patch" string. Surrounding whitespace is ignored.
func Parse(s string) (Version, error) {
	parts := strings.Split(strings.TrimSpace(s), ".")
	if len(parts) != 3 {
		return Version{}, fmt.Errorf("invalid version %q: want major.minor.patch", s)
	}
	var nums [3]uint32
	for i, p := range parts {
		n, err := strconv.ParseUint(p, 10, 32)
		if err != nil {
			return Version{}, fmt.Errorf("invalid version %q: %w", s, err)
		}
		nums[i] = uint32(n)
	}
	return New(nums[0], nums[1], nums[2]), nil
}

// MustParse is like Parse but panics on malformed input.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// String formats the version as major.minor.patch.
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Compare returns -1, 0 or 1 when v is lower than, equal to or higher than o.
func (v Version) Compare(o Version) int {
	switch {
	case v.Major != o.Major:
		return cmp(v.Major, o.Major)
	case v.Minor != o.Minor:
		return cmp(v.Minor, o.Minor)
	default:
		return cmp(v.Patch, o.Patch)
	}
}

func cmp(a, b uint32) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Bump is the kind of increment applied to a version.
type Bump uint8

const (
	BumpPatch Bump = iota
	BumpMinor
	BumpMajor
)

func (b Bump) String() string {
	switch b {
	case BumpMajor:
		return "major"
	case BumpMinor:
		return "minor"
	default:
		return "patch"
	}
}

// Apply returns v incremented by b. Lower components reset to zero.
func (v Version) Apply(b Bump) Version {
	switch b {
	case BumpMajor:
		return New(v.Major+1, 0, 0)
	case BumpMinor:
		return New(v.Major, v.Minor+1, 0)
	default:
		return New(v.Major, v.Minor, v.Patch+1)
	}
}

// Latest returns the higher of a and b.
func Latest(a, b Version) Version {
	if a.Compare(b) >= 0 {
		return a
	}
	return b
}

// MarshalText encodes the version as major.minor.patch.
func (v Version) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText decodes a major.minor.patch string.
func (v *Version) UnmarshalText(input []byte) error {
	res, err := Parse(string(input))
	if err != nil {
		return err
	}
	*v = res
	return nil
}
