// Package port finds free local TCP ports for the simulated nodes and the
// funding chain. A port is considered free when nothing accepts a connection
// on it and no earlier allocation of the same run has claimed it.
package port

import (
	"errors"
	"fmt"
	"math/rand"
	"net"
	"strconv"
	"time"

	"github.com/rony4d/opera-p2p-fuzzer/utils/rnd"
)

const (
	// DefaultMin and DefaultMax bound the range ports are sampled from.
	DefaultMin = 8000
	DefaultMax = 12000

	defaultProbeTimeout = time.Second
)

// ErrExhausted is returned when every port of the range has already been handed out.
var ErrExhausted = errors.New("port range exhausted")

// Set records the ports claimed during one run.
type Set map[int]struct{}

// Has reports whether p has been claimed.
func (s Set) Has(p int) bool {
	_, ok := s[p]
	return ok
}

// Add claims p.
func (s Set) Add(p int) {
	s[p] = struct{}{}
}

// Allocator samples candidate ports and probes them on localhost.
type Allocator struct {
	Min, Max int
	Host     string

	// Reachable reports whether something already listens on the port.
	// Defaults to a TCP connect probe.
	Reachable func(port int) bool

	rng *rand.Rand
}

// NewAllocator returns an allocator over [DefaultMin, DefaultMax] probing localhost.
func NewAllocator(r *rand.Rand) *Allocator {
	a := &Allocator{
		Min:  DefaultMin,
		Max:  DefaultMax,
		Host: "localhost",
		rng:  r,
	}
	a.Reachable = func(port int) bool {
		return IsReachable(a.Host, port, defaultProbeTimeout)
	}
	return a
}

// Allocate returns a port that is neither reachable nor in taken, and adds it to taken.
func (a *Allocator) Allocate(taken Set) (int, error) {
	if a.exhausted(taken) {
		return 0, fmt.Errorf("%w: [%d, %d]", ErrExhausted, a.Min, a.Max)
	}
	for {
		p := rnd.IntRange(a.rng, a.Min, a.Max)
		if taken.Has(p) || a.Reachable(p) {
			continue
		}
		taken.Add(p)
		return p, nil
	}
}

// Free reports whether p can be bound right now, i.e. nothing answers on it.
func (a *Allocator) Free(p int) bool {
	return !a.Reachable(p)
}

func (a *Allocator) exhausted(taken Set) bool {
	n := 0
	for p := range taken {
		if p >= a.Min && p <= a.Max {
			n++
		}
	}
	return n >= a.Max-a.Min+1
}

// IsReachable dials host:port and reports whether the connection succeeded.
func IsReachable(host string, port int, timeout time.Duration) bool {
	conn, err := net.DialTimeout("tcp", net.JoinHostPort(host, strconv.Itoa(port)), timeout)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}
