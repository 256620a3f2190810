// Package scenario draws the random shape of a fuzz run: how many nodes,
// which ports and identities they use and which trading pairs they report
// on. It also turns a funded topology into per-node configurations and cuts
// them into worker windows.
package scenario

import (
	"fmt"
	"math/rand"

	"github.com/rony4d/opera-p2p-fuzzer/fuzzconfig"
	"github.com/rony4d/opera-p2p-fuzzer/inter/pair"
	"github.com/rony4d/opera-p2p-fuzzer/inter/peerid"
	"github.com/rony4d/opera-p2p-fuzzer/utils/port"
	"github.com/rony4d/opera-p2p-fuzzer/utils/rnd"
)

// PortAllocator hands out free local ports.
type PortAllocator interface {
	Allocate(taken port.Set) (int, error)
}

// Scenario is the generated, not yet funded, shape of a run.
type Scenario struct {
	NumNodes int
	Ports    []int
	PeerIDs  []peerid.Identity
	Pairs    []pair.Pair
}

// Generator produces scenarios from a validated configuration.
type Generator struct {
	cfg   *fuzzconfig.Config
	rng   *rand.Rand
	ports PortAllocator

	// NewIdentity creates peer identities when none are supplied.
	NewIdentity func() (peerid.Identity, error)
}

// NewGenerator returns a generator drawing from r and allocating ports through ports.
func NewGenerator(cfg *fuzzconfig.Config, r *rand.Rand, ports PortAllocator) *Generator {
	return &Generator{cfg: cfg, rng: r, ports: ports, NewIdentity: peerid.Generate}
}

// Generate samples a scenario. Ports already in taken (e.g. the chain's) are
// never handed to a node, and every node port is added to taken.
func (g *Generator) Generate(taken port.Set) (*Scenario, error) {
	s := &Scenario{NumNodes: g.NodeCount()}

	if g.cfg.FixedPairs != nil {
		s.Pairs = g.cfg.FixedPairs
	} else {
		s.Pairs = g.Pairs()
	}

	ids, err := g.identities(s.NumNodes)
	if err != nil {
		return nil, err
	}
	s.PeerIDs = ids

	ports, err := g.portsFor(s.NumNodes, taken)
	if err != nil {
		return nil, err
	}
	s.Ports = ports
	return s, nil
}

// NodeCount returns the number of supplied ports when the node list is
// explicit, otherwise a uniform draw from the configured range.
func (g *Generator) NodeCount() int {
	if g.cfg.ExplicitNodes() {
		return len(g.cfg.Ports)
	}
	return rnd.IntRange(g.rng, g.cfg.Nodes.Min, g.cfg.Nodes.Max)
}

// Pair samples one random pair.
func (g *Generator) Pair() pair.Pair {
	return pair.Pair{
		Pair:     rnd.String(g.rng, rnd.IntRange(g.rng, 1, g.cfg.StringBytes)),
		Decimals: rnd.IntRange(g.rng, 1, g.cfg.MaxDecimals),
		Sources: []pair.Source{{
			SourcePath: rnd.Pick(g.rng, pair.SourcePaths),
			EndPoint:   rnd.Pick(g.rng, pair.EndPoints),
		}},
	}
}

// Pairs samples a pair count from the configured range and that many pairs,
// then drops structural duplicates. The result may be shorter than the draw.
func (g *Generator) Pairs() []pair.Pair {
	n := rnd.IntRange(g.rng, g.cfg.Pairs.Min, g.cfg.Pairs.Max)
	pairs := make([]pair.Pair, n)
	for i := range pairs {
		pairs[i] = g.Pair()
	}
	return pair.Dedup(pairs)
}

func (g *Generator) identities(n int) ([]peerid.Identity, error) {
	if g.cfg.PeerIDs != nil {
		if len(g.cfg.PeerIDs) != n {
			return nil, &fuzzconfig.ConfigurationError{
				Field:  "peer_ids",
				Reason: fmt.Sprintf("%d identities supplied for %d nodes", len(g.cfg.PeerIDs), n),
			}
		}
		return g.cfg.PeerIDs, nil
	}
	ids := make([]peerid.Identity, n)
	for i := range ids {
		id, err := g.NewIdentity()
		if err != nil {
			return nil, fmt.Errorf("generate peer identity %d: %w", i, err)
		}
		ids[i] = id
	}
	return ids, nil
}

func (g *Generator) portsFor(n int, taken port.Set) ([]int, error) {
	if g.cfg.ExplicitNodes() {
		for _, p := range g.cfg.Ports {
			if taken.Has(p) {
				return nil, &fuzzconfig.ConfigurationError{
					Field:  "ports",
					Reason: fmt.Sprintf("port %d is already used by this run", p),
				}
			}
			taken.Add(p)
		}
		return g.cfg.Ports, nil
	}
	ports := make([]int, n)
	for i := range ports {
		p, err := g.ports.Allocate(taken)
		if err != nil {
			return nil, fmt.Errorf("allocate port for node %d: %w", i, err)
		}
		ports[i] = p
	}
	return ports, nil
}
