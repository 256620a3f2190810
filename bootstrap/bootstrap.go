// Package bootstrap funds a generated scenario on the funding chain and
// turns it into a topology that worker processes can run.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/Fantom-foundation/lachesis-base/inter/idx"
	"github.com/sirupsen/logrus"

	"github.com/rony4d/opera-p2p-fuzzer/chain"
	"github.com/rony4d/opera-p2p-fuzzer/scenario"
)

// KeyEnvPrefix names the environment variable holding a node's private key;
// the node id is appended.
const KeyEnvPrefix = "EVM_PRIVATE_KEY"

// KeyEnv is the private key variable of node id.
func KeyEnv(id idx.ValidatorID) string {
	return fmt.Sprintf("%s%d", KeyEnvPrefix, id)
}

// Options fixes what the chain itself does not report.
type Options struct {
	NetworkID uint64
	ChainID   uint64

	// CreatorKeyEnv is the key variable of node 0, the chain's creator.
	CreatorKeyEnv string
}

// Result is a funded topology.
type Result struct {
	Topology   scenario.Topology
	Deployment scenario.Deployment

	// Secrets maps every key variable of the topology to its private key.
	Secrets map[string]string

	ChainPort int
}

// Run starts c, binds node 0 to the creator, funds a fresh identity for
// every other node and deploys the registry. A failed deployment aborts the run.
func Run(ctx context.Context, c chain.Chain, s *scenario.Scenario, opts Options, log logrus.FieldLogger) (*Result, error) {
	if err := c.Start(ctx); err != nil {
		return nil, fmt.Errorf("start chain: %w", err)
	}
	rpc := c.RPCURL()

	res := &Result{
		Topology:  make(scenario.Topology, s.NumNodes),
		Secrets:   make(map[string]string, s.NumNodes),
		ChainPort: c.UsedPort(),
	}
	creator := c.CreatorIdentity()

	for i := 0; i < s.NumNodes; i++ {
		id := idx.ValidatorID(i)
		acc := creator
		env := opts.CreatorKeyEnv
		if id != scenario.CreatorID {
			var err error
			acc, err = c.CreateFundedIdentity(ctx)
			if err != nil {
				return nil, fmt.Errorf("fund node %d: %w", id, err)
			}
			env = KeyEnv(id)
		}
		res.Topology[i] = scenario.NodeDescriptor{
			ID:            id,
			Port:          s.Ports[i],
			PeerID:        s.PeerIDs[i],
			Address:       acc.Address,
			PrivateKeyEnv: env,
			RPC:           rpc,
		}
		res.Secrets[env] = acc.Secret()

		log.WithFields(logrus.Fields{
			"node":    id,
			"port":    s.Ports[i],
			"address": acc.Address.Hex(),
		}).Debug("Node funded")
	}

	contract, err := c.DeployRegistry(ctx)
	if err != nil {
		return nil, err
	}
	res.Deployment = scenario.Deployment{
		Contract:  contract,
		Creator:   creator.Address,
		NetworkID: opts.NetworkID,
		ChainID:   opts.ChainID,
	}

	if err := res.Topology.Check(); err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"nodes":    s.NumNodes,
		"contract": contract.Hex(),
		"rpc":      rpc,
	}).Info("Scenario funded")
	return res, nil
}
