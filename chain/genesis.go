// Package chain runs the ephemeral funding chain of a fuzz run: an
// in-process EVM with a single pre-funded creator account, exposed to the
// worker processes over HTTP JSON-RPC.
//
// Key concepts:
//   - Genesis: the chain identity (network id) and the economics of the run
//     (how much the creator starts with, how much every node receives)
//   - Creator: the genesis account; it funds every other node and deploys
//     the registry contract
//   - Registry: the contract the oracle nodes report to
package chain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/params"
)

// DefaultNetworkID is the network id written into node configurations.
const DefaultNetworkID uint64 = 1313161555

// DefaultRegistryCode deploys a contract whose runtime code returns 1 for
// any call. It is enough for nodes to find code at the registry address.
//
//	init:    PUSH1 0x0a PUSH1 0x0c PUSH1 0x00 CODECOPY PUSH1 0x0a PUSH1 0x00 RETURN
//	runtime: PUSH1 0x01 PUSH1 0x00 MSTORE PUSH1 0x20 PUSH1 0x00 RETURN
var DefaultRegistryCode = common.FromHex("0x600a600c600039600a6000f3600160005260206000f3")

// Genesis defines the chain a run starts from.
type Genesis struct {
	// NetworkID labels the chain in node configurations.
	NetworkID uint64

	// CreatorBalance is the genesis allocation of the creator account (wei).
	CreatorBalance *big.Int

	// FundingAmount is transferred to every freshly created identity (wei).
	FundingAmount *big.Int

	// GasLimit is the block gas limit of the simulated chain.
	GasLimit uint64

	// DeployGas is the gas limit of the registry deployment.
	DeployGas uint64

	// RegistryCode is the creation bytecode of the registry contract.
	RegistryCode []byte
}

func ether(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(params.Ether))
}

// DefaultGenesis funds the creator with a million ether and hands out a
// thousand ether per node.
func DefaultGenesis() Genesis {
	return Genesis{
		NetworkID:      DefaultNetworkID,
		CreatorBalance: ether(1_000_000),
		FundingAmount:  ether(1_000),
		GasLimit:       30_000_000,
		DeployGas:      3_000_000,
		RegistryCode:   DefaultRegistryCode,
	}
}

// ChainID is the EIP-155 chain id transactions are signed for.
func ChainID() *big.Int {
	return new(big.Int).Set(params.AllEthashProtocolChanges.ChainID)
}
