package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind/backends"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/sirupsen/logrus"

	"github.com/rony4d/opera-p2p-fuzzer/utils/port"
)

// ErrDeploymentFailed is returned when the registry contract did not become
// active after its creation transaction was mined.
var ErrDeploymentFailed = errors.New("registry contract was not deployed")

// Account is a funded identity: an address and the key that controls it.
type Account struct {
	Address common.Address
	Key     *ecdsa.PrivateKey
}

// Secret returns the private key as 0x-prefixed hex, the form nodes read
// from their key environment variable.
func (a Account) Secret() string {
	return hexutil.Encode(crypto.FromECDSA(a.Key))
}

// Chain is the funding chain contract the bootstrap relies on.
type Chain interface {
	Start(ctx context.Context) error
	CreateFundedIdentity(ctx context.Context) (Account, error)
	DeployRegistry(ctx context.Context) (common.Address, error)
	CreatorIdentity() Account
	UsedPort() int
	RPCURL() string
	Close() error
}

// Ports is the part of the port allocator the chain needs.
type Ports interface {
	Allocate(taken port.Set) (int, error)
	Free(p int) bool
}

// Simulated is a Chain backed by go-ethereum's simulated backend.
type Simulated struct {
	genesis Genesis
	backend *backends.SimulatedBackend
	creator Account

	port  int
	ports Ports
	taken port.Set

	srv *http.Server
	log logrus.FieldLogger

	// mu makes nonce lookup, submission and mining of one transaction atomic.
	mu sync.Mutex
}

// NewSimulated creates a chain whose genesis funds a fresh creator account.
// The chain listens on configuredPort unless it is taken; taken collects
// the ports used by the run.
func NewSimulated(genesis Genesis, configuredPort int, ports Ports, taken port.Set, log logrus.FieldLogger) (*Simulated, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("generate creator key: %w", err)
	}
	creator := Account{Address: crypto.PubkeyToAddress(key.PublicKey), Key: key}
	alloc := core.GenesisAlloc{
		creator.Address: {Balance: new(big.Int).Set(genesis.CreatorBalance)},
	}
	return &Simulated{
		genesis: genesis,
		backend: backends.NewSimulatedBackend(alloc, genesis.GasLimit),
		creator: creator,
		port:    configuredPort,
		ports:   ports,
		taken:   taken,
		log:     log.WithField("module", "chain"),
	}, nil
}

// Start serves JSON-RPC on localhost. A configured port that is already in
// use is replaced by a free one; UsedPort reports the final choice.
func (s *Simulated) Start(ctx context.Context) error {
	if s.taken.Has(s.port) || !s.ports.Free(s.port) {
		s.log.WithField("port", s.port).Warn("Configured chain port not available, picking another")
		p, err := s.ports.Allocate(s.taken)
		if err != nil {
			return fmt.Errorf("reassign chain port: %w", err)
		}
		s.port = p
	}
	s.taken.Add(s.port)

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(s.port)))
	if err != nil {
		return fmt.Errorf("listen on chain port %d: %w", s.port, err)
	}

	server := rpc.NewServer()
	if err := server.RegisterName("eth", &ethAPI{chain: s}); err != nil {
		ln.Close()
		return err
	}
	if err := server.RegisterName("net", &netAPI{networkID: s.genesis.NetworkID}); err != nil {
		ln.Close()
		return err
	}
	s.srv = &http.Server{Handler: server, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.WithError(err).Error("Chain RPC server stopped")
		}
	}()

	s.log.WithFields(logrus.Fields{
		"port":    s.port,
		"creator": s.creator.Address.Hex(),
	}).Info("Blockchain started")
	return nil
}

// CreateFundedIdentity creates a new account and transfers FundingAmount to it.
func (s *Simulated) CreateFundedIdentity(ctx context.Context) (Account, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return Account{}, err
	}
	acc := Account{Address: crypto.PubkeyToAddress(key.PublicKey), Key: key}

	receipt, err := s.submit(ctx, &acc.Address, s.genesis.FundingAmount, nil, 21_000)
	if err != nil {
		return Account{}, fmt.Errorf("fund %s: %w", acc.Address.Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return Account{}, fmt.Errorf("fund %s: transfer reverted", acc.Address.Hex())
	}
	return acc, nil
}

// DeployRegistry deploys the registry contract from the creator account.
func (s *Simulated) DeployRegistry(ctx context.Context) (common.Address, error) {
	s.log.WithField("from", s.creator.Address.Hex()).Info("Deploying registry contract")

	receipt, err := s.submit(ctx, nil, new(big.Int), s.genesis.RegistryCode, s.genesis.DeployGas)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", ErrDeploymentFailed, err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return common.Address{}, fmt.Errorf("%w: status %d in tx %s", ErrDeploymentFailed, receipt.Status, receipt.TxHash.Hex())
	}
	code, err := s.backend.CodeAt(ctx, receipt.ContractAddress, nil)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", ErrDeploymentFailed, err)
	}
	if len(code) == 0 {
		return common.Address{}, fmt.Errorf("%w: no code at %s", ErrDeploymentFailed, receipt.ContractAddress.Hex())
	}
	return receipt.ContractAddress, nil
}

// CreatorIdentity is the genesis account funding the chain.
func (s *Simulated) CreatorIdentity() Account {
	return s.creator
}

// UsedPort is the port the RPC server listens on.
func (s *Simulated) UsedPort() int {
	return s.port
}

// RPCURL is the HTTP endpoint nodes connect to.
func (s *Simulated) RPCURL() string {
	return fmt.Sprintf("http://localhost:%d", s.port)
}

// Close stops the RPC server and the backend.
func (s *Simulated) Close() error {
	if s.srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(ctx); err != nil {
			s.log.WithError(err).Warn("Chain RPC shutdown")
		}
	}
	return s.backend.Close()
}

// submit signs a creator transaction, mines it and returns its receipt.
// A nil to creates a contract.
func (s *Simulated) submit(ctx context.Context, to *common.Address, value *big.Int, data []byte, gas uint64) (*types.Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	nonce, err := s.backend.PendingNonceAt(ctx, s.creator.Address)
	if err != nil {
		return nil, err
	}
	gasPrice, err := s.backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, err
	}
	var tx *types.Transaction
	if to == nil {
		tx = types.NewContractCreation(nonce, value, gas, gasPrice, data)
	} else {
		tx = types.NewTransaction(nonce, *to, value, gas, gasPrice, data)
	}
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(ChainID()), s.creator.Key)
	if err != nil {
		return nil, err
	}
	if err := s.sendAndMine(ctx, signed); err != nil {
		return nil, err
	}
	return s.backend.TransactionReceipt(ctx, signed.Hash())
}

// sendAndMine includes tx in a new block. The simulated backend panics on
// invalid transactions; those are turned into errors. Callers hold mu.
func (s *Simulated) sendAndMine(ctx context.Context, tx *types.Transaction) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("rejected transaction %s: %v", tx.Hash().Hex(), r)
		}
	}()
	if err := s.backend.SendTransaction(ctx, tx); err != nil {
		return err
	}
	s.backend.Commit()
	return nil
}
