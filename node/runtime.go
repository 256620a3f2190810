// Package node is the peer node runtime executed by worker processes.
//
// The built-in runtime does not speak the oracle protocol. It occupies the
// node's p2p port, greets its peers with its identity and versions, and
// checks on every interval that the registry contract is deployed and that
// its account is funded.
package node

import (
	"bufio"
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/p2p/enode"
	"github.com/sirupsen/logrus"

	"github.com/rony4d/opera-p2p-fuzzer/inter/nodeconfig"
	"github.com/rony4d/opera-p2p-fuzzer/inter/version"
)

// DefaultInterval is used when a configuration has no interval.
const DefaultInterval = time.Minute

const dialTimeout = time.Second

// Meta is what the worker knows about a node beyond its configuration.
type Meta struct {
	WorkerID      string
	Window        int
	NodeVersion   version.Version
	ReportVersion version.Version
	PrivateKey    *ecdsa.PrivateKey
}

// Runtime runs one node until ctx is cancelled.
type Runtime interface {
	Run(ctx context.Context, cfg nodeconfig.Config, meta Meta) error
}

// ChainReader is the part of the chain client the runtime uses.
type ChainReader interface {
	BlockNumber(ctx context.Context) (uint64, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
	Close()
}

// Sim is the built-in runtime.
type Sim struct {
	Log logrus.FieldLogger

	// Dial connects to the chain; defaults to ethclient.
	Dial func(ctx context.Context, rawurl string) (ChainReader, error)
}

// NewSim returns the built-in runtime logging to log.
func NewSim(log logrus.FieldLogger) *Sim {
	return &Sim{
		Log: log,
		Dial: func(ctx context.Context, rawurl string) (ChainReader, error) {
			client, err := ethclient.DialContext(ctx, rawurl)
			if err != nil {
				return nil, err
			}
			return client, nil
		},
	}
}

// Run implements Runtime.
func (s *Sim) Run(ctx context.Context, cfg nodeconfig.Config, meta Meta) error {
	if len(cfg.P2P.Addresses.Listen) == 0 || len(cfg.Networks) == 0 || len(cfg.Modules) == 0 {
		return errors.New("incomplete node configuration")
	}
	self, err := enode.ParseV4(cfg.P2P.Addresses.Listen[0])
	if err != nil {
		return fmt.Errorf("listen address: %w", err)
	}
	module := cfg.Modules[0]
	network := cfg.Networks[0]

	log := s.Log.WithFields(logrus.Fields{
		"node":   module.LogFile,
		"window": meta.Window,
		"worker": meta.WorkerID,
	})

	ln, err := net.Listen("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(self.TCP())))
	if err != nil {
		return fmt.Errorf("listen on p2p port %d: %w", self.TCP(), err)
	}

	client, err := s.Dial(ctx, network.RPC)
	if err != nil {
		ln.Close()
		return fmt.Errorf("dial chain %s: %w", network.RPC, err)
	}
	defer client.Close()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.serve(ln, meta, log)
	}()
	defer func() {
		ln.Close()
		wg.Wait()
	}()

	var account common.Address
	if meta.PrivateKey != nil {
		account = crypto.PubkeyToAddress(meta.PrivateKey.PublicKey)
	}
	if err := checkRegistry(ctx, client, module.ContractAddress); err != nil {
		log.WithError(err).Warn("Registry not available")
	}

	interval := time.Duration(module.Interval) * time.Millisecond
	if interval <= 0 {
		interval = DefaultInterval
	}
	log.WithFields(logrus.Fields{
		"listen":         self.TCP(),
		"peers":          len(cfg.P2P.Peers),
		"pairs":          len(module.Pairs),
		"node_version":   meta.NodeVersion,
		"report_version": meta.ReportVersion,
	}).Info("Node started")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		s.heartbeat(ctx, client, cfg, meta, account, log)
		select {
		case <-ctx.Done():
			log.Info("Node stopped")
			return nil
		case <-ticker.C:
		}
	}
}

func (s *Sim) heartbeat(ctx context.Context, client ChainReader, cfg nodeconfig.Config, meta Meta, account common.Address, log logrus.FieldLogger) {
	reachable := 0
	for _, peer := range cfg.P2P.Peers {
		if greet(ctx, peer, cfg.P2P.PeerID.String(), meta) == nil {
			reachable++
		}
	}

	fields := logrus.Fields{
		"peers":     len(cfg.P2P.Peers),
		"reachable": reachable,
	}
	if height, err := client.BlockNumber(ctx); err == nil {
		fields["block"] = height
	} else {
		log.WithError(err).Debug("Block number")
	}
	if account != (common.Address{}) {
		if balance, err := client.BalanceAt(ctx, account, nil); err == nil {
			fields["balance"] = balance
			if balance.Sign() == 0 {
				log.WithField("account", account.Hex()).Warn("Node account has no funds")
			}
		}
	}
	log.WithFields(fields).Info("Heartbeat")
}

func checkRegistry(ctx context.Context, client ChainReader, contract common.Address) error {
	code, err := client.CodeAt(ctx, contract, nil)
	if err != nil {
		return err
	}
	if len(code) == 0 {
		return fmt.Errorf("no code at %s", contract.Hex())
	}
	return nil
}

// Hello is the line a node sends to every peer it dials.
type Hello struct {
	ID            string
	NodeVersion   version.Version
	ReportVersion version.Version
}

func (h Hello) String() string {
	return fmt.Sprintf("hello %s %s %s\n", h.ID, h.NodeVersion, h.ReportVersion)
}

// ParseHello decodes a greeting line.
func ParseHello(line string) (Hello, error) {
	f := strings.Fields(line)
	if len(f) != 4 || f[0] != "hello" {
		return Hello{}, fmt.Errorf("malformed greeting %q", line)
	}
	nv, err := version.Parse(f[2])
	if err != nil {
		return Hello{}, err
	}
	rv, err := version.Parse(f[3])
	if err != nil {
		return Hello{}, err
	}
	return Hello{ID: f[1], NodeVersion: nv, ReportVersion: rv}, nil
}

func greet(ctx context.Context, peer, id string, meta Meta) error {
	n, err := enode.ParseV4(peer)
	if err != nil {
		return err
	}
	d := net.Dialer{Timeout: dialTimeout}
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(n.IP().String(), strconv.Itoa(n.TCP())))
	if err != nil {
		return err
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(dialTimeout))
	_, err = conn.Write([]byte(Hello{ID: id, NodeVersion: meta.NodeVersion, ReportVersion: meta.ReportVersion}.String()))
	return err
}

// serve accepts greetings until ln is closed.
func (s *Sim) serve(ln net.Listener, meta Meta, log logrus.FieldLogger) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		conn.SetDeadline(time.Now().Add(dialTimeout))
		line, err := bufio.NewReader(conn).ReadString('\n')
		conn.Close()
		if err != nil {
			continue
		}
		h, err := ParseHello(line)
		if err != nil {
			log.WithError(err).Debug("Bad greeting")
			continue
		}
		entry := log.WithFields(logrus.Fields{
			"peer":           h.ID,
			"node_version":   h.NodeVersion,
			"report_version": h.ReportVersion,
		})
		if h.NodeVersion.Major != meta.NodeVersion.Major || h.ReportVersion.Major != meta.ReportVersion.Major {
			entry.Warn("Peer runs an incompatible version")
		} else {
			entry.Debug("Peer greeted")
		}
	}
}
