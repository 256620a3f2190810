package node

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/rony4d/opera-p2p-fuzzer/inter/nodeconfig"
	"github.com/rony4d/opera-p2p-fuzzer/inter/peerid"
	"github.com/rony4d/opera-p2p-fuzzer/inter/version"
	"github.com/rony4d/opera-p2p-fuzzer/utils/port"
	"github.com/rony4d/opera-p2p-fuzzer/utils/rnd"
)

type fakeChain struct {
	mu     sync.Mutex
	calls  int
	code   []byte
	closed bool
}

func (c *fakeChain) BlockNumber(context.Context) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return 7, nil
}

func (c *fakeChain) BalanceAt(context.Context, common.Address, *big.Int) (*big.Int, error) {
	return big.NewInt(1000), nil
}

func (c *fakeChain) CodeAt(context.Context, common.Address, *big.Int) ([]byte, error) {
	return c.code, nil
}

func (c *fakeChain) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func testRuntime(chain *fakeChain) (*Sim, *test.Hook) {
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	s := NewSim(log)
	s.Dial = func(context.Context, string) (ChainReader, error) { return chain, nil }
	return s, hook
}

// pairConfigs builds two nodes that know each other.
func pairConfigs(t *testing.T) []nodeconfig.Config {
	t.Helper()
	a := port.NewAllocator(rnd.New(21))
	a.Min, a.Max = 22000, 22500
	taken := port.Set{}

	ids := []peerid.Identity{peerid.FromKey(peerid.FakeKey(1)), peerid.FromKey(peerid.FakeKey(2))}
	urls := make([]string, 2)
	for i := range urls {
		p, err := a.Allocate(taken)
		require.NoError(t, err)
		urls[i] = ids[i].URL(p)
	}
	configs := make([]nodeconfig.Config, 2)
	for i := range configs {
		configs[i] = nodeconfig.Config{
			P2P: nodeconfig.P2P{
				PeerID:    ids[i],
				Addresses: nodeconfig.Addresses{Listen: []string{urls[i]}},
				Peers:     []string{urls[1-i]},
			},
			Networks: []nodeconfig.Network{{RPC: "http://localhost:8545", PrivateKeyEnvKey: []string{"EVM_PRIVATE_KEY0", "EVM_PRIVATE_KEY1"}[i]}},
			Modules:  []nodeconfig.Module{{Interval: 20, LogFile: []string{"node0_logs", "node1_logs"}[i]}},
		}
	}
	return configs
}

func testMeta() Meta {
	return Meta{WorkerID: "1", Window: 0, NodeVersion: version.New(1, 2, 3), ReportVersion: version.New(2, 0, 0)}
}

func hasMessage(hook *test.Hook, msg string) bool {
	for _, e := range hook.AllEntries() {
		if e.Message == msg {
			return true
		}
	}
	return false
}

func TestHello(t *testing.T) {
	require := require.New(t)

	h := Hello{ID: "abc", NodeVersion: version.New(1, 2, 3), ReportVersion: version.New(4, 5, 6)}
	require.Equal("hello abc 1.2.3 4.5.6\n", h.String())

	got, err := ParseHello(h.String())
	require.NoError(err)
	require.Equal(h, got)

	_, err = ParseHello("hi there")
	require.Error(err)
	_, err = ParseHello("hello abc 1.2 4.5.6")
	require.Error(err)
}

func TestRunWindow(t *testing.T) {
	require := require.New(t)

	chain := &fakeChain{code: []byte{1}}
	rt, hook := testRuntime(chain)

	keys := map[string]string{
		"EVM_PRIVATE_KEY0": hexutil.Encode(crypto.FromECDSA(peerid.FakeKey(10))),
		"EVM_PRIVATE_KEY1": hexutil.Encode(crypto.FromECDSA(peerid.FakeKey(11))),
	}
	lookup := func(k string) (string, bool) {
		v, ok := keys[k]
		return v, ok
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- RunWindow(ctx, rt, pairConfigs(t), testMeta(), lookup) }()

	require.Eventually(func() bool {
		return hasMessage(hook, "Peer greeted")
	}, 5*time.Second, 20*time.Millisecond)
	require.True(hasMessage(hook, "Heartbeat"))
	require.False(hasMessage(hook, "Registry not available"))

	cancel()
	select {
	case err := <-done:
		require.NoError(err)
	case <-time.After(5 * time.Second):
		t.Fatal("window did not stop")
	}
	require.True(chain.closed)
}

func TestRunWindowMissingKey(t *testing.T) {
	require := require.New(t)

	rt, _ := testRuntime(&fakeChain{})
	err := RunWindow(context.Background(), rt, pairConfigs(t), testMeta(), func(string) (string, bool) { return "", false })
	require.Error(err)
	require.True(strings.Contains(err.Error(), "EVM_PRIVATE_KEY0"))
}

func TestRunReportsMissingRegistry(t *testing.T) {
	require := require.New(t)

	rt, hook := testRuntime(&fakeChain{})
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	require.NoError(rt.Run(ctx, pairConfigs(t)[0], testMeta()))
	require.True(hasMessage(hook, "Registry not available"))
}

func TestRunDialFailure(t *testing.T) {
	require := require.New(t)

	log, _ := test.NewNullLogger()
	rt := NewSim(log)
	rt.Dial = func(context.Context, string) (ChainReader, error) { return nil, errors.New("refused") }
	err := rt.Run(context.Background(), pairConfigs(t)[0], testMeta())
	require.Error(err)

	require.Error(rt.Run(context.Background(), nodeconfig.Config{}, testMeta()))
}
