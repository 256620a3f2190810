package node

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/rony4d/opera-p2p-fuzzer/inter/nodeconfig"
)

// RunWindow runs every node of a window on rt and returns when ctx is done
// or the first node fails. Signing keys are read from the variables named
// in the configurations through lookup.
func RunWindow(ctx context.Context, rt Runtime, configs []nodeconfig.Config, meta Meta, lookup func(string) (string, bool)) error {
	metas := make([]Meta, len(configs))
	for i, cfg := range configs {
		m := meta
		if len(cfg.Networks) > 0 {
			env := cfg.Networks[0].PrivateKeyEnvKey
			secret, ok := lookup(env)
			if !ok {
				return fmt.Errorf("node %d: key variable %s not set", i, env)
			}
			key, err := crypto.HexToECDSA(strings.TrimPrefix(secret, "0x"))
			if err != nil {
				return fmt.Errorf("node %d: key variable %s: %w", i, env, err)
			}
			m.PrivateKey = key
		}
		metas[i] = m
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errc := make(chan error, len(configs))
	var wg sync.WaitGroup
	for i := range configs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := rt.Run(ctx, configs[i], metas[i]); err != nil {
				errc <- fmt.Errorf("node %d: %w", i, err)
				cancel()
			}
		}(i)
	}
	wg.Wait()
	close(errc)
	return <-errc
}
