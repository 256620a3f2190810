package launcher

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rony4d/opera-p2p-fuzzer/bootstrap"
	"github.com/rony4d/opera-p2p-fuzzer/chain"
	"github.com/rony4d/opera-p2p-fuzzer/churn"
	"github.com/rony4d/opera-p2p-fuzzer/flags"
	"github.com/rony4d/opera-p2p-fuzzer/fuzzconfig"
	"github.com/rony4d/opera-p2p-fuzzer/integration"
	"github.com/rony4d/opera-p2p-fuzzer/journal"
	"github.com/rony4d/opera-p2p-fuzzer/logging"
	"github.com/rony4d/opera-p2p-fuzzer/metrics"
	"github.com/rony4d/opera-p2p-fuzzer/rundir"
	"github.com/rony4d/opera-p2p-fuzzer/scenario"
	"github.com/rony4d/opera-p2p-fuzzer/supervisor"
	"github.com/rony4d/opera-p2p-fuzzer/utils/port"
	"github.com/rony4d/opera-p2p-fuzzer/utils/rnd"
)

// launcherFactory builds the process launcher of a run. args are the
// arguments every worker is started with.
type launcherFactory func(args []string, logPath func(window int) string) (supervisor.Launcher, error)

func selfLauncher(args []string, logPath func(window int) string) (supervisor.Launcher, error) {
	return supervisor.SelfLauncher(args, logPath)
}

// loadScenario reads the scenario file, lays the preset over it and validates the result.
func loadScenario(path, preset string) (*fuzzconfig.Config, error) {
	file, err := fuzzconfig.LoadFile(path)
	if err != nil {
		return nil, err
	}
	if preset != "" {
		p, err := integration.GetPresetByName(preset)
		if err != nil {
			return nil, err
		}
		integration.ApplyPreset(&file, p)
	}
	return fuzzconfig.Parse(file)
}

// fuzz runs the whole pipeline: generate, fund, write the run directory,
// then keep the worker pool churning until ctx is done.
func fuzz(ctx context.Context, cfg Config, path string, newLauncher launcherFactory, log *logrus.Logger) error {
	scen, err := loadScenario(path, cfg.Fuzz.Preset)
	if err != nil {
		return err
	}

	seed := cfg.Fuzz.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	r := rnd.New(seed)
	log.WithFields(logrus.Fields{
		"seed":   seed,
		"preset": cfg.Fuzz.Preset,
		"window": scen.Window,
	}).Info("Scenario loaded")

	ports := port.NewAllocator(r)
	taken := port.Set{}
	s, err := scenario.NewGenerator(scen, r, ports).Generate(taken)
	if err != nil {
		return fmt.Errorf("generate scenario: %w", err)
	}
	log.WithFields(logrus.Fields{
		"nodes": s.NumNodes,
		"pairs": len(s.Pairs),
	}).Info("Scenario generated")

	genesis := chain.DefaultGenesis()
	c, err := chain.NewSimulated(genesis, scen.BlockchainPort, ports, taken, log)
	if err != nil {
		return err
	}
	defer c.Close()

	funded, err := bootstrap.Run(ctx, c, s, bootstrap.Options{
		NetworkID:     genesis.NetworkID,
		ChainID:       chain.ChainID().Uint64(),
		CreatorKeyEnv: scen.CreatorPrivKeyEnv,
	}, log)
	if err != nil {
		return err
	}

	if err := ensureDir(cfg.Fuzz.Dir); err != nil {
		return err
	}
	dir, err := rundir.Create(cfg.Fuzz.Dir)
	if err != nil {
		return err
	}

	configs := funded.Topology.NodeConfigs(scen.Node, s.Pairs, funded.Deployment)
	spans := scenario.Windows(len(configs), scen.Window)
	secrets := make([]map[string]string, len(spans))
	for i, span := range spans {
		if err := dir.WriteWindow(i, configs[span.Start:span.End]); err != nil {
			return err
		}
		secrets[i] = make(map[string]string, span.Len())
		for _, n := range funded.Topology[span.Start:span.End] {
			secrets[i][n.PrivateKeyEnv] = funded.Secrets[n.PrivateKeyEnv]
		}
	}

	err = dir.WriteSummary(rundir.Summary{
		ID:        dir.ID.String(),
		Seed:      seed,
		NumNodes:  s.NumNodes,
		Ports:     s.Ports,
		PeerIDs:   s.PeerIDs,
		Pairs:     s.Pairs,
		Contract:  funded.Deployment.Contract,
		ChainPort: funded.ChainPort,
		Windows:   len(spans),
	})
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"dir":      dir.Path,
		"windows":  len(spans),
		"contract": funded.Deployment.Contract.Hex(),
	}).Info("Run directory written")

	var rec journal.Recorder = journal.Discard
	if cfg.Fuzz.Journal {
		j, err := journal.Open(dir.JournalPath())
		if err != nil {
			return err
		}
		defer j.Close()
		rec = j
	}

	if cfg.Metrics.Enable {
		go func() {
			if err := metrics.Serve(ctx, cfg.Metrics.Addr(), log); err != nil {
				log.WithError(err).Error("Metrics endpoint failed")
			}
		}()
	}

	l, err := newLauncher(workerArgs(cfg.Logging), dir.WorkerLog)
	if err != nil {
		return err
	}
	pool := supervisor.New(l, log)
	ctrl := churn.New(churn.Options{
		Churn:     scen.Churn,
		Skew:      scen.Skew,
		OutputDir: dir.Path,
		Secrets:   secrets,
	}, churn.InitialVersions(r), r, pool, rec, log)

	if err := ctrl.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.WithField("dir", dir.Path).Info("Fuzz run finished")
	return nil
}

// workerArgs makes workers log the way the fuzzer does.
func workerArgs(cfg logging.Config) []string {
	args := []string{
		"--" + flags.LogFormat, cfg.Format,
		"--" + flags.LogVerbosity, strconv.Itoa(cfg.Verbosity),
	}
	if cfg.Color {
		args = append(args, "--"+flags.LogColor)
	}
	if cfg.SentryDSN != "" {
		args = append(args, "--"+flags.SentryDSN, cfg.SentryDSN)
	}
	return append(args, workerCommand)
}
