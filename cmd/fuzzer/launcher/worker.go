package launcher

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/rony4d/opera-p2p-fuzzer/inter/version"
	"github.com/rony4d/opera-p2p-fuzzer/node"
	"github.com/rony4d/opera-p2p-fuzzer/rundir"
)

const workerCommand = "worker"

// runWorker runs the nodes of one window until ctx is done.
func runWorker(ctx context.Context, cfg WorkerConfig, rt node.Runtime, lookup func(string) (string, bool), log logrus.FieldLogger) error {
	if cfg.OutDir == "" {
		return errors.New("worker started without an output directory")
	}
	nv, err := version.Parse(cfg.NodeVersion)
	if err != nil {
		return fmt.Errorf("node version: %w", err)
	}
	rv, err := version.Parse(cfg.ReportVersion)
	if err != nil {
		return fmt.Errorf("report version: %w", err)
	}
	configs, err := rundir.ReadWindow(cfg.OutDir, cfg.Window)
	if err != nil {
		return err
	}

	log.WithFields(logrus.Fields{
		"worker":         cfg.WorkerID,
		"window":         cfg.Window,
		"nodes":          len(configs),
		"node_version":   nv,
		"report_version": rv,
	}).Info("Worker started")

	meta := node.Meta{
		WorkerID:      cfg.WorkerID,
		Window:        cfg.Window,
		NodeVersion:   nv,
		ReportVersion: rv,
	}
	return node.RunWindow(ctx, rt, configs, meta, lookup)
}

func lookupEnv(key string) (string, bool) {
	return os.LookupEnv(key)
}
