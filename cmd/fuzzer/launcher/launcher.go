package launcher

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"gopkg.in/urfave/cli.v1"

	"github.com/rony4d/opera-p2p-fuzzer/flags"
	"github.com/rony4d/opera-p2p-fuzzer/logging"
	"github.com/rony4d/opera-p2p-fuzzer/node"
)

var app = newApp(selfLauncher)

func newApp(newLauncher launcherFactory) *cli.App {
	a := flags.NewApp()
	a.Flags = append(a.Flags, flags.CommonFlags()...)
	a.Flags = append(a.Flags, flags.MetricsFlags()...)
	a.Flags = append(a.Flags, flags.FuzzFlags()...)
	a.Action = func(ctx *cli.Context) error {
		if ctx.NArg() != 1 {
			return errors.New("expected exactly one argument: the scenario file")
		}
		cfg, err := MakeAllConfigs(ctx)
		if err != nil {
			return err
		}
		log, err := logging.Stderr(cfg.Logging)
		if err != nil {
			return err
		}
		sigctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return fuzz(sigctx, cfg, resolvePath(ctx.Args().First()), newLauncher, log)
	}
	a.Commands = []cli.Command{
		{
			Name:   workerCommand,
			Usage:  "Run the nodes of one window (started by the fuzzer)",
			Hidden: true,
			Flags:  flags.WorkerFlags(),
			Action: func(ctx *cli.Context) error {
				cfg, err := MakeAllConfigs(ctx)
				if err != nil {
					return err
				}
				log, err := logging.Stderr(cfg.Logging)
				if err != nil {
					return err
				}
				sigctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
				defer stop()
				return runWorker(sigctx, cfg.Worker, node.NewSim(log), lookupEnv, log)
			},
		},
	}
	return a
}

// Launch parses args and runs the fuzzer, or a worker when invoked as one.
func Launch(args []string) error {
	return app.Run(args)
}
