package flags

import (
	"gopkg.in/urfave/cli.v1"
)

// WorkerFlags describe the window a worker process runs. The supervisor
// passes them through the environment.

func WorkerFlags() []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{
			Name:   "outdir",
			Usage:  "Run directory holding the window files",
			EnvVar: "FUZZ_OUTPUT_DIR",
		},
		cli.IntFlag{
			Name:   "window",
			Usage:  "Index of the window to run",
			EnvVar: "FUZZ_WINDOW_INDEX",
		},
		cli.StringFlag{
			Name:   "worker-id",
			Usage:  "Identifier the supervisor gave this worker",
			EnvVar: "FUZZ_WORKER_ID",
		},
		cli.StringFlag{
			Name:   "node-version",
			Usage:  "Node software version to advertise (major.minor.patch)",
			EnvVar: "P2P_NODE_VERSION",
		},
		cli.StringFlag{
			Name:   "report-version",
			Usage:  "Report format version to advertise (major.minor.patch)",
			EnvVar: "P2P_REPORT_VERSION",
		},
	}
}
