package flags

import (
	"gopkg.in/urfave/cli.v1"
)

// Names of the flags shared by the fuzzer and its workers.
const (
	LogFormat    = "log.format"
	LogVerbosity = "log.verbosity"
	LogColor     = "log.color"
	SentryDSN    = "sentry.dsn"
)

// CommonFlags returns the base set of CLI flags shared across commands.

func CommonFlags() []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{
			Name:  LogFormat,
			Usage: "Log output format (text|json)",
			Value: "text",
		},
		cli.IntFlag{
			Name:  LogVerbosity,
			Usage: "Logging verbosity (0=fatal,1=error,2=warn,3=info,4=debug,5=trace)",
			Value: 3,
		},
		cli.BoolFlag{
			Name:  LogColor,
			Usage: "Enable colored log output",
		},
		cli.StringFlag{
			Name:  SentryDSN,
			Usage: "Report error level log entries to this Sentry DSN",
		},
	}
}

// MetricsFlags controls the Prometheus endpoint of the fuzzer.
func MetricsFlags() []cli.Flag {
	return []cli.Flag{
		cli.BoolFlag{
			Name:  "metrics",
			Usage: "Enable collection of Prometheus-compatible metrics",
		},
		cli.StringFlag{
			Name:  "metrics.addr",
			Usage: "Metrics server listening interface",
			Value: "127.0.0.1",
		},
		cli.IntFlag{
			Name:  "metrics.port",
			Usage: "Metrics server listening port",
			Value: 6060,
		},
	}
}
