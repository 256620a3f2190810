package flags

import (
	"gopkg.in/urfave/cli.v1"
)

// FuzzFlags configure a fuzz run.

func FuzzFlags() []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{
			Name:  "fuzzdir",
			Usage: "Directory under which every run gets its own output directory",
			Value: "fuzz",
		},
		cli.StringFlag{
			Name:  "preset",
			Usage: "Churn and skew preset laid over the scenario file (default|smoke|churn|skew|chaos)",
		},
		cli.Int64Flag{
			Name:  "seed",
			Usage: "Seed of the scenario generator (0 = time based)",
		},
		cli.BoolTFlag{
			Name:  "journal",
			Usage: "Record worker lifecycle events in <run>/journal.db",
		},
	}
}
