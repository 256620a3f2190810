package launcher

// Defaults bundles the baseline configuration values the launcher uses
// before flags override them.

type Defaults struct {
	Fuzz    FuzzDefaults
	Logging LoggingDefaults
	Metrics MetricsDefaults
}

// FuzzDefaults captures where a run writes and how its scenario is drawn.
type FuzzDefaults struct {
	Dir     string //	Root under which every run creates <uuid>/ holding the summary, window files, worker logs and journal.
	Preset  string //	Preset laid over the scenario file; empty keeps the file's own churn and skew settings.
	Seed    int64  //	Seed of the scenario and churn randomness; 0 draws one from the clock and logs it so the run can be replayed.
	Journal bool   //	Whether worker lifecycle events are written to the SQLite journal of the run.
}

// LoggingDefaults controls log verbosity/format.
type LoggingDefaults struct {
	Verbosity int    //	Log level numeric (0=fatal, 1=error, 2=warn, 3=info, 4=debug, 5=trace).
	Format    string //	Log output format (text vs json).
	Color     bool   //	Whether to use ANSI color codes in logs (helpful on terminals, best disabled when piping to files).
	SentryDSN string //	Sentry project DSN; error level entries are shipped there when set.
}

type MetricsDefaults struct {
	Enable   bool   //	Toggle for the metrics server; when true the fuzzer exposes Prometheus-compatible metrics on the specified IP/port.
	HTTPAddr string //	IP/interface the metrics server binds to for incoming requests (e.g., 0.0.0.0 for all interfaces or 127.0.0.1 for local-only).
	HTTPPort int    //	TCP port clients connect to for metrics; default 6060.
}

// DefaultConfig returns a fully populated Defaults instance.

func DefaultConfig() Defaults {
	return Defaults{
		Fuzz: FuzzDefaults{
			Dir:     "fuzz",
			Journal: true,
		},
		Logging: LoggingDefaults{
			Verbosity: 3,
			Format:    "text",
			Color:     false,
		},
		Metrics: MetricsDefaults{
			Enable:   false,
			HTTPAddr: "127.0.0.1",
			HTTPPort: 6060,
		},
	}
}
