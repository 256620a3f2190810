// This file maps CLI context to the launcher's config struct.

package launcher

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/urfave/cli.v1"

	"github.com/rony4d/opera-p2p-fuzzer/flags"
	"github.com/rony4d/opera-p2p-fuzzer/logging"
)

// Config aggregates every setting the launcher needs.
type Config struct {
	Fuzz    FuzzConfig
	Logging logging.Config
	Metrics MetricsConfig
	Worker  WorkerConfig
}

type FuzzConfig struct {
	Dir     string
	Preset  string
	Seed    int64
	Journal bool
}

type MetricsConfig struct {
	Enable   bool
	HTTPAddr string
	HTTPPort int
}

// Addr is the listen address of the metrics endpoint.
func (c MetricsConfig) Addr() string {
	return net.JoinHostPort(c.HTTPAddr, strconv.Itoa(c.HTTPPort))
}

// WorkerConfig is what a worker process is told by its supervisor.
type WorkerConfig struct {
	OutDir        string
	Window        int
	WorkerID      string
	NodeVersion   string
	ReportVersion string
}

// -----------------------------------------------------------------------------
// Default config + builders
// -----------------------------------------------------------------------------

//	Default config function creates a default config object using the DefaultConfig function from defaults.go
//	This keeps this main config file clean and in sync with the defaults.go file

func defaultConfig() Config {
	d := DefaultConfig()
	return Config{
		Fuzz: FuzzConfig{
			Dir:     resolvePath(d.Fuzz.Dir),
			Preset:  d.Fuzz.Preset,
			Seed:    d.Fuzz.Seed,
			Journal: d.Fuzz.Journal,
		},
		Logging: logging.Config{
			Format:    d.Logging.Format,
			Verbosity: d.Logging.Verbosity,
			Color:     d.Logging.Color,
			SentryDSN: d.Logging.SentryDSN,
		},
		Metrics: MetricsConfig{
			Enable:   d.Metrics.Enable,
			HTTPAddr: d.Metrics.HTTPAddr,
			HTTPPort: d.Metrics.HTTPPort,
		},
	}
}

// MakeAllConfigs merges defaults and CLI overrides into a single config
// struct. It works both on the app context and inside a subcommand.

func MakeAllConfigs(ctx *cli.Context) (Config, error) {
	cfg := defaultConfig()

	applyCLIOverrides(ctx, &cfg)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// -----------------------------------------------------------------------------
// CLI wiring
// -----------------------------------------------------------------------------

func applyCLIOverrides(ctx *cli.Context, cfg *Config) {
	if isSet(ctx, "fuzzdir") {
		cfg.Fuzz.Dir = resolvePath(stringFlag(ctx, "fuzzdir"))
	}
	if isSet(ctx, "preset") {
		cfg.Fuzz.Preset = stringFlag(ctx, "preset")
	}
	if isSet(ctx, "seed") {
		cfg.Fuzz.Seed = int64Flag(ctx, "seed")
	}
	if isSet(ctx, "journal") {
		cfg.Fuzz.Journal = boolFlag(ctx, "journal")
	}

	if isSet(ctx, flags.LogFormat) {
		cfg.Logging.Format = stringFlag(ctx, flags.LogFormat)
	}
	if isSet(ctx, flags.LogVerbosity) {
		cfg.Logging.Verbosity = intFlag(ctx, flags.LogVerbosity)
	}
	if isSet(ctx, flags.LogColor) {
		cfg.Logging.Color = boolFlag(ctx, flags.LogColor)
	}
	if isSet(ctx, flags.SentryDSN) {
		cfg.Logging.SentryDSN = stringFlag(ctx, flags.SentryDSN)
	}

	if isSet(ctx, "metrics") {
		cfg.Metrics.Enable = boolFlag(ctx, "metrics")
	}
	if isSet(ctx, "metrics.addr") {
		cfg.Metrics.HTTPAddr = stringFlag(ctx, "metrics.addr")
	}
	if isSet(ctx, "metrics.port") {
		cfg.Metrics.HTTPPort = intFlag(ctx, "metrics.port")
	}

	// Worker flags are bound to environment variables, so their values
	// are read whether or not they appear on the command line. Outside the
	// worker command they are undefined and stay empty.
	cfg.Worker = WorkerConfig{
		OutDir:        ctx.String("outdir"),
		Window:        ctx.Int("window"),
		WorkerID:      ctx.String("worker-id"),
		NodeVersion:   ctx.String("node-version"),
		ReportVersion: ctx.String("report-version"),
	}
}

func (c *Config) validate() error {
	if _, err := logging.Level(c.Logging.Verbosity); err != nil {
		return err
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q (text|json)", c.Logging.Format)
	}
	if c.Metrics.Enable && (c.Metrics.HTTPPort <= 0 || c.Metrics.HTTPPort > 65535) {
		return fmt.Errorf("metrics port %d out of range", c.Metrics.HTTPPort)
	}
	return nil
}

// isSet and the lookups below consult the command's own flags first and
// then the app's, since common flags are registered globally.
func isSet(ctx *cli.Context, name string) bool {
	return ctx.IsSet(name) || ctx.GlobalIsSet(name)
}

func stringFlag(ctx *cli.Context, name string) string {
	if ctx.IsSet(name) {
		return ctx.String(name)
	}
	return ctx.GlobalString(name)
}

func intFlag(ctx *cli.Context, name string) int {
	if ctx.IsSet(name) {
		return ctx.Int(name)
	}
	return ctx.GlobalInt(name)
}

func int64Flag(ctx *cli.Context, name string) int64 {
	if ctx.IsSet(name) {
		return ctx.Int64(name)
	}
	return ctx.GlobalInt64(name)
}

func boolFlag(ctx *cli.Context, name string) bool {
	if ctx.IsSet(name) {
		return ctx.Bool(name)
	}
	return ctx.GlobalBool(name)
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func ensureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create fuzzdir %s: %w", dir, err)
	}
	return nil
}

func resolvePath(p string) string {
	if strings.HasPrefix(p, "~") {
		return filepath.Join(GuessHomeDir(), strings.TrimPrefix(p, "~"))
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(GuessWorkDir(), p)
}

func GuessWorkDir() string {
	if wd, err := os.Getwd(); err == nil {
		return wd
	}
	return "."
}

func GuessHomeDir() string {
	if dir, err := os.UserHomeDir(); err == nil {
		return dir
	}
	return "."
}

func GuessProjectRoot() string {
	cwd, err := os.Getwd()
	if err != nil {
		return "."
	}
	dir := cwd
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return cwd // hit filesystem root without finding go.mod
		}
		dir = parent
	}
}
