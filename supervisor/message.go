package supervisor

import (
	"sort"
	"strconv"

	"github.com/rony4d/opera-p2p-fuzzer/inter/version"
)

// Environment variables a worker process is started with.
const (
	EnvOutputDir     = "FUZZ_OUTPUT_DIR"
	EnvWindowIndex   = "FUZZ_WINDOW_INDEX"
	EnvWorkerID      = "FUZZ_WORKER_ID"
	EnvNodeVersion   = "P2P_NODE_VERSION"
	EnvReportVersion = "P2P_REPORT_VERSION"
)

// WorkerID identifies one worker process. Ids are never reused within a run.
type WorkerID uint64

func (id WorkerID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// StartMessage is everything a worker needs to know at start.
type StartMessage struct {
	WorkerID      WorkerID
	Window        int
	OutputDir     string
	NodeVersion   version.Version
	ReportVersion version.Version

	// Secrets maps the key variables of the window's nodes to private keys.
	Secrets map[string]string
}

// Env serializes m into KEY=value pairs for the child environment.
func (m StartMessage) Env() []string {
	env := []string{
		EnvOutputDir + "=" + m.OutputDir,
		EnvWindowIndex + "=" + strconv.Itoa(m.Window),
		EnvWorkerID + "=" + m.WorkerID.String(),
		EnvNodeVersion + "=" + m.NodeVersion.String(),
		EnvReportVersion + "=" + m.ReportVersion.String(),
	}
	keys := make([]string, 0, len(m.Secrets))
	for k := range m.Secrets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, k+"="+m.Secrets[k])
	}
	return env
}
