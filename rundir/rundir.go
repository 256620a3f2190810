// Package rundir manages the output directory of one fuzz run. Every run
// gets its own directory named by a random UUID; the coordinator writes the
// run summary and one configuration file per window into it before any
// worker starts, and workers read their window back from it.
package rundir

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/rony4d/opera-p2p-fuzzer/inter/nodeconfig"
	"github.com/rony4d/opera-p2p-fuzzer/inter/pair"
	"github.com/rony4d/opera-p2p-fuzzer/inter/peerid"
)

const (
	SummaryFile = "config_info.json"
	JournalFile = "journal.db"
)

// ErrWindowExists is returned when a window file would be written twice.
var ErrWindowExists = errors.New("window file already written")

// Summary is the run overview stored in SummaryFile.
type Summary struct {
	ID        string            `json:"id"`
	Seed      int64             `json:"seed"`
	NumNodes  int               `json:"num_nodes"`
	Ports     []int             `json:"ports"`
	PeerIDs   []peerid.Identity `json:"peer_ids"`
	Pairs     []pair.Pair       `json:"pairs"`
	Contract  common.Address    `json:"contract"`
	ChainPort int               `json:"blockchain_port"`
	Windows   int               `json:"windows"`
}

// Dir is a run directory.
type Dir struct {
	ID   uuid.UUID
	Path string
}

// Create makes a fresh run directory under base.
func Create(base string) (*Dir, error) {
	id := uuid.New()
	path := filepath.Join(base, id.String())
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("create run dir: %w", err)
	}
	return &Dir{ID: id, Path: path}, nil
}

// WindowPath is the configuration file of window i inside dir.
func WindowPath(dir string, i int) string {
	return filepath.Join(dir, fmt.Sprintf("window_%d.json", i))
}

// WorkerLog is the file receiving the output of window i's worker.
func (d *Dir) WorkerLog(i int) string {
	return filepath.Join(d.Path, fmt.Sprintf("worker_%d.log", i))
}

// JournalPath is the event journal database of the run.
func (d *Dir) JournalPath() string {
	return filepath.Join(d.Path, JournalFile)
}

// WriteSummary stores s as the run summary.
func (d *Dir) WriteSummary(s Summary) error {
	s.ID = d.ID.String()
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(d.Path, SummaryFile), b, 0o644)
}

// ReadSummary loads the run summary of dir.
func ReadSummary(dir string) (*Summary, error) {
	b, err := os.ReadFile(filepath.Join(dir, SummaryFile))
	if err != nil {
		return nil, err
	}
	s := new(Summary)
	if err := json.Unmarshal(b, s); err != nil {
		return nil, fmt.Errorf("decode %s: %w", SummaryFile, err)
	}
	return s, nil
}

// WriteWindow stores the configurations of window i. Each window file is
// written exactly once per run.
func (d *Dir) WriteWindow(i int, configs []nodeconfig.Config) error {
	b, err := json.MarshalIndent(nodeconfig.Window{Configs: configs}, "", "  ")
	if err != nil {
		return err
	}
	f, err := os.OpenFile(WindowPath(d.Path, i), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, os.ErrExist) {
		return fmt.Errorf("%w: window %d", ErrWindowExists, i)
	}
	if err != nil {
		return err
	}
	if _, err := f.Write(b); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadWindow loads the configurations of window i from dir.
func ReadWindow(dir string, i int) ([]nodeconfig.Config, error) {
	b, err := os.ReadFile(WindowPath(dir, i))
	if err != nil {
		return nil, err
	}
	var w nodeconfig.Window
	if err := json.Unmarshal(b, &w); err != nil {
		return nil, fmt.Errorf("decode window %d: %w", i, err)
	}
	return w.Configs, nil
}
