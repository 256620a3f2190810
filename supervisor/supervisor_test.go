package supervisor

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/rony4d/opera-p2p-fuzzer/inter/version"
)

// fakeProcess runs until killed or crashed.
type fakeProcess struct {
	once sync.Once
	exit chan error
}

func newFakeProcess() *fakeProcess {
	return &fakeProcess{exit: make(chan error, 1)}
}

func (p *fakeProcess) stop(err error) {
	p.once.Do(func() { p.exit <- err })
}

func (p *fakeProcess) Kill() error {
	p.stop(errors.New("signal: killed"))
	return nil
}

func (p *fakeProcess) Wait() error {
	return <-p.exit
}

type fakeLauncher struct {
	mu       sync.Mutex
	launched []StartMessage
	procs    map[WorkerID]*fakeProcess
}

func newFakeLauncher() *fakeLauncher {
	return &fakeLauncher{procs: make(map[WorkerID]*fakeProcess)}
}

func (l *fakeLauncher) Launch(msg StartMessage) (Process, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	p := newFakeProcess()
	l.launched = append(l.launched, msg)
	l.procs[msg.WorkerID] = p
	return p, nil
}

func (l *fakeLauncher) proc(id WorkerID) *fakeProcess {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.procs[id]
}

func testMessage(id WorkerID, window int) StartMessage {
	return StartMessage{
		WorkerID:      id,
		Window:        window,
		OutputDir:     "/tmp/run",
		NodeVersion:   version.New(1, 2, 3),
		ReportVersion: version.New(2, 0, 1),
		Secrets:       map[string]string{"EVM_PRIVATE_KEY1": "0x01", "EVM_PRIVATE_KEY0": "0x00"},
	}
}

func TestStartMessageEnv(t *testing.T) {
	require := require.New(t)

	env := testMessage(7, 2).Env()
	require.Equal([]string{
		"FUZZ_OUTPUT_DIR=/tmp/run",
		"FUZZ_WINDOW_INDEX=2",
		"FUZZ_WORKER_ID=7",
		"P2P_NODE_VERSION=1.2.3",
		"P2P_REPORT_VERSION=2.0.1",
		"EVM_PRIVATE_KEY0=0x00",
		"EVM_PRIVATE_KEY1=0x01",
	}, env)
}

func TestStartAndKill(t *testing.T) {
	require := require.New(t)
	log, _ := test.NewNullLogger()

	l := newFakeLauncher()
	s := New(l, log)

	require.NoError(s.Start(testMessage(1, 0)))
	require.NoError(s.Start(testMessage(2, 1)))
	require.Equal(2, s.Running())
	require.Error(s.Start(testMessage(1, 0)), "ids are unique")

	require.NoError(s.Kill(1))
	require.False(s.Has(1))
	require.True(s.Has(2))
	require.True(errors.Is(s.Kill(1), ErrUnknownWorker))

	// Killed workers are not reported as exits.
	select {
	case e := <-s.Exits():
		t.Fatalf("unexpected exit of worker %d", e.ID)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestUnexpectedExit(t *testing.T) {
	require := require.New(t)
	log, _ := test.NewNullLogger()

	l := newFakeLauncher()
	s := New(l, log)
	require.NoError(s.Start(testMessage(5, 3)))

	l.proc(5).stop(errors.New("exit status 2"))

	select {
	case e := <-s.Exits():
		require.Equal(WorkerID(5), e.ID)
		require.Equal(3, e.Window)
		require.EqualError(e.Err, "exit status 2")
		s.Forget(e.ID)
	case <-time.After(time.Second):
		t.Fatal("exit not delivered")
	}
	require.Equal(0, s.Running())
}

func TestKillAll(t *testing.T) {
	require := require.New(t)
	log, hook := test.NewNullLogger()

	l := newFakeLauncher()
	s := New(l, log)
	for i := 0; i < 4; i++ {
		require.NoError(s.Start(testMessage(WorkerID(i+1), i)))
	}
	s.KillAll()
	require.Equal(0, s.Running())
	s.KillAll()

	// Every worker was killed through its process and none failed to stop.
	for i := 0; i < 4; i++ {
		select {
		case <-l.proc(WorkerID(i + 1)).exit:
			t.Fatalf("worker %d exit was not consumed", i+1)
		default:
		}
	}
	for _, e := range hook.AllEntries() {
		require.NotEqual("Kill failed", e.Message)
	}
}

func TestExecLauncher(t *testing.T) {
	require := require.New(t)
	log, _ := test.NewNullLogger()

	dir := t.TempDir()
	l := &ExecLauncher{
		Binary: "/bin/sh",
		Args:   []string{"-c", `echo "window=$FUZZ_WINDOW_INDEX node=$P2P_NODE_VERSION key=$EVM_PRIVATE_KEY1"; exec sleep 30`},
		LogPath: func(window int) string {
			return filepath.Join(dir, "worker.log")
		},
	}
	s := New(l, log)
	require.NoError(s.Start(testMessage(1, 4)))

	var out string
	require.Eventually(func() bool {
		b, err := os.ReadFile(filepath.Join(dir, "worker.log"))
		out = string(b)
		return err == nil && strings.Contains(out, "\n")
	}, 5*time.Second, 20*time.Millisecond)
	require.Equal("window=4 node=1.2.3 key=0x01\n", out)

	done := make(chan struct{})
	go func() {
		s.Kill(1)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("kill did not return")
	}
}
