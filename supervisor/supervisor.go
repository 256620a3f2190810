// Package supervisor runs worker processes, one per window, and reports
// when they go away.
//
// A Supervisor is driven from a single goroutine: Start, Kill and KillAll
// must not be called concurrently. Exits of processes that were not killed
// through the Supervisor are delivered on the Exits channel.
package supervisor

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// Process is a started worker.
type Process interface {
	// Kill terminates the process immediately.
	Kill() error
	// Wait blocks until the process has exited.
	Wait() error
}

// Launcher starts worker processes.
type Launcher interface {
	Launch(msg StartMessage) (Process, error)
}

// Exit reports a worker that exited without being killed.
type Exit struct {
	ID     WorkerID
	Window int
	Err    error
}

// ErrUnknownWorker is returned for ids that are not running.
var ErrUnknownWorker = errors.New("unknown worker")

type worker struct {
	msg    StartMessage
	proc   Process
	killed int32
	done   chan struct{}
}

// Supervisor tracks the running workers.
type Supervisor struct {
	launcher Launcher
	workers  map[WorkerID]*worker
	exits    chan Exit
	quit     chan struct{}
	log      logrus.FieldLogger
}

// New returns a Supervisor launching through l.
func New(l Launcher, log logrus.FieldLogger) *Supervisor {
	return &Supervisor{
		launcher: l,
		workers:  make(map[WorkerID]*worker),
		exits:    make(chan Exit),
		quit:     make(chan struct{}),
		log:      log.WithField("module", "supervisor"),
	}
}

// Exits delivers unexpected worker exits.
func (s *Supervisor) Exits() <-chan Exit {
	return s.exits
}

// Start launches a worker for msg.
func (s *Supervisor) Start(msg StartMessage) error {
	if _, ok := s.workers[msg.WorkerID]; ok {
		return fmt.Errorf("worker %d already running", msg.WorkerID)
	}
	proc, err := s.launcher.Launch(msg)
	if err != nil {
		return fmt.Errorf("launch worker for window %d: %w", msg.Window, err)
	}
	w := &worker{msg: msg, proc: proc, done: make(chan struct{})}
	s.workers[msg.WorkerID] = w

	go func() {
		err := proc.Wait()
		close(w.done)
		if atomic.LoadInt32(&w.killed) == 1 {
			return
		}
		select {
		case s.exits <- Exit{ID: msg.WorkerID, Window: msg.Window, Err: err}:
		case <-s.quit:
		}
	}()

	s.log.WithFields(logrus.Fields{
		"worker":         msg.WorkerID,
		"window":         msg.Window,
		"node_version":   msg.NodeVersion,
		"report_version": msg.ReportVersion,
	}).Info("Worker started")
	return nil
}

// Kill terminates worker id and returns once its exit has been observed.
func (s *Supervisor) Kill(id WorkerID) error {
	w, ok := s.workers[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownWorker, id)
	}
	delete(s.workers, id)

	atomic.StoreInt32(&w.killed, 1)
	if err := w.proc.Kill(); err != nil {
		s.log.WithError(err).WithField("worker", id).Debug("Kill")
	}
	<-w.done

	s.log.WithFields(logrus.Fields{"worker": id, "window": w.msg.Window}).Info("Worker killed")
	return nil
}

// Forget drops a worker whose exit was delivered on Exits.
func (s *Supervisor) Forget(id WorkerID) {
	delete(s.workers, id)
}

// KillAll terminates every running worker and stops delivering exits.
func (s *Supervisor) KillAll() {
	for id := range s.workers {
		if err := s.Kill(id); err != nil {
			s.log.WithError(err).WithField("worker", id).Warn("Kill failed")
		}
	}
	select {
	case <-s.quit:
	default:
		close(s.quit)
	}
}

// Running is the number of live workers.
func (s *Supervisor) Running() int {
	return len(s.workers)
}

// Has reports whether worker id is running.
func (s *Supervisor) Has(id WorkerID) bool {
	_, ok := s.workers[id]
	return ok
}
