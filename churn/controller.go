// Package churn drives the running worker pool: it disconnects workers at
// random, respawns them after a delay with drifted protocol versions and
// forces every worker back onto the newest version once a version mismatch
// has been tolerated for too many rounds.
//
// All state is owned by the goroutine executing Controller.Run. Respawn
// timers and worker exits reach it as messages; nothing else touches it.
package churn

import (
	"context"
	"math/rand"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/rony4d/opera-p2p-fuzzer/fuzzconfig"
	"github.com/rony4d/opera-p2p-fuzzer/inter/version"
	"github.com/rony4d/opera-p2p-fuzzer/journal"
	"github.com/rony4d/opera-p2p-fuzzer/metrics"
	"github.com/rony4d/opera-p2p-fuzzer/supervisor"
	"github.com/rony4d/opera-p2p-fuzzer/utils/rnd"
)

// Disconnect reasons.
const (
	ReasonRandom    = "random"
	ReasonReconcile = "reconcile"
	ReasonExit      = "exit"
)

// Pool is the worker pool the controller acts on.
type Pool interface {
	Start(msg supervisor.StartMessage) error
	Kill(id supervisor.WorkerID) error
	Forget(id supervisor.WorkerID)
	KillAll()
	Exits() <-chan supervisor.Exit
}

// Command is an instruction processed by the scheduling loop.
type Command interface {
	command()
}

// Disconnect kills a running worker and schedules its respawn.
type Disconnect struct {
	ID     supervisor.WorkerID
	Reason string
}

// Respawn starts a new worker for a window whose worker went away.
// Versions are those of the previous worker.
type Respawn struct {
	Window   int
	Versions Versions
}

func (Disconnect) command() {}
func (Respawn) command()    {}

// Record is the controller's view of one running worker.
type Record struct {
	ID        supervisor.WorkerID
	Window    int
	Versions  Versions
	OutputDir string
}

// Options configure a Controller.
type Options struct {
	Churn fuzzconfig.Churn
	Skew  fuzzconfig.Skew

	OutputDir string

	// Secrets holds the key variables of every window, indexed by window.
	Secrets []map[string]string
}

// Controller is the churn and version-skew state machine.
type Controller struct {
	opts    Options
	rng     *rand.Rand
	pool    Pool
	journal journal.Recorder
	log     logrus.FieldLogger

	initial Versions
	axes    [axes]AxisState

	nextID  supervisor.WorkerID
	workers map[supervisor.WorkerID]*Record
	// reset marks windows whose next respawn takes the watermark of an axis.
	reset map[int]*[axes]bool

	commands chan Command
	schedule func(d time.Duration, cmd Command)
}

// New returns a controller for len(opts.Secrets) windows. Every worker
// starts with initial, which is also the starting watermark of both axes.
func New(opts Options, initial Versions, r *rand.Rand, pool Pool, rec journal.Recorder, log logrus.FieldLogger) *Controller {
	c := &Controller{
		opts:     opts,
		rng:      r,
		pool:     pool,
		journal:  rec,
		log:      log.WithField("module", "churn"),
		initial:  initial,
		workers:  make(map[supervisor.WorkerID]*Record),
		reset:    make(map[int]*[axes]bool),
		commands: make(chan Command),
	}
	c.axes[AxisNode] = AxisState{Watermark: initial.Node}
	c.axes[AxisReport] = AxisState{Watermark: initial.Report}
	return c
}

// Windows is the number of windows the controller keeps running.
func (c *Controller) Windows() int {
	return len(c.opts.Secrets)
}

// Axis returns the current bookkeeping of a.
func (c *Controller) Axis(a Axis) AxisState {
	return c.axes[a]
}

// Workers returns the running workers ordered by id.
func (c *Controller) Workers() []Record {
	out := make([]Record, 0, len(c.workers))
	for _, id := range c.ids() {
		out = append(out, *c.workers[id])
	}
	return out
}

// Run starts one worker per window and schedules rounds until ctx is done.
// On return every worker has been killed.
func (c *Controller) Run(ctx context.Context) error {
	if c.schedule == nil {
		c.schedule = c.after(ctx)
	}
	defer func() {
		c.pool.KillAll()
		c.workers = make(map[supervisor.WorkerID]*Record)
		metrics.WorkersRunning.Set(0)
	}()

	if err := c.StartAll(ctx); err != nil {
		return err
	}

	timer := time.NewTimer(c.NextRound())
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			c.log.Info("Stopping worker pool")
			return nil
		case <-timer.C:
			c.Round(ctx)
			timer.Reset(c.NextRound())
		case cmd := <-c.commands:
			c.Handle(ctx, cmd)
		case e := <-c.pool.Exits():
			c.exited(ctx, e)
		}
	}
}

// StartAll launches the first worker of every window.
func (c *Controller) StartAll(ctx context.Context) error {
	for w := 0; w < c.Windows(); w++ {
		if _, err := c.start(ctx, w, c.initial, journal.KindStart); err != nil {
			return err
		}
	}
	return nil
}

// NextRound samples the pause before the next round.
func (c *Controller) NextRound() time.Duration {
	r := c.opts.Churn.DisconnectInterval
	return rnd.DurationRange(c.rng, r.Min, r.Max)
}

// Round runs one scheduling round: mismatch escalation, then the random
// disconnect.
func (c *Controller) Round(ctx context.Context) {
	for a := Axis(0); a < axes; a++ {
		st := &c.axes[a]
		if st.State != Mismatched {
			continue
		}
		st.Outdated++
		metrics.OutdatedRounds.WithLabelValues(a.String()).Set(float64(st.Outdated))
		if st.Outdated > c.opts.Skew.OutdatedRoundsAllowed {
			c.reconcile(ctx, a)
		} else {
			c.log.WithFields(logrus.Fields{
				"axis":     a,
				"outdated": st.Outdated,
				"allowed":  c.opts.Skew.OutdatedRoundsAllowed,
			}).Debug("Version mismatch tolerated")
		}
	}

	if !c.opts.Churn.AllowDisconnects || len(c.workers) == 0 {
		return
	}
	if rnd.Chance(c.rng, c.opts.Churn.RandomDisconnectChance) {
		ids := c.ids()
		c.Handle(ctx, Disconnect{ID: ids[c.rng.Intn(len(ids))], Reason: ReasonRandom})
	}
}

// Handle processes one command.
func (c *Controller) Handle(ctx context.Context, cmd Command) {
	switch cmd := cmd.(type) {
	case Disconnect:
		c.disconnect(ctx, cmd)
	case Respawn:
		c.respawn(ctx, cmd)
	}
}

// reconcile returns axis a to STABLE and restarts every worker so that it
// comes back on the axis watermark.
func (c *Controller) reconcile(ctx context.Context, a Axis) {
	st := &c.axes[a]
	st.Outdated = 0
	st.State = Stable
	for w := 0; w < c.Windows(); w++ {
		c.marks(w)[a] = true
	}

	metrics.Reconciliations.WithLabelValues(a.String()).Inc()
	metrics.Mismatched.WithLabelValues(a.String()).Set(0)
	metrics.OutdatedRounds.WithLabelValues(a.String()).Set(0)
	c.log.WithFields(logrus.Fields{
		"axis":      a,
		"watermark": c.target(a),
		"workers":   len(c.workers),
	}).Warn("Forcing version reconciliation")
	c.record(ctx, journal.Event{Kind: journal.KindReconcile, Detail: a.String(), NodeVersion: c.target(AxisNode).String(), ReportVersion: c.target(AxisReport).String()})

	for _, id := range c.ids() {
		c.Handle(ctx, Disconnect{ID: id, Reason: ReasonReconcile})
	}
}

func (c *Controller) disconnect(ctx context.Context, cmd Disconnect) {
	rec, ok := c.workers[cmd.ID]
	if !ok {
		c.log.WithField("worker", cmd.ID).Debug("Disconnect for a worker that is gone")
		return
	}
	if err := c.pool.Kill(cmd.ID); err != nil {
		c.log.WithError(err).WithField("worker", cmd.ID).Warn("Kill failed")
	}
	delete(c.workers, cmd.ID)
	metrics.WorkersRunning.Set(float64(len(c.workers)))
	metrics.Disconnects.WithLabelValues(cmd.Reason).Inc()

	c.record(ctx, c.event(journal.KindDisconnect, rec, cmd.Reason))
	c.scheduleRespawn(rec)
}

// exited handles a worker that went away on its own. It is respawned like
// a disconnected one.
func (c *Controller) exited(ctx context.Context, e supervisor.Exit) {
	rec, ok := c.workers[e.ID]
	if !ok {
		return
	}
	c.pool.Forget(e.ID)
	delete(c.workers, e.ID)
	metrics.WorkersRunning.Set(float64(len(c.workers)))
	metrics.UnexpectedExits.Inc()

	detail := "exited"
	if e.Err != nil {
		detail = e.Err.Error()
	}
	c.log.WithFields(logrus.Fields{
		"worker": e.ID,
		"window": e.Window,
		"err":    detail,
	}).Warn("Worker exited unexpectedly")
	c.record(ctx, c.event(journal.KindExit, rec, detail))
	c.scheduleRespawn(rec)
}

func (c *Controller) scheduleRespawn(rec *Record) {
	r := c.opts.Churn.ReconnectInterval
	delay := rnd.DurationRange(c.rng, r.Min, r.Max)
	c.log.WithFields(logrus.Fields{
		"window": rec.Window,
		"delay":  delay,
	}).Debug("Respawn scheduled")
	c.schedule(delay, Respawn{Window: rec.Window, Versions: rec.Versions})
}

func (c *Controller) respawn(ctx context.Context, cmd Respawn) {
	vs := cmd.Versions
	for a := Axis(0); a < axes; a++ {
		vs.set(a, c.evolve(cmd.Window, a, vs.get(a)))
	}
	if _, err := c.start(ctx, cmd.Window, vs, journal.KindRespawn); err != nil {
		c.log.WithError(err).WithField("window", cmd.Window).Error("Respawn failed, retrying later")
		c.scheduleRespawn(&Record{Window: cmd.Window, Versions: cmd.Versions})
		return
	}
	metrics.Respawns.Inc()
}

// evolve returns the version a respawned worker of window runs on axis a.
// A pending reconciliation wins over a random bump.
func (c *Controller) evolve(window int, a Axis, v version.Version) version.Version {
	if m := c.reset[window]; m != nil && m[a] {
		m[a] = false
		return c.target(a)
	}

	enabled, chance := c.opts.Skew.RandomlyUpdateNodes, c.opts.Skew.UpdateNodesChance
	if a == AxisReport {
		enabled, chance = c.opts.Skew.RandomlyUpdateReports, c.opts.Skew.UpdateReportsChance
	}
	if !enabled || !rnd.Chance(c.rng, chance) {
		return v
	}

	bump := c.bumpKind()
	next := v.Apply(bump)
	st := &c.axes[a]
	st.Watermark = version.Latest(st.Watermark, next)
	if bump == version.BumpMajor {
		if st.State != Mismatched {
			c.log.WithFields(logrus.Fields{"axis": a, "version": next}).Info("Version mismatch started")
		}
		st.State = Mismatched
		metrics.Mismatched.WithLabelValues(a.String()).Set(1)
	}
	metrics.VersionBumps.WithLabelValues(a.String(), bump.String()).Inc()
	return next
}

func (c *Controller) bumpKind() version.Bump {
	switch {
	case rnd.Chance(c.rng, c.opts.Skew.MajorUpdateChance):
		return version.BumpMajor
	case rnd.Chance(c.rng, c.opts.Skew.MinorUpdateChance):
		return version.BumpMinor
	default:
		return version.BumpPatch
	}
}

// target is the version an axis is reconciled to.
func (c *Controller) target(a Axis) version.Version {
	if a == AxisReport && c.opts.Skew.ReportResetUsesNodeVersion {
		return c.axes[AxisNode].Watermark
	}
	return c.axes[a].Watermark
}

func (c *Controller) start(ctx context.Context, window int, vs Versions, kind journal.Kind) (*Record, error) {
	c.nextID++
	rec := &Record{
		ID:        c.nextID,
		Window:    window,
		Versions:  vs,
		OutputDir: c.opts.OutputDir,
	}
	err := c.pool.Start(supervisor.StartMessage{
		WorkerID:      rec.ID,
		Window:        window,
		OutputDir:     rec.OutputDir,
		NodeVersion:   vs.Node,
		ReportVersion: vs.Report,
		Secrets:       c.opts.Secrets[window],
	})
	if err != nil {
		return nil, err
	}
	c.workers[rec.ID] = rec
	metrics.WorkersRunning.Set(float64(len(c.workers)))
	c.record(ctx, c.event(kind, rec, ""))
	return rec, nil
}

func (c *Controller) marks(window int) *[axes]bool {
	m, ok := c.reset[window]
	if !ok {
		m = new([axes]bool)
		c.reset[window] = m
	}
	return m
}

func (c *Controller) ids() []supervisor.WorkerID {
	ids := make([]supervisor.WorkerID, 0, len(c.workers))
	for id := range c.workers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (c *Controller) event(kind journal.Kind, rec *Record, detail string) journal.Event {
	return journal.Event{
		Kind:          kind,
		WorkerID:      uint64(rec.ID),
		Window:        rec.Window,
		NodeVersion:   rec.Versions.Node.String(),
		ReportVersion: rec.Versions.Report.String(),
		Detail:        detail,
	}
}

func (c *Controller) record(ctx context.Context, e journal.Event) {
	if err := c.journal.Record(ctx, e); err != nil {
		c.log.WithError(err).Warn("Journal write failed")
	}
}

// after delivers cmd to the loop once d has elapsed, unless ctx ends first.
func (c *Controller) after(ctx context.Context) func(time.Duration, Command) {
	return func(d time.Duration, cmd Command) {
		time.AfterFunc(d, func() {
			select {
			case c.commands <- cmd:
			case <-ctx.Done():
			}
		})
	}
}
