// Package reconciler drives one convergence pass: load stored state,
// compute the plan, execute it through the stepper, and persist every
// successful mutation immediately so a crash mid-pass is always
// recoverable by re-running.
package reconciler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/moby/locker"
	"golang.org/x/sync/semaphore"

	"github.com/avelinec/hubsync/internal/diff"
	"github.com/avelinec/hubsync/internal/fingerprint"
	"github.com/avelinec/hubsync/internal/logger"
	"github.com/avelinec/hubsync/internal/manifest"
	"github.com/avelinec/hubsync/internal/state"
	"github.com/avelinec/hubsync/internal/stepper"
)

// DefaultConcurrency bounds parallel stepper operations per pass.
const DefaultConcurrency = 4

// Option customizes a Reconciler.
type Option func(*Reconciler)

// WithConcurrency sets the maximum number of concurrently executing
// operations within one pass.
func WithConcurrency(n int) Option {
	return func(r *Reconciler) {
		if n > 0 {
			r.concurrency = int64(n)
		}
	}
}

// Reconciler executes reconciliation passes. Operations for distinct
// configuration ids run concurrently; a per-id lock keeps at most one
// operation in flight per id.
type Reconciler struct {
	store       state.Store
	steps       stepper.Stepper
	log         *logger.Logger
	concurrency int64
	locks       *locker.Locker
}

// New creates a Reconciler on top of the given store and stepper.
func New(store state.Store, steps stepper.Stepper, log *logger.Logger, opts ...Option) *Reconciler {
	r := &Reconciler{
		store:       store,
		steps:       steps,
		log:         log,
		concurrency: DefaultConcurrency,
		locks:       locker.New(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// task tracks one plan operation through both execution phases.
type task struct {
	op    diff.Operation
	entry *Entry
	// done short-circuits the create phase once an outcome is recorded,
	// e.g. when the delete half of a recreate already failed.
	done bool
}

func (t *task) finish(outcome Outcome, detail string, err error) {
	t.entry.Outcome = outcome
	t.entry.Detail = detail
	t.entry.Err = err
	t.done = true
}

func (t *task) fail(err error) {
	detail := err.Error()
	if stepper.IsConflict(err) {
		detail = "conflict: " + detail
	}
	t.finish(OutcomeError, detail, err)
}

// Run executes one reconciliation pass for the desired items. Item-level
// failures are reported, never raised; the returned error is non-nil only
// for State Store failures, which abort the pass because no safe decision
// can be made without accurate prior state.
func (r *Reconciler) Run(ctx context.Context, desired []manifest.Integration) (*Report, error) {
	runID := uuid.NewString()
	log := r.log.WithRun(runID)
	started := time.Now()

	stored, err := r.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load state: %w", err)
	}

	plan := diff.Compute(desired, stored)
	log.WithFields(map[string]any{
		"integrations": len(desired),
		"stored":       len(stored),
		"changes":      plan.Changes(),
	}).Info("reconciliation pass started")

	report := &Report{
		RunID:     runID,
		StartedAt: started,
		Entries:   make([]Entry, len(plan.Operations)),
	}

	tasks := make([]*task, len(plan.Operations))
	for i, op := range plan.Operations {
		report.Entries[i] = Entry{ID: op.ID, Action: op.Action}
		tasks[i] = &task{op: op, entry: &report.Entries[i]}
	}

	// The plan is a point-in-time snapshot; it is not recomputed even if
	// individual operations fail. Deletes and the delete halves of
	// recreates run before any create so a replaced id never transiently
	// exists twice in the external system.
	passCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var fatal fatalError
	r.runPhase(passCtx, cancel, log, tasks, true, &fatal)
	r.runPhase(passCtx, cancel, log, tasks, false, &fatal)

	report.Duration = time.Since(started)

	success, skipped, failed := report.Counts()
	log.WithFields(map[string]any{
		"success": success,
		"skipped": skipped,
		"failed":  failed,
	}).Info("reconciliation pass finished")

	if err := fatal.get(); err != nil {
		return report, err
	}
	return report, nil
}

// fatalError records the first State Store failure and cancels the pass.
type fatalError struct {
	once sync.Once
	mu   sync.Mutex
	err  error
}

func (f *fatalError) set(err error, cancel context.CancelFunc) {
	f.once.Do(func() {
		f.mu.Lock()
		f.err = err
		f.mu.Unlock()
		cancel()
	})
}

func (f *fatalError) get() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

func (r *Reconciler) runPhase(ctx context.Context, cancel context.CancelFunc, log *logger.Logger, tasks []*task, deletePhase bool, fatal *fatalError) {
	sem := semaphore.NewWeighted(r.concurrency)
	var wg sync.WaitGroup

	for _, t := range tasks {
		if t.done || !participates(t, deletePhase) {
			continue
		}

		if err := sem.Acquire(ctx, 1); err != nil {
			t.finish(OutcomeSkipped, "pass cancelled before execution", nil)
			continue
		}

		wg.Add(1)
		go func(t *task) {
			defer wg.Done()
			defer sem.Release(1)

			if ctx.Err() != nil {
				t.finish(OutcomeSkipped, "pass cancelled before execution", nil)
				return
			}

			r.locks.Lock(t.op.ID)
			defer r.locks.Unlock(t.op.ID) //nolint:errcheck

			if err := r.execute(ctx, log, t, deletePhase); err != nil {
				log.Error(err, "state store failure, aborting pass")
				fatal.set(err, cancel)
			}
		}(t)
	}

	wg.Wait()
}

func participates(t *task, deletePhase bool) bool {
	switch t.op.Action {
	case diff.ActionDelete:
		return deletePhase
	case diff.ActionRecreate:
		return true
	default:
		return !deletePhase
	}
}

// execute runs the task's slice of work for the current phase. The
// returned error is reserved for State Store failures; everything else is
// recorded on the task's report entry.
func (r *Reconciler) execute(ctx context.Context, log *logger.Logger, t *task, deletePhase bool) error {
	opLog := log.WithIntegration(t.op.ID, string(t.op.Action))

	switch t.op.Action {
	case diff.ActionNoop:
		t.finish(OutcomeSuccess, "up to date", nil)
		opLog.Debug("integration already converged")
		return nil
	case diff.ActionDelete:
		return r.executeDelete(ctx, opLog, t)
	case diff.ActionRecreate:
		if deletePhase {
			return r.executeRecreateDelete(ctx, opLog, t)
		}
		return r.executeCreate(ctx, opLog, t, true)
	case diff.ActionCreate:
		return r.executeCreate(ctx, opLog, t, false)
	case diff.ActionUpdateOptions:
		return r.executeUpdateOptions(ctx, opLog, t)
	default:
		t.finish(OutcomeError, fmt.Sprintf("unknown action %q", t.op.Action), nil)
		return nil
	}
}

func (r *Reconciler) executeDelete(ctx context.Context, log *logger.Logger, t *task) error {
	if err := r.deleteInstance(ctx, log, t); err != nil {
		return err
	}
	if !t.done {
		t.finish(OutcomeSuccess, "deleted", nil)
		log.Info("integration deleted")
	}
	return nil
}

func (r *Reconciler) executeRecreateDelete(ctx context.Context, log *logger.Logger, t *task) error {
	if err := r.deleteInstance(ctx, log, t); err != nil {
		return err
	}
	if !t.done {
		// The removal is durable before the create half starts: a crash
		// here leaves state the next pass converges from with a plain
		// create, never a resurrected stale record.
		log.Debug("stale instance removed, recreating")
	}
	return nil
}

// deleteInstance removes the external instance and its stored record. An
// instance already removed out-of-band counts as success: the goal state
// (absence) already holds.
func (r *Reconciler) deleteInstance(ctx context.Context, log *logger.Logger, t *task) error {
	handle := t.op.Record.InstanceHandle

	if err := r.steps.Delete(ctx, handle); err != nil {
		if !stepper.IsNotFound(err) {
			t.fail(err)
			log.Error(err, "failed to delete integration")
			return nil
		}
		log.Debug("instance already absent, treating delete as success")
	}

	if err := r.store.Remove(ctx, t.op.ID); err != nil {
		t.fail(err)
		return err
	}
	return nil
}

func (r *Reconciler) executeCreate(ctx context.Context, log *logger.Logger, t *task, recreate bool) error {
	d := t.op.Desired
	verb := "created"
	if recreate {
		verb = "recreated"
	}

	handle, err := r.steps.Begin(ctx, d.Platform, d.Answers)
	if err != nil {
		t.fail(err)
		log.Error(err, "setup flow failed")
		return nil
	}

	rec := state.Record{
		Platform:      d.Platform,
		AnswersDigest: fingerprint.Steps(d.Answers),
		// Options are not applied yet; fingerprint the empty sequence so
		// a failed options sub-step is retried by the next pass.
		OptionsDigest:  fingerprint.Steps(nil),
		InstanceHandle: handle,
		AppliedAt:      time.Now().UTC(),
	}
	if err := r.store.Save(ctx, t.op.ID, rec); err != nil {
		t.fail(err)
		return err
	}

	if len(d.Options) == 0 {
		// Steps(nil) equals the digest of an empty options sequence, so
		// the record already reflects the desired options.
		t.finish(OutcomeSuccess, verb, nil)
		log.Info("integration " + verb)
		return nil
	}

	// Options are best-effort: the integration exists either way, and a
	// failure here must not roll back the create.
	supported, err := r.steps.SupportsOptions(ctx, handle)
	if err != nil {
		t.finish(OutcomeError, fmt.Sprintf("%s, but options support check failed: %v", verb, err), err)
		log.Error(err, "options support check failed")
		return nil
	}
	if !supported {
		t.finish(OutcomeSuccess, verb+" (options skipped: platform does not support options)", nil)
		log.Warn("platform does not support options")
		return nil
	}

	if err := r.steps.UpdateOptions(ctx, handle, d.Options); err != nil {
		t.finish(OutcomeError, fmt.Sprintf("%s, but options update failed: %v", verb, err), err)
		log.Error(err, "options update failed")
		return nil
	}

	rec.OptionsDigest = fingerprint.Steps(d.Options)
	if err := r.store.Save(ctx, t.op.ID, rec); err != nil {
		t.fail(err)
		return err
	}

	t.finish(OutcomeSuccess, verb, nil)
	log.Info("integration " + verb)
	return nil
}

func (r *Reconciler) executeUpdateOptions(ctx context.Context, log *logger.Logger, t *task) error {
	rec := *t.op.Record
	d := t.op.Desired

	supported, err := r.steps.SupportsOptions(ctx, rec.InstanceHandle)
	if err != nil {
		t.fail(err)
		log.Error(err, "options support check failed")
		return nil
	}
	if !supported {
		t.finish(OutcomeSkipped, "options not supported by platform", nil)
		log.Warn("platform does not support options")
		return nil
	}

	if err := r.steps.UpdateOptions(ctx, rec.InstanceHandle, d.Options); err != nil {
		t.fail(err)
		log.Error(err, "options update failed")
		return nil
	}

	rec.OptionsDigest = fingerprint.Steps(d.Options)
	if err := r.store.Save(ctx, t.op.ID, rec); err != nil {
		t.fail(err)
		return err
	}

	t.finish(OutcomeSuccess, "options updated", nil)
	log.Info("options updated")
	return nil
}
