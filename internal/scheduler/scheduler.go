// Package scheduler runs pollers: a wait, fetch, notify loop with suspend-on-failure,
// a disabled state and prompt cancellation.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"calendar_bot/internal/domain"
	"calendar_bot/internal/telemetry"
)

// Job is the poller-specific part of a cycle.
type Job interface {
	Name() string
	// Enabled is consulted at the top of every cycle.
	Enabled() bool
	// NextWait returns how long to wait before the next fetch. It is called once per cycle
	// and must derive everything from now and the current settings.
	NextWait(now time.Time) time.Duration
	// Fetch queries the source. It must not change any poller state.
	Fetch(ctx context.Context, now time.Time) (Batch, error)
}

// Batch is the result of a successful fetch.
type Batch interface {
	// Notify delivers the batch and records what was handled. Delivery failures are
	// logged and counted, never returned.
	Notify(ctx context.Context) domain.CycleStats
}

// StateReporter is implemented by jobs that can describe what they have handled. The
// snapshot is added to the cycle log.
type StateReporter interface {
	State() domain.PollerState
}

func stateAttrs(st domain.PollerState) []any {
	attrs := []any{"first_run", st.IsFirstRun}
	if st.LastSyncInstant != nil {
		attrs = append(attrs, "last_sync", *st.LastSyncInstant)
	}
	if st.LastHandledOccurrenceID != "" {
		attrs = append(attrs, "last_occurrence", string(st.LastHandledOccurrenceID))
	}
	if st.LastSeenItemID != "" {
		attrs = append(attrs, "last_seen_item", st.LastSeenItemID)
	}
	return attrs
}

// State is the runner's position in its cycle.
type State int32

const (
	StateIdle State = iota
	StateWaiting
	StateFetching
	StateNotifying
	StateSuspended
	StateDisabled
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateWaiting:
		return "waiting"
	case StateFetching:
		return "fetching"
	case StateNotifying:
		return "notifying"
	case StateSuspended:
		return "suspended"
	case StateDisabled:
		return "disabled"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Options tune a Runner. Zero values get defaults; Now and After exist for tests.
type Options struct {
	// Backoff is the pause after a failed cycle.
	Backoff time.Duration
	// DisabledRecheck is how often a disabled poller looks at its enabled flag again.
	DisabledRecheck time.Duration

	Now   func() time.Time
	After func(time.Duration) <-chan time.Time
}

// Runner drives one Job until its context is cancelled.
type Runner struct {
	job             Job
	backoff         time.Duration
	disabledRecheck time.Duration
	now             func() time.Time
	after           func(time.Duration) <-chan time.Time
	logger          *slog.Logger

	state       atomic.Int32
	lastAuthErr string
}

// NewRunner creates a runner for job.
func NewRunner(job Job, opts Options, logger *slog.Logger) *Runner {
	if opts.Backoff <= 0 {
		opts.Backoff = time.Minute
	}
	if opts.DisabledRecheck <= 0 {
		opts.DisabledRecheck = time.Minute
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.After == nil {
		opts.After = time.After
	}

	return &Runner{
		job:             job,
		backoff:         opts.Backoff,
		disabledRecheck: opts.DisabledRecheck,
		now:             opts.Now,
		after:           opts.After,
		logger:          logger.With("poller", job.Name()),
	}
}

// State reports what the runner is doing right now.
func (r *Runner) State() State {
	return State(r.state.Load())
}

// Start runs cycles until ctx is cancelled and returns ctx.Err(). A cycle that already
// started fetching runs to completion; no new fetch starts after cancellation.
func (r *Runner) Start(ctx context.Context) error {
	r.logger.Info("poller started", "backoff", r.backoff)
	defer func() {
		r.setState(StateStopped)
		r.logger.Info("poller stopped")
	}()

	// retrying is set after a failed cycle: the backoff replaces the next wait.
	retrying := false

	for {
		r.setState(StateIdle)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if !r.job.Enabled() {
			retrying = false
			r.setState(StateDisabled)
			telemetry.PollerCycles.WithLabelValues(r.job.Name(), telemetry.ResultDisabled).Inc()
			if !r.sleep(ctx, r.disabledRecheck) {
				return ctx.Err()
			}
			continue
		}

		if !retrying {
			r.setState(StateWaiting)
			wait := r.job.NextWait(r.now())
			r.logger.Debug("waiting for next cycle", "wait", wait)
			if !r.sleep(ctx, wait) {
				return ctx.Err()
			}

			// The enabled flag may have been switched off while waiting.
			if !r.job.Enabled() {
				continue
			}
		}
		retrying = false

		if err := r.runCycle(context.WithoutCancel(ctx)); err != nil {
			r.setState(StateSuspended)
			r.logFailure(err)
			telemetry.PollerCycles.WithLabelValues(r.job.Name(), telemetry.ResultError).Inc()
			if !r.sleep(ctx, r.backoff) {
				return ctx.Err()
			}
			retrying = true
			continue
		}

		r.lastAuthErr = ""
		telemetry.PollerCycles.WithLabelValues(r.job.Name(), telemetry.ResultOK).Inc()
	}
}

func (r *Runner) runCycle(ctx context.Context) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("cycle panicked: %v: %w", p, domain.ErrSourceUnavailable)
		}
	}()

	start := r.now()

	r.setState(StateFetching)
	batch, err := r.job.Fetch(ctx, start)
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}

	r.setState(StateNotifying)
	stats := batch.Notify(ctx)
	stats.Duration = r.now().Sub(start)
	telemetry.CycleDuration.WithLabelValues(r.job.Name()).Observe(stats.Duration.Seconds())

	attrs := []any{
		"fetched", stats.Fetched,
		"new", stats.New,
		"skipped", stats.Skipped,
		"notified", stats.Notified,
		"errors", stats.Errors,
		"duration", stats.Duration,
	}
	if reporter, ok := r.job.(StateReporter); ok {
		attrs = append(attrs, stateAttrs(reporter.State())...)
	}
	r.logger.Info("cycle completed", attrs...)

	return nil
}

// logFailure logs a failed cycle. Repeated identical authentication failures are logged
// once; they would otherwise repeat every backoff period until an operator fixes them.
func (r *Runner) logFailure(err error) {
	if errors.Is(err, domain.ErrAuth) {
		if err.Error() == r.lastAuthErr {
			r.logger.Debug("cycle failed, authentication still failing", "error", err, "retry_in", r.backoff)
			return
		}
		r.lastAuthErr = err.Error()
	}
	r.logger.Error("cycle failed", "error", err, "retry_in", r.backoff)
}

// sleep waits for d or cancellation and reports whether the wait completed.
func (r *Runner) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	select {
	case <-ctx.Done():
		return false
	case <-r.after(d):
		return ctx.Err() == nil
	}
}

func (r *Runner) setState(s State) {
	r.state.Store(int32(s))
	telemetry.PollerState.WithLabelValues(r.job.Name()).Set(float64(s))
}
