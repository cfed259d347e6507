package scheduler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"calendar_bot/internal/domain"
)

type fakeBatch struct {
	job *fakeJob
}

func (b fakeBatch) Notify(ctx context.Context) domain.CycleStats {
	b.job.notified++
	if b.job.onNotify != nil {
		b.job.onNotify(ctx)
	}
	return domain.CycleStats{Notified: 1}
}

type fakeJob struct {
	enabled  func() bool
	wait     time.Duration
	fetch    func(ctx context.Context, call int) error
	onNotify func(ctx context.Context)

	waits    []time.Time
	fetches  int
	notified int
}

func (j *fakeJob) Name() string { return "fake" }

func (j *fakeJob) Enabled() bool {
	if j.enabled == nil {
		return true
	}
	return j.enabled()
}

func (j *fakeJob) NextWait(now time.Time) time.Duration {
	j.waits = append(j.waits, now)
	return j.wait
}

func (j *fakeJob) Fetch(ctx context.Context, _ time.Time) (Batch, error) {
	j.fetches++
	if j.fetch != nil {
		if err := j.fetch(ctx, j.fetches); err != nil {
			return nil, err
		}
	}
	return fakeBatch{job: j}, nil
}

type reportingJob struct {
	fakeJob
	reports int
}

func (j *reportingJob) State() domain.PollerState {
	j.reports++
	return domain.PollerState{LastSeenItemID: "v1"}
}

// captureHandler counts records per level.
type captureHandler struct {
	mu     sync.Mutex
	levels map[slog.Level]int
}

func (h *captureHandler) Enabled(context.Context, slog.Level) bool { return true }
func (h *captureHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.levels[r.Level]++
	return nil
}
func (h *captureHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *captureHandler) WithGroup(string) slog.Handler      { return h }

type RunnerTestSuite struct {
	suite.Suite

	ctx    context.Context
	cancel context.CancelFunc
	sleeps []time.Duration
	logs   *captureHandler
	now    time.Time
}

func (s *RunnerTestSuite) SetupTest() {
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.sleeps = nil
	s.logs = &captureHandler{levels: map[slog.Level]int{}}
	s.now = time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)
}

func (s *RunnerTestSuite) TearDownTest() {
	s.cancel()
}

func TestRunnerTestSuite(t *testing.T) {
	suite.Run(t, new(RunnerTestSuite))
}

// newRunner builds a runner whose timers fire immediately and are recorded.
func (s *RunnerTestSuite) newRunner(job Job) *Runner {
	return NewRunner(job, Options{
		Backoff:         time.Minute,
		DisabledRecheck: 30 * time.Second,
		Now:             func() time.Time { return s.now },
		After: func(d time.Duration) <-chan time.Time {
			s.sleeps = append(s.sleeps, d)
			ch := make(chan time.Time, 1)
			ch <- s.now
			return ch
		},
	}, slog.New(s.logs))
}

func (s *RunnerTestSuite) TestCyclesUntilCancelled() {
	job := &fakeJob{wait: 5 * time.Minute}
	job.onNotify = func(context.Context) {
		if job.notified == 3 {
			s.cancel()
		}
	}
	r := s.newRunner(job)

	err := r.Start(s.ctx)

	s.ErrorIs(err, context.Canceled)
	s.Equal(3, job.fetches)
	s.Equal(3, job.notified)
	s.Equal([]time.Duration{5 * time.Minute, 5 * time.Minute, 5 * time.Minute}, s.sleeps)
	s.Equal(StateStopped, r.State())
}

func (s *RunnerTestSuite) TestFailureSuspendsWithBackoffAndRetries() {
	job := &fakeJob{wait: 5 * time.Minute}
	job.fetch = func(_ context.Context, call int) error {
		if call == 1 {
			return fmt.Errorf("list events: %w", domain.ErrSourceUnavailable)
		}
		return nil
	}
	job.onNotify = func(context.Context) { s.cancel() }
	r := s.newRunner(job)

	err := r.Start(s.ctx)

	s.ErrorIs(err, context.Canceled)
	s.Equal(2, job.fetches)
	s.Equal(1, job.notified)
	// wait, backoff, then the retry fetches without another wait
	s.Equal([]time.Duration{5 * time.Minute, time.Minute}, s.sleeps)
	s.Len(job.waits, 1)
	s.Equal(1, s.logs.levels[slog.LevelError])
}

func (s *RunnerTestSuite) TestRetryFailureBacksOffAgain() {
	job := &fakeJob{wait: 30 * time.Minute}
	job.fetch = func(_ context.Context, call int) error {
		if call < 3 {
			return fmt.Errorf("list events: %w", domain.ErrSourceUnavailable)
		}
		return nil
	}
	job.onNotify = func(context.Context) {
		if job.notified == 2 {
			s.cancel()
		}
	}
	r := s.newRunner(job)

	s.ErrorIs(r.Start(s.ctx), context.Canceled)
	s.Equal(4, job.fetches)
	// success resumes the normal interval
	s.Equal([]time.Duration{30 * time.Minute, time.Minute, time.Minute, 30 * time.Minute}, s.sleeps)
}

func (s *RunnerTestSuite) TestDisabledDuringBackoffWaitsAfterReenable() {
	enabled := true
	job := &fakeJob{wait: 5 * time.Minute, enabled: func() bool { return enabled }}
	job.fetch = func(_ context.Context, call int) error {
		if call == 1 {
			enabled = false
			return domain.ErrSourceUnavailable
		}
		return nil
	}
	job.onNotify = func(context.Context) { s.cancel() }
	r := s.newRunner(job)
	r.after = func(d time.Duration) <-chan time.Time {
		s.sleeps = append(s.sleeps, d)
		if d == 30*time.Second {
			enabled = true
		}
		ch := make(chan time.Time, 1)
		ch <- s.now
		return ch
	}

	s.ErrorIs(r.Start(s.ctx), context.Canceled)
	s.Equal(2, job.fetches)
	s.Equal([]time.Duration{5 * time.Minute, time.Minute, 30 * time.Second, 5 * time.Minute}, s.sleeps)
}

func (s *RunnerTestSuite) TestCycleLogIncludesJobState() {
	job := &reportingJob{fakeJob: fakeJob{}}
	job.onNotify = func(context.Context) { s.cancel() }
	r := s.newRunner(job)

	s.ErrorIs(r.Start(s.ctx), context.Canceled)
	s.Equal(1, job.reports)
}

func (s *RunnerTestSuite) TestPanicIsTreatedAsFailure() {
	job := &fakeJob{}
	job.fetch = func(_ context.Context, call int) error {
		if call == 1 {
			panic("boom")
		}
		s.cancel()
		return nil
	}
	r := s.newRunner(job)

	err := r.Start(s.ctx)

	s.ErrorIs(err, context.Canceled)
	s.Equal(2, job.fetches)
	s.Contains(s.sleeps, time.Minute)
}

func (s *RunnerTestSuite) TestDisabledNeverFetches() {
	checks := 0
	job := &fakeJob{enabled: func() bool {
		checks++
		if checks == 3 {
			s.cancel()
		}
		return false
	}}
	r := s.newRunner(job)

	err := r.Start(s.ctx)

	s.ErrorIs(err, context.Canceled)
	s.Zero(job.fetches)
	s.Empty(job.waits)
	for _, d := range s.sleeps {
		s.Equal(30*time.Second, d)
	}
}

func (s *RunnerTestSuite) TestReenabledResumes() {
	enabled := false
	job := &fakeJob{enabled: func() bool { return enabled }}
	job.onNotify = func(context.Context) { s.cancel() }
	r := s.newRunner(job)
	r.after = func(d time.Duration) <-chan time.Time {
		s.sleeps = append(s.sleeps, d)
		enabled = true
		ch := make(chan time.Time, 1)
		ch <- s.now
		return ch
	}

	s.ErrorIs(r.Start(s.ctx), context.Canceled)
	s.Equal(1, job.fetches)
}

func (s *RunnerTestSuite) TestCancelDuringWaitSkipsFetch() {
	job := &fakeJob{wait: time.Hour}
	r := NewRunner(job, Options{}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	done := make(chan error, 1)
	go func() { done <- r.Start(s.ctx) }()

	s.Eventually(func() bool { return r.State() == StateWaiting }, time.Second, time.Millisecond)
	s.cancel()

	select {
	case err := <-done:
		s.ErrorIs(err, context.Canceled)
	case <-time.After(time.Second):
		s.Fail("runner did not stop while waiting")
	}
	s.Zero(job.fetches)
}

func (s *RunnerTestSuite) TestInFlightCycleCompletesAfterCancel() {
	var fetchErr error
	job := &fakeJob{}
	job.fetch = func(ctx context.Context, _ int) error {
		s.cancel()
		fetchErr = ctx.Err()
		return nil
	}
	r := s.newRunner(job)

	err := r.Start(s.ctx)

	s.ErrorIs(err, context.Canceled)
	s.NoError(fetchErr, "cycle context must not be cancelled by stop")
	s.Equal(1, job.notified)
	s.Equal(1, job.fetches)
}

func (s *RunnerTestSuite) TestRepeatedAuthFailureLoggedOnce() {
	authErr := fmt.Errorf("calendar token: %w", errors.Join(domain.ErrSourceUnavailable, domain.ErrAuth))
	job := &fakeJob{}
	job.fetch = func(_ context.Context, call int) error {
		if call == 4 {
			s.cancel()
			return nil
		}
		return authErr
	}
	r := s.newRunner(job)

	s.ErrorIs(r.Start(s.ctx), context.Canceled)
	s.Equal(4, job.fetches)
	s.Equal(1, s.logs.levels[slog.LevelError])
	// every cycle also logs its wait at debug level
	s.Equal(2, s.logs.levels[slog.LevelDebug]-len(job.waits))
}

func (s *RunnerTestSuite) TestStateString() {
	s.Equal("suspended", StateSuspended.String())
	s.Equal("state(42)", State(42).String())
}
