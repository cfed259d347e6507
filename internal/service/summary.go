package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"calendar_bot/internal/domain"
	"calendar_bot/internal/schedule"
	"calendar_bot/internal/scheduler"
	"calendar_bot/internal/tracker"
)

const SummaryPollerName = "daily_summary"

// SummaryService posts one digest of the day's events per day at the configured time.
//
// The poller goroutine and the manual force command both touch the handled-occurrence
// state, so it is guarded by mu.
type SummaryService struct {
	source   CalendarSource
	notifier Notifier
	settings SettingsProvider
	logger   *slog.Logger
	now      func() time.Time

	mu      sync.Mutex
	handled *tracker.Slots[domain.OccurrenceID]
	pending *domain.Occurrence
	retry   bool
}

func NewSummaryService(
	source CalendarSource,
	notifier Notifier,
	settings SettingsProvider,
	logger *slog.Logger,
) *SummaryService {
	return &SummaryService{
		source:   source,
		notifier: notifier,
		settings: settings,
		logger:   logger.With("poller", SummaryPollerName),
		now:      time.Now,
		handled:  tracker.NewSlots[domain.OccurrenceID](1),
	}
}

func (s *SummaryService) Name() string {
	return SummaryPollerName
}

func (s *SummaryService) Enabled() bool {
	cfg := s.settings.Current()
	return cfg.DailySummaryEnabled && cfg.CalendarID != ""
}

// NextWait plans the next occurrence. An occurrence whose fetch failed stays pending until
// it is sent instead of being replaced by tomorrow's.
func (s *SummaryService) NextWait(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.retry && s.pending != nil && s.handled.ShouldProcess(s.pending.ID) {
		return 0
	}
	s.retry = false

	occ, err := s.nextOccurrence(now)
	if err != nil {
		// Settings are validated on save, so this only happens with a broken store.
		s.logger.Error("cannot plan daily summary", "error", err)
		s.pending = nil
		return time.Hour
	}

	if !s.handled.ShouldProcess(occ.ID) {
		occ = occ.Following()
	}
	s.pending = &occ

	s.logger.Debug("daily summary planned", "occurrence", occ.ID, "target", occ.Target)

	return schedule.UntilTarget(now, occ)
}

func (s *SummaryService) Fetch(ctx context.Context, now time.Time) (scheduler.Batch, error) {
	s.mu.Lock()
	pending := s.pending
	due := pending != nil && !now.Before(pending.Target) && s.handled.ShouldProcess(pending.ID)
	s.mu.Unlock()

	if !due {
		// Woke early, or the occurrence was already sent by the force command.
		return noopBatch{poller: SummaryPollerName}, nil
	}

	cfg := s.settings.Current()
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	window := schedule.SummaryWindow(pending.Target, loc)
	items, err := s.source.Between(ctx, cfg.CalendarID, window)
	if err != nil {
		s.mu.Lock()
		s.retry = true
		s.mu.Unlock()
		return nil, fmt.Errorf("list events for %s: %w", pending.ID, err)
	}

	return &summaryBatch{service: s, occurrence: *pending, items: items}, nil
}

// Force sends today's summary immediately, whether or not it was already sent. If today's
// scheduled summary has not fired yet it is marked as handled so the day is not
// announced twice.
func (s *SummaryService) Force(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	cfg := s.settings.Current()
	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	if cfg.DailySummaryChannelID == "" {
		return fmt.Errorf("daily summary channel not set: %w", domain.ErrConfigInvalid)
	}

	occ, err := s.nextOccurrence(now)
	if err != nil {
		return err
	}

	items, err := s.source.Between(ctx, cfg.CalendarID, schedule.SummaryWindow(now, loc))
	if err != nil {
		return fmt.Errorf("list events: %w", err)
	}

	req := summaryMessage(items, cfg, occ.ID, now)
	sendErr := s.notifier.Notify(ctx, req)

	if occ.ID == domain.OccurrenceIDFor(now.In(loc)) {
		s.handled.MarkProcessed(occ.ID)
		s.logger.Info("daily summary forced, today's occurrence marked handled", "occurrence", occ.ID)
	} else {
		s.logger.Info("daily summary forced after today's occurrence", "next", occ.ID)
	}

	if sendErr != nil {
		return fmt.Errorf("send summary: %w", sendErr)
	}
	return nil
}

// State reports what the poller has handled so far.
func (s *SummaryService) State() domain.PollerState {
	s.mu.Lock()
	defer s.mu.Unlock()

	last, ok := s.handled.Last()
	return domain.PollerState{LastHandledOccurrenceID: last, IsFirstRun: !ok}
}

func (s *SummaryService) nextOccurrence(now time.Time) (domain.Occurrence, error) {
	cfg := s.settings.Current()
	loc, err := cfg.Location()
	if err != nil {
		return domain.Occurrence{}, err
	}
	clock, err := cfg.SummaryClock()
	if err != nil {
		return domain.Occurrence{}, err
	}
	return schedule.NextOccurrence(now, clock, loc), nil
}

type summaryBatch struct {
	service    *SummaryService
	occurrence domain.Occurrence
	items      []domain.Item
}

func (b *summaryBatch) Notify(ctx context.Context) domain.CycleStats {
	s := b.service
	stats := domain.CycleStats{Poller: SummaryPollerName, Fetched: len(b.items)}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.handled.ShouldProcess(b.occurrence.ID) {
		stats.Skipped = len(b.items)
		return stats
	}

	stats.New = len(b.items)
	req := summaryMessage(b.items, s.settings.Current(), b.occurrence.ID, s.now())
	deliver(ctx, s.notifier, s.logger, SummaryPollerName, req, &stats)

	s.handled.MarkProcessed(b.occurrence.ID)
	s.retry = false
	s.logger.Info("daily summary handled", "occurrence", b.occurrence.ID, "events", len(b.items))

	return stats
}

type noopBatch struct {
	poller string
}

func (b noopBatch) Notify(context.Context) domain.CycleStats {
	return domain.CycleStats{Poller: b.poller}
}
