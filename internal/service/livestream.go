package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"calendar_bot/internal/domain"
	"calendar_bot/internal/scheduler"
	"calendar_bot/internal/tracker"
)

const LivestreamPollerName = "youtube_live"

// LivestreamOptions tune the livestream poller.
type LivestreamOptions struct {
	// MaxResults is how many recent live videos are requested per check. It is also the
	// number of announced ids remembered, so a video is never announced twice while it
	// is still among the results.
	MaxResults int
	// StaleMargin widens the stale cutoff beyond one check interval.
	StaleMargin time.Duration
}

// LivestreamService announces channel livestreams that went live since the previous check.
type LivestreamService struct {
	source   StreamSource
	notifier Notifier
	settings SettingsProvider
	logger   *slog.Logger
	opts     LivestreamOptions

	seen      *tracker.Slots[string]
	firstRun  bool
	lastCheck time.Time
}

func NewLivestreamService(
	source StreamSource,
	notifier Notifier,
	settings SettingsProvider,
	logger *slog.Logger,
	opts LivestreamOptions,
) *LivestreamService {
	if opts.MaxResults < 1 {
		opts.MaxResults = 5
	}

	return &LivestreamService{
		source:   source,
		notifier: notifier,
		settings: settings,
		logger:   logger.With("poller", LivestreamPollerName),
		opts:     opts,
		seen:     tracker.NewSlots[string](opts.MaxResults),
		firstRun: true,
	}
}

func (s *LivestreamService) Name() string {
	return LivestreamPollerName
}

func (s *LivestreamService) Enabled() bool {
	cfg := s.settings.Current()
	return cfg.YouTubeMonitorEnabled && cfg.YouTubeChannelID != ""
}

// NextWait takes the baseline immediately and then checks every configured interval.
func (s *LivestreamService) NextWait(time.Time) time.Duration {
	if s.firstRun {
		return 0
	}
	return s.settings.Current().YouTubeInterval()
}

func (s *LivestreamService) Fetch(ctx context.Context, now time.Time) (scheduler.Batch, error) {
	cfg := s.settings.Current()

	items, err := s.source.RecentLive(ctx, cfg.YouTubeChannelID, s.opts.MaxResults)
	if err != nil {
		return nil, fmt.Errorf("list live videos for channel %s: %w", cfg.YouTubeChannelID, err)
	}

	s.logger.Debug("fetched live videos", "count", len(items))

	return &livestreamBatch{
		service: s,
		items:   items,
		cutoff:  now.Add(-cfg.YouTubeInterval() - s.opts.StaleMargin),
		checked: now,
	}, nil
}

// State reports what the poller has handled so far.
func (s *LivestreamService) State() domain.PollerState {
	state := domain.PollerState{IsFirstRun: s.firstRun}
	if last, ok := s.seen.Last(); ok {
		state.LastSeenItemID = last
	}
	if !s.lastCheck.IsZero() {
		checked := s.lastCheck
		state.LastSyncInstant = &checked
	}
	return state
}

type livestreamBatch struct {
	service *LivestreamService
	items   []domain.Item
	cutoff  time.Time
	checked time.Time
}

func (b *livestreamBatch) Notify(ctx context.Context) domain.CycleStats {
	s := b.service
	cfg := s.settings.Current()
	stats := domain.CycleStats{Poller: LivestreamPollerName, Fetched: len(b.items)}

	// Sources return newest first; walk oldest first so several new streams are
	// announced in the order they went live and the newest ends up as the last seen.
	items := slices.Clone(b.items)
	slices.Reverse(items)

	for _, item := range items {
		if !s.seen.ShouldProcess(item.ID) {
			stats.Skipped++
			continue
		}

		if s.firstRun {
			s.logger.Info("livestream already live at startup, not announcing", "video_id", item.ID)
			s.seen.MarkProcessed(item.ID)
			stats.Skipped++
			continue
		}

		if !item.Start.IsZero() && item.Start.Before(b.cutoff) {
			s.logger.Info("skipping stale livestream",
				"video_id", item.ID,
				"title", item.Title,
				"published_at", item.Start,
			)
			s.seen.MarkProcessed(item.ID)
			stats.Skipped++
			continue
		}

		stats.New++
		s.logger.Info("new livestream", "video_id", item.ID, "title", item.Title)
		deliver(ctx, s.notifier, s.logger, LivestreamPollerName, announcementMessage(item, cfg), &stats)
		s.seen.MarkProcessed(item.ID)
	}

	if s.firstRun {
		s.logger.Info("livestream baseline recorded", "seen", s.seen.Len())
	}
	s.firstRun = false
	s.lastCheck = b.checked

	return stats
}
