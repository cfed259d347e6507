package youtube

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"

	"calendar_bot/internal/domain"
)

const SourceID = "youtube"

const watchURL = "https://www.youtube.com/watch?v="

// Config holds retry settings for search requests.
type Config struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// Source finds live videos of a YouTube channel.
type Source struct {
	svc    *yt.Service
	cfg    Config
	logger *slog.Logger
}

// New creates a YouTube source. Use option.WithAPIKey for credentials.
func New(ctx context.Context, cfg Config, logger *slog.Logger, opts ...option.ClientOption) (*Source, error) {
	svc, err := yt.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create youtube service: %w", err)
	}

	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}

	return &Source{
		svc:    svc,
		cfg:    cfg,
		logger: logger.With("source", SourceID),
	}, nil
}

// RecentLive returns up to maxResults videos of the channel that are live right now,
// most recently published first.
func (s *Source) RecentLive(ctx context.Context, channelID string, maxResults int) ([]domain.Item, error) {
	var resp *yt.SearchListResponse
	var lastErr error

	jitter := s.cfg.InitialBackoff / 2
	if jitter <= 0 {
		jitter = time.Millisecond
	}

	err := retry.Do(
		func() error {
			resp, lastErr = s.svc.Search.List([]string{"snippet", "id"}).
				ChannelId(channelID).
				EventType("live").
				Type("video").
				Order("date").
				MaxResults(int64(maxResults)).
				Context(ctx).
				Do()
			return lastErr
		},
		retry.Attempts(uint(s.cfg.MaxAttempts)),
		retry.Delay(s.cfg.InitialBackoff),
		retry.MaxDelay(s.cfg.MaxBackoff),
		retry.MaxJitter(jitter),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			s.logger.Warn("youtube search failed, retrying", "attempt", n, "error", err)
		}),
		retry.RetryIf(func(err error) bool {
			// Quota and key errors do not clear up within a cycle.
			return !isForbidden(err)
		}),
	)
	if err != nil {
		if lastErr == nil {
			lastErr = err
		}
		if isForbidden(lastErr) {
			return nil, fmt.Errorf("search live videos: %w (%w): %w", domain.ErrSourceUnavailable, domain.ErrAuth, lastErr)
		}
		return nil, fmt.Errorf("search live videos: %w: %w", domain.ErrSourceUnavailable, lastErr)
	}

	items := make([]domain.Item, 0, len(resp.Items))
	for _, r := range resp.Items {
		item, ok := s.transform(r)
		if !ok {
			continue
		}
		items = append(items, item)
	}

	s.logger.Debug("searched live videos", "channel_id", channelID, "count", len(items))

	return items, nil
}

func isForbidden(err error) bool {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden
}

func (s *Source) transform(r *yt.SearchResult) (domain.Item, bool) {
	if r == nil || r.Id == nil || r.Id.VideoId == "" || r.Snippet == nil {
		return domain.Item{}, false
	}

	item := domain.Item{
		ID:          r.Id.VideoId,
		Title:       r.Snippet.Title,
		Description: r.Snippet.Description,
		Author:      r.Snippet.ChannelTitle,
		URL:         watchURL + r.Id.VideoId,
	}

	if r.Snippet.PublishedAt != "" {
		published, err := time.Parse(time.RFC3339, r.Snippet.PublishedAt)
		if err != nil {
			// Zero start skips the stale check; the video is still announced once.
			s.logger.Warn("failed to parse publish time", "video_id", item.ID, "published_at", r.Snippet.PublishedAt)
		} else {
			item.Start = published
		}
	}

	return item, true
}
