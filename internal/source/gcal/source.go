package gcal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"calendar_bot/internal/domain"
)

const SourceID = "google_calendar"

// pageSize is the largest page the Calendar API accepts.
const pageSize = 250

// Config holds retry settings for calendar requests.
type Config struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// Source reads and writes events of Google calendars.
type Source struct {
	svc    *calendar.Service
	cfg    Config
	logger *slog.Logger
}

// New creates a calendar source. Credentials come from opts, usually option.WithTokenSource.
func New(ctx context.Context, cfg Config, logger *slog.Logger, opts ...option.ClientOption) (*Source, error) {
	svc, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
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

// CreatedBetween returns events created inside window, ordered by start time.
//
// The API cannot filter on creation time, so events updated since the window start are
// listed and filtered here. Events that already started are never announced.
func (s *Source) CreatedBetween(ctx context.Context, calendarID string, window domain.Window) ([]domain.Item, error) {
	events, err := s.list(ctx, "created_between", func() *calendar.EventsListCall {
		return s.svc.Events.List(calendarID).
			TimeMin(window.Start.Format(time.RFC3339)).
			UpdatedMin(window.Start.Format(time.RFC3339))
	})
	if err != nil {
		return nil, err
	}

	items := make([]domain.Item, 0, len(events))
	for _, ev := range events {
		item, ok := s.transform(ev)
		if !ok || !window.Contains(item.Created) {
			continue
		}
		items = append(items, item)
	}

	return items, nil
}

// Between returns events starting inside window, ordered by start time.
func (s *Source) Between(ctx context.Context, calendarID string, window domain.Window) ([]domain.Item, error) {
	events, err := s.list(ctx, "between", func() *calendar.EventsListCall {
		return s.svc.Events.List(calendarID).
			TimeMin(window.Start.Format(time.RFC3339)).
			TimeMax(window.End.Format(time.RFC3339))
	})
	if err != nil {
		return nil, err
	}

	items := make([]domain.Item, 0, len(events))
	for _, ev := range events {
		item, ok := s.transform(ev)
		if !ok {
			continue
		}
		items = append(items, item)
	}

	return items, nil
}

// Upcoming returns up to limit events that have not ended at from.
func (s *Source) Upcoming(ctx context.Context, calendarID string, from time.Time, limit int) ([]domain.Item, error) {
	var events []*calendar.Event

	err := s.do(ctx, "upcoming", func() error {
		resp, err := s.svc.Events.List(calendarID).
			TimeMin(from.Format(time.RFC3339)).
			MaxResults(int64(limit)).
			SingleEvents(true).
			OrderBy("startTime").
			Context(ctx).
			Do()
		if err != nil {
			return err
		}
		events = resp.Items
		return nil
	})
	if err != nil {
		return nil, err
	}

	items := make([]domain.Item, 0, len(events))
	for _, ev := range events {
		if item, ok := s.transform(ev); ok {
			items = append(items, item)
		}
	}

	return items, nil
}

// Insert creates a timed event and returns it as stored by the calendar.
func (s *Source) Insert(ctx context.Context, calendarID string, item domain.Item) (domain.Item, error) {
	ev := &calendar.Event{
		Summary:     item.Title,
		Description: item.Description,
		Start: &calendar.EventDateTime{
			DateTime: item.Start.Format(time.RFC3339),
			TimeZone: item.Start.Location().String(),
		},
	}
	if item.End != nil {
		ev.End = &calendar.EventDateTime{
			DateTime: item.End.Format(time.RFC3339),
			TimeZone: item.End.Location().String(),
		}
	}

	// Inserts are not idempotent, a retried timeout could create the event twice.
	created, err := s.svc.Events.Insert(calendarID, ev).Context(ctx).Do()
	if err != nil {
		return domain.Item{}, classify("insert", err)
	}

	out, ok := s.transform(created)
	if !ok {
		return domain.Item{}, fmt.Errorf("insert returned event without start: %w", domain.ErrSourceUnavailable)
	}

	s.logger.Info("event created", "event_id", out.ID, "title", out.Title, "start", out.Start)

	return out, nil
}

func (s *Source) list(ctx context.Context, op string, newCall func() *calendar.EventsListCall) ([]*calendar.Event, error) {
	var events []*calendar.Event

	err := s.do(ctx, op, func() error {
		events = events[:0]
		return newCall().
			SingleEvents(true).
			OrderBy("startTime").
			MaxResults(pageSize).
			Pages(ctx, func(page *calendar.Events) error {
				events = append(events, page.Items...)
				return nil
			})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("listed events", "op", op, "count", len(events))

	return events, nil
}

// do runs fn with bounded retries. The returned error always wraps
// domain.ErrSourceUnavailable, and also domain.ErrAuth when credentials were rejected.
func (s *Source) do(ctx context.Context, op string, fn func() error) error {
	var lastErr error

	jitter := s.cfg.InitialBackoff / 2
	if jitter <= 0 {
		jitter = time.Millisecond
	}

	err := retry.Do(
		func() error {
			lastErr = fn()
			return lastErr
		},
		retry.Attempts(uint(s.cfg.MaxAttempts)),
		retry.Delay(s.cfg.InitialBackoff),
		retry.MaxDelay(s.cfg.MaxBackoff),
		retry.MaxJitter(jitter),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			s.logger.Warn("calendar request failed, retrying", "op", op, "attempt", n, "error", err)
		}),
		retry.RetryIf(func(err error) bool {
			return !isAuthError(err)
		}),
	)
	if err == nil {
		return nil
	}
	if lastErr == nil {
		lastErr = err
	}

	return classify(op, lastErr)
}

func classify(op string, err error) error {
	if isAuthError(err) {
		return fmt.Errorf("calendar %s: %w (%w): %w", op, domain.ErrSourceUnavailable, domain.ErrAuth, err)
	}
	return fmt.Errorf("calendar %s: %w: %w", op, domain.ErrSourceUnavailable, err)
}

func isAuthError(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden
	}

	var retrieveErr *oauth2.RetrieveError
	return errors.As(err, &retrieveErr)
}

func (s *Source) transform(ev *calendar.Event) (domain.Item, bool) {
	if ev == nil || ev.Start == nil {
		return domain.Item{}, false
	}

	start, allDay, err := parseEventTime(ev.Start)
	if err != nil {
		s.logger.Warn("failed to parse event start", "event_id", ev.Id, "error", err)
		return domain.Item{}, false
	}

	item := domain.Item{
		ID:          ev.Id,
		Title:       ev.Summary,
		Description: ev.Description,
		URL:         ev.HtmlLink,
		Start:       start,
		AllDay:      allDay,
	}
	if item.Title == "" {
		item.Title = "(no title)"
	}
	if ev.Organizer != nil {
		item.Author = ev.Organizer.DisplayName
		if item.Author == "" {
			item.Author = ev.Organizer.Email
		}
	}

	if ev.End != nil {
		if end, _, err := parseEventTime(ev.End); err == nil {
			item.End = &end
		}
	}

	if ev.Created != "" {
		created, err := time.Parse(time.RFC3339, ev.Created)
		if err != nil {
			s.logger.Warn("failed to parse event creation time", "event_id", ev.Id, "created", ev.Created)
		} else {
			item.Created = created
		}
	}

	return item, true
}

func parseEventTime(t *calendar.EventDateTime) (time.Time, bool, error) {
	if t.DateTime != "" {
		parsed, err := time.Parse(time.RFC3339, t.DateTime)
		return parsed, false, err
	}

	loc := time.UTC
	if t.TimeZone != "" {
		if l, err := time.LoadLocation(t.TimeZone); err == nil {
			loc = l
		}
	}
	parsed, err := time.ParseInLocation(time.DateOnly, t.Date, loc)
	return parsed, true, err
}
