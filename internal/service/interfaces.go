package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"calendar_bot/internal/config"
	"calendar_bot/internal/domain"
)

// CalendarSource lists calendar events. Results are ordered by start time.
type CalendarSource interface {
	// CreatedBetween returns events created inside the window.
	CreatedBetween(ctx context.Context, calendarID string, window domain.Window) ([]domain.Item, error)
	// Between returns events starting inside the window.
	Between(ctx context.Context, calendarID string, window domain.Window) ([]domain.Item, error)
}

// StreamSource lists live videos, most recently published first.
type StreamSource interface {
	RecentLive(ctx context.Context, channelID string, maxResults int) ([]domain.Item, error)
}

type Notifier interface {
	Notify(ctx context.Context, req *domain.NotificationRequest) error
}

type SettingsProvider interface {
	Current() *config.Settings
}
