package config

import (
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strings"
	"time"

	"calendar_bot/internal/domain"
	"calendar_bot/internal/schedule"
)

// Settings is the operator-editable part of the configuration. A *Settings obtained from a
// Store is shared between goroutines and must never be modified; use Clone.
type Settings struct {
	Timezone string `yaml:"timezone" json:"timezone"`

	EventNotificationsEnabled    bool   `yaml:"event_notifications_enabled" json:"event_notifications_enabled"`
	EventNotificationChannelID   string `yaml:"event_notification_channel_id" json:"event_notification_channel_id"`
	EventNotificationRoleID      string `yaml:"event_notification_role_id" json:"event_notification_role_id"`
	CalendarID                   string `yaml:"calendar_id" json:"calendar_id"`
	CalendarCheckIntervalMinutes int    `yaml:"calendar_check_interval_minutes" json:"calendar_check_interval_minutes"`

	DailySummaryEnabled   bool   `yaml:"daily_summary_enabled" json:"daily_summary_enabled"`
	DailySummaryChannelID string `yaml:"daily_summary_channel_id" json:"daily_summary_channel_id"`
	DailySummaryRoleID    string `yaml:"daily_summary_role_id" json:"daily_summary_role_id"`
	DailySummaryTime      string `yaml:"daily_summary_time" json:"daily_summary_time"`

	YouTubeMonitorEnabled       bool              `yaml:"youtube_monitor_enabled" json:"youtube_monitor_enabled"`
	YouTubeChannelID            string            `yaml:"youtube_channel_id" json:"youtube_channel_id"`
	YouTubeAnnounceChannelID    string            `yaml:"youtube_announce_channel_id" json:"youtube_announce_channel_id"`
	YouTubeCheckIntervalMinutes int               `yaml:"youtube_check_interval_minutes" json:"youtube_check_interval_minutes"`
	YouTubePlatformLinks        map[string]string `yaml:"youtube_platform_links" json:"youtube_platform_links"`
	YouTubeAnnouncementMessage  string            `yaml:"youtube_announcement_message" json:"youtube_announcement_message"`
}

// DefaultAnnouncement is used when no announcement template is configured.
const DefaultAnnouncement = "{streamer_name} is now live! Watch here: {stream_url}\n{other_links}"

// Announcement template placeholders.
const (
	PlaceholderStreamer = "{streamer_name}"
	PlaceholderURL      = "{stream_url}"
	PlaceholderLinks    = "{other_links}"
)

func DefaultSettings() Settings {
	return Settings{
		Timezone:                     "America/New_York",
		EventNotificationsEnabled:    true,
		CalendarCheckIntervalMinutes: 5,
		DailySummaryEnabled:          true,
		DailySummaryTime:             "09:00",
		YouTubeCheckIntervalMinutes:  5,
		YouTubePlatformLinks:         map[string]string{},
		YouTubeAnnouncementMessage:   DefaultAnnouncement,
	}
}

// Clone returns a deep copy that is safe to modify.
func (s *Settings) Clone() *Settings {
	c := *s
	c.YouTubePlatformLinks = maps.Clone(s.YouTubePlatformLinks)
	if c.YouTubePlatformLinks == nil {
		c.YouTubePlatformLinks = map[string]string{}
	}
	return &c
}

// Location resolves the configured timezone.
func (s *Settings) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", s.Timezone, domain.ErrConfigInvalid)
	}
	return loc, nil
}

// SummaryClock parses DailySummaryTime.
func (s *Settings) SummaryClock() (schedule.Clock, error) {
	return schedule.ParseClock(s.DailySummaryTime)
}

func (s *Settings) CalendarInterval() time.Duration {
	return time.Duration(s.CalendarCheckIntervalMinutes) * time.Minute
}

func (s *Settings) YouTubeInterval() time.Duration {
	return time.Duration(s.YouTubeCheckIntervalMinutes) * time.Minute
}

var placeholderRe = regexp.MustCompile(`\{[a-z_]+\}`)

// Validate checks every field a poller or command depends on.
func (s *Settings) Validate() error {
	if _, err := s.Location(); err != nil {
		return err
	}
	if _, err := s.SummaryClock(); err != nil {
		return err
	}
	if s.CalendarCheckIntervalMinutes < 1 {
		return fmt.Errorf("calendar check interval must be at least 1 minute: %w", domain.ErrConfigInvalid)
	}
	if s.YouTubeCheckIntervalMinutes < 1 {
		return fmt.Errorf("youtube check interval must be at least 1 minute: %w", domain.ErrConfigInvalid)
	}

	known := []string{PlaceholderStreamer, PlaceholderURL, PlaceholderLinks}
	for _, p := range placeholderRe.FindAllString(s.YouTubeAnnouncementMessage, -1) {
		if !slices.Contains(known, p) {
			return fmt.Errorf("unknown placeholder %s in announcement message: %w", p, domain.ErrConfigInvalid)
		}
	}
	if !strings.Contains(s.YouTubeAnnouncementMessage, PlaceholderURL) {
		return fmt.Errorf("announcement message must contain %s: %w", PlaceholderURL, domain.ErrConfigInvalid)
	}

	return nil
}
