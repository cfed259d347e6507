package service

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"calendar_bot/internal/config"
	"calendar_bot/internal/domain"
)

// Discord renders <t:unix:style> in each reader's own timezone.
func chatTimestamp(t time.Time, style string) string {
	return fmt.Sprintf("<t:%d:%s>", t.Unix(), style)
}

func newEventMessage(item domain.Item, s *config.Settings) *domain.NotificationRequest {
	title := item.Title
	if item.URL != "" {
		title = fmt.Sprintf("[%s](%s)", item.Title, item.URL)
	}

	return &domain.NotificationRequest{
		Destination: s.EventNotificationChannelID,
		Mention:     s.EventNotificationRoleID,
		ItemID:      item.ID,
		Embed: &domain.Embed{
			Title: "New Event Created",
			Color: domain.ColorGreen,
			Fields: []domain.EmbedField{
				{Name: "Event", Value: "**" + title + "**"},
				{Name: "Time", Value: chatTimestamp(item.Start, "F")},
			},
		},
	}
}

func summaryMessage(items []domain.Item, s *config.Settings, occurrence domain.OccurrenceID, now time.Time) *domain.NotificationRequest {
	req := &domain.NotificationRequest{
		Destination: s.DailySummaryChannelID,
		ItemID:      string(occurrence),
		Embed: &domain.Embed{
			Title:     "Today's Events",
			Color:     domain.ColorBlue,
			Timestamp: now,
		},
	}

	if s.DailySummaryRoleID != "" {
		req.Buttons = []domain.RoleButton{{RoleID: s.DailySummaryRoleID, Label: "Toggle Daily Summaries"}}
	}

	if len(items) == 0 {
		req.Embed.Description = "No events scheduled for today!"
		return req
	}

	// Only ping subscribers when there is something to look at.
	req.Mention = s.DailySummaryRoleID
	for _, item := range items {
		req.Embed.Fields = append(req.Embed.Fields, domain.EmbedField{
			Name:  item.Title,
			Value: "Starting at " + chatTimestamp(item.Start, "t"),
		})
	}

	return req
}

func announcementMessage(item domain.Item, s *config.Settings) *domain.NotificationRequest {
	template := s.YouTubeAnnouncementMessage
	if template == "" {
		template = config.DefaultAnnouncement
	}

	body := strings.NewReplacer(
		config.PlaceholderStreamer, item.Author,
		config.PlaceholderURL, item.URL,
		config.PlaceholderLinks, otherLinks(s.YouTubePlatformLinks),
	).Replace(template)

	return &domain.NotificationRequest{
		Destination: s.YouTubeAnnounceChannelID,
		Body:        strings.TrimSpace(body),
		ItemID:      item.ID,
	}
}

func otherLinks(links map[string]string) string {
	if len(links) == 0 {
		return ""
	}

	names := make([]string, 0, len(links))
	for name := range links {
		names = append(names, name)
	}
	slices.Sort(names)

	lines := make([]string, 0, len(names))
	for _, name := range names {
		// angle brackets suppress link previews
		lines = append(lines, fmt.Sprintf("<%s> (%s)", links[name], name))
	}

	return "Also live on:\n" + strings.Join(lines, "\n")
}
