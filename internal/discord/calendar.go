package discord

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"calendar_bot/internal/domain"
)

const (
	upcomingLimit      = 5
	eventDuration      = 8 * time.Hour
	descriptionMaxLen  = 100
	addEventTimeLayout = "2006-01-02 15:04"
)

func (b *Bot) calendarReady(i *discordgo.InteractionCreate) (string, bool) {
	calendarID := b.settings.Current().CalendarID
	if b.calendar == nil || calendarID == "" {
		b.replyEphemeral(i, "Unable to access calendar. Please contact the bot owner.")
		return "", false
	}
	return calendarID, true
}

func (b *Bot) handleUpcoming(ctx context.Context, i *discordgo.InteractionCreate) {
	calendarID, ok := b.calendarReady(i)
	if !ok || !b.deferReply(i, false) {
		return
	}

	now := b.now()
	items, err := b.calendar.Upcoming(ctx, calendarID, now, upcomingLimit)
	if err != nil {
		b.logger.Error("failed to list upcoming events", "error", err)
		b.editReply(i, "An error occurred while fetching events. Please try again later.")
		return
	}
	if len(items) == 0 {
		b.editReply(i, "No upcoming events found.")
		return
	}

	b.editReply(i, "", upcomingEmbed(items, now))
}

func upcomingEmbed(items []domain.Item, now time.Time) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       "📅 Upcoming Events",
		Description: fmt.Sprintf("The next %d scheduled events", upcomingLimit),
		Color:       domain.ColorBlue,
		Timestamp:   now.Format(time.RFC3339),
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("All times shown in your local timezone • %d events found", len(items)),
		},
	}

	for n, item := range items {
		end := item.Start
		if item.End != nil {
			end = *item.End
		}

		status, emoji := "Starts "+timestamp(item.Start, "R"), "⏳"
		if !item.Start.After(now) {
			status = "Happening now!"
			if !now.After(end) {
				emoji = "🟢"
			}
		}

		title := item.Title
		if item.URL != "" {
			title = fmt.Sprintf("[%s](%s)", item.Title, item.URL)
		}

		value := fmt.Sprintf("**Title:** %s\n**Start:** %s\n**End:** %s\n**Status:** %s",
			title, timestamp(item.Start, "F"), timestamp(end, "F"), status)
		if desc := strings.TrimSpace(item.Description); desc != "" {
			value += "\n**Details:** " + truncate(desc, descriptionMaxLen)
		}

		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  fmt.Sprintf("%s Event %d", emoji, n+1),
			Value: value,
		})
	}

	return embed
}

func (b *Bot) handleAddEvent(ctx context.Context, i *discordgo.InteractionCreate) {
	calendarID, ok := b.calendarReady(i)
	if !ok {
		return
	}

	opts := options(i.ApplicationCommandData().Options)
	title := strings.TrimSpace(opts["title"].StringValue())
	if title == "" {
		b.replyEphemeral(i, "Event title must not be empty!")
		return
	}

	loc, err := b.settings.Current().Location()
	if err != nil {
		b.replyEphemeral(i, "The configured timezone is invalid. Please contact the bot owner.")
		return
	}

	start, err := time.ParseInLocation(addEventTimeLayout, strings.TrimSpace(opts["start"].StringValue()), loc)
	if err != nil {
		b.replyEphemeral(i, "Invalid time format! Use YYYY-MM-DD HH:MM (e.g., 2024-10-28 15:00)")
		return
	}
	if start.Before(b.now()) {
		b.replyEphemeral(i, "Event time must be in the future!")
		return
	}

	if !b.deferReply(i, true) {
		return
	}

	end := start.Add(eventDuration)

	nearby, err := b.calendar.Between(ctx, calendarID, domain.Window{
		Start: start.Add(-eventDuration),
		End:   start.Add(eventDuration),
	})
	if err != nil {
		// Nearby events only feed the overlap warning.
		b.logger.Warn("failed to list nearby events", "error", err)
	}

	created, err := b.calendar.Insert(ctx, calendarID, domain.Item{Title: title, Start: start, End: &end})
	if err != nil {
		b.logger.Error("failed to create event", "title", title, "error", err)
		b.editReply(i, "Error creating event. Please try again later.")
		return
	}

	b.logger.Info("event added", "event_id", created.ID, "title", title, "user_id", userID(i))
	b.editReply(i, "", createdEmbed(created, title, start, end, nearby))
}

func createdEmbed(created domain.Item, title string, start, end time.Time, nearby []domain.Item) *discordgo.MessageEmbed {
	name := "**" + title + "**"
	if created.URL != "" {
		name = fmt.Sprintf("**[%s](%s)**", title, created.URL)
	}

	embed := &discordgo.MessageEmbed{
		Title:     "✅ Event Created Successfully",
		Color:     domain.ColorGreen,
		Timestamp: start.Format(time.RFC3339),
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:  "Event Details",
				Value: fmt.Sprintf("%s\nStart: %s\nEnd: %s", name, timestamp(start, "F"), timestamp(end, "F")),
			},
			{
				Name:  "Note",
				Value: "Staff will be notified of this event shortly.",
			},
		},
	}

	if len(nearby) > 0 {
		var lines []string
		for _, ev := range nearby {
			lines = append(lines, fmt.Sprintf("**%s**\nStart: %s", ev.Title, timestamp(ev.Start, "F")))
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "Nearby Events",
			Value: truncate(strings.Join(lines, "\n\n"), 1024),
		})
	}

	if overlaps(start, nearby) {
		embed.Color = domain.ColorYellow
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "⚠️ Warning",
			Value: "This event overlaps with existing events!",
		})
	}

	return embed
}

// overlaps reports whether an event starting at start collides with any other event,
// treating every event as lasting eventDuration.
func overlaps(start time.Time, others []domain.Item) bool {
	end := start.Add(eventDuration)
	for _, o := range others {
		otherEnd := o.Start.Add(eventDuration)
		if !start.After(otherEnd) && !end.Before(o.Start) {
			return true
		}
	}
	return false
}

func timestamp(t time.Time, style string) string {
	return fmt.Sprintf("<t:%d:%s>", t.Unix(), style)
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-3]) + "..."
}
