package discord

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"

	"calendar_bot/internal/config"
	"calendar_bot/internal/domain"
)

func (b *Bot) handleSettings(ctx context.Context, i *discordgo.InteractionCreate) {
	if !b.isOwner(i) {
		b.replyEphemeral(i, "Only the bot owner can use this command!")
		return
	}

	data := i.ApplicationCommandData()
	if len(data.Options) == 0 {
		b.replyEphemeral(i, "Pick a settings group.")
		return
	}
	sub := data.Options[0]
	opts := options(sub.Options)

	if sub.Name == subView {
		b.respond(i, &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{settingsEmbed(b.settings.Current())},
			Flags:  discordgo.MessageFlagsEphemeral,
		})
		return
	}

	var apply func(*config.Settings)
	var done string

	switch sub.Name {
	case subDailySummary:
		done = "Daily summary settings updated!"
		apply = func(s *config.Settings) {
			if o, ok := opts["enabled"]; ok {
				s.DailySummaryEnabled = o.BoolValue()
			}
			if o, ok := opts["channel"]; ok {
				s.DailySummaryChannelID = o.ChannelValue(nil).ID
			}
			if o, ok := opts["role"]; ok {
				s.DailySummaryRoleID = o.RoleValue(nil, i.GuildID).ID
			}
			if o, ok := opts["time"]; ok {
				s.DailySummaryTime = strings.TrimSpace(o.StringValue())
			}
		}
	case subEventNotify:
		done = "Event notification settings updated!"
		apply = func(s *config.Settings) {
			if o, ok := opts["enabled"]; ok {
				s.EventNotificationsEnabled = o.BoolValue()
			}
			if o, ok := opts["channel"]; ok {
				s.EventNotificationChannelID = o.ChannelValue(nil).ID
			}
			if o, ok := opts["role"]; ok {
				s.EventNotificationRoleID = o.RoleValue(nil, i.GuildID).ID
			}
		}
	case subCalendar:
		done = "Calendar settings updated!"
		apply = func(s *config.Settings) {
			if o, ok := opts["calendar_id"]; ok {
				s.CalendarID = strings.TrimSpace(o.StringValue())
			}
			if o, ok := opts["interval"]; ok {
				s.CalendarCheckIntervalMinutes = int(o.IntValue())
			}
			if o, ok := opts["timezone"]; ok {
				s.Timezone = strings.TrimSpace(o.StringValue())
			}
		}
	case subYouTube:
		done = "YouTube settings updated!"
		apply = func(s *config.Settings) {
			if o, ok := opts["enabled"]; ok {
				s.YouTubeMonitorEnabled = o.BoolValue()
			}
			if o, ok := opts["channel_id"]; ok {
				s.YouTubeChannelID = strings.TrimSpace(o.StringValue())
			}
			if o, ok := opts["announce_channel"]; ok {
				s.YouTubeAnnounceChannelID = o.ChannelValue(nil).ID
			}
			if o, ok := opts["interval"]; ok {
				s.YouTubeCheckIntervalMinutes = int(o.IntValue())
			}
			if o, ok := opts["message"]; ok {
				// Slash command options cannot contain newlines.
				s.YouTubeAnnouncementMessage = strings.ReplaceAll(o.StringValue(), `\n`, "\n")
			}
		}
	case subPlatformLink:
		platform := strings.TrimSpace(opts["platform"].StringValue())
		url := ""
		if o, ok := opts["url"]; ok {
			url = strings.TrimSpace(o.StringValue())
		}
		done = fmt.Sprintf("Link for %s updated!", platform)
		if url == "" {
			done = fmt.Sprintf("Link for %s removed!", platform)
		}
		apply = func(s *config.Settings) {
			if url == "" {
				delete(s.YouTubePlatformLinks, platform)
			} else {
				s.YouTubePlatformLinks[platform] = url
			}
		}
	default:
		b.replyEphemeral(i, "Unknown settings group.")
		return
	}

	_, err := b.settings.Update(ctx, func(s *config.Settings) error {
		apply(s)
		return nil
	})
	if errors.Is(err, domain.ErrConfigInvalid) {
		b.replyEphemeral(i, "Invalid settings: "+err.Error())
		return
	}
	if err != nil {
		b.logger.Error("failed to save settings", "group", sub.Name, "error", err)
		b.replyEphemeral(i, "Failed to save settings.")
		return
	}

	b.logger.Info("settings changed", "group", sub.Name, "user_id", userID(i))
	b.replyEphemeral(i, done)
}

func settingsEmbed(s *config.Settings) *discordgo.MessageEmbed {
	channel := func(id string) string {
		if id == "" {
			return "not set"
		}
		return channelMention(id)
	}
	role := func(id string) string {
		if id == "" {
			return "not set"
		}
		return roleMention(id)
	}
	onOff := func(v bool) string {
		if v {
			return "enabled"
		}
		return "disabled"
	}
	orNotSet := func(v string) string {
		if v == "" {
			return "not set"
		}
		return v
	}

	links := "none"
	if len(s.YouTubePlatformLinks) > 0 {
		var lines []string
		for _, name := range slices.Sorted(maps.Keys(s.YouTubePlatformLinks)) {
			lines = append(lines, fmt.Sprintf("%s: <%s>", name, s.YouTubePlatformLinks[name]))
		}
		links = strings.Join(lines, "\n")
	}

	return &discordgo.MessageEmbed{
		Title: "Bot Settings",
		Color: domain.ColorBlue,
		Fields: []*discordgo.MessageEmbedField{
			{
				Name: "Calendar",
				Value: "ID: " + orNotSet(s.CalendarID) +
					"\nCheck interval: " + strconv.Itoa(s.CalendarCheckIntervalMinutes) + " min" +
					"\nTimezone: " + s.Timezone,
			},
			{
				Name: "Event Notifications",
				Value: onOff(s.EventNotificationsEnabled) +
					"\nChannel: " + channel(s.EventNotificationChannelID) +
					"\nRole: " + role(s.EventNotificationRoleID),
			},
			{
				Name: "Daily Summary",
				Value: onOff(s.DailySummaryEnabled) + " at " + s.DailySummaryTime +
					"\nChannel: " + channel(s.DailySummaryChannelID) +
					"\nRole: " + role(s.DailySummaryRoleID),
			},
			{
				Name: "YouTube",
				Value: onOff(s.YouTubeMonitorEnabled) +
					"\nChannel ID: " + orNotSet(s.YouTubeChannelID) +
					"\nAnnounce in: " + channel(s.YouTubeAnnounceChannelID) +
					"\nCheck interval: " + strconv.Itoa(s.YouTubeCheckIntervalMinutes) + " min" +
					"\nAlso live on: " + links,
			},
		},
	}
}
