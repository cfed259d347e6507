package discord

import "github.com/bwmarrin/discordgo"

const (
	cmdForceSummary      = "force-daily-summary"
	cmdToggleSummaries   = "toggle-daily-summaries"
	cmdToggleEventNotify = "toggle-event-create-notifications"
	cmdRoleButtons       = "role-buttons"
	cmdSettings          = "settings"
	cmdUpcoming          = "upcoming"
	cmdAddEvent          = "add-event"
	cmdSay               = "say"
	cmdAnnounce          = "announce"
)

const (
	subView         = "view"
	subDailySummary = "daily-summary"
	subEventNotify  = "event-notifications"
	subCalendar     = "calendar"
	subYouTube      = "youtube"
	subPlatformLink = "platform-link"
)

var (
	permManageMessages int64 = discordgo.PermissionManageMessages
	permAdministrator  int64 = discordgo.PermissionAdministrator
	minInterval              = 1.0
)

// Commands is the complete command set registered with Discord.
func Commands() []*discordgo.ApplicationCommand {
	textChannels := []discordgo.ChannelType{discordgo.ChannelTypeGuildText, discordgo.ChannelTypeGuildNews}

	enabledOpt := &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionBoolean,
		Name:        "enabled",
		Description: "Turn the feature on or off",
	}
	channelOpt := func(name, desc string) *discordgo.ApplicationCommandOption {
		return &discordgo.ApplicationCommandOption{
			Type:         discordgo.ApplicationCommandOptionChannel,
			Name:         name,
			Description:  desc,
			ChannelTypes: textChannels,
		}
	}
	roleOpt := &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionRole,
		Name:        "role",
		Description: "Role to ping",
	}
	intervalOpt := &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionInteger,
		Name:        "interval",
		Description: "Check interval in minutes",
		MinValue:    &minInterval,
	}

	return []*discordgo.ApplicationCommand{
		{
			Name:                     cmdForceSummary,
			Description:              "Send today's event summary now",
			DefaultMemberPermissions: &permManageMessages,
		},
		{
			Name:        cmdToggleSummaries,
			Description: "Subscribe to or unsubscribe from daily summaries",
		},
		{
			Name:                     cmdToggleEventNotify,
			Description:              "Subscribe to or unsubscribe from new event notifications",
			DefaultMemberPermissions: &permManageMessages,
		},
		{
			Name:                     cmdRoleButtons,
			Description:              "Post the notification role buttons in this channel",
			DefaultMemberPermissions: &permManageMessages,
		},
		{
			Name:                     cmdSettings,
			Description:              "View or change bot settings",
			DefaultMemberPermissions: &permAdministrator,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        subView,
					Description: "Show the current settings",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        subDailySummary,
					Description: "Daily summary settings",
					Options: []*discordgo.ApplicationCommandOption{
						enabledOpt,
						channelOpt("channel", "Channel for the summary"),
						roleOpt,
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "time",
							Description: "Time of day, 24h HH:MM",
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        subEventNotify,
					Description: "New event notification settings",
					Options: []*discordgo.ApplicationCommandOption{
						enabledOpt,
						channelOpt("channel", "Channel for notifications"),
						roleOpt,
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        subCalendar,
					Description: "Calendar settings",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "calendar_id",
							Description: "Google Calendar ID",
						},
						intervalOpt,
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "timezone",
							Description: "IANA timezone, e.g. America/New_York",
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        subYouTube,
					Description: "Livestream announcement settings",
					Options: []*discordgo.ApplicationCommandOption{
						enabledOpt,
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "channel_id",
							Description: "YouTube channel ID to watch",
						},
						channelOpt("announce_channel", "Channel for announcements"),
						intervalOpt,
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "message",
							Description: "Template with {streamer_name}, {stream_url} and {other_links}",
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        subPlatformLink,
					Description: "Add, change or remove an 'also live on' link",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "platform",
							Description: "Platform name, e.g. Twitch",
							Required:    true,
						},
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "url",
							Description: "Channel URL; leave empty to remove",
						},
					},
				},
			},
		},
		{
			Name:        cmdUpcoming,
			Description: "Show the next 5 upcoming events",
		},
		{
			Name:        cmdAddEvent,
			Description: "Schedule a new game/event",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "title",
					Description: "Event title",
					Required:    true,
					MaxLength:   100,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "start",
					Description: "Start time, YYYY-MM-DD HH:MM",
					Required:    true,
				},
			},
		},
		{
			Name:                     cmdSay,
			Description:              "Make the bot say something",
			DefaultMemberPermissions: &permManageMessages,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "message",
					Description: "What to say",
					Required:    true,
				},
				channelOpt("channel", "Where to say it, defaults to this channel"),
			},
		},
		{
			Name:                     cmdAnnounce,
			Description:              "Send an announcement message with optional ping and embed",
			DefaultMemberPermissions: &permManageMessages,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "message",
					Description: "Announcement text",
					Required:    true,
				},
				channelOpt("channel", "Where to post, defaults to this channel"),
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "title",
					Description: "Embed title",
				},
				{
					Type:        discordgo.ApplicationCommandOptionRole,
					Name:        "ping_role",
					Description: "Role to ping",
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "color",
					Description: "Embed color, #RRGGBB",
				},
			},
		},
	}
}
