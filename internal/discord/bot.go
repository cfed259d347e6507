package discord

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/bwmarrin/discordgo"

	"calendar_bot/internal/config"
	"calendar_bot/internal/domain"
)

type SettingsStore interface {
	Current() *config.Settings
	Update(ctx context.Context, fn func(*config.Settings) error) (*config.Settings, error)
}

type SummaryForcer interface {
	Force(ctx context.Context) error
}

// Calendar is the calendar access used by the event commands.
type Calendar interface {
	Between(ctx context.Context, calendarID string, window domain.Window) ([]domain.Item, error)
	Upcoming(ctx context.Context, calendarID string, from time.Time, limit int) ([]domain.Item, error)
	Insert(ctx context.Context, calendarID string, item domain.Item) (domain.Item, error)
}

type Options struct {
	GuildID string
	OwnerID string
}

// interactionTimeout bounds the work done for one interaction.
const interactionTimeout = 30 * time.Second

// Bot answers slash commands and role toggle buttons.
type Bot struct {
	session  Session
	settings SettingsStore
	summary  SummaryForcer
	calendar Calendar
	opts     Options
	logger   *slog.Logger
	now      func() time.Time

	commands map[string]commandHandler
}

type commandHandler func(ctx context.Context, i *discordgo.InteractionCreate)

// NewBot creates the interaction handler. calendar may be nil when no calendar credentials
// are configured; calendar commands then report that the calendar is unavailable.
func NewBot(session Session, settings SettingsStore, summary SummaryForcer, calendar Calendar, opts Options, logger *slog.Logger) *Bot {
	b := &Bot{
		session:  session,
		settings: settings,
		summary:  summary,
		calendar: calendar,
		opts:     opts,
		logger:   logger.With("component", "discord"),
		now:      time.Now,
	}

	b.commands = map[string]commandHandler{
		cmdForceSummary:      b.handleForceSummary,
		cmdToggleSummaries:   b.handleToggleSummaries,
		cmdToggleEventNotify: b.handleToggleEventNotifications,
		cmdRoleButtons:       b.handleRoleButtons,
		cmdSettings:          b.handleSettings,
		cmdUpcoming:          b.handleUpcoming,
		cmdAddEvent:          b.handleAddEvent,
		cmdSay:               b.handleSay,
		cmdAnnounce:          b.handleAnnounce,
	}

	return b
}

// Register replaces the application's commands with the current set. Running it on every
// start is idempotent.
func (b *Bot) Register(appID string) error {
	registered, err := b.session.ApplicationCommandBulkOverwrite(appID, b.opts.GuildID, Commands())
	if err != nil {
		return fmt.Errorf("register commands: %w", err)
	}

	b.logger.Info("commands registered", "count", len(registered), "guild_id", b.opts.GuildID)
	return nil
}

// HandleInteraction is the discordgo handler for InteractionCreate events. Handlers run with
// a context derived from ctx.
func (b *Bot) HandleInteraction(ctx context.Context) func(*discordgo.Session, *discordgo.InteractionCreate) {
	return func(_ *discordgo.Session, i *discordgo.InteractionCreate) {
		b.Dispatch(ctx, i)
	}
}

func (b *Bot) Dispatch(ctx context.Context, i *discordgo.InteractionCreate) {
	ctx, cancel := context.WithTimeout(ctx, interactionTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("interaction handler panicked", "panic", r)
		}
	}()

	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		data := i.ApplicationCommandData()
		handler, ok := b.commands[data.Name]
		if !ok {
			b.logger.Warn("unknown command", "command", data.Name)
			b.replyEphemeral(i, "Unknown command.")
			return
		}

		b.logger.Debug("command received", "command", data.Name, "user_id", userID(i))
		handler(ctx, i)

	case discordgo.InteractionMessageComponent:
		customID := i.MessageComponentData().CustomID
		roleID, requiresMod, ok := parseRoleToggleID(customID)
		if !ok {
			b.logger.Warn("unknown component", "custom_id", customID)
			return
		}
		b.handleRoleButton(i, roleID, requiresMod)
	}
}

func (b *Bot) replyEphemeral(i *discordgo.InteractionCreate, content string) {
	b.respond(i, &discordgo.InteractionResponseData{
		Content:         content,
		Flags:           discordgo.MessageFlagsEphemeral,
		AllowedMentions: mentionsOnly(),
	})
}

func (b *Bot) respond(i *discordgo.InteractionCreate, data *discordgo.InteractionResponseData) {
	err := b.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
	if err != nil {
		b.logger.Error("failed to respond to interaction", "interaction_id", i.ID, "error", err)
	}
}

// deferReply acknowledges a slow command; finish it with editReply.
func (b *Bot) deferReply(i *discordgo.InteractionCreate, ephemeral bool) bool {
	data := &discordgo.InteractionResponseData{}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}

	err := b.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: data,
	})
	if err != nil {
		b.logger.Error("failed to defer interaction", "interaction_id", i.ID, "error", err)
		return false
	}
	return true
}

func (b *Bot) editReply(i *discordgo.InteractionCreate, content string, embeds ...*discordgo.MessageEmbed) {
	edit := &discordgo.WebhookEdit{Content: &content}
	if len(embeds) > 0 {
		edit.Embeds = &embeds
	}

	if _, err := b.session.InteractionResponseEdit(i.Interaction, edit); err != nil {
		b.logger.Error("failed to edit interaction response", "interaction_id", i.ID, "error", err)
	}
}

func userID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

func displayName(i *discordgo.InteractionCreate) string {
	if i.Member != nil {
		if i.Member.Nick != "" {
			return i.Member.Nick
		}
		if i.Member.User != nil {
			if i.Member.User.GlobalName != "" {
				return i.Member.User.GlobalName
			}
			return i.Member.User.Username
		}
	}
	if i.User != nil {
		return i.User.Username
	}
	return "unknown"
}

func (b *Bot) isOwner(i *discordgo.InteractionCreate) bool {
	return b.opts.OwnerID != "" && userID(i) == b.opts.OwnerID
}

func isModerator(i *discordgo.InteractionCreate) bool {
	if i.Member == nil {
		return false
	}
	return i.Member.Permissions&(discordgo.PermissionManageMessages|discordgo.PermissionAdministrator) != 0
}

func hasRole(i *discordgo.InteractionCreate, roleID string) bool {
	return i.Member != nil && slices.Contains(i.Member.Roles, roleID)
}

// options flattens command options by name.
func options(opts []*discordgo.ApplicationCommandInteractionDataOption) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	m := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(opts))
	for _, o := range opts {
		m[o.Name] = o
	}
	return m
}
