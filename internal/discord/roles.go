package discord

import (
	"context"
	"errors"

	"github.com/bwmarrin/discordgo"

	"calendar_bot/internal/domain"
)

// toggleRole adds the role when the member lacks it and removes it otherwise. It reports
// whether the role was added.
func (b *Bot) toggleRole(i *discordgo.InteractionCreate, roleID string) (bool, error) {
	user := userID(i)
	if hasRole(i, roleID) {
		if err := b.session.GuildMemberRoleRemove(i.GuildID, user, roleID); err != nil {
			return false, err
		}
		b.logger.Info("role removed", "user_id", user, "role_id", roleID)
		return false, nil
	}

	if err := b.session.GuildMemberRoleAdd(i.GuildID, user, roleID); err != nil {
		return false, err
	}
	b.logger.Info("role added", "user_id", user, "role_id", roleID)
	return true, nil
}

func (b *Bot) handleRoleButton(i *discordgo.InteractionCreate, roleID string, requiresMod bool) {
	if i.GuildID == "" || i.Member == nil {
		b.replyEphemeral(i, "This button can only be used in a server!")
		return
	}
	if requiresMod && !isModerator(i) {
		b.replyEphemeral(i, "❌ You need Moderator permissions to toggle this role!")
		return
	}

	added, err := b.toggleRole(i, roleID)
	if err != nil {
		b.logger.Error("failed to toggle role", "role_id", roleID, "error", err)
		b.replyEphemeral(i, "Could not update your roles. The configured role may no longer exist.")
		return
	}

	if added {
		b.replyEphemeral(i, "✅ Added the "+roleMention(roleID)+" role")
	} else {
		b.replyEphemeral(i, "✅ Removed the "+roleMention(roleID)+" role")
	}
}

type toggleText struct {
	missing string
	added   string
	removed string
}

func (b *Bot) handleToggleSummaries(_ context.Context, i *discordgo.InteractionCreate) {
	b.toggleCommand(i, b.settings.Current().DailySummaryRoleID, toggleText{
		missing: "Daily summary role is not configured!",
		added:   "You will now receive daily summaries.",
		removed: "You will no longer receive daily summaries.",
	})
}

func (b *Bot) handleToggleEventNotifications(_ context.Context, i *discordgo.InteractionCreate) {
	b.toggleCommand(i, b.settings.Current().EventNotificationRoleID, toggleText{
		missing: "Event notification role is not configured!",
		added:   "You will now receive event creation notifications.",
		removed: "You will no longer receive event creation notifications.",
	})
}

func (b *Bot) toggleCommand(i *discordgo.InteractionCreate, roleID string, text toggleText) {
	if i.GuildID == "" || i.Member == nil {
		b.replyEphemeral(i, "This command can only be used in a server!")
		return
	}
	if roleID == "" {
		b.replyEphemeral(i, text.missing)
		return
	}

	added, err := b.toggleRole(i, roleID)
	if err != nil {
		b.logger.Error("failed to toggle role", "role_id", roleID, "error", err)
		b.replyEphemeral(i, "Could not update your roles. The configured role may no longer exist.")
		return
	}

	if added {
		b.replyEphemeral(i, text.added)
	} else {
		b.replyEphemeral(i, text.removed)
	}
}

// handleRoleButtons posts a message with toggle buttons for every configured role.
func (b *Bot) handleRoleButtons(ctx context.Context, i *discordgo.InteractionCreate) {
	if !isModerator(i) {
		b.replyEphemeral(i, "❌ You need Moderator permissions to use this command!")
		return
	}

	s := b.settings.Current()
	var buttons []domain.RoleButton
	if s.DailySummaryRoleID != "" {
		buttons = append(buttons, domain.RoleButton{
			RoleID: s.DailySummaryRoleID,
			Label:  "Toggle Upcoming Events Notifications",
		})
	}
	if s.EventNotificationRoleID != "" {
		buttons = append(buttons, domain.RoleButton{
			RoleID:      s.EventNotificationRoleID,
			Label:       "Toggle Event Notifications",
			RequiresMod: true,
		})
	}
	if len(buttons) == 0 {
		b.replyEphemeral(i, "No notification roles are configured!")
		return
	}

	_, err := b.session.ChannelMessageSendComplex(i.ChannelID, &discordgo.MessageSend{
		Content:    "Use the buttons below to manage your notification roles:",
		Components: buttonRows(buttons),
	}, discordgo.WithContext(ctx))
	if err != nil {
		b.logger.Error("failed to post role buttons", "channel_id", i.ChannelID, "error", err)
		b.replyEphemeral(i, "❌ Failed to post the role buttons.")
		return
	}

	b.replyEphemeral(i, "✅ Role buttons posted!")
}

func (b *Bot) handleForceSummary(ctx context.Context, i *discordgo.InteractionCreate) {
	if !isModerator(i) {
		b.replyEphemeral(i, "❌ You need Moderator permissions to use this command!")
		return
	}
	if !b.deferReply(i, true) {
		return
	}

	err := b.summary.Force(ctx)
	switch {
	case err == nil:
		b.editReply(i, "Daily summary sent!")
	case errors.Is(err, domain.ErrConfigInvalid):
		b.editReply(i, "Daily summary channel is not configured!")
	case errors.Is(err, domain.ErrSourceUnavailable):
		b.logger.Error("forced summary failed", "error", err)
		b.editReply(i, "Unable to access calendar. Please contact the bot owner.")
	default:
		b.logger.Error("forced summary failed", "error", err)
		b.editReply(i, "Failed to send the daily summary.")
	}
}
