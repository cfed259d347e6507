package discord

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"calendar_bot/internal/domain"
)

func (b *Bot) handleSay(ctx context.Context, i *discordgo.InteractionCreate) {
	if !isModerator(i) {
		b.replyEphemeral(i, "❌ You need Moderator permissions to use this command!")
		return
	}

	opts := options(i.ApplicationCommandData().Options)
	channelID := targetChannel(i, opts)

	_, err := b.session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Content:         opts["message"].StringValue(),
		AllowedMentions: mentionsOnly(),
	}, discordgo.WithContext(ctx))
	if err != nil {
		b.logger.Error("failed to send message", "channel_id", channelID, "error", err)
		b.replyEphemeral(i, "❌ Failed to send the message. Check my permissions in that channel.")
		return
	}

	b.logger.Info("message sent", "channel_id", channelID, "user_id", userID(i))
	if channelID == i.ChannelID {
		b.replyEphemeral(i, "✅ Message sent!")
	} else {
		b.replyEphemeral(i, "✅ Message sent in "+channelMention(channelID)+"!")
	}
}

func (b *Bot) handleAnnounce(ctx context.Context, i *discordgo.InteractionCreate) {
	if !isModerator(i) {
		b.replyEphemeral(i, "❌ You need Moderator permissions to use this command!")
		return
	}
	if !b.isOwner(i) {
		b.replyEphemeral(i, "❌ You need to be the bot owner to use this command!")
		return
	}

	opts := options(i.ApplicationCommandData().Options)
	channelID := targetChannel(i, opts)

	color := domain.ColorBlue
	if o, ok := opts["color"]; ok {
		color = parseColor(o.StringValue(), domain.ColorBlue)
	}

	embed := &discordgo.MessageEmbed{
		Description: opts["message"].StringValue(),
		Color:       color,
		Timestamp:   b.now().Format(time.RFC3339),
		Footer:      &discordgo.MessageEmbedFooter{Text: "Announcement by " + displayName(i)},
	}
	if o, ok := opts["title"]; ok {
		embed.Title = o.StringValue()
	}

	msg := &discordgo.MessageSend{
		Embeds:          []*discordgo.MessageEmbed{embed},
		AllowedMentions: mentionsOnly(),
	}
	if o, ok := opts["ping_role"]; ok {
		roleID := o.RoleValue(nil, "").ID
		msg.Content = roleMention(roleID)
		msg.AllowedMentions = mentionsOnly(roleID)
	}

	if _, err := b.session.ChannelMessageSendComplex(channelID, msg, discordgo.WithContext(ctx)); err != nil {
		b.logger.Error("failed to send announcement", "channel_id", channelID, "error", err)
		b.replyEphemeral(i, "❌ Failed to send the announcement. Check my permissions in that channel.")
		return
	}

	b.logger.Info("announcement sent", "channel_id", channelID, "user_id", userID(i))
	b.replyEphemeral(i, "✅ Announcement sent in "+channelMention(channelID)+"!")
}

func targetChannel(i *discordgo.InteractionCreate, opts map[string]*discordgo.ApplicationCommandInteractionDataOption) string {
	if o, ok := opts["channel"]; ok {
		return o.ChannelValue(nil).ID
	}
	return i.ChannelID
}

// parseColor accepts RRGGBB with an optional # or 0x prefix.
func parseColor(s string, fallback int) int {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "#")
	s = strings.TrimPrefix(strings.ToLower(s), "0x")
	if s == "" {
		return fallback
	}

	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil || v > 0xffffff {
		return fallback
	}
	return int(v)
}
