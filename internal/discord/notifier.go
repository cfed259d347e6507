package discord

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"

	"calendar_bot/internal/domain"
)

// Notifier posts notifications straight to Discord channels.
type Notifier struct {
	session Session
	logger  *slog.Logger
}

func NewNotifier(session Session, logger *slog.Logger) *Notifier {
	return &Notifier{session: session, logger: logger}
}

func (n *Notifier) Notify(ctx context.Context, req *domain.NotificationRequest) error {
	msg := &discordgo.MessageSend{
		Content:         req.Body,
		Components:      buttonRows(req.Buttons),
		AllowedMentions: mentionsOnly(req.Mention),
	}
	if req.Mention != "" {
		msg.Content = roleMention(req.Mention)
		if req.Body != "" {
			msg.Content += "\n" + req.Body
		}
	}
	if req.Embed != nil {
		msg.Embeds = []*discordgo.MessageEmbed{toEmbed(req.Embed)}
	}

	sent, err := n.session.ChannelMessageSendComplex(req.Destination, msg, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("send message to channel %s: %w: %w", req.Destination, domain.ErrDeliveryFailed, err)
	}

	if sent != nil {
		n.logger.Debug("message sent",
			"channel_id", req.Destination,
			"message_id", sent.ID,
			"item_id", req.ItemID,
		)
	}

	return nil
}
