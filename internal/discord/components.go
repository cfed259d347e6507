package discord

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"calendar_bot/internal/domain"
)

// Role toggle buttons carry everything they need in their custom id, so buttons on old
// messages keep working across restarts without any registration.
const (
	roleTogglePrefix = "role_toggle"
	modSuffix        = "mod"
)

func roleToggleID(b domain.RoleButton) string {
	if b.RequiresMod {
		return fmt.Sprintf("%s:%s:%s", roleTogglePrefix, b.RoleID, modSuffix)
	}
	return fmt.Sprintf("%s:%s", roleTogglePrefix, b.RoleID)
}

func parseRoleToggleID(customID string) (roleID string, requiresMod bool, ok bool) {
	parts := strings.Split(customID, ":")
	if len(parts) < 2 || len(parts) > 3 || parts[0] != roleTogglePrefix || parts[1] == "" {
		return "", false, false
	}
	if len(parts) == 3 {
		if parts[2] != modSuffix {
			return "", false, false
		}
		requiresMod = true
	}
	return parts[1], requiresMod, true
}

func buttonRows(buttons []domain.RoleButton) []discordgo.MessageComponent {
	if len(buttons) == 0 {
		return nil
	}

	var rows []discordgo.MessageComponent
	var row discordgo.ActionsRow
	for _, b := range buttons {
		// Discord allows five buttons per row.
		if len(row.Components) == 5 {
			rows = append(rows, row)
			row = discordgo.ActionsRow{}
		}
		row.Components = append(row.Components, discordgo.Button{
			Label:    b.Label,
			Style:    discordgo.PrimaryButton,
			CustomID: roleToggleID(b),
		})
	}
	return append(rows, row)
}

func toEmbed(e *domain.Embed) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       e.Title,
		Description: e.Description,
		URL:         e.URL,
		Color:       e.Color,
	}
	if !e.Timestamp.IsZero() {
		embed.Timestamp = e.Timestamp.Format(time.RFC3339)
	}
	if e.Footer != "" {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: e.Footer}
	}
	for _, f := range e.Fields {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   f.Name,
			Value:  f.Value,
			Inline: f.Inline,
		})
	}
	return embed
}

func roleMention(roleID string) string {
	return "<@&" + roleID + ">"
}

func channelMention(channelID string) string {
	return "<#" + channelID + ">"
}

// mentionsOnly pings exactly the given roles and nothing typed into the content.
func mentionsOnly(roles ...string) *discordgo.MessageAllowedMentions {
	allowed := &discordgo.MessageAllowedMentions{Parse: []discordgo.AllowedMentionType{}}
	for _, r := range roles {
		if r != "" {
			allowed.Roles = append(allowed.Roles, r)
		}
	}
	return allowed
}
