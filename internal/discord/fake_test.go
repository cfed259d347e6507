package discord

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"calendar_bot/internal/config"
	"calendar_bot/internal/domain"
)

type sentMessage struct {
	channelID string
	msg       *discordgo.MessageSend
}

type roleChange struct {
	guildID, userID, roleID string
	added                   bool
}

// fakeSession records every call the bot makes against Discord.
type fakeSession struct {
	mu sync.Mutex

	sent      []sentMessage
	responses []*discordgo.InteractionResponse
	edits     []*discordgo.WebhookEdit
	roles     []roleChange
	commands  []*discordgo.ApplicationCommand

	sendErr error
	roleErr error
}

func (f *fakeSession) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.sent = append(f.sent, sentMessage{channelID: channelID, msg: data})
	return &discordgo.Message{ID: "m1", ChannelID: channelID}, nil
}

func (f *fakeSession) InteractionRespond(_ *discordgo.Interaction, resp *discordgo.InteractionResponse, _ ...discordgo.RequestOption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = append(f.responses, resp)
	return nil
}

func (f *fakeSession) InteractionResponseEdit(_ *discordgo.Interaction, edit *discordgo.WebhookEdit, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, edit)
	return &discordgo.Message{ID: "m2"}, nil
}

func (f *fakeSession) GuildMemberRoleAdd(guildID, userID, roleID string, _ ...discordgo.RequestOption) error {
	return f.changeRole(guildID, userID, roleID, true)
}

func (f *fakeSession) GuildMemberRoleRemove(guildID, userID, roleID string, _ ...discordgo.RequestOption) error {
	return f.changeRole(guildID, userID, roleID, false)
}

func (f *fakeSession) changeRole(guildID, userID, roleID string, added bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.roleErr != nil {
		return f.roleErr
	}
	f.roles = append(f.roles, roleChange{guildID: guildID, userID: userID, roleID: roleID, added: added})
	return nil
}

func (f *fakeSession) ApplicationCommandBulkOverwrite(_ string, _ string, commands []*discordgo.ApplicationCommand, _ ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = commands
	return commands, nil
}

// lastReply returns the content of the most recent immediate response.
func (f *fakeSession) lastReply() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.responses) == 0 || f.responses[len(f.responses)-1].Data == nil {
		return ""
	}
	return f.responses[len(f.responses)-1].Data.Content
}

func (f *fakeSession) lastEdit() *discordgo.WebhookEdit {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.edits) == 0 {
		return nil
	}
	return f.edits[len(f.edits)-1]
}

type memRepo struct {
	saved *config.Settings
}

func (r *memRepo) Load(context.Context) (*config.Settings, error) {
	return r.saved, nil
}

func (r *memRepo) Save(_ context.Context, s *config.Settings) error {
	r.saved = s.Clone()
	return nil
}

type fakeForcer struct {
	calls int
	err   error
}

func (f *fakeForcer) Force(context.Context) error {
	f.calls++
	return f.err
}

type fakeCalendar struct {
	upcoming []domain.Item
	nearby   []domain.Item
	created  domain.Item
	err      error

	windows  []domain.Window
	inserted []domain.Item
}

func (c *fakeCalendar) Between(_ context.Context, _ string, window domain.Window) ([]domain.Item, error) {
	c.windows = append(c.windows, window)
	return c.nearby, c.err
}

func (c *fakeCalendar) Upcoming(context.Context, string, time.Time, int) ([]domain.Item, error) {
	return c.upcoming, c.err
}

func (c *fakeCalendar) Insert(_ context.Context, _ string, item domain.Item) (domain.Item, error) {
	c.inserted = append(c.inserted, item)
	if c.err != nil {
		return domain.Item{}, c.err
	}
	created := c.created
	created.Title, created.Start, created.End = item.Title, item.Start, item.End
	return created, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

const (
	ownerID     = "owner"
	guildID     = "guild"
	hereChannel = "here"
)

func member(id string, permissions int64, roles ...string) *discordgo.Member {
	return &discordgo.Member{
		User:        &discordgo.User{ID: id, Username: id},
		Permissions: permissions,
		Roles:       roles,
	}
}

func moderator(id string) *discordgo.Member {
	return member(id, discordgo.PermissionManageMessages)
}

func command(name string, m *discordgo.Member, opts ...*discordgo.ApplicationCommandInteractionDataOption) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		ID:        "interaction",
		Type:      discordgo.InteractionApplicationCommand,
		GuildID:   guildID,
		ChannelID: hereChannel,
		Member:    m,
		Data:      discordgo.ApplicationCommandInteractionData{Name: name, Options: opts},
	}}
}

func button(customID string, m *discordgo.Member) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		ID:        "interaction",
		Type:      discordgo.InteractionMessageComponent,
		GuildID:   guildID,
		ChannelID: hereChannel,
		Member:    m,
		Data:      discordgo.MessageComponentInteractionData{CustomID: customID, ComponentType: discordgo.ButtonComponent},
	}}
}

func stringOpt(name, value string) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionString, Value: value}
}

func boolOpt(name string, value bool) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionBoolean, Value: value}
}

func channelOption(name, id string) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionChannel, Value: id}
}

func roleOption(name, id string) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionRole, Value: id}
}

func subcommand(name string, opts ...*discordgo.ApplicationCommandInteractionDataOption) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{Name: name, Type: discordgo.ApplicationCommandOptionSubCommand, Options: opts}
}
