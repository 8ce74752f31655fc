package discord

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	id "corpauth/pkg/domain"
)

// Intents the bot needs: member join/leave events and message content for
// prefix commands.
const Intents = discordgo.IntentGuilds |
	discordgo.IntentGuildMembers |
	discordgo.IntentGuildMessages |
	discordgo.IntentMessageContent

// MembershipHandler receives join and leave observations for the guild.
type MembershipHandler interface {
	MemberJoined(ctx context.Context, chatUserID id.ChatUserID)
	MemberLeft(ctx context.Context, chatUserID id.ChatUserID)
}

// CommandHandler answers a prefix command with the reply to post.
type CommandHandler interface {
	Handle(ctx context.Context, cmd Command) string
}

// Command is a parsed prefix command such as "!auth <token>".
type Command struct {
	Name        string
	Args        []string
	ChatUserID  id.ChatUserID
	DisplayName string
	ChannelID   string
}

// ParseCommand splits a message into a command when it starts with prefix.
// The command name is lower-cased; arguments keep their case.
func ParseCommand(content, prefix string) (Command, bool) {
	content = strings.TrimSpace(content)
	if prefix == "" || !strings.HasPrefix(content, prefix) {
		return Command{}, false
	}
	fields := strings.Fields(strings.TrimPrefix(content, prefix))
	if len(fields) == 0 {
		return Command{}, false
	}
	return Command{Name: strings.ToLower(fields[0]), Args: fields[1:]}, true
}

// NewSession creates a bot session with the intents the bot needs.
func NewSession(token string) (*discordgo.Session, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	s.Identify.Intents = Intents
	return s, nil
}

// Bot routes gateway events for one guild to the membership and command
// handlers.
type Bot struct {
	rest       Session
	guildID    string
	prefix     string
	membership MembershipHandler
	commands   CommandHandler
	timeout    time.Duration
	logger     *slog.Logger

	baseCtx context.Context
}

type BotOption func(*Bot)

func WithPrefix(prefix string) BotOption {
	return func(b *Bot) {
		if prefix != "" {
			b.prefix = prefix
		}
	}
}

// WithHandlerTimeout bounds the work done for a single event.
func WithHandlerTimeout(d time.Duration) BotOption {
	return func(b *Bot) {
		if d > 0 {
			b.timeout = d
		}
	}
}

func WithBotLogger(logger *slog.Logger) BotOption {
	return func(b *Bot) {
		if logger != nil {
			b.logger = logger
		}
	}
}

func NewBot(rest Session, guildID string, membership MembershipHandler, commands CommandHandler, opts ...BotOption) *Bot {
	b := &Bot{
		rest:       rest,
		guildID:    guildID,
		prefix:     "!",
		membership: membership,
		commands:   commands,
		timeout:    30 * time.Second,
		logger:     slog.Default(),
		baseCtx:    context.Background(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Attach registers the event handlers on s. Handlers derive their context
// from ctx, so cancelling it aborts in-flight handler work.
func (b *Bot) Attach(ctx context.Context, s *discordgo.Session) {
	b.baseCtx = ctx
	s.AddHandler(b.onMemberAdd)
	s.AddHandler(b.onMemberRemove)
	s.AddHandler(b.onMessageCreate)
}

func (b *Bot) handlerContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(b.baseCtx, b.timeout)
}

func (b *Bot) onMemberAdd(_ *discordgo.Session, e *discordgo.GuildMemberAdd) {
	if e.Member == nil || e.User == nil || e.GuildID != b.guildID || e.User.Bot {
		return
	}
	ctx, cancel := b.handlerContext()
	defer cancel()
	b.membership.MemberJoined(ctx, id.ChatUserID(e.User.ID))
}

func (b *Bot) onMemberRemove(_ *discordgo.Session, e *discordgo.GuildMemberRemove) {
	if e.Member == nil || e.User == nil || e.GuildID != b.guildID {
		return
	}
	ctx, cancel := b.handlerContext()
	defer cancel()
	b.membership.MemberLeft(ctx, id.ChatUserID(e.User.ID))
}

func (b *Bot) onMessageCreate(_ *discordgo.Session, e *discordgo.MessageCreate) {
	if e.Message == nil || e.Author == nil || e.Author.Bot || e.GuildID != b.guildID {
		return
	}
	cmd, ok := ParseCommand(e.Content, b.prefix)
	if !ok {
		return
	}
	cmd.ChatUserID = id.ChatUserID(e.Author.ID)
	cmd.ChannelID = e.ChannelID
	cmd.DisplayName = e.Author.Username
	if e.Member != nil && e.Member.Nick != "" {
		cmd.DisplayName = e.Member.Nick
	}

	ctx, cancel := b.handlerContext()
	defer cancel()
	reply := b.commands.Handle(ctx, cmd)
	if reply == "" {
		return
	}
	if _, err := b.rest.ChannelMessageSend(e.ChannelID, reply, discordgo.WithContext(ctx)); err != nil {
		b.logger.WarnContext(ctx, "failed to send command reply",
			"command", cmd.Name,
			"chat_user_id", cmd.ChatUserID,
			"error", err,
		)
	}
}
