// Package discord adapts a discordgo session to the presence operations
// the reconciliation engine needs: role listing, member lookup, rename,
// role mutation and direct messages.
package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/bwmarrin/discordgo"

	"corpauth/internal/presence"
	id "corpauth/pkg/domain"
)

// membersPageSize is the largest page the guild members endpoint returns.
const membersPageSize = 1000

// Session is the subset of *discordgo.Session the gateway calls.
type Session interface {
	GuildRoles(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Role, error)
	GuildMember(guildID, userID string, options ...discordgo.RequestOption) (*discordgo.Member, error)
	GuildMembers(guildID string, after string, limit int, options ...discordgo.RequestOption) ([]*discordgo.Member, error)
	GuildMemberNickname(guildID, userID, nickname string, options ...discordgo.RequestOption) error
	GuildMemberRoleAdd(guildID, userID, roleID string, options ...discordgo.RequestOption) error
	GuildMemberRoleRemove(guildID, userID, roleID string, options ...discordgo.RequestOption) error
	UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Gateway performs presence operations against one guild.
type Gateway struct {
	session Session
	guildID string
}

func NewGateway(session Session, guildID string) *Gateway {
	return &Gateway{session: session, guildID: guildID}
}

// Roles lists the guild's roles.
func (g *Gateway) Roles(ctx context.Context) ([]presence.Role, error) {
	roles, err := g.session.GuildRoles(g.guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("list guild roles: %w", err)
	}
	out := make([]presence.Role, 0, len(roles))
	for _, r := range roles {
		out = append(out, presence.Role{ID: r.ID, Name: r.Name})
	}
	return out, nil
}

// Member looks up one guild member. presence.ErrMemberNotFound means the
// user is not on the server.
func (g *Gateway) Member(ctx context.Context, chatUserID id.ChatUserID) (*presence.Member, error) {
	m, err := g.session.GuildMember(g.guildID, string(chatUserID), discordgo.WithContext(ctx))
	if err != nil {
		if isUnknownMember(err) {
			return nil, presence.ErrMemberNotFound
		}
		return nil, fmt.Errorf("get member %s: %w", chatUserID, err)
	}
	member := toMember(m)
	return &member, nil
}

// Members enumerates every guild member, paging by user id.
func (g *Gateway) Members(ctx context.Context) ([]presence.Member, error) {
	var out []presence.Member
	after := ""
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page, err := g.session.GuildMembers(g.guildID, after, membersPageSize, discordgo.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("list guild members: %w", err)
		}
		next := after
		for _, m := range page {
			if m.User == nil {
				continue
			}
			out = append(out, toMember(m))
			next = m.User.ID
		}
		if len(page) < membersPageSize {
			return out, nil
		}
		// A partial listing would read as members having left.
		if next == after {
			return nil, fmt.Errorf("list guild members: full page without user ids after %q", after)
		}
		after = next
	}
}

// Rename sets the member's server nickname.
func (g *Gateway) Rename(ctx context.Context, chatUserID id.ChatUserID, name string) error {
	if err := g.session.GuildMemberNickname(g.guildID, string(chatUserID), name, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("rename member %s: %w", chatUserID, err)
	}
	return nil
}

// AddRoles grants each role. Every role is attempted; failures are joined.
func (g *Gateway) AddRoles(ctx context.Context, chatUserID id.ChatUserID, roleIDs []string) error {
	var errs []error
	for _, roleID := range roleIDs {
		if err := g.session.GuildMemberRoleAdd(g.guildID, string(chatUserID), roleID, discordgo.WithContext(ctx)); err != nil {
			errs = append(errs, fmt.Errorf("add role %s to %s: %w", roleID, chatUserID, err))
		}
	}
	return errors.Join(errs...)
}

// RemoveRoles revokes each role. Every role is attempted; failures are joined.
// A member who left the guild yields presence.ErrMemberNotFound.
func (g *Gateway) RemoveRoles(ctx context.Context, chatUserID id.ChatUserID, roleIDs []string) error {
	var errs []error
	for _, roleID := range roleIDs {
		if err := g.session.GuildMemberRoleRemove(g.guildID, string(chatUserID), roleID, discordgo.WithContext(ctx)); err != nil {
			if isUnknownMember(err) {
				return presence.ErrMemberNotFound
			}
			errs = append(errs, fmt.Errorf("remove role %s from %s: %w", roleID, chatUserID, err))
		}
	}
	return errors.Join(errs...)
}

// Notify sends the member a direct message.
func (g *Gateway) Notify(ctx context.Context, chatUserID id.ChatUserID, message string) error {
	ch, err := g.session.UserChannelCreate(string(chatUserID), discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("open dm with %s: %w", chatUserID, err)
	}
	if _, err := g.session.ChannelMessageSend(ch.ID, message, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("send dm to %s: %w", chatUserID, err)
	}
	return nil
}

func toMember(m *discordgo.Member) presence.Member {
	member := presence.Member{
		DisplayName: m.Nick,
		RoleIDs:     append([]string(nil), m.Roles...),
	}
	if m.User != nil {
		member.ChatUserID = id.ChatUserID(m.User.ID)
		member.Bot = m.User.Bot
		if member.DisplayName == "" {
			member.DisplayName = m.User.Username
		}
	}
	return member
}

func isUnknownMember(err error) bool {
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) {
		return false
	}
	if restErr.Message != nil && restErr.Message.Code == discordgo.ErrCodeUnknownMember {
		return true
	}
	return restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound
}
