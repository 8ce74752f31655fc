package discord

import (
	"errors"
	"net/http"
	"sync"

	"github.com/bwmarrin/discordgo"
)

type roleCall struct {
	userID string
	roleID string
}

// fakeSession records REST calls and serves canned guild state.
type fakeSession struct {
	mu sync.Mutex

	roles   []*discordgo.Role
	members []*discordgo.Member

	nicknames map[string]string
	added     []roleCall
	removed   []roleCall
	sent      map[string][]string

	failRoles map[string]error
	failNick  error
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		nicknames: map[string]string{},
		sent:      map[string][]string{},
		failRoles: map[string]error{},
	}
}

func (f *fakeSession) GuildRoles(string, ...discordgo.RequestOption) ([]*discordgo.Role, error) {
	return f.roles, nil
}

func (f *fakeSession) GuildMember(_ string, userID string, _ ...discordgo.RequestOption) (*discordgo.Member, error) {
	for _, m := range f.members {
		if m.User != nil && m.User.ID == userID {
			return m, nil
		}
	}
	return nil, &discordgo.RESTError{
		Response: &http.Response{StatusCode: http.StatusNotFound},
		Message:  &discordgo.APIErrorMessage{Code: discordgo.ErrCodeUnknownMember, Message: "Unknown Member"},
	}
}

func (f *fakeSession) GuildMembers(_ string, after string, limit int, _ ...discordgo.RequestOption) ([]*discordgo.Member, error) {
	start := 0
	if after != "" {
		for i, m := range f.members {
			if m.User != nil && m.User.ID == after {
				start = i + 1
			}
		}
	}
	end := min(start+limit, len(f.members))
	return f.members[start:end], nil
}

func (f *fakeSession) GuildMemberNickname(_ string, userID, nickname string, _ ...discordgo.RequestOption) error {
	if f.failNick != nil {
		return f.failNick
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nicknames[userID] = nickname
	return nil
}

func (f *fakeSession) GuildMemberRoleAdd(_ string, userID, roleID string, _ ...discordgo.RequestOption) error {
	if err := f.failRoles[roleID]; err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.added = append(f.added, roleCall{userID, roleID})
	return nil
}

func (f *fakeSession) GuildMemberRoleRemove(_ string, userID, roleID string, _ ...discordgo.RequestOption) error {
	if err := f.failRoles[roleID]; err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, roleCall{userID, roleID})
	return nil
}

func (f *fakeSession) UserChannelCreate(recipientID string, _ ...discordgo.RequestOption) (*discordgo.Channel, error) {
	if recipientID == "" {
		return nil, errors.New("no recipient")
	}
	return &discordgo.Channel{ID: "dm-" + recipientID}, nil
}

func (f *fakeSession) ChannelMessageSend(channelID string, content string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent[channelID] = append(f.sent[channelID], content)
	return &discordgo.Message{ChannelID: channelID, Content: content}, nil
}

func member(userID, username, nick string, roles ...string) *discordgo.Member {
	return &discordgo.Member{
		User:  &discordgo.User{ID: userID, Username: username},
		Nick:  nick,
		Roles: roles,
	}
}
