// Package discord adapts discordgo to the verification flow: a Chat
// implementation over the REST API, a prefix-command router, and the gateway
// lifecycle.
package discord

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/bwmarrin/discordgo"

	"github.com/onnwee/habbo-verify/verify"
)

// restAPI is the part of *discordgo.Session the client calls.
type restAPI interface {
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageEdit(channelID, messageID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error
	GuildRoles(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Role, error)
	GuildRoleCreate(guildID string, data *discordgo.RoleParams, options ...discordgo.RequestOption) (*discordgo.Role, error)
	GuildMember(guildID, userID string, options ...discordgo.RequestOption) (*discordgo.Member, error)
	GuildMemberRoleAdd(guildID, userID, roleID string, options ...discordgo.RequestOption) error
	GuildMemberNickname(guildID, userID, nickname string, options ...discordgo.RequestOption) error
}

// Client implements verify.Chat over the Discord REST API.
type Client struct {
	api   restAPI
	botID func() string
}

var _ verify.Chat = (*Client)(nil)

// NewClient wraps an authenticated session. The bot's own user id is read
// from the session state, which is filled once the gateway is ready.
func NewClient(s *discordgo.Session) *Client {
	return &Client{
		api: s,
		botID: func() string {
			if s.State == nil || s.State.User == nil {
				return ""
			}
			return s.State.User.ID
		},
	}
}

// mapErr wraps 403 responses in verify.ErrForbidden.
func mapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var rest *discordgo.RESTError
	if errors.As(err, &rest) && rest.Response != nil && rest.Response.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%s: %w: %v", op, verify.ErrForbidden, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func ref(m *discordgo.Message) verify.MessageRef {
	return verify.MessageRef{ChannelID: m.ChannelID, MessageID: m.ID}
}

// Send posts content to channelID.
func (c *Client) Send(ctx context.Context, channelID, content string) (verify.MessageRef, error) {
	m, err := c.api.ChannelMessageSend(channelID, content, discordgo.WithContext(ctx))
	if err != nil {
		return verify.MessageRef{}, mapErr("send message", err)
	}
	return ref(m), nil
}

// SendFile posts content with file attached.
func (c *Client) SendFile(ctx context.Context, channelID, content string, file verify.Attachment) (verify.MessageRef, error) {
	m, err := c.api.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Content: content,
		Files: []*discordgo.File{{
			Name:        file.Name,
			ContentType: file.ContentType,
			Reader:      bytes.NewReader(file.Data),
		}},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return verify.MessageRef{}, mapErr("send file", err)
	}
	return ref(m), nil
}

// Edit replaces the content of a message the bot posted.
func (c *Client) Edit(ctx context.Context, r verify.MessageRef, content string) error {
	_, err := c.api.ChannelMessageEdit(r.ChannelID, r.MessageID, content, discordgo.WithContext(ctx))
	return mapErr("edit message", err)
}

// Delete removes a message.
func (c *Client) Delete(ctx context.Context, r verify.MessageRef) error {
	return mapErr("delete message", c.api.ChannelMessageDelete(r.ChannelID, r.MessageID, discordgo.WithContext(ctx)))
}

func (c *Client) findRole(ctx context.Context, guildID, name string) (verify.Role, bool, error) {
	roles, err := c.api.GuildRoles(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return verify.Role{}, false, mapErr("list roles", err)
	}
	for _, r := range roles {
		if r.Name == name {
			return verify.Role{ID: r.ID, Name: r.Name, Position: r.Position}, true, nil
		}
	}
	return verify.Role{}, false, nil
}

// EnsureRole looks the role up by exact name and creates it when missing.
// If creation fails the roles are listed once more, since another session may
// have created it in the meantime.
func (c *Client) EnsureRole(ctx context.Context, guildID, name string, color int) (verify.Role, error) {
	if role, ok, err := c.findRole(ctx, guildID, name); err != nil || ok {
		return role, err
	}
	r, err := c.api.GuildRoleCreate(guildID, &discordgo.RoleParams{Name: name, Color: &color}, discordgo.WithContext(ctx))
	if err != nil {
		createErr := mapErr("create role", err)
		if role, ok, ferr := c.findRole(ctx, guildID, name); ferr == nil && ok {
			return role, nil
		}
		return verify.Role{}, createErr
	}
	return verify.Role{ID: r.ID, Name: r.Name, Position: r.Position}, nil
}

// BotStanding computes the bot's effective guild permissions and its highest
// role position.
func (c *Client) BotStanding(ctx context.Context, guildID string) (verify.Standing, error) {
	botID := c.botID()
	if botID == "" {
		return verify.Standing{}, errors.New("bot standing: gateway not ready")
	}
	member, err := c.api.GuildMember(guildID, botID, discordgo.WithContext(ctx))
	if err != nil {
		return verify.Standing{}, mapErr("fetch bot member", err)
	}
	roles, err := c.api.GuildRoles(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return verify.Standing{}, mapErr("list roles", err)
	}
	return standing(guildID, roles, member.Roles), nil
}

// standing folds the @everyone role (whose id is the guild id) and the
// member's roles into a permission set and a top position.
func standing(guildID string, roles []*discordgo.Role, memberRoles []string) verify.Standing {
	held := make(map[string]bool, len(memberRoles)+1)
	held[guildID] = true
	for _, id := range memberRoles {
		held[id] = true
	}
	var perms int64
	top := 0
	for _, r := range roles {
		if !held[r.ID] {
			continue
		}
		perms |= r.Permissions
		if r.Position > top {
			top = r.Position
		}
	}
	return verify.Standing{
		ManageRoles:     perms&(discordgo.PermissionAdministrator|discordgo.PermissionManageRoles) != 0,
		TopRolePosition: top,
	}
}

// AddRole grants roleID to userID.
func (c *Client) AddRole(ctx context.Context, guildID, userID, roleID string) error {
	return mapErr("add role", c.api.GuildMemberRoleAdd(guildID, userID, roleID, discordgo.WithContext(ctx)))
}

// SetNickname changes userID's guild nickname.
func (c *Client) SetNickname(ctx context.Context, guildID, userID, nick string) error {
	return mapErr("set nickname", c.api.GuildMemberNickname(guildID, userID, nick, discordgo.WithContext(ctx)))
}
