package verify

import (
	"context"
	"errors"
	"time"

	"github.com/onnwee/habbo-verify/habboapi"
)

// ErrForbidden is wrapped by Chat implementations when the platform refuses
// an action for lack of permissions.
var ErrForbidden = errors.New("forbidden")

// MessageRef points at a message the bot posted.
type MessageRef struct {
	ChannelID string
	MessageID string
}

// Attachment is a file uploaded along with a message.
type Attachment struct {
	Name        string
	ContentType string
	Data        []byte
}

// Role is a guild role as far as verification cares.
type Role struct {
	ID       string
	Name     string
	Position int
}

// Standing describes what the bot itself may do in a guild.
type Standing struct {
	ManageRoles     bool
	TopRolePosition int
}

// Chat is the slice of the chat platform the verification flow drives.
type Chat interface {
	Send(ctx context.Context, channelID, content string) (MessageRef, error)
	SendFile(ctx context.Context, channelID, content string, file Attachment) (MessageRef, error)
	Edit(ctx context.Context, ref MessageRef, content string) error
	Delete(ctx context.Context, ref MessageRef) error

	// EnsureRole returns the role called name, creating it when missing.
	EnsureRole(ctx context.Context, guildID, name string, color int) (Role, error)
	BotStanding(ctx context.Context, guildID string) (Standing, error)
	AddRole(ctx context.Context, guildID, userID, roleID string) error
	SetNickname(ctx context.Context, guildID, userID, nick string) error
}

// ProfileChecker reads the external profile and compares it to the code.
// *habboapi.Client implements it.
type ProfileChecker interface {
	Check(ctx context.Context, profile, code string) habboapi.Result
}

// BannerRenderer produces the PNG posted on success.
type BannerRenderer interface {
	Render(ctx context.Context, name string) ([]byte, error)
}

// CodeSource issues challenge codes.
type CodeSource interface {
	Generate() (string, error)
}

// Record is the audit entry written when a session ends.
type Record struct {
	SessionID    string
	UserID       string
	GuildID      string
	Profile      string
	ResolvedName string
	State        State
	StartedAt    time.Time
	FinishedAt   time.Time
}

// Recorder persists finished sessions. Optional.
type Recorder interface {
	RecordOutcome(ctx context.Context, r Record) error
	LastProfile(ctx context.Context, userID string) (string, error)
}
