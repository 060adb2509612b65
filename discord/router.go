package discord

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/onnwee/habbo-verify/verify"
)

// HandlerFunc runs one command. arg is the first word after the command name.
type HandlerFunc func(ctx context.Context, inv verify.Invocation, arg string) error

// Commands is what the router dispatches to. *verify.Service implements it.
type Commands interface {
	Start(ctx context.Context, inv verify.Invocation, profile string) error
	Cancel(ctx context.Context, inv verify.Invocation) error
	Restart(ctx context.Context, inv verify.Invocation, profile string) error
}

// CommandNames are the configurable command words.
type CommandNames struct {
	Verify  string
	Cancel  string
	Restart string
}

// Router turns prefixed guild messages into handler calls.
type Router struct {
	prefix string

	mu       sync.RWMutex
	handlers map[string]HandlerFunc
}

// NewRouter returns a router with no commands.
func NewRouter(prefix string) *Router {
	return &Router{prefix: prefix, handlers: make(map[string]HandlerFunc)}
}

// Register binds name to h, replacing any previous binding.
func (r *Router) Register(name string, h HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = h
}

// RegisterVerification binds the three verification commands.
func (r *Router) RegisterVerification(names CommandNames, cmds Commands) {
	r.Register(names.Verify, cmds.Start)
	r.Register(names.Cancel, func(ctx context.Context, inv verify.Invocation, _ string) error {
		return cmds.Cancel(ctx, inv)
	})
	r.Register(names.Restart, cmds.Restart)
}

// parse splits "!verify Alice" into ("verify", "Alice").
func (r *Router) parse(content string) (name, arg string, ok bool) {
	content = strings.TrimSpace(content)
	if r.prefix == "" || !strings.HasPrefix(content, r.prefix) {
		return "", "", false
	}
	fields := strings.Fields(strings.TrimPrefix(content, r.prefix))
	if len(fields) == 0 {
		return "", "", false
	}
	if len(fields) > 1 {
		arg = fields[1]
	}
	return fields[0], arg, true
}

// Dispatch runs the handler for m, if any, and reports whether one matched.
// Bot authors and direct messages are ignored.
func (r *Router) Dispatch(ctx context.Context, m *discordgo.Message) bool {
	if m == nil || m.Author == nil || m.Author.Bot || m.GuildID == "" {
		return false
	}
	name, arg, ok := r.parse(m.Content)
	if !ok {
		return false
	}
	r.mu.RLock()
	h, found := r.handlers[name]
	r.mu.RUnlock()
	if !found {
		return false
	}

	inv := verify.Invocation{
		UserID:    m.Author.ID,
		GuildID:   m.GuildID,
		ChannelID: m.ChannelID,
		Mention:   m.Author.Mention(),
	}
	if err := h(ctx, inv, arg); err != nil {
		slog.Error("command failed",
			slog.String("command", name),
			slog.String("user_id", inv.UserID),
			slog.String("guild_id", inv.GuildID),
			slog.Any("err", err))
	}
	return true
}
