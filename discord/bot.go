package discord

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/bwmarrin/discordgo"

	"github.com/onnwee/habbo-verify/messages"
	"github.com/onnwee/habbo-verify/telemetry"
)

// Intents requested at identify. Message content and guild members are
// privileged and must be enabled in the developer portal.
const Intents = discordgo.IntentGuilds |
	discordgo.IntentGuildMessages |
	discordgo.IntentMessageContent |
	discordgo.IntentGuildMembers

// NewSession builds an unopened gateway session for a bot token.
func NewSession(token string) (*discordgo.Session, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("discord session: %w", err)
	}
	s.Identify.Intents = Intents
	return s, nil
}

// Bot owns the gateway connection and feeds messages to a Router.
type Bot struct {
	session *discordgo.Session
	router  *Router
	msgs    *messages.Catalog

	ctx       context.Context
	connected atomic.Bool
}

// NewBot wires r to the session's message events.
func NewBot(s *discordgo.Session, r *Router, msgs *messages.Catalog) *Bot {
	if msgs == nil {
		msgs = messages.Defaults()
	}
	return &Bot{session: s, router: r, msgs: msgs, ctx: context.Background()}
}

// Connected reports whether the gateway is up.
func (b *Bot) Connected() bool { return b.connected.Load() }

func (b *Bot) setConnected(up bool) {
	b.connected.Store(up)
	telemetry.UpdateGatewayGauge(up)
}

func (b *Bot) onReady(_ *discordgo.Session, r *discordgo.Ready) {
	b.setConnected(true)
	if r.User == nil {
		return
	}
	v := messages.Vars{BotName: r.User.Username, BotID: r.User.ID}
	slog.Info(b.msgs.Render(messages.BotOnline, v),
		slog.String("bot_id", r.User.ID),
		slog.Int("guilds", len(r.Guilds)))
	slog.Info(b.msgs.Render(messages.BotID, v))
}

func (b *Bot) onMessage(_ *discordgo.Session, m *discordgo.MessageCreate) {
	b.router.Dispatch(b.ctx, m.Message)
}

// Run opens the gateway and blocks until ctx is done, then closes it.
func (b *Bot) Run(ctx context.Context) error {
	b.ctx = ctx
	b.session.AddHandler(b.onReady)
	b.session.AddHandler(b.onMessage)
	b.session.AddHandler(func(*discordgo.Session, *discordgo.Resumed) { b.setConnected(true) })
	b.session.AddHandler(func(*discordgo.Session, *discordgo.Disconnect) {
		slog.Warn("discord gateway disconnected")
		b.setConnected(false)
	})

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("open discord gateway: %w", err)
	}
	slog.Info("discord gateway opened")

	<-ctx.Done()
	b.setConnected(false)
	if err := b.session.Close(); err != nil {
		return fmt.Errorf("close discord gateway: %w", err)
	}
	slog.Info("discord gateway closed")
	return nil
}
