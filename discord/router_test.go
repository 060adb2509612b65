package discord

import (
	"context"
	"errors"
	"testing"

	"github.com/bwmarrin/discordgo"

	"github.com/onnwee/habbo-verify/verify"
)

type commandCall struct {
	cmd string
	inv verify.Invocation
	arg string
}

type fakeCommands struct {
	calls []commandCall
	err   error
}

func (f *fakeCommands) Start(_ context.Context, inv verify.Invocation, profile string) error {
	f.calls = append(f.calls, commandCall{"start", inv, profile})
	return f.err
}

func (f *fakeCommands) Cancel(_ context.Context, inv verify.Invocation) error {
	f.calls = append(f.calls, commandCall{"cancel", inv, ""})
	return f.err
}

func (f *fakeCommands) Restart(_ context.Context, inv verify.Invocation, profile string) error {
	f.calls = append(f.calls, commandCall{"restart", inv, profile})
	return f.err
}

func guildMessage(content string) *discordgo.Message {
	return &discordgo.Message{
		ID:        "m1",
		GuildID:   "g1",
		ChannelID: "c1",
		Content:   content,
		Author:    &discordgo.User{ID: "42", Username: "alice"},
	}
}

func TestRouterDispatch(t *testing.T) {
	tests := []struct {
		name    string
		msg     *discordgo.Message
		matched bool
		cmd     string
		arg     string
	}{
		{"verify with profile", guildMessage("!verify Alice"), true, "start", "Alice"},
		{"verify extra words", guildMessage("  !verify Alice please "), true, "start", "Alice"},
		{"verify without profile", guildMessage("!verify"), true, "start", ""},
		{"cancel", guildMessage("!cancel"), true, "cancel", ""},
		{"restart override", guildMessage("!restart Bob"), true, "restart", "Bob"},
		{"unknown command", guildMessage("!dance"), false, "", ""},
		{"no prefix", guildMessage("verify Alice"), false, "", ""},
		{"bare prefix", guildMessage("!"), false, "", ""},
		{"case sensitive", guildMessage("!Verify Alice"), false, "", ""},
		{"bot author", func() *discordgo.Message {
			m := guildMessage("!verify Alice")
			m.Author.Bot = true
			return m
		}(), false, "", ""},
		{"direct message", func() *discordgo.Message {
			m := guildMessage("!verify Alice")
			m.GuildID = ""
			return m
		}(), false, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmds := &fakeCommands{}
			r := NewRouter("!")
			r.RegisterVerification(CommandNames{Verify: "verify", Cancel: "cancel", Restart: "restart"}, cmds)

			if got := r.Dispatch(context.Background(), tt.msg); got != tt.matched {
				t.Fatalf("Dispatch() = %v, want %v", got, tt.matched)
			}
			if !tt.matched {
				if len(cmds.calls) != 0 {
					t.Errorf("unexpected calls %+v", cmds.calls)
				}
				return
			}
			if len(cmds.calls) != 1 {
				t.Fatalf("calls = %+v, want 1", cmds.calls)
			}
			c := cmds.calls[0]
			if c.cmd != tt.cmd || c.arg != tt.arg {
				t.Errorf("call = %s(%q), want %s(%q)", c.cmd, c.arg, tt.cmd, tt.arg)
			}
			want := verify.Invocation{UserID: "42", GuildID: "g1", ChannelID: "c1", Mention: "<@42>"}
			if c.inv != want {
				t.Errorf("invocation = %+v, want %+v", c.inv, want)
			}
		})
	}
}

func TestRouterCustomNames(t *testing.T) {
	cmds := &fakeCommands{}
	r := NewRouter("?")
	r.RegisterVerification(CommandNames{Verify: "verificar", Cancel: "cancelar", Restart: "reiniciar"}, cmds)

	if !r.Dispatch(context.Background(), guildMessage("?verificar Alice")) {
		t.Fatal("custom verify command not routed")
	}
	if r.Dispatch(context.Background(), guildMessage("!verify Alice")) {
		t.Fatal("default command routed under custom names")
	}
}

func TestRouterHandlerErrorStillMatches(t *testing.T) {
	cmds := &fakeCommands{err: errors.New("boom")}
	r := NewRouter("!")
	r.RegisterVerification(CommandNames{Verify: "verify", Cancel: "cancel", Restart: "restart"}, cmds)
	if !r.Dispatch(context.Background(), guildMessage("!cancel")) {
		t.Fatal("Dispatch() = false for failing handler")
	}
}
