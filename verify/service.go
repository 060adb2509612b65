// Package verify runs the verification flow: a member posts a code in their
// Habbo motto, a background task polls the profile, and on a match the member
// receives the verified role.
package verify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/onnwee/habbo-verify/messages"
	"github.com/onnwee/habbo-verify/telemetry"
)

// Settings are the tunables of the flow.
type Settings struct {
	Prefix         string
	VerifyCommand  string
	CancelCommand  string
	Expiration     time.Duration
	Interval       time.Duration
	RoleName       string
	RoleColor      int
	ChangeNickname bool
}

// Deps are the collaborators of a Service. Banner and Recorder may be nil.
type Deps struct {
	Chat     Chat
	Checker  ProfileChecker
	Codes    CodeSource
	Messages *messages.Catalog
	Banner   BannerRenderer
	Recorder Recorder
	Store    *Store
}

// Service owns the session store and the per-session poll tasks.
type Service struct {
	cfg      Settings
	chat     Chat
	checker  ProfileChecker
	codes    CodeSource
	msgs     *messages.Catalog
	banner   BannerRenderer
	recorder Recorder
	store    *Store

	now    func() time.Time
	base   context.Context
	stop   context.CancelFunc
	wg     sync.WaitGroup
	logger *slog.Logger
}

// New builds a Service. Poll tasks derive from ctx, so cancelling it stops
// them all without posting anything.
func New(ctx context.Context, cfg Settings, d Deps) *Service {
	if d.Store == nil {
		d.Store = NewStore()
	}
	if d.Messages == nil {
		d.Messages = messages.Defaults()
	}
	base, stop := context.WithCancel(ctx)
	return &Service{
		cfg:      cfg,
		chat:     d.Chat,
		checker:  d.Checker,
		codes:    d.Codes,
		msgs:     d.Messages,
		banner:   d.Banner,
		recorder: d.Recorder,
		store:    d.Store,
		now:      time.Now,
		base:     base,
		stop:     stop,
		logger:   slog.Default().With(slog.String("component", "verify")),
	}
}

// Store exposes the live sessions.
func (svc *Service) Store() *Store { return svc.store }

// Shutdown stops every poll task and waits for them to exit or ctx to end.
func (svc *Service) Shutdown(ctx context.Context) error {
	svc.stop()
	done := make(chan struct{})
	go func() {
		svc.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("verify shutdown: %w", ctx.Err())
	}
}

func (svc *Service) newSession(inv Invocation, profile, code string) *Session {
	ctx, cancel := context.WithCancel(svc.base)
	now := svc.now()
	return &Session{
		ID:        uuid.NewString(),
		Owner:     inv,
		Profile:   profile,
		Code:      code,
		CreatedAt: now,
		ExpiresAt: now.Add(svc.cfg.Expiration),
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
}

func (svc *Service) vars(inv Invocation) messages.Vars {
	return messages.Vars{
		Mention:           inv.Mention,
		ExpirationMinutes: int(svc.cfg.Expiration / time.Minute),
		IntervalSeconds:   int(svc.cfg.Interval / time.Second),
		Prefix:            svc.cfg.Prefix,
		Command:           svc.cfg.VerifyCommand,
		CancelCommand:     svc.cfg.CancelCommand,
		RoleName:          svc.cfg.RoleName,
	}
}

func (svc *Service) sessionVars(s *Session) messages.Vars {
	v := svc.vars(s.Owner)
	v.Profile = s.Profile
	v.Code = s.Code
	return v
}

// reply posts a message that is not tied to any session.
func (svc *Service) reply(ctx context.Context, channelID, text string) {
	if _, err := svc.chat.Send(ctx, channelID, text); err != nil {
		svc.logger.Warn("send reply failed", slog.String("channel_id", channelID), slog.Any("err", err))
	}
}

// notify updates the session's status message, falling back to a new message
// when there is none or the edit fails.
func (svc *Service) notify(ctx context.Context, s *Session, text string) {
	s.msgMu.Lock()
	defer s.msgMu.Unlock()
	svc.post(ctx, s, text)
}

// notifyIfCurrent is notify for a session nobody has claimed. It reports false,
// posting nothing, once s has left the store.
func (svc *Service) notifyIfCurrent(ctx context.Context, s *Session, text string) bool {
	s.msgMu.Lock()
	defer s.msgMu.Unlock()
	if !svc.store.Current(s) {
		return false
	}
	svc.post(ctx, s, text)
	return true
}

// post must hold s.msgMu
func (svc *Service) post(ctx context.Context, s *Session, text string) {
	if ref, ok := s.Status(); ok {
		err := svc.chat.Edit(ctx, ref, text)
		if err == nil {
			return
		}
		svc.logger.Warn("edit status message failed",
			slog.String("session_id", s.ID),
			slog.String("message_id", ref.MessageID),
			slog.Any("err", err))
	}
	ref, err := svc.chat.Send(ctx, s.Owner.ChannelID, text)
	if err != nil {
		svc.logger.Warn("send status message failed", slog.String("session_id", s.ID), slog.Any("err", err))
		return
	}
	s.setStatus(ref)
}

// abandon releases a session whose poll task was never started.
func (svc *Service) abandon(s *Session) {
	s.cancel()
	close(s.done)
}

// finish records a terminal state. The caller must have claimed s.
func (svc *Service) finish(ctx context.Context, s *Session, state State) {
	finished := svc.now()
	lifetime := finished.Sub(s.CreatedAt)
	telemetry.RecordSessionFinished(state.String(), lifetime)
	svc.logger.Info("verification session finished",
		slog.String("session_id", s.ID),
		slog.String("user_id", s.Owner.UserID),
		slog.String("guild_id", s.Owner.GuildID),
		slog.String("profile", s.Profile),
		slog.String("outcome", state.String()),
		slog.Duration("lifetime", lifetime))

	if svc.recorder == nil {
		return
	}
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	err := svc.recorder.RecordOutcome(rctx, Record{
		SessionID:    s.ID,
		UserID:       s.Owner.UserID,
		GuildID:      s.Owner.GuildID,
		Profile:      s.Profile,
		ResolvedName: s.DisplayName(),
		State:        state,
		StartedAt:    s.CreatedAt,
		FinishedAt:   finished,
	})
	if err != nil {
		svc.logger.Warn("record outcome failed", slog.String("session_id", s.ID), slog.Any("err", err))
	}
}

// lastProfile finds the profile a user last tried, in memory first.
func (svc *Service) lastProfile(ctx context.Context, userID string) string {
	if p, ok := svc.store.LastProfile(userID); ok && p != "" {
		return p
	}
	if svc.recorder == nil {
		return ""
	}
	p, err := svc.recorder.LastProfile(ctx, userID)
	if err != nil {
		svc.logger.Warn("lookup last profile failed", slog.String("user_id", userID), slog.Any("err", err))
		return ""
	}
	return p
}
