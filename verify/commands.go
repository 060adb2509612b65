package verify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/onnwee/habbo-verify/messages"
	"github.com/onnwee/habbo-verify/telemetry"
)

// Start begins verifying profile for the invoking user. A user with a live
// session gets the already-in-progress notice instead.
func (svc *Service) Start(ctx context.Context, inv Invocation, profile string) error {
	profile = strings.TrimSpace(profile)
	if profile == "" {
		svc.reply(ctx, inv.ChannelID, svc.msgs.Render(messages.NoUsername, svc.vars(inv)))
		return nil
	}
	code, err := svc.codes.Generate()
	if err != nil {
		svc.replyFailure(ctx, inv, err)
		return fmt.Errorf("start verification: %w", err)
	}

	s := svc.newSession(inv, profile, code)
	if existing, err := svc.store.Insert(s); err != nil {
		s.cancel()
		svc.remindInProgress(ctx, inv, existing)
		return nil
	}
	telemetry.RecordSessionStarted()

	if !svc.postInstructions(ctx, s) {
		svc.abandon(s)
		return nil
	}
	svc.spawn(s)
	return nil
}

// postInstructions sends the first message of s and makes it the status
// message. It reports false when s was cancelled before the message could be
// attached; the message is then deleted so the cancel notice stands alone.
func (svc *Service) postInstructions(ctx context.Context, s *Session) bool {
	s.msgMu.Lock()
	defer s.msgMu.Unlock()
	if !svc.store.Current(s) {
		return false
	}
	ref, err := svc.chat.Send(ctx, s.Owner.ChannelID, svc.msgs.Render(messages.Instructions, svc.sessionVars(s)))
	live := svc.store.Current(s)
	switch {
	case err != nil:
		svc.logger.Warn("send instructions failed", slog.String("session_id", s.ID), slog.Any("err", err))
	case live:
		s.setStatus(ref)
	default:
		if err := svc.chat.Delete(ctx, ref); err != nil {
			svc.logger.Warn("delete stale instructions failed", slog.String("session_id", s.ID), slog.Any("err", err))
		}
	}
	return live
}

// remindInProgress points the user at their live session, editing its status
// message while that session is still current.
func (svc *Service) remindInProgress(ctx context.Context, inv Invocation, existing *Session) {
	text := svc.msgs.Render(messages.AlreadyInProgress, svc.vars(inv))
	existing.msgMu.Lock()
	ref, ok := existing.Status()
	if ok && svc.store.Current(existing) {
		err := svc.chat.Edit(ctx, ref, text)
		existing.msgMu.Unlock()
		if err == nil {
			return
		}
	} else {
		existing.msgMu.Unlock()
	}
	svc.reply(ctx, inv.ChannelID, text)
}

func (svc *Service) replyFailure(ctx context.Context, inv Invocation, err error) {
	v := svc.vars(inv)
	v.Error = err.Error()
	svc.reply(ctx, inv.ChannelID, svc.msgs.Render(messages.StartFailed, v))
}

// Cancel ends the invoking user's session, if any.
func (svc *Service) Cancel(ctx context.Context, inv Invocation) error {
	s, ok := svc.store.Get(inv.UserID)
	if !ok || !svc.cancelSession(ctx, s) {
		svc.reply(ctx, inv.ChannelID, svc.msgs.Render(messages.NothingToCancel, svc.vars(inv)))
	}
	return nil
}

// CancelUser ends userID's session on behalf of an operator. It reports
// whether there was a session to end.
func (svc *Service) CancelUser(ctx context.Context, userID string) bool {
	s, ok := svc.store.Get(userID)
	if !ok {
		return false
	}
	return svc.cancelSession(ctx, s)
}

func (svc *Service) cancelSession(ctx context.Context, s *Session) bool {
	if !svc.store.Remove(s) {
		return false
	}
	s.cancel()
	svc.notify(ctx, s, svc.msgs.Render(messages.Cancelled, svc.vars(s.Owner)))
	svc.finish(ctx, s, StateCancelled)
	return true
}

// Restart replaces the invoking user's session with a fresh code, keeping the
// status message. profile, when set, overrides the target. With no live
// session it starts over from the last profile the user tried.
func (svc *Service) Restart(ctx context.Context, inv Invocation, profile string) error {
	profile = strings.TrimSpace(profile)

	if old, ok := svc.store.Get(inv.UserID); ok {
		target := old.Profile
		if profile != "" {
			target = profile
		}
		code, err := svc.codes.Generate()
		if err != nil {
			svc.replyFailure(ctx, inv, err)
			return fmt.Errorf("restart verification: %w", err)
		}
		s := svc.newSession(inv, target, code)
		ref, hasStatus := old.Status()
		if hasStatus {
			s.setStatus(ref)
		}
		if svc.store.Replace(old, s) {
			old.cancel()
			svc.finish(ctx, old, StateCancelled)
			telemetry.RecordSessionStarted()

			v := svc.sessionVars(s)
			var live bool
			if hasStatus {
				live = svc.notifyIfCurrent(ctx, s, svc.msgs.Render(messages.Restarting, v)) &&
					svc.notifyIfCurrent(ctx, s, svc.msgs.Render(messages.RestartInstructions, v))
			} else {
				live = svc.notifyIfCurrent(ctx, s, svc.msgs.Render(messages.Instructions, v))
			}
			if !live {
				svc.abandon(s)
				return nil
			}
			svc.spawn(s)
			return nil
		}
		// old ended between Get and Replace; fall through as if absent
		s.cancel()
	}

	target := profile
	if target == "" {
		target = svc.lastProfile(ctx, inv.UserID)
	}
	if target == "" {
		svc.reply(ctx, inv.ChannelID, svc.msgs.Render(messages.NothingToRestart, svc.vars(inv)))
		return nil
	}
	return svc.Start(ctx, inv, target)
}
