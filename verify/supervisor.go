package verify

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/onnwee/habbo-verify/habboapi"
	"github.com/onnwee/habbo-verify/messages"
	"github.com/onnwee/habbo-verify/telemetry"
)

const bannerFileName = "verification.png"

func (svc *Service) spawn(s *Session) {
	svc.wg.Add(1)
	go func() {
		defer svc.wg.Done()
		defer close(s.done)
		defer s.cancel()
		svc.supervise(s)
	}()
}

// supervise polls the profile until a terminal outcome, expiry, or until the
// session stops being current. Every terminal notice is posted only after
// Remove succeeds, so a superseded task exits without a word.
func (svc *Service) supervise(s *Session) {
	ctx := telemetry.WithCorrelation(s.ctx, s.ID)
	ctx, span := telemetry.StartSpan(ctx, "verify", "verify.session",
		telemetry.SessionAttr(s.ID), telemetry.ProfileAttr(s.Profile))
	defer span.End()

	logger := telemetry.LoggerWithCorr(ctx).With(
		slog.String("component", "verify"),
		slog.String("user_id", s.Owner.UserID),
		slog.String("profile", s.Profile),
		slog.Uint64("generation", s.Generation),
	)
	logger.Info("verification session started", slog.Time("expires_at", s.ExpiresAt))

	for polls := 1; svc.now().Before(s.ExpiresAt); polls++ {
		if ctx.Err() != nil || !svc.store.Current(s) {
			logger.Debug("session superseded", slog.Int("polls", polls-1))
			return
		}
		res := svc.checker.Check(ctx, s.Profile, s.Code)
		if ctx.Err() != nil {
			return
		}
		if res.Name != "" {
			s.setResolved(res.Name)
		}

		switch res.Outcome {
		case habboapi.NotFound:
			if !svc.store.Remove(s) {
				return
			}
			v := svc.sessionVars(s)
			svc.notify(ctx, s, svc.msgs.Render(messages.UserNotFound, v))
			svc.finish(ctx, s, StateNotFound)
			return
		case habboapi.Matched:
			if !svc.store.Remove(s) {
				return
			}
			logger.Info("motto matched", slog.Int("polls", polls), slog.String("habbo_name", res.Name))
			state := svc.complete(ctx, s, res.Name)
			if state != StateMatched {
				telemetry.RecordError(span, errors.New(state.String()))
			} else {
				telemetry.SetSpanSuccess(span)
			}
			svc.finish(ctx, s, state)
			return
		}

		if res.Err != nil {
			logger.Debug("profile check failed, will retry", slog.Any("err", res.Err))
		}
		if !svc.wait(ctx, s) {
			return
		}
	}

	if ctx.Err() != nil || !svc.store.Remove(s) {
		return
	}
	v := svc.sessionVars(s)
	v.Profile = s.DisplayName()
	svc.notify(ctx, s, svc.msgs.Render(messages.Expired, v))
	svc.finish(ctx, s, StateExpired)
}

// wait sleeps one interval, cut short by expiry. It returns false when ctx
// ends first.
func (svc *Service) wait(ctx context.Context, s *Session) bool {
	d := svc.cfg.Interval
	if left := s.ExpiresAt.Sub(svc.now()); left < d {
		d = left
	}
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// complete grants the role after a match and posts the final message.
func (svc *Service) complete(ctx context.Context, s *Session, name string) State {
	guildID, userID := s.Owner.GuildID, s.Owner.UserID
	v := svc.sessionVars(s)
	v.Profile = name

	fail := func(e messages.Event, err error, state State) State {
		if err != nil {
			v.Error = err.Error()
			svc.logger.Warn("role assignment failed",
				slog.String("session_id", s.ID),
				slog.String("event", e.Key()),
				slog.Any("err", err))
		}
		svc.notify(ctx, s, svc.msgs.Render(e, v))
		return state
	}

	role, err := svc.chat.EnsureRole(ctx, guildID, svc.cfg.RoleName, svc.cfg.RoleColor)
	if err != nil {
		if errors.Is(err, ErrForbidden) {
			return fail(messages.BotNoPermission, err, StatePermissionError)
		}
		return fail(messages.InternalError, err, StateInternalError)
	}
	standing, err := svc.chat.BotStanding(ctx, guildID)
	if err != nil {
		return fail(messages.InternalError, err, StateInternalError)
	}
	if !standing.ManageRoles {
		return fail(messages.BotNoPermission, nil, StatePermissionError)
	}
	if role.Position >= standing.TopRolePosition {
		return fail(messages.RoleHierarchy, nil, StatePermissionError)
	}
	if err := svc.chat.AddRole(ctx, guildID, userID, role.ID); err != nil {
		if errors.Is(err, ErrForbidden) {
			return fail(messages.RoleAssignError, err, StatePermissionError)
		}
		return fail(messages.InternalError, err, StateInternalError)
	}

	img := svc.renderBanner(ctx, s, name)

	event := messages.Success
	if svc.cfg.ChangeNickname {
		if err := svc.chat.SetNickname(ctx, guildID, userID, name); err != nil {
			return fail(messages.InternalError, err, StateInternalError)
		}
		event = messages.SuccessWithNickname
	}
	svc.publish(ctx, s, svc.msgs.Render(event, v), img)
	return StateMatched
}

func (svc *Service) renderBanner(ctx context.Context, s *Session, name string) []byte {
	if svc.banner == nil {
		return nil
	}
	img, err := svc.banner.Render(ctx, name)
	if err != nil {
		telemetry.RecordBannerFailure()
		svc.logger.Warn("render banner failed", slog.String("session_id", s.ID), slog.Any("err", err))
		return nil
	}
	return img
}

// publish posts the success text. With an image the status message is
// replaced by an upload, since edits cannot add attachments.
func (svc *Service) publish(ctx context.Context, s *Session, text string, img []byte) {
	s.msgMu.Lock()
	defer s.msgMu.Unlock()
	if img == nil {
		svc.post(ctx, s, text)
		return
	}
	if ref, ok := s.Status(); ok {
		if err := svc.chat.Delete(ctx, ref); err != nil {
			svc.logger.Warn("delete status message failed", slog.String("session_id", s.ID), slog.Any("err", err))
		}
		s.clearStatus()
	}
	ref, err := svc.chat.SendFile(ctx, s.Owner.ChannelID, text, Attachment{
		Name:        bannerFileName,
		ContentType: "image/png",
		Data:        img,
	})
	if err != nil {
		svc.logger.Warn("upload banner failed", slog.String("session_id", s.ID), slog.Any("err", err))
		svc.post(ctx, s, text)
		return
	}
	s.setStatus(ref)
}
