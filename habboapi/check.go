package habboapi

import (
	"context"
	"errors"
	"log/slog"

	"github.com/onnwee/habbo-verify/telemetry"
)

// Outcome is the verdict of one profile check.
type Outcome int

const (
	// Pending means the profile exists but the motto does not hold the code yet,
	// or the lookup failed transiently.
	Pending Outcome = iota
	// NotFound means the profile does not exist or is not public.
	NotFound
	// Matched means the motto equals the expected code.
	Matched
)

func (o Outcome) String() string {
	switch o {
	case Pending:
		return "pending"
	case NotFound:
		return "not_found"
	case Matched:
		return "matched"
	default:
		return "unknown"
	}
}

// Result carries the outcome and the canonical profile name as the API spells
// it. Err is set when a transient failure was folded into Pending.
type Result struct {
	Outcome Outcome
	Name    string
	Err     error
}

// Check reports whether the motto of profile name equals code.
//
// Transport and parse failures are reported as Pending under the requested
// name, with Err set. Only a confirmed missing profile yields NotFound.
func (c *Client) Check(ctx context.Context, name, code string) Result {
	ctx, span := telemetry.StartSpan(ctx, "habboapi", "habbo.check_profile", telemetry.ProfileAttr(name))
	defer span.End()

	var (
		user *User
		err  error
	)
	telemetry.TimeFunc(telemetry.ProfileCheckDuration, func() {
		user, err = c.GetUser(ctx, name)
	})

	var res Result
	switch {
	case errors.Is(err, ErrUserNotFound):
		res = Result{Outcome: NotFound, Name: name}
	case err != nil:
		telemetry.LoggerWithCorr(ctx).Debug("habbo profile lookup failed; treating as pending",
			slog.String("profile", name), slog.Any("err", err), slog.String("component", "habboapi"))
		telemetry.RecordError(span, err)
		res = Result{Outcome: Pending, Name: name, Err: err}
	case user.Motto == code:
		res = Result{Outcome: Matched, Name: user.Name}
	default:
		res = Result{Outcome: Pending, Name: user.Name}
	}
	if res.Err == nil {
		telemetry.SetSpanSuccess(span)
	}
	result := res.Outcome.String()
	if res.Err != nil {
		result = "error"
	}
	telemetry.RecordProfileCheck(result)
	return res
}
