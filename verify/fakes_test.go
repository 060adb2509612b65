package verify

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/onnwee/habbo-verify/habboapi"
	"github.com/onnwee/habbo-verify/messages"
)

type chatCall struct {
	op        string
	channelID string
	messageID string
	content   string
}

type fakeChat struct {
	mu     sync.Mutex
	calls  []chatCall
	nextID int

	rolePosition int
	standing     Standing
	roleErr      error
	standingErr  error
	addErr       error
	nickErr      error

	roleAdds []string
	nicks    []string

	// hooks run before the call is recorded, outside the lock
	beforeSend func(content string)
	beforeEdit func(content string)
}

func newFakeChat() *fakeChat {
	return &fakeChat{
		rolePosition: 1,
		standing:     Standing{ManageRoles: true, TopRolePosition: 10},
	}
}

func (c *fakeChat) record(op, channelID, messageID, content string) {
	c.calls = append(c.calls, chatCall{op: op, channelID: channelID, messageID: messageID, content: content})
}

func (c *fakeChat) Send(_ context.Context, channelID, content string) (MessageRef, error) {
	if c.beforeSend != nil {
		c.beforeSend(content)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	id := fmt.Sprintf("m%d", c.nextID)
	c.record("send", channelID, id, content)
	return MessageRef{ChannelID: channelID, MessageID: id}, nil
}

func (c *fakeChat) SendFile(_ context.Context, channelID, content string, _ Attachment) (MessageRef, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	id := fmt.Sprintf("m%d", c.nextID)
	c.record("file", channelID, id, content)
	return MessageRef{ChannelID: channelID, MessageID: id}, nil
}

func (c *fakeChat) Edit(_ context.Context, ref MessageRef, content string) error {
	if c.beforeEdit != nil {
		c.beforeEdit(content)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("edit", ref.ChannelID, ref.MessageID, content)
	return nil
}

func (c *fakeChat) Delete(_ context.Context, ref MessageRef) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("delete", ref.ChannelID, ref.MessageID, "")
	return nil
}

func (c *fakeChat) EnsureRole(_ context.Context, _, name string, _ int) (Role, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.roleErr != nil {
		return Role{}, c.roleErr
	}
	return Role{ID: "role-1", Name: name, Position: c.rolePosition}, nil
}

func (c *fakeChat) BotStanding(context.Context, string) (Standing, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.standing, c.standingErr
}

func (c *fakeChat) AddRole(_ context.Context, _, userID, roleID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.addErr != nil {
		return c.addErr
	}
	c.roleAdds = append(c.roleAdds, userID+":"+roleID)
	return nil
}

func (c *fakeChat) SetNickname(_ context.Context, _, _, nick string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.nickErr != nil {
		return c.nickErr
	}
	c.nicks = append(c.nicks, nick)
	return nil
}

func (c *fakeChat) snapshot() []chatCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]chatCall(nil), c.calls...)
}

// count returns how many posted or edited texts contain substr.
func (c *fakeChat) count(substr string) int {
	n := 0
	for _, call := range c.snapshot() {
		if strings.Contains(call.content, substr) {
			n++
		}
	}
	return n
}

func (c *fakeChat) ops(op string) []chatCall {
	var out []chatCall
	for _, call := range c.snapshot() {
		if call.op == op {
			out = append(out, call)
		}
	}
	return out
}

func (c *fakeChat) last() chatCall {
	calls := c.snapshot()
	if len(calls) == 0 {
		return chatCall{}
	}
	return calls[len(calls)-1]
}

func (c *fakeChat) roleAddCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.roleAdds)
}

// fakeChecker answers checks with fn and counts them.
type fakeChecker struct {
	calls atomic.Int32
	fn    func(ctx context.Context, profile, code string, n int) habboapi.Result
}

func (f *fakeChecker) Check(ctx context.Context, profile, code string) habboapi.Result {
	n := int(f.calls.Add(1))
	return f.fn(ctx, profile, code, n)
}

func (f *fakeChecker) count() int { return int(f.calls.Load()) }

func pendingChecker() *fakeChecker {
	return &fakeChecker{fn: func(_ context.Context, profile, _ string, _ int) habboapi.Result {
		return habboapi.Result{Outcome: habboapi.Pending, Name: profile}
	}}
}

type seqCodes struct{ n atomic.Int64 }

func (s *seqCodes) Generate() (string, error) {
	return fmt.Sprintf("myt-%06d", s.n.Add(1)), nil
}

type failingCodes struct{ err error }

func (f failingCodes) Generate() (string, error) { return "", f.err }

type fakeBanner struct {
	img []byte
	err error
}

func (b fakeBanner) Render(context.Context, string) ([]byte, error) { return b.img, b.err }

type fakeRecorder struct {
	mu      sync.Mutex
	records []Record
	last    map[string]string
}

func (r *fakeRecorder) RecordOutcome(_ context.Context, rec Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
	return nil
}

func (r *fakeRecorder) LastProfile(_ context.Context, userID string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last[userID], nil
}

func (r *fakeRecorder) states() []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]State, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, rec.State)
	}
	return out
}

func testSettings() Settings {
	return Settings{
		Prefix:         "!",
		VerifyCommand:  "verify",
		CancelCommand:  "cancel",
		Expiration:     2 * time.Second,
		Interval:       20 * time.Millisecond,
		RoleName:       "Verified",
		RoleColor:      0x2ecc71,
		ChangeNickname: true,
	}
}

func newTestService(t *testing.T, cfg Settings, d Deps) *Service {
	t.Helper()
	if d.Codes == nil {
		d.Codes = &seqCodes{}
	}
	if d.Messages == nil {
		d.Messages = messages.Defaults()
	}
	svc := New(context.Background(), cfg, d)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := svc.Shutdown(ctx); err != nil {
			t.Errorf("Shutdown() error = %v", err)
		}
	})
	return svc
}

var alice = Invocation{UserID: "42", GuildID: "g1", ChannelID: "c1", Mention: "<@42>"}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func waitDone(t *testing.T, s *Session) {
	t.Helper()
	select {
	case <-s.Done():
	case <-time.After(3 * time.Second):
		t.Fatalf("session %s did not finish", s.ID)
	}
}

func mustSession(t *testing.T, svc *Service, userID string) *Session {
	t.Helper()
	s, ok := svc.Store().Get(userID)
	if !ok {
		t.Fatalf("no session for user %s", userID)
	}
	return s
}
