// Package habboapi contains minimal helpers for the public Habbo web API:
// profile lookup by name (used to read the motto during verification) and
// the avatar imaging endpoint (used by the success banner).
package habboapi

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// DefaultServer is the Habbo hotel queried when none is configured.
const DefaultServer = "habbo.com.br"

// RequestTimeout bounds one profile or avatar request. Callers building their
// own http.Client should use it.
const RequestTimeout = 10 * time.Second

// maxBody caps how much of a profile response we read.
const maxBody = 1 << 20

// ErrUserNotFound is returned when the API reports no such (public) profile.
var ErrUserNotFound = errors.New("habbo user not found")

// Client talks to one Habbo hotel (habbo.com, habbo.com.br, habbo.es, ...).
type Client struct {
	// Server is the hotel domain without the www prefix.
	Server string
	// BaseURL overrides the derived https://www.<Server> origin.
	BaseURL    string
	HTTPClient *http.Client
}

// User is the subset of the public profile the bot cares about.
type User struct {
	UniqueID       string
	Name           string
	Motto          string
	ProfileVisible bool
}

func (c *Client) http() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c *Client) baseURL() string {
	if c.BaseURL != "" {
		return strings.TrimRight(c.BaseURL, "/")
	}
	server := c.Server
	if server == "" {
		server = DefaultServer
	}
	return "https://www." + server
}

// GetUser looks up a profile by name. The API answers missing or private
// profiles with an {"error": ...} body; those map to ErrUserNotFound. Anything
// that is not valid JSON is returned as a plain (transient) error.
func (c *Client) GetUser(ctx context.Context, name string) (*User, error) {
	if name == "" {
		return nil, fmt.Errorf("name empty")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL()+"/api/public/users", nil)
	if err != nil {
		return nil, err
	}
	q := req.URL.Query()
	q.Set("name", name)
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Accept", "application/json")
	resp, err := c.http().Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("read profile body: %w", err)
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("profile lookup: unexpected response (status %d)", resp.StatusCode)
	}
	res := gjson.ParseBytes(body)
	if res.Get("error").Exists() || !res.IsObject() || len(res.Map()) == 0 {
		return nil, ErrUserNotFound
	}
	u := &User{
		UniqueID:       res.Get("uniqueId").String(),
		Name:           res.Get("name").String(),
		Motto:          res.Get("motto").String(),
		ProfileVisible: res.Get("profileVisible").Bool(),
	}
	if u.Name == "" {
		u.Name = name
	}
	return u, nil
}

// AvatarURL returns the full-body avatar image URL for name.
func (c *Client) AvatarURL(name string) string {
	q := url.Values{}
	q.Set("user", name)
	q.Set("action", "std")
	q.Set("direction", "2")
	q.Set("head_direction", "3")
	q.Set("img_format", "png")
	q.Set("gesture", "sml")
	q.Set("headonly", "0")
	q.Set("size", "l")
	return c.baseURL() + "/habbo-imaging/avatarimage?" + q.Encode()
}

// Avatar downloads and decodes the avatar PNG for name.
func (c *Client) Avatar(ctx context.Context, name string) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.AvatarURL(name), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http().Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("avatar %q: status %d", name, resp.StatusCode)
	}
	img, err := png.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("decode avatar %q: %w", name, err)
	}
	return img, nil
}
