// Package config loads environment variables and provides a typed Config used across the service.
// It applies defaults so the bot runs with only DISCORD_TOKEN set.
// For the token itself, use ValidateBotReady.
package config

import (
	"fmt"
	"image/color"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Discord
	DiscordToken   string
	CommandPrefix  string
	VerifyCommand  string
	CancelCommand  string
	RestartCommand string

	// Verification
	CodePrefix     string
	CodeLength     int
	Expiration     time.Duration
	Interval       time.Duration
	VerifiedRole   string
	ChangeNickname bool
	HabboServer    string
	MessagesFile   string

	// Banner
	BannerText            string
	BannerBackground      color.RGBA
	BannerBackgroundImage string
	BannerFont            string
	BannerFontSize        float64
	BannerMainColor       color.RGBA
	BannerSecondaryColor  color.RGBA

	// HTTP
	HTTPAddr string

	// Database (optional; empty disables outcome history)
	DBDsn string
}

// Load reads environment variables and applies defaults. It doesn't fail if the
// Discord token is missing; use ValidateBotReady() before connecting.
func Load() (*Config, error) {
	cfg := &Config{
		DiscordToken:   os.Getenv("DISCORD_TOKEN"),
		CommandPrefix:  envOr("COMMAND_PREFIX", "!"),
		VerifyCommand:  envOr("VERIFY_COMMAND", "verify"),
		CancelCommand:  envOr("CANCEL_COMMAND", "cancel"),
		RestartCommand: envOr("RESTART_COMMAND", "restart"),

		CodePrefix:   envOr("CODE_PREFIX", "myt-"),
		VerifiedRole: envOr("VERIFIED_ROLE", "Verified"),
		HabboServer:  envOr("HABBO_SERVER", "habbo.com.br"),
		MessagesFile: envOr("MESSAGES_FILE", "messages.json"),

		BannerText:            envOr("BANNER_TEXT", "Welcome \nto MYT!"),
		BannerBackgroundImage: os.Getenv("BANNER_BACKGROUND_IMAGE"),
		BannerFont:            os.Getenv("BANNER_FONT"),

		HTTPAddr: envOr("HTTP_ADDR", ":8080"),
		DBDsn:    os.Getenv("DB_DSN"),
	}
	// .env files commonly carry a literal \n
	cfg.BannerText = strings.ReplaceAll(cfg.BannerText, `\n`, "\n")

	var err error
	if cfg.CodeLength, err = intEnv("CODE_LENGTH", 6); err != nil {
		return nil, err
	}
	if cfg.CodeLength < 1 {
		return nil, fmt.Errorf("invalid CODE_LENGTH %d: must be positive", cfg.CodeLength)
	}
	if cfg.Expiration, err = durationEnv("VERIFICATION_EXPIRATION", 5*time.Minute, time.Minute); err != nil {
		return nil, err
	}
	if cfg.Interval, err = durationEnv("VERIFICATION_INTERVAL", 5*time.Second, time.Second); err != nil {
		return nil, err
	}
	if cfg.ChangeNickname, err = boolEnv("CHANGE_NICKNAME", true); err != nil {
		return nil, err
	}

	if cfg.BannerFontSize, err = floatEnv("BANNER_FONT_SIZE", 24); err != nil {
		return nil, err
	}
	if cfg.BannerBackground, err = colorEnv("BANNER_BACKGROUND_COLOR", color.RGBA{R: 20, G: 20, B: 20, A: 255}); err != nil {
		return nil, err
	}
	if cfg.BannerMainColor, err = colorEnv("BANNER_MAIN_TEXT_COLOR", color.RGBA{R: 255, G: 255, B: 255, A: 255}); err != nil {
		return nil, err
	}
	if cfg.BannerSecondaryColor, err = colorEnv("BANNER_SECONDARY_TEXT_COLOR", color.RGBA{R: 255, G: 181, B: 77, A: 255}); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ValidateBotReady checks the fields required to connect to Discord.
func (c *Config) ValidateBotReady() error {
	if strings.TrimSpace(c.DiscordToken) == "" {
		return fmt.Errorf("missing discord env: require DISCORD_TOKEN")
	}
	if c.CommandPrefix == "" {
		return fmt.Errorf("COMMAND_PREFIX must not be empty")
	}
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func intEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func floatEnv(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || f <= 0 {
		return 0, fmt.Errorf("invalid %s %q: want a positive number", key, v)
	}
	return f, nil
}

func boolEnv(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

// durationEnv accepts Go durations ("90s", "5m") or a bare integer counted in unit.
func durationEnv(key string, def, unit time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	var d time.Duration
	if n, err := strconv.Atoi(v); err == nil {
		d = time.Duration(n) * unit
	} else if d, err = time.ParseDuration(v); err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be positive", key, v)
	}
	return d, nil
}

func colorEnv(key string, def color.RGBA) (color.RGBA, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	c, err := ParseColor(v)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid %s: %w", key, err)
	}
	return c, nil
}

// ParseColor reads "r,g,b" or "#rrggbb" into an opaque colour.
func ParseColor(s string) (color.RGBA, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "#") {
		hex := s[1:]
		if len(hex) != 6 {
			return color.RGBA{}, fmt.Errorf("colour %q: want #rrggbb", s)
		}
		n, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return color.RGBA{}, fmt.Errorf("colour %q: %w", s, err)
		}
		return color.RGBA{R: uint8(n >> 16), G: uint8(n >> 8), B: uint8(n), A: 255}, nil
	}
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return color.RGBA{}, fmt.Errorf("colour %q: want r,g,b", s)
	}
	var rgb [3]uint8
	for i, p := range parts {
		n, err := strconv.ParseUint(strings.TrimSpace(p), 10, 8)
		if err != nil {
			return color.RGBA{}, fmt.Errorf("colour %q: %w", s, err)
		}
		rgb[i] = uint8(n)
	}
	return color.RGBA{R: rgb[0], G: rgb[1], B: rgb[2], A: 255}, nil
}
