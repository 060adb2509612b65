package config

import (
	"image/color"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{
		"DISCORD_TOKEN", "COMMAND_PREFIX", "CODE_LENGTH", "VERIFICATION_EXPIRATION",
		"VERIFICATION_INTERVAL", "CHANGE_NICKNAME", "BANNER_BACKGROUND_COLOR", "DB_DSN",
	} {
		t.Setenv(k, "")
	}
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.CommandPrefix != "!" || cfg.VerifyCommand != "verify" || cfg.CancelCommand != "cancel" || cfg.RestartCommand != "restart" {
		t.Errorf("unexpected command defaults: %+v", cfg)
	}
	if cfg.CodePrefix != "myt-" || cfg.CodeLength != 6 {
		t.Errorf("code defaults = %q/%d", cfg.CodePrefix, cfg.CodeLength)
	}
	if cfg.Expiration != 5*time.Minute || cfg.Interval != 5*time.Second {
		t.Errorf("timing defaults = %v/%v", cfg.Expiration, cfg.Interval)
	}
	if !cfg.ChangeNickname {
		t.Error("ChangeNickname default should be true")
	}
	if cfg.HabboServer != "habbo.com.br" {
		t.Errorf("HabboServer = %q", cfg.HabboServer)
	}
	if cfg.BannerBackground != (color.RGBA{R: 20, G: 20, B: 20, A: 255}) {
		t.Errorf("BannerBackground = %v", cfg.BannerBackground)
	}
	if cfg.BannerText != "Welcome \nto MYT!" {
		t.Errorf("BannerText = %q", cfg.BannerText)
	}
	if cfg.DBDsn != "" {
		t.Errorf("DBDsn = %q, want empty (history disabled)", cfg.DBDsn)
	}
}

func TestLoadDurations(t *testing.T) {
	tests := []struct {
		name       string
		expiration string
		interval   string
		wantExp    time.Duration
		wantInt    time.Duration
		wantErr    bool
	}{
		{"bare integers", "10", "3", 10 * time.Minute, 3 * time.Second, false},
		{"go durations", "90s", "500ms", 90 * time.Second, 500 * time.Millisecond, false},
		{"garbage", "soon", "5", 0, 0, true},
		{"zero interval", "5", "0", 0, 0, true},
		{"negative", "-1m", "5", 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("VERIFICATION_EXPIRATION", tt.expiration)
			t.Setenv("VERIFICATION_INTERVAL", tt.interval)
			cfg, err := Load()
			if tt.wantErr {
				if err == nil {
					t.Fatal("Load() want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Load() error: %v", err)
			}
			if cfg.Expiration != tt.wantExp || cfg.Interval != tt.wantInt {
				t.Errorf("got %v/%v, want %v/%v", cfg.Expiration, cfg.Interval, tt.wantExp, tt.wantInt)
			}
		})
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("COMMAND_PREFIX", "?")
	t.Setenv("VERIFY_COMMAND", "verificar")
	t.Setenv("CODE_LENGTH", "8")
	t.Setenv("CHANGE_NICKNAME", "false")
	t.Setenv("BANNER_TEXT", `Hello\nthere`)
	t.Setenv("BANNER_MAIN_TEXT_COLOR", "#ff8000")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.CommandPrefix != "?" || cfg.VerifyCommand != "verificar" || cfg.CodeLength != 8 {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if cfg.ChangeNickname {
		t.Error("CHANGE_NICKNAME=false ignored")
	}
	if cfg.BannerText != "Hello\nthere" {
		t.Errorf("BannerText = %q", cfg.BannerText)
	}
	if cfg.BannerMainColor != (color.RGBA{R: 255, G: 128, B: 0, A: 255}) {
		t.Errorf("BannerMainColor = %v", cfg.BannerMainColor)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := map[string]string{
		"CODE_LENGTH":             "0",
		"CHANGE_NICKNAME":         "maybe",
		"BANNER_FONT_SIZE":        "-3",
		"BANNER_BACKGROUND_COLOR": "1,2",
	}
	for key, val := range tests {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, val)
			if _, err := Load(); err == nil {
				t.Errorf("Load() with %s=%q want error", key, val)
			}
		})
	}
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in      string
		want    color.RGBA
		wantErr bool
	}{
		{"20,20,20", color.RGBA{R: 20, G: 20, B: 20, A: 255}, false},
		{" 255, 181 ,77 ", color.RGBA{R: 255, G: 181, B: 77, A: 255}, false},
		{"#141414", color.RGBA{R: 20, G: 20, B: 20, A: 255}, false},
		{"#fff", color.RGBA{}, true},
		{"256,0,0", color.RGBA{}, true},
		{"red", color.RGBA{}, true},
	}
	for _, tt := range tests {
		got, err := ParseColor(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseColor(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseColor(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestValidateBotReady(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "token")
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if err := cfg.ValidateBotReady(); err != nil {
		t.Errorf("expected valid bot config, got %v", err)
	}
	t.Setenv("DISCORD_TOKEN", "")
	cfg, _ = Load()
	if err := cfg.ValidateBotReady(); err == nil {
		t.Error("expected error when DISCORD_TOKEN missing")
	}
}
