package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/ottdctl/internal/admin"
	"github.com/danmuck/ottdctl/internal/bot"
	"github.com/danmuck/ottdctl/internal/protocol"
	"github.com/danmuck/ottdctl/internal/protocol/session"
	"github.com/danmuck/ottdctl/internal/slack"
	"github.com/danmuck/ottdctl/internal/testutil/testlog"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ottdctl.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestTemplateLoadsAsDefaults(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "ottdctl.toml")
	if err := WriteTemplate(path, false); err != nil {
		t.Fatalf("write template: %v", err)
	}
	if err := WriteTemplate(path, false); err == nil {
		t.Fatalf("expected refusal to overwrite existing config")
	}
	if err := WriteTemplate(path, true); err != nil {
		t.Fatalf("overwrite template: %v", err)
	}

	cfg, err := load(path, map[string]string{"OTTDCTL_PASSWORD": "pw"})
	if err != nil {
		t.Fatalf("load template: %v", err)
	}
	want := Default()
	want.Admin.Password = "pw"
	if !reflect.DeepEqual(cfg, want) {
		t.Fatalf("template config mismatch:\n got %+v\nwant %+v", cfg, want)
	}
}

func TestLoadOverlaysFileAndEnv(t *testing.T) {
	testlog.Start(t)
	path := writeConfig(t, `
[server]
addr = "game.example.org:3977"
password = "secret"

[session]
heartbeat_interval = "10s"
backoff_long = "30s"
security_mode = "Production"

[session.tls]
enabled = true
ca_file = "/etc/ottd/ca.pem"

[updates]
date = "poll|weekly"
chat = false
console = true

[bot]
welcome_message = "Hi ${USERNAME}"
top_limit = 3
geoip = true
geoip_timeout = "1s"

[bot.country_welcome]
de = "Hallo ${USERNAME}"

[slack]
enabled = true
channel = "C123"
notify_chat = false

[store]
enabled = true

[status]
enabled = true
cors_origins = [" http://a.example ", ""]
`)
	cfg, err := load(path, map[string]string{
		"OTTDCTL_ADDR":            "override.example.org:3977",
		"OTTDCTL_SLACK_APP_TOKEN": "xapp-1",
		"OTTDCTL_SLACK_BOT_TOKEN": " xoxb-1 ",
		"OTTDCTL_STATUS_TOKEN":    "tok",
	})
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Admin.Address != "override.example.org:3977" || cfg.Admin.Password != "secret" {
		t.Fatalf("server=%+v", cfg.Admin)
	}
	s := cfg.Admin.Session
	if s.HeartbeatInterval != 10*time.Second || s.Backoff.Long != 30*time.Second || s.Backoff.Short != time.Second {
		t.Fatalf("session durations=%+v", s)
	}
	if s.SecurityMode != session.SecurityModeProduction || !s.TLS.Enabled || s.TLS.CAFile != "/etc/ottd/ca.pem" {
		t.Fatalf("session security=%+v", s)
	}
	if cfg.Updates.Date != protocol.FreqPoll|protocol.FreqWeekly || cfg.Updates.Chat || !cfg.Updates.Console || !cfg.Updates.ClientInfo {
		t.Fatalf("updates=%+v", cfg.Updates)
	}
	if cfg.Bot.WelcomeMessage != "Hi ${USERNAME}" || cfg.Bot.TopLimit != 3 || cfg.Bot.ReplyBurst != 10 {
		t.Fatalf("bot=%+v", cfg.Bot)
	}
	if !cfg.Bot.GeoIP || cfg.Bot.GeoIPTimeout != time.Second || cfg.Bot.GeoIPURL != bot.DefaultGeoIPURL || cfg.Bot.CountryWelcome["DE"] != "Hallo ${USERNAME}" {
		t.Fatalf("bot geoip=%+v", cfg.Bot)
	}
	if cfg.Slack.AppToken != "xapp-1" || cfg.Slack.BotToken != "xoxb-1" || cfg.Slack.Channel != "C123" {
		t.Fatalf("slack=%+v", cfg.Slack)
	}
	f := cfg.Slack.Filter(nil)
	if f.Chat || !f.Client || !f.Company || !f.Server {
		t.Fatalf("filter=%+v", f)
	}
	if !cfg.Store.Enabled || cfg.Store.Path != "ottdctl.db" {
		t.Fatalf("store=%+v", cfg.Store)
	}
	if !cfg.Status.Enabled || cfg.Status.Token != "tok" || !reflect.DeepEqual(cfg.Status.CORSOrigins, []string{"http://a.example"}) {
		t.Fatalf("status=%+v", cfg.Status)
	}
}

func TestLoadWithoutFileUsesEnv(t *testing.T) {
	testlog.Start(t)
	cfg, err := load("", map[string]string{"OTTDCTL_PASSWORD": "pw", "OTTDCTL_STORE_PATH": "/tmp/x.db"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Admin.Address != admin.DefaultAddress || cfg.Store.Path != "/tmp/x.db" {
		t.Fatalf("cfg=%+v", cfg)
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	testlog.Start(t)
	cases := []struct {
		name    string
		body    string
		env     map[string]string
		wantErr error
		wantMsg string
	}{
		{name: "missing password", body: "[server]\naddr = \"h:1\"\n", wantErr: ErrPasswordRequired},
		{name: "blank address", body: "[server]\naddr = \" \"\npassword = \"pw\"\n", wantErr: admin.ErrAddressRequired},
		{name: "unknown key", body: "[server]\npassword = \"pw\"\nbogus = 1\n", wantMsg: "unknown key server.bogus"},
		{name: "bad duration", body: "[server]\npassword = \"pw\"\n[session]\nwrite_timeout = \"soon\"\n", wantMsg: "session.write_timeout"},
		{name: "bad frequency", body: "[server]\npassword = \"pw\"\n[updates]\ndate = \"hourly\"\n", wantMsg: "updates.date"},
		{name: "production without tls", body: "[server]\npassword = \"pw\"\n[session]\nsecurity_mode = \"production\"\n", wantErr: session.ErrTLSRequired},
		{name: "bad security mode", body: "[server]\npassword = \"pw\"\n", env: map[string]string{"OTTDCTL_SECURITY_MODE": "paranoid"}, wantErr: session.ErrInvalidSecurityMode},
		{name: "slack without tokens", body: "[server]\npassword = \"pw\"\n[slack]\nenabled = true\n", wantErr: slack.ErrAppTokenRequired},
		{name: "store without path", body: "[server]\npassword = \"pw\"\n[store]\nenabled = true\npath = \"\"\n", wantErr: ErrStorePathRequired},
		{name: "status without addr", body: "[server]\npassword = \"pw\"\n[status]\nenabled = true\naddr = \"\"\n", wantErr: ErrStatusAddrMissing},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := tc.env
			if env == nil {
				env = map[string]string{}
			}
			_, err := load(writeConfig(t, tc.body), env)
			if err == nil {
				t.Fatalf("expected error")
			}
			if tc.wantErr != nil && !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
			if tc.wantMsg != "" && !strings.Contains(err.Error(), tc.wantMsg) {
				t.Fatalf("expected %q in %v", tc.wantMsg, err)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	testlog.Start(t)
	if _, err := load(filepath.Join(t.TempDir(), "missing.toml"), map[string]string{}); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestParseFrequencies(t *testing.T) {
	testlog.Start(t)
	tests := []struct {
		in   string
		want protocol.Frequency
		ok   bool
	}{
		{"none", protocol.FreqNone, true},
		{"Daily", protocol.FreqDaily, true},
		{"poll | quarterly", protocol.FreqPoll | protocol.FreqQuarterly, true},
		{"automatic", protocol.FreqAutomatic, true},
		{"fortnightly", protocol.FreqNone, false},
	}
	for _, tc := range tests {
		got, err := ParseFrequencies(tc.in)
		if (err == nil) != tc.ok || got != tc.want {
			t.Fatalf("ParseFrequencies(%q)=(%v,%v) want %v ok=%v", tc.in, got, err, tc.want, tc.ok)
		}
	}
}
