package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"github.com/danmuck/ottdctl/internal/admin"
	"github.com/danmuck/ottdctl/internal/bot"
	"github.com/danmuck/ottdctl/internal/protocol"
	"github.com/danmuck/ottdctl/internal/protocol/session"
	"github.com/danmuck/ottdctl/internal/slack"
	"github.com/danmuck/ottdctl/internal/status"
)

const DefaultPath = "ottdctl.toml"

var (
	ErrPasswordRequired  = errors.New("config: server password required")
	ErrStorePathRequired = errors.New("config: store path required when store is enabled")
	ErrStatusAddrMissing = errors.New("config: status addr required when status is enabled")
)

// Config is the resolved runtime configuration of one ottdctl process.
type Config struct {
	Admin   admin.Config
	Updates Updates
	Bot     BotConfig
	Slack   SlackConfig
	Store   StoreConfig
	Status  StatusConfig
}

// Updates is the initial subscription set applied before Start.
type Updates struct {
	Date              protocol.Frequency
	CompanyEconomy    protocol.Frequency
	CompanyStatistics protocol.Frequency
	ClientInfo        bool
	CompanyInfo       bool
	CommandNames      bool
	Chat              bool
	Console           bool
	CommandLogs       bool
	GameScript        bool
}

type BotConfig struct {
	Enabled bool
	bot.Config
}

type SlackConfig struct {
	Enabled bool
	slack.Config
	NotifyChat    bool
	NotifyClient  bool
	NotifyCompany bool
	NotifyServer  bool
}

type StoreConfig struct {
	Enabled bool
	Path    string
}

type StatusConfig struct {
	Enabled bool
	status.Config
}

func Default() Config {
	return Config{
		Admin: admin.DefaultConfig(),
		Updates: Updates{
			Date:              protocol.FreqDaily,
			CompanyEconomy:    protocol.FreqQuarterly,
			CompanyStatistics: protocol.FreqQuarterly,
			ClientInfo:        true,
			CompanyInfo:       true,
			CommandNames:      false,
			Chat:              true,
		},
		Bot:   BotConfig{Enabled: true, Config: bot.DefaultConfig()},
		Slack: SlackConfig{Config: slack.DefaultConfig(), NotifyChat: true, NotifyClient: true, NotifyCompany: true, NotifyServer: true},
		Store: StoreConfig{Path: "ottdctl.db"},
		Status: StatusConfig{Config: status.Config{
			Addr:        status.DefaultAddr,
			CORSOrigins: []string{"http://localhost:3000"},
		}},
	}
}

// envOverrides are applied after the file. Unset variables stay nil.
type envOverrides struct {
	Addr          *string `env:"OTTDCTL_ADDR"`
	Password      *string `env:"OTTDCTL_PASSWORD"`
	SecurityMode  *string `env:"OTTDCTL_SECURITY_MODE"`
	SlackAppToken *string `env:"OTTDCTL_SLACK_APP_TOKEN"`
	SlackBotToken *string `env:"OTTDCTL_SLACK_BOT_TOKEN"`
	SlackChannel  *string `env:"OTTDCTL_SLACK_CHANNEL"`
	StorePath     *string `env:"OTTDCTL_STORE_PATH"`
	StatusAddr    *string `env:"OTTDCTL_STATUS_ADDR"`
	StatusToken   *string `env:"OTTDCTL_STATUS_TOKEN"`
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. An empty path skips the file.
func Load(path string) (Config, error) {
	return load(path, nil)
}

func load(path string, environ map[string]string) (Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) != "" {
		var raw fileConfig
		meta, err := toml.DecodeFile(path, &raw)
		if err != nil {
			return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
		}
		if err := overlayFile(&cfg, raw, meta); err != nil {
			return Config{}, fmt.Errorf("config parse failed (%s): %w", path, err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return Config{}, fmt.Errorf("config parse failed (%s): unknown key %s", path, undecoded[0])
		}
	}
	if err := applyEnv(&cfg, environ); err != nil {
		return Config{}, err
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config, environ map[string]string) error {
	var o envOverrides
	if err := env.ParseWithOptions(&o, env.Options{Environment: environ}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = strings.TrimSpace(*v)
		}
	}
	set(&cfg.Admin.Address, o.Addr)
	if o.Password != nil {
		cfg.Admin.Password = *o.Password
	}
	if o.SecurityMode != nil {
		cfg.Admin.Session.SecurityMode = session.NormalizeSecurityMode(session.SecurityMode(*o.SecurityMode))
	}
	set(&cfg.Slack.AppToken, o.SlackAppToken)
	set(&cfg.Slack.BotToken, o.SlackBotToken)
	set(&cfg.Slack.Channel, o.SlackChannel)
	set(&cfg.Store.Path, o.StorePath)
	set(&cfg.Status.Addr, o.StatusAddr)
	set(&cfg.Status.Token, o.StatusToken)
	return nil
}

func Validate(cfg Config) error {
	if strings.TrimSpace(cfg.Admin.Address) == "" {
		return admin.ErrAddressRequired
	}
	if cfg.Admin.Password == "" {
		return ErrPasswordRequired
	}
	if err := cfg.Admin.Session.WithDefaults().ValidateClientTransport(); err != nil {
		return fmt.Errorf("config session invalid: %w", err)
	}
	if cfg.Slack.Enabled {
		if err := cfg.Slack.Validate(); err != nil {
			return fmt.Errorf("config slack invalid: %w", err)
		}
	}
	if cfg.Store.Enabled && strings.TrimSpace(cfg.Store.Path) == "" {
		return ErrStorePathRequired
	}
	if cfg.Status.Enabled && strings.TrimSpace(cfg.Status.Addr) == "" {
		return ErrStatusAddrMissing
	}
	if cfg.Bot.TopLimit < 0 {
		return fmt.Errorf("config bot invalid: top_limit must not be negative")
	}
	return nil
}

// overlay copies file values onto defaults for every key the file sets.
type overlay struct {
	meta toml.MetaData
	err  error
}

func (o *overlay) defined(key []string) bool {
	return o.err == nil && o.meta.IsDefined(key...)
}

func (o *overlay) str(dst *string, v string, key ...string) {
	if o.defined(key) {
		*dst = strings.TrimSpace(v)
	}
}

func (o *overlay) boolean(dst *bool, v bool, key ...string) {
	if o.defined(key) {
		*dst = v
	}
}

func (o *overlay) integer(dst *int, v int, key ...string) {
	if o.defined(key) {
		*dst = v
	}
}

func (o *overlay) duration(dst *time.Duration, v string, key ...string) {
	if !o.defined(key) {
		return
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		o.err = fmt.Errorf("parse %s: %w", strings.Join(key, "."), err)
		return
	}
	*dst = d
}

func (o *overlay) frequency(dst *protocol.Frequency, v string, key ...string) {
	if !o.defined(key) {
		return
	}
	f, err := ParseFrequencies(v)
	if err != nil {
		o.err = fmt.Errorf("parse %s: %w", strings.Join(key, "."), err)
		return
	}
	*dst = f
}

// ParseFrequencies parses cadence names joined by "|", e.g. "poll|weekly".
func ParseFrequencies(s string) (protocol.Frequency, error) {
	var out protocol.Frequency
	for _, part := range strings.Split(s, "|") {
		f, err := protocol.ParseFrequency(strings.ToLower(strings.TrimSpace(part)))
		if err != nil {
			return protocol.FreqNone, err
		}
		out |= f
	}
	return out, nil
}
