package config

import (
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/ottdctl/internal/admin"
	"github.com/danmuck/ottdctl/internal/bot"
	"github.com/danmuck/ottdctl/internal/protocol/session"
)

// fileConfig mirrors ottdctl.toml. Durations are strings such as "15s".
type fileConfig struct {
	Server  serverFile  `toml:"server"`
	Session sessionFile `toml:"session"`
	Updates updatesFile `toml:"updates"`
	Bot     botFile     `toml:"bot"`
	Slack   slackFile   `toml:"slack"`
	Store   storeFile   `toml:"store"`
	Status  statusFile  `toml:"status"`
}

type serverFile struct {
	Name          string `toml:"name" comment:"label for logs and metrics; defaults to addr"`
	Addr          string `toml:"addr" comment:"admin port of the game server"`
	Password      string `toml:"password" comment:"admin_password from openttd.cfg"`
	ClientName    string `toml:"client_name"`
	ClientVersion string `toml:"client_version"`
}

type tlsFile struct {
	Enabled            bool   `toml:"enabled"`
	ServerName         string `toml:"server_name"`
	CAFile             string `toml:"ca_file"`
	CertFile           string `toml:"cert_file"`
	KeyFile            string `toml:"key_file"`
	Mutual             bool   `toml:"mutual"`
	InsecureSkipVerify bool   `toml:"insecure_skip_verify"`
}

type sessionFile struct {
	ConnectTimeout    string  `toml:"connect_timeout"`
	HandshakeTimeout  string  `toml:"handshake_timeout"`
	WriteTimeout      string  `toml:"write_timeout"`
	HeartbeatInterval string  `toml:"heartbeat_interval" comment:"negative disables pings"`
	SessionDeadAfter  string  `toml:"session_dead_after" comment:"0s disables the silence watchdog"`
	BackoffLong       string  `toml:"backoff_long"`
	BackoffShort      string  `toml:"backoff_short"`
	BackoffDefault    string  `toml:"backoff_default"`
	SecurityMode      string  `toml:"security_mode" comment:"development or production"`
	TLS               tlsFile `toml:"tls"`
}

type updatesFile struct {
	Date              string `toml:"date" comment:"none, poll, daily, weekly, monthly, quarterly, annually; join with |"`
	CompanyEconomy    string `toml:"company_economy"`
	CompanyStatistics string `toml:"company_statistics"`
	ClientInfo        bool   `toml:"client_info"`
	CompanyInfo       bool   `toml:"company_info"`
	CommandNames      bool   `toml:"command_names"`
	Chat              bool   `toml:"chat"`
	Console           bool   `toml:"console"`
	CommandLogs       bool   `toml:"command_logs"`
	GameScript        bool   `toml:"gamescript"`
}

type botFile struct {
	Enabled        bool              `toml:"enabled"`
	WelcomeMessage string            `toml:"welcome_message" comment:"${USERNAME}, ${COUNTRY} and ${CITY} are replaced per client"`
	CountryWelcome map[string]string `toml:"country_welcome" comment:"welcome_message per ISO country code, needs geoip"`
	HelpMessage    string            `toml:"help_message"`
	HallOfFameLink string            `toml:"hall_of_fame_link"`
	TopLimit       int               `toml:"top_limit"`
	ReplyInterval  string            `toml:"reply_interval"`
	ReplyBurst     int               `toml:"reply_burst"`
	ResetWindow    string            `toml:"reset_window"`
	GeoIP          bool              `toml:"geoip" comment:"look up country and city of joining clients"`
	GeoIPURL       string            `toml:"geoip_url"`
	GeoIPTimeout   string            `toml:"geoip_timeout"`
}

type slackFile struct {
	Enabled       bool   `toml:"enabled"`
	AppToken      string `toml:"app_token" comment:"xapp- token; prefer OTTDCTL_SLACK_APP_TOKEN"`
	BotToken      string `toml:"bot_token" comment:"xoxb- token; prefer OTTDCTL_SLACK_BOT_TOKEN"`
	Channel       string `toml:"channel" comment:"channel id bridged with the game chat"`
	APIURL        string `toml:"api_url"`
	PostInterval  string `toml:"post_interval"`
	PostBurst     int    `toml:"post_burst"`
	NotifyChat    bool   `toml:"notify_chat"`
	NotifyClient  bool   `toml:"notify_client"`
	NotifyCompany bool   `toml:"notify_company"`
	NotifyServer  bool   `toml:"notify_server"`
}

type storeFile struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

type statusFile struct {
	Enabled     bool     `toml:"enabled"`
	Addr        string   `toml:"addr"`
	Token       string   `toml:"token" comment:"bearer token for POST routes; empty leaves them open"`
	CORSOrigins []string `toml:"cors_origins"`
}

func overlayFile(cfg *Config, raw fileConfig, meta toml.MetaData) error {
	o := &overlay{meta: meta}

	s := raw.Server
	o.str(&cfg.Admin.Name, s.Name, "server", "name")
	o.str(&cfg.Admin.Address, s.Addr, "server", "addr")
	if o.defined([]string{"server", "password"}) {
		cfg.Admin.Password = s.Password
	}
	o.str(&cfg.Admin.ClientName, s.ClientName, "server", "client_name")
	o.str(&cfg.Admin.ClientVersion, s.ClientVersion, "server", "client_version")

	sess := raw.Session
	dst := &cfg.Admin.Session
	o.duration(&dst.ConnectTimeout, sess.ConnectTimeout, "session", "connect_timeout")
	o.duration(&dst.HandshakeTimeout, sess.HandshakeTimeout, "session", "handshake_timeout")
	o.duration(&dst.WriteTimeout, sess.WriteTimeout, "session", "write_timeout")
	o.duration(&dst.HeartbeatInterval, sess.HeartbeatInterval, "session", "heartbeat_interval")
	o.duration(&dst.SessionDeadAfter, sess.SessionDeadAfter, "session", "session_dead_after")
	o.duration(&dst.Backoff.Long, sess.BackoffLong, "session", "backoff_long")
	o.duration(&dst.Backoff.Short, sess.BackoffShort, "session", "backoff_short")
	o.duration(&dst.Backoff.Default, sess.BackoffDefault, "session", "backoff_default")
	if o.defined([]string{"session", "security_mode"}) {
		dst.SecurityMode = session.NormalizeSecurityMode(session.SecurityMode(sess.SecurityMode))
	}
	t := sess.TLS
	o.boolean(&dst.TLS.Enabled, t.Enabled, "session", "tls", "enabled")
	o.str(&dst.TLS.ServerName, t.ServerName, "session", "tls", "server_name")
	o.str(&dst.TLS.CAFile, t.CAFile, "session", "tls", "ca_file")
	o.str(&dst.TLS.CertFile, t.CertFile, "session", "tls", "cert_file")
	o.str(&dst.TLS.KeyFile, t.KeyFile, "session", "tls", "key_file")
	o.boolean(&dst.TLS.Mutual, t.Mutual, "session", "tls", "mutual")
	o.boolean(&dst.TLS.InsecureSkipVerify, t.InsecureSkipVerify, "session", "tls", "insecure_skip_verify")

	u := raw.Updates
	o.frequency(&cfg.Updates.Date, u.Date, "updates", "date")
	o.frequency(&cfg.Updates.CompanyEconomy, u.CompanyEconomy, "updates", "company_economy")
	o.frequency(&cfg.Updates.CompanyStatistics, u.CompanyStatistics, "updates", "company_statistics")
	o.boolean(&cfg.Updates.ClientInfo, u.ClientInfo, "updates", "client_info")
	o.boolean(&cfg.Updates.CompanyInfo, u.CompanyInfo, "updates", "company_info")
	o.boolean(&cfg.Updates.CommandNames, u.CommandNames, "updates", "command_names")
	o.boolean(&cfg.Updates.Chat, u.Chat, "updates", "chat")
	o.boolean(&cfg.Updates.Console, u.Console, "updates", "console")
	o.boolean(&cfg.Updates.CommandLogs, u.CommandLogs, "updates", "command_logs")
	o.boolean(&cfg.Updates.GameScript, u.GameScript, "updates", "gamescript")

	b := raw.Bot
	o.boolean(&cfg.Bot.Enabled, b.Enabled, "bot", "enabled")
	o.str(&cfg.Bot.WelcomeMessage, b.WelcomeMessage, "bot", "welcome_message")
	o.str(&cfg.Bot.HelpMessage, b.HelpMessage, "bot", "help_message")
	o.str(&cfg.Bot.HallOfFameLink, b.HallOfFameLink, "bot", "hall_of_fame_link")
	o.integer(&cfg.Bot.TopLimit, b.TopLimit, "bot", "top_limit")
	o.duration(&cfg.Bot.ReplyInterval, b.ReplyInterval, "bot", "reply_interval")
	o.integer(&cfg.Bot.ReplyBurst, b.ReplyBurst, "bot", "reply_burst")
	o.duration(&cfg.Bot.ResetWindow, b.ResetWindow, "bot", "reset_window")
	o.boolean(&cfg.Bot.GeoIP, b.GeoIP, "bot", "geoip")
	o.str(&cfg.Bot.GeoIPURL, b.GeoIPURL, "bot", "geoip_url")
	o.duration(&cfg.Bot.GeoIPTimeout, b.GeoIPTimeout, "bot", "geoip_timeout")
	if len(b.CountryWelcome) > 0 {
		cfg.Bot.CountryWelcome = make(map[string]string, len(b.CountryWelcome))
		for code, msg := range b.CountryWelcome {
			cfg.Bot.CountryWelcome[strings.ToUpper(strings.TrimSpace(code))] = msg
		}
	}

	sl := raw.Slack
	o.boolean(&cfg.Slack.Enabled, sl.Enabled, "slack", "enabled")
	o.str(&cfg.Slack.AppToken, sl.AppToken, "slack", "app_token")
	o.str(&cfg.Slack.BotToken, sl.BotToken, "slack", "bot_token")
	o.str(&cfg.Slack.Channel, sl.Channel, "slack", "channel")
	o.str(&cfg.Slack.APIURL, sl.APIURL, "slack", "api_url")
	o.duration(&cfg.Slack.PostInterval, sl.PostInterval, "slack", "post_interval")
	o.integer(&cfg.Slack.PostBurst, sl.PostBurst, "slack", "post_burst")
	o.boolean(&cfg.Slack.NotifyChat, sl.NotifyChat, "slack", "notify_chat")
	o.boolean(&cfg.Slack.NotifyClient, sl.NotifyClient, "slack", "notify_client")
	o.boolean(&cfg.Slack.NotifyCompany, sl.NotifyCompany, "slack", "notify_company")
	o.boolean(&cfg.Slack.NotifyServer, sl.NotifyServer, "slack", "notify_server")

	o.boolean(&cfg.Store.Enabled, raw.Store.Enabled, "store", "enabled")
	o.str(&cfg.Store.Path, raw.Store.Path, "store", "path")

	st := raw.Status
	o.boolean(&cfg.Status.Enabled, st.Enabled, "status", "enabled")
	o.str(&cfg.Status.Addr, st.Addr, "status", "addr")
	o.str(&cfg.Status.Token, st.Token, "status", "token")
	if o.defined([]string{"status", "cors_origins"}) {
		cfg.Status.CORSOrigins = normalizeList(st.CORSOrigins)
	}
	return o.err
}

// fileOf renders cfg back into the file layout.
func fileOf(cfg Config) fileConfig {
	a := cfg.Admin
	s := a.Session
	return fileConfig{
		Server: serverFile{
			Name:          a.Name,
			Addr:          a.Address,
			Password:      a.Password,
			ClientName:    a.ClientName,
			ClientVersion: a.ClientVersion,
		},
		Session: sessionFile{
			ConnectTimeout:    s.ConnectTimeout.String(),
			HandshakeTimeout:  s.HandshakeTimeout.String(),
			WriteTimeout:      s.WriteTimeout.String(),
			HeartbeatInterval: s.HeartbeatInterval.String(),
			SessionDeadAfter:  s.SessionDeadAfter.String(),
			BackoffLong:       s.Backoff.Long.String(),
			BackoffShort:      s.Backoff.Short.String(),
			BackoffDefault:    s.Backoff.Default.String(),
			SecurityMode:      string(s.SecurityMode),
			TLS: tlsFile{
				Enabled:            s.TLS.Enabled,
				ServerName:         s.TLS.ServerName,
				CAFile:             s.TLS.CAFile,
				CertFile:           s.TLS.CertFile,
				KeyFile:            s.TLS.KeyFile,
				Mutual:             s.TLS.Mutual,
				InsecureSkipVerify: s.TLS.InsecureSkipVerify,
			},
		},
		Updates: updatesFile{
			Date:              cfg.Updates.Date.String(),
			CompanyEconomy:    cfg.Updates.CompanyEconomy.String(),
			CompanyStatistics: cfg.Updates.CompanyStatistics.String(),
			ClientInfo:        cfg.Updates.ClientInfo,
			CompanyInfo:       cfg.Updates.CompanyInfo,
			CommandNames:      cfg.Updates.CommandNames,
			Chat:              cfg.Updates.Chat,
			Console:           cfg.Updates.Console,
			CommandLogs:       cfg.Updates.CommandLogs,
			GameScript:        cfg.Updates.GameScript,
		},
		Bot: botFile{
			Enabled:        cfg.Bot.Enabled,
			WelcomeMessage: cfg.Bot.WelcomeMessage,
			HelpMessage:    cfg.Bot.HelpMessage,
			HallOfFameLink: cfg.Bot.HallOfFameLink,
			TopLimit:       cfg.Bot.TopLimit,
			ReplyInterval:  cfg.Bot.ReplyInterval.String(),
			ReplyBurst:     cfg.Bot.ReplyBurst,
			ResetWindow:    cfg.Bot.ResetWindow.String(),
			CountryWelcome: cfg.Bot.CountryWelcome,
			GeoIP:          cfg.Bot.GeoIP,
			GeoIPURL:       cfg.Bot.GeoIPURL,
			GeoIPTimeout:   cfg.Bot.GeoIPTimeout.String(),
		},
		Slack: slackFile{
			Enabled:       cfg.Slack.Enabled,
			AppToken:      cfg.Slack.AppToken,
			BotToken:      cfg.Slack.BotToken,
			Channel:       cfg.Slack.Channel,
			APIURL:        cfg.Slack.APIURL,
			PostInterval:  cfg.Slack.PostInterval.String(),
			PostBurst:     cfg.Slack.PostBurst,
			NotifyChat:    cfg.Slack.NotifyChat,
			NotifyClient:  cfg.Slack.NotifyClient,
			NotifyCompany: cfg.Slack.NotifyCompany,
			NotifyServer:  cfg.Slack.NotifyServer,
		},
		Store: storeFile{Enabled: cfg.Store.Enabled, Path: cfg.Store.Path},
		Status: statusFile{
			Enabled:     cfg.Status.Enabled,
			Addr:        cfg.Status.Addr,
			Token:       cfg.Status.Token,
			CORSOrigins: cfg.Status.CORSOrigins,
		},
	}
}

// Filter wraps next with the configured Slack event filter.
func (c SlackConfig) Filter(next bot.Notifier) bot.Filter {
	return bot.Filter{
		Next:    next,
		Chat:    c.NotifyChat,
		Client:  c.NotifyClient,
		Company: c.NotifyCompany,
		Server:  c.NotifyServer,
	}
}

// Apply sets the subscriptions on c. Call it before Start so the first
// handshake replays them.
func (u Updates) Apply(c *admin.Client) error {
	steps := []func() error{
		func() error { return c.SetUpdateDates(u.Date) },
		func() error { return c.SetUpdateCompanyEconomy(u.CompanyEconomy) },
		func() error { return c.SetUpdateCompanyStatistics(u.CompanyStatistics) },
		func() error { return c.SetUpdateClientInfos(u.ClientInfo) },
		func() error { return c.SetUpdateCompanyInfos(u.CompanyInfo) },
		func() error { return c.SetUpdateCommandNames(u.CommandNames) },
		func() error { return c.SetDeliveryChat(u.Chat) },
		func() error { return c.SetDeliveryConsole(u.Console) },
		func() error { return c.SetDeliveryCommandLogs(u.CommandLogs) },
		func() error { return c.SetDeliveryGameScripts(u.GameScript) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

func normalizeList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
