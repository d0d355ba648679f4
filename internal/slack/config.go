package slack

import (
	"errors"
	"strings"
	"time"
)

const (
	DefaultAPIURL         = "https://slack.com/api/"
	DefaultPostInterval   = time.Second
	DefaultPostBurst      = 3
	DefaultHTTPTimeout    = 10 * time.Second
	DefaultReconnectDelay = 5 * time.Second

	// ChatSource is the ExternalChat source shown in game.
	ChatSource = "slack"
)

var (
	ErrAppTokenRequired = errors.New("slack: app token is required")
	ErrBotTokenRequired = errors.New("slack: bot token is required")
	ErrChannelRequired  = errors.New("slack: channel is required")
)

type Config struct {
	// AppToken (xapp-) opens Socket Mode connections.
	AppToken string
	// BotToken (xoxb-) posts messages and resolves user names.
	BotToken string
	// Channel is the channel id bridged with the game chat.
	Channel string
	APIURL  string

	PostInterval   time.Duration
	PostBurst      int
	HTTPTimeout    time.Duration
	ReconnectDelay time.Duration
}

func DefaultConfig() Config {
	return Config{
		APIURL:         DefaultAPIURL,
		PostInterval:   DefaultPostInterval,
		PostBurst:      DefaultPostBurst,
		HTTPTimeout:    DefaultHTTPTimeout,
		ReconnectDelay: DefaultReconnectDelay,
	}
}

func (c Config) withDefaults() Config {
	c.AppToken = strings.TrimSpace(c.AppToken)
	c.BotToken = strings.TrimSpace(c.BotToken)
	c.Channel = strings.TrimSpace(c.Channel)
	if strings.TrimSpace(c.APIURL) == "" {
		c.APIURL = DefaultAPIURL
	}
	if !strings.HasSuffix(c.APIURL, "/") {
		c.APIURL += "/"
	}
	if c.PostInterval <= 0 {
		c.PostInterval = DefaultPostInterval
	}
	if c.PostBurst <= 0 {
		c.PostBurst = DefaultPostBurst
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = DefaultHTTPTimeout
	}
	if c.ReconnectDelay <= 0 {
		c.ReconnectDelay = DefaultReconnectDelay
	}
	return c
}

func (c Config) Validate() error {
	switch {
	case c.AppToken == "":
		return ErrAppTokenRequired
	case c.BotToken == "":
		return ErrBotTokenRequired
	case c.Channel == "":
		return ErrChannelRequired
	}
	return nil
}
