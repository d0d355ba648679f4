package admin

import (
	"strings"

	"github.com/danmuck/ottdctl/internal/protocol/session"
)

const (
	DefaultAddress       = "127.0.0.1:3977"
	DefaultClientName    = "ottdctl"
	DefaultClientVersion = "1.4"
)

// Config describes one admin connection.
type Config struct {
	// Name labels logs and metrics; it defaults to Address.
	Name          string
	Address       string
	Password      string
	ClientName    string
	ClientVersion string
	Session       session.Config
}

func DefaultConfig() Config {
	return Config{
		Address:       DefaultAddress,
		ClientName:    DefaultClientName,
		ClientVersion: DefaultClientVersion,
		Session:       session.DefaultConfig(),
	}
}

func (c Config) withDefaults() Config {
	c.Address = strings.TrimSpace(c.Address)
	if strings.TrimSpace(c.ClientName) == "" {
		c.ClientName = DefaultClientName
	}
	if strings.TrimSpace(c.ClientVersion) == "" {
		c.ClientVersion = DefaultClientVersion
	}
	if strings.TrimSpace(c.Name) == "" {
		c.Name = c.Address
	}
	c.Session = c.Session.WithDefaults()
	return c
}
