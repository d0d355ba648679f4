package session

import "time"

// BackoffConfig holds the fixed retry delays per failure class.
type BackoffConfig struct {
	// Long applies to unknown host, refused connections, I/O errors and a
	// rejected password.
	Long time.Duration
	// Short applies when the server closed the stream cleanly.
	Short   time.Duration
	Default time.Duration
}

type SecurityMode string

const (
	SecurityModeDevelopment SecurityMode = "development"
	SecurityModeProduction  SecurityMode = "production"
)

// TLSConfig describes an optional TLS wrapper in front of the admin port,
// e.g. a stunnel sidecar next to the game server.
type TLSConfig struct {
	Enabled            bool
	ServerName         string
	CAFile             string
	CertFile           string
	KeyFile            string
	Mutual             bool
	InsecureSkipVerify bool
}

// Config defines transport/session reliability defaults.
type Config struct {
	ConnectTimeout    time.Duration
	HandshakeTimeout  time.Duration
	WriteTimeout      time.Duration
	HeartbeatInterval time.Duration
	// SessionDeadAfter bounds silence on an active session. Zero disables it.
	SessionDeadAfter time.Duration
	Backoff          BackoffConfig
	SecurityMode     SecurityMode
	TLS              TLSConfig
}

func DefaultConfig() Config {
	return Config{
		ConnectTimeout:    5 * time.Second,
		HandshakeTimeout:  10 * time.Second,
		WriteTimeout:      15 * time.Second,
		HeartbeatInterval: 30 * time.Second,
		SessionDeadAfter:  0,
		Backoff: BackoffConfig{
			Long:    15 * time.Second,
			Short:   time.Second,
			Default: 100 * time.Millisecond,
		},
		SecurityMode: SecurityModeDevelopment,
	}
}

// WithDefaults fills zero durations from DefaultConfig. Negative heartbeat or
// dead-after values disable those features.
func (c Config) WithDefaults() Config {
	def := DefaultConfig()
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = def.ConnectTimeout
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = def.HandshakeTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = def.WriteTimeout
	}
	if c.HeartbeatInterval == 0 {
		c.HeartbeatInterval = def.HeartbeatInterval
	}
	if c.Backoff.Long <= 0 {
		c.Backoff.Long = def.Backoff.Long
	}
	if c.Backoff.Short <= 0 {
		c.Backoff.Short = def.Backoff.Short
	}
	if c.Backoff.Default <= 0 {
		c.Backoff.Default = def.Backoff.Default
	}
	if c.SecurityMode == "" {
		c.SecurityMode = def.SecurityMode
	}
	return c
}
