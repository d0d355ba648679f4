package admin

import (
	"bufio"
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/danmuck/ottdctl/internal/observability"
	"github.com/danmuck/ottdctl/internal/protocol"
	"github.com/danmuck/ottdctl/internal/protocol/frame"
	"github.com/danmuck/ottdctl/internal/protocol/session"
	"github.com/rs/zerolog/log"
)

// Client is a long-lived admin port connection that reconnects until closed.
type Client struct {
	cfg Config

	machine *session.Machine
	subs    *session.Subscriptions
	outbox  *session.Outbox
	events  *dispatcher

	connMu sync.Mutex
	conn   net.Conn

	// activeGen is the outbox generation of the session that last became
	// active; subscription changes are pushed against it.
	activeGen atomic.Uint64
	subMu     sync.Mutex
	// activating runs inside activate before the replay is queued. Tests only.
	activating func()

	lifeMu     sync.Mutex
	started    bool
	closed     bool
	cancel     context.CancelFunc
	runDone    chan struct{}
	writerDone chan struct{}
}

func New(cfg Config) (*Client, error) {
	cfg = cfg.withDefaults()
	if cfg.Address == "" {
		return nil, ErrAddressRequired
	}
	if err := cfg.Session.ValidateClientTransport(); err != nil {
		return nil, err
	}
	return &Client{
		cfg:     cfg,
		machine: session.NewMachine(),
		subs:    session.NewSubscriptions(),
		outbox:  session.NewOutbox(),
		events:  &dispatcher{server: cfg.Name},
	}, nil
}

// Name is the label used in logs and metrics.
func (c *Client) Name() string { return c.cfg.Name }

func (c *Client) State() session.State { return c.machine.State() }

// ProtocolVersion is the version announced by the server, 0 until known.
func (c *Client) ProtocolVersion() uint8 { return c.machine.Version() }

func (c *Client) AddServerListener(l ServerListener) (remove func()) {
	return c.events.servers.add(l)
}

func (c *Client) AddCompanyListener(l CompanyListener) (remove func()) {
	return c.events.companies.add(l)
}

func (c *Client) AddClientListener(l ClientListener) (remove func()) {
	return c.events.clients.add(l)
}

func (c *Client) AddChatListener(l ChatListener) (remove func()) {
	return c.events.chats.add(l)
}

// Start launches the run loop and the writer. ctx bounds the client's
// lifetime in addition to Close.
func (c *Client) Start(ctx context.Context) error {
	c.lifeMu.Lock()
	defer c.lifeMu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if c.started {
		return ErrAlreadyStarted
	}
	runCtx, cancel := context.WithCancel(ctx)
	c.started = true
	c.cancel = cancel
	c.runDone = make(chan struct{})
	c.writerDone = make(chan struct{})
	go c.runLoop(runCtx)
	go c.writeLoop(runCtx)
	return nil
}

// Close stops the client for good. It unblocks the reader by closing the
// socket, joins the run loop, and waits for the writer at most
// Session.WriteTimeout. Frames still queued are dropped.
func (c *Client) Close() error {
	c.lifeMu.Lock()
	if c.closed {
		c.lifeMu.Unlock()
		return nil
	}
	c.closed = true
	started := c.started
	cancel := c.cancel
	c.lifeMu.Unlock()

	c.outbox.Close()
	if !started {
		return nil
	}
	cancel()
	c.closeConn()
	<-c.runDone

	timer := time.NewTimer(c.cfg.Session.WriteTimeout)
	defer timer.Stop()
	select {
	case <-c.writerDone:
	case <-timer.C:
		log.Warn().Msgf("admin.Client close server=%q writer did not stop within %s", c.cfg.Name, c.cfg.Session.WriteTimeout)
	}
	return nil
}

func (c *Client) lifecycle() error {
	c.lifeMu.Lock()
	defer c.lifeMu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if !c.started {
		return ErrNotStarted
	}
	return nil
}

func (c *Client) setConn(conn net.Conn) {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	c.conn = conn
}

func (c *Client) currentConn() net.Conn {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	return c.conn
}

func (c *Client) closeConn() {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

func (c *Client) setState() {
	observability.SetSessionState(c.cfg.Name, int(c.machine.State()))
}

func (c *Client) runLoop(ctx context.Context) {
	defer close(c.runDone)
	var attempt int
	for {
		if ctx.Err() != nil {
			return
		}
		attempt++
		err := c.runSession(ctx)
		if ctx.Err() != nil {
			return
		}
		reason := session.Classify(err)
		delay := session.NextBackoffDelay(c.cfg.Session.Backoff, reason)
		observability.RecordReconnect(c.cfg.Name, reason.String())
		log.Warn().Msgf("admin.Client session ended attempt=%d addr=%q reason=%s retry_in=%s err=%v",
			attempt, c.cfg.Address, reason, delay, err)
		if err := sleepContext(ctx, delay); err != nil {
			return
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// runSession drives one connection from dial to loss and returns the cause.
func (c *Client) runSession(ctx context.Context) error {
	if err := c.machine.Connect(); err != nil {
		return err
	}
	c.setState()
	conn, err := c.dial(ctx)
	if err != nil {
		c.machine.Lost()
		c.setState()
		return err
	}

	gen := c.outbox.Generation()
	c.setConn(conn)
	sessCtx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(sessCtx, func() { _ = conn.Close() })
	defer func() {
		cancel()
		stop()
		c.outbox.Hold()
		c.setConn(nil)
		_ = conn.Close()
		c.machine.Lost()
		c.setState()
		c.events.eachServer(func(l ServerListener) { l.Disconnected() })
	}()

	if err := c.machine.Opened(); err != nil {
		return err
	}
	c.setState()
	join := protocol.Join{Password: c.cfg.Password, Name: c.cfg.ClientName, Version: c.cfg.ClientVersion}
	if err := c.pushSession(gen, join); err != nil {
		return err
	}
	log.Info().Msgf("admin.Client connected addr=%q, join queued", c.cfg.Address)

	if c.cfg.Session.HeartbeatInterval > 0 {
		go c.heartbeat(sessCtx, gen)
	}
	return c.readLoop(conn, gen)
}

func (c *Client) dial(ctx context.Context) (net.Conn, error) {
	dialer := net.Dialer{Timeout: c.cfg.Session.ConnectTimeout}
	rawConn, err := dialer.DialContext(ctx, "tcp", c.cfg.Address)
	if err != nil {
		return nil, err
	}
	if !c.cfg.Session.TLS.Enabled {
		return rawConn, nil
	}

	tlsCfg, err := c.clientTLSConfig()
	if err != nil {
		_ = rawConn.Close()
		return nil, err
	}
	conn := tls.Client(rawConn, tlsCfg)
	handshakeCtx, cancel := context.WithTimeout(ctx, c.cfg.Session.HandshakeTimeout)
	defer cancel()
	if err := conn.HandshakeContext(handshakeCtx); err != nil {
		_ = rawConn.Close()
		return nil, err
	}
	return conn, nil
}

func (c *Client) clientTLSConfig() (*tls.Config, error) {
	tc := c.cfg.Session.TLS
	cfg := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: tc.InsecureSkipVerify,
	}

	serverName := strings.TrimSpace(tc.ServerName)
	if serverName == "" {
		host, _, err := net.SplitHostPort(c.cfg.Address)
		if err != nil {
			return nil, err
		}
		serverName = host
	}
	cfg.ServerName = serverName

	if caPath := strings.TrimSpace(tc.CAFile); caPath != "" {
		caPEM, err := os.ReadFile(caPath)
		if err != nil {
			return nil, err
		}
		pool := x509.NewCertPool()
		if ok := pool.AppendCertsFromPEM(caPEM); !ok {
			return nil, fmt.Errorf("admin: parse tls ca bundle: %s", caPath)
		}
		cfg.RootCAs = pool
	}

	if tc.Mutual {
		cert, err := tls.LoadX509KeyPair(tc.CertFile, tc.KeyFile)
		if err != nil {
			return nil, err
		}
		cfg.Certificates = []tls.Certificate{cert}
	}
	return cfg, nil
}

func (c *Client) readLoop(conn net.Conn, gen uint64) error {
	reader := bufio.NewReader(conn)
	_ = conn.SetReadDeadline(time.Now().Add(c.cfg.Session.HandshakeTimeout))
	for {
		f, err := frame.ReadFrame(reader, frame.DefaultLimits())
		if err != nil {
			if errors.Is(err, frame.ErrStreamClosed) {
				return session.ErrClosedByPeer
			}
			return err
		}
		typ := protocol.PacketType(f.Type)
		observability.RecordFrameReceived(c.cfg.Name, typ.String())

		p, err := protocol.DecodeFrame(f, c.machine.Version())
		if err != nil {
			observability.RecordDecodeError(c.cfg.Name, typ.String())
			log.Warn().Msgf("admin.Client drop frame server=%q type=%s len=%d err=%v", c.cfg.Name, typ, len(f.Payload), err)
			continue
		}
		if err := c.handle(conn, gen, p); err != nil {
			return err
		}
	}
}

// handle applies session packets to the state machine and forwards the
// rest to listeners.
func (c *Client) handle(conn net.Conn, gen uint64, p protocol.Packet) error {
	switch p := p.(type) {
	case protocol.ServerProtocol:
		if err := c.machine.ProtocolReceived(p.Version); err != nil {
			log.Warn().Msgf("admin.Client unexpected protocol packet server=%q err=%v", c.cfg.Name, err)
			return nil
		}
		c.setState()
		if p.Version > protocol.SupportedVersion {
			log.Warn().Msgf("admin.Client server=%q speaks protocol %d, newest supported is %d", c.cfg.Name, p.Version, protocol.SupportedVersion)
		}
		c.events.eachServer(func(l ServerListener) { l.Connected(p.Version) })

	case protocol.ServerWelcome:
		activated, err := c.activate(gen)
		if errors.Is(err, session.ErrInvalidTransition) {
			log.Warn().Msgf("admin.Client unexpected welcome server=%q err=%v", c.cfg.Name, err)
			return nil
		}
		if err != nil {
			return err
		}
		if activated {
			if dead := c.cfg.Session.SessionDeadAfter; dead > 0 {
				_ = conn.SetReadDeadline(time.Now().Add(dead))
			} else {
				_ = conn.SetReadDeadline(time.Time{})
			}
			log.Info().Msgf("admin.Client active server=%q name=%q version=%d", c.cfg.Name, p.Name, c.machine.Version())
		}
		c.outbox.Release()
		info := serverInfoFrom(p)
		c.events.eachServer(func(l ServerListener) { l.ServerInfoReceived(info) })

	case protocol.ServerError:
		c.events.eachServer(func(l ServerListener) { l.ServerError(p.Code) })
		if p.Code == protocol.ErrCodeWrongPassword {
			c.events.eachServer(func(l ServerListener) { l.WrongPassword() })
			return fmt.Errorf("admin: server %q: %w", c.cfg.Name, session.ErrWrongPassword)
		}
		log.Warn().Msgf("admin.Client server=%q error code=%s", c.cfg.Name, p.Code)

	default:
		if dead := c.cfg.Session.SessionDeadAfter; dead > 0 && c.machine.State() == session.StateActive {
			_ = conn.SetReadDeadline(time.Now().Add(dead))
		}
		c.events.dispatch(p)
	}
	return nil
}

// activate moves the session to Active, queues the subscription replay and
// publishes gen as the active generation. subMu keeps subscribe from
// observing Active before gen is published.
func (c *Client) activate(gen uint64) (activated bool, err error) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	activated, err = c.machine.WelcomeReceived()
	if err != nil {
		return false, err
	}
	if activated {
		c.setState()
	}
	if c.activating != nil {
		c.activating()
	}
	if err := c.replaySubscriptions(gen); err != nil {
		return activated, err
	}
	c.activeGen.Store(gen)
	return activated, nil
}

func (c *Client) replaySubscriptions(gen uint64) error {
	for _, sub := range c.subs.ReplayAll() {
		if err := c.pushSession(gen, sub); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) pushSession(gen uint64, p protocol.Packet) error {
	buf, err := protocol.Encode(p, c.machine.Version())
	if err != nil {
		return err
	}
	return c.outbox.PushSession(gen, buf)
}

func (c *Client) heartbeat(ctx context.Context, gen uint64) {
	ticker := time.NewTicker(c.cfg.Session.HeartbeatInterval)
	defer ticker.Stop()
	var seq uint32
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if c.machine.State() != session.StateActive {
				continue
			}
			seq++
			if err := c.pushSession(gen, protocol.Ping{Payload: seq}); err != nil {
				return
			}
		}
	}
}
