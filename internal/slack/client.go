package slack

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/danmuck/ottdctl/internal/admin"
	"github.com/danmuck/ottdctl/internal/bot"
	"github.com/danmuck/ottdctl/internal/gamestate"
	"github.com/danmuck/ottdctl/internal/observability"
	"github.com/danmuck/ottdctl/internal/protocol"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

var (
	ErrClosed         = errors.New("slack: client is closed")
	ErrAlreadyStarted = errors.New("slack: client already started")
)

// Game is the part of the admin client the bridge drives.
type Game interface {
	bot.Executor
	SendExternalChat(source string, colour protocol.TextColour, user, message string) error
}

// State answers the status slash commands.
type State interface {
	Snapshot() gamestate.Snapshot
}

// Client bridges one Slack channel with one game over Socket Mode.
type Client struct {
	admin.BaseServerListener

	cfg     Config
	api     apiClient
	game    Game
	state   State
	limiter *rate.Limiter
	dialer  *websocket.Dialer

	namesMu sync.Mutex
	names   map[string]string

	rconMu      sync.Mutex
	rconPending map[string]int
	rconLines   []string

	lifeMu  sync.Mutex
	started bool
	closed  bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// socketEnvelope is one Socket Mode frame.
type socketEnvelope struct {
	EnvelopeID string          `json:"envelope_id"`
	Type       string          `json:"type"`
	Reason     string          `json:"reason,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

type socketAck struct {
	EnvelopeID string `json:"envelope_id"`
	Payload    any    `json:"payload,omitempty"`
}

type messageEvent struct {
	Type    string `json:"type"`
	Subtype string `json:"subtype"`
	Channel string `json:"channel"`
	User    string `json:"user"`
	BotID   string `json:"bot_id"`
	Text    string `json:"text"`
}

type eventsAPIPayload struct {
	Type  string       `json:"type"`
	Event messageEvent `json:"event"`
}

type slashPayload struct {
	Command   string `json:"command"`
	Text      string `json:"text"`
	ChannelID string `json:"channel_id"`
	UserName  string `json:"user_name"`
}

type slashResponse struct {
	ResponseType string `json:"response_type"`
	Text         string `json:"text"`
}

func New(cfg Config, game Game, state State) (*Client, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Client{
		cfg:     cfg,
		api:     apiClient{base: cfg.APIURL, http: &http.Client{Timeout: cfg.HTTPTimeout}},
		game:    game,
		state:   state,
		limiter: rate.NewLimiter(rate.Every(cfg.PostInterval), cfg.PostBurst),
		dialer:  &websocket.Dialer{HandshakeTimeout: cfg.HTTPTimeout},
		names:   make(map[string]string),

		rconPending: make(map[string]int),
	}, nil
}

// Attach registers the rcon relay on c.
func (c *Client) Attach(a *admin.Client) (detach func()) {
	return a.AddServerListener(c)
}

// Notify posts text to the bridged channel. Posting waits for the
// token bucket so bursts are spread out.
func (c *Client) Notify(ctx context.Context, kind bot.EventKind, text string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		observability.RecordNotification("slack", "throttled")
		return err
	}
	if err := c.api.postMessage(ctx, c.cfg.BotToken, c.cfg.Channel, text); err != nil {
		observability.RecordNotification("slack", "error")
		return err
	}
	observability.RecordNotification("slack", "ok")
	log.Debug().Msgf("slack.Client posted kind=%s", kind)
	return nil
}

func (c *Client) post(text string) {
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.HTTPTimeout)
	defer cancel()
	if err := c.Notify(ctx, bot.EventServer, text); err != nil {
		log.Warn().Msgf("slack.Client post err=%v", err)
	}
}

func (c *Client) Start(ctx context.Context) error {
	c.lifeMu.Lock()
	defer c.lifeMu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if c.started {
		return ErrAlreadyStarted
	}
	c.started = true
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})
	go c.runLoop(runCtx)
	return nil
}

func (c *Client) Close() error {
	c.lifeMu.Lock()
	if c.closed {
		c.lifeMu.Unlock()
		return nil
	}
	c.closed = true
	cancel, done := c.cancel, c.done
	c.lifeMu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	return nil
}

func (c *Client) runLoop(ctx context.Context) {
	defer close(c.done)
	for {
		err := c.runSocket(ctx)
		if ctx.Err() != nil {
			return
		}
		delay := time.Duration(0)
		if err != nil {
			delay = c.cfg.ReconnectDelay
			log.Warn().Msgf("slack.Client socket lost retry_in=%s err=%v", delay, err)
		}
		if delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
		}
	}
}

// runSocket serves one websocket connection. It returns nil when Slack
// asked for a reconnect.
func (c *Client) runSocket(ctx context.Context) error {
	url, err := c.api.openConnection(ctx, c.cfg.AppToken)
	if err != nil {
		return err
	}
	conn, _, err := c.dialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("slack: dial socket: %w", err)
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer func() {
		stop()
		_ = conn.Close()
	}()
	log.Info().Msgf("slack.Client socket connected channel=%s", c.cfg.Channel)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var env socketEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			log.Warn().Msgf("slack.Client bad envelope err=%v", err)
			continue
		}
		switch env.Type {
		case "hello":
			log.Debug().Msg("slack.Client hello")
		case "disconnect":
			log.Info().Msgf("slack.Client disconnect requested reason=%s", env.Reason)
			return nil
		case "events_api":
			if err := ack(conn, env.EnvelopeID, nil); err != nil {
				return err
			}
			c.handleEvent(ctx, env.Payload)
		case "slash_commands":
			reply := c.handleSlash(env.Payload)
			var payload any
			if reply != "" {
				payload = slashResponse{ResponseType: "in_channel", Text: reply}
			}
			if err := ack(conn, env.EnvelopeID, payload); err != nil {
				return err
			}
		default:
			if env.EnvelopeID != "" {
				if err := ack(conn, env.EnvelopeID, nil); err != nil {
					return err
				}
			}
		}
	}
}

func ack(conn *websocket.Conn, envelopeID string, payload any) error {
	if envelopeID == "" {
		return nil
	}
	return conn.WriteJSON(socketAck{EnvelopeID: envelopeID, Payload: payload})
}

func (c *Client) handleEvent(ctx context.Context, raw json.RawMessage) {
	var p eventsAPIPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		log.Warn().Msgf("slack.Client bad event err=%v", err)
		return
	}
	ev := p.Event
	if ev.Type != "message" || ev.Subtype != "" || ev.BotID != "" || ev.Text == "" {
		return
	}
	if ev.Channel != c.cfg.Channel {
		return
	}
	user := c.userName(ctx, ev.User)
	if err := c.game.SendExternalChat(ChatSource, protocol.TextWhite, user, ev.Text); err != nil {
		log.Warn().Msgf("slack.Client relay to game err=%v", err)
	}
}

func (c *Client) userName(ctx context.Context, id string) string {
	if id == "" {
		return "unknown"
	}
	c.namesMu.Lock()
	name, ok := c.names[id]
	c.namesMu.Unlock()
	if ok {
		return name
	}
	name, err := c.api.userName(ctx, c.cfg.BotToken, id)
	if err != nil || name == "" {
		log.Debug().Msgf("slack.Client users.info user=%s err=%v", id, err)
		return id
	}
	c.namesMu.Lock()
	c.names[id] = name
	c.namesMu.Unlock()
	return name
}

func (c *Client) execute(command string) error {
	c.rconMu.Lock()
	c.rconPending[command]++
	c.rconMu.Unlock()
	if err := c.game.ExecuteRCon(command); err != nil {
		c.rconMu.Lock()
		c.release(command)
		c.rconMu.Unlock()
		return err
	}
	return nil
}

// release drops one pending run of command. Callers hold rconMu.
func (c *Client) release(command string) {
	if c.rconPending[command] <= 1 {
		delete(c.rconPending, command)
		return
	}
	c.rconPending[command]--
}

// ExecuteRCon runs a console command whose output is posted back to
// the channel.
func (c *Client) ExecuteRCon(command string) error { return c.execute(command) }

// RconResult buffers output while any bridge command is outstanding. The
// server runs console commands one at a time, so the lines seen before an
// end marker belong to that marker's command.
func (c *Client) RconResult(_ protocol.TextColour, line string) {
	c.rconMu.Lock()
	defer c.rconMu.Unlock()
	if len(c.rconPending) > 0 {
		c.rconLines = append(c.rconLines, line)
	}
}

// RconFinished posts the buffered output when command was issued from
// Slack. Output of commands issued elsewhere is discarded.
func (c *Client) RconFinished(command string) {
	c.rconMu.Lock()
	lines := c.rconLines
	c.rconLines = nil
	_, ours := c.rconPending[command]
	if ours {
		c.release(command)
	}
	c.rconMu.Unlock()
	if !ours {
		return
	}

	text := fmt.Sprintf(":computer: `%s` done", command)
	if len(lines) > 0 {
		text = fmt.Sprintf(":computer: `%s`\n```\n%s\n```", command, strings.Join(lines, "\n"))
	}
	go c.post(text)
}

func (c *Client) Disconnected() {
	c.rconMu.Lock()
	clear(c.rconPending)
	c.rconLines = nil
	c.rconMu.Unlock()
}
