package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/danmuck/ottdctl/internal/admin"
	"github.com/danmuck/ottdctl/internal/gamestate"
	"github.com/danmuck/ottdctl/internal/protocol"
	"github.com/danmuck/ottdctl/internal/store"
	"github.com/rs/zerolog/log"
	"golang.org/x/text/language"
	"golang.org/x/time/rate"
)

// Game is the part of the admin client the bot drives.
type Game interface {
	Executor
	SendChat(action protocol.NetworkAction, dest protocol.DestType, destID uint32, text string) error
	RequestAllClientsInfo() error
}

// State answers questions about the running game.
type State interface {
	Client(id uint32) (admin.ClientInfo, bool)
	Clients() []admin.ClientInfo
	Company(id uint8) (gamestate.Company, bool)
}

// HallOfFame ranks companies for !top.
type HallOfFame interface {
	TopCompanies(ctx context.Context, limit int) ([]store.TopCompany, error)
}

type Config struct {
	// WelcomeMessage is broadcast when a client joins. ${USERNAME},
	// ${COUNTRY} and ${CITY} are replaced from the client info.
	WelcomeMessage string
	// CountryWelcome overrides WelcomeMessage per ISO 3166-1 alpha-2 code.
	CountryWelcome map[string]string
	// HelpMessage is appended to !help.
	HelpMessage    string
	HallOfFameLink string
	TopLimit       int
	ReplyInterval  time.Duration
	ReplyBurst     int
	ResetWindow    time.Duration
	NotifyTimeout  time.Duration
	GeoIP          bool
	GeoIPURL       string
	GeoIPTimeout   time.Duration
}

func DefaultConfig() Config {
	return Config{
		TopLimit:      5,
		ReplyInterval: 500 * time.Millisecond,
		ReplyBurst:    10,
		ResetWindow:   ResetWindow,
		NotifyTimeout: 5 * time.Second,
		GeoIPURL:      DefaultGeoIPURL,
		GeoIPTimeout:  2 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.TopLimit <= 0 {
		c.TopLimit = def.TopLimit
	}
	if c.ReplyInterval <= 0 {
		c.ReplyInterval = def.ReplyInterval
	}
	if c.ReplyBurst <= 0 {
		c.ReplyBurst = def.ReplyBurst
	}
	if c.ResetWindow <= 0 {
		c.ResetWindow = def.ResetWindow
	}
	if c.NotifyTimeout <= 0 {
		c.NotifyTimeout = def.NotifyTimeout
	}
	if c.GeoIPTimeout <= 0 {
		c.GeoIPTimeout = def.GeoIPTimeout
	}
	return c
}

// Request is one parsed chat command.
type Request struct {
	Sender  uint32
	Public  bool
	Name    string
	Args    string
	Message admin.ChatMessage
}

// Bot is a ChatListener and ClientListener.
type Bot struct {
	admin.BaseClientListener

	cfg      Config
	game     Game
	state    State
	fame     HallOfFame
	notifier Notifier
	commands *Registry
	reset    *ResetLock
	locator  Locator
	now      func() time.Time

	mu        sync.Mutex
	languages map[uint32]language.Tag
	limiters  map[uint32]*rate.Limiter
	locations map[uint32]Location
}

// New builds a bot. fame and notifier may be nil; the commands that need
// them then answer that the feature is unavailable.
func New(cfg Config, game Game, state State, fame HallOfFame, notifier Notifier, commands *Registry) *Bot {
	cfg = cfg.withDefaults()
	if commands == nil {
		commands = DefaultRegistry()
	}
	return &Bot{
		cfg:       cfg,
		game:      game,
		state:     state,
		fame:      fame,
		notifier:  notifier,
		commands:  commands,
		reset:     NewResetLock(cfg.ResetWindow),
		now:       time.Now,
		languages: make(map[uint32]language.Tag),
		limiters:  make(map[uint32]*rate.Limiter),
		locations: make(map[uint32]Location),
	}
}

// SetLocator enables country and city lookups of joining clients. Call it
// before Attach.
func (b *Bot) SetLocator(l Locator) { b.locator = l }

// Location reports where client id connected from, if known.
func (b *Bot) Location(id uint32) (Location, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	loc, ok := b.locations[id]
	return loc, ok
}

// Attach registers the bot on c and returns a func that detaches it.
func (b *Bot) Attach(c *admin.Client) (detach func()) {
	removeChat := c.AddChatListener(b)
	removeClient := c.AddClientListener(b)
	return func() {
		removeChat()
		removeClient()
	}
}

func (b *Bot) Commands() *Registry { return b.commands }

// parseCommand splits "!name args". "/admin" and "/help" are accepted as
// well since players type them out of habit.
func parseCommand(text string) (name, args string, ok bool) {
	text = strings.TrimSpace(text)
	switch {
	case strings.HasPrefix(text, "!"):
		text = text[1:]
	case strings.HasPrefix(text, "/admin"), text == "/help":
		text = text[1:]
	default:
		return "", "", false
	}
	name = text
	if i := strings.IndexFunc(text, unicode.IsSpace); i >= 0 {
		name, args = text[:i], text[i:]
	}
	return strings.ToLower(name), strings.TrimSpace(args), true
}

func (b *Bot) ChatReceived(msg admin.ChatMessage) {
	switch msg.Action {
	case protocol.ActionChat, protocol.ActionChatCompany, protocol.ActionChatClient:
	default:
		return
	}
	if strings.TrimSpace(msg.Message) == "" {
		return
	}

	name, args, isCommand := parseCommand(msg.Message)
	if !isCommand {
		b.relay(msg)
		return
	}
	req := Request{
		Sender:  msg.ClientID,
		Public:  msg.Recipient == admin.RecipientAll,
		Name:    name,
		Args:    args,
		Message: msg,
	}
	cmd, ok := b.commands.Resolve(name)
	if !ok {
		log.Debug().Msgf("bot.Bot unknown command client=%d text=%q", msg.ClientID, msg.Message)
		b.Reply(msg.ClientID, "No such command. For help, enter !help")
		return
	}
	log.Info().Msgf("bot.Bot command=%s client=%d", cmd.Name, msg.ClientID)
	if err := cmd.Run(b, req); err != nil {
		log.Warn().Msgf("bot.Bot command=%s client=%d err=%v", cmd.Name, msg.ClientID, err)
	}
}

// relay forwards player chat to the administrators. The server's own
// messages are never relayed.
func (b *Bot) relay(msg admin.ChatMessage) {
	if msg.ClientID == protocol.ServerClientID {
		return
	}
	_ = b.Notify(EventChat, fmt.Sprintf(":pencil: %s %s", b.Describe(msg.ClientID), msg.Message))
}

// Describe renders a client as "name(id)", or just the id when unknown.
func (b *Bot) Describe(clientID uint32) string {
	if b.state != nil {
		if c, ok := b.state.Client(clientID); ok && c.Name != "" {
			return fmt.Sprintf("%s(%d)", c.Name, clientID)
		}
	}
	return fmt.Sprint(clientID)
}

// Notify sends text to the administrators.
func (b *Bot) Notify(kind EventKind, text string) error {
	if b.notifier == nil {
		return ErrNoNotifier
	}
	ctx, cancel := context.WithTimeout(context.Background(), b.cfg.NotifyTimeout)
	defer cancel()
	if err := b.notifier.Notify(ctx, kind, text); err != nil {
		log.Warn().Msgf("bot.Bot notify kind=%s err=%v", kind, err)
		return err
	}
	return nil
}

func (b *Bot) limiter(clientID uint32) *rate.Limiter {
	b.mu.Lock()
	defer b.mu.Unlock()
	l, ok := b.limiters[clientID]
	if !ok {
		l = rate.NewLimiter(rate.Every(b.cfg.ReplyInterval), b.cfg.ReplyBurst)
		b.limiters[clientID] = l
	}
	return l
}

// Reply whispers text to one client, subject to that client's reply budget.
func (b *Bot) Reply(clientID uint32, text string) {
	if !b.limiter(clientID).AllowN(b.now(), 1) {
		log.Debug().Msgf("bot.Bot reply to client=%d throttled", clientID)
		return
	}
	if err := b.game.SendChat(protocol.ActionChatClient, protocol.DestClient, clientID, text); err != nil {
		log.Warn().Msgf("bot.Bot reply client=%d err=%v", clientID, err)
	}
}

// Broadcast says text to everyone.
func (b *Bot) Broadcast(text string) {
	if err := b.game.SendChat(protocol.ActionChat, protocol.DestBroadcast, 0, text); err != nil {
		log.Warn().Msgf("bot.Bot broadcast err=%v", err)
	}
}

// Answer replies where the request came from: public requests get a
// broadcast, the rest a whisper.
func (b *Bot) Answer(req Request, text string) {
	if req.Public {
		b.Broadcast(text)
		return
	}
	b.Reply(req.Sender, text)
}

// Language is the translation language a client asked for with !lang.
func (b *Bot) Language(clientID uint32) (language.Tag, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.languages[clientID]
	return t, ok
}

func (b *Bot) setLanguage(clientID uint32, tag language.Tag, on bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if on {
		b.languages[clientID] = tag
	} else {
		delete(b.languages, clientID)
	}
}

func (b *Bot) ClientJoined(id uint32) {
	msg := b.cfg.WelcomeMessage
	country, city := "the Universe", "the beautiful City"
	if loc, ok := b.Location(id); ok {
		if m, ok := b.cfg.CountryWelcome[loc.CountryCode]; ok {
			msg = m
		}
		country, city = loc.Country, loc.City
	}
	if msg == "" {
		return
	}
	name := "player"
	if b.state != nil {
		if c, ok := b.state.Client(id); ok && c.Name != "" {
			name = c.Name
		}
	}
	b.Broadcast(strings.NewReplacer("${USERNAME}", name, "${COUNTRY}", country, "${CITY}", city).Replace(msg))
}

// ClientInfoReceived drives an armed !reset and otherwise locates the
// client.
func (b *Bot) ClientInfoReceived(info admin.ClientInfo) {
	plan, ok := b.reset.Offer(info.ID, info.CompanyID, b.now())
	if !ok {
		b.locate(info)
		return
	}
	if plan.Company == admin.SpectatorCompany {
		b.Reply(info.ID, "You are not playing a company, there is nothing to reset.")
		return
	}
	for _, id := range plan.Kick {
		if err := Kick(b.game, id, "Company reset"); err != nil {
			log.Warn().Msgf("bot.Bot reset kick client=%d err=%v", id, err)
		}
	}
	if err := ResetCompany(b.game, plan.Company); err != nil {
		log.Warn().Msgf("bot.Bot reset company=%d err=%v", plan.Company, err)
	}
}

func (b *Bot) locate(info admin.ClientInfo) {
	if b.locator == nil || info.Address == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), b.cfg.GeoIPTimeout)
	defer cancel()
	loc, err := b.locator.Locate(ctx, info.Address)
	if err != nil {
		log.Warn().Msgf("bot.Bot locate client=%d addr=%s err=%v", info.ID, info.Address, err)
		return
	}
	log.Info().Msgf("bot.Bot client=%d addr=%s %s", info.ID, info.Address, loc)
	b.mu.Lock()
	b.locations[info.ID] = loc
	b.mu.Unlock()
}

func (b *Bot) ClientQuit(id uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.languages, id)
	delete(b.limiters, id)
	delete(b.locations, id)
}
