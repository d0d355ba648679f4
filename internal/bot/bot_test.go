package bot

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/danmuck/ottdctl/internal/admin"
	"github.com/danmuck/ottdctl/internal/gamestate"
	"github.com/danmuck/ottdctl/internal/protocol"
	"github.com/danmuck/ottdctl/internal/store"
	"github.com/danmuck/ottdctl/internal/testutil/testlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentChat struct {
	action protocol.NetworkAction
	dest   protocol.DestType
	to     uint32
	text   string
}

type fakeGame struct {
	mu       sync.Mutex
	rcon     []string
	chats    []sentChat
	requests int
}

func (g *fakeGame) ExecuteRCon(cmd string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rcon = append(g.rcon, cmd)
	return nil
}

func (g *fakeGame) SendChat(action protocol.NetworkAction, dest protocol.DestType, to uint32, text string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.chats = append(g.chats, sentChat{action, dest, to, text})
	return nil
}

func (g *fakeGame) RequestAllClientsInfo() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests++
	return nil
}

func (g *fakeGame) texts() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, len(g.chats))
	for i, c := range g.chats {
		out[i] = c.text
	}
	return out
}

type notification struct {
	kind EventKind
	text string
}

type fakeNotifier struct {
	mu   sync.Mutex
	got  []notification
	fail bool
}

func (n *fakeNotifier) Notify(_ context.Context, kind EventKind, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return errors.New("slack down")
	}
	n.got = append(n.got, notification{kind, text})
	return nil
}

type fakeFame struct{ top []store.TopCompany }

func (f fakeFame) TopCompanies(context.Context, int) ([]store.TopCompany, error) { return f.top, nil }

func newTestBot(t *testing.T) (*Bot, *fakeGame, *gamestate.Tracker, *fakeNotifier) {
	t.Helper()
	game := &fakeGame{}
	state := gamestate.New()
	notifier := &fakeNotifier{}
	b := New(Config{ReplyBurst: 100}, game, state, nil, notifier, nil)
	return b, game, state, notifier
}

func chat(from uint32, text string) admin.ChatMessage {
	return admin.ChatMessage{
		Action:    protocol.ActionChat,
		Dest:      protocol.DestBroadcast,
		Recipient: admin.RecipientAll,
		ClientID:  from,
		Message:   text,
	}
}

func whisper(from uint32, text string) admin.ChatMessage {
	return admin.ChatMessage{
		Action:    protocol.ActionChatClient,
		Dest:      protocol.DestClient,
		Recipient: admin.RecipientClient,
		ClientID:  from,
		Message:   text,
	}
}

func TestParseCommand(t *testing.T) {
	testlog.Start(t)
	cases := []struct {
		in, name, args string
		ok             bool
	}{
		{"!help", "help", "", true},
		{"  !NAME  \"Big Bob\" ", "name", `"Big Bob"`, true},
		{"!name\tbob", "name", "bob", true},
		{"/admin help me", "admin", "help me", true},
		{"/help", "help", "", true},
		{"/me waves", "", "", false},
		{"hello", "", "", false},
	}
	for _, tc := range cases {
		name, args, ok := parseCommand(tc.in)
		assert.Equal(t, tc.ok, ok, tc.in)
		assert.Equal(t, tc.name, name, tc.in)
		assert.Equal(t, tc.args, args, tc.in)
	}
}

func TestAdminRequest(t *testing.T) {
	testlog.Start(t)
	b, game, state, notifier := newTestBot(t)
	state.ClientInfoReceived(admin.ClientInfo{ID: 4, Name: "ann"})

	b.ChatReceived(chat(4, "!admin griefer at Oxford"))
	require.Len(t, notifier.got, 1)
	assert.Equal(t, EventAdminRequest, notifier.got[0].kind)
	assert.Equal(t, ":boom: ann(4) !admin griefer at Oxford", notifier.got[0].text)
	require.Len(t, game.chats, 1)
	assert.Equal(t, sentChat{protocol.ActionChatClient, protocol.DestClient, 4, "Your message has been sent to the admin. Thank you!"}, game.chats[0])

	notifier.fail = true
	b.ChatReceived(chat(4, "/admin again"))
	assert.Contains(t, game.texts()[1], "No connection to the administrator")
}

func TestUnknownCommandAndRelay(t *testing.T) {
	testlog.Start(t)
	b, game, _, notifier := newTestBot(t)

	b.ChatReceived(chat(7, "!dance"))
	assert.Equal(t, []string{"No such command. For help, enter !help"}, game.texts())

	b.ChatReceived(chat(7, "hello all"))
	b.ChatReceived(chat(protocol.ServerClientID, "server says hi"))
	b.ChatReceived(admin.ChatMessage{Action: protocol.ActionGiveMoney, ClientID: 7, Message: "!help"})
	require.Len(t, notifier.got, 1)
	assert.Equal(t, notification{EventChat, ":pencil: 7 hello all"}, notifier.got[0])
	assert.Len(t, game.chats, 1)
}

func TestNameCommand(t *testing.T) {
	testlog.Start(t)
	b, game, _, _ := newTestBot(t)

	b.ChatReceived(whisper(9, `!name "Big \"B\" Bob"`))
	b.ChatReceived(whisper(9, "!name bob"))
	b.ChatReceived(whisper(9, "!name"))
	assert.Equal(t, []string{`client_name 9 "Big \"B\" Bob"`, `client_name 9 "bob"`}, game.rcon)
	assert.Contains(t, game.texts()[0], "Usage: !name")
}

func TestLangCommand(t *testing.T) {
	testlog.Start(t)
	b, game, _, _ := newTestBot(t)

	b.ChatReceived(whisper(3, "!lang de"))
	tag, ok := b.Language(3)
	require.True(t, ok)
	assert.Equal(t, "de", tag.String())

	b.ChatReceived(whisper(3, "!lang zh-TW"))
	tag, _ = b.Language(3)
	assert.Equal(t, "zh-TW", tag.String())

	b.ChatReceived(whisper(3, "!lang qq"))
	b.ChatReceived(whisper(3, "!lang english"))
	tag, _ = b.Language(3)
	assert.Equal(t, "zh-TW", tag.String(), "invalid codes must not replace the preference")

	b.ChatReceived(whisper(3, "!lang off"))
	_, ok = b.Language(3)
	assert.False(t, ok)

	b.ChatReceived(whisper(3, "!lang"))
	texts := game.texts()
	assert.Contains(t, texts[len(texts)-1], "!lang off")

	b.ChatReceived(whisper(5, "!lang fr"))
	b.ClientQuit(5)
	_, ok = b.Language(5)
	assert.False(t, ok)
}

func TestWhoCommand(t *testing.T) {
	testlog.Start(t)
	b, game, state, _ := newTestBot(t)
	state.ClientInfoReceived(admin.ClientInfo{ID: 1, Name: "server", CompanyID: admin.SpectatorCompany})
	state.ClientInfoReceived(admin.ClientInfo{ID: 2, Name: "ann", CompanyID: 0})
	state.ClientInfoReceived(admin.ClientInfo{ID: 3, Name: "bob", CompanyID: admin.SpectatorCompany})
	state.CompanyInfoReceived(admin.CompanyInfo{ID: 0, Name: "Acme", Colour: protocol.ColourRed, Full: true})

	b.ChatReceived(chat(3, "!who"))
	require.Len(t, game.chats, 2)
	assert.Equal(t, protocol.ActionChat, game.chats[0].action, "public request gets a public answer")
	assert.Equal(t, "ann as Acme/"+protocol.ColourRed.String(), game.chats[0].text)
	assert.Equal(t, "bob as spectator", game.chats[1].text)
}

func TestTopCommand(t *testing.T) {
	testlog.Start(t)
	game := &fakeGame{}
	fame := fakeFame{top: []store.TopCompany{
		{Name: "Acme", TopValue: 1234567},
		{Name: "Beta", TopValue: 1000, GameFinished: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)},
	}}
	b := New(Config{ReplyBurst: 100, HallOfFameLink: "https://example.org/fame"}, game, gamestate.New(), fame, nil, nil)

	b.ChatReceived(whisper(6, "!top"))
	assert.Equal(t, []string{
		"1. Acme - value 1,234,567 GBP - current game",
		"2. Beta - value 1,000 GBP - game finished on 03:04:05 02.01.2026",
		"https://example.org/fame",
	}, game.texts())

	empty := New(Config{ReplyBurst: 100}, game, gamestate.New(), nil, nil, nil)
	game.chats = nil
	empty.ChatReceived(whisper(6, "!top"))
	assert.Equal(t, []string{"Hall of Fame is currently not available."}, game.texts())
}

func TestHelpListsRegistry(t *testing.T) {
	testlog.Start(t)
	b, game, _, _ := newTestBot(t)
	b.cfg.HelpMessage = "Visit example.org"
	b.ChatReceived(whisper(2, "!help"))
	texts := game.texts()
	require.Len(t, texts, 1+len(b.Commands().List())+1)
	assert.Equal(t, "Available commands:", texts[0])
	assert.Equal(t, "Visit example.org", texts[len(texts)-1])
	assert.Contains(t, texts, "!who: shows a list of players")
}

func TestResetFlow(t *testing.T) {
	testlog.Start(t)
	b, game, _, notifier := newTestBot(t)
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return now }

	b.ChatReceived(whisper(5, "!reset"))
	assert.Equal(t, 1, game.requests)
	require.NotEmpty(t, notifier.got)
	assert.Contains(t, notifier.got[0].text, "requested a reset")

	// A second request inside the window is refused.
	b.ChatReceived(whisper(6, "!reset"))
	assert.Equal(t, 1, game.requests)
	assert.Contains(t, game.texts()[0], "Another reset request")

	b.ClientInfoReceived(admin.ClientInfo{ID: 7, CompanyID: 2})
	b.ClientInfoReceived(admin.ClientInfo{ID: 8, CompanyID: 3})
	assert.Empty(t, game.rcon)
	b.ClientInfoReceived(admin.ClientInfo{ID: 5, CompanyID: 2})
	assert.ElementsMatch(t, []string{`kick 7 "Company reset"`, `kick 5 "Company reset"`}, game.rcon[:2])
	assert.Equal(t, "resetcompany 3", game.rcon[2])

	// After the window a new request is accepted.
	now = now.Add(ResetWindow + time.Second)
	b.ChatReceived(whisper(6, "!reset"))
	assert.Equal(t, 2, game.requests)
	b.ClientInfoReceived(admin.ClientInfo{ID: 6, CompanyID: admin.SpectatorCompany})
	assert.Contains(t, game.texts()[len(game.texts())-1], "not playing a company")
}

func TestRepliesAreRateLimited(t *testing.T) {
	testlog.Start(t)
	game := &fakeGame{}
	b := New(Config{ReplyBurst: 2, ReplyInterval: time.Hour}, game, gamestate.New(), nil, nil, nil)
	now := time.Now()
	b.now = func() time.Time { return now }
	for i := 0; i < 5; i++ {
		b.Reply(4, "hi")
	}
	b.Reply(5, "hi")
	assert.Len(t, game.chats, 3)
}

func TestWelcomeMessage(t *testing.T) {
	testlog.Start(t)
	game := &fakeGame{}
	state := gamestate.New()
	state.ClientInfoReceived(admin.ClientInfo{ID: 9, Name: "zoe"})
	b := New(Config{WelcomeMessage: "Welcome ${USERNAME}!"}, game, state, nil, nil, nil)
	b.ClientJoined(9)
	b.ClientJoined(10)
	assert.Equal(t, []string{"Welcome zoe!", "Welcome player!"}, game.texts())
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	testlog.Start(t)
	r := NewRegistry()
	noop := func(*Bot, Request) error { return nil }
	require.NoError(t, r.Register(Command{Name: "ping", Aliases: []string{"p"}, Run: noop}))
	assert.ErrorIs(t, r.Register(Command{Name: "p", Run: noop}), ErrCommandExists)
	assert.ErrorIs(t, r.Register(Command{Name: "Bad Name", Run: noop}), ErrInvalidCommand)
	assert.ErrorIs(t, r.Register(Command{Name: "nil"}), ErrCommandNil)
	c, ok := r.Resolve("P")
	require.True(t, ok)
	assert.Equal(t, "ping", c.Name)
}

func TestRconHelpers(t *testing.T) {
	testlog.Start(t)
	g := &fakeGame{}
	require.NoError(t, Kick(g, 3, `say "bye"`))
	require.NoError(t, KickAddress(g, "10.0.0.1", "spam"))
	require.NoError(t, Ban(g, 3, "cheating"))
	require.NoError(t, Unban(g, "10.0.0.1"))
	require.NoError(t, Pause(g))
	require.NoError(t, Unpause(g))
	require.NoError(t, SetSetting(g, "difficulty.max_loan", "300000"))
	require.NoError(t, SetSetting(g, "difficulty.max_loan", ""))
	require.NoError(t, ResetCompany(g, 0))
	assert.Equal(t, []string{
		`kick 3 "say \"bye\""`,
		`kick 10.0.0.1 "spam"`,
		`ban 3 "cheating"`,
		`unban 10.0.0.1`,
		`pause`,
		`unpause`,
		`setting difficulty.max_loan "300000"`,
		`setting difficulty.max_loan`,
		`resetcompany 1`,
	}, g.rcon)
}

func TestFilter(t *testing.T) {
	testlog.Start(t)
	n := &fakeNotifier{}
	f := Filter{Next: n, Client: true}
	ctx := context.Background()
	require.NoError(t, f.Notify(ctx, EventChat, "dropped"))
	require.NoError(t, f.Notify(ctx, EventClient, "kept"))
	require.NoError(t, f.Notify(ctx, EventAdminRequest, "always"))
	assert.Equal(t, []notification{{EventClient, "kept"}, {EventAdminRequest, "always"}}, n.got)
	assert.ErrorIs(t, Filter{}.Notify(ctx, EventServer, "x"), ErrNoNotifier)
}

func TestReporter(t *testing.T) {
	testlog.Start(t)
	n := &fakeNotifier{}
	r := NewReporter(n)
	r.CompanyInfoReceived(admin.CompanyInfo{ID: 0, Name: "Acme", Manager: "Ann", Colour: protocol.ColourRed, Full: true})
	r.ClientInfoReceived(admin.ClientInfo{ID: 4, Name: "bob", Address: "1.2.3.4", CompanyID: 0})
	r.ClientQuit(4)
	r.CompanyRemoved(0, protocol.RemoveBankrupt)

	require.Len(t, n.got, 4)
	assert.Equal(t, EventCompany, n.got[0].kind)
	assert.Contains(t, n.got[0].text, ":office: ID 1")
	assert.Contains(t, n.got[1].text, "plays as 1:Acme")
	assert.Equal(t, ":runner: ID 4, name bob left", n.got[2].text)
	assert.Contains(t, n.got[3].text, ":hammer: ID 1, color")
	assert.Contains(t, n.got[3].text, "closed "+protocol.RemoveBankrupt.String())
}
