package admin

import (
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/danmuck/ottdctl/internal/gamedate"
	"github.com/danmuck/ottdctl/internal/observability"
	"github.com/danmuck/ottdctl/internal/protocol"
	"github.com/rs/zerolog/log"
)

type entry[T any] struct {
	id       uint64
	listener T
}

// listenerSet is copy-on-write: writers swap in a new slice, dispatch
// iterates whichever slice was current when the event started.
type listenerSet[T any] struct {
	mu    sync.Mutex
	next  uint64
	items atomic.Pointer[[]entry[T]]
}

func (s *listenerSet[T]) add(l T) (remove func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	id := s.next
	cur := s.load()
	nextItems := make([]entry[T], len(cur), len(cur)+1)
	copy(nextItems, cur)
	nextItems = append(nextItems, entry[T]{id: id, listener: l})
	s.items.Store(&nextItems)

	var once sync.Once
	return func() {
		once.Do(func() { s.remove(id) })
	}
}

func (s *listenerSet[T]) remove(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := s.load()
	nextItems := make([]entry[T], 0, len(cur))
	for _, e := range cur {
		if e.id != id {
			nextItems = append(nextItems, e)
		}
	}
	s.items.Store(&nextItems)
}

func (s *listenerSet[T]) load() []entry[T] {
	if p := s.items.Load(); p != nil {
		return *p
	}
	return nil
}

func (s *listenerSet[T]) len() int { return len(s.load()) }

// dispatcher fans decoded packets out to listener categories.
type dispatcher struct {
	server    string
	servers   listenerSet[ServerListener]
	companies listenerSet[CompanyListener]
	clients   listenerSet[ClientListener]
	chats     listenerSet[ChatListener]
}

func each[T any](d *dispatcher, category string, set *listenerSet[T], fn func(T)) {
	for _, e := range set.load() {
		d.call(category, func() { fn(e.listener) })
	}
}

// call isolates one listener: a panic is logged and counted, never propagated.
func (d *dispatcher) call(category string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			observability.RecordListenerPanic(d.server, category)
			log.Error().
				Str("server", d.server).
				Str("category", category).
				Str("panic", fmt.Sprint(r)).
				Bytes("stack", debug.Stack()).
				Msg("admin.dispatcher listener panicked")
		}
	}()
	fn()
}

func (d *dispatcher) eachServer(fn func(ServerListener)) { each(d, "server", &d.servers, fn) }

func (d *dispatcher) eachCompany(fn func(CompanyListener)) { each(d, "company", &d.companies, fn) }

func (d *dispatcher) eachClient(fn func(ClientListener)) { each(d, "client", &d.clients, fn) }

func (d *dispatcher) eachChat(fn func(ChatListener)) { each(d, "chat", &d.chats, fn) }

// dispatch delivers informational packets. Session packets (protocol,
// welcome, error) are handled by the client before reaching here.
func (d *dispatcher) dispatch(p protocol.Packet) {
	switch p := p.(type) {
	case protocol.ServerFull:
		d.eachServer(func(l ServerListener) { l.ServerFull() })
	case protocol.ServerBanned:
		d.eachServer(func(l ServerListener) { l.ServerBanned() })
	case protocol.ServerNewGame:
		d.eachServer(func(l ServerListener) { l.NewGame() })
	case protocol.ServerShutdown:
		d.eachServer(func(l ServerListener) { l.Shutdown() })
	case protocol.ServerDate:
		date := gamedate.FromDays(p.Date)
		d.eachServer(func(l ServerListener) { l.NewDate(date) })
	case protocol.ServerConsole:
		d.eachServer(func(l ServerListener) { l.ConsoleMessage(p.Origin, p.Message) })
	case protocol.ServerRcon:
		d.eachServer(func(l ServerListener) { l.RconResult(p.Colour, p.Result) })
	case protocol.ServerRconEnd:
		d.eachServer(func(l ServerListener) { l.RconFinished(p.Command) })
	case protocol.ServerCmdNames:
		d.eachServer(func(l ServerListener) {
			names := make([]protocol.CommandName, len(p.Commands))
			copy(names, p.Commands)
			l.CommandNames(names)
		})
	case protocol.ServerCmdLogging:
		entry := CommandLog(p)
		d.eachServer(func(l ServerListener) { l.CommandLogged(entry) })
	case protocol.ServerGamescript:
		d.eachServer(func(l ServerListener) { l.GameScript(p.JSON) })
	case protocol.ServerPong:
		d.eachServer(func(l ServerListener) { l.Pong(p.Payload) })

	case protocol.ServerClientJoin:
		d.eachClient(func(l ClientListener) { l.ClientJoined(p.ClientID) })
	case protocol.ServerClientInfo:
		info := clientInfoFrom(p)
		d.eachClient(func(l ClientListener) { l.ClientInfoReceived(info) })
	case protocol.ServerClientUpdate:
		update := ClientUpdate{ID: p.ClientID, Name: p.Name, CompanyID: p.CompanyID}
		d.eachClient(func(l ClientListener) { l.ClientUpdated(update) })
	case protocol.ServerClientQuit:
		d.eachClient(func(l ClientListener) { l.ClientQuit(p.ClientID) })
	case protocol.ServerClientError:
		d.eachClient(func(l ClientListener) { l.ClientError(p.ClientID, p.Code) })

	case protocol.ServerCompanyNew:
		d.eachCompany(func(l CompanyListener) { l.CompanyCreated(p.CompanyID) })
	case protocol.ServerCompanyInfo:
		info := companyInfoFrom(p)
		d.eachCompany(func(l CompanyListener) { l.CompanyInfoReceived(info) })
	case protocol.ServerCompanyUpdate:
		info := companyUpdateFrom(p)
		d.eachCompany(func(l CompanyListener) { l.CompanyUpdated(info) })
	case protocol.ServerCompanyRemove:
		d.eachCompany(func(l CompanyListener) { l.CompanyRemoved(p.CompanyID, p.Reason) })
	case protocol.ServerCompanyEconomy:
		econ := companyEconomyFrom(p)
		d.eachCompany(func(l CompanyListener) { l.CompanyEconomyReceived(econ) })
	case protocol.ServerCompanyStats:
		stats := CompanyStatistics{ID: p.CompanyID, Vehicles: p.Vehicles, Stations: p.Stations}
		d.eachCompany(func(l CompanyListener) { l.CompanyStatisticsReceived(stats) })

	case protocol.ServerChat:
		msg := chatMessageFrom(p)
		d.eachChat(func(l ChatListener) { l.ChatReceived(msg) })

	default:
		log.Debug().Msgf("admin.dispatcher unhandled packet=%s", p.Type())
	}
}
