// Package gamestate keeps the latest view of one game, fed by admin
// client events.
package gamestate

import (
	"sort"
	"sync"

	"github.com/danmuck/ottdctl/internal/admin"
	"github.com/danmuck/ottdctl/internal/gamedate"
	"github.com/danmuck/ottdctl/internal/protocol"
)

// Company is everything known about one company.
type Company struct {
	Info       admin.CompanyInfo
	Economy    *admin.CompanyEconomy
	Statistics *admin.CompanyStatistics
}

// Snapshot is a consistent copy of the tracked state.
type Snapshot struct {
	Connected bool
	Server    *admin.ServerInfo
	Date      gamedate.Date
	HasDate   bool
	Clients   []admin.ClientInfo
	Companies []Company
}

// Tracker implements the admin listener interfaces. Register it with
// Attach before the client starts.
type Tracker struct {
	admin.BaseServerListener
	admin.BaseCompanyListener
	admin.BaseClientListener

	mu        sync.RWMutex
	connected bool
	server    *admin.ServerInfo
	date      gamedate.Date
	hasDate   bool
	clients   map[uint32]admin.ClientInfo
	companies map[uint8]*Company
}

func New() *Tracker {
	return &Tracker{
		clients:   make(map[uint32]admin.ClientInfo),
		companies: make(map[uint8]*Company),
	}
}

// Attach registers the tracker on c and returns a func that detaches it.
func (t *Tracker) Attach(c *admin.Client) (detach func()) {
	removers := []func(){
		c.AddServerListener(t),
		c.AddCompanyListener(t),
		c.AddClientListener(t),
	}
	return func() {
		for _, r := range removers {
			r()
		}
	}
}

func (t *Tracker) reset() {
	t.clients = make(map[uint32]admin.ClientInfo)
	t.companies = make(map[uint8]*Company)
	t.hasDate = false
}

func (t *Tracker) Connected(uint8) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.connected = true
}

func (t *Tracker) Disconnected() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.connected = false
	t.server = nil
	t.reset()
}

func (t *Tracker) ServerInfoReceived(info admin.ServerInfo) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.server = &info
	if !t.hasDate {
		t.date = info.StartDate
		t.hasDate = true
	}
}

func (t *Tracker) NewGame() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.reset()
}

func (t *Tracker) NewDate(date gamedate.Date) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.date = date
	t.hasDate = true
}

func (t *Tracker) company(id uint8) *Company {
	c, ok := t.companies[id]
	if !ok {
		c = &Company{Info: admin.CompanyInfo{ID: id}}
		t.companies[id] = c
	}
	return c
}

func (t *Tracker) CompanyCreated(id uint8) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.company(id)
}

func (t *Tracker) CompanyRemoved(id uint8, _ protocol.RemoveReason) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.companies, id)
}

func (t *Tracker) CompanyInfoReceived(info admin.CompanyInfo) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.company(info.ID).Info = info
}

func (t *Tracker) CompanyUpdated(info admin.CompanyInfo) {
	t.mu.Lock()
	defer t.mu.Unlock()
	c := t.company(info.ID)
	c.Info = c.Info.Merge(info)
}

func (t *Tracker) CompanyEconomyReceived(econ admin.CompanyEconomy) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.company(econ.ID).Economy = &econ
}

func (t *Tracker) CompanyStatisticsReceived(stats admin.CompanyStatistics) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.company(stats.ID).Statistics = &stats
}

func (t *Tracker) ClientJoined(id uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.clients[id]; !ok {
		t.clients[id] = admin.ClientInfo{ID: id, CompanyID: admin.SpectatorCompany}
	}
}

func (t *Tracker) ClientInfoReceived(info admin.ClientInfo) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.clients[info.ID] = info
}

func (t *Tracker) ClientUpdated(u admin.ClientUpdate) {
	t.mu.Lock()
	defer t.mu.Unlock()
	c := t.clients[u.ID]
	c.ID = u.ID
	c.Name = u.Name
	c.CompanyID = u.CompanyID
	t.clients[u.ID] = c
}

func (t *Tracker) ClientQuit(id uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.clients, id)
}

// Server returns the last Welcome, if any.
func (t *Tracker) Server() (admin.ServerInfo, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.server == nil {
		return admin.ServerInfo{}, false
	}
	return *t.server, true
}

func (t *Tracker) Date() (gamedate.Date, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.date, t.hasDate
}

func (t *Tracker) Client(id uint32) (admin.ClientInfo, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	c, ok := t.clients[id]
	return c, ok
}

// Clients returns every known client ordered by id.
func (t *Tracker) Clients() []admin.ClientInfo {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.clientsLocked(func(admin.ClientInfo) bool { return true })
}

// ClientsInCompany returns the clients currently playing for company id.
func (t *Tracker) ClientsInCompany(id uint8) []admin.ClientInfo {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.clientsLocked(func(c admin.ClientInfo) bool { return c.CompanyID == id })
}

func (t *Tracker) clientsLocked(keep func(admin.ClientInfo) bool) []admin.ClientInfo {
	out := make([]admin.ClientInfo, 0, len(t.clients))
	for _, c := range t.clients {
		if keep(c) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (t *Tracker) Company(id uint8) (Company, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	c, ok := t.companies[id]
	if !ok {
		return Company{}, false
	}
	return copyCompany(c), true
}

// Companies returns every known company ordered by id.
func (t *Tracker) Companies() []Company {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.companiesLocked()
}

func (t *Tracker) companiesLocked() []Company {
	out := make([]Company, 0, len(t.companies))
	for _, c := range t.companies {
		out = append(out, copyCompany(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Info.ID < out[j].Info.ID })
	return out
}

func copyCompany(c *Company) Company {
	out := Company{Info: c.Info}
	if c.Economy != nil {
		econ := *c.Economy
		out.Economy = &econ
	}
	if c.Statistics != nil {
		stats := *c.Statistics
		out.Statistics = &stats
	}
	return out
}

func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s := Snapshot{
		Connected: t.connected,
		Date:      t.date,
		HasDate:   t.hasDate,
		Clients:   t.clientsLocked(func(admin.ClientInfo) bool { return true }),
		Companies: t.companiesLocked(),
	}
	if t.server != nil {
		info := *t.server
		s.Server = &info
	}
	return s
}
