package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/danmuck/ottdctl/internal/admin"
	"github.com/danmuck/ottdctl/internal/protocol"
	"github.com/rs/zerolog/log"
)

// Reporter turns game events into administrator notifications.
type Reporter struct {
	admin.BaseServerListener
	admin.BaseCompanyListener
	admin.BaseClientListener

	notifier Notifier
	locator  Locator
	timeout  time.Duration

	mu        sync.Mutex
	clients   map[uint32]string
	companies map[uint8]admin.CompanyInfo
}

func NewReporter(n Notifier) *Reporter {
	return &Reporter{
		notifier:  n,
		timeout:   5 * time.Second,
		clients:   make(map[uint32]string),
		companies: make(map[uint8]admin.CompanyInfo),
	}
}

// SetLocator adds the client location to client notifications.
func (r *Reporter) SetLocator(l Locator) { r.locator = l }

// Attach registers r on c and returns a func that detaches it.
func (r *Reporter) Attach(c *admin.Client) (detach func()) {
	removers := []func(){
		c.AddServerListener(r),
		c.AddCompanyListener(r),
		c.AddClientListener(r),
	}
	return func() {
		for _, remove := range removers {
			remove()
		}
	}
}

func (r *Reporter) send(kind EventKind, text string) {
	if r.notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	if err := r.notifier.Notify(ctx, kind, text); err != nil {
		log.Warn().Msgf("bot.Reporter notify kind=%s err=%v", kind, err)
	}
}

func (r *Reporter) clientName(id uint32) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if name := r.clients[id]; name != "" {
		return ", name " + name
	}
	return ""
}

func (r *Reporter) companyDescription(id uint8) string {
	if id == admin.SpectatorCompany {
		return "spectator"
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.companies[id]; ok && c.Name != "" {
		return fmt.Sprintf("%d:%s", int(id)+1, c.Name)
	}
	return fmt.Sprintf("%d", int(id)+1)
}

func (r *Reporter) ServerInfoReceived(info admin.ServerInfo) {
	r.send(EventServer, ":star: Connected to "+info.Name)
}

func (r *Reporter) WrongPassword() {
	r.send(EventServer, ":lock: admin password rejected by the server")
}

func (r *Reporter) NewGame() {
	r.mu.Lock()
	r.companies = make(map[uint8]admin.CompanyInfo)
	r.mu.Unlock()
	r.send(EventServer, ":checkered_flag: new game")
}

func (r *Reporter) Shutdown() {
	r.send(EventServer, ":octagonal_sign: server is shutting down")
}

func (r *Reporter) ClientJoined(id uint32) {
	r.send(EventClient, fmt.Sprintf(":bust_in_silhouette: new ID %d%s", id, r.clientName(id)))
}

func (r *Reporter) ClientInfoReceived(info admin.ClientInfo) {
	r.mu.Lock()
	r.clients[info.ID] = info.Name
	r.mu.Unlock()
	var sb strings.Builder
	fmt.Fprintf(&sb, ":bust_in_silhouette: ID %d, name %s", info.ID, info.Name)
	if info.Address != "" {
		fmt.Fprintf(&sb, ", IP %s", info.Address)
	}
	fmt.Fprintf(&sb, ", plays as %s, joined %s", r.companyDescription(info.CompanyID), info.JoinDate)
	if r.locator != nil && info.Address != "" {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		loc, err := r.locator.Locate(ctx, info.Address)
		cancel()
		if err == nil {
			sb.WriteString(", " + loc.String())
		}
	}
	r.send(EventClient, sb.String())
}

func (r *Reporter) ClientUpdated(u admin.ClientUpdate) {
	r.mu.Lock()
	r.clients[u.ID] = u.Name
	r.mu.Unlock()
	r.send(EventClient, fmt.Sprintf(":bust_in_silhouette: ID %d, name %s, plays as %s", u.ID, u.Name, r.companyDescription(u.CompanyID)))
}

func (r *Reporter) ClientQuit(id uint32) {
	name := r.clientName(id)
	r.mu.Lock()
	delete(r.clients, id)
	r.mu.Unlock()
	r.send(EventClient, fmt.Sprintf(":runner: ID %d%s left", id, name))
}

func (r *Reporter) ClientError(id uint32, code protocol.ErrorCode) {
	r.send(EventClient, fmt.Sprintf(":punch: ID %d%s error %s", id, r.clientName(id), code))
}

func (r *Reporter) CompanyCreated(id uint8) {
	r.send(EventCompany, fmt.Sprintf(":new: ID %d created", int(id)+1))
}

func (r *Reporter) CompanyInfoReceived(info admin.CompanyInfo) {
	r.rememberCompany(info)
	r.reportCompany(info)
}

func (r *Reporter) CompanyUpdated(info admin.CompanyInfo) {
	r.reportCompany(r.rememberCompany(info))
}

func (r *Reporter) rememberCompany(info admin.CompanyInfo) admin.CompanyInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	merged := r.companies[info.ID].Merge(info)
	r.companies[info.ID] = merged
	return merged
}

func (r *Reporter) reportCompany(info admin.CompanyInfo) {
	protection := "unprotected"
	if info.Passworded {
		protection = "protected"
	}
	r.send(EventCompany, fmt.Sprintf(":office: ID %d, color %s, name %s, manager %s, %s",
		int(info.ID)+1, info.Colour, info.Name, info.Manager, protection))
}

func (r *Reporter) CompanyRemoved(id uint8, reason protocol.RemoveReason) {
	r.mu.Lock()
	info, known := r.companies[id]
	delete(r.companies, id)
	r.mu.Unlock()
	detail := ""
	if known {
		detail = fmt.Sprintf(", color %s, name %s", info.Colour, info.Name)
	}
	r.send(EventCompany, fmt.Sprintf(":hammer: ID %d%s closed %s", int(id)+1, detail, reason))
}
