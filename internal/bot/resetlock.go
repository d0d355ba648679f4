package bot

import (
	"sync"
	"time"

	"github.com/danmuck/ottdctl/internal/admin"
)

// ResetWindow is how long a !reset request stays armed.
const ResetWindow = 10 * time.Second

// ResetPlan is what to do once the requester's company is known.
type ResetPlan struct {
	Company uint8
	Kick    []uint32
}

// ResetLock serialises company resets. Only one request is armed at a time;
// while armed, client infos are collected until the requester's company is
// known, then every collected client of that company is handed out for
// kicking.
type ResetLock struct {
	mu        sync.Mutex
	window    time.Duration
	started   time.Time
	requester uint32
	found     bool
	company   uint8
	seen      map[uint32]uint8
}

func NewResetLock(window time.Duration) *ResetLock {
	if window <= 0 {
		window = ResetWindow
	}
	return &ResetLock{window: window, seen: make(map[uint32]uint8)}
}

func (l *ResetLock) armed(now time.Time) bool {
	return !l.started.IsZero() && now.Sub(l.started) < l.window
}

// Start arms the lock for clientID. It fails while another request is armed.
func (l *ResetLock) Start(clientID uint32, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.armed(now) {
		return false
	}
	l.started = now
	l.requester = clientID
	l.found = false
	l.seen = make(map[uint32]uint8)
	return true
}

// Offer records the company of one client. ok is false when there is
// nothing to do yet; a spectating requester yields a plan with
// admin.SpectatorCompany and no clients.
func (l *ResetLock) Offer(clientID uint32, company uint8, now time.Time) (plan ResetPlan, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.armed(now) {
		return ResetPlan{}, false
	}
	l.seen[clientID] = company
	if clientID == l.requester {
		if company == admin.SpectatorCompany {
			l.started = time.Time{}
			return ResetPlan{Company: company}, true
		}
		l.company = company
		l.found = true
	}
	if !l.found || company != l.company {
		return ResetPlan{}, false
	}
	plan.Company = l.company
	for id, c := range l.seen {
		if c == l.company {
			plan.Kick = append(plan.Kick, id)
		}
	}
	l.seen = make(map[uint32]uint8)
	return plan, true
}
