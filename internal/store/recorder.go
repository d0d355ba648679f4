package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/danmuck/ottdctl/internal/admin"
	"github.com/danmuck/ottdctl/internal/gamedate"
	"github.com/danmuck/ottdctl/internal/protocol"
	"github.com/rs/zerolog/log"
)

const recordTimeout = 5 * time.Second

// Recorder writes admin events into a Store. Events before the first
// Welcome have no game to belong to and are skipped.
type Recorder struct {
	admin.BaseServerListener
	admin.BaseCompanyListener
	admin.BaseClientListener

	store   *Store
	address string

	mu      sync.Mutex
	gameID  int64
	date    gamedate.Date
	clients map[uint32]uint8
}

func NewRecorder(s *Store, address string) *Recorder {
	return &Recorder{store: s, address: address, clients: make(map[uint32]uint8)}
}

// Attach registers r on c and returns a func that detaches it.
func (r *Recorder) Attach(c *admin.Client) (detach func()) {
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

// GameID is the row of the game being recorded, 0 before the first Welcome.
func (r *Recorder) GameID() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.gameID
}

func (r *Recorder) run(op string, fn func(ctx context.Context, gameID int64) error) {
	r.mu.Lock()
	gameID := r.gameID
	r.mu.Unlock()
	if gameID == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()
	if err := fn(ctx, gameID); err != nil {
		log.Warn().Msgf("store.Recorder %s game=%d err=%v", op, gameID, err)
	}
}

func (r *Recorder) ServerInfoReceived(info admin.ServerInfo) {
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.gameID != 0 {
		return
	}
	id, err := r.store.FindOpenGame(ctx, r.address, info)
	if errors.Is(err, ErrGameNotFound) {
		id, err = r.store.CreateGame(ctx, r.address, info)
	}
	if err != nil {
		log.Error().Msgf("store.Recorder start game addr=%q err=%v", r.address, err)
		return
	}
	r.gameID = id
	r.date = info.StartDate
	log.Info().Msgf("store.Recorder recording game=%d server=%q", id, info.Name)
}

func (r *Recorder) finish(op string) {
	r.run(op, r.store.FinishGame)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gameID = 0
	r.clients = make(map[uint32]uint8)
}

// NewGame closes the current game; the following Welcome opens the next.
func (r *Recorder) NewGame() { r.finish("new game") }

func (r *Recorder) Shutdown() { r.finish("shutdown") }

// Disconnected forgets the game id but leaves the row open; a reconnect
// to the same game picks it up again through FindOpenGame.
func (r *Recorder) Disconnected() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gameID = 0
	r.clients = make(map[uint32]uint8)
}

func (r *Recorder) NewDate(date gamedate.Date) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.date = date
}

func (r *Recorder) currentDate() gamedate.Date {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.date
}

func (r *Recorder) CompanyInfoReceived(info admin.CompanyInfo) {
	r.run("company info", func(ctx context.Context, gameID int64) error {
		return r.store.UpsertCompany(ctx, gameID, info)
	})
}

func (r *Recorder) CompanyUpdated(info admin.CompanyInfo) {
	r.run("company update", func(ctx context.Context, gameID int64) error {
		return r.store.UpsertCompany(ctx, gameID, info)
	})
}

func (r *Recorder) CompanyRemoved(id uint8, reason protocol.RemoveReason) {
	date := r.currentDate()
	r.run("company removed", func(ctx context.Context, gameID int64) error {
		return r.store.CloseCompany(ctx, gameID, id, date, reason)
	})
}

func (r *Recorder) CompanyEconomyReceived(econ admin.CompanyEconomy) {
	date := r.currentDate()
	r.run("economy", func(ctx context.Context, gameID int64) error {
		return r.store.RecordEconomy(ctx, gameID, date, econ)
	})
}

func (r *Recorder) CompanyStatisticsReceived(stats admin.CompanyStatistics) {
	date := r.currentDate()
	r.run("statistics", func(ctx context.Context, gameID int64) error {
		return r.store.RecordStatistics(ctx, gameID, date, stats)
	})
}

// company swaps the remembered company of a client and returns the old one.
func (r *Recorder) company(clientID uint32, companyID uint8) (prev uint8, known bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev, known = r.clients[clientID]
	r.clients[clientID] = companyID
	return prev, known
}

func (r *Recorder) ClientInfoReceived(info admin.ClientInfo) {
	prev, known := r.company(info.ID, info.CompanyID)
	r.run("client info", func(ctx context.Context, gameID int64) error {
		if err := r.store.UpsertClient(ctx, gameID, info); err != nil {
			return err
		}
		if known && prev != info.CompanyID {
			if err := r.store.PlayerLeft(ctx, gameID, info.ID); err != nil {
				return err
			}
		}
		return r.store.PlayerJoined(ctx, gameID, info.ID, info.CompanyID)
	})
}

func (r *Recorder) ClientUpdated(u admin.ClientUpdate) {
	prev, known := r.company(u.ID, u.CompanyID)
	r.run("client update", func(ctx context.Context, gameID int64) error {
		if err := r.store.UpsertClient(ctx, gameID, admin.ClientInfo{ID: u.ID, Name: u.Name, CompanyID: u.CompanyID}); err != nil {
			return err
		}
		if known && prev == u.CompanyID {
			return nil
		}
		if err := r.store.PlayerLeft(ctx, gameID, u.ID); err != nil {
			return err
		}
		return r.store.PlayerJoined(ctx, gameID, u.ID, u.CompanyID)
	})
}

func (r *Recorder) ClientQuit(id uint32) {
	r.mu.Lock()
	delete(r.clients, id)
	r.mu.Unlock()
	r.run("client quit", func(ctx context.Context, gameID int64) error {
		return r.store.PlayerLeft(ctx, gameID, id)
	})
}

// TopCompanies ranks companies of the server currently being recorded.
func (r *Recorder) TopCompanies(ctx context.Context, limit int) ([]TopCompany, error) {
	gameID := r.GameID()
	if gameID == 0 {
		return nil, ErrGameNotFound
	}
	return r.store.TopCompanies(ctx, gameID, limit)
}
