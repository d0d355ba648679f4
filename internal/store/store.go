// Package store persists game statistics in SQLite: games, companies with
// their economy and vehicle history, clients and play sessions.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/danmuck/ottdctl/internal/admin"
	"github.com/danmuck/ottdctl/internal/gamedate"
	"github.com/danmuck/ottdctl/internal/protocol"
	"github.com/danmuck/ottdctl/internal/store/migrations"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

var (
	ErrPathRequired   = errors.New("store: database path required")
	ErrGameNotFound   = errors.New("store: game not found")
	ErrNoOpenCompany  = errors.New("store: no open company row")
	ErrNotConfigured  = errors.New("store: not configured")
	ErrInvalidLimit   = errors.New("store: limit must be positive")
	ErrConstraintFail = errors.New("store: constraint violation")
)

// Store is a SQLite statistics database.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Game is the stored form of a Welcome.
type Game struct {
	ID         int64
	Address    string
	ServerName string
	MapName    string
	Seed       uint32
	StartDate  gamedate.Date
	SizeX      uint16
	SizeY      uint16
	StartedAt  time.Time
	FinishedAt time.Time
}

// TopCompany is one row of the all-time ranking for a server.
type TopCompany struct {
	Name           string
	TopIncome      int64
	MaxLoan        int64
	TopMoney       int64
	TopValue       int64
	TopPerformance int
	GameStarted    time.Time
	GameFinished   time.Time
}

func toMillis(t time.Time) int64 { return t.UTC().UnixMilli() }

func fromMillis(v sql.NullInt64) time.Time {
	if !v.Valid {
		return time.Time{}
	}
	return time.UnixMilli(v.Int64).UTC()
}

// Open opens path and applies the embedded migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, ErrPathRequired
	}
	dsn := filepath.Clean(path) +
		"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One writer keeps WAL contention out of the listener path.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(ctx, db, migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) ready() error {
	if s == nil || s.db == nil {
		return ErrNotConfigured
	}
	return nil
}

// CreateGame inserts a new game row and returns its id.
func (s *Store) CreateGame(ctx context.Context, address string, info admin.ServerInfo) (int64, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO games (address, server_name, map_name, generation_seed, start_date, map_size_x, map_size_y, started_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		address, info.Name, info.Map, info.Seed, info.StartDate.StorageString(),
		info.SizeX, info.SizeY, toMillis(s.now()),
	)
	if err != nil {
		return 0, fmt.Errorf("insert game: %w", wrapConstraint(err))
	}
	return res.LastInsertId()
}

// FindOpenGame returns the unfinished game on address that matches info,
// so a reconnect keeps recording into the same row.
func (s *Store) FindOpenGame(ctx context.Context, address string, info admin.ServerInfo) (int64, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	var id int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM games
		 WHERE address = ? AND server_name = ? AND generation_seed = ? AND start_date = ? AND finished_at IS NULL
		 ORDER BY id DESC LIMIT 1`,
		address, info.Name, info.Seed, info.StartDate.StorageString(),
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrGameNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("find open game: %w", err)
	}
	return id, nil
}

func (s *Store) Game(ctx context.Context, id int64) (Game, error) {
	if err := s.ready(); err != nil {
		return Game{}, err
	}
	var (
		g         Game
		startDate string
		started   sql.NullInt64
		finished  sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, address, server_name, map_name, generation_seed, start_date, map_size_x, map_size_y, started_at, finished_at
		 FROM games WHERE id = ?`, id,
	).Scan(&g.ID, &g.Address, &g.ServerName, &g.MapName, &g.Seed, &startDate, &g.SizeX, &g.SizeY, &started, &finished)
	if errors.Is(err, sql.ErrNoRows) {
		return Game{}, ErrGameNotFound
	}
	if err != nil {
		return Game{}, fmt.Errorf("get game: %w", err)
	}
	g.StartDate, err = gamedate.ParseStorage(startDate)
	if err != nil {
		return Game{}, fmt.Errorf("get game: %w", err)
	}
	g.StartedAt = fromMillis(started)
	g.FinishedAt = fromMillis(finished)
	return g, nil
}

// FinishGame stamps the game as finished. Finishing twice keeps the first stamp.
func (s *Store) FinishGame(ctx context.Context, id int64) error {
	if err := s.ready(); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE games SET finished_at = COALESCE(finished_at, ?) WHERE id = ?`, toMillis(s.now()), id)
	if err != nil {
		return fmt.Errorf("finish game: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrGameNotFound
	}
	return nil
}

func (s *Store) openCompanyRef(ctx context.Context, q querier, gameID int64, companyID uint8) (int64, error) {
	var ref int64
	err := q.QueryRowContext(ctx,
		`SELECT id FROM companies WHERE game_id = ? AND company_id = ? AND closed IS NULL ORDER BY id DESC LIMIT 1`,
		gameID, companyID,
	).Scan(&ref)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNoOpenCompany
	}
	return ref, err
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// UpsertCompany creates the open company row or refreshes its fields. Delta
// updates leave the founding year untouched.
func (s *Store) UpsertCompany(ctx context.Context, gameID int64, info admin.CompanyInfo) error {
	if err := s.ready(); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert company: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var founded any
	if info.Full {
		founded = info.Inaugurated
	}
	ref, err := s.openCompanyRef(ctx, tx, gameID, info.ID)
	switch {
	case errors.Is(err, ErrNoOpenCompany):
		_, err = tx.ExecContext(ctx,
			`INSERT INTO companies (game_id, company_id, founded, colour, name, manager_name, password_protected)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			gameID, info.ID, founded, uint8(info.Colour), info.Name, info.Manager, info.Passworded,
		)
	case err == nil:
		_, err = tx.ExecContext(ctx,
			`UPDATE companies SET founded = COALESCE(?, founded), colour = ?, name = ?, manager_name = ?, password_protected = ?
			 WHERE id = ?`,
			founded, uint8(info.Colour), info.Name, info.Manager, info.Passworded, ref,
		)
	}
	if err != nil {
		return fmt.Errorf("upsert company %d: %w", info.ID, wrapConstraint(err))
	}
	return tx.Commit()
}

// CloseCompany marks the open company row closed at date.
func (s *Store) CloseCompany(ctx context.Context, gameID int64, companyID uint8, date gamedate.Date, reason protocol.RemoveReason) error {
	if err := s.ready(); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE companies SET closed = ?, closure_reason = ?
		 WHERE game_id = ? AND company_id = ? AND closed IS NULL`,
		date.StorageString(), reason.String(), gameID, companyID,
	)
	if err != nil {
		return fmt.Errorf("close company %d: %w", companyID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNoOpenCompany
	}
	return nil
}

// RecordEconomy appends one economy sample for the open company row.
func (s *Store) RecordEconomy(ctx context.Context, gameID int64, date gamedate.Date, econ admin.CompanyEconomy) error {
	if err := s.ready(); err != nil {
		return err
	}
	ref, err := s.openCompanyRef(ctx, s.db, gameID, econ.ID)
	if err != nil {
		return fmt.Errorf("record economy %d: %w", econ.ID, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO economy (company_ref, game_date, recorded_at, income, loan, money, value, performance)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		ref, date.StorageString(), toMillis(s.now()), econ.Income, econ.Loan, econ.Money, econ.Value(), econ.Performance(),
	)
	if err != nil {
		return fmt.Errorf("record economy %d: %w", econ.ID, wrapConstraint(err))
	}
	return nil
}

// RecordStatistics appends one vehicle/station sample for the open company row.
func (s *Store) RecordStatistics(ctx context.Context, gameID int64, date gamedate.Date, stats admin.CompanyStatistics) error {
	if err := s.ready(); err != nil {
		return err
	}
	ref, err := s.openCompanyRef(ctx, s.db, gameID, stats.ID)
	if err != nil {
		return fmt.Errorf("record statistics %d: %w", stats.ID, err)
	}
	v, st := stats.Vehicles, stats.Stations
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO statistics (company_ref, game_date, recorded_at,
		   num_trains, num_lorries, num_buses, num_planes, num_ships,
		   num_train_stations, num_lorry_stations, num_bus_stops, num_airports, num_harbours)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ref, date.StorageString(), toMillis(s.now()),
		v.Trains, v.Lorries, v.Buses, v.Planes, v.Ships,
		st.Trains, st.Lorries, st.Buses, st.Planes, st.Ships,
	)
	if err != nil {
		return fmt.Errorf("record statistics %d: %w", stats.ID, wrapConstraint(err))
	}
	return nil
}

// UpsertClient stores the latest identity of a client in a game.
func (s *Store) UpsertClient(ctx context.Context, gameID int64, info admin.ClientInfo) error {
	if err := s.ready(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO clients (game_id, client_id, name, address, language) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (game_id, client_id) DO UPDATE SET
		   name = excluded.name,
		   address = CASE WHEN excluded.address = '' THEN clients.address ELSE excluded.address END,
		   language = CASE WHEN excluded.language = '' THEN clients.language ELSE excluded.language END`,
		gameID, info.ID, info.Name, info.Address, languageTag(info.Language),
	)
	if err != nil {
		return fmt.Errorf("upsert client %d: %w", info.ID, wrapConstraint(err))
	}
	return nil
}

func languageTag(l protocol.Language) string {
	if l == protocol.LanguageAny {
		return ""
	}
	return l.String()
}

// PlayerJoined opens a play session of client in company. Spectators have
// no company row and are not recorded.
func (s *Store) PlayerJoined(ctx context.Context, gameID int64, clientID uint32, companyID uint8) error {
	if err := s.ready(); err != nil {
		return err
	}
	if companyID == admin.SpectatorCompany {
		return nil
	}
	ref, err := s.openCompanyRef(ctx, s.db, gameID, companyID)
	if err != nil {
		return fmt.Errorf("player %d joined company %d: %w", clientID, companyID, err)
	}
	var open int
	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM players WHERE game_id = ? AND client_id = ? AND company_ref = ? AND left_at IS NULL`,
		gameID, clientID, ref,
	).Scan(&open)
	if err != nil {
		return fmt.Errorf("player %d lookup: %w", clientID, err)
	}
	if open > 0 {
		return nil
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO players (game_id, client_id, company_ref, joined_at) VALUES (?, ?, ?, ?)`,
		gameID, clientID, ref, toMillis(s.now()),
	)
	if err != nil {
		return fmt.Errorf("player %d joined: %w", clientID, wrapConstraint(err))
	}
	return nil
}

// PlayerLeft closes every open play session of client.
func (s *Store) PlayerLeft(ctx context.Context, gameID int64, clientID uint32) error {
	if err := s.ready(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE players SET left_at = ? WHERE game_id = ? AND client_id = ? AND left_at IS NULL`,
		toMillis(s.now()), gameID, clientID,
	)
	if err != nil {
		return fmt.Errorf("player %d left: %w", clientID, err)
	}
	return nil
}

// OpenPlayers counts play sessions of client that have not ended.
func (s *Store) OpenPlayers(ctx context.Context, gameID int64, clientID uint32) (int, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM players WHERE game_id = ? AND client_id = ? AND left_at IS NULL`,
		gameID, clientID,
	).Scan(&n)
	return n, err
}

// TopCompanies ranks companies of every game played on the same server as
// gameID by their best company value.
func (s *Store) TopCompanies(ctx context.Context, gameID int64, limit int) ([]TopCompany, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT c.name, MAX(e.income), MAX(e.loan), MAX(e.money), MAX(e.value) AS top_value, MAX(e.performance),
		        g.started_at, g.finished_at
		 FROM economy AS e
		 JOIN companies AS c ON e.company_ref = c.id
		 JOIN games AS g ON c.game_id = g.id
		 WHERE g.server_name = (SELECT server_name FROM games WHERE id = ?)
		 GROUP BY e.company_ref
		 ORDER BY top_value DESC
		 LIMIT ?`,
		gameID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("top companies: %w", err)
	}
	defer rows.Close()

	var out []TopCompany
	for rows.Next() {
		var (
			tc       TopCompany
			started  sql.NullInt64
			finished sql.NullInt64
		)
		if err := rows.Scan(&tc.Name, &tc.TopIncome, &tc.MaxLoan, &tc.TopMoney, &tc.TopValue, &tc.TopPerformance, &started, &finished); err != nil {
			return nil, fmt.Errorf("scan top company: %w", err)
		}
		tc.GameStarted = fromMillis(started)
		tc.GameFinished = fromMillis(finished)
		out = append(out, tc)
	}
	return out, rows.Err()
}

func wrapConstraint(err error) error {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code()&0xff == sqlite3lib.SQLITE_CONSTRAINT {
		return fmt.Errorf("%w: %v", ErrConstraintFail, err)
	}
	return err
}
