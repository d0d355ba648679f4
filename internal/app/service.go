// Package app wires a loaded configuration into running components: the
// admin client, the game state tracker, and the optional bot, Slack bridge,
// statistics store and status API.
package app

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/danmuck/ottdctl/internal/admin"
	"github.com/danmuck/ottdctl/internal/bot"
	"github.com/danmuck/ottdctl/internal/config"
	"github.com/danmuck/ottdctl/internal/gamestate"
	"github.com/danmuck/ottdctl/internal/services"
	"github.com/danmuck/ottdctl/internal/slack"
	"github.com/danmuck/ottdctl/internal/status"
	"github.com/danmuck/ottdctl/internal/store"
	"github.com/rs/zerolog/log"
)

// Service owns every component built from one Config.
type Service struct {
	cfg config.Config

	client   *admin.Client
	tracker  *gamestate.Tracker
	registry *services.Registry

	db       *store.Store
	recorder *store.Recorder
	bot      *bot.Bot
	slack    *slack.Client
	status   *status.Server

	detach []func()
}

// New builds the components but starts nothing.
func New(ctx context.Context, cfg config.Config) (*Service, error) {
	client, err := admin.New(cfg.Admin)
	if err != nil {
		return nil, err
	}
	s := &Service{
		cfg:      cfg,
		client:   client,
		tracker:  gamestate.New(),
		registry: services.NewRegistry(),
	}
	s.detach = append(s.detach, s.tracker.Attach(client))

	if cfg.Store.Enabled {
		db, err := store.Open(ctx, cfg.Store.Path)
		if err != nil {
			return nil, err
		}
		s.db = db
		s.recorder = store.NewRecorder(db, cfg.Admin.Address)
		s.detach = append(s.detach, s.recorder.Attach(client))
	}

	var locator bot.Locator
	if cfg.Bot.GeoIP {
		locator = bot.NewGeoIP(cfg.Bot.GeoIPURL, cfg.Bot.GeoIPTimeout)
	}

	var notifier bot.Notifier
	if cfg.Slack.Enabled {
		sc, err := slack.New(cfg.Slack.Config, client, s.tracker)
		if err != nil {
			s.closeStore()
			return nil, err
		}
		s.slack = sc
		s.detach = append(s.detach, sc.Attach(client))
		notifier = cfg.Slack.Filter(sc)
		reporter := bot.NewReporter(notifier)
		if locator != nil {
			reporter.SetLocator(locator)
		}
		s.detach = append(s.detach, reporter.Attach(client))
	}

	if cfg.Bot.Enabled {
		var fame bot.HallOfFame
		if s.recorder != nil {
			fame = s.recorder
		}
		s.bot = bot.New(cfg.Bot.Config, client, s.tracker, fame, notifier, nil)
		if locator != nil {
			s.bot.SetLocator(locator)
		}
		s.detach = append(s.detach, s.bot.Attach(client))
	}

	if err := s.registerServices(); err != nil {
		s.closeStore()
		return nil, err
	}
	if cfg.Status.Enabled {
		s.status = status.New(cfg.Status.Config, client, s.tracker, s.registry)
	}
	return s, nil
}

// Client exposes the admin client for one-shot commands.
func (s *Service) Client() *admin.Client { return s.client }

func (s *Service) Tracker() *gamestate.Tracker { return s.tracker }

func (s *Service) Registry() *services.Registry { return s.registry }

// Run blocks until SIGINT or SIGTERM.
func (s *Service) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return s.RunContext(ctx)
}

// RunContext starts the components, waits for ctx and shuts down in reverse
// order.
func (s *Service) RunContext(ctx context.Context) error {
	if err := s.cfg.Updates.Apply(s.client); err != nil {
		return fmt.Errorf("apply subscriptions: %w", err)
	}
	if err := s.client.Start(ctx); err != nil {
		return err
	}
	log.Info().Msgf("app.Service start server=%q addr=%s", s.client.Name(), s.cfg.Admin.Address)

	if s.slack != nil {
		if err := s.slack.Start(ctx); err != nil {
			s.shutdown()
			return err
		}
	}

	serveErr := make(chan error, 1)
	if s.status != nil {
		go func() { serveErr <- s.status.Serve() }()
		log.Info().Msgf("app.Service status api listening addr=%s", s.cfg.Status.Addr)
	}

	var err error
	select {
	case <-ctx.Done():
	case err = <-serveErr:
		if err != nil {
			err = fmt.Errorf("status api: %w", err)
		}
	}
	return errors.Join(err, s.shutdown())
}

// Close releases resources of a service that was never run.
func (s *Service) Close() error {
	return s.shutdown()
}

func (s *Service) shutdown() error {
	var errs []error
	if s.status != nil {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Admin.Session.WriteTimeout)
		if err := s.status.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("status api: %w", err))
		}
		cancel()
	}
	if s.slack != nil {
		if err := s.slack.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.client.Close(); err != nil {
		errs = append(errs, err)
	}
	for i := len(s.detach) - 1; i >= 0; i-- {
		s.detach[i]()
	}
	s.detach = nil
	if err := s.closeStore(); err != nil {
		errs = append(errs, err)
	}
	log.Info().Msgf("app.Service stopped server=%q", s.client.Name())
	return errors.Join(errs...)
}

func (s *Service) closeStore() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *Service) registerServices() error {
	list := []services.Service{s.adminService()}
	if s.db != nil {
		list = append(list, s.storeService())
	}
	if s.bot != nil {
		list = append(list, s.botService())
	}
	if s.slack != nil {
		list = append(list, services.Func{ServiceName: "slack", StatusFunc: func() (any, error) {
			return map[string]any{"channel": s.cfg.Slack.Channel}, nil
		}})
	}
	for _, svc := range list {
		if err := s.registry.Register(svc); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) adminService() services.Service {
	queued := func(run func() error) services.Action {
		return func() (string, error) {
			if err := run(); err != nil {
				return "", err
			}
			return "requested", nil
		}
	}
	return services.Func{
		ServiceName: "admin",
		StatusFunc: func() (any, error) {
			return map[string]any{
				"server":   s.client.Name(),
				"address":  s.cfg.Admin.Address,
				"session":  s.client.State().String(),
				"protocol": s.client.ProtocolVersion(),
			}, nil
		},
		ActionSet: map[string]services.Action{
			"date":      queued(s.client.RequestDate),
			"clients":   queued(s.client.RequestAllClientsInfo),
			"companies": queued(s.client.RequestAllCompaniesInfo),
			"server":    queued(s.client.RequestServerInfo),
			"economy":   queued(s.client.RequestCompanyEconomy),
			"stats":     queued(s.client.RequestCompanyStatistics),
		},
	}
}

func (s *Service) storeService() services.Service {
	return services.Func{
		ServiceName: "store",
		StatusFunc: func() (any, error) {
			return map[string]any{"path": s.cfg.Store.Path, "game": s.recorder.GameID()}, nil
		},
		ActionSet: map[string]services.Action{
			"top": func() (string, error) {
				top, err := s.recorder.TopCompanies(context.Background(), s.cfg.Bot.TopLimit)
				if err != nil {
					return "", err
				}
				lines := make([]string, 0, len(top))
				for i, c := range top {
					lines = append(lines, fmt.Sprintf("%d. %s value=%d performance=%d", i+1, c.Name, c.TopValue, c.TopPerformance))
				}
				return strings.Join(lines, "\n"), nil
			},
		},
	}
}

func (s *Service) botService() services.Service {
	return services.Func{
		ServiceName: "bot",
		StatusFunc: func() (any, error) {
			cmds := s.bot.Commands().List()
			names := make([]string, 0, len(cmds))
			for _, c := range cmds {
				names = append(names, c.Name)
			}
			return map[string]any{"commands": names}, nil
		},
	}
}
