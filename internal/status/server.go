// Package status serves the HTTP status and control API of a running
// admin connection.
package status

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/danmuck/ottdctl/internal/admin"
	"github.com/danmuck/ottdctl/internal/auth"
	"github.com/danmuck/ottdctl/internal/gamestate"
	"github.com/danmuck/ottdctl/internal/observability"
	"github.com/danmuck/ottdctl/internal/protocol/session"
	"github.com/danmuck/ottdctl/internal/services"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const (
	DefaultAddr = "127.0.0.1:8080"
	version     = "0.1.0"
)

// Game is the part of the admin client the API controls.
type Game interface {
	Name() string
	State() session.State
	ExecuteRCon(command string) error
	SendBroadcast(text string) error
}

// State supplies the tracked game view.
type State interface {
	Snapshot() gamestate.Snapshot
}

type Config struct {
	Addr string
	// Token guards the POST routes. Empty leaves them open.
	Token       string
	CORSOrigins []string
}

type Server struct {
	Addr     string
	Appeared time.Time

	game   Game
	state  State
	auth     auth.Validator
	registry *services.Registry
	router   *gin.Engine
	srv    *http.Server
}

// New builds the API. registry may be nil when no components are exposed.
func New(cfg Config, game Game, state State, registry *services.Registry) *Server {
	observability.RegisterMetrics()
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(log.Logger))
	r.Use(observability.RequestMetricsMiddleware(game.Name()))
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(cfg.CORSOrigins),
		AllowMethods: []string{"GET", "POST"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		addr = DefaultAddr
	}
	s := &Server{
		Addr:     addr,
		Appeared: time.Now(),
		game:     game,
		state:    state,
		registry: registry,
		router:   r,
	}
	if s.registry == nil {
		s.registry = services.NewRegistry()
	}
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	if cfg.Token != "" {
		s.auth = auth.StaticToken{Token: cfg.Token}
	}
	s.RegisterRoutes()
	return s
}

func (s *Server) HTTPRouter() *gin.Engine {
	return s.router
}

func (s *Server) RegisterRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(s.Appeared).String(),
			"server":  s.game.Name(),
			"version": version,
		})
	})

	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.router.GET("/ready", func(c *gin.Context) {
		state := s.game.State()
		status := http.StatusOK
		if state != session.StateActive {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{
			"ready":   state == session.StateActive,
			"session": state.String(),
			"server":  s.game.Name(),
		})
	})

	s.router.GET("/server", func(c *gin.Context) {
		c.JSON(http.StatusOK, serverViewOf(s.state.Snapshot(), s.game.State()))
	})

	s.router.GET("/clients", func(c *gin.Context) {
		snap := s.state.Snapshot()
		c.JSON(http.StatusOK, gin.H{"clients": clientViewsOf(snap.Clients)})
	})

	s.router.GET("/companies", func(c *gin.Context) {
		snap := s.state.Snapshot()
		c.JSON(http.StatusOK, gin.H{"companies": companyViewsOf(snap)})
	})

	s.router.GET("/services", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"services": s.registry.List()})
	})

	s.router.GET("/services/:service", func(c *gin.Context) {
		name := c.Param("service")
		out, err := s.registry.Status(name)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, services.ErrServiceNotFound) {
				status = http.StatusNotFound
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"service": name, "status": out})
	})

	control := s.router.Group("/", s.requireToken)
	control.POST("/rcon", s.handleRcon)
	control.POST("/chat", s.handleChat)
	control.POST("/services/:service/actions/:action", s.handleAction)
}

func (s *Server) handleAction(c *gin.Context) {
	out, err := s.registry.Execute(c.Param("service"), c.Param("action"))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, services.ErrServiceNotFound) || errors.Is(err, services.ErrActionNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "output": out})
}

func (s *Server) requireToken(c *gin.Context) {
	if s.auth == nil {
		c.Next()
		return
	}
	token, _ := auth.BearerToken(c.GetHeader("Authorization"))
	if err := s.auth.Validate(token); err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	c.Next()
}

type rconRequest struct {
	Command string `json:"command" binding:"required"`
}

type chatRequest struct {
	Message string `json:"message" binding:"required"`
}

func (s *Server) handleRcon(c *gin.Context) {
	var req rconRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Command) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "command is required"})
		return
	}
	if err := s.game.ExecuteRCon(req.Command); err != nil {
		respondGameError(c, err)
		return
	}
	log.Info().Msgf("status.Server rcon queued command=%q", req.Command)
	c.JSON(http.StatusAccepted, gin.H{"status": "queued", "command": req.Command})
}

func (s *Server) handleChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}
	if err := s.game.SendBroadcast(req.Message); err != nil {
		respondGameError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
}

func respondGameError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, admin.ErrClosed) || errors.Is(err, admin.ErrNotStarted) {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// Serve blocks until Shutdown.
func (s *Server) Serve() error {
	log.Info().Msgf("status.Server listening addr=%s", s.Addr)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}
