package server

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mohammad-safakhou/orchestra/config"
	"github.com/mohammad-safakhou/orchestra/internal/agent"
	"github.com/mohammad-safakhou/orchestra/internal/orchestrator"
	"github.com/mohammad-safakhou/orchestra/internal/registry"
	"github.com/mohammad-safakhou/orchestra/provider"
	"github.com/mohammad-safakhou/orchestra/session"
	"github.com/mohammad-safakhou/orchestra/session/inmemory"
	redissession "github.com/mohammad-safakhou/orchestra/session/redis"
)

// Run wires the registry, planner, executor and session store together
// and serves the HTTP API until the listener fails.
func Run(cfg *config.Config) error {
	e := newEcho()

	cards := registry.DefaultAgentCards(cfg.Agents.Endpoints)
	if cfg.Registry.SigningSecret != "" {
		if err := registry.SignAgentCards(cards, cfg.Registry.SigningSecret); err != nil {
			return fmt.Errorf("signing tool cards: %w", err)
		}
	}
	reg, err := registry.NewRegistry(cards, cfg.Registry.SigningSecret, cfg.Registry.RequiredTools)
	if err != nil {
		return fmt.Errorf("building registry: %w", err)
	}

	llm, err := provider.NewProvider(cfg.LLM)
	if err != nil {
		return fmt.Errorf("building llm provider: %w", err)
	}

	inv := agent.NewInvoker(cfg.Agents, reg)
	orch := orchestrator.New(llm, reg, inv)

	store, err := buildSessionStore(cfg.Session)
	if err != nil {
		return err
	}

	h := &ChatHandler{Orch: orch, Store: store, Registry: reg}
	var authMW []echo.MiddlewareFunc
	if cfg.Server.JWTSecret != "" {
		authMW = append(authMW, bearerAuth([]byte(cfg.Server.JWTSecret)))
	}
	h.Register(e, authMW...)

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	if cfg.Telemetry.Enabled {
		e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	}

	addr := cfg.Server.Address
	if addr == "" {
		addr = ":8080"
	}
	log.Printf("listening on %s", addr)
	return e.Start(addr)
}

func newEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, HTTPError{Error: msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Authorization", "Cookie"},
		AllowCredentials: true,
	}))
	return e
}

func buildSessionStore(cfg config.SessionConfig) (session.Store, error) {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = session.DefaultTTL
	}
	sweep := cfg.SweepInterval
	if sweep <= 0 {
		sweep = session.DefaultSweepInterval
	}
	switch cfg.Store {
	case "", "memory":
		st := inmemory.New(ttl)
		st.StartSweeper(context.Background(), sweep)
		return st, nil
	case "redis":
		st, err := redissession.New(context.Background(), cfg.Redis, ttl)
		if err != nil {
			return nil, fmt.Errorf("redis session store: %w", err)
		}
		return st, nil
	default:
		return nil, fmt.Errorf("unknown session store %q", cfg.Store)
	}
}
