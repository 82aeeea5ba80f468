package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"grantdraft/internal/gateway/config"
	"grantdraft/internal/gateway/handler"
	"grantdraft/internal/gateway/server"
	"grantdraft/internal/session"
)

type App struct {
	server   *server.Server
	core     *Core
	sessions *session.Registry
}

func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	core, err := NewCore(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize core: %w", err)
	}

	// Dependencies
	sessions := session.NewRegistry(cfg.Session.Max, cfg.Session.TTL, core.Generator, core.Credentials, core.Session)
	h := handler.New(sessions, core.Credentials, logger.Named("handler"))

	// Routing & Server
	mux := server.NewMux(h, logger.Named("http"))
	srv := server.New(cfg.Port, mux, logger)

	return &App{
		server:   srv,
		core:     core,
		sessions: sessions,
	}, nil
}

func (a *App) Start() error {
	return a.server.Start()
}

func (a *App) Shutdown(ctx context.Context) error {
	err := a.server.Shutdown(ctx)
	a.sessions.Close()
	return errors.Join(err, a.core.Close())
}
