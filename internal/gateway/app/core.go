package app

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"grantdraft/internal/credential"
	"grantdraft/internal/gateway/config"
	"grantdraft/internal/genclient"
	"grantdraft/internal/prompt"
	"grantdraft/internal/session"
)

// Core is the dependency set shared by the gateway and the CLI.
type Core struct {
	Credentials *credential.Provider
	Generator   genclient.Generator
	Session     session.Options

	closer  io.Closer
	limiter *genclient.Limiter
}

func NewCore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Core, error) {
	store, closer, err := initCredentialStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	creds := credential.NewProvider(ctx, cfg.APIKey(), store, logger.Named("credential"))
	if cfg.CredentialOverridable() {
		creds.AllowOverride()
	}

	gemini, err := genclient.NewGeminiClient(genclient.Options{
		BaseURL: cfg.Gemini.BaseURL,
		Timeout: cfg.Gemini.Timeout,
	})
	if err != nil {
		_ = closer.Close()
		return nil, fmt.Errorf("failed to initialize gemini client: %w", err)
	}
	limiter := genclient.NewLimiter(cfg.Gemini.RPS, cfg.Gemini.Burst)
	gen := genclient.Wrap(gemini,
		genclient.WithTracing(nil),
		genclient.WithMetrics(),
		genclient.WithLogging(logger.Named("genclient")),
		genclient.WithRateLimit(limiter),
	)

	tpl, err := prompt.Lookup(cfg.Prompt.Style)
	if err != nil {
		limiter.Stop()
		_ = closer.Close()
		return nil, err
	}
	policy, err := session.ParsePolicy(cfg.Credential.Policy)
	if err != nil {
		limiter.Stop()
		_ = closer.Close()
		return nil, err
	}

	return &Core{
		Credentials: creds,
		Generator:   gen,
		Session: session.Options{
			Template:   tpl,
			Sanitize:   cfg.Prompt.Sanitize,
			FieldLimit: cfg.Prompt.FieldLimit,
			Policy:     policy,
			Logger:     logger.Named("session"),
		},
		closer:  closer,
		limiter: limiter,
	}, nil
}

func (c *Core) Close() error {
	if c == nil {
		return nil
	}
	c.limiter.Stop()
	if c.closer == nil {
		return nil
	}
	return c.closer.Close()
}
