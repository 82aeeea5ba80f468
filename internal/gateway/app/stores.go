package app

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"grantdraft/internal/credential"
	"grantdraft/internal/gateway/config"
)

// initCredentialStore picks the Postgres store when a DSN is set and the
// local file otherwise.
func initCredentialStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (credential.Store, io.Closer, error) {
	store, err := credential.NewStore(ctx, cfg.Credential.PostgresDSN, cfg.Credential.File)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize credential store: %w", err)
	}
	if pg, ok := store.(*credential.PostgresStore); ok {
		logger.Info("credential store: postgres")
		return pg, pg, nil
	}
	logger.Info("credential store: file", zap.String("path", cfg.Credential.File))
	return store, nopCloser{}, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
