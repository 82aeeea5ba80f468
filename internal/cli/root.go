// Package cli implements the grantdraft command line.
package cli

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"grantdraft/internal/gateway/app"
	"grantdraft/internal/gateway/config"
	"grantdraft/internal/logger"
)

func Execute() error {
	return NewRoot().Execute()
}

// Overridable in tests.
var (
	loadConfig = func() (*config.Config, error) { return config.Load(nil) }
	newCore    = app.NewCore
)

type globals struct {
	verbose bool
}

func NewRoot() *cobra.Command {
	g := &globals{}
	root := &cobra.Command{
		Use:           "grantdraft",
		Short:         "Draft 사회복지공동모금회 grant proposals with Gemini",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "log at debug level")
	root.AddCommand(
		promptCmd(g),
		generateCmd(g),
		credentialCmd(g),
	)
	return root
}

func (g *globals) logger(cfg *config.Config) *zap.Logger {
	level := "warn"
	if g.verbose {
		level = "debug"
	}
	return logger.Must(level, cfg.LogFormat)
}

func (g *globals) core(ctx context.Context) (*app.Core, *config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	core, err := newCore(ctx, cfg, g.logger(cfg))
	if err != nil {
		return nil, nil, err
	}
	return core, cfg, nil
}
