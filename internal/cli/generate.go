package cli

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"grantdraft/internal/safeio"
	"grantdraft/internal/session"
)

func generateCmd(g *globals) *cobra.Command {
	var (
		ff  formFlags
		out string
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a proposal draft from a form",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			core, cfg, err := g.core(ctx)
			if err != nil {
				return err
			}
			defer core.Close()

			s := session.New("cli", core.Generator, core.Credentials, core.Session)
			if _, err := s.SetStyle(cfg.Prompt.Style); err != nil {
				return err
			}
			if err := ff.load(s); err != nil {
				return err
			}

			switch err := s.Submit(ctx); {
			case errors.Is(err, session.ErrCredentialRequired):
				return errors.New("no API key: set GEMINI_API_KEY or run `grantdraft credential set <key>`")
			case errors.Is(err, session.ErrTitleRequired):
				return errors.New(session.NoticeTitleRequired)
			case err != nil:
				return err
			}
			snap, err := s.Await(ctx)
			if err != nil {
				return err
			}
			if snap.Notice.Kind == session.NoticeError {
				return errors.New(snap.Notice.Message)
			}

			if out == "" {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), snap.Result)
				return err
			}
			return writeOutput(out, snap.Result)
		},
	}
	ff.register(cmd)
	cmd.Flags().StringVarP(&out, "output", "o", "", "write the markdown draft to this file")
	return cmd
}

func writeOutput(path, text string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	root, err := safeio.NewSafeFS(filepath.Dir(abs))
	if err != nil {
		return err
	}
	return root.SafeWriteFile(filepath.Base(abs), []byte(text+"\n"), 0o644)
}
