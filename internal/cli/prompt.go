package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"grantdraft/internal/ingest"
	"grantdraft/internal/proposal"
	"grantdraft/internal/session"
)

type formFlags struct {
	form   string
	attach string
	style  string
}

func (f *formFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.form, "file", "f", "", "YAML or JSON form file (agency, project, style)")
	cmd.Flags().StringVar(&f.attach, "attach", "", "reference PDF to attach")
	cmd.Flags().StringVar(&f.style, "style", "", "prompt style: standard, detailed or concise")
	_ = cmd.MarkFlagRequired("file")
}

// load fills s from the form file and flags.
func (f *formFlags) load(s *session.Session) error {
	form, err := proposal.LoadForm(f.form)
	if err != nil {
		return err
	}
	if f.style != "" {
		form.Style = f.style
	}
	if _, err := s.ApplyForm(form); err != nil {
		return err
	}
	if f.attach == "" {
		return nil
	}
	file, err := os.Open(f.attach)
	if err != nil {
		return err
	}
	defer file.Close()
	info, err := file.Stat()
	if err != nil {
		return err
	}
	if _, err := s.Attach(filepath.Base(f.attach), mimeFor(f.attach), info.Size(), file); err != nil {
		var verr *ingest.ValidationError
		if errors.As(err, &verr) {
			return fmt.Errorf("%s: %s", f.attach, verr.Notice)
		}
		return err
	}
	return nil
}

func promptCmd(g *globals) *cobra.Command {
	var ff formFlags
	cmd := &cobra.Command{
		Use:   "prompt",
		Short: "Print the assembled prompt for a form",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			opts := session.Options{
				Sanitize:   cfg.Prompt.Sanitize,
				FieldLimit: cfg.Prompt.FieldLimit,
				Logger:     g.logger(cfg),
			}
			s := session.New("cli", nil, nil, opts)
			if _, err := s.SetStyle(cfg.Prompt.Style); err != nil {
				return err
			}
			if err := ff.load(s); err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), s.Prompt())
			return err
		},
	}
	ff.register(cmd)
	return cmd
}

func mimeFor(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return proposal.PDFMimeType
	}
	return "application/octet-stream"
}
