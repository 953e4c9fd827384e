package main

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	appprompts "github.com/bryanwahyu/prompt-integrity/internal/application/prompts"
	"github.com/bryanwahyu/prompt-integrity/internal/bootstrap"
	"github.com/bryanwahyu/prompt-integrity/internal/domain/audit"
	"github.com/bryanwahyu/prompt-integrity/internal/domain/bias"
	"github.com/bryanwahyu/prompt-integrity/internal/infra/db/sqlite"
)

type analyzeOptions struct {
	prompt    string
	file      string
	threshold int
	saveDir   string
	plain     bool
}

func (a *app) analyzeCmd() *cobra.Command {
	var opts analyzeOptions
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze one prompt and print the bias critique",
		Long: `Sends the prompt to the configured model once and prints the critique,
followed by a verdict against your tolerance threshold.

Example:
  promptcheck analyze --prompt "Why is remote work obviously better?" --threshold 4
  promptcheck analyze --file prompt.txt --save ./audits
  echo "..." | promptcheck analyze --file -`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runAnalyze(cmd, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.prompt, "prompt", "p", "", "prompt text (may be empty)")
	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "read the prompt from a file, - for stdin")
	cmd.Flags().IntVarP(&opts.threshold, "threshold", "t", bias.DefaultThreshold, "bias tolerance threshold (0-10)")
	cmd.Flags().StringVar(&opts.saveDir, "save", "", "write the JSON audit record into this directory")
	cmd.Flags().BoolVar(&opts.plain, "plain", false, "print raw markdown without styling")
	cmd.MarkFlagsMutuallyExclusive("prompt", "file")
	return cmd
}

func (a *app) runAnalyze(cmd *cobra.Command, opts analyzeOptions) error {
	text, err := readPrompt(cmd, opts)
	if err != nil {
		return err
	}

	threshold := a.cfg.Threshold()
	if cmd.Flags().Changed("threshold") {
		threshold = opts.threshold
	}
	if err := bias.ValidateThreshold(threshold); err != nil {
		return err
	}

	client, err := bootstrap.Client(a.cfg)
	if err != nil {
		return err
	}
	svc := appprompts.NewService(client, a.logger)

	// a broken history only costs the archive copy
	db, err := a.openHistory(cmd)
	if err != nil {
		a.logger.Warn("history unavailable, continuing without it", zap.String("path", a.cfg.History.Path), zap.Error(err))
	} else if db != nil {
		defer db.Close()
		svc.Archive = sqlite.NewAuditRepository(db)
	}

	res, err := svc.Analyze(cmd.Context(), appprompts.AnalyzeCommand{
		TenantID:  localTenant,
		SessionID: localSession,
		Prompt:    text,
		Threshold: threshold,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if err := renderAnalysis(out, res.Analysis, opts.plain); err != nil {
		return err
	}
	if err := renderVerdict(out, res.Verdict, opts.plain); err != nil {
		return err
	}

	if opts.saveDir != "" {
		path, err := saveArtifact(opts.saveDir, res.Record)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.ErrOrStderr(), mutedStyle.Render("audit record saved to "+path))
	}
	return nil
}

func readPrompt(cmd *cobra.Command, opts analyzeOptions) (string, error) {
	switch {
	case cmd.Flags().Changed("prompt"):
		return opts.prompt, nil
	case opts.file == "-":
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(b), nil
	case opts.file != "":
		b, err := os.ReadFile(opts.file)
		if err != nil {
			return "", fmt.Errorf("read prompt: %w", err)
		}
		return string(b), nil
	default:
		return "", errors.New("provide the prompt with --prompt or --file")
	}
}

// openHistory opens the local history when history.path is configured.
func (a *app) openHistory(cmd *cobra.Command) (*sql.DB, error) {
	if a.cfg.History.Path == "" {
		return nil, nil
	}
	db, err := sqlite.Open(cmd.Context(), a.cfg.History.Path)
	if err != nil {
		return nil, fmt.Errorf("open history %s: %w", a.cfg.History.Path, err)
	}
	return db, nil
}

func saveArtifact(dir string, rec *audit.Record) (string, error) {
	body, err := audit.MarshalArtifact(rec)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}
	path := filepath.Join(dir, rec.Filename())
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return "", fmt.Errorf("write audit record: %w", err)
	}
	return path, nil
}
