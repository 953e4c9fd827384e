package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	appprompts "github.com/bryanwahyu/prompt-integrity/internal/application/prompts"
	"github.com/bryanwahyu/prompt-integrity/internal/domain/audit"
	"github.com/bryanwahyu/prompt-integrity/internal/domain/bias"
	"github.com/bryanwahyu/prompt-integrity/internal/infra/db/sqlite"
	"github.com/bryanwahyu/prompt-integrity/internal/middleware"
)

func (a *app) historyCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past analyses from the local history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.History.Path == "" {
				return errors.New("history.path is not configured")
			}
			db, err := a.openHistory(cmd)
			if err != nil {
				return err
			}
			defer db.Close()

			svc := appprompts.NewService(nil, a.logger)
			svc.Archive = sqlite.NewAuditRepository(db)
			page, err := svc.History(cmd.Context(), localTenant, 1, middleware.ValidateLimit(limit))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(page.Data) == 0 {
				fmt.Fprintln(out, "no analyses recorded yet")
				return nil
			}
			fmt.Fprintln(out, historyTable(page.Data, a.cfg.Threshold()))
			fmt.Fprintln(out, mutedStyle.Render(fmt.Sprintf("showing %d of %d", len(page.Data), page.Total)))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of records to show (max 100)")
	return cmd
}

// historyTable re-evaluates each stored analysis against the current threshold.
func historyTable(list []*audit.Record, threshold int) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("TIME", "SCORE", "VERDICT", "PROMPT")
	for _, rec := range list {
		score := "-"
		if s, ok := bias.ExtractScore(rec.BiasAnalysis); ok {
			score = fmt.Sprint(s)
		}
		t.Row(
			rec.GeneratedAt.Local().Format("2006-01-02 15:04:05"),
			score,
			string(bias.Evaluate(rec.BiasAnalysis, threshold)),
			preview(rec.OriginalPrompt, 48),
		)
	}
	return t.String()
}

// preview flattens the prompt onto one line and cuts it to n runes.
func preview(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
