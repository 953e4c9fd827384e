package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/bryanwahyu/prompt-integrity/internal/domain/bias"
)

func (a *app) verdictCmd() *cobra.Command {
	var (
		threshold int
		plain     bool
	)
	cmd := &cobra.Command{
		Use:   "verdict",
		Short: "Evaluate a saved model response read from stdin",
		Long: `Reads a previously saved response on stdin, extracts its bias score and
prints the verdict. Nothing is sent over the network.

Example:
  promptcheck verdict --threshold 3 < response.md`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("threshold") {
				threshold = a.cfg.Threshold()
			}
			if err := bias.ValidateThreshold(threshold); err != nil {
				return err
			}
			text, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("read stdin: %w", err)
			}

			v := bias.Evaluate(string(text), threshold)
			out := cmd.OutOrStdout()
			if score, ok := bias.ExtractScore(string(text)); ok {
				fmt.Fprintf(out, "score: %d (threshold %d)\n", score, threshold)
			} else {
				fmt.Fprintln(out, "score: not found")
			}
			return renderVerdict(out, v, plain)
		},
	}
	cmd.Flags().IntVarP(&threshold, "threshold", "t", bias.DefaultThreshold, "bias tolerance threshold (0-10)")
	cmd.Flags().BoolVar(&plain, "plain", false, "print without styling")
	return cmd
}
