package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bryanwahyu/prompt-integrity/internal/config"
	"github.com/bryanwahyu/prompt-integrity/internal/logging"
)

// Records made from the terminal share one tenant and session.
const (
	localTenant  = "local"
	localSession = "cli"
)

type app struct {
	// Global flags
	configPath string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "promptcheck",
		Short: "Score a prompt for cognitive bias before you send it",
		Long: `promptcheck asks a chat-completion model to score a prompt for cognitive
bias (confirmation bias, emotional skew, framing assumptions) on a 0-10 scale,
explain the bias markers and suggest two alternate framings.

The score is compared against your tolerance threshold and each run can be
exported as a JSON audit record.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.init,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default $CONFIG_PATH or config.yaml)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "debug logging on stderr")

	root.AddCommand(a.analyzeCmd(), a.historyCmd(), a.verdictCmd())
	return root
}

func (a *app) init(cmd *cobra.Command, args []string) error {
	path := a.configPath
	if path == "" {
		path = "config.yaml"
		if v := os.Getenv("CONFIG_PATH"); v != "" {
			path = v
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("config load error: %w", err)
	}
	a.cfg = cfg

	// the terminal is for results; only problems are logged unless asked
	level := "warn"
	if a.verbose {
		level = "debug"
	}
	logger, err := logging.New(level, cfg.Logging.Development)
	if err != nil {
		return err
	}
	a.logger = logger
	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
