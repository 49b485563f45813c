// Package main implements the audit CLI: graduation checks from the
// command line against the same engine and history database as the server.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/warp/curriculum-engine/config"
)

// app carries the state shared by all commands of one invocation.
type app struct {
	// Global flags
	verbose    bool
	configPath string
	dbPath     string
	timeout    time.Duration

	cfg    *config.Config
	logger *zap.Logger
}

// newRootCmd builds the command tree.
func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "audit",
		Short: "Check student transcripts against the curriculum",
		Long: `audit evaluates whether a transcript satisfies the graduation requirements
of the configured curriculum.

Transcripts are Word documents (.docx, .docm, .dotx) or JSON payloads in the
extraction service's shape. Results are stored in the same history database
the server uses unless --save=false is given.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			if a.dbPath != "" {
				cfg.Database.Path = a.dbPath
			}
			a.cfg = cfg

			a.logger, err = config.NewLogger(cfg.Logging, a.verbose)
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable verbose logging")
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "config.yaml", "YAML configuration file")
	root.PersistentFlags().StringVar(&a.dbPath, "db", "", "History database path (overrides config)")
	root.PersistentFlags().DurationVar(&a.timeout, "timeout", 2*time.Minute, "Operation timeout")

	root.AddCommand(a.evaluateCmd())
	root.AddCommand(a.curriculumCmd())
	root.AddCommand(a.historyCmd())
	root.AddCommand(a.reportCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
