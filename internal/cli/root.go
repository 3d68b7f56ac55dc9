// Package cli implements the tinykern command line.
package cli

import (
	"log/slog"

	"github.com/me/tinykern/internal/logging"
	"github.com/spf13/cobra"
)

var (
	flagDebug     bool
	flagLogLevel  string
	flagLogFormat string
	flagDB        string

	logger *slog.Logger
)

// NewRootCmd creates the root cobra command for the tinykern CLI.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "tinykern",
		Short: "Teaching-kernel MLFQ scheduler simulator",
		Long: "tinykern simulates a multi-level feedback queue thread scheduler,\n" +
			"records its dispatch trace, and serves recorded runs for inspection.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flagDebug {
				flagLogLevel = "debug"
			}
			logger = logging.NewLogger(logging.ParseLevel(flagLogLevel), flagLogFormat)
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flagLogFormat, "log-format", "text", "Log format (text, json)")
	root.PersistentFlags().StringVar(&flagDB, "db", "", "Run database path (default ~/.tinykern/tinykern.db, \"none\" to disable)")

	root.AddCommand(
		newRunCmd(),
		newRunsCmd(),
		newServeCmd(),
	)

	return root
}
