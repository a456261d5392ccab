package cli

import (
	"log/slog"
	"os"

	"github.com/me/priosim/internal/logging"
	"github.com/spf13/cobra"
)

var (
	flagServer    string
	flagDebug     bool
	flagLogLevel  string
	flagLogFormat string

	logger *slog.Logger
	client *Client
)

// defaultServer returns the default server URL, checking PRIOSIM_SERVER env var first.
func defaultServer() string {
	if s := os.Getenv("PRIOSIM_SERVER"); s != "" {
		return s
	}
	return "http://localhost:8080"
}

// NewRootCmd creates the root cobra command for the priosim CLI.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "priosim",
		Short: "priosim: non-preemptive priority scheduling simulator",
		Long: `priosim simulates non-preemptive priority CPU scheduling one decision at a time.
Lower priority values are scheduled first; ties go to the lower process id.

Run simulations locally with "run", or against a priosim server with
"simulate" and "workloads".`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flagDebug {
				flagLogLevel = "debug"
			}
			logger = logging.NewLogger(logging.ParseLevel(flagLogLevel), flagLogFormat)
			client = NewClient(flagServer, logger)
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flagServer, "server", defaultServer(), "priosim server URL (or PRIOSIM_SERVER env)")
	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flagLogFormat, "log-format", "text", "Log format (text, json)")

	root.AddCommand(
		newRunCmd(),
		newSimulateCmd(),
		newWorkloadsCmd(),
	)

	return root
}
