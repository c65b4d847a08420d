package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"cpm/internal/errs"
)

var (
	logLevel   string
	verbose    bool
	noInit     bool
	noProgress bool
	logToFile  bool
)

// Execute runs the root cobra command and exits with the code of the
// returned error.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(errs.ExitCode(err))
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "cpm",
		Short:         "Configure, build and install CMake projects",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: trace, debug, info, warn, error (default info, or $CPM_LOG_LEVEL)")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Shorthand for --log-level debug")
	cmd.PersistentFlags().BoolVar(&noInit, "no-init", false, "Set by the project entrypoint script; refuses init")
	cmd.PersistentFlags().BoolVar(&noProgress, "no-progress", false, "Disable interactive progress output")
	cmd.PersistentFlags().BoolVar(&logToFile, "log-file", false, "Also write the log to <settings dir>/logs")
	_ = cmd.PersistentFlags().MarkHidden("no-init")

	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newSetupCmd())
	cmd.AddCommand(newBuildCmd())
	cmd.AddCommand(newCacheCmd())

	return cmd
}
