// Package cli provides the onscale command-line interface.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/onscale/onscale-go/internal/logging"
	"github.com/onscale/onscale-go/internal/version"
)

var (
	// Global flags
	profileAlias string
	portalFlag   string
	tokenFlag    string
	accountFlag  string
	quiet        bool
	verbose      bool
	workers      int

	// Global context for signal handling
	rootContext context.Context
	cancelFunc  context.CancelFunc
)

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "onscale",
		Short: "OnScale cloud simulation client",
		Long: `onscale ` + version.Version + ` - client for the OnScale simulation platform.

Create and submit solver jobs, follow their progress, estimate their cost
and move model and result files, from the command line or from scripts.

Credentials are stored in named profiles (see "onscale configure"); every
command accepts --profile to pick one.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				logging.SetGlobalLevel(-1) // zerolog.DebugLevel
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&profileAlias, "profile", "p", "", "Profile to use (default: the configured default profile)")
	rootCmd.PersistentFlags().StringVar(&portalFlag, "portal", "", "Portal name (overrides the profile)")
	rootCmd.PersistentFlags().StringVar(&tokenFlag, "token", "", "Bearer token (overrides the profile)")
	rootCmd.PersistentFlags().StringVar(&accountFlag, "account-id", "", "Account id (overrides the profile)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress progress bars and informational output")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output (shows debug messages)")
	rootCmd.PersistentFlags().IntVar(&workers, "workers", 4, "Parallel transfer workers")

	rootCmd.Version = version.Version + " (" + version.BuildTime + ")"

	return rootCmd
}

// AddCommands adds all subcommands to the root command.
func AddCommands(rootCmd *cobra.Command) {
	rootCmd.AddCommand(newConfigureCmd())
	rootCmd.AddCommand(newJobCmd())
	rootCmd.AddCommand(newFileCmd())
	rootCmd.AddCommand(newAccountCmd())
}

// Execute runs the CLI. Ctrl+C cancels the command context so in-flight
// transfers and socket listeners shut down cleanly.
func Execute() error {
	rootContext, cancelFunc = context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		for range sigChan {
			cancelFunc()
		}
	}()

	rootCmd := NewRootCmd()
	AddCommands(rootCmd)
	err := rootCmd.Execute()

	signal.Stop(sigChan)
	close(sigChan)
	return err
}

// GetContext returns the command context, cancelled on Ctrl+C.
func GetContext() context.Context {
	if rootContext == nil {
		return context.Background()
	}
	return rootContext
}
