package main

import (
	"github.com/spf13/cobra"

	"github.com/layer-3/leanauth/internal/logging"
)

// logFlags override LOG_LEVEL and LOG_FORMAT when set
type logFlags struct {
	level  string
	format string
}

// resolve prefers the flag values over the given fallbacks
func (f *logFlags) resolve(level, format string) (string, string) {
	if f.level != "" {
		level = f.level
	}
	if f.format != "" {
		format = f.format
	}
	return level, format
}

func newRootCmd() *cobra.Command {
	flags := &logFlags{}

	rootCmd := &cobra.Command{
		Use:   "leanauth",
		Short: "Single sign-on gate for static sites",
		Long: `leanauth serves a directory of static files to users signed in with
the configured identity provider. Everyone else is redirected to sign in.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// pre-config logger; serve re-initializes it from the environment
			logging.Init(flags.resolve("info", "console"))
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&flags.level, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&flags.format, "log-format", "", "Log format (console, json)")

	rootCmd.AddCommand(newServeCmd(flags))
	rootCmd.AddCommand(newSessionCmd())

	return rootCmd
}
