// opencode-teams is the team coordination server: it manages team
// configuration, the task board, per-agent inboxes, and teammate process
// lifecycle, and serves the coordination tools over stdio JSONL or
// WebSocket.
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var logLevel string
	cmd := &cobra.Command{
		Use:           "opencode-teams",
		Short:         "Coordination server for teams of coding agents",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (trace, debug, info, warn, error)")
	cmd.AddCommand(serveCmd(&logLevel), templatesCmd(), watchCmd(&logLevel))
	return cmd
}

// newLogger builds the process logger: console output on stderr, since
// stdout may carry the JSONL protocol.
func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(lvl).
		With().Timestamp().Logger()
}
