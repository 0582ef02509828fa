package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jg-phare/opencode-teams/pkg/inbox"
	"github.com/jg-phare/opencode-teams/pkg/store"
	"github.com/jg-phare/opencode-teams/pkg/teams"
)

func watchCmd(logLevel *string) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "watch <team> <agent>",
		Short: "Tail an agent's inbox, printing messages as they arrive",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger(*logLevel)
			team, agent := args[0], args[1]

			if dir == "" {
				dir = os.Getenv(envDir)
			}
			st, err := store.New(dir)
			if err != nil {
				return err
			}
			registry := teams.NewRegistry(st)
			ib := inbox.New(st, registry)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			ch, err := ib.Watch(ctx, team, agent)
			if err != nil {
				return err
			}
			log.Info().Str("team", team).Str("agent", agent).Msg("watching inbox")
			for msg := range ch {
				ts := time.UnixMilli(msg.Timestamp).Format(time.RFC3339)
				fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s -> %s (%s): %s\n",
					ts, msg.From, msg.To, msg.Type, msg.Content)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "state directory (default $"+envDir+" or ~/.opencode-teams)")
	return cmd
}
