package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"nhooyr.io/websocket"

	"github.com/jg-phare/opencode-teams/pkg/coordinator"
	"github.com/jg-phare/opencode-teams/pkg/spawn"
	"github.com/jg-phare/opencode-teams/pkg/store"
	"github.com/jg-phare/opencode-teams/pkg/teams"
	"github.com/jg-phare/opencode-teams/pkg/transport"
)

const (
	envDir        = "OPENCODE_TEAMS_DIR"
	envBackend    = "OPENCODE_TEAMS_BACKEND"
	envTmuxWindow = "USE_TMUX_WINDOWS"
)

func serveCmd(logLevel *string) *cobra.Command {
	var (
		dir         string
		project     string
		agentBin    string
		backend     string
		tmuxWindows bool
		listen      string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the coordination tools over stdio JSONL (or WebSocket with --listen)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			log := newLogger(*logLevel)

			if dir == "" {
				dir = os.Getenv(envDir)
			}
			if backend == "" {
				backend = os.Getenv(envBackend)
			}
			if !cmd.Flags().Changed("tmux-windows") {
				tmuxWindows = envTruthy(os.Getenv(envTmuxWindow))
			}
			defaultBackend, err := teams.ParseBackend(backend)
			if err != nil {
				return err
			}

			st, err := store.New(dir)
			if err != nil {
				return err
			}
			coord := coordinator.New(st, spawn.Config{
				ProjectDir:     project,
				AgentBin:       agentBin,
				DefaultBackend: defaultBackend,
				UseTmuxWindows: tmuxWindows,
			}, log)

			// Point the project's agent config at this server so spawned
			// teammates can reach the coordination tools.
			projectDir := project
			if projectDir == "" {
				if projectDir, err = os.Getwd(); err != nil {
					return err
				}
			}
			serverCmd := os.Args[0] + " serve"
			serverEnv := map[string]string{}
			if dir != "" {
				serverEnv[envDir] = dir
			}
			if path, err := spawn.EnsureProjectConfig(projectDir, serverCmd, serverEnv); err != nil {
				log.Warn().Err(err).Msg("project config not updated")
			} else {
				log.Debug().Str("path", path).Msg("project config ensured")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if listen != "" {
				return serveWebSocket(ctx, listen, coord, log)
			}

			log.Info().Msg("serving on stdio")
			t := transport.NewStdioTransport(os.Stdin, os.Stdout)
			defer t.Close()
			if err := transport.Serve(ctx, t, coord, log); err != nil && err != context.Canceled {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "state directory (default $"+envDir+" or ~/.opencode-teams)")
	cmd.Flags().StringVar(&project, "project", "", "project directory for spawned teammates (default: cwd)")
	cmd.Flags().StringVar(&agentBin, "agent-bin", "", "agent CLI binary (default: opencode)")
	cmd.Flags().StringVar(&backend, "backend", "", "default spawn backend: terminal or desktop (default $"+envBackend+")")
	cmd.Flags().BoolVar(&tmuxWindows, "tmux-windows", false, "open tmux windows instead of split panes (default $"+envTmuxWindow+")")
	cmd.Flags().StringVar(&listen, "listen", "", "serve WebSocket on this address instead of stdio")
	return cmd
}

// serveWebSocket accepts WebSocket connections and serves each one until
// ctx is cancelled.
func serveWebSocket(ctx context.Context, addr string, coord *coordinator.Coordinator, log zerolog.Logger) error {
	srv := &http.Server{
		Addr: addr,
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			conn, err := websocket.Accept(w, r, nil)
			if err != nil {
				log.Warn().Err(err).Msg("websocket accept")
				return
			}
			t := transport.NewWebSocketTransport(r.Context(), conn)
			defer t.Close()
			if err := transport.Serve(r.Context(), t, coord, log); err != nil && err != context.Canceled {
				log.Warn().Err(err).Msg("websocket session")
			}
		}),
	}
	go func() {
		<-ctx.Done()
		srv.Close()
	}()
	log.Info().Str("addr", addr).Msg("serving on websocket")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// envTruthy interprets the usual affirmative spellings.
func envTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
