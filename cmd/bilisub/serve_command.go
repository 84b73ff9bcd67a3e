package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"bilisub/internal/server"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(ctx *commandContext) *cobra.Command {
	var bind string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the subtitle HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			built, err := ctx.buildComponents(false)
			if err != nil {
				return err
			}
			defer built.Close()

			addr := cfg.Server.Bind
			if cmd.Flags().Changed("bind") {
				addr = strings.TrimSpace(bind)
			}
			srv := server.NewServer(server.ServerConfig{
				Bind:    addr,
				Planner: built.runner,
				Logger:  built.logger,
				Version: version,
			})

			sigCtx, stop := signal.NotifyContext(commandBaseContext(cmd), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Start()
			}()

			select {
			case err := <-errCh:
				return err
			case <-sigCtx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return err
			}
			return <-errCh
		},
	}

	cmd.Flags().StringVar(&bind, "bind", "", "Listen address (default server.bind)")
	return cmd
}
