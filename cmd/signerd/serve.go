package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/uhyunpark/nostr-signerd/pkg/api"
)

func newServeCmd(envPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the NIP-07 provider over HTTP and WebSocket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := newDaemon(*envPath, true)
			if err != nil {
				return err
			}
			defer d.Close()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			server := api.NewServer(d.provider, d.journal, d.cfg.API.AllowedOrigins, d.sugar)
			errCh := make(chan error, 1)
			go func() { errCh <- server.Start(d.cfg.API.Addr) }()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			d.sugar.Info("shutdown signal received")
			// in-flight signatures get one extra poll interval
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second+d.cfg.Poll.Interval)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				d.sugar.Warnw("api_shutdown_incomplete", "error", err)
			}
			d.sugar.Info("shutdown complete")
			return nil
		},
	}
}
