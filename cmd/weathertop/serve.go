package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dsablic/weathertop/internal/server"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard data as a JSON API",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	cmd.Flags().String("listen", "", "Address to listen on (default: from config)")
	cmd.Flags().Bool("access-log", true, "Log every request to stderr")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	client, err := newClient(ctx, cfg)
	if err != nil {
		return err
	}
	accessLog, _ := cmd.Flags().GetBool("access-log")
	addr := stringFlag(cmd, "listen", cfg.ListenAddr)

	app := server.New(client, server.Options{
		Sources: map[string]string{
			"stats":    cfg.Endpoints.Stats,
			"no-tests": cfg.Endpoints.NoTests,
			"coverage": serviceCoverage.label(cfg),
			"model":    modelCoverage.label(cfg),
		},
		RequestTimeout: cfg.Timeout(),
		AccessLog:      accessLog,
	})

	errc := make(chan error, 1)
	go func() {
		errc <- app.Listen(addr)
	}()
	fmt.Fprintf(os.Stderr, "Listening on %s\n", addr)

	select {
	case err := <-errc:
		return fmt.Errorf("listen %s: %w", addr, err)
	case <-ctx.Done():
	}

	slog.Debug("shutting down", "addr", addr)
	if err := app.ShutdownWithTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
