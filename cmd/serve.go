package main

import (
	"context"
	"fmt"
	"net"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/myflix/internal/server"
)

// Serve runs the in-memory development catalog server until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	host := r.config.Server.Host
	if h := cmd.String("host"); h != "" {
		host = h
	}
	port := r.config.Server.Port
	if p := cmd.Int("port"); p > 0 {
		port = int(p)
	}
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	srv := server.New(server.Opts{
		Logger:      r.logger,
		TokenTTL:    cmd.Duration("token-ttl"),
		ExtendedIDs: cmd.Bool("extended-ids"),
	})

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		select {
		case a := <-srv.Started():
			r.writePlain("Serving %d movies on http://%s\n", len(srv.Store().Movies()), a)
			r.writePlain("Press Ctrl+C to stop\n")
		case <-ctx.Done():
		}
	}()

	if err := srv.Run(ctx, addr); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	r.logger.Info("server stopped")
	return nil
}
