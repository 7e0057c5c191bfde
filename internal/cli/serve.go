package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/lazypower/rapport/internal/metrics"
	"github.com/lazypower/rapport/internal/server"
)

const (
	shutdownTimeout   = 5 * time.Second
	readHeaderTimeout = 10 * time.Second
	sessionPurgeEvery = time.Hour
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	m := metrics.NewManager()
	eng, err := a.engine(true, m)
	if err != nil {
		return err
	}

	srv := server.New(a.db, eng, VersionString(),
		server.WithMetrics(m),
		server.WithLogger(a.logger),
		server.WithRequireSession(a.cfg.Server.RequireSession))
	addr := a.cfg.ListenAddr()

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	if a.cfg.Server.RequireSession {
		go purgeSessions(ctx, a)
	}

	errc := make(chan error, 1)
	go func() {
		a.logger.Info("rapport serving", "addr", addr, "db", a.db.Path, "version", VersionString())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	a.logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return httpServer.Shutdown(shutdownCtx)
}

func purgeSessions(ctx context.Context, a *app) {
	ticker := time.NewTicker(sessionPurgeEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := a.db.PurgeExpiredSessions(ctx); err != nil {
				a.logger.Warn("session purge failed", "error", err)
			} else if n > 0 {
				a.logger.Info("purged expired sessions", "count", n)
			}
		}
	}
}
