package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/desertthunder/replay/internal/server"
	"github.com/desertthunder/replay/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Serve runs the sync loop alongside the metrics/health HTTP server.
//
// Blocks until the context is cancelled, then shuts both down.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	s, err := r.openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	interval := r.config.Sync.PollInterval()
	if secs := cmd.Int("interval"); secs > 0 {
		interval = time.Duration(secs) * time.Second
	}

	engine := tasks.NewSyncEngine(tasks.SyncEngineOpts{
		History:   s.gateway,
		Resolver:  s.resolver,
		Ingestor:  s.ingestor,
		Users:     s.users,
		Interval:  interval,
		RateLimit: r.config.Sync.RateLimit,
		Logger:    r.logger,
	})

	router := server.NewBasicRouter()
	router.Use(server.Logging(r.logger))
	router.Handler(server.NewMetricsHandler())

	serverAddr := fmt.Sprintf("%s:%d", r.config.Server.Host, r.config.Server.Port)
	httpServer := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Info("serving metrics", "addr", serverAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	syncErrors := make(chan error, 1)
	go func() {
		r.logger.Info("starting sync loop", "interval", interval)
		syncErrors <- engine.Run(ctx)
	}()

	select {
	case err = <-serverErrors:
	case err = <-syncErrors:
	case <-ctx.Done():
		err = ctx.Err()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if shutdownErr := httpServer.Shutdown(shutdownCtx); shutdownErr != nil {
		r.logger.Warn("error shutting down server", "error", shutdownErr)
	}

	if err == context.Canceled {
		return nil
	}
	return err
}
