package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"taskflow/internal/logger"
	"taskflow/internal/middleware"
	"taskflow/internal/monitoring"
	"taskflow/internal/server"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 30 * time.Second

func serveCmd(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the task API over HTTP",
		Long: `Start the HTTP API.

Examples:
  taskflow serve
  taskflow serve --addr :9090 --backend sqlite`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = a.cfg.GetServerAddr()
			}
			return a.serve(cmd.Context(), addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (defaults to HOST:PORT from the config)")

	return cmd
}

func (a *app) serve(ctx context.Context, addr string) error {
	log := logger.ForService(a.log, "taskflow")

	s, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := prometheus.Register(monitoring.NewStoreCollector(s.store)); err != nil {
		log.WithError(err).Warn("task gauges not registered")
	}

	limiter := middleware.NewRateLimiter(a.cfg.RateLimit)
	health := monitoring.NewHealthChecker()
	if s.rdb != nil {
		health.Register("redis", func(ctx context.Context) error {
			return s.rdb.Ping(ctx).Err()
		})
	}

	router := server.NewRouter(server.Deps{
		Config:  a.cfg,
		Store:   s.store,
		Storage: s.kv,
		Events:  s.events,
		Limiter: limiter,
		Health:  health,
		Logger:  log,
	})

	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
		IdleTimeout:  a.cfg.Server.IdleTimeout,
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)

	g.Go(func() error {
		log.WithField("addr", addr).Info("starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if a.cfg.RateLimit.Enabled {
		g.Go(func() error {
			return limiter.Run(gctx)
		})
	}

	wait := gfshutdown.GracefulShutdown(ctx, shutdownTimeout, map[string]gfshutdown.Operation{
		"http-server": func(ctx context.Context) error {
			log.Info("shutting down HTTP server")
			defer cancel()
			return srv.Shutdown(ctx)
		},
	})

	select {
	case code := <-wait:
		if err := g.Wait(); err != nil {
			return err
		}
		log.WithField("exit_code", code).Info("server stopped")
		if code != 0 {
			return errors.New("graceful shutdown did not complete cleanly")
		}
		return nil
	case <-gctx.Done():
		// the server failed before any shutdown signal arrived
		return g.Wait()
	}
}
