package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/p-n-ai/course-player/internal/course"
	"github.com/p-n-ai/course-player/internal/platform/cache"
	"github.com/p-n-ai/course-player/internal/platform/config"
	"github.com/p-n-ai/course-player/internal/platform/database"
	"github.com/p-n-ai/course-player/internal/platform/logging"
	"github.com/p-n-ai/course-player/internal/player"
	"github.com/p-n-ai/course-player/internal/registration"
	"github.com/p-n-ai/course-player/internal/runtime"
	"github.com/p-n-ai/course-player/internal/server"
)

func main() {
	// A missing .env is fine; the environment may already be set.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to read .env", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(logging.New(cfg.Log))

	// Graceful shutdown on SIGTERM/SIGINT.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		slog.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer a.close()

	sweeper, err := server.StartSweeper(a.sessions, cfg.Session.SweepInterval, cfg.Session.IdleTimeout)
	if err != nil {
		slog.Error("failed to start session sweeper", "error", err)
		os.Exit(1)
	}
	defer sweeper.Stop()

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      a.handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", srv.Addr, "runtime_host", cfg.Runtime.Host, "preview_store", cfg.Runtime.Local)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
	if err := a.sessions.CloseAll(shutdownCtx); err != nil {
		slog.Error("closing sessions", "error", err)
	}
}

// app holds the wired dependencies behind the HTTP handler.
type app struct {
	handler  http.Handler
	sessions *server.Manager
	closers  []func()
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{}
	fail := func(err error) (*app, error) {
		a.close()
		return nil, err
	}

	loader, err := course.NewLoader(cfg.ContentPath)
	if err != nil {
		return fail(err)
	}

	var (
		regs   registration.Store = registration.NewMemoryStore()
		events player.EventLogger = player.NopEventLogger{}
		tokens                    = server.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.TTL())
		deps                      = server.RuntimeDeps{Tokens: tokens, Logger: slog.Default()}
		ready                     = map[string]func(context.Context) error{}
		hosted func(context.Context, string) (runtime.API, error)
	)

	if cfg.Database.URL != "" {
		db, err := database.Open(ctx, cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns)
		if err != nil {
			return fail(err)
		}
		a.closers = append(a.closers, db.Close)
		ready["database"] = db.HealthCheck

		pgRegs, err := registration.NewPostgresStore(db.Pool)
		if err != nil {
			return fail(err)
		}
		regs = pgRegs
		events = player.NewPostgresEventLogger(db.Pool)
		deps.Pool = db.Pool
		hosted = func(_ context.Context, registrationID string) (runtime.API, error) {
			reg, err := pgRegs.Get(registrationID)
			if err != nil {
				return nil, err
			}
			if !reg.Active() {
				return nil, server.ErrRegistrationEnded
			}
			return runtime.NewPostgresHost(db.Pool, reg.ID), nil
		}
	}

	if cfg.Cache.URL != "" {
		c, err := cache.New(ctx, cfg.Cache.URL)
		if err != nil {
			return fail(err)
		}
		a.closers = append(a.closers, func() { c.Close() })
		ready["cache"] = c.HealthCheck
		deps.Redis = c.Client
	}

	if cfg.Runtime.Local == config.LocalSQLite {
		sdb, err := runtime.OpenSQLite(ctx, cfg.Runtime.SQLitePath)
		if err != nil {
			return fail(err)
		}
		a.closers = append(a.closers, func() { sdb.Close() })
		deps.SQLite = sdb
	}

	runtimes, err := server.NewRuntimes(cfg.Runtime, deps)
	if err != nil {
		return fail(err)
	}

	a.sessions = server.NewManager(server.ManagerConfig{
		Courses:       loader,
		Registrations: regs,
		Runtimes:      runtimes,
		Events:        events,
	})
	a.handler = server.New(server.Config{
		Sessions:      a.sessions,
		Courses:       loader,
		Registrations: regs,
		Tokens:        tokens,
		CORSOrigins:   cfg.CORSOrigins,
		HostedRuntime: hosted,
		ReadyChecks:   ready,
	}).Handler()
	return a, nil
}
