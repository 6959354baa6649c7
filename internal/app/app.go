// Package app wires the tasknest server runtime: config, logging,
// storage selection, HTTP routes, and graceful shutdown.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	authapi "tasknest/internal/auth/api"
	"tasknest/internal/auth/session"
	"tasknest/internal/identity"
	"tasknest/internal/security/password"
	"tasknest/internal/tasks"

	"github.com/jackc/pgx/v5/pgxpool"
)

// App is the server runtime: it owns the HTTP wiring and the storage
// lifecycle.
type App struct {
	cfg Config
	log Logger

	dbPool    *pgxpool.Pool
	dbEnabled bool

	metrics *Metrics
	auth    *authapi.Handler
	tasks   *tasks.Handler
}

// New constructs a fully wired App instance from config and logger.
// Without TASKNEST_DATABASE_URL the app runs on in-memory stores, which
// is for local development only: all data is lost on restart.
func New(ctx context.Context, cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel)
	}

	var (
		pool      *pgxpool.Pool
		dbEnabled bool
		userStore identity.Store
		taskStore tasks.Store
	)

	if cfg.DatabaseURL == "" {
		log.Info("db.disabled.inmemory_store")
		userStore = identity.NewMemoryStore()
		taskStore = tasks.NewMemoryStore()
	} else {
		p, err := NewDBPool(ctx, cfg)
		if err != nil {
			return nil, err
		}
		log.Info("db.enabled.postgres_store")

		users, err := identity.NewPostgresStore(p)
		if err != nil {
			p.Close()
			return nil, err
		}
		taskPG, err := tasks.NewPostgresStore(p)
		if err != nil {
			p.Close()
			return nil, err
		}

		pool = p
		dbEnabled = true
		userStore = users
		taskStore = taskPG
	}

	sessCfg, err := session.LoadConfigFromEnv()
	if err != nil {
		closePool(pool)
		return nil, err
	}
	pwCfg, err := password.FromEnv()
	if err != nil {
		closePool(pool)
		return nil, err
	}
	tokens, err := session.NewJWTManager(sessCfg)
	if err != nil {
		closePool(pool)
		return nil, err
	}

	sessions := session.NewService(sessCfg, userStore, tokens, pwCfg)

	authHandler, err := authapi.NewHandler(log, authapi.LoadConfigFromEnv(), userStore, sessions, pool)
	if err != nil {
		closePool(pool)
		return nil, err
	}
	taskHandler, err := tasks.NewHandler(log, taskStore)
	if err != nil {
		closePool(pool)
		return nil, err
	}

	return &App{
		cfg:       cfg,
		log:       log,
		dbPool:    pool,
		dbEnabled: dbEnabled,
		metrics:   NewMetrics(),
		auth:      authHandler,
		tasks:     taskHandler,
	}, nil
}

// Run starts the HTTP server and blocks until context cancellation or
// fatal server error.
func (a *App) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	registerHTTP(mux, a.log, a.cfg, a.dbPool, a.dbEnabled, a.metrics, a.auth, a.tasks)

	handler := a.metrics.WithMetrics(mux, mux)
	handler = WithCORS(handler, a.cfg, a.log)
	handler = WithSecurityHeaders(handler)
	handler = WithRequestLogging(handler, a.log)

	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	a.log.Info("server.start", "addr", a.cfg.HTTPAddr, "db_enabled", a.dbEnabled)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info("server.stop", "reason", "context_done")
	case err := <-errCh:
		a.log.Error("server.fail", "err", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
		return err
	}

	closePool(a.dbPool)

	a.log.Info("server.stopped")
	return nil
}

func closePool(pool *pgxpool.Pool) {
	if pool != nil {
		pool.Close()
	}
}

func nonZeroDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func nonZeroInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
