// Package app wires the ops HTTP server and the batch scheduler together.
package app

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/shipops/rate-shopper/internal/config"
	"github.com/shipops/rate-shopper/internal/middleware"
)

type application struct {
	logger *slog.Logger

	router  chi.Router
	httpSrv *http.Server

	runners  []BatchRunner
	afterRun func(error)
	interval time.Duration
	once     bool

	starters []Starter
	closers  []Closer
}

func New(logger *slog.Logger, cfg config.Config) *application {
	router := chi.NewRouter()
	router.Use(chimw.RequestID)
	router.Use(chimw.Recoverer)
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Metrics)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.Cors.AllowedOrigins,
	}))

	httpSrv := &http.Server{
		Handler: router,
		Addr:    net.JoinHostPort(cfg.Http.Host, cfg.Http.Port),
	}

	return &application{
		logger:   logger,
		httpSrv:  httpSrv,
		router:   router,
		afterRun: func(error) {},
	}
}

type HTTPHandler interface {
	Init(r chi.Router)
}

func (a *application) SetHTTPHandlers(handlers ...HTTPHandler) {
	for _, h := range handlers {
		h.Init(a.router)
	}
}

// BatchRunner is one account's two-pass batch.
type BatchRunner interface {
	Run(ctx context.Context) error
}

// SetSchedule configures the batch loop. With once set, the application
// runs each account a single time and stops the scheduler; otherwise it
// repeats every interval.
func (a *application) SetSchedule(once bool, interval time.Duration, afterRun func(error), runners ...BatchRunner) {
	a.once = once
	a.interval = interval
	a.runners = runners
	if afterRun != nil {
		a.afterRun = afterRun
	}
}

// Starter is a background component tied to the application lifetime.
type Starter interface {
	StartJanitor(ctx context.Context)
}

func (a *application) SetStarters(starters ...Starter) {
	a.starters = starters
}

type Closer interface {
	Close() error
}

func (a *application) SetClosers(closers ...Closer) {
	a.closers = closers
}

func (a *application) Start(ctx context.Context) {
	for _, s := range a.starters {
		s.StartJanitor(ctx)
	}

	go a.startServer()
	go a.schedule(ctx)

	a.logger.Info("application started")
}

func (a *application) schedule(ctx context.Context) {
	a.runBatches(ctx)
	if a.once {
		a.logger.Info("single run finished")
		return
	}

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			a.runBatches(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (a *application) runBatches(ctx context.Context) {
	var batchErr error
	for _, r := range a.runners {
		if ctx.Err() != nil {
			return
		}
		if err := r.Run(ctx); err != nil {
			a.logger.Error("batch failed", slog.Any("error", err))
			batchErr = err
		}
	}
	a.afterRun(batchErr)
}

func (a *application) startServer() {
	a.logger.Info("starting http server", slog.String("addr", a.httpSrv.Addr))
	if err := a.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		a.logger.Error("failed to start http server", slog.Any("error", err))
		os.Exit(1)
	}
}

const gracefulShutdownTimeout = 5 * time.Second

func (a *application) Stop() {
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			a.logger.Error("failed to close component", slog.Any("error", err))
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	if err := a.httpSrv.Shutdown(ctx); err != nil {
		a.logger.Error("failed to shutdown http server", slog.Any("error", err))
	}

	a.logger.Info("application stopped")
}
