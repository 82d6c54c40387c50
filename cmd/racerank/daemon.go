package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/okian/racerank/internal/adapters/http/api"
	service "github.com/okian/racerank/internal/app"
	"github.com/okian/racerank/internal/config"
	"github.com/okian/racerank/pkg/logger"
	"github.com/okian/racerank/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func validateSchedule(expr string) error {
	if _, err := cron.ParseStandard(expr); err != nil {
		return fmt.Errorf("%w: schedule: %w", config.ErrInvalidConfig, err)
	}
	return nil
}

// cronLogger adapts logger.Logger to cron.Logger and counts skipped ticks.
type cronLogger struct {
	log logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	if msg == "skip" {
		metrics.RecordScheduledSkip()
		l.log.Warn(context.Background(), "previous run still going; tick skipped")
		return
	}
	l.log.Debug(context.Background(), msg, logger.Any("details", keysAndValues))
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error(context.Background(), msg, logger.Error(err), logger.Any("details", keysAndValues))
}

// scheduledJob runs req once per tick and records the outcome.
func scheduledJob(ctx context.Context, svc partitionRunner, req service.Request) func() {
	return func() {
		if ctx.Err() != nil {
			return
		}
		outcome := metrics.OutcomeSuccess
		if err := runOnce(ctx, svc, req); err != nil {
			outcome = metrics.OutcomeFailure
		}
		metrics.RecordScheduledRun(outcome)
	}
}

func newScheduler(ctx context.Context, svc partitionRunner, expr string, req service.Request) (*cron.Cron, error) {
	cl := cronLogger{log: logger.Named("scheduler")}
	c := cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	if _, err := c.AddFunc(expr, scheduledJob(ctx, svc, req)); err != nil {
		return nil, fmt.Errorf("%w: schedule: %w", config.ErrInvalidConfig, err)
	}
	return c, nil
}

// daemon runs req on the cron schedule and serves the ops API until ctx is
// cancelled.
func daemon(ctx context.Context, cfg *config.Config, svc *service.Service, expr string, req service.Request) error {
	log := logger.Get()

	c, err := newScheduler(ctx, svc, expr, req)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.NewServer(svc).Handler(),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- fmt.Errorf("%w: %w", api.ErrServe, err)
		}
		close(serveErr)
	}()

	c.Start()
	log.Info(ctx, "scheduler started", logger.String("schedule", expr))

	var runErr error
	select {
	case <-ctx.Done():
	case err, ok := <-serveErr:
		if ok {
			runErr = err
		}
	}
	log.Info(ctx, "shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	// Wait for an in-flight run to finish.
	select {
	case <-c.Stop().Done():
	case <-shutdownCtx.Done():
		log.Warn(ctx, "scheduled run did not finish before shutdown timeout")
	}

	log.Info(ctx, "stopped")
	return runErr
}
