// Command racerank computes per-map and global player ratings from race
// records and publishes them per (physics, mode, category) partition.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"

	"github.com/okian/racerank/internal/adapters/cache"
	"github.com/okian/racerank/internal/adapters/notify"
	"github.com/okian/racerank/internal/adapters/repository"
	"github.com/okian/racerank/internal/adapters/repository/postgres"
	service "github.com/okian/racerank/internal/app"
	"github.com/okian/racerank/internal/config"
	"github.com/okian/racerank/internal/pipeline"
	"github.com/okian/racerank/pkg/logger"
)

// Process exit codes.
const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stderr)
	stop()
	os.Exit(code)
}

type flags struct {
	physics  string
	mode     string
	category string
	config   string
	schedule string
	dryRun   bool
}

func (f flags) request() service.Request {
	return service.Request{Physics: f.physics, Mode: f.mode, Category: f.category}
}

func parseFlags(args []string, stderr io.Writer) (flags, error) {
	var f flags
	fs := flag.NewFlagSet("racerank", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&f.physics, "physics", "", "physics to rate: vq3 or cpm (default: both)")
	fs.StringVar(&f.mode, "mode", service.DefaultMode, "game mode to rate")
	fs.StringVar(&f.category, "category", "", "category to rate (default: all)")
	fs.StringVar(&f.config, "config", "", "path to a YAML config file")
	fs.StringVar(&f.schedule, "schedule", "", "cron expression; run as a daemon on this schedule")
	fs.BoolVar(&f.dryRun, "dry-run", false, "compute ratings without publishing to the database")
	if err := fs.Parse(args); err != nil {
		return f, err
	}
	if fs.NArg() > 0 {
		return f, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return f, nil
}

func run(ctx context.Context, args []string, stderr io.Writer) int {
	f, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintln(stderr, err)
		return exitUsage
	}

	// Logger isn't available until the config names its format.
	cfg, err := config.Load(ctx, f.config)
	if err != nil {
		fmt.Fprintln(stderr, "failed to load config: "+err.Error())
		return exitUsage
	}
	if err := logger.Init(logger.WithFormat(cfg.LogFormat), logger.WithWriter(stderr)); err != nil {
		fmt.Fprintln(stderr, "failed to initialize logging: "+err.Error())
		return exitUsage
	}
	_ = logger.SetLevelString(cfg.LogLevel)
	log := logger.Get()

	if _, err := service.Plan(cfg.Modes, f.request()); err != nil {
		log.Error(ctx, "rejected request", logger.Error(err))
		return exitUsage
	}
	if f.schedule != "" {
		if err := validateSchedule(f.schedule); err != nil {
			log.Error(ctx, "rejected schedule", logger.String("schedule", f.schedule), logger.Error(err))
			return exitUsage
		}
	}
	if cfg.PostgresURL == "" {
		log.Error(ctx, "rejected config", logger.Error(fmt.Errorf("%w: postgres_url is required", config.ErrInvalidConfig)))
		return exitUsage
	}

	svc, cleanup, err := wire(ctx, cfg, f.dryRun)
	if err != nil {
		log.Error(ctx, "failed to start", logger.Error(err))
		return exitFailure
	}
	defer cleanup()

	if f.schedule != "" {
		if err := daemon(ctx, cfg, svc, f.schedule, f.request()); err != nil {
			log.Error(ctx, "daemon stopped", logger.Error(err))
			return exitFailure
		}
		return exitOK
	}

	return exitCode(runOnce(ctx, svc, f.request()))
}

// wire connects the stores and mirrors named by cfg and builds the service.
// The returned cleanup closes everything wire opened.
func wire(ctx context.Context, cfg *config.Config, dryRun bool) (*service.Service, func(), error) {
	log := logger.Get()
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	pool, err := postgres.Connect(ctx, cfg.PostgresURL)
	if err != nil {
		return nil, cleanup, err
	}
	closers = append(closers, pool.Close)

	pg := postgres.NewStore(pool)
	var store repository.RatingStore = pg
	var mirrors []pipeline.Mirror
	if dryRun {
		log.Info(ctx, "dry run: publishing to memory only")
		store = repository.NewMemoryStore()
	} else {
		if err := pg.Migrate(ctx); err != nil {
			cleanup()
			return nil, func() {}, err
		}
		if cfg.RedisAddr != "" {
			client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
			closers = append(closers, func() { _ = client.Close() })
			mirrors = append(mirrors, cache.NewLeaderboard(client))
		}
		if len(cfg.KafkaBrokers) > 0 {
			producer := notify.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
			closers = append(closers, func() { _ = producer.Close() })
			mirrors = append(mirrors, producer)
		}
	}

	runner := pipeline.NewRunner(pg, store,
		pipeline.WithModel(cfg.ScoringModel()),
		pipeline.WithActiveWindowMonths(cfg.ActiveWindowMonths),
		pipeline.WithMirrors(mirrors...),
	)
	svc := service.New(runner,
		service.WithWorkerCount(cfg.WorkerCount),
		service.WithModes(cfg.Modes...),
	)
	return svc, cleanup, nil
}

// partitionRunner is the part of the service a single run needs.
type partitionRunner interface {
	Run(ctx context.Context, req service.Request) (service.Summary, error)
}

func runOnce(ctx context.Context, svc partitionRunner, req service.Request) error {
	_, err := svc.Run(ctx, req)
	return err
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, service.ErrInvalidRequest):
		return exitUsage
	default:
		return exitFailure
	}
}
