package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	service "github.com/okian/racerank/internal/app"
	"github.com/okian/racerank/internal/config"
	"github.com/okian/racerank/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(logger.WithWriter(io.Discard)); err != nil {
		panic(err)
	}
}

type stubService struct {
	mu      sync.Mutex
	calls   int
	err     error
	release chan struct{}
	started chan struct{}
}

func (s *stubService) Run(_ context.Context, req service.Request) (service.Summary, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.started != nil {
		s.started <- struct{}{}
	}
	if s.release != nil {
		<-s.release
	}
	return service.Summary{RunID: "run-1"}, s.err
}

func (s *stubService) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func clearEnv(t *testing.T) {
	for _, k := range []string{"RACERANK_CONFIG", "RACERANK_POSTGRES_URL", "RACERANK_MODES", "RACERANK_REDIS_ADDR", "RACERANK_KAFKA_BROKERS"} {
		t.Setenv(k, "")
		_ = os.Unsetenv(k)
	}
}

func TestParseFlags(t *testing.T) {
	convey.Convey("Given command line arguments", t, func() {
		var stderr bytes.Buffer

		convey.Convey("When no flags are given", func() {
			f, err := parseFlags(nil, &stderr)

			convey.Convey("Then every partition of the default mode is requested", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(f.request(), convey.ShouldResemble, service.Request{Mode: "run"})
				convey.So(f.dryRun, convey.ShouldBeFalse)
				convey.So(f.schedule, convey.ShouldBeEmpty)
			})
		})

		convey.Convey("When every flag is set", func() {
			f, err := parseFlags([]string{
				"-physics", "cpm", "-mode", "run", "-category", "rocket",
				"-config", "cfg.yaml", "-schedule", "@daily", "-dry-run",
			}, &stderr)

			convey.Convey("Then they should all be read", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(f.request(), convey.ShouldResemble, service.Request{Physics: "cpm", Mode: "run", Category: "rocket"})
				convey.So(f.config, convey.ShouldEqual, "cfg.yaml")
				convey.So(f.schedule, convey.ShouldEqual, "@daily")
				convey.So(f.dryRun, convey.ShouldBeTrue)
			})
		})

		convey.Convey("When positional arguments follow the flags", func() {
			_, err := parseFlags([]string{"-physics", "vq3", "extra"}, &stderr)

			convey.Convey("Then parsing should fail", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})
	})
}

func TestRunRejectsBeforeConnecting(t *testing.T) {
	convey.Convey("Given a clean environment", t, func() {
		clearEnv(t)
		ctx := context.Background()
		var stderr bytes.Buffer

		convey.Convey("When an unknown flag is passed", func() {
			convey.So(run(ctx, []string{"-bogus"}, &stderr), convey.ShouldEqual, exitUsage)
		})

		convey.Convey("When the category is unknown", func() {
			convey.So(run(ctx, []string{"-category", "hook"}, &stderr), convey.ShouldEqual, exitUsage)
			convey.So(stderr.String(), convey.ShouldContainSubstring, "rejected request")
		})

		convey.Convey("When the physics is unknown", func() {
			convey.So(run(ctx, []string{"-physics", "vq4"}, &stderr), convey.ShouldEqual, exitUsage)
		})

		convey.Convey("When the mode is not configured", func() {
			convey.So(run(ctx, []string{"-mode", "fastcaps"}, &stderr), convey.ShouldEqual, exitUsage)
		})

		convey.Convey("When the schedule does not parse", func() {
			convey.So(run(ctx, []string{"-schedule", "every day"}, &stderr), convey.ShouldEqual, exitUsage)
			convey.So(stderr.String(), convey.ShouldContainSubstring, "rejected schedule")
		})

		convey.Convey("When no database is configured", func() {
			convey.So(run(ctx, nil, &stderr), convey.ShouldEqual, exitUsage)
			convey.So(stderr.String(), convey.ShouldContainSubstring, "postgres_url is required")
		})

		convey.Convey("When the config file is missing", func() {
			convey.So(run(ctx, []string{"-config", "/nonexistent/racerank.yaml"}, &stderr), convey.ShouldEqual, exitUsage)
		})
	})
}

func TestExitCode(t *testing.T) {
	convey.Convey("Given run outcomes", t, func() {
		convey.So(exitCode(nil), convey.ShouldEqual, exitOK)
		convey.So(exitCode(service.ErrInvalidRequest), convey.ShouldEqual, exitUsage)
		convey.So(exitCode(errors.Join(service.ErrPartitionsFailed, errors.New("vq3/run/rocket: boom"))), convey.ShouldEqual, exitFailure)
	})
}

func TestScheduler(t *testing.T) {
	convey.Convey("Given a schedule", t, func() {
		ctx := context.Background()
		req := service.Request{Physics: "vq3", Mode: "run"}

		convey.Convey("When the expression is valid", func() {
			convey.So(validateSchedule("0 3 * * *"), convey.ShouldBeNil)
			convey.So(validateSchedule("@daily"), convey.ShouldBeNil)
		})

		convey.Convey("When the expression is invalid", func() {
			err := validateSchedule("61 * * * *")
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)

			_, err = newScheduler(ctx, &stubService{}, "nope", req)
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When a tick fires while the previous run is still going", func() {
			svc := &stubService{release: make(chan struct{}), started: make(chan struct{}, 1)}
			c, err := newScheduler(ctx, svc, "@daily", req)
			convey.So(err, convey.ShouldBeNil)
			job := c.Entries()[0].WrappedJob

			done := make(chan struct{})
			go func() {
				job.Run()
				close(done)
			}()
			<-svc.started
			job.Run()

			convey.Convey("Then the second tick should be skipped", func() {
				convey.So(svc.count(), convey.ShouldEqual, 1)
				close(svc.release)
				<-done

				job.Run()
				convey.So(svc.count(), convey.ShouldEqual, 2)
			})
		})

		convey.Convey("When the daemon context is already cancelled", func() {
			svc := &stubService{}
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			scheduledJob(cctx, svc, req)()

			convey.Convey("Then the job should not run", func() {
				convey.So(svc.count(), convey.ShouldEqual, 0)
			})
		})

		convey.Convey("When scheduled runs fail", func() {
			svc := &stubService{err: service.ErrPartitionsFailed}
			var ran atomic.Bool
			convey.So(func() {
				scheduledJob(ctx, svc, req)()
				ran.Store(true)
			}, convey.ShouldNotPanic)

			convey.Convey("Then the job should still return", func() {
				convey.So(ran.Load(), convey.ShouldBeTrue)
				convey.So(svc.count(), convey.ShouldEqual, 1)
			})
		})
	})
}

func TestCronLogger(t *testing.T) {
	convey.Convey("Given the cron logger adapter", t, func() {
		var buf bytes.Buffer
		_ = logger.Init(logger.WithWriter(&buf))
		defer func() { _ = logger.Init(logger.WithWriter(io.Discard)) }()
		cl := cronLogger{log: logger.Named("scheduler")}

		convey.Convey("When cron reports a skip", func() {
			cl.Info("skip")
			convey.So(buf.String(), convey.ShouldContainSubstring, "tick skipped")
		})

		convey.Convey("When cron reports an error", func() {
			cl.Error(errors.New("panic"), "panic", "stack", "...")
			convey.So(buf.String(), convey.ShouldContainSubstring, "level=ERROR")
		})

		convey.Convey("When cron reports routine info", func() {
			cl.Info("wake", "now", time.Unix(0, 0))
			convey.So(buf.String(), convey.ShouldBeEmpty)
		})
	})
}
