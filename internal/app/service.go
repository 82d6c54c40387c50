// Package service turns a run request into partitions and runs them on a
// bounded worker pool.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	workerpool "github.com/okian/racerank/internal/adapters/mq/worker"
	"github.com/okian/racerank/internal/domain/category"
	"github.com/okian/racerank/internal/domain/model"
	"github.com/okian/racerank/internal/pipeline"
	"github.com/okian/racerank/pkg/logger"
)

// DefaultMode is used when a request names no mode.
const DefaultMode = "run"

// Request selects partitions. Empty Physics means every physics; empty
// Category means every category, in table order.
type Request struct {
	Physics  string
	Mode     string
	Category string
}

// Summary reports one finished run.
type Summary struct {
	RunID      string            `json:"run_id"`
	StartedAt  time.Time         `json:"started_at"`
	Duration   time.Duration     `json:"duration"`
	Partitions []PartitionReport `json:"partitions"`
	Rows       int               `json:"rows"`
	Failed     int               `json:"failed"`
}

// PartitionReport is the serializable form of a pipeline.Result.
type PartitionReport struct {
	pipeline.Result
	Error string `json:"error,omitempty"`
}

// Service runs rating partitions.
type Service struct {
	mu   sync.RWMutex
	last *Summary

	running atomic.Int32

	pool        *workerpool.Pool
	runner      workerpool.Runner
	workerCount int
	modes       []string
	newRunID    func() string
	now         func() time.Time

	logger logger.Logger
}

// New constructs a Service that computes partitions with runner.
func New(runner workerpool.Runner, opts ...Option) *Service {
	s := &Service{
		runner:      runner,
		workerCount: runtime.NumCPU(),
		modes:       []string{DefaultMode},
		newRunID:    uuid.NewString,
		now:         time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	s.pool = workerpool.NewPool(runner, workerpool.WithSize(s.workerCount), workerpool.WithLogger(s.logger.Named("pool")))
	return s
}

// Plan validates req against the service's modes and expands it into
// partitions.
func (s *Service) Plan(req Request) ([]model.Partition, error) {
	return Plan(s.modes, req)
}

// Plan validates req and expands it into partitions: physics outer, then
// categories in table order. It needs no store, so callers can reject a bad
// request before connecting to anything.
func Plan(modes []string, req Request) ([]model.Partition, error) {
	physics := model.AllPhysics
	if req.Physics != "" {
		p, err := model.ParsePhysics(req.Physics)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		}
		physics = []model.Physics{p}
	}

	mode := strings.TrimSpace(req.Mode)
	if mode == "" {
		mode = DefaultMode
	}
	if !slices.Contains(modes, mode) {
		return nil, fmt.Errorf("%w: unknown mode %q", ErrInvalidRequest, req.Mode)
	}

	categories := category.Names()
	if req.Category != "" {
		c, err := category.Lookup(req.Category)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		}
		categories = []string{c.Name}
	}

	parts := make([]model.Partition, 0, len(physics)*len(categories))
	for _, p := range physics {
		for _, c := range categories {
			parts = append(parts, model.Partition{Physics: p, Mode: mode, Category: c})
		}
	}
	return parts, nil
}

// Run plans req and computes every partition. The returned error wraps
// ErrInvalidRequest when nothing ran, or ErrPartitionsFailed joined with each
// partition's error when some failed.
func (s *Service) Run(ctx context.Context, req Request) (Summary, error) {
	parts, err := s.Plan(req)
	if err != nil {
		return Summary{}, err
	}

	s.running.Add(1)
	defer s.running.Add(-1)

	sum := Summary{RunID: s.newRunID(), StartedAt: s.now()}
	log := s.logger.With(logger.String("run_id", sum.RunID))
	log.Info(ctx, "run started", logger.Int("partitions", len(parts)), logger.Int("workers", s.pool.Size()))

	results := s.pool.Process(ctx, sum.RunID, parts)

	var errs []error
	sum.Partitions = make([]PartitionReport, len(results))
	for i, r := range results {
		sum.Partitions[i] = PartitionReport{Result: r}
		sum.Rows += r.Rows
		if r.Err != nil {
			sum.Failed++
			sum.Partitions[i].Error = r.Err.Error()
			errs = append(errs, fmt.Errorf("%s: %w", r.Partition, r.Err))
		}
	}
	sum.Duration = s.now().Sub(sum.StartedAt)

	s.mu.Lock()
	s.last = &sum
	s.mu.Unlock()

	log.Info(ctx, "run finished",
		logger.Int("partitions", len(parts)),
		logger.Int("failed", sum.Failed),
		logger.Int("rows", sum.Rows),
		logger.Duration("took", sum.Duration),
	)

	if len(errs) > 0 {
		return sum, errors.Join(append([]error{ErrPartitionsFailed}, errs...)...)
	}
	return sum, nil
}

// LastSummary returns the most recent run's summary, if any.
func (s *Service) LastSummary() (Summary, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return Summary{}, false
	}
	return *s.last, true
}

// Running reports whether a run is in progress.
func (s *Service) Running() bool {
	return s.running.Load() > 0
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	stats := map[string]interface{}{
		"running":     s.Running(),
		"workerCount": s.workerCount,
		"modes":       s.modes,
	}

	if last, ok := s.LastSummary(); ok {
		stats["lastRunId"] = last.RunID
		stats["lastRunStartedAt"] = last.StartedAt
		stats["lastRunPartitions"] = len(last.Partitions)
		stats["lastRunFailed"] = last.Failed
		stats["lastRunRows"] = last.Rows
	}
	return stats
}
