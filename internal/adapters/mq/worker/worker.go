// Package worker runs independent partition jobs on a bounded pool.
package worker

import (
	"context"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/racerank/internal/domain/model"
	"github.com/okian/racerank/internal/pipeline"
	"github.com/okian/racerank/pkg/logger"
)

// Runner computes one partition.
type Runner interface {
	Run(ctx context.Context, runID string, p model.Partition) pipeline.Result
}

// Pool fans partitions out over at most size goroutines. A failed partition
// never cancels its siblings.
type Pool struct {
	runner Runner
	size   int
	name   string
	logger logger.Logger
}

// NewPool creates a pool that runs partitions with runner.
func NewPool(runner Runner, opts ...Option) *Pool {
	p := &Pool{
		runner: runner,
		size:   runtime.NumCPU(),
		name:   "worker-pool",
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = logger.Get().Named(p.name)
	}
	return p
}

// Size returns the concurrency bound.
func (p *Pool) Size() int { return p.size }

// Process runs every partition and returns their results in input order.
// Partitions not yet started when ctx is done are reported with ctx's error.
func (p *Pool) Process(ctx context.Context, runID string, parts []model.Partition) []pipeline.Result {
	start := time.Now()
	results := make([]pipeline.Result, len(parts))

	var g errgroup.Group
	g.SetLimit(p.size)
	for i, part := range parts {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = pipeline.Result{Partition: part, Err: err}
				return nil
			}
			results[i] = p.runner.Run(ctx, runID, part)
			return nil
		})
	}
	_ = g.Wait()

	p.logger.Debug(ctx, "partitions processed",
		logger.String("run_id", runID),
		logger.Int("partitions", len(parts)),
		logger.Int("workers", p.size),
		logger.Duration("took", time.Since(start)),
	)
	return results
}
