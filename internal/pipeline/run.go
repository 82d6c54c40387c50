package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/racerank/internal/adapters/repository"
	"github.com/okian/racerank/internal/domain/category"
	"github.com/okian/racerank/internal/domain/model"
	"github.com/okian/racerank/internal/domain/scoring"
	"github.com/okian/racerank/pkg/logger"
	"github.com/okian/racerank/pkg/metrics"
)

// Stage names, used as metric labels.
const (
	StageExtract   = "extract"
	StageMapRank   = "map_rank"
	StageMapScore  = "map_score"
	StageAggregate = "aggregate"
	StageGlobal    = "global_rank"
	StagePublish   = "publish"
)

// Result summarizes one partition run.
type Result struct {
	Partition  model.Partition `json:"partition"`
	Rows       int             `json:"rows"`
	Extracted  int             `json:"extracted"`
	Malformed  int             `json:"malformed"`
	Deleted    int             `json:"deleted"`
	Maps       int             `json:"maps"`
	BannedMaps int             `json:"banned_maps"`
	Duration   time.Duration   `json:"duration"`
	Err        error           `json:"-"`
}

// Runner computes and publishes partitions. It holds no per-partition state,
// so one Runner may run many partitions concurrently.
type Runner struct {
	source       repository.RecordSource
	store        repository.RatingStore
	model        *scoring.Model
	windowMonths int
	mirrors      []Mirror
	now          func() time.Time
	logger       logger.Logger
}

// NewRunner constructs a Runner reading from source and publishing to store.
func NewRunner(source repository.RecordSource, store repository.RatingStore, opts ...Option) *Runner {
	r := &Runner{
		source:       source,
		store:        store,
		model:        scoring.New(),
		windowMonths: 3,
		now:          time.Now,
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.logger == nil {
		r.logger = logger.Get().Named("pipeline")
	}
	return r
}

// Run computes partition p from a fresh snapshot and replaces its published
// rows. On error nothing was published.
func (r *Runner) Run(ctx context.Context, runID string, p model.Partition) (res Result) {
	start := time.Now()
	log := r.logger.With(logger.String("run_id", runID), logger.String("partition", p.String()))
	res.Partition = p

	metrics.IncActivePartitions()
	defer func() {
		metrics.DecActivePartitions()
		res.Duration = time.Since(start)
		outcome := metrics.OutcomeSuccess
		if res.Err != nil {
			outcome = metrics.OutcomeFailure
			log.Error(ctx, "partition failed", logger.Error(res.Err), logger.Duration("took", res.Duration))
		}
		metrics.RecordPartitionRun(string(p.Physics), p.Mode, p.Category, outcome, float64(res.Duration.Milliseconds()))
	}()

	cat, err := category.Lookup(p.Category)
	if err != nil {
		res.Err = err
		return res
	}

	var ext ExtractResult
	err = stage(StageExtract, func() error {
		ext, err = Extract(ctx, r.source, p, cat)
		return err
	})
	if err != nil {
		metrics.RecordErrorByComponent("extractor", "input_unavailable")
		res.Err = err
		return res
	}
	res.Extracted, res.Deleted, res.Malformed = len(ext.Records), ext.Deleted, ext.Malformed()
	physics := string(p.Physics)
	metrics.AddRecordsExtracted(physics, p.Mode, p.Category, len(ext.Records))
	metrics.AddMalformedRecords(physics, p.Mode, p.Category, ReasonNonPositiveTime, ext.NonPositiveTime)
	metrics.AddMalformedRecords(physics, p.Mode, p.Category, ReasonMissingMap, ext.MissingMap)
	if ext.Malformed() > 0 {
		log.Warn(ctx, "malformed records excluded",
			logger.Int(ReasonNonPositiveTime, ext.NonPositiveTime),
			logger.Int(ReasonMissingMap, ext.MissingMap),
		)
	}

	asOf := r.now()
	ratings := r.compute(ext.Records, asOf, &res)
	for i := range ratings {
		ratings[i].Physics, ratings[i].Mode, ratings[i].Category = p.Physics, p.Mode, p.Category
	}

	err = stage(StagePublish, func() error { return Publish(ctx, r.store, p, ratings) })
	if err != nil {
		metrics.RecordErrorByComponent("publisher", "publish_failure")
		res.Err = err
		return res
	}
	res.Rows = len(ratings)
	publishedAt := r.now()
	metrics.UpdatePublishedRows(string(p.Physics), p.Mode, p.Category, res.Rows, float64(publishedAt.Unix()))

	r.mirror(ctx, log, Publication{
		RunID:       runID,
		Partition:   p,
		Rows:        ratings,
		PublishedAt: publishedAt,
		ActiveSince: asOf.AddDate(0, -r.windowMonths, 0),
	})

	log.Info(ctx, "partition published",
		logger.Int("rows", res.Rows),
		logger.Int("malformed", res.Malformed),
		logger.Int("banned_maps", res.BannedMaps),
		logger.Duration("took", time.Since(start)),
	)
	return res
}

// compute runs the pure stages between extract and publish.
func (r *Runner) compute(records []model.RaceRecord, asOf time.Time, res *Result) []model.PlayerRating {
	var (
		groups  []MapGroup
		rows    []model.MapScoreRow
		ratings []model.PlayerRating
	)
	_ = stage(StageMapRank, func() error { groups = RankMaps(records); return nil })
	_ = stage(StageMapScore, func() error { rows = ScoreMaps(groups, r.model); return nil })
	_ = stage(StageAggregate, func() error { ratings = AggregatePlayers(rows, r.model); return nil })
	_ = stage(StageGlobal, func() error { ratings = RankGlobal(ratings, asOf, r.windowMonths); return nil })

	res.Maps = len(groups)
	for _, g := range groups {
		if g.Banned {
			res.BannedMaps++
		}
	}
	metrics.AddBannedMaps(res.BannedMaps)
	return ratings
}

func (r *Runner) mirror(ctx context.Context, log logger.Logger, pub Publication) {
	for _, m := range r.mirrors {
		if err := m.Mirror(ctx, pub); err != nil {
			metrics.RecordErrorByComponent(m.Name(), "mirror_failure")
			log.Warn(ctx, "mirror failed", logger.String("mirror", m.Name()), logger.Error(err))
		}
	}
}

func stage(name string, fn func() error) error {
	start := time.Now()
	err := fn()
	metrics.RecordStageDuration(name, float64(time.Since(start).Microseconds())/1000)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}
