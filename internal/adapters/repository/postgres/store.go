// Package postgres implements the record source and rating store on PostgreSQL.
package postgres

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/okian/racerank/internal/adapters/repository"
	"github.com/okian/racerank/internal/domain/model"
)

//go:embed schema.sql
var schema string

var ratingColumns = []string{ //nolint:gochecknoglobals // column layout for COPY
	"mdd_id", "name", "user_id", "physics", "mode", "category",
	"player_rating", "all_players_rank", "active_players_rank",
	"category_total_participants", "player_records_in_category", "last_activity",
}

// Store is a pgx-backed repository.RecordSource and repository.RatingStore.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore constructs a Store over an existing pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Connect opens a pool for url and verifies it with a ping.
func Connect(ctx context.Context, url string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

// Migrate creates the tables the store reads and writes, if missing.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Snapshot implements repository.RecordSource. Records and map tags are read
// inside one REPEATABLE READ read-only transaction so both come from the same
// point in time.
func (s *Store) Snapshot(ctx context.Context, physics model.Physics, mode string) (repository.RecordSet, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return repository.RecordSet{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const recordsQuery = `SELECT mdd_id, name, user_id, mapname, time, date_set, deleted_at IS NOT NULL
        FROM records WHERE physics=$1 AND mode=$2`

	rows, err := tx.Query(ctx, recordsQuery, string(physics), mode)
	if err != nil {
		return repository.RecordSet{}, err
	}
	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.RaceRecord, error) {
		r := model.RaceRecord{Physics: physics, Mode: mode}
		err := row.Scan(&r.PlayerKey, &r.Name, &r.LocalAccountID, &r.MapID, &r.ElapsedMS, &r.SetAt, &r.Deleted)
		return r, err
	})
	if err != nil {
		return repository.RecordSet{}, err
	}

	rows, err = tx.Query(ctx, `SELECT name, weapons, functions FROM maps`)
	if err != nil {
		return repository.RecordSet{}, err
	}
	infos, err := pgx.CollectRows(rows, pgx.RowToStructByPos[model.MapInfo])
	if err != nil {
		return repository.RecordSet{}, err
	}

	set := repository.RecordSet{Records: records, Maps: make(map[string]model.MapInfo, len(infos))}
	for _, m := range infos {
		set.Maps[m.Name] = m
	}
	return set, tx.Commit(ctx)
}

// ReplacePartition implements repository.RatingStore. The advisory lock keyed
// on the partition serializes concurrent writers; the delete and copy commit
// together or not at all.
func (s *Store) ReplacePartition(ctx context.Context, p model.Partition, rows []model.PlayerRating) (err error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if _, err = tx.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", "player_ratings:"+p.String()); err != nil {
		return err
	}

	if _, err = tx.Exec(ctx, `DELETE FROM player_ratings WHERE physics=$1 AND mode=$2 AND category=$3`,
		string(p.Physics), p.Mode, p.Category); err != nil {
		return err
	}

	if _, err = tx.CopyFrom(ctx, pgx.Identifier{"player_ratings"}, ratingColumns, pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
		r := rows[i]
		return []any{
			r.PlayerKey, r.Name, r.LocalAccountID, string(p.Physics), p.Mode, p.Category,
			r.Rating, r.AllPlayersRank, r.ActivePlayersRank,
			r.CategoryParticipantCount, r.PlayerRecordCount, r.LastActivity,
		}, nil
	})); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// Partition implements repository.RatingStore.
func (s *Store) Partition(ctx context.Context, p model.Partition) ([]model.PlayerRating, error) {
	const query = `SELECT mdd_id, name, user_id, player_rating, all_players_rank, active_players_rank,
        category_total_participants, player_records_in_category, last_activity
        FROM player_ratings WHERE physics=$1 AND mode=$2 AND category=$3
        ORDER BY all_players_rank, mdd_id`

	rows, err := s.pool.Query(ctx, query, string(p.Physics), p.Mode, p.Category)
	if err != nil {
		return nil, err
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.PlayerRating, error) {
		r := model.PlayerRating{Physics: p.Physics, Mode: p.Mode, Category: p.Category}
		var last time.Time
		err := row.Scan(&r.PlayerKey, &r.Name, &r.LocalAccountID, &r.Rating, &r.AllPlayersRank, &r.ActivePlayersRank,
			&r.CategoryParticipantCount, &r.PlayerRecordCount, &last)
		r.LastActivity = last.UTC()
		return r, err
	})
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, repository.ErrNotFound
	}
	return out, nil
}
