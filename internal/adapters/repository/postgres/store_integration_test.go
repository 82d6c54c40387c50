//go:build integration

package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	postgrescontainer "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/okian/racerank/internal/adapters/repository"
	"github.com/okian/racerank/internal/domain/model"
)

func TestStoreSnapshotAndReplace(t *testing.T) {
	ctx := context.Background()

	pg, err := postgrescontainer.RunContainer(ctx,
		postgrescontainer.WithDatabase("racerank"),
		postgrescontainer.WithUsername("racerank"),
		postgrescontainer.WithPassword("racerank"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, waitForDatabase(ctx, connStr))

	pool, err := Connect(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	store := NewStore(pool)
	require.NoError(t, store.Migrate(ctx))

	setAt := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	_, err = pool.Exec(ctx, `INSERT INTO maps (name, weapons, functions) VALUES ('r1', 'rl,pg', 'slick')`)
	require.NoError(t, err)
	_, err = pool.Exec(ctx, `INSERT INTO records (mdd_id, name, user_id, mapname, physics, mode, time, date_set, deleted_at) VALUES
		(1, 'alpha', 10, 'r1', 'vq3', 'run', 10000, $1, NULL),
		(2, 'beta', NULL, 'r1', 'vq3', 'run', 10050, $1, NULL),
		(3, 'gamma', NULL, 'r1', 'vq3', 'run', 9000, $1, now()),
		(4, 'delta', NULL, 'r1', 'cpm', 'run', 8000, $1, NULL)`, setAt)
	require.NoError(t, err)

	set, err := store.Snapshot(ctx, model.PhysicsVQ3, "run")
	require.NoError(t, err)
	require.Len(t, set.Records, 3)
	require.Equal(t, "rl,pg", set.Maps["r1"].Weapons)

	var deleted int
	for _, r := range set.Records {
		if r.Deleted {
			deleted++
			require.Equal(t, int64(3), r.PlayerKey)
		}
		if r.PlayerKey == 1 {
			require.NotNil(t, r.LocalAccountID)
			require.Equal(t, int64(10), *r.LocalAccountID)
		}
	}
	require.Equal(t, 1, deleted)

	p := model.Partition{Physics: model.PhysicsVQ3, Mode: "run", Category: "overall"}
	_, err = store.Partition(ctx, p)
	require.True(t, errors.Is(err, repository.ErrNotFound))

	first := []model.PlayerRating{
		{PlayerKey: 1, Name: "alpha", Rating: 900, AllPlayersRank: 1, ActivePlayersRank: 1, CategoryParticipantCount: 2, PlayerRecordCount: 1, LastActivity: setAt},
		{PlayerKey: 2, Name: "beta", Rating: 800, AllPlayersRank: 2, ActivePlayersRank: 2, CategoryParticipantCount: 2, PlayerRecordCount: 1, LastActivity: setAt},
	}
	require.NoError(t, store.ReplacePartition(ctx, p, first))

	second := []model.PlayerRating{
		{PlayerKey: 2, Name: "beta", Rating: 950, AllPlayersRank: 1, ActivePlayersRank: 1, CategoryParticipantCount: 1, PlayerRecordCount: 2, LastActivity: setAt},
	}
	require.NoError(t, store.ReplacePartition(ctx, p, second))

	got, err := store.Partition(ctx, p)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, int64(2), got[0].PlayerKey)
	require.Equal(t, 950.0, got[0].Rating)
	require.True(t, setAt.Equal(got[0].LastActivity))

	// Duplicate keys violate the primary key; the failed replace must leave
	// the previous rows in place.
	dup := append(second, second[0])
	require.Error(t, store.ReplacePartition(ctx, p, dup))

	got, err = store.Partition(ctx, p)
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func waitForDatabase(ctx context.Context, connStr string) error {
	deadline := time.Now().Add(30 * time.Second)
	for {
		pool, err := pgxpool.New(ctx, connStr)
		if err == nil {
			err = pool.Ping(ctx)
			pool.Close()
			if err == nil {
				return nil
			}
		}
		if time.Now().After(deadline) {
			return err
		}
		time.Sleep(time.Second)
	}
}
