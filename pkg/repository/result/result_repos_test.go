package result

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/trackprogress/pkg/model"
	"github.com/mpapenbr/trackprogress/testsupport/testdb"
)

func createSampleRace(t *testing.T, pool *pgxpool.Pool) *Race {
	t.Helper()
	r := &Race{
		ID:        uuid.New(),
		Name:      "sample",
		Driveline: "square",
		TotalLaps: 3,
		HasLaps:   true,
	}
	require.NoError(t, CreateRace(context.Background(), pool, r))
	return r
}

func TestCreateAndLoadRace(t *testing.T) {
	pool := testdb.InitTestDb(t)
	r := createSampleRace(t, pool)

	got, err := LoadRace(context.Background(), pool, r.ID)
	require.NoError(t, err)
	if diff := cmp.Diff(r, got); diff != "" {
		t.Errorf("LoadRace() mismatch (-want +got):\n%s", diff)
	}

	_, err = LoadRace(context.Background(), pool, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLaps(t *testing.T) {
	pool := testdb.InitTestDb(t)
	ctx := context.Background()
	r := createSampleRace(t, pool)

	laps := []*Lap{
		{Kart: "a", Lap: 1, LapTime: 11, RaceTime: 11},
		{Kart: "b", Lap: 1, LapTime: -1, RaceTime: 14},
		{Kart: "a", Lap: 2, LapTime: 10, RaceTime: 21},
	}
	for _, l := range laps {
		require.NoError(t, AddLap(ctx, pool, r.ID, l))
	}
	// replaces the first entry
	require.NoError(t, AddLap(ctx, pool, r.ID, &Lap{Kart: "a", Lap: 1, LapTime: 10.5, RaceTime: 11}))
	laps[0].LapTime = 10.5

	got, err := LoadLaps(ctx, pool, r.ID)
	require.NoError(t, err)
	if diff := cmp.Diff(laps, got); diff != "" {
		t.Errorf("LoadLaps() mismatch (-want +got):\n%s", diff)
	}
}

func TestFinishes(t *testing.T) {
	pool := testdb.InitTestDb(t)
	ctx := context.Background()
	r := createSampleRace(t, pool)

	require.NoError(t, AddFinish(ctx, pool, r.ID,
		&Finish{Kart: "b", Position: 2, FinishTime: 40, Estimated: true}))
	require.NoError(t, AddFinish(ctx, pool, r.ID,
		&Finish{Kart: "a", Position: 1, FinishTime: 31}))

	got, err := LoadFinishes(ctx, pool, r.ID)
	require.NoError(t, err)
	want := []*Finish{
		{Kart: "a", Position: 1, FinishTime: 31},
		{Kart: "b", Position: 2, FinishTime: 40, Estimated: true},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("LoadFinishes() mismatch (-want +got):\n%s", diff)
	}
}

func TestDeleteRace(t *testing.T) {
	pool := testdb.InitTestDb(t)
	ctx := context.Background()
	r := createSampleRace(t, pool)
	require.NoError(t, AddLap(ctx, pool, r.ID, &Lap{Kart: "a", Lap: 1, LapTime: 1, RaceTime: 1}))

	num, err := DeleteRace(ctx, pool, r.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, num)

	laps, err := LoadLaps(ctx, pool, r.ID)
	require.NoError(t, err)
	assert.Empty(t, laps)
}

func TestStore(t *testing.T) {
	pool := testdb.InitTestDb(t)
	ctx := context.Background()
	id := uuid.New()
	positions := map[model.KartID]int{"a": 1, "b": 2}
	s := NewStore(pool, id, WithPositionFunc(func(k model.KartID) int { return positions[k] }))
	require.NoError(t, s.Init(ctx, &Race{Name: "store", TotalLaps: 1, HasLaps: true}))

	_, ok, err := LoadFastestLap(ctx, pool, id)
	require.NoError(t, err)
	assert.False(t, ok)

	hdr := func(k model.KartID, c float64) model.EventHeader {
		return model.EventHeader{KartID: k, Clock: c}
	}
	evs := []model.Event{
		model.LapCompleted{EventHeader: hdr("a", 11), Lap: 1, LapTime: 11},
		model.NewFastestLap{EventHeader: hdr("a", 11), Lap: 1, LapTime: 11},
		model.RaceFinished{EventHeader: hdr("a", 11), FinishTime: 11},
		model.WrongWay{EventHeader: hdr("b", 12), On: true},
		model.RaceFinished{EventHeader: hdr("b", 20), FinishTime: 20, Estimated: true},
	}
	for _, e := range evs {
		require.NoError(t, s.Handle(ctx, e))
	}

	laps, err := LoadLaps(ctx, pool, id)
	require.NoError(t, err)
	assert.Len(t, laps, 1)

	fin, err := LoadFinishes(ctx, pool, id)
	require.NoError(t, err)
	require.Len(t, fin, 2)
	assert.Equal(t, model.KartID("a"), fin[0].Kart)
	assert.Equal(t, 2, fin[1].Position)
	assert.True(t, fin[1].Estimated)

	best, ok, err := LoadFastestLap(ctx, pool, id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, model.KartID("a"), best.Kart())
	assert.Equal(t, 11.0, best.LapTime)
}
