//nolint:whitespace // can't make both editor and linter happy
package result

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mpapenbr/trackprogress/pkg/model"
	"github.com/mpapenbr/trackprogress/pkg/repository"
)

var ErrNotFound = errors.New("race not found")

type (
	Race struct {
		ID        uuid.UUID
		Name      string
		Driveline string
		TotalLaps int
		HasLaps   bool
	}
	Lap struct {
		Kart     model.KartID
		Lap      int
		LapTime  float64
		RaceTime float64
	}
	Finish struct {
		Kart       model.KartID
		Position   int
		FinishTime float64
		Estimated  bool
	}
)

func CreateRace(ctx context.Context, conn repository.Querier, r *Race) error {
	_, err := conn.Exec(ctx, `
	insert into race (id, name, driveline, total_laps, has_laps)
	values ($1,$2,$3,$4,$5)`,
		r.ID, r.Name, r.Driveline, r.TotalLaps, r.HasLaps)
	return err
}

func LoadRace(ctx context.Context, conn repository.Querier, id uuid.UUID) (
	*Race, error,
) {
	row := conn.QueryRow(ctx, `
	select id, name, driveline, total_laps, has_laps from race where id=$1`, id)
	var item Race
	if err := row.Scan(
		&item.ID, &item.Name, &item.Driveline, &item.TotalLaps, &item.HasLaps,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, err
	}
	return &item, nil
}

// deletes the race and all its results, returns number of races deleted.
func DeleteRace(ctx context.Context, conn repository.Querier, id uuid.UUID) (int, error) {
	cmdTag, err := conn.Exec(ctx, "delete from race where id=$1", id)
	if err != nil {
		return 0, err
	}
	return int(cmdTag.RowsAffected()), nil
}

// AddLap stores a completed lap. A lap stored twice replaces the first one.
func AddLap(ctx context.Context, conn repository.Querier, raceID uuid.UUID, l *Lap) error {
	_, err := conn.Exec(ctx, `
	insert into lap (race_id, kart, lap, lap_time, race_time)
	values ($1,$2,$3,$4,$5)
	on conflict (race_id, kart, lap)
	do update set lap_time=excluded.lap_time, race_time=excluded.race_time`,
		raceID, string(l.Kart), l.Lap, l.LapTime, l.RaceTime)
	return err
}

func LoadLaps(ctx context.Context, conn repository.Querier, raceID uuid.UUID) (
	[]*Lap, error,
) {
	rows, err := conn.Query(ctx, `
	select kart, lap, lap_time, race_time from lap
	where race_id=$1 order by race_time asc, id asc`, raceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ret := make([]*Lap, 0)
	for rows.Next() {
		var item Lap
		var kart string
		if err := rows.Scan(&kart, &item.Lap, &item.LapTime, &item.RaceTime); err != nil {
			return nil, err
		}
		item.Kart = model.KartID(kart)
		ret = append(ret, &item)
	}
	return ret, rows.Err()
}

func AddFinish(
	ctx context.Context,
	conn repository.Querier,
	raceID uuid.UUID,
	f *Finish,
) error {
	_, err := conn.Exec(ctx, `
	insert into finish (race_id, kart, position, finish_time, estimated)
	values ($1,$2,$3,$4,$5)
	on conflict (race_id, kart)
	do update set position=excluded.position, finish_time=excluded.finish_time,
		estimated=excluded.estimated`,
		raceID, string(f.Kart), f.Position, f.FinishTime, f.Estimated)
	return err
}

// LoadFinishes returns the finished karts ordered by position.
func LoadFinishes(ctx context.Context, conn repository.Querier, raceID uuid.UUID) (
	[]*Finish, error,
) {
	rows, err := conn.Query(ctx, `
	select kart, position, finish_time, estimated from finish
	where race_id=$1 order by position asc`, raceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ret := make([]*Finish, 0)
	for rows.Next() {
		var item Finish
		var kart string
		if err := rows.Scan(
			&kart, &item.Position, &item.FinishTime, &item.Estimated,
		); err != nil {
			return nil, err
		}
		item.Kart = model.KartID(kart)
		ret = append(ret, &item)
	}
	return ret, rows.Err()
}

func UpdateFastestLap(
	ctx context.Context,
	conn repository.Querier,
	raceID uuid.UUID,
	e model.NewFastestLap,
) error {
	_, err := conn.Exec(ctx, `
	update race set fastest_kart=$2, fastest_lap=$3, fastest_lap_time=$4
	where id=$1`,
		raceID, string(e.Kart()), e.Lap, e.LapTime)
	return err
}

// LoadFastestLap returns false if no fastest lap was stored.
func LoadFastestLap(ctx context.Context, conn repository.Querier, raceID uuid.UUID) (
	model.NewFastestLap, bool, error,
) {
	var kart *string
	var lap *int
	var lapTime *float64
	row := conn.QueryRow(ctx, `
	select fastest_kart, fastest_lap, fastest_lap_time from race where id=$1`, raceID)
	if err := row.Scan(&kart, &lap, &lapTime); err != nil {
		return model.NewFastestLap{}, false, err
	}
	if kart == nil || lap == nil || lapTime == nil {
		return model.NewFastestLap{}, false, nil
	}
	return model.NewFastestLap{
		EventHeader: model.EventHeader{KartID: model.KartID(*kart)},
		Lap:         *lap,
		LapTime:     *lapTime,
	}, true, nil
}
