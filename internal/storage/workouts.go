package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/claude/mapty/internal/workout"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const selectWorkouts = `SELECT id::text, kind, created_at, lat, lng, distance_km, duration_min, description,
	 COALESCE(cadence, 0), COALESCE(pace, 0), COALESCE(elevation_gain, 0), COALESCE(speed, 0)
	 FROM session_workouts`

// Postgres stores a session's workouts in the session_workouts table, keyed
// by a per-session UUID. Close deletes the session's rows.
type Postgres struct {
	pool      Pool
	sessionID uuid.UUID
}

// NewPostgres wraps an existing pool. The pool is closed with the collection.
func NewPostgres(pool Pool, sessionID uuid.UUID) *Postgres {
	return &Postgres{pool: pool, sessionID: sessionID}
}

// OpenPostgres connects to dsn and starts a fresh session scope.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := NewPool(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return NewPostgres(pool, uuid.New()), nil
}

// SessionID returns the scope key of this collection's rows.
func (p *Postgres) SessionID() uuid.UUID {
	return p.sessionID
}

func (p *Postgres) Add(ctx context.Context, w workout.Workout) error {
	var cadence, pace, elevation, speed any
	switch w.Kind {
	case workout.KindRunning:
		cadence, pace = w.Running.Cadence, w.Running.Pace
	case workout.KindCycling:
		elevation, speed = w.Cycling.ElevationGain, w.Cycling.Speed
	}

	tag, err := p.pool.Exec(ctx,
		`INSERT INTO session_workouts (id, session_id, kind, created_at, lat, lng,
		 distance_km, duration_min, description, cadence, pace, elevation_gain, speed)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		 ON CONFLICT DO NOTHING`,
		w.ID, p.sessionID, string(w.Kind), w.CreatedAt, w.Coords.Lat, w.Coords.Lng,
		w.Distance, w.Duration, w.Description, cadence, pace, elevation, speed)
	if err != nil {
		return fmt.Errorf("inserting workout: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrDuplicate
	}
	return nil
}

func (p *Postgres) List(ctx context.Context) ([]workout.Workout, error) {
	rows, err := p.pool.Query(ctx,
		selectWorkouts+` WHERE session_id = $1 ORDER BY seq ASC`,
		p.sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying workouts: %w", err)
	}
	defer rows.Close()

	var result []workout.Workout
	for rows.Next() {
		w, err := scanWorkout(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning workout: %w", err)
		}
		result = append(result, w)
	}
	return result, rows.Err()
}

func (p *Postgres) Get(ctx context.Context, id uuid.UUID) (workout.Workout, error) {
	row := p.pool.QueryRow(ctx,
		selectWorkouts+` WHERE session_id = $1 AND id = $2`,
		p.sessionID, id)
	w, err := scanWorkout(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return workout.Workout{}, ErrNotFound
	}
	if err != nil {
		return workout.Workout{}, fmt.Errorf("querying workout: %w", err)
	}
	return w, nil
}

func (p *Postgres) Len(ctx context.Context) (int, error) {
	var n int
	err := p.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM session_workouts WHERE session_id = $1`,
		p.sessionID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting workouts: %w", err)
	}
	return n, nil
}

// Close deletes the session's workouts and closes the pool.
func (p *Postgres) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	defer p.pool.Close()

	if _, err := p.pool.Exec(ctx,
		`DELETE FROM session_workouts WHERE session_id = $1`, p.sessionID); err != nil {
		return fmt.Errorf("deleting session workouts: %w", err)
	}
	return nil
}

func scanWorkout(row pgx.Row) (workout.Workout, error) {
	var (
		w        workout.Workout
		id, kind string

		cadence              int
		pace, elevation, spd float64
	)
	err := row.Scan(&id, &kind, &w.CreatedAt, &w.Coords.Lat, &w.Coords.Lng,
		&w.Distance, &w.Duration, &w.Description,
		&cadence, &pace, &elevation, &spd)
	if err != nil {
		return workout.Workout{}, err
	}
	if w.ID, err = uuid.Parse(id); err != nil {
		return workout.Workout{}, fmt.Errorf("parsing workout id %q: %w", id, err)
	}

	w.Kind = workout.Kind(kind)
	switch w.Kind {
	case workout.KindRunning:
		w.Running = workout.Running{Cadence: cadence, Pace: pace}
	case workout.KindCycling:
		w.Cycling = workout.Cycling{ElevationGain: elevation, Speed: spd}
	}
	return w, w.Validate()
}
