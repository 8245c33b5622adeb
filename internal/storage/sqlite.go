package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/claude/mapty/internal/workout"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLite keeps the session's workouts in an SQLite database. Without a path
// the database lives in memory; with one, the file is removed on Close.
type SQLite struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens (or creates) the session database.
func OpenSQLite(path string) (*SQLite, error) {
	dsn := ":memory:"
	if path != "" && path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating sqlite dir: %w", err)
		}
		dsn = path
	} else {
		path = ""
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}
	// A single connection keeps one shared in-memory database.
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS workouts (
		seq            INTEGER PRIMARY KEY AUTOINCREMENT,
		id             TEXT NOT NULL UNIQUE,
		kind           TEXT NOT NULL,
		created_at     TEXT NOT NULL,
		lat            REAL NOT NULL,
		lng            REAL NOT NULL,
		distance_km    REAL NOT NULL,
		duration_min   REAL NOT NULL,
		description    TEXT NOT NULL,
		cadence        INTEGER,
		pace           REAL,
		elevation_gain REAL,
		speed          REAL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating workouts table: %w", err)
	}

	return &SQLite{db: db, path: path}, nil
}

func (s *SQLite) Add(ctx context.Context, w workout.Workout) error {
	var cadence, pace, elevation, speed any
	switch w.Kind {
	case workout.KindRunning:
		cadence, pace = w.Running.Cadence, w.Running.Pace
	case workout.KindCycling:
		elevation, speed = w.Cycling.ElevationGain, w.Cycling.Speed
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO workouts (id, kind, created_at, lat, lng, distance_km, duration_min,
		 description, cadence, pace, elevation_gain, speed)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		w.ID.String(), string(w.Kind), w.CreatedAt.Format(time.RFC3339Nano),
		w.Coords.Lat, w.Coords.Lng, w.Distance, w.Duration, w.Description,
		cadence, pace, elevation, speed)
	if err != nil {
		return fmt.Errorf("inserting workout: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("inserting workout: %w", err)
	}
	if n == 0 {
		return ErrDuplicate
	}
	return nil
}

const sqliteSelect = `SELECT id, kind, created_at, lat, lng, distance_km, duration_min, description,
	 COALESCE(cadence, 0), COALESCE(pace, 0), COALESCE(elevation_gain, 0), COALESCE(speed, 0)
	 FROM workouts`

func (s *SQLite) List(ctx context.Context) ([]workout.Workout, error) {
	rows, err := s.db.QueryContext(ctx, sqliteSelect+` ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("querying workouts: %w", err)
	}
	defer rows.Close()

	var result []workout.Workout
	for rows.Next() {
		w, err := scanSQLiteWorkout(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, w)
	}
	return result, rows.Err()
}

func (s *SQLite) Get(ctx context.Context, id uuid.UUID) (workout.Workout, error) {
	row := s.db.QueryRowContext(ctx, sqliteSelect+` WHERE id = ?`, id.String())
	w, err := scanSQLiteWorkout(row)
	if errors.Is(err, sql.ErrNoRows) {
		return workout.Workout{}, ErrNotFound
	}
	return w, err
}

func (s *SQLite) Len(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM workouts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting workouts: %w", err)
	}
	return n, nil
}

// Close closes the database and removes its file, if any.
func (s *SQLite) Close() error {
	if err := s.db.Close(); err != nil {
		return err
	}
	if s.path == "" {
		return nil
	}
	for _, p := range []string{s.path, s.path + "-wal", s.path + "-shm", s.path + "-journal"} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("removing %s: %w", p, err)
		}
	}
	return nil
}

func scanSQLiteWorkout(row interface{ Scan(dest ...any) error }) (workout.Workout, error) {
	var (
		w                    workout.Workout
		id, kind, created    string
		cadence              int
		pace, elevation, spd float64
	)
	err := row.Scan(&id, &kind, &created, &w.Coords.Lat, &w.Coords.Lng,
		&w.Distance, &w.Duration, &w.Description,
		&cadence, &pace, &elevation, &spd)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return workout.Workout{}, err
		}
		return workout.Workout{}, fmt.Errorf("scanning workout: %w", err)
	}

	if w.ID, err = uuid.Parse(id); err != nil {
		return workout.Workout{}, fmt.Errorf("parsing workout id %q: %w", id, err)
	}
	if w.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return workout.Workout{}, fmt.Errorf("parsing created_at %q: %w", created, err)
	}
	w.Kind = workout.Kind(strings.TrimSpace(kind))
	switch w.Kind {
	case workout.KindRunning:
		w.Running = workout.Running{Cadence: cadence, Pace: pace}
	case workout.KindCycling:
		w.Cycling = workout.Cycling{ElevationGain: elevation, Speed: spd}
	}
	return w, w.Validate()
}
