package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var workoutColumns = []string{
	"id", "kind", "created_at", "lat", "lng", "distance_km", "duration_min", "description",
	"cadence", "pace", "elevation_gain", "speed",
}

func newMockPostgres(t *testing.T) (pgxmock.PgxPoolIface, *Postgres) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return mock, NewPostgres(mock, uuid.New())
}

func TestPostgresAddRunning(t *testing.T) {
	mock, pg := newMockPostgres(t)
	defer mock.Close()

	w := mustRunning(t)
	mock.ExpectExec(`INSERT INTO session_workouts`).
		WithArgs(w.ID, pg.SessionID(), "running", w.CreatedAt, 52.52, 13.40,
			5.2, 24.0, "Running on April 14", 178, w.Running.Pace, nil, nil).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, pg.Add(context.Background(), w))
	require.NoError(t, mock.ExpectationsWereMet())
}

// TestPostgresAddDuplicate verifies ON CONFLICT DO NOTHING surfaces as
// ErrDuplicate.
func TestPostgresAddDuplicate(t *testing.T) {
	mock, pg := newMockPostgres(t)
	defer mock.Close()

	w := mustCycling(t)
	mock.ExpectExec(`INSERT INTO session_workouts`).
		WithArgs(w.ID, pg.SessionID(), "cycling", w.CreatedAt, 52.50, 13.35,
			27.0, 95.0, "Cycling on April 14", nil, nil, -14.0, w.Cycling.Speed).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	assert.ErrorIs(t, pg.Add(context.Background(), w), ErrDuplicate)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresList(t *testing.T) {
	mock, pg := newMockPostgres(t)
	defer mock.Close()

	run, cyc := mustRunning(t), mustCycling(t)
	mock.ExpectQuery(`(?s)SELECT id::text, kind, created_at.*FROM session_workouts WHERE session_id = \$1 ORDER BY seq ASC`).
		WithArgs(pg.SessionID()).
		WillReturnRows(pgxmock.NewRows(workoutColumns).
			AddRow(run.ID.String(), "running", run.CreatedAt, 52.52, 13.40, 5.2, 24.0, run.Description,
				178, run.Running.Pace, 0.0, 0.0).
			AddRow(cyc.ID.String(), "cycling", cyc.CreatedAt, 52.50, 13.35, 27.0, 95.0, cyc.Description,
				0, 0.0, -14.0, cyc.Cycling.Speed))

	list, err := pg.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, run, list[0])
	assert.Equal(t, cyc, list[1])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetNotFound(t *testing.T) {
	mock, pg := newMockPostgres(t)
	defer mock.Close()

	id := uuid.New()
	mock.ExpectQuery(`FROM session_workouts WHERE session_id = \$1 AND id = \$2`).
		WithArgs(pg.SessionID(), id).
		WillReturnError(pgx.ErrNoRows)

	_, err := pg.Get(context.Background(), id)
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

// TestPostgresRejectsCorruptRow verifies rows failing the model invariants
// are not handed out.
func TestPostgresRejectsCorruptRow(t *testing.T) {
	mock, pg := newMockPostgres(t)
	defer mock.Close()

	run := mustRunning(t)
	mock.ExpectQuery(`FROM session_workouts WHERE session_id = \$1 AND id = \$2`).
		WithArgs(pg.SessionID(), run.ID).
		WillReturnRows(pgxmock.NewRows(workoutColumns).
			AddRow(run.ID.String(), "running", run.CreatedAt, 52.52, 13.40, 0.0, 24.0, run.Description,
				178, 0.0, 0.0, 0.0))

	_, err := pg.Get(context.Background(), run.ID)
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestPostgresLen(t *testing.T) {
	mock, pg := newMockPostgres(t)
	defer mock.Close()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM session_workouts`).
		WithArgs(pg.SessionID()).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(3))

	n, err := pg.Len(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

// TestPostgresCloseDeletesSession verifies workouts die with the session.
func TestPostgresCloseDeletesSession(t *testing.T) {
	mock, pg := newMockPostgres(t)

	mock.ExpectExec(`DELETE FROM session_workouts WHERE session_id = \$1`).
		WithArgs(pg.SessionID()).
		WillReturnResult(pgxmock.NewResult("DELETE", 2))
	mock.ExpectClose()

	require.NoError(t, pg.Close())
	require.NoError(t, mock.ExpectationsWereMet())
}
