package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/claude/mapty/internal/events"
	"github.com/claude/mapty/internal/form"
	"github.com/claude/mapty/internal/metrics"
	"github.com/claude/mapty/internal/storage"
	"github.com/claude/mapty/internal/workout"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	home  = workout.Coordinates{Lat: 52.52, Lng: 13.40}
	point = workout.Coordinates{Lat: 52.51, Lng: 13.38}
)

type recorder struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (r *recorder) Publish(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return r.err
}

type failingCollection struct {
	*storage.Memory
}

func (failingCollection) Add(context.Context, workout.Workout) error {
	return errors.New("disk full")
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestSession(t *testing.T) (*Session, *recorder, *metrics.Metrics) {
	t.Helper()
	f := workout.NewFactory(workout.WithClock(func() time.Time {
		return time.Date(2026, time.April, 14, 7, 0, 0, 0, time.UTC)
	}))
	rec := &recorder{}
	m := metrics.NewTest()
	s := New(storage.NewMemory(), f, rec, testLogger(), WithMetrics(m))
	t.Cleanup(func() { s.Close() })
	return s, rec, m
}

func runningInput() form.Input {
	return form.Input{Type: "running", Distance: "5.2", Duration: "24", Cadence: "178"}
}

// TestSubmitRunning walks the happy path: position, click, submit.
func TestSubmitRunning(t *testing.T) {
	s, rec, m := newTestSession(t)
	ctx := context.Background()

	require.NoError(t, s.SetPosition(home))
	require.NoError(t, s.SelectPoint(point))
	assert.True(t, s.FormOpen())

	view, err := s.Submit(ctx, runningInput())
	require.NoError(t, err)

	assert.Equal(t, workout.KindRunning, view.Workout.Kind)
	assert.Equal(t, point, view.Workout.Coords)
	assert.InDelta(t, 24/5.2, view.Workout.Running.Pace, 1e-9)
	assert.Equal(t, "Running on April 14", view.Entry.Title)
	assert.Equal(t, "running-popup", view.Marker.Popup.ClassName)
	assert.False(t, s.FormOpen())

	ws, err := s.Workouts(ctx)
	require.NoError(t, err)
	require.Len(t, ws, 1)
	assert.Equal(t, view.Workout.ID, ws[0].ID)

	require.Len(t, rec.events, 1)
	assert.Equal(t, events.TypeWorkoutCreated, rec.events[0].Type)
	assert.Equal(t, view.Workout.ID, rec.events[0].WorkoutID)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.WorkoutsCreated.WithLabelValues("running")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionWorkouts))
}

func TestSubmitCycling(t *testing.T) {
	s, _, _ := newTestSession(t)
	require.NoError(t, s.SetPosition(home))
	require.NoError(t, s.SelectPoint(point))

	view, err := s.Submit(context.Background(), form.Input{
		Type: "cycling", Distance: "27", Duration: "95", Elevation: "523",
	})
	require.NoError(t, err)
	assert.InDelta(t, 17.0526, view.Workout.Cycling.Speed, 1e-4)
	assert.Equal(t, 523.0, view.Workout.Cycling.ElevationGain)
}

// TestInvalidInputKeepsFormOpen verifies a rejected submission creates
// nothing and leaves the selected point in place for a retry.
func TestInvalidInputKeepsFormOpen(t *testing.T) {
	cases := map[string]form.Input{
		"negative distance": {Type: "running", Distance: "-5", Duration: "24", Cadence: "178"},
		"zero duration":     {Type: "running", Distance: "5", Duration: "0", Cadence: "178"},
		"not a number":      {Type: "cycling", Distance: "abc", Duration: "24", Elevation: "10"},
		"zero cadence":      {Type: "running", Distance: "5", Duration: "24", Cadence: "0"},
		"unknown type":      {Type: "swimming", Distance: "5", Duration: "24"},
		"bad coordinates":   {Type: "running", Distance: "5", Duration: "24", Cadence: "170", Lat: "91", Lng: "0"},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			s, rec, m := newTestSession(t)
			ctx := context.Background()
			require.NoError(t, s.SetPosition(home))
			require.NoError(t, s.SelectPoint(point))

			_, err := s.Submit(ctx, in)
			assert.ErrorIs(t, err, ErrInvalidInput)
			assert.True(t, s.FormOpen())

			ws, err := s.Workouts(ctx)
			require.NoError(t, err)
			assert.Empty(t, ws)
			assert.Empty(t, rec.events)
			assert.Equal(t, 1.0, testutil.ToFloat64(m.SubmissionsRejected.WithLabelValues(metrics.ReasonInvalidInput)))
		})
	}
}

func TestInvalidInputUnwrapsCause(t *testing.T) {
	s, _, _ := newTestSession(t)
	require.NoError(t, s.SetPosition(home))
	require.NoError(t, s.SelectPoint(point))

	_, err := s.Submit(context.Background(), form.Input{Type: "running", Distance: "-1", Duration: "10", Cadence: "150"})
	assert.ErrorIs(t, err, workout.ErrInvalidMeasurement)

	_, err = s.Submit(context.Background(), form.Input{Type: "running", Distance: "x", Duration: "10", Cadence: "150"})
	assert.ErrorIs(t, err, form.ErrNotANumber)
}

// TestSubmitWithoutLocation verifies a session without a location context
// accepts no workouts, even with explicit coordinates.
func TestSubmitWithoutLocation(t *testing.T) {
	s, _, m := newTestSession(t)
	s.PositionUnavailable("permission denied")

	in := runningInput()
	in.Lat, in.Lng = "52.5", "13.4"
	_, err := s.Submit(context.Background(), in)
	assert.ErrorIs(t, err, ErrLocationUnavailable)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SubmissionsRejected.WithLabelValues(metrics.ReasonNoLocation)))

	st, err := s.State(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "permission denied", st.PositionError)
	assert.Nil(t, st.Position)
}

func TestSelectPointRequiresLocation(t *testing.T) {
	s, _, _ := newTestSession(t)
	assert.ErrorIs(t, s.SelectPoint(point), ErrLocationUnavailable)
	assert.False(t, s.FormOpen())
}

func TestSubmitWithoutPoint(t *testing.T) {
	s, _, _ := newTestSession(t)
	require.NoError(t, s.SetPosition(home))

	_, err := s.Submit(context.Background(), runningInput())
	assert.ErrorIs(t, err, ErrNoPointSelected)
}

// TestSubmitWithExplicitCoordinates verifies programmatic clients can log a
// workout without a map click.
func TestSubmitWithExplicitCoordinates(t *testing.T) {
	s, _, _ := newTestSession(t)
	require.NoError(t, s.SetPosition(home))

	in := runningInput()
	in.Lat, in.Lng = "48.85", "2.35"
	view, err := s.Submit(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, workout.Coordinates{Lat: 48.85, Lng: 2.35}, view.Workout.Coords)
}

func TestRejectsInvalidCoordinates(t *testing.T) {
	s, _, _ := newTestSession(t)
	assert.ErrorIs(t, s.SetPosition(workout.Coordinates{Lat: 100, Lng: 0}), ErrInvalidCoordinates)
	require.NoError(t, s.SetPosition(home))
	assert.ErrorIs(t, s.SelectPoint(workout.Coordinates{Lat: 0, Lng: 200}), ErrInvalidCoordinates)
}

// TestPublishFailureKeepsWorkout verifies a stored workout survives a failed
// event delivery.
func TestPublishFailureKeepsWorkout(t *testing.T) {
	s, rec, _ := newTestSession(t)
	rec.err = errors.New("broker down")
	require.NoError(t, s.SetPosition(home))
	require.NoError(t, s.SelectPoint(point))

	_, err := s.Submit(context.Background(), runningInput())
	require.NoError(t, err)

	ws, err := s.Workouts(context.Background())
	require.NoError(t, err)
	assert.Len(t, ws, 1)
}

func TestStorageFailure(t *testing.T) {
	s := New(failingCollection{storage.NewMemory()}, workout.NewFactory(), nil, testLogger())
	require.NoError(t, s.SetPosition(home))
	require.NoError(t, s.SelectPoint(point))

	_, err := s.Submit(context.Background(), runningInput())
	assert.ErrorContains(t, err, "disk full")
	assert.NotErrorIs(t, err, ErrInvalidInput)
	assert.True(t, s.FormOpen())
}

func TestWorkoutLookup(t *testing.T) {
	s, _, _ := newTestSession(t)
	ctx := context.Background()
	require.NoError(t, s.SetPosition(home))
	require.NoError(t, s.SelectPoint(point))
	view, err := s.Submit(ctx, runningInput())
	require.NoError(t, err)

	got, err := s.Workout(ctx, view.Workout.ID)
	require.NoError(t, err)
	assert.Equal(t, view.Workout, got)

	_, err = s.Workout(ctx, uuid.New())
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestState(t *testing.T) {
	f := workout.NewFactory()
	s := New(storage.NewMemory(), f, nil, testLogger(), WithZoom(15))
	ctx := context.Background()

	st, err := s.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, State{Zoom: 15}, st)

	require.NoError(t, s.SetPosition(home))
	require.NoError(t, s.SelectPoint(point))
	st, err = s.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, &home, st.Position)
	assert.Equal(t, &point, st.SelectedPoint)
	assert.True(t, st.FormOpen)
	assert.Zero(t, st.Workouts)
}

// TestCloseDiscardsWorkouts verifies workouts do not outlive the session.
func TestCloseDiscardsWorkouts(t *testing.T) {
	mem := storage.NewMemory()
	s := New(mem, workout.NewFactory(), nil, testLogger())
	ctx := context.Background()
	require.NoError(t, s.SetPosition(home))
	require.NoError(t, s.SelectPoint(point))
	_, err := s.Submit(ctx, runningInput())
	require.NoError(t, err)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	n, err := mem.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

// TestSubmitAfterClose verifies a closed session refuses input and reads
// instead of starting over on the same collection.
func TestSubmitAfterClose(t *testing.T) {
	mem := storage.NewMemory()
	s := New(mem, workout.NewFactory(), nil, testLogger())
	ctx := context.Background()
	require.NoError(t, s.SetPosition(home))
	require.NoError(t, s.Close())

	assert.ErrorIs(t, s.SetPosition(home), ErrClosed)
	assert.ErrorIs(t, s.SelectPoint(point), ErrClosed)
	s.PositionUnavailable("denied")

	_, err := s.Submit(ctx, runningInput())
	assert.ErrorIs(t, err, ErrClosed)
	_, err = s.Workouts(ctx)
	assert.ErrorIs(t, err, ErrClosed)
	_, err = s.Workout(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrClosed)
	_, err = s.State(ctx)
	assert.ErrorIs(t, err, ErrClosed)

	n, err := mem.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

// TestConcurrentSubmits verifies each accepted submission consumes the
// selected point exactly once.
func TestConcurrentSubmits(t *testing.T) {
	s, _, _ := newTestSession(t)
	ctx := context.Background()
	require.NoError(t, s.SetPosition(home))
	require.NoError(t, s.SelectPoint(point))

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = s.Submit(ctx, runningInput())
		}()
	}
	wg.Wait()

	var ok int
	for _, err := range errs {
		if err == nil {
			ok++
		} else {
			assert.ErrorIs(t, err, ErrNoPointSelected)
		}
	}
	assert.Equal(t, 1, ok)
}
