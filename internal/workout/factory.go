package workout

import (
	"time"

	"github.com/google/uuid"
)

// Clock returns the current time.
type Clock func() time.Time

// IDSource returns a fresh workout ID.
type IDSource func() uuid.UUID

// Factory stamps new workouts with an ID and creation time.
type Factory struct {
	now   Clock
	newID IDSource
}

// Option configures a Factory.
type Option func(*Factory)

// WithClock overrides the creation clock.
func WithClock(c Clock) Option {
	return func(f *Factory) { f.now = c }
}

// WithIDSource overrides ID generation.
func WithIDSource(s IDSource) Option {
	return func(f *Factory) { f.newID = s }
}

// NewFactory returns a Factory using the wall clock and random UUIDs unless
// overridden.
func NewFactory(opts ...Option) *Factory {
	f := &Factory{now: time.Now, newID: uuid.New}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

var defaultFactory = NewFactory()

// NewRunning builds a running workout. Pace is duration/distance.
func (f *Factory) NewRunning(coords Coordinates, distance, duration float64, cadence int) (Workout, error) {
	if err := checkBase(distance, duration); err != nil {
		return Workout{}, err
	}
	if err := checkCadence(cadence); err != nil {
		return Workout{}, err
	}
	w := f.base(KindRunning, coords, distance, duration)
	w.Running = Running{
		Cadence: cadence,
		Pace:    duration / distance,
	}
	return w, nil
}

// NewCycling builds a cycling workout. Speed is distance/(duration/60), in km/h.
func (f *Factory) NewCycling(coords Coordinates, distance, duration, elevationGain float64) (Workout, error) {
	if err := checkBase(distance, duration); err != nil {
		return Workout{}, err
	}
	if err := checkElevation(elevationGain); err != nil {
		return Workout{}, err
	}
	w := f.base(KindCycling, coords, distance, duration)
	w.Cycling = Cycling{
		ElevationGain: elevationGain,
		Speed:         distance / (duration / 60),
	}
	return w, nil
}

func (f *Factory) base(kind Kind, coords Coordinates, distance, duration float64) Workout {
	created := f.now()
	return Workout{
		ID:          f.newID(),
		Kind:        kind,
		CreatedAt:   created,
		Coords:      coords,
		Distance:    distance,
		Duration:    duration,
		Description: describe(kind, created),
	}
}
