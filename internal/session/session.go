// Package session holds the per-user controller: it tracks the location
// context and selected map point, turns form submissions into workouts, and
// owns the workout collection for the lifetime of the session.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/claude/mapty/internal/events"
	"github.com/claude/mapty/internal/form"
	"github.com/claude/mapty/internal/metrics"
	"github.com/claude/mapty/internal/render"
	"github.com/claude/mapty/internal/storage"
	"github.com/claude/mapty/internal/workout"
	"github.com/google/uuid"
)

var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrLocationUnavailable = errors.New("location unavailable")
	ErrNoPointSelected     = errors.New("no map point selected")
	ErrInvalidCoordinates  = errors.New("invalid coordinates")
	ErrClosed              = errors.New("session closed")
)

// User-facing notification texts.
const (
	InvalidInputMessage        = "Inputs have to be positive numbers!"
	LocationUnavailableMessage = "Network Problem"
)

// DefaultZoom is the map zoom used when centering on the user's position.
const DefaultZoom = 13

// State is a snapshot of the controller.
type State struct {
	Position      *workout.Coordinates `json:"position"`
	PositionError string               `json:"position_error,omitempty"`
	Zoom          int                  `json:"zoom"`
	SelectedPoint *workout.Coordinates `json:"selected_point"`
	FormOpen      bool                 `json:"form_open"`
	Workouts      int                  `json:"workouts"`
}

// Session is safe for concurrent use.
type Session struct {
	mu       sync.Mutex
	workouts storage.Collection
	factory  *workout.Factory
	pub      events.Publisher
	metrics  *metrics.Metrics
	log      *slog.Logger
	zoom     int

	position    *workout.Coordinates
	positionErr string
	selected    *workout.Coordinates
	closed      bool
}

type Option func(*Session)

// WithZoom sets the map zoom reported in State.
func WithZoom(z int) Option {
	return func(s *Session) {
		if z > 0 {
			s.zoom = z
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Session) { s.metrics = m }
}

// New creates a Session that owns workouts. A nil publisher discards events.
func New(workouts storage.Collection, factory *workout.Factory, pub events.Publisher, log *slog.Logger, opts ...Option) *Session {
	if pub == nil {
		pub = events.Nop{}
	}
	s := &Session{
		workouts: workouts,
		factory:  factory,
		pub:      pub,
		log:      log,
		zoom:     DefaultZoom,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// SetPosition records the user's position and establishes the location
// context.
func (s *Session) SetPosition(c workout.Coordinates) error {
	if !c.Valid() {
		return fmt.Errorf("%w: %v,%v", ErrInvalidCoordinates, c.Lat, c.Lng)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	s.position = &c
	s.positionErr = ""
	s.log.Info("position set", "lat", c.Lat, "lng", c.Lng, "zoom", s.zoom)
	return nil
}

// PositionUnavailable records a geolocation failure. The session refuses new
// workouts until SetPosition succeeds.
func (s *Session) PositionUnavailable(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.position = nil
	s.selected = nil
	s.positionErr = reason
	s.log.Warn("position unavailable", "reason", reason)
}

// SelectPoint records a map click and opens the workout form.
func (s *Session) SelectPoint(c workout.Coordinates) error {
	if !c.Valid() {
		return fmt.Errorf("%w: %v,%v", ErrInvalidCoordinates, c.Lat, c.Lng)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if s.position == nil {
		return ErrLocationUnavailable
	}
	s.selected = &c
	return nil
}

// FormOpen reports whether a point is selected and awaiting a submission.
func (s *Session) FormOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected != nil
}

// Submit builds a workout from raw form input at the selected point (or at
// the coordinates carried by the input), stores it and closes the form. On
// any failure nothing is stored and the form stays open.
func (s *Session) Submit(ctx context.Context, in form.Input) (render.View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return render.View{}, ErrClosed
	}
	if s.position == nil {
		s.metrics.SubmissionRejected(metrics.ReasonNoLocation)
		return render.View{}, ErrLocationUnavailable
	}

	sub, err := form.Parse(in)
	if err != nil {
		s.metrics.SubmissionRejected(metrics.ReasonInvalidInput)
		return render.View{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	var at workout.Coordinates
	switch {
	case sub.Coords != nil:
		if !sub.Coords.Valid() {
			s.metrics.SubmissionRejected(metrics.ReasonInvalidInput)
			return render.View{}, fmt.Errorf("%w: %w", ErrInvalidInput, ErrInvalidCoordinates)
		}
		at = *sub.Coords
	case s.selected != nil:
		at = *s.selected
	default:
		s.metrics.SubmissionRejected(metrics.ReasonNoPoint)
		return render.View{}, ErrNoPointSelected
	}

	w, err := sub.Build(s.factory, at)
	if err != nil {
		s.metrics.SubmissionRejected(metrics.ReasonInvalidInput)
		return render.View{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	if err := s.workouts.Add(ctx, w); err != nil {
		s.metrics.SubmissionRejected(metrics.ReasonStorage)
		return render.View{}, fmt.Errorf("storing workout: %w", err)
	}
	s.selected = nil

	n, err := s.workouts.Len(ctx)
	if err != nil {
		s.log.Warn("counting workouts", "error", err)
	}
	s.metrics.WorkoutCreated(string(w.Kind), n)

	if err := s.pub.Publish(ctx, events.WorkoutCreated(w)); err != nil {
		// The workout is already stored; a lost event does not undo it.
		s.log.Error("publishing workout event", "id", w.ID, "error", err)
	}

	s.log.Info("workout added", "id", w.ID, "kind", w.Kind, "description", w.Description)
	return render.For(w), nil
}

// Workouts returns the session's workouts in insertion order.
func (s *Session) Workouts(ctx context.Context) ([]workout.Workout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}
	ws, err := s.workouts.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing workouts: %w", err)
	}
	return ws, nil
}

func (s *Session) Workout(ctx context.Context, id uuid.UUID) (workout.Workout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return workout.Workout{}, ErrClosed
	}
	w, err := s.workouts.Get(ctx, id)
	if err != nil {
		return workout.Workout{}, fmt.Errorf("getting workout %s: %w", id, err)
	}
	return w, nil
}

func (s *Session) State(ctx context.Context) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return State{}, ErrClosed
	}
	n, err := s.workouts.Len(ctx)
	if err != nil {
		return State{}, fmt.Errorf("counting workouts: %w", err)
	}
	return State{
		Position:      s.position,
		PositionError: s.positionErr,
		Zoom:          s.zoom,
		SelectedPoint: s.selected,
		FormOpen:      s.selected != nil,
		Workouts:      n,
	}, nil
}

// Close ends the session and discards its workouts. Every later call except
// Close returns ErrClosed.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.position, s.selected = nil, nil
	if err := s.workouts.Close(); err != nil {
		return fmt.Errorf("closing workouts: %w", err)
	}
	return nil
}
