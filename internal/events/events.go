// Package events publishes notifications about recorded workouts.
package events

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/claude/mapty/internal/workout"
	"github.com/google/uuid"
)

// TypeWorkoutCreated is emitted once per workout added to a session.
const TypeWorkoutCreated = "workout.created"

// Event is the envelope sent to publishers.
type Event struct {
	Type       string          `json:"type"`
	WorkoutID  uuid.UUID       `json:"workout_id"`
	Kind       workout.Kind    `json:"kind"`
	OccurredAt time.Time       `json:"occurred_at"`
	Workout    workout.Workout `json:"workout"`
}

// WorkoutCreated builds the event for a newly stored workout.
func WorkoutCreated(w workout.Workout) Event {
	return Event{
		Type:       TypeWorkoutCreated,
		WorkoutID:  w.ID,
		Kind:       w.Kind,
		OccurredAt: w.CreatedAt.UTC(),
		Workout:    w,
	}
}

// Publisher delivers events to a sink.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// LogPublisher writes each event to a structured logger.
type LogPublisher struct {
	log *slog.Logger
}

// NewLogPublisher creates a LogPublisher.
func NewLogPublisher(log *slog.Logger) *LogPublisher {
	return &LogPublisher{log: log}
}

func (p *LogPublisher) Publish(_ context.Context, e Event) error {
	p.log.Info("event",
		"type", e.Type,
		"workout_id", e.WorkoutID,
		"kind", e.Kind,
		"description", e.Workout.Description,
	)
	return nil
}

// Multi fans an event out to every publisher and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, e Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
