// Package workout models a recorded workout session and its derived metric.
//
// A Workout is one of a closed set of kinds. The kind-specific fields live in
// the Running or Cycling section, and only the section matching Kind is set.
package workout

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidMeasurement is returned when a workout is built from a
// non-positive or non-finite measurement.
var ErrInvalidMeasurement = errors.New("invalid measurement")

// Kind discriminates the workout variants.
type Kind string

const (
	KindRunning Kind = "running"
	KindCycling Kind = "cycling"
)

// Kinds lists every workout kind in display order.
var Kinds = []Kind{KindRunning, KindCycling}

// ParseKind maps a form value to a Kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindRunning, KindCycling:
		return Kind(s), nil
	}
	return "", fmt.Errorf("unknown workout type %q", s)
}

// Title returns the capitalized kind name, e.g. "Running".
func (k Kind) Title() string {
	if k == "" {
		return ""
	}
	return strings.ToUpper(string(k[:1])) + string(k[1:])
}

// Coordinates is a (latitude, longitude) pair in degrees.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether the pair lies within WGS84 bounds.
func (c Coordinates) Valid() bool {
	return finite(c.Lat) && finite(c.Lng) &&
		c.Lat >= -90 && c.Lat <= 90 &&
		c.Lng >= -180 && c.Lng <= 180
}

// Running holds the running-only measurements.
type Running struct {
	Cadence int     `json:"cadence"` // steps per minute
	Pace    float64 `json:"pace"`    // minutes per kilometer
}

// Cycling holds the cycling-only measurements.
type Cycling struct {
	ElevationGain float64 `json:"elevation_gain"` // meters
	Speed         float64 `json:"speed"`          // kilometers per hour
}

// Workout is an immutable record of a completed workout. Construct it with
// NewRunning or NewCycling (or a Factory); the zero value is not valid.
type Workout struct {
	ID          uuid.UUID   `json:"id"`
	Kind        Kind        `json:"type"`
	CreatedAt   time.Time   `json:"created_at"`
	Coords      Coordinates `json:"coords"`
	Distance    float64     `json:"distance"` // kilometers
	Duration    float64     `json:"duration"` // minutes
	Description string      `json:"description"`
	Running     Running     `json:"running,omitzero"`
	Cycling     Cycling     `json:"cycling,omitzero"`
}

// Metric is the kind-specific headline value of a workout.
type Metric struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

// Metric returns pace for running and speed for cycling.
func (w Workout) Metric() Metric {
	switch w.Kind {
	case KindRunning:
		return Metric{Name: "pace", Value: w.Running.Pace, Unit: "min/km"}
	case KindCycling:
		return Metric{Name: "speed", Value: w.Cycling.Speed, Unit: "km/h"}
	}
	return Metric{}
}

// Describe returns the label computed when the workout was created.
func Describe(w Workout) string {
	return w.Description
}

// Validate re-checks the invariants of a workout, e.g. one loaded from a
// collection backend.
func (w Workout) Validate() error {
	if w.ID == uuid.Nil {
		return fmt.Errorf("%w: missing id", ErrInvalidMeasurement)
	}
	if err := checkBase(w.Distance, w.Duration); err != nil {
		return err
	}
	switch w.Kind {
	case KindRunning:
		return checkCadence(w.Running.Cadence)
	case KindCycling:
		return checkElevation(w.Cycling.ElevationGain)
	}
	return fmt.Errorf("unknown workout type %q", w.Kind)
}

// NewRunning builds a running workout with the default factory.
func NewRunning(coords Coordinates, distance, duration float64, cadence int) (Workout, error) {
	return defaultFactory.NewRunning(coords, distance, duration, cadence)
}

// NewCycling builds a cycling workout with the default factory.
func NewCycling(coords Coordinates, distance, duration, elevationGain float64) (Workout, error) {
	return defaultFactory.NewCycling(coords, distance, duration, elevationGain)
}

func describe(k Kind, t time.Time) string {
	return fmt.Sprintf("%s on %s %d", k.Title(), t.Month(), t.Day())
}

func checkBase(distance, duration float64) error {
	if !finite(distance) || distance <= 0 {
		return fmt.Errorf("%w: distance must be a positive number, got %v", ErrInvalidMeasurement, distance)
	}
	if !finite(duration) || duration <= 0 {
		return fmt.Errorf("%w: duration must be a positive number, got %v", ErrInvalidMeasurement, duration)
	}
	return nil
}

func checkCadence(cadence int) error {
	if cadence <= 0 {
		return fmt.Errorf("%w: cadence must be a positive number, got %d", ErrInvalidMeasurement, cadence)
	}
	return nil
}

func checkElevation(gain float64) error {
	if !finite(gain) {
		return fmt.Errorf("%w: elevation gain must be a number, got %v", ErrInvalidMeasurement, gain)
	}
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
