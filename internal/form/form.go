// Package form turns raw workout form fields into typed measurements.
package form

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/claude/mapty/internal/workout"
)

var (
	// ErrNotANumber is returned when a numeric field does not parse.
	ErrNotANumber = errors.New("input has to be a number")
	// ErrUnknownType is returned for a workout type outside the known kinds.
	ErrUnknownType = errors.New("unknown workout type")
	// ErrMissingField is returned when a required field is empty.
	ErrMissingField = errors.New("missing field")
)

// Input holds the raw form values as typed by the user.
type Input struct {
	Type      string `json:"type"`
	Distance  string `json:"distance"`
	Duration  string `json:"duration"`
	Cadence   string `json:"cadence,omitempty"`
	Elevation string `json:"elevation,omitempty"`
	// Lat/Lng are optional; when empty the selected map point is used.
	Lat string `json:"lat,omitempty"`
	Lng string `json:"lng,omitempty"`
}

// Submission is a parsed form ready to build a workout from.
type Submission struct {
	Kind          workout.Kind
	Distance      float64
	Duration      float64
	Cadence       int
	ElevationGain float64
	Coords        *workout.Coordinates
}

// Parse converts raw fields to numbers. Only the field matching the workout
// type (cadence or elevation) is read. Positivity is not checked here; the
// workout constructors reject non-positive measurements.
func Parse(in Input) (Submission, error) {
	kind, err := workout.ParseKind(strings.TrimSpace(in.Type))
	if err != nil {
		return Submission{}, fmt.Errorf("%w: %q", ErrUnknownType, in.Type)
	}

	sub := Submission{Kind: kind}
	if sub.Distance, err = parseFloat("distance", in.Distance); err != nil {
		return Submission{}, err
	}
	if sub.Duration, err = parseFloat("duration", in.Duration); err != nil {
		return Submission{}, err
	}

	switch kind {
	case workout.KindRunning:
		if sub.Cadence, err = parseInt("cadence", in.Cadence); err != nil {
			return Submission{}, err
		}
	case workout.KindCycling:
		if sub.ElevationGain, err = parseFloat("elevation", in.Elevation); err != nil {
			return Submission{}, err
		}
	}

	if strings.TrimSpace(in.Lat) != "" || strings.TrimSpace(in.Lng) != "" {
		lat, err := parseFloat("lat", in.Lat)
		if err != nil {
			return Submission{}, err
		}
		lng, err := parseFloat("lng", in.Lng)
		if err != nil {
			return Submission{}, err
		}
		sub.Coords = &workout.Coordinates{Lat: lat, Lng: lng}
	}

	return sub, nil
}

// Build constructs the workout at the given point with f.
func (s Submission) Build(f *workout.Factory, at workout.Coordinates) (workout.Workout, error) {
	switch s.Kind {
	case workout.KindRunning:
		return f.NewRunning(at, s.Distance, s.Duration, s.Cadence)
	case workout.KindCycling:
		return f.NewCycling(at, s.Distance, s.Duration, s.ElevationGain)
	}
	return workout.Workout{}, fmt.Errorf("%w: %q", ErrUnknownType, s.Kind)
}

func parseFloat(field, raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("%w: %s", ErrMissingField, field)
	}
	// Only plain decimals count; ParseFloat also takes hex floats, NaN and Inf.
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || strings.ContainsAny(raw, "xX") || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %s=%q", ErrNotANumber, field, raw)
	}
	return v, nil
}

func parseInt(field, raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("%w: %s", ErrMissingField, field)
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", ErrNotANumber, field, raw)
	}
	return v, nil
}
