package form

import "github.com/claude/mapty/internal/workout"

// Field describes one input row of the workout form.
type Field struct {
	Name        string `json:"name"`
	Label       string `json:"label"`
	Placeholder string `json:"placeholder"`
	Hidden      bool   `json:"hidden"`
}

// Fields returns the form rows for a workout type. Cadence is shown for
// running and elevation for cycling; the other row is hidden.
func Fields(kind workout.Kind) []Field {
	fields := []Field{
		{Name: "distance", Label: "Distance", Placeholder: "km"},
		{Name: "duration", Label: "Duration", Placeholder: "min"},
		{Name: "cadence", Label: "Cadence", Placeholder: "step/min"},
		{Name: "elevation", Label: "Elev Gain", Placeholder: "meters"},
	}
	switch kind {
	case workout.KindCycling:
		fields[2].Hidden = true
	default:
		fields[3].Hidden = true
	}
	return fields
}
