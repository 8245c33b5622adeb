// Package render builds the map marker and list entry shown for a workout.
package render

import (
	"strconv"

	"github.com/claude/mapty/internal/workout"
	"github.com/google/uuid"
)

// PopupOptions mirrors the options the map widget takes for a marker popup.
type PopupOptions struct {
	MaxWidth     int    `json:"max_width"`
	MinWidth     int    `json:"min_width"`
	AutoPan      bool   `json:"auto_pan"`
	AutoClose    bool   `json:"auto_close"`
	CloseOnClick bool   `json:"close_on_click"`
	ClassName    string `json:"class_name"`
}

// Marker is a pin on the map with an always-open popup.
type Marker struct {
	ID      uuid.UUID           `json:"id"`
	Coords  workout.Coordinates `json:"coords"`
	Content string              `json:"content"`
	Popup   PopupOptions        `json:"popup"`
}

// Detail is one icon/value/unit cell of a list entry.
type Detail struct {
	Icon  string `json:"icon"`
	Value string `json:"value"`
	Unit  string `json:"unit"`
}

// Entry is one row in the workout list.
type Entry struct {
	ID      uuid.UUID    `json:"id"`
	Kind    workout.Kind `json:"type"`
	Title   string       `json:"title"`
	Details []Detail     `json:"details"`
}

// View bundles a workout with everything needed to display it.
type View struct {
	Workout workout.Workout `json:"workout"`
	Marker  Marker          `json:"marker"`
	Entry   Entry           `json:"entry"`
}

// Icon returns the emoji shown next to a workout of kind k.
func Icon(k workout.Kind) string {
	if k == workout.KindRunning {
		return "🏃‍♂️"
	}
	return "🚴‍♀️"
}

// MarkerFor builds the map marker for w.
func MarkerFor(w workout.Workout) Marker {
	return Marker{
		ID:      w.ID,
		Coords:  w.Coords,
		Content: Icon(w.Kind) + " " + w.Description,
		Popup: PopupOptions{
			MaxWidth:     400,
			MinWidth:     300,
			AutoPan:      true,
			AutoClose:    false,
			CloseOnClick: false,
			ClassName:    string(w.Kind) + "-popup",
		},
	}
}

// EntryFor builds the list entry for w. Derived metrics are shown with one
// decimal; raw measurements as entered.
func EntryFor(w workout.Workout) Entry {
	details := []Detail{
		{Icon: Icon(w.Kind), Value: formatNumber(w.Distance), Unit: "km"},
		{Icon: "⏱", Value: formatNumber(w.Duration), Unit: "min"},
	}
	switch w.Kind {
	case workout.KindRunning:
		details = append(details,
			Detail{Icon: "⚡️", Value: fixed1(w.Running.Pace), Unit: "min/km"},
			Detail{Icon: "🦶🏼", Value: strconv.Itoa(w.Running.Cadence), Unit: "spm"},
		)
	case workout.KindCycling:
		details = append(details,
			Detail{Icon: "⚡️", Value: fixed1(w.Cycling.Speed), Unit: "km/h"},
			Detail{Icon: "⛰", Value: formatNumber(w.Cycling.ElevationGain), Unit: "m"},
		)
	}
	return Entry{
		ID:      w.ID,
		Kind:    w.Kind,
		Title:   w.Description,
		Details: details,
	}
}

// For builds the full view of w.
func For(w workout.Workout) View {
	return View{Workout: w, Marker: MarkerFor(w), Entry: EntryFor(w)}
}

// ForAll builds views in collection order.
func ForAll(ws []workout.Workout) []View {
	views := make([]View, 0, len(ws))
	for _, w := range ws {
		views = append(views, For(w))
	}
	return views
}

func fixed1(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
