package mcp

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/claude/mapty/internal/client"
	"github.com/claude/mapty/internal/form"
	"github.com/claude/mapty/internal/render"
	"github.com/claude/mapty/internal/session"
	"github.com/claude/mapty/internal/storage"
	"github.com/claude/mapty/internal/workout"
	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
)

// --- Tool definitions ---

var toolListWorkouts = mcp.NewTool("list_workouts",
	mcp.WithDescription("List the workouts recorded in this session, oldest first. Each entry has the workout, its map marker and its list entry with formatted pace or speed."),
	mcp.WithString("type", mcp.Description("Only return workouts of this type."), mcp.Enum("running", "cycling")),
)

var toolGetWorkout = mcp.NewTool("get_workout",
	mcp.WithDescription("Get one workout by ID."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Workout UUID")),
)

var toolLogWorkout = mcp.NewTool("log_workout",
	mcp.WithDescription("Record a workout at a map location. Running needs cadence (steps/min); cycling needs elevation gain (m, may be negative). Pace (min/km) or speed (km/h) is derived. Requires a known position, see set_position."),
	mcp.WithString("type", mcp.Required(), mcp.Description("Workout type"), mcp.Enum("running", "cycling")),
	mcp.WithNumber("distance", mcp.Required(), mcp.Description("Distance in km, > 0")),
	mcp.WithNumber("duration", mcp.Required(), mcp.Description("Duration in minutes, > 0")),
	mcp.WithNumber("cadence", mcp.Description("Running cadence in steps/min, a whole number > 0")),
	mcp.WithNumber("elevation", mcp.Description("Cycling elevation gain in meters")),
	mcp.WithNumber("lat", mcp.Required(), mcp.Description("Latitude of the workout")),
	mcp.WithNumber("lng", mcp.Required(), mcp.Description("Longitude of the workout")),
)

var toolSetPosition = mcp.NewTool("set_position",
	mcp.WithDescription("Set the user's current position. Workouts can only be logged once a position is known."),
	mcp.WithNumber("lat", mcp.Required(), mcp.Description("Latitude")),
	mcp.WithNumber("lng", mcp.Required(), mcp.Description("Longitude")),
)

// numberArg returns the raw form value for a numeric argument, or "" when it
// was not supplied.
func numberArg(req mcp.CallToolRequest, name string) string {
	v, ok := req.GetArguments()[name]
	if !ok || v == nil {
		return ""
	}
	switch n := v.(type) {
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	case string:
		return n
	default:
		return fmt.Sprint(n)
	}
}

// remoteCode returns the server error code when err came back over the REST
// API, or "" otherwise.
func remoteCode(err error) string {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return ""
}

// --- Tool handlers ---

func (h *handlers) listWorkouts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ws, err := h.ds.Workouts(ctx)
	if err != nil {
		h.log.Error("mcp list_workouts", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	if t := req.GetString("type", ""); t != "" {
		kind, err := workout.ParseKind(t)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		filtered := ws[:0]
		for _, w := range ws {
			if w.Kind == kind {
				filtered = append(filtered, w)
			}
		}
		ws = filtered
	}

	result, err := mcp.NewToolResultJSON(render.ForAll(ws))
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getWorkout(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("id parameter is required"), nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return mcp.NewToolResultError("invalid workout id: " + err.Error()), nil
	}

	w, err := h.ds.Workout(ctx, id)
	if errors.Is(err, storage.ErrNotFound) || remoteCode(err) == "not_found" {
		return mcp.NewToolResultError("workout not found"), nil
	}
	if err != nil {
		h.log.Error("mcp get_workout", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(render.For(w))
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) logWorkout(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	t, err := req.RequireString("type")
	if err != nil {
		return mcp.NewToolResultError("type parameter is required"), nil
	}

	in := form.Input{
		Type:      t,
		Distance:  numberArg(req, "distance"),
		Duration:  numberArg(req, "duration"),
		Cadence:   numberArg(req, "cadence"),
		Elevation: numberArg(req, "elevation"),
		Lat:       numberArg(req, "lat"),
		Lng:       numberArg(req, "lng"),
	}
	if in.Lat == "" || in.Lng == "" {
		return mcp.NewToolResultError("lat and lng parameters are required"), nil
	}

	view, err := h.ds.Submit(ctx, in)
	switch code := remoteCode(err); {
	case errors.Is(err, session.ErrInvalidInput), code == "invalid_input":
		return mcp.NewToolResultError(session.InvalidInputMessage + " (" + err.Error() + ")"), nil
	case errors.Is(err, session.ErrLocationUnavailable), code == "location_unavailable":
		return mcp.NewToolResultError("position unknown: call set_position first"), nil
	case err != nil:
		h.log.Error("mcp log_workout", "error", err)
		return mcp.NewToolResultError("logging workout failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(view)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) setPosition(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	lat, err := req.RequireFloat("lat")
	if err != nil {
		return mcp.NewToolResultError("lat parameter is required"), nil
	}
	lng, err := req.RequireFloat("lng")
	if err != nil {
		return mcp.NewToolResultError("lng parameter is required"), nil
	}

	c := workout.Coordinates{Lat: lat, Lng: lng}
	if err := h.ds.SetPosition(ctx, c); err != nil {
		return mcp.NewToolResultError("setting position failed: " + err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("position set to %g,%g", lat, lng)), nil
}
