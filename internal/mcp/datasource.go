package mcp

import (
	"context"

	"github.com/claude/mapty/internal/client"
	"github.com/claude/mapty/internal/form"
	"github.com/claude/mapty/internal/render"
	"github.com/claude/mapty/internal/session"
	"github.com/claude/mapty/internal/workout"
	"github.com/google/uuid"
)

// DataSource abstracts the workout session for MCP tools. Local (an in-process
// session) and *client.Client (remote via REST API) satisfy this interface.
type DataSource interface {
	SetPosition(ctx context.Context, c workout.Coordinates) error
	Submit(ctx context.Context, in form.Input) (render.View, error)
	Workouts(ctx context.Context) ([]workout.Workout, error)
	Workout(ctx context.Context, id uuid.UUID) (workout.Workout, error)
}

// Local serves MCP tools from a session in the same process.
type Local struct {
	*session.Session
}

func (l Local) SetPosition(_ context.Context, c workout.Coordinates) error {
	return l.Session.SetPosition(c)
}

// Compile-time check: Local satisfies DataSource.
var _ DataSource = Local{}

// Compile-time check: the REST client satisfies DataSource.
var _ DataSource = (*client.Client)(nil)
