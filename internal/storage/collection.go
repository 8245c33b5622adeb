// Package storage holds the workout collection owned by a session.
//
// Every backend is session-scoped: Close destroys the workouts it holds, so
// nothing outlives the session that created it.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/claude/mapty/internal/workout"
	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned by Get for an unknown workout ID.
	ErrNotFound = errors.New("workout not found")
	// ErrDuplicate is returned by Add when the workout ID is already stored.
	ErrDuplicate = errors.New("workout already stored")
)

// Collection is the ordered set of workouts recorded in one session.
type Collection interface {
	// Add appends w. Workouts are never updated once added.
	Add(ctx context.Context, w workout.Workout) error
	// List returns workouts in insertion order.
	List(ctx context.Context) ([]workout.Workout, error)
	Get(ctx context.Context, id uuid.UUID) (workout.Workout, error)
	Len(ctx context.Context) (int, error)
	// Close destroys the collection and its workouts.
	Close() error
}

// Driver names accepted by Open.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Options selects and configures a collection backend.
type Options struct {
	Driver string
	// SQLitePath is a database file removed on Close; empty means in-memory.
	SQLitePath string
	// PostgresDSN is used by the postgres driver.
	PostgresDSN string
	// Migrate applies the embedded schema before use (postgres only).
	Migrate bool
}

// Open creates an empty collection for a new session.
func Open(ctx context.Context, opts Options) (Collection, error) {
	switch opts.Driver {
	case DriverMemory, "":
		return NewMemory(), nil
	case DriverSQLite:
		return OpenSQLite(opts.SQLitePath)
	case DriverPostgres:
		if opts.Migrate {
			if err := RunMigrations(opts.PostgresDSN); err != nil {
				return nil, err
			}
		}
		return OpenPostgres(ctx, opts.PostgresDSN)
	}
	return nil, fmt.Errorf("unknown storage driver %q", opts.Driver)
}
