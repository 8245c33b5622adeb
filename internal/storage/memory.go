package storage

import (
	"context"
	"slices"
	"sync"

	"github.com/claude/mapty/internal/workout"
	"github.com/google/uuid"
)

// Memory is a slice-backed collection.
type Memory struct {
	mu       sync.RWMutex
	workouts []workout.Workout
	index    map[uuid.UUID]int
}

// NewMemory returns an empty in-memory collection.
func NewMemory() *Memory {
	return &Memory{index: map[uuid.UUID]int{}}
}

func (m *Memory) Add(_ context.Context, w workout.Workout) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.index[w.ID]; ok {
		return ErrDuplicate
	}
	m.index[w.ID] = len(m.workouts)
	m.workouts = append(m.workouts, w)
	return nil
}

func (m *Memory) List(_ context.Context) ([]workout.Workout, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.workouts), nil
}

func (m *Memory) Get(_ context.Context, id uuid.UUID) (workout.Workout, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	i, ok := m.index[id]
	if !ok {
		return workout.Workout{}, ErrNotFound
	}
	return m.workouts[i], nil
}

func (m *Memory) Len(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.workouts), nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.workouts = nil
	m.index = map[uuid.UUID]int{}
	return nil
}
