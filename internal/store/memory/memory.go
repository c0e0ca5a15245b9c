package memory

import (
	"context"
	"sort"
	"sync"

	"calendario/internal/core"
	"calendario/internal/store"

	"github.com/google/uuid"
)

// Store is an in-memory store implementation, interchangeable with the
// SQLite repository behind the backend factory. Useful for tests and for
// running without a database.
type Store struct {
	mu         sync.Mutex
	activities []core.Activity
	types      []core.ActivityType
}

var _ store.Store = (*Store)(nil)

// New returns a store seeded with the given types. With no types it seeds
// the default set, preserving the at-least-one-type invariant from day one.
func New(types []core.ActivityType) *Store {
	if len(types) == 0 {
		types = core.DefaultTypes
	}
	s := &Store{types: make([]core.ActivityType, len(types))}
	copy(s.types, types)
	return s
}

func (s *Store) ListActivities(_ context.Context, filter *store.MonthFilter) ([]core.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]core.Activity, 0, len(s.activities))
	for _, a := range s.activities {
		if filter != nil {
			if a.Date.Year() != filter.Year || int(a.Date.Month()) != filter.Month {
				continue
			}
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date.Time) })
	return out, nil
}

func (s *Store) GetActivity(_ context.Context, id string) (core.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.activities {
		if a.ID == id {
			return a, nil
		}
	}
	return core.Activity{}, core.ErrNotFound
}

func (s *Store) CreateActivity(_ context.Context, a core.Activity) (core.Activity, error) {
	if err := a.Validate(); err != nil {
		return core.Activity{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.typeExistsLocked(a.TypeID) {
		return core.Activity{}, core.ErrUnknownType
	}

	a.ID = uuid.NewString()
	s.activities = append(s.activities, a)
	return a, nil
}

func (s *Store) UpdateActivity(_ context.Context, id string, a core.Activity) (core.Activity, error) {
	a.ID = id
	if err := a.Validate(); err != nil {
		return core.Activity{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.typeExistsLocked(a.TypeID) {
		return core.Activity{}, core.ErrUnknownType
	}

	for i := range s.activities {
		if s.activities[i].ID == id {
			s.activities[i] = a
			return a, nil
		}
	}
	return core.Activity{}, core.ErrNotFound
}

func (s *Store) DeleteActivity(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.activities {
		if s.activities[i].ID == id {
			s.activities = append(s.activities[:i], s.activities[i+1:]...)
			return nil
		}
	}
	return core.ErrNotFound
}

func (s *Store) typeExistsLocked(id string) bool {
	for _, t := range s.types {
		if t.ID == id {
			return true
		}
	}
	return false
}

func (s *Store) ListTypes(_ context.Context) ([]core.ActivityType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]core.ActivityType, len(s.types))
	copy(out, s.types)
	return out, nil
}

func (s *Store) CreateType(_ context.Context, t core.ActivityType) (core.ActivityType, error) {
	if err := t.Validate(); err != nil {
		return core.ActivityType{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	t.ID = uuid.NewString()
	s.types = append(s.types, t)
	return t, nil
}

func (s *Store) UpdateType(_ context.Context, id string, t core.ActivityType) (core.ActivityType, error) {
	t.ID = id
	if err := t.Validate(); err != nil {
		return core.ActivityType{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.types {
		if s.types[i].ID == id {
			s.types[i] = t
			return t, nil
		}
	}
	return core.ActivityType{}, core.ErrNotFound
}

func (s *Store) DeleteType(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i := range s.types {
		if s.types[i].ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		return core.ErrNotFound
	}
	if len(s.types) <= 1 {
		return core.ErrLastType
	}

	// Reassignment target: remaining type with the smallest id.
	target := ""
	for _, t := range s.types {
		if t.ID == id {
			continue
		}
		if target == "" || t.ID < target {
			target = t.ID
		}
	}
	for i := range s.activities {
		if s.activities[i].TypeID == id {
			s.activities[i].TypeID = target
		}
	}

	s.types = append(s.types[:idx], s.types[idx+1:]...)
	return nil
}
