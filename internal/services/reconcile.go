package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"calendario/internal/core"
	"calendario/internal/store"

	"github.com/google/uuid"
)

const (
	StateIdle       SessionState = "idle"
	StateEditing    SessionState = "editing"
	StateCommitting SessionState = "committing"
)

// placeholderPrefix marks type ids assigned locally before the store
// assigns a permanent one.
const placeholderPrefix = "temp-"

type (
	// SessionState is the reconciliation session's lifecycle state.
	SessionState string

	// TypeStore is the slice of the store the session needs.
	TypeStore interface {
		store.TypeLister
		store.TypeWriter
	}

	// Session is a staged edit session over the activity-type registry.
	// Edits accumulate locally in a working copy plus three pending-change
	// sets and are flushed to the store by Commit as an ordered,
	// deliberately non-atomic batch: deletes, then updates, then
	// additions. A failure partway leaves earlier calls applied.
	//
	// A Session is not safe for concurrent use; it models a single user's
	// editing dialog.
	Session struct {
		store   TypeStore
		state   SessionState
		working []core.ActivityType
		added   []core.ActivityType
		updated []core.ActivityType // insertion-ordered, one entry per id
		deleted []string
	}

	// CommitError identifies the staged call that failed during Commit.
	CommitError struct {
		Op  string // "delete", "update" or "create"
		ID  string
		Err error
	}
)

var (
	ErrNoSession       = errors.New("no editing session open")
	ErrSessionOpen     = errors.New("session already open")
	ErrUnknownStagedID = errors.New("unknown staged type id")
)

func (e *CommitError) Error() string {
	return fmt.Sprintf("commit %s %s: %v", e.Op, e.ID, e.Err)
}

func (e *CommitError) Unwrap() error {
	return e.Err
}

// NewSession creates an idle session over the given store slice.
func NewSession(st TypeStore) *Session {
	return &Session{store: st, state: StateIdle}
}

// State returns the session's current lifecycle state.
func (s *Session) State() SessionState {
	return s.state
}

// Open snapshots the committed type list into the working copy and clears
// the pending sets.
func (s *Session) Open(ctx context.Context) error {
	if s.state != StateIdle {
		return ErrSessionOpen
	}

	types, err := s.store.ListTypes(ctx)
	if err != nil {
		return fmt.Errorf("snapshot types: %w", err)
	}

	s.working = append([]core.ActivityType(nil), types...)
	s.added = nil
	s.updated = nil
	s.deleted = nil
	s.state = StateEditing
	return nil
}

// Working returns a copy of the session's working type list.
func (s *Session) Working() []core.ActivityType {
	return append([]core.ActivityType(nil), s.working...)
}

// HasChanges reports whether any change is staged.
func (s *Session) HasChanges() bool {
	return len(s.added) > 0 || len(s.updated) > 0 || len(s.deleted) > 0
}

// StageAdd appends a new type under a placeholder id.
func (s *Session) StageAdd(label string, color core.ColorToken) (core.ActivityType, error) {
	if s.state != StateEditing {
		return core.ActivityType{}, ErrNoSession
	}

	t := core.ActivityType{
		ID:    placeholderPrefix + uuid.NewString(),
		Label: strings.TrimSpace(label),
		Color: color,
	}
	if err := t.Validate(); err != nil {
		return core.ActivityType{}, err
	}

	s.working = append(s.working, t)
	s.added = append(s.added, t)
	return t, nil
}

// StageEdit replaces the label and color of a working-copy entry. Edits to
// placeholder entries mutate the pending addition in place; edits to
// committed entries record an update keyed by id, overwriting any earlier
// staged update for the same id.
func (s *Session) StageEdit(id, label string, color core.ColorToken) error {
	if s.state != StateEditing {
		return ErrNoSession
	}

	t := core.ActivityType{ID: id, Label: strings.TrimSpace(label), Color: color}
	if err := t.Validate(); err != nil {
		return err
	}

	idx := s.workingIndex(id)
	if idx == -1 {
		return ErrUnknownStagedID
	}
	s.working[idx] = t

	if isPlaceholder(id) {
		for i := range s.added {
			if s.added[i].ID == id {
				s.added[i] = t
				return nil
			}
		}
		return ErrUnknownStagedID
	}

	for i := range s.updated {
		if s.updated[i].ID == id {
			s.updated[i] = t
			return nil
		}
	}
	s.updated = append(s.updated, t)
	return nil
}

// StageDelete removes a type from the working copy. Deleting a placeholder
// cancels the pending addition without ever contacting the store. Deleting
// would-be-last entries is rejected.
func (s *Session) StageDelete(id string) error {
	if s.state != StateEditing {
		return ErrNoSession
	}
	if len(s.working) <= 1 {
		return core.ErrLastType
	}

	idx := s.workingIndex(id)
	if idx == -1 {
		return ErrUnknownStagedID
	}
	s.working = append(s.working[:idx], s.working[idx+1:]...)

	if isPlaceholder(id) {
		for i := range s.added {
			if s.added[i].ID == id {
				s.added = append(s.added[:i], s.added[i+1:]...)
				return nil
			}
		}
		return ErrUnknownStagedID
	}

	for i := range s.updated {
		if s.updated[i].ID == id {
			s.updated = append(s.updated[:i], s.updated[i+1:]...)
			break
		}
	}
	s.deleted = append(s.deleted, id)
	return nil
}

// Commit flushes the pending sets as an ordered sequence of independent
// store calls: deletes, then updates, then additions. The batch is not
// atomic: the first failure aborts the remainder and leaves the already
// applied calls committed. On success the session refreshes its snapshot
// from the store and returns to idle.
func (s *Session) Commit(ctx context.Context) error {
	if s.state != StateEditing {
		return ErrNoSession
	}
	s.state = StateCommitting

	for _, id := range s.deleted {
		if err := s.store.DeleteType(ctx, id); err != nil {
			s.state = StateIdle
			return &CommitError{Op: "delete", ID: id, Err: err}
		}
	}
	for _, t := range s.updated {
		if _, err := s.store.UpdateType(ctx, t.ID, t); err != nil {
			s.state = StateIdle
			return &CommitError{Op: "update", ID: t.ID, Err: err}
		}
	}
	for _, t := range s.added {
		created := core.ActivityType{Label: t.Label, Color: t.Color}
		if _, err := s.store.CreateType(ctx, created); err != nil {
			s.state = StateIdle
			return &CommitError{Op: "create", ID: t.ID, Err: err}
		}
	}

	// Re-fetch so placeholder entries pick up their server-assigned ids.
	types, err := s.store.ListTypes(ctx)
	if err == nil {
		s.working = types
	}
	s.added = nil
	s.updated = nil
	s.deleted = nil
	s.state = StateIdle
	return nil
}

// Cancel discards the working copy and pending sets without contacting
// the store.
func (s *Session) Cancel() {
	s.working = nil
	s.added = nil
	s.updated = nil
	s.deleted = nil
	s.state = StateIdle
}

func (s *Session) workingIndex(id string) int {
	for i := range s.working {
		if s.working[i].ID == id {
			return i
		}
	}
	return -1
}

func isPlaceholder(id string) bool {
	return strings.HasPrefix(id, placeholderPrefix)
}
