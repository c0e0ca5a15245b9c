package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"calendario/internal/core"
	"calendario/internal/store/memory"
)

// recordingStore counts store calls and can fail specific ids.
type recordingStore struct {
	types   []core.ActivityType
	calls   []string // e.g. "delete:a", "update:b", "create:Casa"
	failIDs map[string]error
	nextID  int
}

func newRecordingStore(types ...core.ActivityType) *recordingStore {
	return &recordingStore{types: types, failIDs: map[string]error{}}
}

func (r *recordingStore) ListTypes(context.Context) ([]core.ActivityType, error) {
	return append([]core.ActivityType(nil), r.types...), nil
}

func (r *recordingStore) CreateType(_ context.Context, t core.ActivityType) (core.ActivityType, error) {
	r.calls = append(r.calls, "create:"+t.Label)
	if err := r.failIDs[t.Label]; err != nil {
		return core.ActivityType{}, err
	}
	r.nextID++
	t.ID = fmt.Sprintf("srv-%d", r.nextID)
	r.types = append(r.types, t)
	return t, nil
}

func (r *recordingStore) UpdateType(_ context.Context, id string, t core.ActivityType) (core.ActivityType, error) {
	r.calls = append(r.calls, "update:"+id)
	if err := r.failIDs[id]; err != nil {
		return core.ActivityType{}, err
	}
	for i := range r.types {
		if r.types[i].ID == id {
			r.types[i] = t
			return t, nil
		}
	}
	return core.ActivityType{}, core.ErrNotFound
}

func (r *recordingStore) DeleteType(_ context.Context, id string) error {
	r.calls = append(r.calls, "delete:"+id)
	if err := r.failIDs[id]; err != nil {
		return err
	}
	for i := range r.types {
		if r.types[i].ID == id {
			r.types = append(r.types[:i], r.types[i+1:]...)
			return nil
		}
	}
	return core.ErrNotFound
}

func openSession(t *testing.T, st TypeStore) *Session {
	t.Helper()
	s := NewSession(st)
	if err := s.Open(context.Background()); err != nil {
		t.Fatalf("open session: %v", err)
	}
	return s
}

func TestStageAddRejectsEmptyLabel(t *testing.T) {
	s := openSession(t, newRecordingStore(core.ActivityType{ID: "a", Label: "Work", Color: core.ColorBlu}))
	if _, err := s.StageAdd("   ", core.ColorVerde); !errors.Is(err, core.ErrEmptyLabel) {
		t.Fatalf("expected ErrEmptyLabel, got %v", err)
	}
}

func TestStageAddAssignsPlaceholder(t *testing.T) {
	s := openSession(t, newRecordingStore(core.ActivityType{ID: "a", Label: "Work", Color: core.ColorBlu}))
	added, err := s.StageAdd("Casa", core.ColorVerde)
	if err != nil {
		t.Fatalf("stage add: %v", err)
	}
	if !strings.HasPrefix(added.ID, "temp-") {
		t.Fatalf("expected placeholder id, got %s", added.ID)
	}
	if len(s.Working()) != 2 {
		t.Fatalf("working copy not extended")
	}
}

func TestStageEditPlaceholderMutatesPendingAdd(t *testing.T) {
	st := newRecordingStore(core.ActivityType{ID: "a", Label: "Work", Color: core.ColorBlu})
	s := openSession(t, st)

	added, _ := s.StageAdd("Casa", core.ColorVerde)
	if err := s.StageEdit(added.ID, "Casa dolce", core.ColorRosa); err != nil {
		t.Fatalf("stage edit: %v", err)
	}

	if err := s.Commit(context.Background()); err != nil {
		t.Fatalf("commit: %v", err)
	}
	// Exactly one create call, carrying the edited label.
	if len(st.calls) != 1 || st.calls[0] != "create:Casa dolce" {
		t.Fatalf("unexpected calls: %v", st.calls)
	}
}

func TestStageDeletePlaceholderTouchesNoStore(t *testing.T) {
	st := newRecordingStore(core.ActivityType{ID: "a", Label: "Work", Color: core.ColorBlu})
	s := openSession(t, st)

	added, _ := s.StageAdd("Casa", core.ColorVerde)
	if err := s.StageDelete(added.ID); err != nil {
		t.Fatalf("stage delete: %v", err)
	}
	if err := s.Commit(context.Background()); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if len(st.calls) != 0 {
		t.Fatalf("expected zero store calls, got %v", st.calls)
	}
}

func TestStageDeleteLastTypeRejected(t *testing.T) {
	s := openSession(t, newRecordingStore(core.ActivityType{ID: "a", Label: "Work", Color: core.ColorBlu}))
	if err := s.StageDelete("a"); !errors.Is(err, core.ErrLastType) {
		t.Fatalf("expected ErrLastType, got %v", err)
	}
	if len(s.Working()) != 1 {
		t.Fatalf("working copy changed after rejected delete")
	}
}

func TestCommitOrderDeletesUpdatesAdds(t *testing.T) {
	st := newRecordingStore(
		core.ActivityType{ID: "a", Label: "A", Color: core.ColorBlu},
		core.ActivityType{ID: "b", Label: "B", Color: core.ColorVerde},
		core.ActivityType{ID: "c", Label: "C", Color: core.ColorRosso},
	)
	s := openSession(t, st)

	if _, err := s.StageAdd("Nuova", core.ColorGiallo); err != nil {
		t.Fatalf("stage add: %v", err)
	}
	if err := s.StageEdit("b", "B2", core.ColorRosa); err != nil {
		t.Fatalf("stage edit: %v", err)
	}
	if err := s.StageDelete("c"); err != nil {
		t.Fatalf("stage delete: %v", err)
	}

	if err := s.Commit(context.Background()); err != nil {
		t.Fatalf("commit: %v", err)
	}

	want := []string{"delete:c", "update:b", "create:Nuova"}
	if len(st.calls) != len(want) {
		t.Fatalf("unexpected calls: %v", st.calls)
	}
	for i := range want {
		if st.calls[i] != want[i] {
			t.Fatalf("call %d = %s, want %s", i, st.calls[i], want[i])
		}
	}
	if s.State() != StateIdle {
		t.Fatalf("session not idle after commit")
	}
}

func TestStageDeleteDropsPendingUpdate(t *testing.T) {
	st := newRecordingStore(
		core.ActivityType{ID: "a", Label: "A", Color: core.ColorBlu},
		core.ActivityType{ID: "b", Label: "B", Color: core.ColorVerde},
	)
	s := openSession(t, st)

	if err := s.StageEdit("b", "B2", core.ColorRosa); err != nil {
		t.Fatalf("stage edit: %v", err)
	}
	if err := s.StageDelete("b"); err != nil {
		t.Fatalf("stage delete: %v", err)
	}
	if err := s.Commit(context.Background()); err != nil {
		t.Fatalf("commit: %v", err)
	}
	// The superseded update must not be flushed.
	if len(st.calls) != 1 || st.calls[0] != "delete:b" {
		t.Fatalf("unexpected calls: %v", st.calls)
	}
}

func TestCommitPartialFailureStopsBatch(t *testing.T) {
	st := newRecordingStore(
		core.ActivityType{ID: "a", Label: "A", Color: core.ColorBlu},
		core.ActivityType{ID: "b", Label: "B", Color: core.ColorVerde},
		core.ActivityType{ID: "c", Label: "C", Color: core.ColorRosso},
		core.ActivityType{ID: "d", Label: "D", Color: core.ColorGiallo},
	)
	boom := errors.New("boom")
	st.failIDs["b"] = boom
	s := openSession(t, st)

	for _, id := range []string{"a", "b", "c"} {
		if err := s.StageDelete(id); err != nil {
			t.Fatalf("stage delete %s: %v", id, err)
		}
	}

	err := s.Commit(context.Background())
	if err == nil {
		t.Fatalf("expected commit error")
	}
	var ce *CommitError
	if !errors.As(err, &ce) {
		t.Fatalf("expected CommitError, got %T", err)
	}
	if ce.Op != "delete" || ce.ID != "b" {
		t.Fatalf("error does not identify failing call: %+v", ce)
	}
	if !errors.Is(err, boom) {
		t.Fatalf("cause not wrapped: %v", err)
	}

	// Delete #1 applied, #2 and #3 not: partial state stays, no rollback.
	want := []string{"delete:a", "delete:b"}
	if len(st.calls) != len(want) || st.calls[0] != want[0] || st.calls[1] != want[1] {
		t.Fatalf("unexpected calls: %v", st.calls)
	}
	remaining, _ := st.ListTypes(context.Background())
	ids := map[string]bool{}
	for _, tp := range remaining {
		ids[tp.ID] = true
	}
	if ids["a"] || !ids["b"] || !ids["c"] {
		t.Fatalf("store state after partial failure: %v", ids)
	}
}

func TestCancelDiscardsWithoutStoreCalls(t *testing.T) {
	st := newRecordingStore(
		core.ActivityType{ID: "a", Label: "A", Color: core.ColorBlu},
		core.ActivityType{ID: "b", Label: "B", Color: core.ColorVerde},
	)
	s := openSession(t, st)

	if _, err := s.StageAdd("Nuova", core.ColorGiallo); err != nil {
		t.Fatalf("stage add: %v", err)
	}
	if err := s.StageDelete("b"); err != nil {
		t.Fatalf("stage delete: %v", err)
	}
	s.Cancel()

	if s.State() != StateIdle || s.HasChanges() {
		t.Fatalf("cancel did not reset session")
	}
	if len(st.calls) != 0 {
		t.Fatalf("cancel contacted the store: %v", st.calls)
	}
}

func TestStagingRequiresOpenSession(t *testing.T) {
	s := NewSession(newRecordingStore(core.ActivityType{ID: "a", Label: "A", Color: core.ColorBlu}))
	if _, err := s.StageAdd("x", core.ColorBlu); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
	if err := s.Commit(context.Background()); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
}

// End-to-end scenario against the real memory store: the sole category
// cannot be deleted; after adding a second one, deleting the first
// reassigns its activities to the survivor.
func TestReconcileScenarioAgainstMemoryStore(t *testing.T) {
	ctx := context.Background()
	mem := memory.New([]core.ActivityType{{ID: "a", Label: "Work", Color: core.ColorBlu}})
	act, err := mem.CreateActivity(ctx, core.Activity{Title: "x", Date: core.NewDate(2025, 1, 1), TypeID: "a"})
	if err != nil {
		t.Fatalf("create activity: %v", err)
	}

	s := NewSession(mem)
	if err := s.Open(ctx); err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.StageDelete("a"); !errors.Is(err, core.ErrLastType) {
		t.Fatalf("expected ErrLastType, got %v", err)
	}

	if _, err := s.StageAdd("Home", core.ColorVerde); err != nil {
		t.Fatalf("stage add: %v", err)
	}
	if err := s.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}
	types, _ := mem.ListTypes(ctx)
	if len(types) != 2 {
		t.Fatalf("expected two types, got %d", len(types))
	}

	if err := s.Open(ctx); err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if err := s.StageDelete("a"); err != nil {
		t.Fatalf("stage delete: %v", err)
	}
	if err := s.Commit(ctx); err != nil {
		t.Fatalf("commit delete: %v", err)
	}

	types, _ = mem.ListTypes(ctx)
	if len(types) != 1 || types[0].Label != "Home" {
		t.Fatalf("unexpected surviving types: %+v", types)
	}
	got, err := mem.GetActivity(ctx, act.ID)
	if err != nil {
		t.Fatalf("get activity: %v", err)
	}
	if got.TypeID != types[0].ID {
		t.Fatalf("activity not reassigned: %s != %s", got.TypeID, types[0].ID)
	}
}
