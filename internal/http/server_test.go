package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"calendario/internal/core"
	"calendario/internal/store/memory"
)

func newTestServer(t *testing.T, types ...core.ActivityType) (*Server, *memory.Store) {
	t.Helper()
	mem := memory.New(types)
	s := NewServer(":0", mem)
	t.Cleanup(func() {
		s.rateLimiter.stop()
		close(s.stopCacheCleanup)
	})
	return s, mem
}

func doJSON(t *testing.T, s *Server, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v\n%s", err, rec.Body.String())
	}
	return v
}

func TestHealthEndpoints(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("healthz status = %d", rec.Code)
	}

	rec = doJSON(t, s, http.MethodGet, "/readyz", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("readyz status = %d", rec.Code)
	}
}

func TestCreateAndListActivities(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/activities", activityPayload{
		Title:       "Standup",
		Description: "daily",
		Date:        "2025-01-15",
		TypeID:      "meeting",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}
	created := decodeBody[activityPayload](t, rec)
	if created.ID == "" || created.Title != "Standup" {
		t.Fatalf("unexpected created payload: %+v", created)
	}

	// Client months are 0-based: month=0 must return January entries.
	rec = doJSON(t, s, http.MethodGet, "/activities?month=0&year=2025", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	january := decodeBody[[]activityPayload](t, rec)
	if len(january) != 1 || january[0].ID != created.ID {
		t.Fatalf("unexpected january listing: %+v", january)
	}

	// month=1 is February, which must be empty.
	rec = doJSON(t, s, http.MethodGet, "/activities?month=1&year=2025", nil)
	february := decodeBody[[]activityPayload](t, rec)
	if len(february) != 0 {
		t.Fatalf("unexpected february listing: %+v", february)
	}
}

func TestListActivitiesRejectsBadMonth(t *testing.T) {
	s, _ := newTestServer(t)

	for _, target := range []string{
		"/activities?month=12&year=2025",
		"/activities?month=-1&year=2025",
		"/activities?month=abc&year=2025",
		"/activities?month=3",
	} {
		rec := doJSON(t, s, http.MethodGet, target, nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s status = %d, want 400", target, rec.Code)
		}
	}
}

func TestCreateActivityValidation(t *testing.T) {
	s, _ := newTestServer(t)

	tests := []struct {
		name    string
		payload activityPayload
	}{
		{"empty title", activityPayload{Title: " ", Date: "2025-01-01", TypeID: "meeting"}},
		{"bad date", activityPayload{Title: "x", Date: "01/01/2025", TypeID: "meeting"}},
		{"missing type", activityPayload{Title: "x", Date: "2025-01-01"}},
		{"unknown type", activityPayload{Title: "x", Date: "2025-01-01", TypeID: "no-such-type"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, s, http.MethodPost, "/activities", tt.payload)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400, body %s", rec.Code, rec.Body.String())
			}
		})
	}

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/activities", strings.NewReader("{not json"))
		rec := httptest.NewRecorder()
		s.Handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
		body := decodeBody[errorBody](t, rec)
		if body.Error != "Formato richiesta non valido" {
			t.Errorf("unexpected error message: %q", body.Error)
		}
	})
}

func TestUpdateActivity(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/activities", activityPayload{
		Title: "Old", Date: "2025-01-15", TypeID: "meeting",
	})
	created := decodeBody[activityPayload](t, rec)

	rec = doJSON(t, s, http.MethodPut, "/activities/"+created.ID, activityPayload{
		Title: "New", Date: "2025-02-20", TypeID: "task",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d, body %s", rec.Code, rec.Body.String())
	}
	updated := decodeBody[activityPayload](t, rec)
	if updated.Title != "New" || updated.Date != "2025-02-20" || updated.TypeID != "task" {
		t.Fatalf("unexpected updated payload: %+v", updated)
	}

	// The old month listing must not serve the stale cached entry.
	rec = doJSON(t, s, http.MethodGet, "/activities?month=0&year=2025", nil)
	if january := decodeBody[[]activityPayload](t, rec); len(january) != 0 {
		t.Fatalf("stale january listing: %+v", january)
	}
	rec = doJSON(t, s, http.MethodGet, "/activities?month=1&year=2025", nil)
	if february := decodeBody[[]activityPayload](t, rec); len(february) != 1 {
		t.Fatalf("missing february listing: %+v", february)
	}
}

func TestUpdateMissingActivityReturns404(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(t, s, http.MethodPut, "/activities/nope", activityPayload{
		Title: "x", Date: "2025-01-01", TypeID: "meeting",
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	body := decodeBody[errorBody](t, rec)
	if body.Error != "Elemento non trovato" {
		t.Errorf("unexpected error message: %q", body.Error)
	}
}

func TestDeleteActivity(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/activities", activityPayload{
		Title: "Gone soon", Date: "2025-01-15", TypeID: "meeting",
	})
	created := decodeBody[activityPayload](t, rec)

	rec = doJSON(t, s, http.MethodDelete, "/activities/"+created.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}
	ack := decodeBody[successBody](t, rec)
	if !ack.Success {
		t.Fatalf("unexpected delete ack: %+v", ack)
	}

	rec = doJSON(t, s, http.MethodDelete, "/activities/"+created.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second delete status = %d, want 404", rec.Code)
	}
}

func TestActivityRangeWeekAcrossMonths(t *testing.T) {
	s, _ := newTestServer(t)

	// 2025-03-01 is a Saturday; its week runs Feb 24 to Mar 2.
	for _, p := range []activityPayload{
		{Title: "in week feb", Date: "2025-02-25", TypeID: "meeting"},
		{Title: "in week mar", Date: "2025-03-01", TypeID: "task"},
		{Title: "outside", Date: "2025-03-05", TypeID: "task"},
	} {
		if rec := doJSON(t, s, http.MethodPost, "/activities", p); rec.Code != http.StatusCreated {
			t.Fatalf("seed create status = %d", rec.Code)
		}
	}

	rec := doJSON(t, s, http.MethodGet, "/activities/range?granularity=week&date=2025-03-01", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("range status = %d, body %s", rec.Code, rec.Body.String())
	}
	got := decodeBody[rangePayload](t, rec)
	if got.Start != "2025-02-24" || got.End != "2025-03-02" {
		t.Fatalf("unexpected bounds: %s..%s", got.Start, got.End)
	}
	if len(got.Activities) != 2 {
		t.Fatalf("expected 2 activities in week, got %+v", got.Activities)
	}
}

func TestActivityRangeRejectsBadParams(t *testing.T) {
	s, _ := newTestServer(t)

	for _, target := range []string{
		"/activities/range?granularity=fortnight&date=2025-03-01",
		"/activities/range?granularity=week",
		"/activities/range?granularity=week&date=bad",
	} {
		rec := doJSON(t, s, http.MethodGet, target, nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s status = %d, want 400", target, rec.Code)
		}
	}
}

func TestTypeLifecycle(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/activity-types", nil)
	seeded := decodeBody[[]typePayload](t, rec)
	if len(seeded) != 5 {
		t.Fatalf("expected 5 seeded types, got %d", len(seeded))
	}

	rec = doJSON(t, s, http.MethodPost, "/activity-types", typePayload{Name: "Sport", Color: "verde"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create type status = %d, body %s", rec.Code, rec.Body.String())
	}
	created := decodeBody[typePayload](t, rec)

	rec = doJSON(t, s, http.MethodPut, "/activity-types/"+created.ID, typePayload{Name: "Palestra", Color: "rosso"})
	if rec.Code != http.StatusOK {
		t.Fatalf("update type status = %d", rec.Code)
	}
	updated := decodeBody[typePayload](t, rec)
	if updated.Name != "Palestra" || updated.Color != "rosso" {
		t.Fatalf("unexpected updated type: %+v", updated)
	}

	rec = doJSON(t, s, http.MethodDelete, "/activity-types/"+created.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete type status = %d", rec.Code)
	}
}

func TestCreateTypeRejectsUnknownColor(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/activity-types", typePayload{Name: "Sport", Color: "viola"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestDeleteLastTypeRejected(t *testing.T) {
	s, _ := newTestServer(t, core.ActivityType{ID: "only", Label: "Unica", Color: core.ColorBlu})

	rec := doJSON(t, s, http.MethodDelete, "/activity-types/only", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	body := decodeBody[errorBody](t, rec)
	if body.Error != "Impossibile eliminare l'ultima categoria" {
		t.Errorf("unexpected error message: %q", body.Error)
	}
}

func TestDeleteTypeReassignsActivities(t *testing.T) {
	s, _ := newTestServer(t,
		core.ActivityType{ID: "a", Label: "A", Color: core.ColorBlu},
		core.ActivityType{ID: "b", Label: "B", Color: core.ColorVerde},
	)

	rec := doJSON(t, s, http.MethodPost, "/activities", activityPayload{
		Title: "to move", Date: "2025-01-15", TypeID: "b",
	})
	created := decodeBody[activityPayload](t, rec)

	// Warm the cache so reassignment has stale data to invalidate.
	doJSON(t, s, http.MethodGet, "/activities?month=0&year=2025", nil)

	rec = doJSON(t, s, http.MethodDelete, "/activity-types/b", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete type status = %d", rec.Code)
	}

	rec = doJSON(t, s, http.MethodGet, "/activities?month=0&year=2025", nil)
	listed := decodeBody[[]activityPayload](t, rec)
	if len(listed) != 1 || listed[0].ID != created.ID || listed[0].TypeID != "a" {
		t.Fatalf("activity not reassigned in listing: %+v", listed)
	}
}

func TestCalendarFeedEndpoint(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/activities", activityPayload{
		Title: "Festa", Date: "2025-12-25", TypeID: "event",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("seed create status = %d", rec.Code)
	}

	rec = doJSON(t, s, http.MethodGet, "/calendar.ics", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("feed status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/calendar") {
		t.Errorf("unexpected content type %q", ct)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "BEGIN:VCALENDAR") || !strings.Contains(body, "SUMMARY:Festa") {
		t.Errorf("feed body missing event:\n%s", body)
	}
}
