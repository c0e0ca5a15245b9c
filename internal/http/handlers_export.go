package http

import (
	"net/http"

	"calendario/internal/export"
)

// handleCalendarFeed serves the full activity list as an iCalendar feed.
func (s *Server) handleCalendarFeed(w http.ResponseWriter, r *http.Request) {
	activities, err := s.store.ListActivities(r.Context(), nil)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	types, err := s.store.ListTypes(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="calendario.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(export.Render(activities, types)))
}
