package http

import (
	"log/slog"
	"net/http"

	"calendario/internal/core"
)

// handleListActivities returns activities, optionally filtered by month.
// The month query parameter follows the client convention of 0-based
// months (January is 0) and is shifted to 1-based before hitting the
// store. Month listings are served through the LRU cache.
func (s *Server) handleListActivities(w http.ResponseWriter, r *http.Request) {
	q, err := parseMonthQuery(r.URL.Query())
	if err != nil {
		writeDecodeError(w, err)
		return
	}

	if q == nil {
		activities, err := s.store.ListActivities(r.Context(), nil)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, activitiesToPayload(activities))
		return
	}

	activities, err := s.getMonthActivities(r.Context(), q.Year, q.Month)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, activitiesToPayload(activities))
}

func (s *Server) handleCreateActivity(w http.ResponseWriter, r *http.Request) {
	a, err := decodeActivity(r.Body)
	if err != nil {
		writeDecodeError(w, err)
		return
	}

	created, err := s.store.CreateActivity(r.Context(), a)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	s.invalidateMonth(created.Date)
	slog.InfoContext(r.Context(), "Activity created", "id", created.ID, "date", created.Date.String())
	writeJSON(w, http.StatusCreated, activityToPayload(created))
}

func (s *Server) handleUpdateActivity(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)

	a, err := decodeActivity(r.Body)
	if err != nil {
		writeDecodeError(w, err)
		return
	}

	// Fetch first so a date change invalidates the old month too.
	previous, err := s.store.GetActivity(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	updated, err := s.store.UpdateActivity(r.Context(), id, a)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	s.invalidateMonth(previous.Date)
	s.invalidateMonth(updated.Date)
	slog.InfoContext(r.Context(), "Activity updated", "id", id)
	writeJSON(w, http.StatusOK, activityToPayload(updated))
}

func (s *Server) handleDeleteActivity(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)

	previous, err := s.store.GetActivity(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	if err := s.store.DeleteActivity(r.Context(), id); err != nil {
		writeDomainError(w, r, err)
		return
	}

	s.invalidateMonth(previous.Date)
	slog.InfoContext(r.Context(), "Activity deleted", "id", id)
	writeJSON(w, http.StatusOK, successBody{Success: true})
}

// rangePayload is the period-listing response envelope.
type rangePayload struct {
	Granularity string            `json:"granularity"`
	Start       string            `json:"start"`
	End         string            `json:"end"`
	Activities  []activityPayload `json:"activities"`
}

// handleActivityRange lists activities inside the day, week or month
// containing the anchor date.
func (s *Server) handleActivityRange(w http.ResponseWriter, r *http.Request) {
	g, anchor, err := parseRangeQuery(r.URL.Query())
	if err != nil {
		writeDecodeError(w, err)
		return
	}

	period := core.PeriodBounds(anchor, g)

	// A week can straddle two months, so fetch unfiltered and narrow here.
	activities, err := s.store.ListActivities(r.Context(), nil)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	inRange := core.ActivitiesInRange(activities, period)
	writeJSON(w, http.StatusOK, rangePayload{
		Granularity: string(g),
		Start:       period.Start.Format(core.DateLayout),
		End:         period.End.Format(core.DateLayout),
		Activities:  activitiesToPayload(inRange),
	})
}
