package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"calendario/internal/core"
)

// errorBody is the uniform JSON error envelope.
type errorBody struct {
	Error string `json:"error"`
}

// successBody acknowledges deletions.
type successBody struct {
	Success bool `json:"success"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorBody{Error: message})
}

// writeDecodeError reports request parsing and validation failures,
// which are always the client's fault.
func writeDecodeError(w http.ResponseWriter, err error) {
	if errors.Is(err, errBadPayload) {
		writeJSONError(w, http.StatusBadRequest, "Formato richiesta non valido")
		return
	}
	writeJSONError(w, http.StatusBadRequest, "Dati non validi: "+err.Error())
}

// writeDomainError maps domain errors onto HTTP statuses with
// client-facing messages.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, errBadPayload):
		writeJSONError(w, http.StatusBadRequest, "Formato richiesta non valido")
	case errors.Is(err, core.ErrEmptyTitle),
		errors.Is(err, core.ErrEmptyLabel),
		errors.Is(err, core.ErrEmptyTypeID),
		errors.Is(err, core.ErrUnknownType),
		errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrUnknownColor):
		writeJSONError(w, http.StatusBadRequest, "Dati non validi: "+err.Error())
	case errors.Is(err, core.ErrLastType):
		writeJSONError(w, http.StatusBadRequest, "Impossibile eliminare l'ultima categoria")
	case errors.Is(err, core.ErrNotFound):
		writeJSONError(w, http.StatusNotFound, "Elemento non trovato")
	default:
		slog.ErrorContext(r.Context(), "Unhandled handler error", "error", err, "url", r.URL.Path)
		writeJSONError(w, http.StatusInternalServerError, "Errore interno")
	}
}

func activityToPayload(a core.Activity) activityPayload {
	return activityPayload{
		ID:          a.ID,
		Title:       a.Title,
		Description: a.Description,
		Date:        a.Date.String(),
		TypeID:      a.TypeID,
	}
}

func activitiesToPayload(activities []core.Activity) []activityPayload {
	out := make([]activityPayload, 0, len(activities))
	for _, a := range activities {
		out = append(out, activityToPayload(a))
	}
	return out
}

func typeToPayload(t core.ActivityType) typePayload {
	return typePayload{
		ID:    t.ID,
		Name:  t.Label,
		Color: string(t.Color),
	}
}

func typesToPayload(types []core.ActivityType) []typePayload {
	out := make([]typePayload, 0, len(types))
	for _, t := range types {
		out = append(out, typeToPayload(t))
	}
	return out
}
