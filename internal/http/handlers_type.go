package http

import (
	"log/slog"
	"net/http"
)

func (s *Server) handleListTypes(w http.ResponseWriter, r *http.Request) {
	types, err := s.store.ListTypes(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, typesToPayload(types))
}

func (s *Server) handleCreateType(w http.ResponseWriter, r *http.Request) {
	t, err := decodeType(r.Body)
	if err != nil {
		writeDecodeError(w, err)
		return
	}

	created, err := s.store.CreateType(r.Context(), t)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	slog.InfoContext(r.Context(), "Activity type created", "id", created.ID, "label", created.Label)
	writeJSON(w, http.StatusCreated, typeToPayload(created))
}

func (s *Server) handleUpdateType(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)

	t, err := decodeType(r.Body)
	if err != nil {
		writeDecodeError(w, err)
		return
	}

	updated, err := s.store.UpdateType(r.Context(), id, t)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	slog.InfoContext(r.Context(), "Activity type updated", "id", id)
	writeJSON(w, http.StatusOK, typeToPayload(updated))
}

// handleDeleteType removes a type. Deleting the last remaining type is
// rejected; otherwise activities referencing it are reassigned by the
// store before the row goes away.
func (s *Server) handleDeleteType(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)

	if err := s.store.DeleteType(r.Context(), id); err != nil {
		writeDomainError(w, r, err)
		return
	}

	// Reassignment may touch any month, drop all cached listings.
	s.monthCache.Purge()

	slog.InfoContext(r.Context(), "Activity type deleted", "id", id)
	writeJSON(w, http.StatusOK, successBody{Success: true})
}
