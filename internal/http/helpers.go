package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/TomasHoles/Zaverecny-projekt-sub000/internal/core"
	"github.com/TomasHoles/Zaverecny-projekt-sub000/internal/storage"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// writeError maps domain errors onto HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, core.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, core.ErrInvalidStateTransition),
		errors.Is(err, core.ErrConcurrencyConflict):
		status = http.StatusConflict
	case errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidFrequency),
		errors.Is(err, core.ErrInvalidDirection),
		errors.Is(err, core.ErrEmptyName),
		errors.Is(err, core.ErrEndBeforeStart),
		errors.Is(err, core.ErrReference):
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
}

// ownerID pulls the required owner_id query parameter.
func ownerID(r *http.Request) (uuid.UUID, error) {
	raw := r.URL.Query().Get("owner_id")
	if raw == "" {
		return uuid.Nil, fmt.Errorf("missing owner_id")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid owner_id: %v", err)
	}
	return id, nil
}

// pathID parses the {id} path segment.
func pathID(r *http.Request) (uuid.UUID, error) {
	raw := r.PathValue("id")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid id: %v", err)
	}
	return id, nil
}

// dateRange reads optional from/to query parameters as YYYY-MM-DD.
func dateRange(r *http.Request) (*storage.DateRange, error) {
	fromRaw := r.URL.Query().Get("from")
	toRaw := r.URL.Query().Get("to")
	if fromRaw == "" && toRaw == "" {
		return nil, nil
	}

	var out storage.DateRange
	if fromRaw != "" {
		if err := out.From.UnmarshalJSON([]byte(`"` + fromRaw + `"`)); err != nil {
			return nil, fmt.Errorf("invalid from date: %v", err)
		}
	}
	if toRaw != "" {
		if err := out.To.UnmarshalJSON([]byte(`"` + toRaw + `"`)); err != nil {
			return nil, fmt.Errorf("invalid to date: %v", err)
		}
	}
	if !out.From.IsZero() && !out.To.IsZero() && out.To.Before(out.From) {
		return nil, fmt.Errorf("to date before from date")
	}
	return &out, nil
}
