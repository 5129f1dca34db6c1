package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"medsched/backend/internal/service/directory"
	"medsched/backend/internal/service/scheduling"
	"medsched/backend/internal/store"
)

type errorResponse struct {
	Code   string `json:"code"`
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	writeJSON(w, status, errorResponse{Code: code, Detail: detail})
}

// writeServiceError maps the service error taxonomy onto HTTP statuses. Each
// error kind has a distinct code so callers never need to string-match.
func (s *Server) writeServiceError(w http.ResponseWriter, log *slog.Logger, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not-found", "appointment not found")
		return
	}
	if errors.Is(err, store.ErrConflict) {
		log.Info("slot conflict")
		writeError(w, http.StatusConflict, "conflict", "that slot is already taken; pick a different time")
		return
	}

	var vErr *scheduling.ValidationError
	if errors.As(err, &vErr) {
		log.Warn("invalid request", slog.Any("err", err))
		writeError(w, http.StatusBadRequest, "validation", vErr.Error())
		return
	}
	var dvErr *directory.ValidationError
	if errors.As(err, &dvErr) {
		log.Warn("invalid request", slog.Any("err", err))
		writeError(w, http.StatusBadRequest, "validation", dvErr.Error())
		return
	}

	var pErr *scheduling.PermissionError
	if errors.As(err, &pErr) {
		log.Info("forbidden", slog.String("reason", string(pErr.Reason)))
		code := "forbidden-role"
		if pErr.Reason == scheduling.PermissionOwnership {
			code = "forbidden-ownership"
		}
		writeError(w, http.StatusForbidden, code, pErr.Error())
		return
	}

	var tErr *scheduling.TransitionError
	if errors.As(err, &tErr) {
		log.Info("invalid state transition",
			slog.String("current", string(tErr.Current)),
			slog.String("action", string(tErr.Action)),
		)
		writeError(w, http.StatusUnprocessableEntity, "invalid-state", tErr.Error())
		return
	}

	var cfgErr *directory.ConfigError
	if errors.As(err, &cfgErr) {
		log.Error("provisioning error", slog.Any("err", err))
		writeError(w, http.StatusInternalServerError, "provisioning", "identity is not provisioned correctly")
		return
	}

	log.Error("request failed", slog.Any("err", err))
	writeError(w, http.StatusInternalServerError, "internal", "internal error")
}
