package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/onnwee/habbo-verify/telemetry"
)

// HandleAdminSessions lists live verification sessions.
func (h *Handlers) HandleAdminSessions(w http.ResponseWriter, _ *http.Request) {
	sessions := h.deps.Sessions.Store().Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"count":    len(sessions),
		"sessions": sessions,
	})
}

// HandleAdminCancelSession ends a user's session and posts the cancellation
// notice in their channel.
func (h *Handlers) HandleAdminCancelSession(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userID"]
	if !h.deps.Sessions.CancelUser(r.Context(), userID) {
		writeJSON(w, http.StatusNotFound, map[string]string{"status": "not_found", "user_id": userID})
		return
	}
	telemetry.LoggerWithCorr(r.Context()).Info("session cancelled by operator",
		slog.String("user_id", userID), slog.String("component", "http"))
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled", "user_id": userID})
}

// HandleAdminOutcomes summarises finished sessions. Query: guild, since (a
// duration back from now, default 24h).
func (h *Handlers) HandleAdminOutcomes(w http.ResponseWriter, r *http.Request) {
	if h.deps.History == nil {
		http.Error(w, "outcome history disabled (DB_DSN not set)", http.StatusNotImplemented)
		return
	}
	window := 24 * time.Hour
	if s := r.URL.Query().Get("since"); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil || d <= 0 {
			http.Error(w, "invalid since duration", http.StatusBadRequest)
			return
		}
		window = d
	}
	guild := r.URL.Query().Get("guild")
	counts, err := h.deps.History.Summary(r.Context(), guild, time.Now().Add(-window))
	if err != nil {
		telemetry.LoggerWithCorr(r.Context()).Error("outcome summary failed", slog.Any("err", err), slog.String("component", "http"))
		http.Error(w, "summary failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"guild":    guild,
		"since":    window.String(),
		"outcomes": counts,
	})
}
