// Package server exposes the HTTP API handlers.
package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/onnwee/habbo-verify/db"
	"github.com/onnwee/habbo-verify/verify"
)

// Sessions is the operator view of live verifications.
// *verify.Service implements it.
type Sessions interface {
	Store() *verify.Store
	CancelUser(ctx context.Context, userID string) bool
}

// Gateway reports chat connectivity. *discord.Bot implements it.
type Gateway interface {
	Connected() bool
}

// History summarises finished sessions. *db.Recorder implements it.
type History interface {
	Summary(ctx context.Context, guildID string, since time.Time) ([]db.OutcomeCount, error)
}

// Deps are the collaborators of the HTTP API. DB and History may be nil when
// no database is configured.
type Deps struct {
	Sessions Sessions
	Gateway  Gateway
	DB       *sql.DB
	History  History
}

// Handlers holds dependencies for all HTTP handlers.
type Handlers struct {
	deps Deps
}

// NewHandlers creates a new Handlers instance with the given dependencies.
func NewHandlers(deps Deps) *Handlers {
	return &Handlers{deps: deps}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
