package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/pharosbet/internal/session"
)

// SessionController is the part of *session.Session the session endpoints
// drive.
type SessionController interface {
	Snapshot() session.Snapshot
	Connect(ctx context.Context) (session.Snapshot, error)
	Disconnect()
	SwitchToPharos(ctx context.Context) error
}

// SessionHandler exposes the wallet session.
type SessionHandler struct {
	session SessionController
	logger  *slog.Logger
}

func NewSessionHandler(s SessionController, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{session: s, logger: logger}
}

// GET /api/session
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.session.Snapshot())
}

// Connect requests wallet access.
// POST /api/session/connect
func (h *SessionHandler) Connect(w http.ResponseWriter, r *http.Request) {
	snap, err := h.session.Connect(r.Context())
	if err != nil {
		writeDomainError(w, r, h.logger, "connect", err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// POST /api/session/disconnect
func (h *SessionHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	h.session.Disconnect()
	writeJSON(w, http.StatusOK, h.session.Snapshot())
}

// Switch asks the wallet to move to the Pharos network.
// POST /api/session/switch
func (h *SessionHandler) Switch(w http.ResponseWriter, r *http.Request) {
	if err := h.session.SwitchToPharos(r.Context()); err != nil {
		writeDomainError(w, r, h.logger, "switch chain", err)
		return
	}
	writeJSON(w, http.StatusOK, h.session.Snapshot())
}
