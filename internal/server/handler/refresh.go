package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/pharosbet/internal/service"
)

// Refresher runs one reconciliation. *pipeline.Refresher satisfies it.
type Refresher interface {
	Run(ctx context.Context) service.Result
}

// RefreshHandler triggers an on-demand reconciliation.
type RefreshHandler struct {
	refresher Refresher
	logger    *slog.Logger
}

func NewRefreshHandler(refresher Refresher, logger *slog.Logger) *RefreshHandler {
	return &RefreshHandler{refresher: refresher, logger: logger}
}

type refreshResponse struct {
	OnChain  int  `json:"onChain"`
	OffChain int  `json:"offChain"`
	Dropped  int  `json:"dropped"`
	Degraded bool `json:"degraded"`
	Total    int  `json:"total"`
}

// Refresh rebuilds the feed and reports what was loaded. A degraded refresh
// still answers 200.
// POST /api/refresh
func (h *RefreshHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	res := h.refresher.Run(r.Context())
	writeJSON(w, http.StatusOK, refreshResponse{
		OnChain:  res.OnChain,
		OffChain: len(res.Markets) - res.OnChain,
		Dropped:  res.Dropped,
		Degraded: res.Degraded,
		Total:    len(res.Markets),
	})
}
