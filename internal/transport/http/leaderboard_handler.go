package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"ctf-scoreboard-service/internal/app"
	"ctf-scoreboard-service/internal/domain"
)

// LeaderboardHandler serves the ranked view for one tier as JSON.
type LeaderboardHandler struct {
	ranking *app.RankingIndex
	log     *slog.Logger
}

func NewLeaderboardHandler(ranking *app.RankingIndex, log *slog.Logger) *LeaderboardHandler {
	return &LeaderboardHandler{ranking: ranking, log: log}
}

func (h *LeaderboardHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	tier := domain.Tier(r.URL.Query().Get("tier"))
	switch tier {
	case domain.TierBeginner, domain.TierIntermediate:
	default:
		http.Error(w, "unknown tier", http.StatusBadRequest)
		return
	}

	snapshot, err := h.ranking.Snapshot(r.Context(), tier)
	if err != nil {
		h.log.Error("leaderboard snapshot", "tier", tier, "error", err)
		http.Error(w, "snapshot unavailable", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(snapshot); err != nil {
		h.log.Debug("leaderboard encode", "error", err)
	}
}
