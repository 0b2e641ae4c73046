// Package httpapi holds the small JSON API that lives next to the game
// server: health and the finished-game leaderboard.
package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"example.com/dicehall/internal/store"
)

const defaultLeaderboardLimit = 20

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// LeaderboardHandler serves GET /api/leaderboard from the results store.
type LeaderboardHandler struct {
	Results *store.ResultsStore
	Log     *slog.Logger
}

func (h *LeaderboardHandler) Top(w http.ResponseWriter, r *http.Request) {
	limit := defaultLeaderboardLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 100 {
			writeError(w, http.StatusBadRequest, "bad_limit", "limit must be 1..100")
			return
		}
		limit = n
	}

	entries, err := h.Results.Top(r.Context(), limit)
	if err != nil {
		h.Log.Error("leaderboard query", "err", err)
		writeError(w, http.StatusInternalServerError, "storage_error", "could not load leaderboard")
		return
	}
	if entries == nil {
		entries = []store.LeaderboardEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, errCode, msg string) {
	writeJSON(w, code, ErrorResponse{Code: errCode, Message: msg})
}
