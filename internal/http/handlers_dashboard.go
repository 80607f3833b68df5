package http

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"spendwise/internal/core"
)

type dashboardResponse struct {
	Total      decimal.Decimal       `json:"total"`
	TodayTotal decimal.Decimal       `json:"todayTotal"`
	Count      int                   `json:"count"`
	Trend      []core.DailyTotal     `json:"trend"`
	Breakdown  []core.CategoryAmount `json:"breakdown"`
}

// handleDashboard aggregates the user's expenses. Only the unfiltered
// view is cached; filtered requests recompute every time.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	filters, ok := filtersFromQuery(w, r)
	if !ok {
		return
	}

	userID := userIDFrom(r.Context())
	unfiltered := filters == (core.Filters{})
	key := dashboardKey(userID, today())

	if unfiltered {
		if cached, ok := s.dashCache.Get(key); ok {
			writeJSON(w, http.StatusOK, cached)
			return
		}
	}

	client, err := s.sessions.Session(r.Context(), userID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	expenses := core.Filter(client.Snapshot(), filters)
	resp := dashboardResponse{
		Total:      core.Total(expenses),
		TodayTotal: core.TodayTotal(expenses),
		Count:      len(expenses),
		Trend:      core.WeeklyTrend(expenses),
		Breakdown:  core.Breakdown(expenses),
	}

	if unfiltered {
		s.dashCache.Set(key, resp)
	}
	writeJSON(w, http.StatusOK, resp)
}

// dashboardKey scopes the cached aggregate to a calendar date: today's
// total and the trend window shift at midnight, so yesterday's entry
// must never answer today's request. Stale keys age out of the LRU.
func dashboardKey(userID, date string) string {
	return "dash:" + date + ":" + userID
}

func (s *Server) invalidateDashboard(userID string) {
	s.dashCache.Delete(dashboardKey(userID, today()))
}

func today() string {
	return time.Now().Format(core.DateLayout)
}
