package http

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"spendwise/internal/core"
	"spendwise/internal/export"
)

// handleExport streams the filtered history as a CSV attachment.
// A year+month pair narrows the export to that calendar month;
// otherwise the usual category/date filters apply.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	filters, ok := filtersFromQuery(w, r)
	if !ok {
		return
	}

	filename := export.RangeFilename(filters)
	if r.URL.Query().Get("year") != "" || r.URL.Query().Get("month") != "" {
		year, month, ok := monthFromQuery(w, r)
		if !ok {
			return
		}
		first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
		filters.StartDate = first.Format(core.DateLayout)
		filters.EndDate = first.AddDate(0, 1, -1).Format(core.DateLayout)
		filename = export.MonthFilename(year, month)
	}

	client, err := s.sessions.Session(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	expenses := core.Filter(client.Snapshot(), filters)
	if len(expenses) == 0 {
		writeDomainError(w, r, export.ErrNoExpenses)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	if err := export.WriteCSV(w, expenses); err != nil {
		s.logger.ErrorContext(r.Context(), "CSV export failed", "error", err)
	}
}

func monthFromQuery(w http.ResponseWriter, r *http.Request) (int, int, bool) {
	q := r.URL.Query()
	year, err := strconv.Atoi(q.Get("year"))
	if err != nil || year < 1970 || year > 9999 {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid year %q", q.Get("year")))
		return 0, 0, false
	}
	month, err := strconv.Atoi(q.Get("month"))
	if err != nil || month < 1 || month > 12 {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid month %q", q.Get("month")))
		return 0, 0, false
	}
	return year, month, true
}
