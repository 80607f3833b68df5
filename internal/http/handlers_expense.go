package http

import (
	"net/http"

	"github.com/shopspring/decimal"

	"spendwise/internal/core"
)

type createExpenseRequest struct {
	Amount   decimal.Decimal `json:"amount"`
	Category string          `json:"category"`
	Date     string          `json:"date"`
	Note     string          `json:"note"`
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	filters, ok := filtersFromQuery(w, r)
	if !ok {
		return
	}

	client, err := s.sessions.Session(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	expenses := core.Filter(client.Snapshot(), filters)
	if expenses == nil {
		expenses = []core.Expense{}
	}
	writeJSON(w, http.StatusOK, expenses)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req createExpenseRequest
	if !decodeBody(w, r, &req) {
		return
	}

	category, err := core.ParseCategory(req.Category)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	userID := userIDFrom(r.Context())
	client, err := s.sessions.Session(r.Context(), userID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	saved, err := client.Add(r.Context(), core.Draft{
		Amount:   req.Amount,
		Category: category,
		Date:     req.Date,
		Note:     req.Note,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	s.invalidateDashboard(userID)
	writeJSON(w, http.StatusCreated, saved)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing expense id")
		return
	}

	userID := userIDFrom(r.Context())
	client, err := s.sessions.Session(r.Context(), userID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	if err := client.Delete(r.Context(), id); err != nil {
		writeDomainError(w, r, err)
		return
	}

	s.invalidateDashboard(userID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	client, err := s.sessions.Session(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"online": client.Online()})
}

func filtersFromQuery(w http.ResponseWriter, r *http.Request) (core.Filters, bool) {
	q := r.URL.Query()
	f := core.Filters{
		StartDate: q.Get("startDate"),
		EndDate:   q.Get("endDate"),
	}

	if raw := q.Get("category"); raw != "" {
		category, err := core.ParseCategory(raw)
		if err != nil {
			writeDomainError(w, r, err)
			return core.Filters{}, false
		}
		f.Category = category
	}

	for _, date := range []string{f.StartDate, f.EndDate} {
		if date == "" {
			continue
		}
		if err := core.ValidateDate(date); err != nil {
			writeDomainError(w, r, err)
			return core.Filters{}, false
		}
	}
	return f, true
}
