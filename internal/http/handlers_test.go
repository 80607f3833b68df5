package http

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spendwise/internal/advisor"
	"spendwise/internal/auth"
	"spendwise/internal/core"
	"spendwise/internal/store/memory"
	"spendwise/internal/sync"
)

const testJWTSecret = "0123456789abcdef0123456789abcdef"

func newTestServer(t *testing.T, opts ...func(*Options)) *Server {
	t.Helper()

	repo := memory.NewRepository()
	authSvc := auth.NewService(repo, testJWTSecret, time.Minute, time.Hour, nil)
	sessions := sync.NewManager(repo, nil, 10*time.Millisecond, nil)
	t.Cleanup(sessions.Close)

	o := Options{
		Addr:     ":0",
		Auth:     authSvc,
		Sessions: sessions,
		Advisor:  advisor.NewClient(nil),
		Store:    repo,
	}
	for _, opt := range opts {
		opt(&o)
	}

	s := NewServer(o)
	t.Cleanup(func() { s.rateLimiter.stop() })
	return s
}

func do(t *testing.T, s *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = strings.NewReader(string(raw))
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)
	return rec
}

func signUp(t *testing.T, s *Server, email string) auth.Tokens {
	t.Helper()

	rec := do(t, s, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"email":    email,
		"password": "correct horse battery",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var tokens auth.Tokens
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tokens))
	return tokens
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t)

	tokens := signUp(t, s, "a@b.c")
	assert.NotEmpty(t, tokens.AccessToken)

	rec := do(t, s, http.MethodPost, "/api/auth/signin", "", map[string]string{
		"email":    "a@b.c",
		"password": "wrong password!",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, s, http.MethodPost, "/api/auth/refresh", "", map[string]string{
		"refreshToken": tokens.RefreshToken,
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	// Rotation kills the old refresh token.
	rec = do(t, s, http.MethodPost, "/api/auth/refresh", "", map[string]string{
		"refreshToken": tokens.RefreshToken,
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestExpenseCRUD(t *testing.T) {
	s := newTestServer(t)
	tokens := signUp(t, s, "a@b.c")

	rec := do(t, s, http.MethodPost, "/api/expenses", tokens.AccessToken, map[string]any{
		"amount":   25,
		"category": "Food",
		"date":     "2025-03-01",
		"note":     "groceries",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created core.Expense
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, core.CategoryFood, created.Category)

	rec = do(t, s, http.MethodGet, "/api/expenses", tokens.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []core.Expense
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, created.ID, list[0].ID)

	rec = do(t, s, http.MethodDelete, "/api/expenses/"+created.ID, tokens.AccessToken, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/expenses", tokens.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list = nil
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Empty(t, list)
}

func TestExpenseValidationAndAuth(t *testing.T) {
	s := newTestServer(t)
	tokens := signUp(t, s, "a@b.c")

	rec := do(t, s, http.MethodPost, "/api/expenses", tokens.AccessToken, map[string]any{
		"amount":   25,
		"category": "Yachts",
		"date":     "2025-03-01",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodPost, "/api/expenses", tokens.AccessToken, map[string]any{
		"amount":   -1,
		"category": "Food",
		"date":     "2025-03-01",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/expenses", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/expenses", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestExpenseFilters(t *testing.T) {
	s := newTestServer(t)
	tokens := signUp(t, s, "a@b.c")

	for _, e := range []map[string]any{
		{"amount": 100, "category": "Food", "date": "2025-03-01"},
		{"amount": 50, "category": "Travel", "date": "2025-03-05"},
	} {
		rec := do(t, s, http.MethodPost, "/api/expenses", tokens.AccessToken, e)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := do(t, s, http.MethodGet, "/api/expenses?category=Food", tokens.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []core.Expense
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, core.CategoryFood, list[0].Category)

	rec = do(t, s, http.MethodGet, "/api/expenses?startDate=2025-03-02", tokens.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list = nil
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, core.CategoryTravel, list[0].Category)

	rec = do(t, s, http.MethodGet, "/api/expenses?startDate=03/02/2025", tokens.AccessToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDashboardReflectsMutations(t *testing.T) {
	s := newTestServer(t)
	tokens := signUp(t, s, "a@b.c")

	rec := do(t, s, http.MethodGet, "/api/dashboard", tokens.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var dash dashboardResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dash))
	assert.True(t, dash.Total.IsZero())
	assert.Len(t, dash.Trend, core.TrendDays)

	rec = do(t, s, http.MethodPost, "/api/expenses", tokens.AccessToken, map[string]any{
		"amount":   40,
		"category": "Rent",
		"date":     "2025-03-01",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	// The cached dashboard must be invalidated by the mutation.
	rec = do(t, s, http.MethodGet, "/api/dashboard", tokens.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dash))
	assert.Equal(t, "40", dash.Total.String())
	assert.Equal(t, 1, dash.Count)

	var rent core.CategoryAmount
	for _, c := range dash.Breakdown {
		if c.Category == core.CategoryRent {
			rent = c
		}
	}
	assert.Equal(t, "40", rent.Amount.String())
}

func TestDashboardKeyScopedToDate(t *testing.T) {
	assert.NotEqual(t, dashboardKey("u1", "2025-03-01"), dashboardKey("u1", "2025-03-02"),
		"yesterday's cached aggregate must not answer today's request")
	assert.NotEqual(t, dashboardKey("u1", "2025-03-01"), dashboardKey("u2", "2025-03-01"))
}

func TestExportCSV(t *testing.T) {
	s := newTestServer(t)
	tokens := signUp(t, s, "a@b.c")

	rec := do(t, s, http.MethodGet, "/api/export", tokens.AccessToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "nothing to export yet")

	rec = do(t, s, http.MethodPost, "/api/expenses", tokens.AccessToken, map[string]any{
		"amount":   12,
		"category": "Food",
		"date":     "2025-03-01",
		"note":     "lunch",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/export", tokens.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "expenses_all.csv")
	assert.Contains(t, rec.Body.String(), "Date,Category,Amount,Note")
	assert.Contains(t, rec.Body.String(), "2025-03-01,Food,12.00,lunch")

	rec = do(t, s, http.MethodGet, "/api/export?year=2025&month=3", tokens.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "expenses_2025_03.csv")

	rec = do(t, s, http.MethodGet, "/api/export?year=2025&month=4", tokens.AccessToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "empty month is an error")

	rec = do(t, s, http.MethodGet, "/api/export?year=2025&month=13", tokens.AccessToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatusReportsProbe(t *testing.T) {
	s := newTestServer(t)
	tokens := signUp(t, s, "a@b.c")

	rec := do(t, s, http.MethodGet, "/api/status", tokens.AccessToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var status map[string]bool
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.True(t, status["online"])
}

func TestAdvisorChatValidatesInput(t *testing.T) {
	s := newTestServer(t)
	tokens := signUp(t, s, "a@b.c")

	rec := do(t, s, http.MethodPost, "/api/advisor/chat", tokens.AccessToken, map[string]string{
		"message": "",
		"apiKey":  "k",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodPost, "/api/advisor/chat", tokens.AccessToken, map[string]string{
		"message": "how am I doing?",
		"apiKey":  "",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "missing api key rejected before any model call")
}

func TestRateLimiting(t *testing.T) {
	s := newTestServer(t, func(o *Options) { o.RateLimitPerMinute = 2 })

	var last int
	for i := 0; i < 3; i++ {
		rec := do(t, s, http.MethodPost, "/api/auth/signin", "", map[string]string{
			"email":    fmt.Sprintf("u%d@b.c", i),
			"password": "whatever pass",
		})
		last = rec.Code
	}
	assert.Equal(t, http.StatusTooManyRequests, last)
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, s, http.MethodGet, "/readyz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
