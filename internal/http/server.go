// Package http exposes the JSON API: account management, expense CRUD
// with per-user sessions, dashboard aggregates, CSV export, and the AI
// advisor.
package http

import (
	"context"
	"net/http"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"spendwise/internal/advisor"
	"spendwise/internal/auth"
	"spendwise/internal/cache"
	"spendwise/internal/log"
	"spendwise/internal/store"
	"spendwise/internal/sync"
)

// Options carries the server's collaborators. Google and Advisor may
// be nil; the matching routes then answer 503.
type Options struct {
	Addr               string
	Auth               *auth.Service
	Google             *auth.GoogleAuthenticator
	Sessions           *sync.Manager
	Advisor            *advisor.Client
	Store              store.Store
	RateLimitPerMinute int
	Logger             *log.Logger
}

type Server struct {
	http.Server

	auth        *auth.Service
	google      *auth.GoogleAuthenticator
	sessions    *sync.Manager
	advisor     *advisor.Client
	store       store.Store
	logger      *log.Logger
	rateLimiter *ipLimiter

	dashCache   *cache.LRU[dashboardResponse]
	oauthStates *gocache.Cache
}

func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	perMinute := opts.RateLimitPerMinute
	if perMinute <= 0 {
		perMinute = 120
	}

	mux := http.NewServeMux()
	s := &Server{
		Server: http.Server{
			Addr:              opts.Addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		auth:        opts.Auth,
		google:      opts.Google,
		sessions:    opts.Sessions,
		advisor:     opts.Advisor,
		store:       opts.Store,
		logger:      logger.WithComponent(log.ComponentHTTP),
		rateLimiter: newIPLimiter(perMinute),
		dashCache:   cache.NewLRU[dashboardResponse](500, 5*time.Minute),
		oauthStates: gocache.New(10*time.Minute, 10*time.Minute),
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("POST /api/auth/signup", s.withCommon(s.handleSignUp))
	mux.HandleFunc("POST /api/auth/signin", s.withCommon(s.handleSignIn))
	mux.HandleFunc("POST /api/auth/refresh", s.withCommon(s.handleRefresh))
	mux.HandleFunc("POST /api/auth/signout", s.withAuth(s.handleSignOut))
	mux.HandleFunc("GET /api/auth/google", s.withCommon(s.handleGoogleLogin))
	mux.HandleFunc("GET /api/auth/google/callback", s.withCommon(s.handleGoogleCallback))

	mux.HandleFunc("GET /api/expenses", s.withAuth(s.handleListExpenses))
	mux.HandleFunc("POST /api/expenses", s.withAuth(s.handleCreateExpense))
	mux.HandleFunc("DELETE /api/expenses/{id}", s.withAuth(s.handleDeleteExpense))

	mux.HandleFunc("GET /api/dashboard", s.withAuth(s.handleDashboard))
	mux.HandleFunc("GET /api/export", s.withAuth(s.handleExport))
	mux.HandleFunc("POST /api/advisor/chat", s.withAuth(s.handleAdvisorChat))
	mux.HandleFunc("GET /api/status", s.withAuth(s.handleStatus))

	return s
}

// Shutdown stops the HTTP listener and the rate limiter's cleanup
// goroutine.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.Server.Shutdown(ctx)
	s.rateLimiter.stop()
	return err
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.store.Ping(ctx); err != nil {
		writeError(w, http.StatusServiceUnavailable, "store unreachable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
