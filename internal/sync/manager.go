package sync

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"spendwise/internal/store"
)

// Manager hands out one Client per signed-in user and tears it down
// when the session ends.
type Manager struct {
	store         store.Store
	events        EventSink
	logger        *slog.Logger
	probeInterval time.Duration

	mu      sync.Mutex
	clients map[string]*Client
	flight  singleflight.Group
}

func NewManager(st store.Store, events EventSink, probeInterval time.Duration, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if probeInterval <= 0 {
		probeInterval = DefaultProbeInterval
	}
	return &Manager{
		store:         st,
		events:        events,
		logger:        logger,
		probeInterval: probeInterval,
		clients:       make(map[string]*Client),
	}
}

// Session returns the user's client, creating and loading one on first
// use. Creation is single-flight per user: the client only becomes
// visible once its view is loaded, so concurrent calls either share the
// in-flight creation or get the finished client, never an empty one.
// The probe keeps running after ctx ends; it stops on Drop or Close.
func (m *Manager) Session(ctx context.Context, userID string) (*Client, error) {
	m.mu.Lock()
	if c, ok := m.clients[userID]; ok {
		m.mu.Unlock()
		return c, nil
	}
	m.mu.Unlock()

	v, err, _ := m.flight.Do(userID, func() (any, error) {
		m.mu.Lock()
		if c, ok := m.clients[userID]; ok {
			m.mu.Unlock()
			return c, nil
		}
		m.mu.Unlock()

		c := NewClient(userID, m.store, m.logger,
			WithEvents(m.events),
			WithProbeInterval(m.probeInterval))
		if err := c.Load(ctx); err != nil {
			return nil, fmt.Errorf("start session for %s: %w", userID, err)
		}
		c.Start(context.WithoutCancel(ctx))

		m.mu.Lock()
		m.clients[userID] = c
		m.mu.Unlock()

		m.logger.InfoContext(ctx, "Session started", "user_id", userID)
		return c, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Client), nil
}

// Drop ends a user's session, stopping its probe.
func (m *Manager) Drop(userID string) {
	m.mu.Lock()
	c, ok := m.clients[userID]
	delete(m.clients, userID)
	m.mu.Unlock()

	if ok {
		c.Stop()
		m.logger.Info("Session dropped", "user_id", userID)
	}
}

// Close stops every active session.
func (m *Manager) Close() {
	m.mu.Lock()
	clients := m.clients
	m.clients = make(map[string]*Client)
	m.mu.Unlock()

	for _, c := range clients {
		c.Stop()
	}
}
