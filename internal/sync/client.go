// Package sync keeps a per-user in-memory view of expenses consistent
// with the remote store. Mutations apply optimistically to the local
// view first, then reconcile against the store's answer; a periodic
// probe tracks whether the store is reachable.
package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"spendwise/internal/core"
	"spendwise/internal/store"
)

// ErrSuperseded reports that an optimistic record was deleted locally
// before the remote insert finished. The remote row has already been
// removed on a best-effort basis by the time callers see this.
var ErrSuperseded = errors.New("expense deleted before insert completed")

// DefaultProbeInterval is how often the connection probe pings the store.
const DefaultProbeInterval = 30 * time.Second

// EventSink receives notifications after a mutation is confirmed by the
// store. A nil sink disables notifications.
type EventSink interface {
	ExpenseCreated(ctx context.Context, userID string, e core.Expense) error
	ExpenseDeleted(ctx context.Context, userID, id string) error
}

// Client holds one user's expense view. All methods are safe for
// concurrent use.
type Client struct {
	userID string
	store  store.Store
	events EventSink
	logger *slog.Logger

	probeInterval time.Duration

	mu       sync.RWMutex
	expenses []core.Expense

	online atomic.Bool

	probeMu     sync.Mutex
	probeCancel context.CancelFunc
	probeDone   chan struct{}
}

// Option customizes a Client.
type Option func(*Client)

// WithProbeInterval overrides the probe period. Values <= 0 are ignored.
func WithProbeInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.probeInterval = d
		}
	}
}

// WithEvents attaches an event sink.
func WithEvents(sink EventSink) Option {
	return func(c *Client) {
		c.events = sink
	}
}

func NewClient(userID string, st store.Store, logger *slog.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		userID:        userID,
		store:         st,
		logger:        logger,
		probeInterval: DefaultProbeInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load replaces the local view with the store's current contents.
func (c *Client) Load(ctx context.Context) error {
	list, err := c.store.ListByUser(ctx, c.userID)
	if err != nil {
		c.online.Store(false)
		return fmt.Errorf("load expenses: %w", err)
	}

	c.mu.Lock()
	c.expenses = list
	c.mu.Unlock()

	c.online.Store(true)
	c.logger.InfoContext(ctx, "Loaded expenses", "user_id", c.userID, "count", len(list))
	return nil
}

// Add records a new expense. The local view gains an optimistic record
// immediately; once the store confirms, the record is swapped for the
// authoritative one. A failed insert rolls the optimistic record back.
func (c *Client) Add(ctx context.Context, d core.Draft) (core.Expense, error) {
	if err := d.Validate(); err != nil {
		return core.Expense{}, err
	}

	temp := core.Expense{
		ID:        uuid.NewString(),
		Amount:    d.Amount,
		Category:  d.Category,
		Date:      d.Date,
		Note:      d.Note,
		CreatedAt: time.Now().UnixMilli(),
	}

	c.mu.Lock()
	c.expenses = append([]core.Expense{temp}, c.expenses...)
	c.mu.Unlock()

	saved, err := c.store.Insert(ctx, c.userID, d)
	if err != nil {
		c.remove(temp.ID)
		c.logger.WarnContext(ctx, "Insert failed, rolled back optimistic record",
			"user_id", c.userID, "temp_id", temp.ID, "error", err)
		return core.Expense{}, fmt.Errorf("add expense: %w", err)
	}

	if !c.replace(temp.ID, saved) {
		// The optimistic record was deleted while the insert was in
		// flight. Honor the delete: take the confirmed row back out of
		// the store rather than resurrecting it locally.
		bg := context.WithoutCancel(ctx)
		if derr := c.store.Delete(bg, c.userID, saved.ID); derr != nil {
			c.logger.WarnContext(ctx, "Failed to delete superseded expense",
				"user_id", c.userID, "id", saved.ID, "error", derr)
		}
		return core.Expense{}, ErrSuperseded
	}

	c.notifyCreated(ctx, saved)
	return saved, nil
}

// Delete removes an expense from the local view and the store. The
// remote delete is issued even when the id is absent locally, because
// the store may hold rows the view has not seen. If the remote delete
// fails, the locally removed record is restored.
func (c *Client) Delete(ctx context.Context, id string) error {
	removed, idx, had := c.take(id)

	if err := c.store.Delete(ctx, c.userID, id); err != nil {
		if had {
			c.restore(removed, idx)
		}
		return fmt.Errorf("delete expense: %w", err)
	}

	c.notifyDeleted(ctx, id)
	return nil
}

// Snapshot returns a copy of the current view, newest first.
func (c *Client) Snapshot() []core.Expense {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]core.Expense, len(c.expenses))
	copy(out, c.expenses)
	return out
}

// Online reports the result of the most recent probe or load.
func (c *Client) Online() bool {
	return c.online.Load()
}

// Start launches the connection probe. It pings immediately, then on
// every tick until Stop or ctx cancellation.
func (c *Client) Start(ctx context.Context) {
	c.probeMu.Lock()
	defer c.probeMu.Unlock()

	if c.probeCancel != nil {
		return
	}

	probeCtx, cancel := context.WithCancel(ctx)
	c.probeCancel = cancel
	c.probeDone = make(chan struct{})

	go c.runProbe(probeCtx, c.probeDone)
}

// Stop cancels the probe and waits for it to exit. Safe to call more
// than once.
func (c *Client) Stop() {
	c.probeMu.Lock()
	cancel, done := c.probeCancel, c.probeDone
	c.probeCancel, c.probeDone = nil, nil
	c.probeMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (c *Client) runProbe(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(c.probeInterval)
	defer ticker.Stop()

	c.probe(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.probe(ctx)
		}
	}
}

func (c *Client) probe(ctx context.Context) {
	err := c.store.Ping(ctx)
	was := c.online.Swap(err == nil)
	if err != nil && was {
		c.logger.WarnContext(ctx, "Store unreachable", "user_id", c.userID, "error", err)
	}
	if err == nil && !was {
		c.logger.InfoContext(ctx, "Store reachable again", "user_id", c.userID)
	}
}

func (c *Client) remove(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, e := range c.expenses {
		if e.ID == id {
			c.expenses = append(c.expenses[:i], c.expenses[i+1:]...)
			return
		}
	}
}

// replace swaps the optimistic record for the authoritative one,
// keeping it at the head of the view. Reports whether the optimistic
// record was still present.
func (c *Client) replace(tempID string, saved core.Expense) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, e := range c.expenses {
		if e.ID == tempID {
			rest := append(c.expenses[:i], c.expenses[i+1:]...)
			c.expenses = append([]core.Expense{saved}, rest...)
			return true
		}
	}
	return false
}

func (c *Client) take(id string) (core.Expense, int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, e := range c.expenses {
		if e.ID == id {
			c.expenses = append(c.expenses[:i], c.expenses[i+1:]...)
			return e, i, true
		}
	}
	return core.Expense{}, 0, false
}

func (c *Client) restore(e core.Expense, idx int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if idx > len(c.expenses) {
		idx = len(c.expenses)
	}
	c.expenses = append(c.expenses[:idx], append([]core.Expense{e}, c.expenses[idx:]...)...)
}

func (c *Client) notifyCreated(ctx context.Context, e core.Expense) {
	if c.events == nil {
		return
	}
	if err := c.events.ExpenseCreated(ctx, c.userID, e); err != nil {
		c.logger.WarnContext(ctx, "Failed to publish expense created event",
			"user_id", c.userID, "id", e.ID, "error", err)
	}
}

func (c *Client) notifyDeleted(ctx context.Context, id string) {
	if c.events == nil {
		return
	}
	if err := c.events.ExpenseDeleted(ctx, c.userID, id); err != nil {
		c.logger.WarnContext(ctx, "Failed to publish expense deleted event",
			"user_id", c.userID, "id", id, "error", err)
	}
}
