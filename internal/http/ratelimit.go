package http

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ipLimiter keeps one token bucket per client IP and drops buckets
// that have been quiet for a while.
type ipLimiter struct {
	mu       sync.Mutex
	clients  map[string]*clientBucket
	perSec   rate.Limit
	burst    int
	stopChan chan struct{}
	doneChan chan struct{}
}

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newIPLimiter(perMinute int) *ipLimiter {
	rl := &ipLimiter{
		clients:  make(map[string]*clientBucket),
		perSec:   rate.Limit(float64(perMinute) / 60.0),
		burst:    perMinute,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

func (rl *ipLimiter) allow(clientIP string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.clients[clientIP]
	if !ok {
		b = &clientBucket{limiter: rate.NewLimiter(rl.perSec, rl.burst)}
		rl.clients[clientIP] = b
	}
	b.lastSeen = time.Now()
	return b.limiter.Allow()
}

func (rl *ipLimiter) cleanupLoop() {
	defer close(rl.doneChan)

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stopChan:
			return
		case <-ticker.C:
			rl.mu.Lock()
			cutoff := time.Now().Add(-10 * time.Minute)
			for ip, b := range rl.clients {
				if b.lastSeen.Before(cutoff) {
					delete(rl.clients, ip)
				}
			}
			rl.mu.Unlock()
		}
	}
}

func (rl *ipLimiter) stop() {
	close(rl.stopChan)
	<-rl.doneChan
}
