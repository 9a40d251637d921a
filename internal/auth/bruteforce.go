package auth

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Brute-force thresholds for the per-IP tracker.
const (
	defaultFailureThreshold = 10
	defaultFailureWindow    = 5 * time.Minute
	defaultBlockDuration    = 30 * time.Minute
	trackerSize             = 4096
)

type ipRecord struct {
	failures     int
	firstFailure time.Time
	blockedUntil time.Time
}

// LoginTracker tracks failed logins per source address and blocks addresses
// that cross the threshold. The LRU bound keeps memory flat under address
// churn; evicting a hot entry only resets its counter, which is safe.
type LoginTracker struct {
	mu        sync.Mutex
	records   *lru.Cache[string, *ipRecord]
	threshold int
	window    time.Duration
	blockFor  time.Duration
}

// NewLoginTracker creates a tracker with default thresholds.
func NewLoginTracker() *LoginTracker {
	cache, _ := lru.New[string, *ipRecord](trackerSize)
	return &LoginTracker{
		records:   cache,
		threshold: defaultFailureThreshold,
		window:    defaultFailureWindow,
		blockFor:  defaultBlockDuration,
	}
}

// Blocked reports whether the address is currently blocked.
func (t *LoginTracker) Blocked(addr string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.records.Get(addr)
	if !ok {
		return false
	}
	return time.Now().Before(rec.blockedUntil)
}

// RecordFailure registers one failed login and returns true if the address
// just became blocked.
func (t *LoginTracker) RecordFailure(addr string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := time.Now()
	rec, ok := t.records.Get(addr)
	if !ok || now.Sub(rec.firstFailure) > t.window {
		rec = &ipRecord{firstFailure: now}
		t.records.Add(addr, rec)
	}
	rec.failures++
	if rec.failures >= t.threshold && now.After(rec.blockedUntil) {
		rec.blockedUntil = now.Add(t.blockFor)
		return true
	}
	return false
}

// RecordSuccess clears the failure count for the address.
func (t *LoginTracker) RecordSuccess(addr string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.records.Remove(addr)
}
