package guard

import (
	"sync"
	"time"
)

// A RateState tracks per-origin request timestamps, consecutive
// authentication failures and lockout expiries. It is process-scoped,
// never persisted, and constructed once per process and handed to the
// Guard by reference so it can be swapped out in tests.
type RateState struct {
	sync.Mutex
	maxRequests      int
	window           time.Duration
	lockoutThreshold int
	lockoutDuration  time.Duration

	requests     map[string][]time.Time
	failures     map[string]int
	lockoutUntil map[string]time.Time

	now func() time.Time
}

// NewRateState constructs a RateState allowing maxRequests per origin
// per sliding window, locking an origin out for lockoutDuration after
// lockoutThreshold consecutive failures.
func NewRateState(maxRequests int, window time.Duration,
	lockoutThreshold int, lockoutDuration time.Duration) *RateState {
	return &RateState{
		maxRequests:      maxRequests,
		window:           window,
		lockoutThreshold: lockoutThreshold,
		lockoutDuration:  lockoutDuration,
		requests:         make(map[string][]time.Time),
		failures:         make(map[string]int),
		lockoutUntil:     make(map[string]time.Time),
		now:              time.Now,
	}
}

// Allow records one request from origin and reports whether it stays
// under the sliding-window limit. A denied request is not recorded.
func (rs *RateState) Allow(origin string) bool {
	rs.Lock()
	defer rs.Unlock()

	now := rs.now()
	kept := rs.requests[origin][:0]
	for _, ts := range rs.requests[origin] {
		if now.Sub(ts) < rs.window {
			kept = append(kept, ts)
		}
	}
	rs.requests[origin] = kept

	if len(kept) >= rs.maxRequests {
		return false
	}
	rs.requests[origin] = append(kept, now)
	return true
}

// LockedOut reports whether origin is currently locked out and, if so,
// for how much longer. An expired lockout clears the origin's failure
// counter.
func (rs *RateState) LockedOut(origin string) (time.Duration, bool) {
	rs.Lock()
	defer rs.Unlock()

	until, ok := rs.lockoutUntil[origin]
	if !ok {
		return 0, false
	}
	now := rs.now()
	if now.Before(until) {
		return until.Sub(now), true
	}
	delete(rs.lockoutUntil, origin)
	rs.failures[origin] = 0
	return 0, false
}

// RecordFailure counts one failed authentication attempt from origin
// and starts a lockout once the threshold is reached.
func (rs *RateState) RecordFailure(origin string) {
	rs.Lock()
	defer rs.Unlock()

	rs.failures[origin]++
	if rs.failures[origin] >= rs.lockoutThreshold {
		rs.lockoutUntil[origin] = rs.now().Add(rs.lockoutDuration)
	}
}

// ResetFailures clears origin's failure counter after a successful
// authentication.
func (rs *RateState) ResetFailures(origin string) {
	rs.Lock()
	defer rs.Unlock()
	delete(rs.failures, origin)
}
