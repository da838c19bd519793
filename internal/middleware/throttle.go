package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"riddlen/riddle-service/pkg/auth"
)

// requestRecord tracks the number of requests and the window start time.
type requestRecord struct {
	count       int
	windowStart time.Time
	mu          sync.Mutex
}

// throttleStore stores rate limit data per account.
type throttleStore struct {
	records map[string]*requestRecord
	mu      sync.RWMutex
}

func newThrottleStore() *throttleStore {
	store := &throttleStore{
		records: make(map[string]*requestRecord),
	}
	go store.startCleanup()
	return store
}

// startCleanup periodically removes old entries to prevent memory leaks.
func (ts *throttleStore) startCleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		ts.cleanupOldRecords()
	}
}

func (ts *throttleStore) cleanupOldRecords() {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	oneHourAgo := time.Now().Add(-1 * time.Hour)
	for account, record := range ts.records {
		record.mu.Lock()
		if record.windowStart.Before(oneHourAgo) {
			delete(ts.records, account)
		}
		record.mu.Unlock()
	}
}

func (ts *throttleStore) getOrCreateRecord(account string) *requestRecord {
	ts.mu.RLock()
	record, exists := ts.records[account]
	ts.mu.RUnlock()

	if exists {
		return record
	}

	ts.mu.Lock()
	defer ts.mu.Unlock()
	if record, exists := ts.records[account]; exists {
		return record
	}
	record = &requestRecord{windowStart: time.Now()}
	ts.records[account] = record
	return record
}

// checkAndIncrement reports whether the account may make a request and
// advances its counter.
func (ts *throttleStore) checkAndIncrement(account string, maxRequests int, period time.Duration) bool {
	record := ts.getOrCreateRecord(account)

	record.mu.Lock()
	defer record.mu.Unlock()

	now := time.Now()
	if now.Sub(record.windowStart) >= period {
		record.count = 1
		record.windowStart = now
		return true
	}

	if record.count >= maxRequests {
		return false
	}

	record.count++
	return true
}

var globalThrottleStore = newThrottleStore()

// ThrottleMiddleware rate limits requests per caller at the transport
// level. It is a backstop in front of the domain anti-abuse guard, which
// keeps the durable per-account counters. Requires IdentityMiddleware to
// run first.
func ThrottleMiddleware(maxRequests int, period time.Duration) func(http.Handler) http.Handler {
	if maxRequests <= 0 {
		maxRequests = 1
	}
	if period <= 0 {
		period = time.Minute
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller, err := auth.CallerFromContext(r.Context())
			if err != nil {
				writeError(w, http.StatusUnauthorized, "Unauthenticated")
				return
			}

			if !globalThrottleStore.checkAndIncrement(caller.Address, maxRequests, period) {
				w.Header().Set("Retry-After", strconv.Itoa(int(period.Seconds())))
				writeError(w, http.StatusTooManyRequests, "Too many requests")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
