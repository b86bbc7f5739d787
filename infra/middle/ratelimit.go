package middle

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mstgnz/gobuckaroo/infra/response"
	"golang.org/x/time/rate"
)

// ActionType groups endpoints that share a rate budget
type ActionType string

const (
	ActionGlobal  ActionType = "global"
	ActionPayment ActionType = "payment"
	ActionStatus  ActionType = "status"
	ActionWebhook ActionType = "webhook"
	ActionConfig  ActionType = "config"
)

// actionShare scales the per-minute budget for an action
var actionShare = map[ActionType]float64{
	ActionGlobal:  1,
	ActionPayment: 1,
	ActionStatus:  2,
	ActionWebhook: 5,
	ActionConfig:  0.25,
}

type limiterEntry struct {
	limiter  *rate.Limiter
	limit    int
	lastSeen time.Time
}

// RateLimiter applies a token bucket per tenant (or client IP) and action
type RateLimiter struct {
	entries   map[string]*limiterEntry
	perMinute int
	now       func() time.Time
	done      chan struct{}
	closeOnce sync.Once
	mu        sync.Mutex
}

// NewRateLimiter creates a limiter allowing perMinute requests per key
func NewRateLimiter(perMinute int) *RateLimiter {
	if perMinute <= 0 {
		perMinute = 100
	}

	rl := &RateLimiter{
		entries:   make(map[string]*limiterEntry),
		perMinute: perMinute,
		now:       time.Now,
		done:      make(chan struct{}),
	}

	go rl.cleanup()

	return rl
}

func (rl *RateLimiter) limitFor(action ActionType) int {
	share, ok := actionShare[action]
	if !ok {
		share = 1
	}
	return max(1, int(math.Round(float64(rl.perMinute)*share)))
}

// Allow takes one token for key and action. It returns the bucket size and the tokens left.
func (rl *RateLimiter) Allow(key string, action ActionType) (bool, int, int) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	entryKey := key + "|" + string(action)

	entry, ok := rl.entries[entryKey]
	if !ok {
		limit := rl.limitFor(action)
		entry = &limiterEntry{
			limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(limit)), limit),
			limit:   limit,
		}
		rl.entries[entryKey] = entry
	}
	entry.lastSeen = now

	allowed := entry.limiter.AllowN(now, 1)
	remaining := max(0, int(entry.limiter.TokensAt(now)))

	return allowed, entry.limit, remaining
}

// LimitStats is the state of one action bucket
type LimitStats struct {
	Limit     int `json:"limit"`
	Remaining int `json:"remaining"`
}

// Stats reports every action bucket of key without taking tokens. Actions
// never used by key report a full bucket.
func (rl *RateLimiter) Stats(key string) map[ActionType]LimitStats {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	stats := make(map[ActionType]LimitStats, len(actionShare))
	for action := range actionShare {
		limit := rl.limitFor(action)
		remaining := limit
		if entry, ok := rl.entries[key+"|"+string(action)]; ok {
			remaining = max(0, int(entry.limiter.TokensAt(now)))
		}
		stats[action] = LimitStats{Limit: limit, Remaining: remaining}
	}
	return stats
}

// TenantKey is the bucket key of an authenticated tenant
func TenantKey(tenantID string) string {
	return "tenant:" + tenantID
}

// Close stops the cleanup goroutine
func (rl *RateLimiter) Close() {
	rl.closeOnce.Do(func() { close(rl.done) })
}

func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-rl.done:
			return
		case <-ticker.C:
			rl.evictIdle()
		}
	}
}

// evictIdle drops buckets unused for two minutes; they would be full again anyway
func (rl *RateLimiter) evictIdle() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for key, entry := range rl.entries {
		if now.Sub(entry.lastSeen) > 2*time.Minute {
			delete(rl.entries, key)
		}
	}
}

// RateLimitMiddleware limits by tenant when authenticated, otherwise by client IP
func RateLimitMiddleware(rl *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/health" {
				next.ServeHTTP(w, r)
				return
			}

			key := "ip:" + GetClientIP(r)
			if tenantID := GetTenantIDFromContext(r.Context()); tenantID != "" {
				key = TenantKey(tenantID)
			}
			action := determineActionType(r.URL.Path, r.Method)

			allowed, limit, remaining := rl.Allow(key, action)

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			w.Header().Set("X-RateLimit-Action", string(action))

			if !allowed {
				retryAfter := int(math.Ceil(time.Minute.Seconds() / float64(limit)))
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				response.Error(w, http.StatusTooManyRequests, "Rate limit exceeded for "+string(action), nil)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func determineActionType(path, method string) ActionType {
	path = strings.ToLower(path)

	switch {
	case strings.HasPrefix(path, "/webhooks/"):
		return ActionWebhook
	case strings.HasPrefix(path, "/v1/config"):
		return ActionConfig
	case strings.Contains(path, "/status/") || strings.Contains(path, "/iban/") || strings.HasPrefix(path, "/v1/logs"):
		return ActionStatus
	case strings.HasPrefix(path, "/v1/buckaroo/") && method == http.MethodPost:
		return ActionPayment
	default:
		return ActionGlobal
	}
}

// GetClientIP returns the peer address of the request. Forwarding headers are
// not read here; middleware.RealIP copies them into RemoteAddr when the
// service runs behind a trusted proxy.
func GetClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if host == "::1" {
		return "127.0.0.1"
	}
	return host
}
