package zia

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Op identifies one logical class of admin API call for rate limiting.
// Distinct operations have independent call budgets.
type Op string

const (
	// OpListDepartments is the departments reference list fetch.
	OpListDepartments Op = "departments.list"
	// OpListGroups is the groups reference list fetch.
	OpListGroups Op = "groups.list"
	// OpListUsers is one users page fetch.
	OpListUsers Op = "users.list"
	// OpUpdateUser is one full-record user update.
	OpUpdateUser Op = "users.update"
	// OpBulkDelete is one bulk-delete chunk submission.
	OpBulkDelete Op = "users.bulkDelete"
	// OpGetEndpoint is a raw read of an arbitrary GET endpoint.
	OpGetEndpoint Op = "endpoints.get"
)

// Budget is a call budget of at most Calls admissions per Window.
type Budget struct {
	Calls  int
	Window time.Duration
}

// DefaultBudget is the vendor's documented ceiling of one call per second
// per endpoint.
var DefaultBudget = Budget{Calls: 1, Window: time.Second}

// DefaultBackoffSeconds is the backoff applied when the service throttles a
// request without a Retry-After header.
const DefaultBackoffSeconds = 60

// RateLimiter enforces one operation's call budget. It uses a token bucket
// with admissions spaced Window/Calls apart, so no sliding window of the
// budget duration ever observes more than Calls admitted requests. It never
// rejects; it only delays.
type RateLimiter struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	retryAt time.Time
}

// NewRateLimiter creates a rate limiter for the given budget.
func NewRateLimiter(b Budget) *RateLimiter {
	if b.Calls <= 0 || b.Window <= 0 {
		b = DefaultBudget
	}
	interval := b.Window / time.Duration(b.Calls)
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Every(interval), 1),
	}
}

// Wait blocks until a request can be made without exceeding the budget.
// It also respects any backoff period set by RecordRateLimitError.
func (r *RateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	retryAt := r.retryAt
	r.mu.Unlock()

	if time.Now().Before(retryAt) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Until(retryAt)):
		}
	}

	return r.limiter.Wait(ctx)
}

// RecordRateLimitError records a server-side throttle and sets a backoff
// period. The retryAfterSeconds parameter should come from the Retry-After
// header when present.
func (r *RateLimiter) RecordRateLimitError(retryAfterSeconds int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if retryAfterSeconds <= 0 {
		retryAfterSeconds = DefaultBackoffSeconds
	}

	r.retryAt = time.Now().Add(time.Duration(retryAfterSeconds) * time.Second)
}

// Allow checks if a request can be made immediately without blocking.
func (r *RateLimiter) Allow() bool {
	r.mu.Lock()
	retryAt := r.retryAt
	r.mu.Unlock()

	if time.Now().Before(retryAt) {
		return false
	}

	return r.limiter.Allow()
}

// Limits holds one RateLimiter per operation. It is owned by the Client and
// shared by every call site using the same operation; the admission check and
// the slot reservation happen atomically inside the underlying bucket.
type Limits struct {
	mu       sync.Mutex
	budgets  map[Op]Budget
	limiters map[Op]*RateLimiter
}

// NewLimits creates a limiter registry. Operations absent from budgets get
// DefaultBudget.
func NewLimits(budgets map[Op]Budget) *Limits {
	return &Limits{
		budgets:  budgets,
		limiters: make(map[Op]*RateLimiter),
	}
}

// Acquire blocks until a call slot for op is available, then reserves it.
func (l *Limits) Acquire(ctx context.Context, op Op) error {
	return l.get(op).Wait(ctx)
}

// RecordRateLimitError applies a backoff to op after a throttled response.
func (l *Limits) RecordRateLimitError(op Op, retryAfterSeconds int) {
	l.get(op).RecordRateLimitError(retryAfterSeconds)
}

func (l *Limits) get(op Op) *RateLimiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	rl, ok := l.limiters[op]
	if !ok {
		b, ok := l.budgets[op]
		if !ok {
			b = DefaultBudget
		}
		rl = NewRateLimiter(b)
		l.limiters[op] = rl
	}
	return rl
}
