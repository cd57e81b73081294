// Package ratelimit throttles firewall checks per tenant. The in-process
// default uses golang.org/x/time/rate; an optional Redis-backed store makes
// the limit hold across replicas.
package ratelimit

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/time/rate"
)

// Store decides whether one more request from actorID is allowed.
type Store interface {
	Allow(ctx context.Context, actorID string) (bool, error)
}

// LocalStore keeps one token bucket per actor in process memory.
type LocalStore struct {
	mu       sync.Mutex
	buckets  map[string]*rate.Limiter
	rps      rate.Limit
	burst    int
}

// NewLocalStore returns a Store enforcing rps requests per second with the
// given burst, tracked independently per actor.
func NewLocalStore(rps float64, burst int) *LocalStore {
	return &LocalStore{
		buckets: make(map[string]*rate.Limiter),
		rps:     rate.Limit(rps),
		burst:   burst,
	}
}

// Allow consumes one token from actorID's bucket, creating it on first use.
func (s *LocalStore) Allow(ctx context.Context, actorID string) (bool, error) {
	s.mu.Lock()
	limiter, ok := s.buckets[actorID]
	if !ok {
		limiter = rate.NewLimiter(s.rps, s.burst)
		s.buckets[actorID] = limiter
	}
	s.mu.Unlock()

	return limiter.Allow(), nil
}

// Limiter is the public entry point: Check reports whether actorID may
// proceed, returning ErrRateLimited when it may not.
type Limiter struct {
	store Store
}

// NewLimiter wraps store behind the firewall-facing API.
func NewLimiter(store Store) *Limiter {
	return &Limiter{store: store}
}

// ErrRateLimited is returned by Check when the actor has exhausted its
// token bucket.
var ErrRateLimited = fmt.Errorf("ratelimit: request rate exceeded")

// Check consumes one token for actorID. A tenant with no identity supplied
// by the caller should pass "" so it still shares a single global bucket
// rather than bypassing the limiter entirely.
func (l *Limiter) Check(ctx context.Context, actorID string) error {
	allowed, err := l.store.Allow(ctx, actorID)
	if err != nil {
		return fmt.Errorf("ratelimit: store error: %w", err)
	}
	if !allowed {
		return ErrRateLimited
	}
	return nil
}
