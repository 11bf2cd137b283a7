package agent

import (
	"sync"
	"time"
)

const (
	maxJailbreakAttempts = 5
	jailbreakWindow      = 10 * time.Minute
)

// TooManyAttemptsReply is sent while a customer is blocked for repeated
// manipulation attempts.
const TooManyAttemptsReply = "You've made too many unusual requests. Please try again later or contact us directly."

// AbuseLimiter tracks jailbreak attempts per customer in a sliding
// window. State is in-memory and process-local; a restart forgives.
type AbuseLimiter struct {
	mu       sync.Mutex
	attempts map[string][]time.Time
	now      func() time.Time
}

func NewAbuseLimiter() *AbuseLimiter {
	return &AbuseLimiter{
		attempts: make(map[string][]time.Time),
		now:      time.Now,
	}
}

// Blocked reports whether key has exhausted its attempt budget. Expired
// attempts are pruned on the way.
func (l *AbuseLimiter) Blocked(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-jailbreakWindow)
	kept := l.attempts[key][:0]
	for _, at := range l.attempts[key] {
		if at.After(cutoff) {
			kept = append(kept, at)
		}
	}
	if len(kept) == 0 {
		delete(l.attempts, key)
	} else {
		l.attempts[key] = kept
	}
	return len(kept) >= maxJailbreakAttempts
}

// Record counts one jailbreak attempt against key.
func (l *AbuseLimiter) Record(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.attempts[key] = append(l.attempts[key], l.now())
}
