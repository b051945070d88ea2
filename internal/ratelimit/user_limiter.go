package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const idleTTL = 10 * time.Minute

type userEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
	warned   bool
}

// Decision is the outcome of a limiter check.
type Decision struct {
	Allowed bool
	// FirstDenial is set on the first rejected update after an allowed one,
	// so the user is told to slow down once per burst.
	FirstDenial bool
}

// UserLimiter keeps one token bucket per Telegram user.
type UserLimiter struct {
	mu        sync.Mutex
	rate      rate.Limit
	burst     int
	users     map[int64]*userEntry
	lastSweep time.Time
	now       func() time.Time
}

func NewUserLimiter(perSecond float64, burst int) *UserLimiter {
	return &UserLimiter{
		rate:  rate.Limit(perSecond),
		burst: burst,
		users: make(map[int64]*userEntry),
		now:   time.Now,
	}
}

// Allow reports whether the user may proceed now.
func (l *UserLimiter) Allow(userID int64) bool {
	return l.Check(userID).Allowed
}

func (l *UserLimiter) Check(userID int64) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)

	e, ok := l.users[userID]
	if !ok {
		e = &userEntry{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.users[userID] = e
	}
	e.lastSeen = now

	if e.limiter.AllowN(now, 1) {
		e.warned = false
		return Decision{Allowed: true}
	}
	first := !e.warned
	e.warned = true
	return Decision{FirstDenial: first}
}

// Len returns the number of tracked users.
func (l *UserLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.users)
}

func (l *UserLimiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < idleTTL {
		return
	}
	l.lastSweep = now
	for id, e := range l.users {
		if now.Sub(e.lastSeen) > idleTTL {
			delete(l.users, id)
		}
	}
}
