package bot

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// userLimiter ограничивает частоту событий от одного пользователя.
type userLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	idle     time.Duration
	limiters map[int64]*limiterEntry
	sweptAt  time.Time
}

type limiterEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

func newUserLimiter(perSecond float64, burst int) *userLimiter {
	if perSecond <= 0 {
		perSecond = float64(rate.Inf)
	}
	if burst <= 0 {
		burst = 1
	}
	return &userLimiter{
		limit:    rate.Limit(perSecond),
		burst:    burst,
		idle:     10 * time.Minute,
		limiters: make(map[int64]*limiterEntry),
	}
}

// Allow сообщает, можно ли обработать ещё одно событие пользователя.
func (l *userLimiter) Allow(userID int64, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.sweptAt) > l.idle {
		for id, e := range l.limiters {
			if now.Sub(e.lastSeen) > l.idle {
				delete(l.limiters, id)
			}
		}
		l.sweptAt = now
	}

	e, ok := l.limiters[userID]
	if !ok {
		e = &limiterEntry{lim: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[userID] = e
	}
	e.lastSeen = now
	return e.lim.AllowN(now, 1)
}
