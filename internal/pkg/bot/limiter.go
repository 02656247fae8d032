package bot

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const maxTrackedUsers = 10000

// limiter allows one update per interval for each user
type limiter struct {
	every time.Duration
	lock  sync.Mutex
	users map[int64]*rate.Limiter
}

func newLimiter(every time.Duration) *limiter {
	return &limiter{every: every, users: map[int64]*rate.Limiter{}}
}

func (l *limiter) allow(userID int64) bool {
	if l == nil || l.every <= 0 {
		return true
	}
	l.lock.Lock()
	defer l.lock.Unlock()
	rl, ok := l.users[userID]
	if !ok {
		if len(l.users) >= maxTrackedUsers {
			l.users = map[int64]*rate.Limiter{}
		}
		rl = rate.NewLimiter(rate.Every(l.every), 1)
		l.users[userID] = rl
	}
	return rl.Allow()
}
