package middlewarectx

import "time"

// SetClock подменяет часы лимитера в тестах.
func (l *Limiter) SetClock(now func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
}
