package middlewarectx

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/middleware"
	"golang.org/x/time/rate"

	"github.com/magabrotheeeer/hanzi-trainer/internal/http/response"
)

// DefaultLimiterIdleTTL — через столько без запросов корзина пользователя удаляется.
const DefaultLimiterIdleTTL = 10 * time.Minute

type limiterEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// Limiter хранит отдельный rate.Limiter на каждого пользователя.
// Корзины, простаивающие дольше idleTTL, вычищаются при очередном обращении.
type Limiter struct {
	mu        sync.Mutex
	limiters  map[string]*limiterEntry
	rps       rate.Limit
	burst     int
	idleTTL   time.Duration
	lastSweep time.Time
	now       func() time.Time
}

// NewLimiter создаёт Limiter с частотой rps запросов в секунду и запасом burst.
func NewLimiter(rps float64, burst int) *Limiter {
	return NewLimiterWithTTL(rps, burst, DefaultLimiterIdleTTL)
}

// NewLimiterWithTTL — как NewLimiter, но с заданным временем жизни простаивающей корзины.
func NewLimiterWithTTL(rps float64, burst int, idleTTL time.Duration) *Limiter {
	if idleTTL <= 0 {
		idleTTL = DefaultLimiterIdleTTL
	}
	return &Limiter{
		limiters: make(map[string]*limiterEntry),
		rps:      rate.Limit(rps),
		burst:    burst,
		idleTTL:  idleTTL,
		now:      time.Now,
	}
}

// Allow сообщает, можно ли пропустить ещё один запрос пользователя key.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	now := l.now()
	if now.Sub(l.lastSweep) >= l.idleTTL {
		l.sweep(now)
	}
	e, ok := l.limiters[key]
	if !ok {
		e = &limiterEntry{lim: rate.NewLimiter(l.rps, l.burst)}
		l.limiters[key] = e
	}
	e.lastSeen = now
	l.mu.Unlock()
	return e.lim.AllowN(now, 1)
}

// Len возвращает число хранимых корзин.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

// sweep удаляет корзины без запросов дольше idleTTL. Вызывается под l.mu.
func (l *Limiter) sweep(now time.Time) {
	for key, e := range l.limiters {
		if now.Sub(e.lastSeen) >= l.idleTTL {
			delete(l.limiters, key)
		}
	}
	l.lastSweep = now
}

// RateLimitMiddleware ограничивает частоту запросов пользователя.
// Должен стоять после JWTMiddleware; без пользователя лимит считается по адресу клиента.
func RateLimitMiddleware(limiter *Limiter, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key, ok := UserIDFrom(r.Context())
			if !ok {
				key = r.RemoteAddr
			}
			if !limiter.Allow(key) {
				log.Warn("too many requests",
					slog.String("key", key),
					slog.String("request_id", middleware.GetReqID(r.Context())),
				)
				response.WriteError(w, r, http.StatusTooManyRequests, "too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
