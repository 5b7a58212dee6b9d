package middleware

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"taskManager/internal/logger"

	"go.uber.org/zap"
)

type clientInfo struct {
	count   int
	resetAt time.Time
}

// limiter считает запросы в фиксированном окне на ключ клиента.
// Истёкшие окна удаляются не реже раза в окно.
type limiter struct {
	rpm    int
	window time.Duration

	mtx       sync.Mutex
	clients   map[string]*clientInfo
	nextSweep time.Time
}

func newLimiter(rpm int, window time.Duration, now time.Time) *limiter {
	return &limiter{
		rpm:       rpm,
		window:    window,
		clients:   make(map[string]*clientInfo),
		nextSweep: now.Add(window),
	}
}

func (l *limiter) allow(key string, now time.Time) (bool, int, time.Time) {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	if !now.Before(l.nextSweep) {
		for k, info := range l.clients {
			if now.After(info.resetAt) {
				delete(l.clients, k)
			}
		}
		l.nextSweep = now.Add(l.window)
	}

	info, exists := l.clients[key]
	switch {
	case !exists:
		info = &clientInfo{resetAt: now.Add(l.window)}
		l.clients[key] = info
	case now.After(info.resetAt):
		info.count = 0
		info.resetAt = now.Add(l.window)
	}

	if info.count >= l.rpm {
		return false, 0, info.resetAt
	}
	info.count++
	return true, l.rpm - info.count, info.resetAt
}

func (l *limiter) size() int {
	l.mtx.Lock()
	defer l.mtx.Unlock()
	return len(l.clients)
}

// RateLimit: фиксированное окно в минуту на адрес соединения.
// Заголовки X-Forwarded-For и X-Real-IP учитываются, только если перед ним стоит RealIP для доверенного прокси.
func RateLimit(rpm int) func(http.Handler) http.Handler {
	return rateLimit(rpm, time.Minute, time.Now)
}

func rateLimit(rpm int, window time.Duration, now func() time.Time) func(http.Handler) http.Handler {
	l := newLimiter(rpm, window, now())

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if rpm <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			ip := peerIP(r)
			current := now()
			ok, remaining, resetAt := l.allow(ip, current)
			if !ok {
				logger.Warn("HTTP: Превышен лимит запросов",
					zap.String("request_id", GetRequestID(r.Context())),
					zap.String("client_ip", ip))

				retryAfter := int(resetAt.Sub(current).Seconds()) + 1
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				writeError(w, http.StatusTooManyRequests, CodeRateLimited, "Слишком много запросов. Попробуйте позже.")
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rpm))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

			next.ServeHTTP(w, r)
		})
	}
}

// peerIP берёт хост из RemoteAddr и не читает заголовки запроса.
func peerIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
