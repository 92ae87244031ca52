package httpserver

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter is a per-client-IP token bucket: max requests per window, with the
// bucket refilling evenly across the window.
type Limiter struct {
	mu       sync.Mutex
	clients  map[string]*client
	limit    rate.Limit
	burst    int
	window   time.Duration
	message  string
	lastScan time.Time
}

type client struct {
	lim  *rate.Limiter
	seen time.Time
}

// NewLimiter allows max requests per window for each client IP. Rejected
// requests get 429 with message as the body.
func NewLimiter(max int, window time.Duration, message string) *Limiter {
	return &Limiter{
		clients: make(map[string]*client),
		limit:   rate.Every(window / time.Duration(max)),
		burst:   max,
		window:  window,
		message: message,
	}
}

// Allow reports whether the client at key may make another request.
func (l *Limiter) Allow(key string) bool {
	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()

	// Clients idle for a whole window are back to a full bucket anyway.
	if now.Sub(l.lastScan) > l.window {
		for k, c := range l.clients {
			if now.Sub(c.seen) > l.window {
				delete(l.clients, k)
			}
		}
		l.lastScan = now
	}

	c, ok := l.clients[key]
	if !ok {
		c = &client{lim: rate.NewLimiter(l.limit, l.burst)}
		l.clients[key] = c
	}
	c.seen = now
	return c.lim.AllowN(now, 1)
}

// Middleware rejects requests over the limit. It relies on chi's RealIP
// having normalized RemoteAddr.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.Allow(clientIP(r)) {
			w.Header().Set("Retry-After", strconv.Itoa(int(l.window/time.Duration(l.burst)/time.Second)+1))
			writeMessage(w, http.StatusTooManyRequests, l.message)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
