package web

import (
	"errors"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/JonMunkholm/dataadmin/internal/core"
)

var errRateLimited = errors.New("rate limit exceeded")

// visitorTTL is how long an idle client keeps its bucket.
const visitorTTL = 3 * time.Minute

// ipLimiter is a token bucket per client IP. Idle buckets are swept on
// access instead of by a background goroutine.
type ipLimiter struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	limit     rate.Limit
	burst     int
	lastSweep time.Time
	now       func() time.Time
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// newIPLimiter allows perMinute requests per minute per IP, with bursts of
// up to perMinute.
func newIPLimiter(perMinute int) *ipLimiter {
	if perMinute <= 0 {
		perMinute = 1
	}
	return &ipLimiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    perMinute,
		now:      time.Now,
	}
}

func (l *ipLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) > visitorTTL {
		for key, v := range l.visitors {
			if now.Sub(v.lastSeen) > visitorTTL {
				delete(l.visitors, key)
			}
		}
		l.lastSweep = now
	}

	v, ok := l.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

// middleware rejects clients over their budget with 429.
func (l *ipLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.allow(clientIP(r)) {
			w.Header().Set("Retry-After", strconv.Itoa(int(visitorRetry(l.limit).Seconds())))
			msg := core.MapError(errRateLimited)
			writeJSON(w, http.StatusTooManyRequests, ErrorResponse{
				Error:   errRateLimited.Error(),
				Message: msg.Message,
				Action:  msg.Action,
				Code:    msg.Code,
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP is RemoteAddr without its port. TrustedRealIP has already
// replaced it with the forwarded address for trusted proxies.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// visitorRetry is the time until one token is back, at least a second.
func visitorRetry(limit rate.Limit) time.Duration {
	if limit <= 0 {
		return time.Minute
	}
	d := time.Duration(float64(time.Second) / float64(limit))
	if d < time.Second {
		d = time.Second
	}
	return d
}
