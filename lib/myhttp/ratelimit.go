package myhttp

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/MarcGrol/paymentforms/lib/mycontext"
	"github.com/MarcGrol/paymentforms/lib/myerrors"
	"github.com/MarcGrol/paymentforms/lib/mylog"
)

const visitorIdleTimeout = 3 * time.Minute

// RateLimiter is a token bucket per client ip for endpoints that are reachable without authentication
type RateLimiter struct {
	sync.Mutex
	visitors  map[string]*visitor
	rate      rate.Limit
	burst     int
	lastSweep time.Time
	logger    mylog.Logger
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewRateLimiter(requestsPerSecond float64, burst int) *RateLimiter {
	return &RateLimiter{
		visitors:  map[string]*visitor{},
		rate:      rate.Limit(requestsPerSecond),
		burst:     burst,
		lastSweep: time.Now(),
		logger:    mylog.New("ratelimit"),
	}
}

func (rl *RateLimiter) Limit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if !rl.allow(ip, time.Now()) {
			c := mycontext.ContextFromHTTPRequest(r)
			w.Header().Set("Retry-After", "1")
			NewWriter(rl.logger).WriteError(c, w, 429, myerrors.NewTooManyRequestsError(fmt.Errorf("rate limit exceeded for %s", ip)))
			return
		}
		next(w, r)
	}
}

func (rl *RateLimiter) allow(ip string, now time.Time) bool {
	rl.Lock()
	defer rl.Unlock()

	if now.Sub(rl.lastSweep) > visitorIdleTimeout {
		for key, v := range rl.visitors {
			if now.Sub(v.lastSeen) > visitorIdleTimeout {
				delete(rl.visitors, key)
			}
		}
		rl.lastSweep = now
	}

	v, exists := rl.visitors[ip]
	if !exists {
		v = &visitor{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.visitors[ip] = v
	}
	v.lastSeen = now

	return v.limiter.AllowN(now, 1)
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.SplitN(xff, ",", 2)
		return strings.TrimSpace(parts[0])
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
