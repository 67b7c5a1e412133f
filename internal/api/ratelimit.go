package api

import (
	"net/http"
	"sync"

	"golang.org/x/time/rate"
)

// solveLimiter throttles solve submissions per tenant. Runs are CPU bound,
// so a burst of submissions from one tenant can starve the rest.
type solveLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	r        rate.Limit
	burst    int
}

func newSolveLimiter(r rate.Limit, burst int) *solveLimiter {
	return &solveLimiter{limiters: map[string]*rate.Limiter{}, r: r, burst: burst}
}

func (l *solveLimiter) get(tenant string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.limiters[tenant]
	if !ok {
		lim = rate.NewLimiter(l.r, l.burst)
		l.limiters[tenant] = lim
	}
	return lim
}

func (s *Server) rateLimited(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pr := s.getPrincipal(r)
		if !s.limiter.get(pr.Tenant).Allow() {
			writeProblem(w, http.StatusTooManyRequests, "rate limited", "too many solve requests", r.URL.Path)
			return
		}
		next(w, r)
	}
}
