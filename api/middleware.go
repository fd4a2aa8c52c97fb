package api

import (
	"net/http"
	"strconv"
	"time"

	"dhikr/metrics"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"golang.org/x/time/rate"
)

// rateLimiterIdleTimeout is how long an IP's limiter survives without traffic
const rateLimiterIdleTimeout = 1 * time.Hour

// rateLimitMiddleware provides rate limiting per IP
func (a *API) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := getRealIP(r, a.config.API.TrustProxy, a.config.API.TrustedProxyNetworks)
		a.rateLimitersMu.Lock()
		entry, exists := a.rateLimiters[ip]
		if !exists {
			entry = &rateLimiterEntry{
				limiter:  rate.NewLimiter(rate.Limit(a.config.API.RateLimit.RequestsPerSecond), a.config.API.RateLimit.Burst),
				lastSeen: time.Now(),
			}
			a.rateLimiters[ip] = entry
		} else {
			entry.lastSeen = time.Now()
		}
		// Capture limiter reference while holding lock
		limiter := entry.limiter
		a.rateLimitersMu.Unlock()

		if !limiter.Allow() {
			w.Header().Set("Retry-After", "1")
			a.respondError(w, http.StatusTooManyRequests, "Too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// cleanupRateLimiters periodically removes inactive rate limiters to prevent memory leaks
func (a *API) cleanupRateLimiters() {
	ticker := time.NewTicker(rateLimiterIdleTimeout)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			a.pruneRateLimiters(time.Now())
		case <-a.stopCh:
			return
		}
	}
}

// pruneRateLimiters drops limiters idle for longer than rateLimiterIdleTimeout
func (a *API) pruneRateLimiters(now time.Time) int {
	a.rateLimitersMu.Lock()
	defer a.rateLimitersMu.Unlock()

	removed := 0
	for ip, entry := range a.rateLimiters {
		if now.Sub(entry.lastSeen) > rateLimiterIdleTimeout {
			delete(a.rateLimiters, ip)
			removed++
		}
	}
	return removed
}

// corsMiddleware adds CORS headers for origins matching an allowed pattern
// and answers preflight requests directly.
func (a *API) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		allowed := origin != "" && a.isAllowedOrigin(origin)

		w.Header().Add("Vary", "Origin")
		if allowed {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			requested := r.Header.Get("Access-Control-Request-Headers")
			if requested == "" {
				requested = "Content-Type, Authorization"
			}
			w.Header().Set("Access-Control-Allow-Headers", requested)
			w.Header().Set("Access-Control-Max-Age", "600")
		}

		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			if !allowed {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (a *API) isAllowedOrigin(origin string) bool {
	for _, re := range a.allowedOrigins {
		if re.MatchString(origin) {
			return true
		}
	}
	return false
}

// requestIDMiddleware tags every request with an ID, reusing a sane
// X-Request-ID supplied by a proxy.
func (a *API) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if _, err := uuid.Parse(requestID); err != nil {
			requestID = uuid.New().String()
		}
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(WithRequestID(r.Context(), requestID)))
	})
}

// statusRecorder captures the status code written by a handler
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// metricsMiddleware records request latency by route template and status
func (a *API) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := "unmatched"
		if current := mux.CurrentRoute(r); current != nil {
			if tmpl, err := current.GetPathTemplate(); err == nil {
				route = tmpl
			}
		}
		metrics.HTTPRequestDuration.WithLabelValues(route, strconv.Itoa(rec.status)).Observe(time.Since(start).Seconds())
	})
}
