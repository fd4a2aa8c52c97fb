package api

import (
	"net"
	"net/http"
	"regexp"
	"runtime"
	"strings"

	"dhikr/core"
)

var (
	connectionStringPattern = regexp.MustCompile(`(?:sqlite|redis|clickhouse|tcp|file)://[^\s"']+`)
	filePathPattern         = regexp.MustCompile(`(?:[A-Za-z]:\\|/)(?:[^\\/:*?"<>|\s]+[\\/])+[^\\/:*?"<>|\s]+`)
	privateIPPatterns       = []*regexp.Regexp{
		regexp.MustCompile(`\b(?:10|127)(?:\.\d{1,3}){3}(?::\d{1,5})?\b`),
		regexp.MustCompile(`\b172\.(?:1[6-9]|2[0-9]|3[01])(?:\.\d{1,3}){2}(?::\d{1,5})?\b`),
		regexp.MustCompile(`\b192\.168(?:\.\d{1,3}){2}(?::\d{1,5})?\b`),
	}
	credentialPattern = regexp.MustCompile(`(?i)\b(password|secret|token|key|credential)\s*[:=]\s*["']?[^"'\s]+["']?`)
	stackTracePattern = regexp.MustCompile(`(?m)^goroutine \d+.*$`)
)

// sanitizeErrorMessage removes sensitive information from error messages before sending to clients
func sanitizeErrorMessage(message string) string {
	message = connectionStringPattern.ReplaceAllString(message, "[DATABASE_CONNECTION]")
	message = filePathPattern.ReplaceAllString(message, "[FILE_PATH]")

	// Public IPs stay visible; only internal addresses are hidden
	for _, re := range privateIPPatterns {
		message = re.ReplaceAllString(message, "[PRIVATE_IP]")
	}

	message = credentialPattern.ReplaceAllString(message, "$1=[REDACTED]")
	message = stackTracePattern.ReplaceAllString(message, "[STACK_TRACE]")

	if len(message) > core.MaxErrorMessageLength {
		message = message[:core.MaxErrorMessageLength-3] + "..."
	}

	return message
}

// getRealIP returns the client IP. Forwarding headers are honoured only when
// trustProxy is set and the direct peer is in trustedNetworks.
func getRealIP(r *http.Request, trustProxy bool, trustedNetworks []string) string {
	directIP, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		directIP = r.RemoteAddr
	}

	if !trustProxy || !isTrustedProxy(directIP, trustedNetworks) {
		return directIP
	}

	// X-Forwarded-For can contain multiple IPs, the first one is the original client
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ip := strings.TrimSpace(strings.Split(xff, ",")[0])
		if ip != "" && net.ParseIP(ip) != nil {
			return ip
		}
	}

	// Check X-Real-IP header (used by nginx)
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" && net.ParseIP(xri) != nil {
		return xri
	}

	return directIP
}

// isTrustedProxy checks if an IP is in the trusted proxy networks
func isTrustedProxy(ip string, trustedNetworks []string) bool {
	if len(trustedNetworks) == 0 {
		return false
	}

	parsedIP := net.ParseIP(ip)
	if parsedIP == nil {
		return false
	}

	for _, network := range trustedNetworks {
		if strings.Contains(network, "/") {
			_, ipNet, err := net.ParseCIDR(network)
			if err == nil && ipNet.Contains(parsedIP) {
				return true
			}
		} else if network == ip {
			return true
		}
	}

	return false
}

// securityHeadersMiddleware adds a restrictive CSP and related headers.
// Responses are JSON only, so nothing needs to load.
func (a *API) securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'; base-uri 'none'; form-action 'none'")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}

// errorRecoveryMiddleware turns a handler panic into a 500 and logs the stack
func (a *API) errorRecoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				if err == http.ErrAbortHandler {
					panic(err)
				}
				stackBuf := make([]byte, 4096)
				stackLen := captureStack(stackBuf)

				a.logger.Errorw("Panic recovered in HTTP handler",
					"panic", err,
					"method", r.Method,
					"route", r.URL.Path,
					"request_id", GetRequestIDOrDefault(r.Context()),
					"stack", string(stackBuf[:stackLen]))

				a.respondError(w, http.StatusInternalServerError, "Internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func captureStack(buf []byte) int {
	return runtime.Stack(buf, false)
}
