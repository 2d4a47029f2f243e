package middleware

import (
	"context"
	"crypto/subtle"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"clickwar/internal/constants"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

type contextKey string

const (
	RequestIDKey contextKey = "request_id"
	CountryKey   contextKey = "country"
)

// https://github.com/gin-contrib/requestid
func RequestID(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = uuid.New().String()
			}

			w.Header().Set("X-Request-ID", requestID)

			ctx := context.WithValue(r.Context(), RequestIDKey, requestID)

			loggerWithID := logger.With().
				Str("request_id", requestID).
				Str("ip", ClientIP(r)).
				Logger()
			ctx = loggerWithID.WithContext(ctx)

			loggerWithID.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Msg("request started")

			next.ServeHTTP(w, r.WithContext(ctx))

			duration := time.Since(start)
			loggerWithID.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int64("duration_ms", duration.Milliseconds()).
				Msg("request completed")
		})
	}
}

func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}

// ClientIP prefers the first X-Forwarded-For hop and strips IPv4-mapped prefixes.
func ClientIP(r *http.Request) string {
	ip := ""
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		ip = strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	if ip == "" {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		ip = host
	}
	return strings.TrimPrefix(ip, "::ffff:")
}

type CountryResolver interface {
	Resolve(ctx context.Context, ip string) string
}

// Country resolves the caller's country once per request. Handlers read
// it with CountryFrom and never take it from the request body.
func Country(resolver CountryResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			country := resolver.Resolve(r.Context(), ClientIP(r))
			ctx := context.WithValue(r.Context(), CountryKey, country)

			logger := zerolog.Ctx(r.Context()).With().Str("country", country).Logger()
			ctx = logger.WithContext(ctx)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func CountryFrom(ctx context.Context) string {
	if c, ok := ctx.Value(CountryKey).(string); ok && c != "" {
		return c
	}
	return constants.UnknownCountry
}

// IPLimiter keeps one token bucket per client IP.
type IPLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	limiters map[string]*ipLimiter
}

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewIPLimiter(perSecond float64, burst int) *IPLimiter {
	return &IPLimiter{
		limit:    rate.Limit(perSecond),
		burst:    burst,
		limiters: make(map[string]*ipLimiter),
	}
}

func (l *IPLimiter) Allow(ip string) bool {
	l.mu.Lock()
	entry, ok := l.limiters[ip]
	if !ok {
		entry = &ipLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[ip] = entry
	}
	entry.lastSeen = time.Now()
	l.mu.Unlock()
	return entry.limiter.Allow()
}

// Prune forgets IPs idle for longer than idle and reports how many.
func (l *IPLimiter) Prune(idle time.Duration) int {
	cutoff := time.Now().Add(-idle)
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for ip, entry := range l.limiters {
		if entry.lastSeen.Before(cutoff) {
			delete(l.limiters, ip)
			n++
		}
	}
	return n
}

func (l *IPLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := ClientIP(r)
		if !l.Allow(ip) {
			zerolog.Ctx(r.Context()).Debug().Str("ip", ip).Msg("rate limited")
			http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// AdminOnly accepts the password from the X-Admin-Password header or the
// password query parameter.
func AdminOnly(password string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			given := r.Header.Get("X-Admin-Password")
			if given == "" {
				given = r.URL.Query().Get("password")
			}
			if password == "" || subtle.ConstantTimeCompare([]byte(given), []byte(password)) != 1 {
				zerolog.Ctx(r.Context()).Warn().Str("path", r.URL.Path).Msg("admin access denied")
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
