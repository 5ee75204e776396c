package middleware

import (
	"net/http"
	"sync"

	"github.com/fleetgo/dispatch-api/pkg/logger"
	"github.com/fleetgo/dispatch-api/pkg/ratelimit"
)

// EndpointRateLimiterMiddleware provides per-endpoint rate limiting. The
// dispatch and confirm-qr endpoints get tighter limits than the default: the
// QR signature must not be brute-forceable by hammering the confirm endpoint.
type EndpointRateLimiterMiddleware struct {
	limiters      map[string]*ratelimit.TokenBucket
	mu            sync.RWMutex
	defaultTokens float64
	defaultRate   float64
	logger        logger.Logger
}

// NewEndpointRateLimiterMiddleware creates a new EndpointRateLimiterMiddleware
func NewEndpointRateLimiterMiddleware(defaultTokens, defaultRate float64, logger logger.Logger) *EndpointRateLimiterMiddleware {
	return &EndpointRateLimiterMiddleware{
		limiters:      make(map[string]*ratelimit.TokenBucket),
		defaultTokens: defaultTokens,
		defaultRate:   defaultRate,
		logger:        logger,
	}
}

// SetLimit sets the rate limit for a specific endpoint
func (m *EndpointRateLimiterMiddleware) SetLimit(endpoint string, maxTokens, refillRate float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.limiters[endpoint] = ratelimit.NewTokenBucket(maxTokens, refillRate)
}

// getLimiter gets or creates a rate limiter for the specified endpoint
func (m *EndpointRateLimiterMiddleware) getLimiter(endpoint string) *ratelimit.TokenBucket {
	m.mu.RLock()
	limiter, exists := m.limiters[endpoint]
	m.mu.RUnlock()

	if exists {
		return limiter
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if limiter, exists = m.limiters[endpoint]; exists {
		return limiter
	}

	limiter = ratelimit.NewTokenBucket(m.defaultTokens, m.defaultRate)
	m.limiters[endpoint] = limiter
	return limiter
}

// Middleware returns a middleware function for per-endpoint rate limiting
func (m *EndpointRateLimiterMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		endpoint := r.Method + ":" + r.URL.Path

		limiter := m.getLimiter(endpoint)

		if !limiter.Allow() {
			m.logger.Warn("Endpoint rate limit exceeded",
				"endpoint", endpoint,
				"method", r.Method,
				"path", r.URL.Path)

			w.Header().Set("Retry-After", "5")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte("Rate limit exceeded for this endpoint. Please try again later."))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// GetAllLimits returns all configured endpoint limits
func (m *EndpointRateLimiterMiddleware) GetAllLimits() map[string]map[string]float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[string]map[string]float64)

	for endpoint, limiter := range m.limiters {
		result[endpoint] = map[string]float64{
			"max_tokens":  limiter.MaxTokens(),
			"refill_rate": limiter.RefillRate(),
			"available":   limiter.Available(),
		}
	}

	return result
}
