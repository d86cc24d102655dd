package httpserver

import (
	"net/http"
	"strings"
	"sync"

	"golang.org/x/time/rate"
)

// PrefilterConfig holds the rate_limit_* and api_key options applied before
// a request reaches any handler.
type PrefilterConfig struct {
	APIKey             string
	RateLimitEnabled   bool
	RateLimitPerMinute int
	RateLimitWhitelist []string
}

// prefilter enforces the shared-secret api_key header and a per-client-IP
// token-bucket rate limit ahead of every order-broker and ticket-mapping
// route.
type prefilter struct {
	apiKey    string
	whitelist map[string]struct{}
	enabled   bool

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	perMin   int
}

func newPrefilter(cfg PrefilterConfig) *prefilter {
	whitelist := make(map[string]struct{}, len(cfg.RateLimitWhitelist))
	for _, ip := range cfg.RateLimitWhitelist {
		whitelist[strings.TrimSpace(ip)] = struct{}{}
	}
	perMin := cfg.RateLimitPerMinute
	if perMin <= 0 {
		perMin = 60
	}
	return &prefilter{
		apiKey:    cfg.APIKey,
		whitelist: whitelist,
		enabled:   cfg.RateLimitEnabled,
		limiters:  make(map[string]*rate.Limiter),
		perMin:    perMin,
	}
}

func (p *prefilter) limiterFor(clientIP string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()
	l, ok := p.limiters[clientIP]
	if !ok {
		l = rate.NewLimiter(rate.Limit(float64(p.perMin)/60.0), p.perMin)
		p.limiters[clientIP] = l
	}
	return l
}

func (s *Server) guard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.prefilter.apiKey != "" {
			if r.Header.Get("X-Api-Key") != s.prefilter.apiKey {
				writeOrderBrokerErrorBody(w, http.StatusUnauthorized, "X-Api-Key header is missing or invalid")
				return
			}
		}
		if s.prefilter.enabled {
			clientIP := resolveClientIP(r)
			if _, whitelisted := s.prefilter.whitelist[clientIP]; !whitelisted {
				if !s.prefilter.limiterFor(clientIP).Allow() {
					writeOrderBrokerErrorBody(w, http.StatusTooManyRequests, "too many requests")
					return
				}
			}
		}
		next.ServeHTTP(w, r)
	})
}

func resolveClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return strings.TrimSpace(strings.Split(forwarded, ",")[0])
	}
	return r.RemoteAddr
}
