package security

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync/atomic"

	applog "spendwise/internal/log"
)

// Reasons attached to a flagged request.
const (
	ReasonAttackPattern = "attack_pattern"
	ReasonScannerAgent  = "scanner_agent"
	ReasonMethod        = "unusual_method"
	ReasonLongURL       = "long_url"
	ReasonProxyChain    = "proxy_chain"
	ReasonUnknownRoute  = "unknown_api_route"
)

const (
	apiPrefix    = "/api"
	maxURLLength = 2048
	maxProxyHops = 5
)

var (
	attackPatterns = []string{
		"../", "..\\", ".env", "wp-admin", "phpmyadmin",
		"admin.php", "config.php", ".git", ".ssh",
		"eval(", "javascript:", "<script", "union select",
		"etc/passwd", "cmd.exe",
	}
	scannerAgents = []string{
		"sqlmap", "nmap", "nikto", "gobuster", "dirb",
		"masscan", "zgrab", "nuclei", "ffuf",
	}
	unusualMethods = []string{"TRACE", "TRACK", "DEBUG", "CONNECT"}
)

// DetectionMetrics tracks security detection events
type DetectionMetrics struct {
	SuspiciousRequests int64
	UnknownAPIRoutes   int64
	InvalidIPAttempts  int64
}

// requestState is filled in by the router while the request is served.
type requestState struct {
	authenticated bool
	unknownRoute  bool
}

type stateKey struct{}

func stateFrom(ctx context.Context) *requestState {
	st, _ := ctx.Value(stateKey{}).(*requestState)
	return st
}

// Detector flags hostile-looking traffic. It never blocks.
type Detector struct {
	metrics        *DetectionMetrics
	trustedProxies []*net.IPNet
}

// NewDetector creates a detector that trusts loopback and private proxies
func NewDetector() *Detector {
	return &Detector{
		metrics: &DetectionMetrics{},
		trustedProxies: []*net.IPNet{
			parseCIDR("127.0.0.0/8"),
			parseCIDR("10.0.0.0/8"),
			parseCIDR("172.16.0.0/12"),
			parseCIDR("192.168.0.0/16"),
		},
	}
}

func parseCIDR(cidr string) *net.IPNet {
	_, network, err := net.ParseCIDR(cidr)
	if err != nil {
		panic(fmt.Sprintf("failed to parse trusted proxy CIDR %s: %v", cidr, err))
	}
	return network
}

// Inspect returns why r looks hostile, or nil. Paths and queries of
// authenticated requests carry user data and are not pattern matched.
func (d *Detector) Inspect(r *http.Request, authenticated bool) []string {
	var reasons []string

	if !authenticated &&
		(containsAny(strings.ToLower(r.URL.Path), attackPatterns) || containsAny(strings.ToLower(r.URL.RawQuery), attackPatterns)) {
		reasons = append(reasons, ReasonAttackPattern)
	}
	if containsAny(strings.ToLower(r.Header.Get("User-Agent")), scannerAgents) {
		reasons = append(reasons, ReasonScannerAgent)
	}
	for _, m := range unusualMethods {
		if r.Method == m {
			reasons = append(reasons, ReasonMethod)
			break
		}
	}
	if len(r.URL.String()) > maxURLLength {
		reasons = append(reasons, ReasonLongURL)
	}
	if strings.Count(r.Header.Get("X-Forwarded-For"), ",") > maxProxyHops {
		reasons = append(reasons, ReasonProxyChain)
	}
	return reasons
}

func containsAny(s string, patterns []string) bool {
	if s == "" {
		return false
	}
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

// Middleware inspects each request once it has been routed and logs the
// ones that look hostile. Install it before routing.
func (d *Detector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		st := &requestState{}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), stateKey{}, st)))

		reasons := d.Inspect(r, st.authenticated)
		if st.unknownRoute {
			atomic.AddInt64(&d.metrics.UnknownAPIRoutes, 1)
			reasons = append(reasons, ReasonUnknownRoute)
		}
		if len(reasons) == 0 {
			return
		}
		atomic.AddInt64(&d.metrics.SuspiciousRequests, 1)
		applog.FromContext(r.Context()).WithComponent(applog.ComponentSecurity).WarnContext(r.Context(), "Suspicious request detected",
			applog.FieldClientIP, d.ExtractClientIP(r),
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			applog.FieldUserAgent, r.Header.Get("User-Agent"),
			"reasons", strings.Join(reasons, ","))
	})
}

// Authenticated marks requests that passed authentication.
// Install it after the authentication middleware.
func Authenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if st := stateFrom(r.Context()); st != nil {
			st.authenticated = true
		}
		next.ServeHTTP(w, r)
	})
}

// UnknownRoute records that r matched no route. Only API paths count.
func UnknownRoute(r *http.Request) {
	st := stateFrom(r.Context())
	if st == nil {
		return
	}
	if p := r.URL.Path; p == apiPrefix || strings.HasPrefix(p, apiPrefix+"/") {
		st.unknownRoute = true
	}
}

// ExtractClientIP extracts the real client IP, validating forwarded headers
func (d *Detector) ExtractClientIP(r *http.Request) string {
	directIP, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		directIP = r.RemoteAddr
	}

	parsedDirectIP := net.ParseIP(directIP)
	if parsedDirectIP == nil {
		atomic.AddInt64(&d.metrics.InvalidIPAttempts, 1)
		return directIP
	}

	// Forwarded headers are only honored from trusted proxies
	if d.isTrustedProxy(parsedDirectIP) {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if clientIP := strings.TrimSpace(first); net.ParseIP(clientIP) != nil {
				return clientIP
			}
		}
		if xri := r.Header.Get("X-Real-IP"); net.ParseIP(xri) != nil {
			return xri
		}
	}

	return directIP
}

func (d *Detector) isTrustedProxy(ip net.IP) bool {
	for _, network := range d.trustedProxies {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// GetMetrics returns current security metrics
func (d *Detector) GetMetrics() DetectionMetrics {
	return DetectionMetrics{
		SuspiciousRequests: atomic.LoadInt64(&d.metrics.SuspiciousRequests),
		UnknownAPIRoutes:   atomic.LoadInt64(&d.metrics.UnknownAPIRoutes),
		InvalidIPAttempts:  atomic.LoadInt64(&d.metrics.InvalidIPAttempts),
	}
}

// AddTrustedProxy adds a trusted proxy network
func (d *Detector) AddTrustedProxy(cidr string) error {
	_, network, err := net.ParseCIDR(cidr)
	if err != nil {
		return fmt.Errorf("invalid CIDR %s: %w", cidr, err)
	}

	d.trustedProxies = append(d.trustedProxies, network)
	return nil
}
