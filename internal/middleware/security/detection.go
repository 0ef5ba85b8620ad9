package security

import (
	"fmt"
	"net"
	"net/http"
	"strings"
)

// Reasons reported by DetectSuspiciousRequest.
const (
	ReasonPath      = "path"
	ReasonQuery     = "query"
	ReasonUserAgent = "user_agent"
	ReasonMethod    = "method"
	ReasonLongURL   = "long_url"
	ReasonProxyHops = "proxy_hops"
)

const maxURLLength = 2048

var (
	suspiciousPatterns = []string{
		"../", "..\\", ".env", "wp-admin", "phpmyadmin",
		"admin.php", "config.php", ".git", ".ssh",
		"eval(", "javascript:", "<script", "union select",
		"etc/passwd", "cmd.exe",
	}
	suspiciousAgents = []string{
		"sqlmap", "nmap", "nikto", "gobuster", "dirb", "masscan",
	}
	unusualMethods = []string{"TRACE", "TRACK", "DEBUG", "CONNECT"}
)

// Detector flags requests that look like scans or injection attempts and
// resolves the client address behind trusted proxies.
type Detector struct {
	trustedProxies []*net.IPNet
}

func NewDetector() *Detector {
	return &Detector{
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

// DetectSuspiciousRequest returns the first reason r looks hostile, or "" when
// it does not.
func (d *Detector) DetectSuspiciousRequest(r *http.Request) string {
	path := strings.ToLower(r.URL.Path)
	query := strings.ToLower(r.URL.RawQuery)
	for _, pattern := range suspiciousPatterns {
		if strings.Contains(path, pattern) {
			return ReasonPath
		}
		if strings.Contains(query, pattern) {
			return ReasonQuery
		}
	}

	userAgent := strings.ToLower(r.Header.Get("User-Agent"))
	for _, agent := range suspiciousAgents {
		if strings.Contains(userAgent, agent) {
			return ReasonUserAgent
		}
	}

	for _, method := range unusualMethods {
		if r.Method == method {
			return ReasonMethod
		}
	}

	if len(r.URL.String()) > maxURLLength {
		return ReasonLongURL
	}

	if strings.Count(r.Header.Get("X-Forwarded-For"), ",") > 5 {
		return ReasonProxyHops
	}

	return ""
}

// Middleware reports suspicious requests to onSuspicious and, when block is
// set, answers them with 400 instead of serving them.
func (d *Detector) Middleware(block bool, onSuspicious func(r *http.Request, reason string)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if reason := d.DetectSuspiciousRequest(r); reason != "" {
				if onSuspicious != nil {
					onSuspicious(r, reason)
				}
				if block {
					http.Error(w, "Bad request", http.StatusBadRequest)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ExtractClientIP returns the connecting address, or the first forwarded
// address when the connection comes from a trusted proxy.
func (d *Detector) ExtractClientIP(r *http.Request) string {
	directIP, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		directIP = r.RemoteAddr
	}

	parsedDirectIP := net.ParseIP(directIP)
	if parsedDirectIP == nil || !d.isTrustedProxy(parsedDirectIP) {
		return directIP
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		clientIP := strings.TrimSpace(strings.Split(xff, ",")[0])
		if net.ParseIP(clientIP) != nil {
			return clientIP
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		if net.ParseIP(xri) != nil {
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

// AddTrustedProxy adds a trusted proxy network
func (d *Detector) AddTrustedProxy(cidr string) error {
	_, network, err := net.ParseCIDR(cidr)
	if err != nil {
		return fmt.Errorf("invalid CIDR %s: %w", cidr, err)
	}
	d.trustedProxies = append(d.trustedProxies, network)
	return nil
}
