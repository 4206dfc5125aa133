package security

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"
)

// PlotlyCDN is where the dashboard pages load the charting library and the
// choropleth topojson from.
const PlotlyCDN = "https://cdn.plot.ly"

// ContentSecurityPolicy maps directives to their source lists.
type ContentSecurityPolicy map[string][]string

// String renders the policy with directives in a stable order.
func (p ContentSecurityPolicy) String() string {
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, strings.TrimSpace(name+" "+strings.Join(p[name], " ")))
	}
	return strings.Join(parts, "; ")
}

type HeadersConfig struct {
	CSP ContentSecurityPolicy
	// Static headers sent on every response.
	Static map[string]string
	// HSTS is only sent over TLS. Zero disables it.
	HSTS                  time.Duration
	HSTSIncludeSubdomains bool
	// NoStorePrefixes get Cache-Control: no-store; their content changes on reload.
	NoStorePrefixes []string
}

// DefaultHeadersConfig allows the Plotly bundle and keeps dashboard data out
// of shared caches.
func DefaultHeadersConfig() HeadersConfig {
	return HeadersConfig{
		CSP: ContentSecurityPolicy{
			"default-src":     {"'self'"},
			"script-src":      {"'self'", PlotlyCDN},
			"style-src":       {"'self'", "'unsafe-inline'"},
			"img-src":         {"'self'", "data:", "blob:"},
			"connect-src":     {"'self'", PlotlyCDN},
			"object-src":      {"'none'"},
			"frame-ancestors": {"'none'"},
			"base-uri":        {"'self'"},
			"form-action":     {"'self'"},
		},
		Static: map[string]string{
			"X-Content-Type-Options":       "nosniff",
			"X-Frame-Options":              "DENY",
			"Referrer-Policy":              "strict-origin-when-cross-origin",
			"Permissions-Policy":           "geolocation=(), microphone=(), camera=(), payment=()",
			"Cross-Origin-Opener-Policy":   "same-origin",
			"Cross-Origin-Resource-Policy": "same-origin",
		},
		HSTS:                  365 * 24 * time.Hour,
		HSTSIncludeSubdomains: true,
		NoStorePrefixes:       []string{"/api/", "/reload"},
	}
}

// HeadersMiddleware applies security headers to responses
type HeadersMiddleware struct {
	headers http.Header
	hsts    string
	noStore []string
}

// NewHeadersMiddleware renders the configured headers once.
func NewHeadersMiddleware(config HeadersConfig) *HeadersMiddleware {
	h := &HeadersMiddleware{headers: http.Header{}, noStore: config.NoStorePrefixes}
	for k, v := range config.Static {
		h.headers.Set(k, v)
	}
	if len(config.CSP) > 0 {
		h.headers.Set("Content-Security-Policy", config.CSP.String())
	}
	if config.HSTS > 0 {
		h.hsts = fmt.Sprintf("max-age=%d", int(config.HSTS.Seconds()))
		if config.HSTSIncludeSubdomains {
			h.hsts += "; includeSubDomains"
		}
	}
	return h
}

func (h *HeadersMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		out := w.Header()
		for k, v := range h.headers {
			out.Set(k, v[0])
		}
		if r.TLS != nil && h.hsts != "" {
			out.Set("Strict-Transport-Security", h.hsts)
		}
		for _, prefix := range h.noStore {
			if strings.HasPrefix(r.URL.Path, prefix) {
				out.Set("Cache-Control", "no-store")
				break
			}
		}
		next.ServeHTTP(w, r)
	})
}

// StaticAssetMiddleware lets browsers cache embedded assets for maxAge seconds.
func StaticAssetMiddleware(maxAge int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if maxAge > 0 {
				w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", maxAge))
			}
			next.ServeHTTP(w, r)
		})
	}
}
