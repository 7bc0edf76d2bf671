package security

import (
	"net/http"
	"strconv"
	"strings"
)

// HeadersConfig lists the response headers sent on every page. Empty
// values are not sent.
type HeadersConfig struct {
	CSP               string
	FrameOptions      string
	ContentTypeOpts   string
	ReferrerPolicy    string
	PermissionsPolicy string
	OpenerPolicy      string
	EmbedderPolicy    string
	ResourcePolicy    string

	// HSTS is only sent on TLS connections.
	HSTSMaxAge            int
	HSTSIncludeSubdomains bool
	HSTSPreload           bool
}

// DefaultHeadersConfig returns the headers for the back office pages. HTMX
// is loaded from unpkg; receipt previews use blob: URLs; the collect page
// may open the camera for receipt photos.
func DefaultHeadersConfig() HeadersConfig {
	csp := []string{
		"default-src 'self'",
		"script-src 'self' https://unpkg.com",
		"style-src 'self' 'unsafe-inline'",
		"img-src 'self' data: blob:",
		"connect-src 'self'",
		"font-src 'self'",
		"object-src 'none'",
		"frame-ancestors 'none'",
		"base-uri 'self'",
		"form-action 'self'",
	}
	return HeadersConfig{
		CSP:                   strings.Join(csp, "; "),
		FrameOptions:          "DENY",
		ContentTypeOpts:       "nosniff",
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		PermissionsPolicy:     "geolocation=(), microphone=(), camera=(self), payment=()",
		OpenerPolicy:          "same-origin",
		ResourcePolicy:        "same-origin",
		HSTSMaxAge:            365 * 24 * 60 * 60,
		HSTSIncludeSubdomains: true,
	}
}

type header struct{ name, value string }

// HeadersMiddleware sets a fixed list of headers before the handler runs.
type HeadersMiddleware struct {
	fixed []header
	hsts  string
}

func NewHeadersMiddleware(config HeadersConfig) *HeadersMiddleware {
	m := &HeadersMiddleware{}
	for _, h := range []header{
		{"Content-Security-Policy", config.CSP},
		{"X-Frame-Options", config.FrameOptions},
		{"X-Content-Type-Options", config.ContentTypeOpts},
		{"Referrer-Policy", config.ReferrerPolicy},
		{"Permissions-Policy", config.PermissionsPolicy},
		{"Cross-Origin-Opener-Policy", config.OpenerPolicy},
		{"Cross-Origin-Embedder-Policy", config.EmbedderPolicy},
		{"Cross-Origin-Resource-Policy", config.ResourcePolicy},
	} {
		if h.value != "" {
			m.fixed = append(m.fixed, h)
		}
	}
	if config.HSTSMaxAge > 0 {
		m.hsts = "max-age=" + strconv.Itoa(config.HSTSMaxAge)
		if config.HSTSIncludeSubdomains {
			m.hsts += "; includeSubDomains"
		}
		if config.HSTSPreload {
			m.hsts += "; preload"
		}
	}
	return m
}

func (m *HeadersMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		for _, f := range m.fixed {
			h.Set(f.name, f.value)
		}
		if r.TLS != nil && m.hsts != "" {
			h.Set("Strict-Transport-Security", m.hsts)
		}
		next.ServeHTTP(w, r)
	})
}

// StaticAssetMiddleware marks embedded assets cacheable for maxAge seconds.
func StaticAssetMiddleware(maxAge int) func(http.Handler) http.Handler {
	cacheControl := "public, max-age=" + strconv.Itoa(maxAge) + ", immutable"
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if maxAge > 0 {
				w.Header().Set("Cache-Control", cacheControl)
			}
			next.ServeHTTP(w, r)
		})
	}
}
