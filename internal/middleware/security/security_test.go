package security

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHeadersMiddleware(t *testing.T) {
	h := NewHeadersMiddleware(DefaultHeadersConfig()).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if got := rec.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q", got)
	}
	if got := rec.Header().Get("Content-Security-Policy"); got == "" {
		t.Error("missing CSP")
	}
	if _, ok := rec.Header()["Cross-Origin-Embedder-Policy"]; ok {
		t.Error("empty COEP should not be sent")
	}
	if got := rec.Header().Get("Strict-Transport-Security"); got != "" {
		t.Errorf("HSTS over plain HTTP: %q", got)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.TLS = &tls.ConnectionState{}
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("Strict-Transport-Security"); got != "max-age=31536000; includeSubDomains" {
		t.Errorf("HSTS = %q", got)
	}
}

func TestDetectSuspiciousRequest(t *testing.T) {
	tests := []struct {
		name   string
		method string
		target string
		agent  string
		want   bool
	}{
		{"normal page", http.MethodGet, "/collect", "Mozilla/5.0", false},
		{"traversal", http.MethodGet, "/static/../../etc/passwd", "", true},
		{"env file scan", http.MethodGet, "/.env", "", true},
		{"sql in query", http.MethodGet, "/report?area=1%20union%20select", "", true},
		{"scanner agent", http.MethodGet, "/", "sqlmap/1.7", true},
		{"trace method", "TRACE", "/", "", true},
		{"health check with curl", http.MethodGet, "/healthz", "curl/8.0", false},
		{"metrics scrape", http.MethodGet, "/metrics", "Prometheus/2.50", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDetector(nil)
			req := httptest.NewRequest(tt.method, tt.target, nil)
			if tt.agent != "" {
				req.Header.Set("User-Agent", tt.agent)
			}
			if got := d.DetectSuspiciousRequest(req); got != tt.want {
				t.Errorf("DetectSuspiciousRequest = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDetector_MiddlewareCounts(t *testing.T) {
	calls := 0
	d := NewDetector(func() { calls++ })
	served := false
	h := d.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { served = true }))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/wp-admin", nil))

	if !served {
		t.Error("suspicious request should still be served")
	}
	if calls != 1 || d.GetMetrics().SuspiciousRequests != 1 {
		t.Errorf("calls = %d, metrics = %+v", calls, d.GetMetrics())
	}
}

func TestExtractClientIP(t *testing.T) {
	d := NewDetector(nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.2:4000"
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.2")
	if got := d.ExtractClientIP(req); got != "203.0.113.7" {
		t.Errorf("behind proxy = %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "198.51.100.1:4000"
	req.Header.Set("X-Forwarded-For", "203.0.113.7")
	if got := d.ExtractClientIP(req); got != "198.51.100.1" {
		t.Errorf("untrusted peer = %q", got)
	}

	if err := d.AddTrustedProxy("198.51.100.0/24"); err != nil {
		t.Fatal(err)
	}
	if got := d.ExtractClientIP(req); got != "203.0.113.7" {
		t.Errorf("added proxy = %q", got)
	}
	if err := d.AddTrustedProxy("nope"); err == nil {
		t.Error("invalid CIDR accepted")
	}
}
