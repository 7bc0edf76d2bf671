// Package auth is the shared-password gate in front of every page.
package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const (
	CookieName = "khidma_auth"
	CookieTTL  = 30 * 24 * time.Hour
	LoginPath  = "/login"
)

var (
	ErrNoPassword    = errors.New("no password configured")
	ErrWrongPassword = errors.New("wrong password")
)

const staticPrefix = "/static/"

var publicPaths = map[string]bool{
	LoginPath:  true,
	"/healthz": true,
	"/readyz":  true,
	"/metrics": true,
}

// IsPublic reports whether path is reachable without the cookie: the
// exact public paths and anything under /static/.
func IsPublic(path string) bool {
	return publicPaths[path] || strings.HasPrefix(path, staticPrefix)
}

// HashPassword returns the bcrypt hash stored in AUTH_PASSWORD_HASH.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrNoPassword
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

// Gate checks the shared password and the cookie proving it was entered.
type Gate struct {
	hash   []byte
	token  string
	secure bool
}

// New builds a gate from a bcrypt hash, or from a plain password hashed now
// when no hash is given. A gate built from a plain password issues a new
// token on every start.
func New(password, passwordHash string, secureCookie bool) (*Gate, error) {
	if passwordHash == "" {
		h, err := HashPassword(password)
		if err != nil {
			return nil, err
		}
		passwordHash = h
	}
	if _, err := bcrypt.Cost([]byte(passwordHash)); err != nil {
		return nil, fmt.Errorf("invalid password hash: %w", err)
	}
	sum := sha256.Sum256([]byte(passwordHash))
	return &Gate{
		hash:   []byte(passwordHash),
		token:  hex.EncodeToString(sum[:]),
		secure: secureCookie,
	}, nil
}

func (g *Gate) Check(password string) error {
	if err := bcrypt.CompareHashAndPassword(g.hash, []byte(password)); err != nil {
		return ErrWrongPassword
	}
	return nil
}

// Authenticated reports whether the request carries the gate cookie.
func (g *Gate) Authenticated(r *http.Request) bool {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(c.Value), []byte(g.token)) == 1
}

func (g *Gate) SetCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    g.token,
		Path:     "/",
		MaxAge:   int(CookieTTL / time.Second),
		HttpOnly: true,
		Secure:   g.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (g *Gate) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   g.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Middleware sends unauthenticated requests for private paths to the login
// page, remembering where they were going. HTMX requests get an HX-Redirect
// so the whole page navigates instead of swapping the login form in.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if IsPublic(r.URL.Path) || g.Authenticated(r) {
			next.ServeHTTP(w, r)
			return
		}
		target := LoginURL(r.URL.RequestURI())
		slog.DebugContext(r.Context(), "unauthenticated request", "path", r.URL.Path)
		if r.Header.Get("HX-Request") == "true" {
			w.Header().Set("HX-Redirect", target)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		http.Redirect(w, r, target, http.StatusSeeOther)
	})
}

// LoginURL is the login page returning to from after success.
func LoginURL(from string) string {
	if from == "" || from == "/" {
		return LoginPath
	}
	return LoginPath + "?from=" + url.QueryEscape(from)
}

// SafeRedirect keeps only local absolute paths, so the login form cannot
// be used to bounce to another site.
func SafeRedirect(from string) string {
	if from == "" || !strings.HasPrefix(from, "/") || strings.HasPrefix(from, "//") ||
		strings.HasPrefix(from, "/\\") || strings.HasPrefix(from, LoginPath) {
		return "/"
	}
	return from
}
