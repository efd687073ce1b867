// Package tokenstore provides the cookie-backed and storage-backed
// implementations of apiclient.TokenStore, plus the media they persist to.
package tokenstore

import (
	"net/http"
	"time"
)

// cookieLifetimeYears is how far the expiry is moved forward on set and back on
// clear.
const cookieLifetimeYears = 5

// CookieMedium reads and writes cookies for a CookieStore.
type CookieMedium interface {
	Cookie(name string) (string, bool)
	SetCookie(c *http.Cookie)
}

// CookieOptions are the cookie attributes, fixed at construction.
type CookieOptions struct {
	Name   string
	Domain string
	Path   string
	Secure bool
}

// CookieStore keeps the token in a single cookie. Clearing writes the
// cookie with an expiry in the past instead of relying on a delete
// primitive.
type CookieStore struct {
	medium CookieMedium
	opts   CookieOptions
	now    func() time.Time
}

// NewCookieStore returns a CookieStore writing to medium.
func NewCookieStore(medium CookieMedium, opts CookieOptions) *CookieStore {
	return &CookieStore{medium: medium, opts: opts, now: time.Now}
}

// Token returns the cookie value, or "" when there is none.
func (s *CookieStore) Token() string {
	v, ok := s.medium.Cookie(s.opts.Name)
	if !ok {
		return ""
	}
	return v
}

// SetToken writes the token with a far-future expiry. An empty token writes
// an already expired cookie.
func (s *CookieStore) SetToken(token string) {
	years := cookieLifetimeYears
	if token == "" {
		years = -cookieLifetimeYears
	}
	s.medium.SetCookie(&http.Cookie{
		Name:     s.opts.Name,
		Value:    token,
		Domain:   s.opts.Domain,
		Path:     s.opts.Path,
		Secure:   s.opts.Secure,
		Expires:  s.now().AddDate(years, 0, 0),
		SameSite: http.SameSiteLaxMode,
	})
}
