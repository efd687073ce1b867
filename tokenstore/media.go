package tokenstore

import (
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"time"

	"golang.org/x/net/publicsuffix"
)

// MemoryCookies is an in-process CookieMedium that honors expiry.
type MemoryCookies struct {
	mu      sync.RWMutex
	cookies map[string]*http.Cookie
	now     func() time.Time
}

// NewMemoryCookies returns an empty MemoryCookies.
func NewMemoryCookies() *MemoryCookies {
	return &MemoryCookies{cookies: make(map[string]*http.Cookie), now: time.Now}
}

// Cookie returns the value of a live, non-empty cookie.
func (m *MemoryCookies) Cookie(name string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.cookies[name]
	if !ok || expired(c, m.now()) || c.Value == "" {
		return "", false
	}
	return c.Value, true
}

// SetCookie stores c, or drops the cookie when c is already expired.
func (m *MemoryCookies) SetCookie(c *http.Cookie) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if expired(c, m.now()) {
		delete(m.cookies, c.Name)
		return
	}
	cp := *c
	m.cookies[c.Name] = &cp
}

func expired(c *http.Cookie, now time.Time) bool {
	if c.MaxAge < 0 {
		return true
	}
	return !c.Expires.IsZero() && !c.Expires.After(now)
}

// JarCookies is a CookieMedium over a cookie jar scoped to one URL. Sharing
// the jar with an *http.Client keeps the token cookie in step with the
// transport.
type JarCookies struct {
	jar http.CookieJar
	url *url.URL
}

// NewJarCookies creates a public-suffix aware jar for rawURL.
func NewJarCookies(rawURL string) (*JarCookies, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}
	return &JarCookies{jar: jar, url: u}, nil
}

// Jar exposes the underlying jar for use as http.Client.Jar.
func (j *JarCookies) Jar() http.CookieJar {
	return j.jar
}

// Cookie returns the value the jar would send to the URL.
func (j *JarCookies) Cookie(name string) (string, bool) {
	for _, c := range j.jar.Cookies(j.url) {
		if c.Name == name && c.Value != "" {
			return c.Value, true
		}
	}
	return "", false
}

// SetCookie stores c in the jar for the URL.
func (j *JarCookies) SetCookie(c *http.Cookie) {
	j.jar.SetCookies(j.url, []*http.Cookie{c})
}

// HTTPCookies is a server-side CookieMedium: it reads the incoming request's
// cookies and writes Set-Cookie headers on the response. Values written
// during the request are visible to later reads.
type HTTPCookies struct {
	mu      sync.Mutex
	req     *http.Request
	w       http.ResponseWriter
	written map[string]*http.Cookie
	now     func() time.Time
}

// NewHTTPCookies reads cookies from r and writes them to w.
func NewHTTPCookies(w http.ResponseWriter, r *http.Request) *HTTPCookies {
	return &HTTPCookies{req: r, w: w, written: make(map[string]*http.Cookie), now: time.Now}
}

// Cookie prefers a value written during this request over the incoming one.
func (h *HTTPCookies) Cookie(name string) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.written[name]; ok {
		if expired(c, h.now()) || c.Value == "" {
			return "", false
		}
		return c.Value, true
	}
	c, err := h.req.Cookie(name)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}

// SetCookie adds a Set-Cookie header and remembers c for later reads.
func (h *HTTPCookies) SetCookie(c *http.Cookie) {
	h.mu.Lock()
	defer h.mu.Unlock()
	cp := *c
	h.written[c.Name] = &cp
	http.SetCookie(h.w, c)
}
