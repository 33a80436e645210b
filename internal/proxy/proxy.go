package proxy

import (
	"fmt"
	"net/url"
	"strings"
)

// supportedSchemes lists the proxy URL schemes net/http can dial.
var supportedSchemes = map[string]bool{
	"http":    true,
	"https":   true,
	"socks5":  true,
	"socks5h": true,
}

// Rotator hands out proxies round-robin. It is not safe for concurrent use.
type Rotator struct {
	proxies []string
	cursor  int
}

// NewRotator creates a rotator over proxies. The slice is copied.
func NewRotator(proxies []string) *Rotator {
	list := make([]string, len(proxies))
	copy(list, proxies)
	return &Rotator{proxies: list}
}

// Len returns the number of configured proxies
func (r *Rotator) Len() int {
	return len(r.proxies)
}

// Enabled reports whether any proxy is configured
func (r *Rotator) Enabled() bool {
	return len(r.proxies) > 0
}

// Next returns the proxy under the cursor and advances it modulo the list
// length. The second result is false when no proxies are configured.
func (r *Rotator) Next() (string, bool) {
	if len(r.proxies) == 0 {
		return "", false
	}
	p := r.proxies[r.cursor]
	r.cursor = (r.cursor + 1) % len(r.proxies)
	return p, true
}

// Normalize turns a proxy line into a URL, defaulting to http:// when the
// line carries no scheme.
func Normalize(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty proxy")
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid proxy %q: %w", Display(raw), err)
	}
	if !supportedSchemes[u.Scheme] {
		return "", fmt.Errorf("unsupported proxy scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("proxy %q has no host", Display(raw))
	}
	return u.String(), nil
}

// Display returns a proxy address without scheme or credentials, for logs.
func Display(proxyURL string) string {
	if proxyURL == "" {
		return "no proxy"
	}
	if u, err := url.Parse(proxyURL); err == nil && u.Host != "" {
		return u.Host
	}
	s := proxyURL
	if i := strings.Index(s, "://"); i != -1 {
		s = s[i+3:]
	}
	if at := strings.LastIndex(s, "@"); at != -1 {
		s = s[at+1:]
	}
	return s
}
