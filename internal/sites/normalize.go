// Package sites normalizes reported domains so the detection join and the
// stored tracked-site values share one vocabulary.
package sites

import (
	"net/url"
	"strings"
)

// Normalize lowercases a domain and strips one leading "www." prefix.
// Full URLs are tolerated: the host part is extracted first. Ports and
// paths are discarded. Returns "" when no host can be recovered.
func Normalize(raw string) string {
	s := strings.TrimSpace(strings.ToLower(raw))
	if s == "" {
		return ""
	}

	if strings.Contains(s, "://") {
		if u, err := url.Parse(s); err == nil && u.Hostname() != "" {
			s = u.Hostname()
		}
	}

	// bare host possibly carrying a path or port
	if i := strings.IndexAny(s, "/?#"); i >= 0 {
		s = s[:i]
	}
	if h, _, ok := strings.Cut(s, ":"); ok {
		s = h
	}

	s = strings.TrimPrefix(s, "www.")
	return s
}
