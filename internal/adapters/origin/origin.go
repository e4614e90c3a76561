// Package origin decides which browser origins may reach the API and the
// websocket endpoint.
package origin

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"
)

// Policy is an allow-list of scheme://host origins. "*" allows any origin.
type Policy struct {
	allowAll bool
	allowed  map[string]struct{}
}

func NewPolicy(origins []string) *Policy {
	p := &Policy{allowed: make(map[string]struct{}, len(origins))}
	for _, o := range origins {
		trimmed := strings.TrimSpace(o)
		if trimmed == "" {
			continue
		}
		if trimmed == "*" {
			p.allowAll = true
			continue
		}
		n, ok := normalize(trimmed)
		if !ok {
			log.Warn().Str("module", "adapters.origin").Str("origin", o).Msg("ignoring invalid origin")
			continue
		}
		p.allowed[n] = struct{}{}
	}
	return p
}

func normalize(origin string) (string, bool) {
	u, err := url.Parse(origin)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", false
	}
	return strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host), true
}

// Allowed reports whether a cross-origin browser request from origin is
// permitted.
func (p *Policy) Allowed(origin string) bool {
	if p.allowAll {
		return true
	}
	n, ok := normalize(origin)
	if !ok {
		return false
	}
	_, ok = p.allowed[n]
	return ok
}

// CheckOrigin is a websocket.Upgrader hook. Non-browser clients send no
// Origin and same-origin pages are always accepted.
func (p *Policy) CheckOrigin(r *http.Request) bool {
	h := r.Header.Get("Origin")
	if h == "" {
		return true
	}
	if u, err := url.Parse(h); err == nil && strings.EqualFold(u.Host, r.Host) {
		return true
	}
	if p.Allowed(h) {
		return true
	}
	log.Warn().Str("module", "adapters.origin").Str("origin", h).Msg("blocked websocket from disallowed origin")
	return false
}
