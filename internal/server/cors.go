package server

import (
	"net/http"
	"net/url"
	"strings"
)

// originPolicy is the set of browser origins allowed to call the server
// cross-origin. "*" admits any origin, but never with credentials.
type originPolicy struct {
	any    bool
	listed map[string]struct{}
}

func newOriginPolicy(origins []string) originPolicy {
	p := originPolicy{listed: make(map[string]struct{}, len(origins))}
	for _, o := range origins {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		switch o {
		case "":
		case "*":
			p.any = true
		default:
			p.listed[strings.ToLower(o)] = struct{}{}
		}
	}
	return p
}

func (p originPolicy) isListed(origin string) bool {
	_, ok := p.listed[strings.ToLower(origin)]
	return ok
}

// CORS answers preflights and sets CORS headers for allowed origins only.
// Requests from other origins pass through without CORS headers, so
// browsers keep them same-origin.
func CORS(allowed []string, next http.Handler) http.Handler {
	policy := newOriginPolicy(allowed)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := strings.TrimSpace(r.Header.Get("Origin"))
		if origin == "" {
			next.ServeHTTP(w, r)
			return
		}
		w.Header().Add("Vary", "Origin")
		ok := true
		switch {
		case policy.isListed(origin):
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
		case policy.any:
			w.Header().Set("Access-Control-Allow-Origin", "*")
		default:
			ok = false
		}
		if ok {
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length")
			w.Header().Set("Access-Control-Expose-Headers", "Content-Disposition")
		}
		if r.Method == http.MethodOptions {
			if !ok {
				http.Error(w, "origin not allowed", http.StatusForbidden)
				return
			}
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// checkOrigin admits websocket upgrades from the page's own host and from
// listed origins. The socket carries the session cookie, so "*" does not
// apply here.
func (p originPolicy) checkOrigin(r *http.Request) bool {
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if strings.EqualFold(u.Host, r.Host) {
		return true
	}
	return p.isListed(strings.TrimRight(origin, "/"))
}
