package httpx

import (
	"net/http"
	"net/url"
	"sync"
)

// Identity is the client-facing fingerprint used for one request: the
// User-Agent header and an optional proxy to route through.
type Identity struct {
	UserAgent string
	Proxy     *url.URL
}

// IdentityPolicy supplies the identity for each outgoing request. Rotation
// and any other evasion behavior live behind this interface so the transport
// chain stays policy-free and tests can pin a static identity.
type IdentityPolicy interface {
	Next() Identity
}

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// StaticIdentity always returns the same identity. The zero value uses the
// default desktop User-Agent and no proxy.
type StaticIdentity struct {
	Identity Identity
}

func (s StaticIdentity) Next() Identity {
	id := s.Identity
	if id.UserAgent == "" {
		id.UserAgent = defaultUserAgent
	}
	return id
}

// RotatingIdentity cycles through user agents and proxies round-robin,
// advancing once per request. Single-writer: the pipeline is sequential, the
// mutex only guards against a future concurrent caller.
type RotatingIdentity struct {
	UserAgents []string
	Proxies    []*url.URL

	mu sync.Mutex
	n  int
}

func (r *RotatingIdentity) Next() Identity {
	r.mu.Lock()
	n := r.n
	r.n++
	r.mu.Unlock()

	id := Identity{UserAgent: defaultUserAgent}
	if len(r.UserAgents) > 0 {
		id.UserAgent = r.UserAgents[n%len(r.UserAgents)]
	}
	if len(r.Proxies) > 0 {
		id.Proxy = r.Proxies[n%len(r.Proxies)]
	}
	return id
}

// identityTransport stamps request headers from the policy before delegating.
// Headers already set by the caller are left alone.
type identityTransport struct {
	base   http.RoundTripper
	policy IdentityPolicy
}

func (t *identityTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	id := t.policy.Next()
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", id.UserAgent)
	}
	if req.Header.Get("Accept-Language") == "" {
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "*/*")
	}
	base := t.base
	if id.Proxy != nil {
		base = transportWithProxy(id.Proxy)
	}
	return base.RoundTrip(req)
}
