package httpx

import (
	"net"
	"net/http"
	"net/url"
	"time"
)

var sharedTransport = &http.Transport{
	MaxIdleConns:        100,
	MaxIdleConnsPerHost: 10,
	DialContext: (&net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}).DialContext,
	TLSHandshakeTimeout:   10 * time.Second,
	ResponseHeaderTimeout: 15 * time.Second,
	IdleConnTimeout:       90 * time.Second,
}

// CloseIdleConnections releases pooled connections on the shared transport.
func CloseIdleConnections() {
	sharedTransport.CloseIdleConnections()
}

func transportWithProxy(proxy *url.URL) *http.Transport {
	t := sharedTransport.Clone()
	t.Proxy = http.ProxyURL(proxy)
	return t
}

// Config controls the composed client.
type Config struct {
	Timeout  time.Duration
	Retry    RetryConfig
	Identity IdentityPolicy
}

// New builds an *http.Client that stamps identity headers and retries
// transient failures. A nil identity policy pins the default User-Agent.
func New(cfg Config) *http.Client {
	policy := cfg.Identity
	if policy == nil {
		policy = StaticIdentity{}
	}
	retry := cfg.Retry
	if retry.MaxRetries == 0 && retry.InitialDelay == 0 {
		retry = DefaultRetryConfig
	}
	var transport http.RoundTripper = &identityTransport{
		base:   sharedTransport,
		policy: policy,
	}
	transport = NewRetryTransport(transport, retry)
	return &http.Client{
		Timeout:   cfg.Timeout,
		Transport: transport,
	}
}
