package httpx

import (
	"net/http"
	"sync/atomic"
	"testing"
	"time"
)

type roundTripFunc func(req *http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func TestRetryTransportNoRetryOnSuccess(t *testing.T) {
	var calls int32
	transport := NewRetryTransport(roundTripFunc(func(req *http.Request) (*http.Response, error) {
		atomic.AddInt32(&calls, 1)
		return &http.Response{StatusCode: 200, Body: http.NoBody}, nil
	}), DefaultRetryConfig)

	req, _ := http.NewRequest("GET", "https://example.com", nil)
	resp, err := transport.RoundTrip(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if c := atomic.LoadInt32(&calls); c != 1 {
		t.Fatalf("expected 1 call, got %d", c)
	}
}

func TestRetryTransportRetriesOn5xx(t *testing.T) {
	var calls int32
	transport := NewRetryTransport(roundTripFunc(func(req *http.Request) (*http.Response, error) {
		n := atomic.AddInt32(&calls, 1)
		if n <= 2 {
			return &http.Response{StatusCode: 502, Body: http.NoBody}, nil
		}
		return &http.Response{StatusCode: 200, Body: http.NoBody}, nil
	}), RetryConfig{MaxRetries: 3, InitialDelay: time.Millisecond, MaxDelay: 10 * time.Millisecond})

	req, _ := http.NewRequest("GET", "https://example.com", nil)
	resp, err := transport.RoundTrip(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if c := atomic.LoadInt32(&calls); c != 3 {
		t.Fatalf("expected 3 calls, got %d", c)
	}
}

func TestRetryTransportNoRetryOn403(t *testing.T) {
	var calls int32
	transport := NewRetryTransport(roundTripFunc(func(req *http.Request) (*http.Response, error) {
		atomic.AddInt32(&calls, 1)
		return &http.Response{StatusCode: 403, Body: http.NoBody}, nil
	}), RetryConfig{MaxRetries: 3, InitialDelay: time.Millisecond, MaxDelay: 10 * time.Millisecond})

	req, _ := http.NewRequest("GET", "https://example.com", nil)
	resp, err := transport.RoundTrip(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != 403 {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
	if c := atomic.LoadInt32(&calls); c != 1 {
		t.Fatalf("expected 1 call, got %d", c)
	}
}

type closeTrackingBody struct {
	closed bool
}

func (b *closeTrackingBody) Read([]byte) (int, error) { return 0, nil }
func (b *closeTrackingBody) Close() error             { b.closed = true; return nil }

func TestRetryTransportClosesStashedBody(t *testing.T) {
	stashed := &closeTrackingBody{}
	var calls int32
	transport := NewRetryTransport(roundTripFunc(func(req *http.Request) (*http.Response, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return &http.Response{StatusCode: 503, Body: stashed}, nil
		}
		return &http.Response{StatusCode: 200, Body: http.NoBody}, nil
	}), RetryConfig{MaxRetries: 3, InitialDelay: time.Millisecond, MaxDelay: 10 * time.Millisecond})

	req, _ := http.NewRequest("GET", "https://example.com", nil)
	resp, err := transport.RoundTrip(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if !stashed.closed {
		t.Fatal("expected the superseded 503 body to be closed")
	}
}

func TestRetryTransportFixedDelay(t *testing.T) {
	rt := &retryTransport{config: RetryConfig{InitialDelay: 250 * time.Millisecond, Fixed: true}}
	for attempt := 1; attempt <= 4; attempt++ {
		if d := rt.backoffDelay(attempt); d != 250*time.Millisecond {
			t.Fatalf("attempt %d: expected fixed 250ms, got %v", attempt, d)
		}
	}
}

func TestStaticIdentityDefaults(t *testing.T) {
	id := StaticIdentity{}.Next()
	if id.UserAgent == "" {
		t.Fatal("expected a default user agent")
	}
	if id.Proxy != nil {
		t.Fatal("expected no proxy")
	}
}

func TestRotatingIdentityCycles(t *testing.T) {
	r := &RotatingIdentity{UserAgents: []string{"ua-a", "ua-b", "ua-c"}}
	got := []string{r.Next().UserAgent, r.Next().UserAgent, r.Next().UserAgent, r.Next().UserAgent}
	want := []string{"ua-a", "ua-b", "ua-c", "ua-a"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("rotation %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestIdentityTransportPreservesCallerHeaders(t *testing.T) {
	var seen string
	tr := &identityTransport{
		base: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			seen = req.Header.Get("User-Agent")
			return &http.Response{StatusCode: 200, Body: http.NoBody}, nil
		}),
		policy: StaticIdentity{Identity: Identity{UserAgent: "policy-ua"}},
	}

	req, _ := http.NewRequest("GET", "https://example.com", nil)
	req.Header.Set("User-Agent", "caller-ua")
	if _, err := tr.RoundTrip(req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seen != "caller-ua" {
		t.Fatalf("expected caller header kept, got %q", seen)
	}

	req, _ = http.NewRequest("GET", "https://example.com", nil)
	if _, err := tr.RoundTrip(req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seen != "policy-ua" {
		t.Fatalf("expected policy header, got %q", seen)
	}
}
