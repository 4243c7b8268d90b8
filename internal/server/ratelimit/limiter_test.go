package ratelimit

import (
	"net/http/httptest"
	"testing"
	"time"
)

func TestLimiterBurstThenDeny(t *testing.T) {
	l := NewLimiter(10, time.Minute, 3)
	defer l.Close()

	for i := range 3 {
		if res := l.Allow("ip:203.0.113.7"); !res.Allowed {
			t.Fatalf("request %d denied within burst", i)
		}
	}
	res := l.Allow("ip:203.0.113.7")
	if res.Allowed {
		t.Fatal("request beyond burst allowed")
	}
	if res.RetryAfter <= 0 {
		t.Errorf("RetryAfter = %v, want positive", res.RetryAfter)
	}
}

func TestLimiterKeysAreIndependent(t *testing.T) {
	l := NewLimiter(10, time.Minute, 1)
	defer l.Close()

	if !l.Allow("ip:a").Allowed {
		t.Fatal("first request for a denied")
	}
	if l.Allow("ip:a").Allowed {
		t.Fatal("second request for a allowed")
	}
	if !l.Allow("ip:b").Allowed {
		t.Error("b throttled by a's bucket")
	}
}

func TestWriteHeaders(t *testing.T) {
	w := httptest.NewRecorder()
	WriteHeaders(w, Result{Allowed: false, Limit: 10, Remaining: 0, RetryAfter: 6 * time.Second})
	if w.Header().Get("X-RateLimit-Limit") != "10" {
		t.Errorf("X-RateLimit-Limit = %q", w.Header().Get("X-RateLimit-Limit"))
	}
	if w.Header().Get("Retry-After") != "6" {
		t.Errorf("Retry-After = %q", w.Header().Get("Retry-After"))
	}

	w = httptest.NewRecorder()
	WriteHeaders(w, Result{Allowed: true, Limit: 10, Remaining: 9})
	if w.Header().Get("Retry-After") != "" {
		t.Error("Retry-After set on allowed request")
	}
}
