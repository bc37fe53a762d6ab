package limiter

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/time/rate"
)

func TestGetLimiterReusesBucketPerIP(t *testing.T) {
	l := NewIPRateLimiter(rate.Limit(1), 2)

	first := l.GetLimiter("10.0.0.1")
	second := l.GetLimiter("10.0.0.1")
	if first != second {
		t.Fatal("same IP must map to the same bucket")
	}

	other := l.GetLimiter("10.0.0.2")
	if first == other {
		t.Fatal("different IPs must not share a bucket")
	}
}

func TestMiddlewareRejectsOverBurst(t *testing.T) {
	l := NewIPRateLimiter(rate.Limit(0.001), 2)

	handler := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	statuses := make([]int, 0, 3)
	for range 3 {
		r := httptest.NewRequest("GET", "/", nil)
		r.RemoteAddr = "10.0.0.3:12345"
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, r)
		statuses = append(statuses, w.Code)
	}

	if statuses[0] != http.StatusNoContent || statuses[1] != http.StatusNoContent {
		t.Fatalf("got statuses %v, want the burst admitted", statuses)
	}
	if statuses[2] != http.StatusTooManyRequests {
		t.Fatalf("got status %d for the third request, want 429", statuses[2])
	}
}

func TestClientIP(t *testing.T) {
	cases := []struct {
		remoteAddr string
		want       string
	}{
		{"10.0.0.1:8080", "10.0.0.1"},
		{"10.0.0.1", "10.0.0.1"},
		{"", "unknown_ip"},
	}

	for _, tc := range cases {
		r := httptest.NewRequest("GET", "/", nil)
		r.RemoteAddr = tc.remoteAddr

		if got := ClientIP(r); got != tc.want {
			t.Errorf("ClientIP(%q) = %q, want %q", tc.remoteAddr, got, tc.want)
		}
	}
}
