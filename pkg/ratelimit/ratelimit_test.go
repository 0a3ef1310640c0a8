package ratelimit

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
)

func TestFailureLimiterBlocksAfterMaxAttempts(t *testing.T) {
	clk := clock.NewMock()
	rl := NewFailureLimiterWithClock(clk, 3, time.Minute)
	defer rl.Close()

	for i := 0; i < 3; i++ {
		if rl.Blocked("10.0.0.1") {
			t.Fatalf("blocked after %d failures", i)
		}
		rl.Fail("10.0.0.1")
	}
	if !rl.Blocked("10.0.0.1") {
		t.Fatal("not blocked after 3 failures")
	}
	if rl.Blocked("10.0.0.2") {
		t.Error("other IP blocked")
	}
	if s := rl.RetryAfterSeconds("10.0.0.1"); s != 61 {
		t.Errorf("RetryAfterSeconds = %d, want 61", s)
	}

	clk.Add(time.Minute + time.Second)
	if rl.Blocked("10.0.0.1") {
		t.Error("still blocked after the window")
	}
}

func TestFailureLimiterReset(t *testing.T) {
	rl := NewFailureLimiterWithClock(clock.NewMock(), 1, time.Minute)
	defer rl.Close()

	rl.Fail("ip")
	if !rl.Blocked("ip") {
		t.Fatal("not blocked")
	}
	rl.Reset("ip")
	if rl.Blocked("ip") {
		t.Error("blocked after Reset")
	}
}

func TestExtractIP(t *testing.T) {
	tests := []struct {
		name   string
		header map[string]string
		remote string
		want   string
	}{
		{"forwarded", map[string]string{"X-Forwarded-For": "1.1.1.1, 2.2.2.2"}, "9.9.9.9:1", "1.1.1.1"},
		{"real ip", map[string]string{"X-Real-IP": "3.3.3.3"}, "9.9.9.9:1", "3.3.3.3"},
		{"remote", nil, "127.0.0.1:5050", "127.0.0.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.header {
				r.Header.Set(k, v)
			}
			if got := ExtractIP(r); got != tt.want {
				t.Errorf("ExtractIP = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatRetryMessage(t *testing.T) {
	if got := FormatRetryMessage(120); got != "2 minute(s)" {
		t.Errorf("got %q", got)
	}
	if got := FormatRetryMessage(45); got != "45 second(s)" {
		t.Errorf("got %q", got)
	}
}
