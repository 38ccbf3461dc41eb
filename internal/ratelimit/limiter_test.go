package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestHashIP(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		ip   string
	}{
		{"IPv4", "192.168.1.1"},
		{"IPv6 localhost", "::1"},
		{"empty", ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			hash := hashIP(tt.ip)
			if len(hash) != 16 {
				t.Errorf("hashIP(%q) length = %d, want 16", tt.ip, len(hash))
			}
			if hash != hashIP(tt.ip) {
				t.Errorf("hashIP(%q) is not deterministic", tt.ip)
			}
		})
	}

	if hashIP("10.0.0.1") == hashIP("10.0.0.2") {
		t.Error("different IPs should produce different hashes")
	}
}

func TestResultFromScript(t *testing.T) {
	t.Parallel()

	denied := resultFromScript([]int64{0, 3, 0}, 1)
	if denied.Allowed {
		t.Error("expected denied result")
	}
	if denied.RetryAfter != 3*time.Second {
		t.Errorf("RetryAfter = %v, want 3s", denied.RetryAfter)
	}

	allowed := resultFromScript([]int64{1, 0, 7}, 2)
	if !allowed.Allowed || allowed.Remaining != 7 {
		t.Errorf("unexpected result: %+v", allowed)
	}

	short := resultFromScript([]int64{0}, 1)
	if !short.Allowed {
		t.Error("malformed script output should fail open")
	}
}

func TestUnlimitedRates(t *testing.T) {
	t.Parallel()

	// A nil client is never touched when the rate is zero.
	l := NewFromClient(nil, nil)

	res, err := l.CheckCaller(context.Background(), "user-1", 0, 5)
	if err != nil || !res.Allowed || res.Remaining != 5 {
		t.Fatalf("CheckCaller unlimited = %+v, %v", res, err)
	}

	res, err = l.CheckIP(context.Background(), "127.0.0.1", 0, 3)
	if err != nil || !res.Allowed || res.Remaining != 3 {
		t.Fatalf("CheckIP unlimited = %+v, %v", res, err)
	}
}
