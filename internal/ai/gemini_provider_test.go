package ai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"google.golang.org/api/googleapi"
)

func TestIsRetryable(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"rate limited", &googleapi.Error{Code: 429}, true},
		{"internal server error", &googleapi.Error{Code: 500}, true},
		{"bad gateway", &googleapi.Error{Code: 502}, true},
		{"service unavailable", &googleapi.Error{Code: 503}, true},
		{"gateway timeout", &googleapi.Error{Code: 504}, true},
		{"bad request", &googleapi.Error{Code: 400}, false},
		{"unauthorized", &googleapi.Error{Code: 401}, false},
		{"not found", &googleapi.Error{Code: 404}, false},
		{
			"wrapped api error",
			fmt.Errorf("generate: %w", &googleapi.Error{Code: 503}),
			true,
		},
		{"dns timeout", &net.DNSError{IsTimeout: true}, true},
		{"plain error", errors.New("schema mismatch"), false},
		{"nil error", nil, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := isRetryable(tc.err); got != tc.want {
				t.Errorf("isRetryable(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestRetryDelayDoublesWithJitter(t *testing.T) {
	for attempt, base := range map[int]time.Duration{
		1: time.Second,
		2: 2 * time.Second,
		3: 4 * time.Second,
		4: 8 * time.Second,
	} {
		delay := retryDelay(attempt)
		if delay < base || delay >= base+base/10 {
			t.Errorf("retryDelay(%d) = %v, want [%v, %v)", attempt, delay, base, base+base/10)
		}
	}
}

func TestRetryDelayCapped(t *testing.T) {
	for _, attempt := range []int{6, 10, 30} {
		if delay := retryDelay(attempt); delay != 30*time.Second {
			t.Errorf("retryDelay(%d) = %v, want the 30s cap", attempt, delay)
		}
	}
}

func TestWaitBeforeRetryHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := waitBeforeRetry(ctx, 5)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("cancelled wait took %v, should return immediately", elapsed)
	}
}
