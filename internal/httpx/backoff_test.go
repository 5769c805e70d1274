package httpx

import (
	"testing"
	"time"
)

func TestBackoffForAttempt(t *testing.T) {
	b := NewBackoff(100*time.Millisecond, time.Second, 0)
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{attempt: -1, want: 100 * time.Millisecond},
		{attempt: 0, want: 100 * time.Millisecond},
		{attempt: 1, want: 200 * time.Millisecond},
		{attempt: 3, want: 800 * time.Millisecond},
		{attempt: 4, want: time.Second},
		{attempt: 64, want: time.Second},
	}
	for _, tc := range tests {
		if got := b.ForAttempt(tc.attempt); got != tc.want {
			t.Fatalf("attempt %d: expected %v, got %v", tc.attempt, tc.want, got)
		}
	}
}

func TestBackoffJitterBounds(t *testing.T) {
	b := NewBackoff(100*time.Millisecond, time.Second, 0.5)
	b.rand = func() float64 { return 0 }
	if got := b.ForAttempt(0); got != 50*time.Millisecond {
		t.Fatalf("expected lower bound 50ms, got %v", got)
	}
	b.rand = func() float64 { return 0.999999 }
	if got := b.ForAttempt(0); got < 149*time.Millisecond || got > 150*time.Millisecond {
		t.Fatalf("expected upper bound near 150ms, got %v", got)
	}
}
