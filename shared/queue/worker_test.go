package queue

import (
	"testing"
	"time"
)

func TestBackoff(t *testing.T) {
	w := NewWorker(nil, 1, 5)

	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 30 * time.Second},
		{1, time.Minute},
		{2, 2 * time.Minute},
		{3, 4 * time.Minute},
		{4, 8 * time.Minute},
		{5, 10 * time.Minute},
		{20, 10 * time.Minute},
	}
	for _, c := range cases {
		if got := w.Backoff(c.attempt); got != c.want {
			t.Fatalf("attempt %d: expected %s, got %s", c.attempt, c.want, got)
		}
	}
}

func TestNewWorkerClamps(t *testing.T) {
	w := NewWorker(nil, 0, 0)
	if w.concurrency != 1 {
		t.Fatalf("expected concurrency floor of 1, got %d", w.concurrency)
	}
	if w.maxAttempts != 1 {
		t.Fatalf("expected attempt floor of 1, got %d", w.maxAttempts)
	}
}
