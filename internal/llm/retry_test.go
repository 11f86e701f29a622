package llm

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"
)

type fakeClock struct {
	sleeps []time.Duration
}

func (f *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.sleeps = append(f.sleeps, d)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(nopWriter{}, nil))
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }

func policyWithClock(c Clock) RetryPolicy {
	return RetryPolicy{
		MaxRetries:     3,
		ErrorDelay:     5 * time.Second,
		RateLimitDelay: 1 * time.Second,
		Clock:          c,
	}
}

func TestRetry_SuccessPacesOnce(t *testing.T) {
	clock := &fakeClock{}
	p := policyWithClock(clock)

	calls := 0
	err := p.Do(context.Background(), testLogger(), func(attempt int) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	// One global pacing wait follows the successful call.
	if len(clock.sleeps) != 1 || clock.sleeps[0] != time.Second {
		t.Errorf("sleeps = %v, want [1s]", clock.sleeps)
	}
}

func TestRetry_TransientRetriesWithErrorDelay(t *testing.T) {
	clock := &fakeClock{}
	p := policyWithClock(clock)

	calls := 0
	transient := TransientError(errors.New("rate limited"))
	err := p.Do(context.Background(), testLogger(), func(attempt int) error {
		calls++
		if calls < 3 {
			return transient
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	want := []time.Duration{time.Second, 5 * time.Second, time.Second, 5 * time.Second, time.Second}
	if len(clock.sleeps) != len(want) {
		t.Fatalf("sleeps = %v, want %v", clock.sleeps, want)
	}
	for i := range want {
		if clock.sleeps[i] != want[i] {
			t.Fatalf("sleep[%d] = %v, want %v", i, clock.sleeps[i], want[i])
		}
	}
}

func TestRetry_ExhaustedReturnsLastError(t *testing.T) {
	clock := &fakeClock{}
	p := policyWithClock(clock)

	calls := 0
	transient := TransientError(errors.New("server error"))
	err := p.Do(context.Background(), testLogger(), func(attempt int) error {
		calls++
		return transient
	})
	if !errors.Is(err, transient.Err) && err != transient {
		t.Fatalf("err = %v, want the transient error", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want MaxRetries", calls)
	}
}

func TestRetry_PermanentFailsImmediately(t *testing.T) {
	clock := &fakeClock{}
	p := policyWithClock(clock)

	calls := 0
	permanent := &ServiceError{StatusCode: 401, Transient: false, Err: errors.New("auth")}
	err := p.Do(context.Background(), testLogger(), func(attempt int) error {
		calls++
		return permanent
	})
	if err == nil || calls != 1 {
		t.Fatalf("calls = %d, err = %v; permanent errors must not retry", calls, err)
	}
	// Pacing still applies after the failed call.
	if len(clock.sleeps) != 1 {
		t.Errorf("sleeps = %v, want one pacing wait", clock.sleeps)
	}
}

func TestRetry_CancelledContextStopsRetrying(t *testing.T) {
	clock := &fakeClock{}
	p := policyWithClock(clock)

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := p.Do(ctx, testLogger(), func(attempt int) error {
		calls++
		cancel()
		return TransientError(errors.New("boom"))
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 after cancellation", calls)
	}
}

func TestClassifyStatus(t *testing.T) {
	cases := []struct {
		status    int
		transient bool
	}{
		{429, true}, {500, true}, {503, true}, {408, true},
		{400, false}, {401, false}, {404, false}, {422, false},
	}
	for _, tc := range cases {
		if got := ClassifyStatus(tc.status, errors.New("x")).Transient; got != tc.transient {
			t.Errorf("status %d: transient = %v, want %v", tc.status, got, tc.transient)
		}
	}
}

func TestIsTransient_UnclassifiedErrorsRetry(t *testing.T) {
	if !IsTransient(errors.New("connection reset")) {
		t.Fatal("network-level errors must be retryable")
	}
}
