package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type mockSweeper struct {
	calls    atomic.Int64
	sweepErr error
}

func (m *mockSweeper) SweepExpiredPending(ctx context.Context) (int, error) {
	m.calls.Add(1)
	if m.sweepErr != nil {
		return 0, m.sweepErr
	}
	return 1, nil
}

func TestNewPaymentSweeper_Interval(t *testing.T) {
	tests := []struct {
		name    string
		timeout time.Duration
		want    time.Duration
	}{
		{"quarter of the timeout", 30 * time.Minute, 7*time.Minute + 30*time.Second},
		{"floored at one minute", 2 * time.Minute, time.Minute},
		{"hourly timeout", 4 * time.Hour, time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewPaymentSweeper(&mockSweeper{}, tt.timeout)
			if s.interval != tt.want {
				t.Errorf("interval: got %v, want %v", s.interval, tt.want)
			}
		})
	}
}

func TestPaymentSweeper_RunsUntilCancelled(t *testing.T) {
	svc := &mockSweeper{}
	s := &PaymentSweeper{svc: svc, interval: 5 * time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("sweeper did not stop after cancel")
	}

	if got := svc.calls.Load(); got < 2 {
		t.Errorf("expected at least 2 sweeps, got %d", got)
	}
}

func TestPaymentSweeper_KeepsRunningAfterError(t *testing.T) {
	svc := &mockSweeper{sweepErr: errors.New("connection refused")}
	s := &PaymentSweeper{svc: svc, interval: 5 * time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Start(ctx)

	time.Sleep(30 * time.Millisecond)
	cancel()

	if got := svc.calls.Load(); got < 2 {
		t.Errorf("a failing sweep must not stop the loop, got %d calls", got)
	}
}
