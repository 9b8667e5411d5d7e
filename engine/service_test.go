package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/rushteam/hybridrec/config"
	"github.com/rushteam/hybridrec/core"
)

type mockRetrainer struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (m *mockRetrainer) RetrainPending(context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.err == nil, m.err
}

func (m *mockRetrainer) getCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func TestRetrainService_String(t *testing.T) {
	service := NewRetrainService(&mockRetrainer{}, time.Hour, zerolog.Nop())
	if got := service.String(); got != "retrain-service" {
		t.Errorf("String() = %q, want %q", got, "retrain-service")
	}
}

func TestRetrainService_Serve(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"success", nil},
		{"errors keep the loop running", errors.New("boom")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			retrainer := &mockRetrainer{err: tt.err}
			service := NewRetrainService(retrainer, 10*time.Millisecond, zerolog.Nop())

			ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
			defer cancel()

			err := service.Serve(ctx)
			if !errors.Is(err, context.DeadlineExceeded) {
				t.Errorf("Serve() = %v, want context.DeadlineExceeded", err)
			}
			if got := retrainer.getCalls(); got < 2 {
				t.Errorf("RetrainPending() called %d times, want at least 2", got)
			}
		})
	}
}

func TestRetrainService_DefaultInterval(t *testing.T) {
	service := NewRetrainService(&mockRetrainer{}, 0, zerolog.Nop())
	if service.interval != time.Minute {
		t.Errorf("interval = %v, want 1m", service.interval)
	}
}

func TestSupervisor_IntervalPolicy(t *testing.T) {
	e := newTestEngine(t, func(s *config.Settings) {
		s.Retrain.Policy = config.RetrainInterval
		s.Retrain.Interval = 10 * time.Millisecond
	})
	mustLog(t, e, event(0, 1, core.ActionClick), event(1, 2, core.ActionClick))
	if e.Pending() != 2 {
		t.Fatalf("Pending = %d, want 2", e.Pending())
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := e.Supervisor().ServeBackground(ctx)

	deadline := time.Now().Add(5 * time.Second)
	for e.Pending() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("interval retrain did not run")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if e.Snapshot().Model == nil {
		t.Error("no model after interval retrain")
	}

	cancel()
	<-done
}
