package genai

import (
	"context"
	"testing"
	"time"
)

func TestCalculateBackoff(t *testing.T) {
	tests := []struct {
		name        string
		attempt     int
		initial     time.Duration
		max         time.Duration
		maxExpected time.Duration
	}{
		{"zero attempt", 0, time.Second, 10 * time.Second, 0},
		{"negative attempt", -1, time.Second, 10 * time.Second, 0},
		{"first retry", 1, time.Second, 10 * time.Second, time.Second},
		{"second retry", 2, time.Second, 10 * time.Second, 2 * time.Second},
		{"capped", 10, time.Second, 5 * time.Second, 5 * time.Second},
		{"large attempt does not overflow", 80, 200 * time.Millisecond, time.Second, time.Second},
		{"zero initial", 3, 0, time.Second, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for range 20 {
				got := CalculateBackoff(tt.attempt, tt.initial, tt.max)
				if got < 0 || got > tt.maxExpected || (tt.maxExpected > 0 && got == tt.maxExpected) {
					t.Errorf("CalculateBackoff(%d) = %v, want within [0, %v)", tt.attempt, got, tt.maxExpected)
				}
			}
		})
	}
}

func TestSleep(t *testing.T) {
	t.Run("zero returns immediately", func(t *testing.T) {
		if err := Sleep(context.Background(), 0); err != nil {
			t.Errorf("Sleep(0) error = %v", err)
		}
	})

	t.Run("canceled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if err := Sleep(ctx, time.Minute); err == nil {
			t.Error("Sleep() with canceled context should return an error")
		}
	})
}

func TestHasSufficientBudget(t *testing.T) {
	if !HasSufficientBudget(context.Background(), time.Hour) {
		t.Error("no deadline should always have budget")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if HasSufficientBudget(ctx, time.Second) {
		t.Error("50ms deadline should not cover 1s")
	}
	if !HasSufficientBudget(ctx, time.Millisecond) {
		t.Error("50ms deadline should cover 1ms")
	}
}
