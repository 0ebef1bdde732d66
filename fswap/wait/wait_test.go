// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package wait

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestTickerCompletes(t *testing.T) {
	tk := Ticker{Interval: time.Millisecond, MaxAttempts: 10}
	var tries int
	err := tk.Wait(context.Background(), func() TryDirective {
		tries++
		if tries == 3 {
			return DontTryAgain
		}
		return TryAgain
	})
	if err != nil {
		t.Fatalf("Wait error: %v", err)
	}
	if tries != 3 {
		t.Fatalf("expected 3 tries, got %d", tries)
	}
}

func TestTickerAttemptLimit(t *testing.T) {
	tk := Ticker{Interval: time.Millisecond, MaxAttempts: 5}
	var tries int
	err := tk.Wait(context.Background(), func() TryDirective {
		tries++
		return TryAgain
	})
	if !errors.Is(err, ErrAttemptLimit) {
		t.Fatalf("expected ErrAttemptLimit, got %v", err)
	}
	if tries != 5 {
		t.Fatalf("expected 5 tries, got %d", tries)
	}
}

func TestTickerCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	tk := Ticker{Interval: time.Hour, MaxAttempts: 2}
	done := make(chan error, 1)
	go func() {
		done <- tk.Wait(ctx, func() TryDirective { return TryAgain })
	}()
	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Wait did not return after cancellation")
	}
}

func TestTickerZeroAttemptsMeansOne(t *testing.T) {
	var tries int
	err := Ticker{Interval: time.Millisecond}.Wait(context.Background(), func() TryDirective {
		tries++
		return TryAgain
	})
	if !errors.Is(err, ErrAttemptLimit) || tries != 1 {
		t.Fatalf("tries = %d, err = %v", tries, err)
	}
}
