package pacer

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestGovernorUsesInjectedSleep(t *testing.T) {
	var got []time.Duration
	sleep := func(ctx context.Context, d time.Duration) error {
		got = append(got, d)
		return nil
	}

	g := New(10*time.Second, 60*time.Second, time.Second, 120*time.Second, sleep)

	ctx := context.Background()
	if err := g.AwaitPoll(ctx); err != nil {
		t.Fatalf("AwaitPoll error: %v", err)
	}
	if err := g.AwaitNextWindow(ctx); err != nil {
		t.Fatalf("AwaitNextWindow error: %v", err)
	}
	if err := g.AwaitNextBatch(ctx); err != nil {
		t.Fatalf("AwaitNextBatch error: %v", err)
	}
	if err := g.AwaitCooldown(ctx); err != nil {
		t.Fatalf("AwaitCooldown error: %v", err)
	}

	want := []time.Duration{10 * time.Second, 60 * time.Second, time.Second, 120 * time.Second}
	if len(got) != len(want) {
		t.Fatalf("sleeps = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sleep %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestDefaultWaitCancelled(t *testing.T) {
	g := New(time.Hour, time.Hour, time.Hour, time.Hour, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := g.AwaitPoll(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestDefaultWaitZeroDelay(t *testing.T) {
	g := New(0, 0, 0, 0, nil)

	if err := g.AwaitNextWindow(context.Background()); err != nil {
		t.Fatalf("AwaitNextWindow error: %v", err)
	}
}
