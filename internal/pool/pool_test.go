package pool

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestTryAcquireRejectsWhenSaturated(t *testing.T) {
	p := New(1)
	if err := p.TryAcquire(); err != nil {
		t.Fatalf("first TryAcquire: %v", err)
	}
	if err := p.TryAcquire(); !errors.Is(err, ErrRejected) {
		t.Fatalf("expected ErrRejected, got %v", err)
	}
	p.Release()
	if err := p.TryAcquire(); err != nil {
		t.Fatalf("TryAcquire after release: %v", err)
	}
}

func TestDefaultSizeIsEight(t *testing.T) {
	p := New(0)
	if p.Size() != 8 {
		t.Fatalf("Size() = %d, want 8", p.Size())
	}
}

func TestShutdownWaitsForReleases(t *testing.T) {
	p := New(2)
	_ = p.TryAcquire()
	_ = p.TryAcquire()

	go func() {
		time.Sleep(20 * time.Millisecond)
		p.Release()
		p.Release()
	}()

	ctx := context.Background()
	if err := p.Shutdown(ctx, 500*time.Millisecond); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
}

func TestShutdownTimesOut(t *testing.T) {
	p := New(1)
	_ = p.TryAcquire()

	ctx := context.Background()
	if err := p.Shutdown(ctx, 30*time.Millisecond); err == nil {
		t.Fatal("expected Shutdown to time out while a permit is held")
	}
}

func TestTryAcquireRejectsAfterShutdown(t *testing.T) {
	p := New(4)
	_ = p.Shutdown(context.Background(), time.Millisecond)
	if err := p.TryAcquire(); !errors.Is(err, ErrRejected) {
		t.Fatalf("expected ErrRejected after shutdown, got %v", err)
	}
}
