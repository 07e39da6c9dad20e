package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestLockAcquireRelease(t *testing.T) {
	dir := t.TempDir()

	l, err := Acquire(context.Background(), dir, time.Second)
	if err != nil {
		t.Fatalf("Acquire() error: %v", err)
	}
	if l.Path() == "" {
		t.Errorf("Path() is empty")
	}
	if err := l.Release(); err != nil {
		t.Fatalf("Release() error: %v", err)
	}

	// Releasing must make the lock available again
	l2, err := Acquire(context.Background(), dir, time.Second)
	if err != nil {
		t.Fatalf("Acquire() after release error: %v", err)
	}
	if err := l2.Release(); err != nil {
		t.Fatalf("Release() error: %v", err)
	}
}

func TestTryAcquireWhileHeld(t *testing.T) {
	dir := t.TempDir()

	held, err := TryAcquire(dir)
	if err != nil {
		t.Fatalf("TryAcquire() error: %v", err)
	}
	if held == nil {
		t.Fatalf("TryAcquire() returned nil lock on free directory")
	}
	defer held.Release()

	second, err := TryAcquire(dir)
	if err != nil {
		t.Fatalf("TryAcquire() while held error: %v", err)
	}
	if second != nil {
		second.Release()
		t.Fatalf("TryAcquire() succeeded while lock was held")
	}

	if err := held.Release(); err != nil {
		t.Fatalf("Release() error: %v", err)
	}
	third, err := TryAcquire(dir)
	if err != nil {
		t.Fatalf("TryAcquire() after release error: %v", err)
	}
	if third == nil {
		t.Fatalf("TryAcquire() failed after release")
	}
	third.Release()
}

func TestIsLocked(t *testing.T) {
	dir := t.TempDir()

	if IsLocked(dir) {
		t.Errorf("IsLocked() = true on free directory")
	}

	l, err := TryAcquire(dir)
	if err != nil || l == nil {
		t.Fatalf("TryAcquire() error: %v", err)
	}
	if !IsLocked(dir) {
		t.Errorf("IsLocked() = false while lock is held")
	}

	l.Release()
	if IsLocked(dir) {
		t.Errorf("IsLocked() = true after release")
	}
}

func TestReleaseIdempotent(t *testing.T) {
	dir := t.TempDir()

	l, err := TryAcquire(dir)
	if err != nil || l == nil {
		t.Fatalf("TryAcquire() error: %v", err)
	}
	if err := l.Release(); err != nil {
		t.Fatalf("first Release() error: %v", err)
	}
	if err := l.Release(); err != nil {
		t.Errorf("second Release() error: %v", err)
	}
}

func TestAcquireTimesOut(t *testing.T) {
	dir := t.TempDir()

	held, err := TryAcquire(dir)
	if err != nil || held == nil {
		t.Fatalf("TryAcquire() error: %v", err)
	}
	defer held.Release()

	start := time.Now()
	_, err = Acquire(context.Background(), dir, 300*time.Millisecond)
	if err == nil {
		t.Fatalf("Acquire() should time out while lock is held")
	}
	if elapsed := time.Since(start); elapsed < 200*time.Millisecond {
		t.Errorf("Acquire() gave up after %v, expected to wait close to the timeout", elapsed)
	}
	if !IsLocked(dir) {
		t.Errorf("original lock lost after competing Acquire() timed out")
	}
}

func TestAcquireContextCanceled(t *testing.T) {
	dir := t.TempDir()

	held, err := TryAcquire(dir)
	if err != nil || held == nil {
		t.Fatalf("TryAcquire() error: %v", err)
	}
	defer held.Release()

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	_, err = Acquire(ctx, dir, 5*time.Second)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Acquire() error = %v, expected context.Canceled", err)
	}
}

func TestAcquireWaitsForRelease(t *testing.T) {
	dir := t.TempDir()

	held, err := TryAcquire(dir)
	if err != nil || held == nil {
		t.Fatalf("TryAcquire() error: %v", err)
	}
	time.AfterFunc(250*time.Millisecond, func() { held.Release() })

	l, err := Acquire(context.Background(), dir, 2*time.Second)
	if err != nil {
		t.Fatalf("Acquire() should succeed once the holder releases: %v", err)
	}
	l.Release()
}
