package joblock

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestAcquireAndRelease(t *testing.T) {
	dir := t.TempDir()
	lock := New(dir, "daily")

	if !lock.Acquire() {
		t.Fatal("first acquire must succeed")
	}
	if !lock.IsLocked() {
		t.Fatal("lock file must report locked")
	}

	second := New(dir, "daily")
	if second.Acquire() {
		t.Fatal("second acquire of a live lock must fail")
	}

	lock.Release()
	if lock.IsLocked() {
		t.Fatal("released lock must not report locked")
	}
	if !second.Acquire() {
		t.Fatal("acquire after release must succeed")
	}
	second.Release()
}

func TestDifferentJobsDoNotContend(t *testing.T) {
	dir := t.TempDir()
	daily := New(dir, "daily")
	weekly := New(dir, "weekly")

	if !daily.Acquire() {
		t.Fatal("daily acquire failed")
	}
	defer daily.Release()

	if !weekly.Acquire() {
		t.Fatal("weekly must not be blocked by daily")
	}
	weekly.Release()
}

func TestStaleLockIsOverridden(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "daily.lock")

	stale, _ := json.Marshal(lockData{
		Timestamp: time.Now().Add(-Staleness - time.Minute).UnixMilli(),
		PID:       12345,
		LockName:  "daily",
	})
	if err := os.WriteFile(path, stale, 0o644); err != nil {
		t.Fatalf("write stale lock: %v", err)
	}

	lock := New(dir, "daily")
	if lock.IsLocked() {
		t.Fatal("stale lock must not report locked")
	}
	if !lock.Acquire() {
		t.Fatal("stale lock must be overridden")
	}
	lock.Release()
}

func TestCorruptLockFileIsOverridden(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "daily.lock")
	if err := os.WriteFile(path, []byte("not json"), 0o644); err != nil {
		t.Fatalf("write corrupt lock: %v", err)
	}

	lock := New(dir, "daily")
	if !lock.Acquire() {
		t.Fatal("corrupt lock must be overridden")
	}
	lock.Release()
}

func TestWithLockRunsAndReleases(t *testing.T) {
	dir := t.TempDir()

	ran := false
	if err := WithLock(dir, "daily", func() error {
		ran = true
		if !New(dir, "daily").IsLocked() {
			t.Error("lock must be held while fn runs")
		}
		return nil
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ran {
		t.Fatal("fn was not run")
	}
	if New(dir, "daily").IsLocked() {
		t.Fatal("lock must be released after fn returns")
	}
}

func TestWithLockHeldReturnsSentinel(t *testing.T) {
	dir := t.TempDir()
	lock := New(dir, "daily")
	if !lock.Acquire() {
		t.Fatal("setup acquire failed")
	}
	defer lock.Release()

	ran := false
	err := WithLock(dir, "daily", func() error {
		ran = true
		return nil
	})
	if !errors.Is(err, ErrHeld) {
		t.Fatalf("held lock must return ErrHeld, got %v", err)
	}
	if ran {
		t.Fatal("fn must not run while lock is held")
	}
	// The skip must not have released the holder's lock.
	if !lock.IsLocked() {
		t.Fatal("holder's lock must survive a skipped run")
	}
}

func TestWithLockPropagatesAndWrapsError(t *testing.T) {
	dir := t.TempDir()
	sentinel := errors.New("boom")

	err := WithLock(dir, "daily", func() error { return sentinel })
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected wrapped sentinel, got %v", err)
	}
	if New(dir, "daily").IsLocked() {
		t.Fatal("lock must be released even when fn fails")
	}
}
