// Package joblock is a cooperative file-based lock preventing two scheduled
// runs of the same job from overlapping on a single host. Best effort: no
// fencing token; a killed process leaves a stale lock that is overridden
// after the staleness timeout.
package joblock

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"lesson-insights-go/internal/logger"
)

// Staleness is how old a lock may be before it is considered abandoned.
const Staleness = 4 * time.Hour

// ErrHeld reports that another live run holds the lock.
var ErrHeld = errors.New("job lock held")

type lockData struct {
	Timestamp int64  `json:"timestamp"` // unix millis
	PID       int    `json:"pid"`
	LockName  string `json:"lock_name"`
}

type Lock struct {
	name string
	path string
	log  *logrus.Entry
}

func New(dir, name string) *Lock {
	return &Lock{
		name: name,
		path: filepath.Join(dir, name+".lock"),
		log:  logger.New().WithField("module", "joblock").WithField("lock", name),
	}
}

// Acquire attempts to take the lock. It returns false when another live run
// holds it; a stale lock is overridden.
func (l *Lock) Acquire() bool {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		l.log.WithError(err).Error("failed to create lock directory")
		return false
	}

	if data, err := os.ReadFile(l.path); err == nil {
		var held lockData
		if json.Unmarshal(data, &held) == nil {
			age := time.Since(time.UnixMilli(held.Timestamp))
			if age <= Staleness {
				l.log.WithField("locked_at", time.UnixMilli(held.Timestamp).Format(time.RFC3339)).
					Warn("job already running")
				return false
			}
			l.log.WithField("age", age.String()).Warn("stale lock detected, overriding")
		}
		l.Release()
	}

	payload, err := json.MarshalIndent(lockData{
		Timestamp: time.Now().UnixMilli(),
		PID:       os.Getpid(),
		LockName:  l.name,
	}, "", "  ")
	if err != nil {
		l.log.WithError(err).Error("failed to encode lock data")
		return false
	}
	if err := os.WriteFile(l.path, payload, 0o644); err != nil {
		l.log.WithError(err).Error("failed to write lock file")
		return false
	}
	l.log.Info("lock acquired")
	return true
}

// Release removes the lock file.
func (l *Lock) Release() {
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		l.log.WithError(err).Error("failed to release lock")
		return
	}
	l.log.Debug("lock released")
}

// IsLocked reports whether a live (non-stale) lock exists.
func (l *Lock) IsLocked() bool {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return false
	}
	var held lockData
	if json.Unmarshal(data, &held) != nil {
		return false
	}
	return time.Since(time.UnixMilli(held.Timestamp)) <= Staleness
}

// WithLock runs fn under the named lock. A held lock returns ErrHeld without
// running fn; callers decide whether a skipped run is an error.
func WithLock(dir, name string, fn func() error) error {
	lock := New(dir, name)
	if !lock.Acquire() {
		lock.log.Warn("skipping run, lock held")
		return ErrHeld
	}
	defer lock.Release()

	if err := fn(); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}
