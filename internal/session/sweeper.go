package session

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/clipferry/bot/internal/metrics"
)

// Sweeper periodically expires idle sessions and removes orphaned temp files
// left behind by crashed or abandoned transfers.
type Sweeper struct {
	store    *Store
	tempDir  string
	interval time.Duration
	window   time.Duration
	logger   *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// NewSweeper constructs a background sweeper over the store and temp dir.
func NewSweeper(store *Store, tempDir string, interval, window time.Duration, logger *slog.Logger) *Sweeper {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if window <= 0 {
		window = DefaultWindow
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		store:    store,
		tempDir:  tempDir,
		interval: interval,
		window:   window,
		logger:   logger,
	}
}

// Start launches the sweep loop.
func (s *Sweeper) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				s.sweep(now)
			}
		}
	}()
}

// Shutdown stops the loop and waits for an in-progress sweep to finish.
func (s *Sweeper) Shutdown(ctx context.Context) error {
	s.once.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
	})

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (s *Sweeper) sweep(now time.Time) {
	if expired := s.store.Sweep(now); expired > 0 {
		s.logger.Info("expired idle sessions", "count", expired)
	}

	removed, err := SweepTempFiles(s.tempDir, s.window, now)
	if err != nil {
		s.logger.Warn("temp file sweep", "error", err)
	}
	if removed > 0 {
		s.logger.Info("removed orphaned temp files", "count", removed)
	}
}

// SweepTempFiles deletes regular files in dir whose modification time is
// older than the window. Removal is idempotent: files already gone do not
// count as errors.
func SweepTempFiles(dir string, window time.Duration, now time.Time) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if now.Sub(info.ModTime()) <= window {
			continue
		}
		err = os.Remove(filepath.Join(dir, entry.Name()))
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			continue
		}
		removed++
	}
	if removed > 0 {
		metrics.TempFilesSwept.Add(float64(removed))
	}
	return removed, nil
}
