package retention

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/robfig/cron/v3"

	"github.com/bugreport/internal/attachment"
)

var _ cron.Job = (*Sweeper)(nil)

// DefaultSchedule runs the sweep hourly.
const DefaultSchedule = "@every 1h"

// Sweeper removes screenshot files older than a maximum age.
type Sweeper struct {
	dir     string
	maxAge  time.Duration
	logger  *slog.Logger
	now     func() time.Time
	onSwept func(n int)
}

func NewSweeper(dir string, maxAge time.Duration, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		dir:    dir,
		maxAge: maxAge,
		logger: logger,
		now:    time.Now,
	}
}

// OnSwept registers a callback receiving the number of files removed by each
// sweep.
func (s *Sweeper) OnSwept(fn func(n int)) {
	s.onSwept = fn
}

// Sweep removes screenshots in the upload directory whose modification time
// is older than the maximum age. Files not named the way the decoder names
// them, and subdirectories, are left alone.
func (s *Sweeper) Sweep() (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("retention: read upload dir: %w", err)
	}

	cutoff := s.now().Add(-s.maxAge)
	var removed int
	var freed uint64
	for _, e := range entries {
		if !e.Type().IsRegular() || !attachment.IsScreenshotName(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, e.Name())); err != nil && !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("retention: failed to remove file", "file", e.Name(), "error", err)
			continue
		}
		removed++
		freed += uint64(info.Size())
	}

	if removed > 0 {
		s.logger.Info("retention: swept screenshots", "removed", removed, "freed", humanize.Bytes(freed))
	}
	if s.onSwept != nil {
		s.onSwept(removed)
	}
	return removed, nil
}

// Run sweeps once and logs failures. It satisfies cron.Job.
func (s *Sweeper) Run() {
	if _, err := s.Sweep(); err != nil {
		s.logger.Error("retention: sweep failed", "error", err)
	}
}
