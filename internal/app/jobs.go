package app

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/bugreport/internal/retention"
)

const sessionCleanupSchedule = "@every 30m"

// newScheduler registers the background jobs: expired session cleanup and,
// under a max-age retention policy, the screenshot sweep.
func (app *App) newScheduler() (*cron.Cron, error) {
	c := cron.New()

	if _, err := c.AddFunc(sessionCleanupSchedule, app.cleanupSessions); err != nil {
		return nil, err
	}

	policy := app.config.Report.RetentionPolicy
	if policy.Mode == retention.MaxAge {
		sweeper := retention.NewSweeper(app.config.UploadDir, policy.MaxAge, app.logger)
		sweeper.OnSwept(func(n int) { app.metrics.SweptFiles.Add(float64(n)) })
		if _, err := c.AddJob(retention.DefaultSchedule, sweeper); err != nil {
			return nil, err
		}
		app.logger.Info("retention: sweep scheduled", "max_age", policy.MaxAge, "dir", app.config.UploadDir)
	}

	return c, nil
}

func (app *App) cleanupSessions() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	n, err := app.sessionStore.DeleteExpired(ctx)
	if err != nil {
		app.logger.Error("sessions: cleanup failed", "error", err)
		return
	}
	if n > 0 {
		app.logger.Info("sessions: removed expired", "count", n)
	}
}
