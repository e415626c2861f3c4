package workers

import (
	"context"
	"time"

	"leadboard/internal/domain"
)

// DailyLoader is the part of the daily report repository the sweep needs.
type DailyLoader interface {
	Load(ctx context.Context, userID string) ([]domain.DailyEntry, error)
}

// RetentionWorker prunes the signed-in user's daily entries by loading them.
type RetentionWorker struct {
	Daily  DailyLoader
	UserID func() string
	Every  time.Duration
}

func (w RetentionWorker) Name() string { return "daily-retention" }

func (w RetentionWorker) Interval() time.Duration {
	if w.Every <= 0 {
		return time.Hour
	}
	return w.Every
}

// Run is a no-op while nobody is signed in.
func (w RetentionWorker) Run(ctx context.Context) error {
	uid := w.UserID()
	if uid == "" {
		return nil
	}
	_, err := w.Daily.Load(ctx, uid)
	return err
}
