package logging

import (
	"log/slog"
	"time"

	"github.com/ahmetcoskunkizilkaya/smartshop-backend/internal/models"
	"github.com/juju/clock"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const cleanupInterval = 24 * time.Hour

// PurgeBefore deletes system logs recorded before cutoff.
func PurgeBefore(db *gorm.DB, cutoff time.Time) (int64, error) {
	result := db.Where(clause.Lt{Column: clause.Column{Name: "timestamp"}, Value: cutoff}).
		Delete(&models.SystemLog{})
	return result.RowsAffected, result.Error
}

// StartCleanup runs a daily goroutine that deletes system_logs older than
// retention. The returned channel is closed once the goroutine has exited
// after done is closed.
func StartCleanup(db *gorm.DB, clk clock.Clock, retention time.Duration, done <-chan struct{}) <-chan struct{} {
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		for {
			select {
			case <-clk.After(cleanupInterval):
				deleted, err := PurgeBefore(db, clk.Now().Add(-retention))
				if err != nil {
					slog.Error("log cleanup failed", "action", "log_cleanup", "error", err)
				} else if deleted > 0 {
					slog.Info("log cleanup completed", "deleted", deleted)
				}
			case <-done:
				return
			}
		}
	}()
	return finished
}
