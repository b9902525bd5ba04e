package task

import (
	"time"

	"github.com/heartline-cc/HeartLine/internal/directory"
	"github.com/heartline-cc/HeartLine/internal/models"
	"github.com/heartline-cc/HeartLine/pkg/logger"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// StartCallSweeper schedules the stale-call sweep. A gateway that never
// delivers a terminal event would otherwise leave calls open and counselors
// stuck busy forever. Returns the cron so the caller can Stop it.
func StartCallSweeper(db *gorm.DB, schedule string, maxAge time.Duration) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		SweepStaleCalls(db, maxAge)
	})
	if err != nil {
		return nil, err
	}
	c.Start()
	return c, nil
}

// SweepStaleCalls completes every open call older than maxAge and releases
// its counselor. Uses the same conditional transition as the terminal event
// handler, so a sweep racing a real terminal delivery is still exactly-once.
func SweepStaleCalls(db *gorm.DB, maxAge time.Duration) {
	cutoff := time.Now().Add(-maxAge)

	var stale []models.Call
	err := db.Where("status <> ? AND started_at < ?", models.CallStatusCompleted, cutoff).
		Find(&stale).Error
	if err != nil {
		logger.Error("stale call query failed", zap.Error(err))
		return
	}

	for _, call := range stale {
		call := call
		err := db.Transaction(func(tx *gorm.DB) error {
			transitioned, err := models.CompleteCall(tx, call.CallSID)
			if err != nil {
				return err
			}
			if transitioned && call.CounselorID != nil {
				return directory.Release(tx, *call.CounselorID)
			}
			return nil
		})
		if err != nil {
			logger.Error("stale call sweep failed",
				zap.String("callSid", call.CallSID), zap.Error(err))
			continue
		}
		logger.Info("stale call completed",
			zap.String("callSid", call.CallSID),
			zap.Time("startedAt", call.StartedAt))
	}
}
