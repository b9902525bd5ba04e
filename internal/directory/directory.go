// Package directory arbitrates the shared counselor pool. Reservation is a
// single conditional UPDATE so two concurrent escalations can never both win
// the same counselor.
package directory

import (
	"errors"

	"github.com/heartline-cc/HeartLine/internal/models"
	"gorm.io/gorm"
)

// ErrNotReserved means the counselor was no longer available when the
// reservation ran (taken by a concurrent escalation or set offline).
var ErrNotReserved = errors.New("counselor not available")

// FindAvailable returns one available counselor, or nil when none. Selection
// is deterministic: lowest id first.
func FindAvailable(db *gorm.DB) (*models.Caller, error) {
	var counselor models.Caller
	err := db.Where("role = ? AND status = ?", models.CallerRoleCounselor, models.CounselorAvailable).
		Order("id ASC").
		First(&counselor).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &counselor, nil
}

// Reserve flips an available counselor to busy. The WHERE clause carries the
// precondition; RowsAffected decides whether this caller won the race.
func Reserve(db *gorm.DB, counselorID uint) error {
	res := db.Model(&models.Caller{}).
		Where("id = ? AND role = ? AND status = ?",
			counselorID, models.CallerRoleCounselor, models.CounselorAvailable).
		Update("status", models.CounselorBusy)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != 1 {
		return ErrNotReserved
	}
	return nil
}

// Release returns a busy counselor to the pool. Releasing an already
// available counselor is a no-op, which keeps duplicate terminal events safe.
func Release(db *gorm.DB, counselorID uint) error {
	return db.Model(&models.Caller{}).
		Where("id = ? AND role = ? AND status = ?",
			counselorID, models.CallerRoleCounselor, models.CounselorBusy).
		Update("status", models.CounselorAvailable).Error
}

// SetStatus is the management-surface mutation (dashboard availability
// toggles). It does not carry a precondition.
func SetStatus(db *gorm.DB, counselorID uint, status models.CounselorStatus) error {
	res := db.Model(&models.Caller{}).
		Where("id = ? AND role = ?", counselorID, models.CallerRoleCounselor).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != 1 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
