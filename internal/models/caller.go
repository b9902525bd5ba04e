package models

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CallerRole classifies who is on the line
type CallerRole string

const (
	CallerRoleStudent   CallerRole = "student"   // open conversation with the AI
	CallerRoleTeacher   CallerRole = "teacher"   // utterances treated as grade dictation
	CallerRoleCounselor CallerRole = "counselor" // human specialist, bridge target
)

// CounselorStatus is the availability of a counselor
type CounselorStatus string

const (
	CounselorAvailable CounselorStatus = "available"
	CounselorBusy      CounselorStatus = "busy"
	CounselorOffline   CounselorStatus = "offline"
)

// Caller is anyone identified by a phone number: students, teachers and
// counselors. Rows are created on first contact and never deleted.
type Caller struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"autoUpdateTime"`

	Phone string     `json:"phone" gorm:"size:64;uniqueIndex;not null"`
	Name  string     `json:"name,omitempty" gorm:"size:128"`
	Role  CallerRole `json:"role" gorm:"size:20;index;default:'student'"`

	// Availability only means anything for counselors.
	Status CounselorStatus `json:"status,omitempty" gorm:"size:20;index;default:'offline'"`
}

func (Caller) TableName() string {
	return "callers"
}

// UpsertCallerByPhone returns the caller for a phone number, creating a
// student row on first contact. Safe under concurrent duplicate webhook
// deliveries: the insert ignores conflicts and the row is re-read.
func UpsertCallerByPhone(db *gorm.DB, phone string) (*Caller, error) {
	if phone == "" {
		return nil, errors.New("phone is required")
	}
	caller := &Caller{Phone: phone, Role: CallerRoleStudent, Status: CounselorOffline}
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "phone"}},
		DoNothing: true,
	}).Create(caller).Error
	if err != nil {
		return nil, err
	}
	return GetCallerByPhone(db, phone)
}

// GetCallerByPhone loads a caller by phone number, nil when unknown.
func GetCallerByPhone(db *gorm.DB, phone string) (*Caller, error) {
	var caller Caller
	err := db.Where("phone = ?", phone).First(&caller).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &caller, nil
}

// GetCallerByID loads a caller by primary key.
func GetCallerByID(db *gorm.DB, id uint) (*Caller, error) {
	var caller Caller
	if err := db.First(&caller, id).Error; err != nil {
		return nil, err
	}
	return &caller, nil
}

// ListCounselors returns all counselor callers in creation order.
func ListCounselors(db *gorm.DB) ([]Caller, error) {
	var counselors []Caller
	err := db.Where("role = ?", CallerRoleCounselor).Order("id ASC").Find(&counselors).Error
	return counselors, err
}
