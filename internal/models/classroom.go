package models

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// Classroom groups dictated students under the teacher who owns it. Names
// are only unique per owner.
type Classroom struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"createdAt" gorm:"autoCreateTime"`

	OwnerID uint   `json:"ownerId" gorm:"index;not null;uniqueIndex:idx_owner_name"`
	Owner   Caller `json:"-" gorm:"foreignKey:OwnerID"`
	Name    string `json:"name" gorm:"size:128;not null;uniqueIndex:idx_owner_name"`
}

func (Classroom) TableName() string {
	return "classrooms"
}

// Student is a dictation subject. Names are not globally unique; the
// classroom (when present) scopes lookups.
type Student struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"createdAt" gorm:"autoCreateTime"`

	ClassroomID *uint      `json:"classroomId,omitempty" gorm:"index"`
	Classroom   *Classroom `json:"-" gorm:"foreignKey:ClassroomID"`
	Name        string     `json:"name" gorm:"size:128;index;not null"`
}

func (Student) TableName() string {
	return "students"
}

// Grade is one accepted dictation entry; append-only.
type Grade struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"createdAt" gorm:"autoCreateTime"`

	StudentID uint    `json:"studentId" gorm:"index;not null"`
	Student   Student `json:"-" gorm:"foreignKey:StudentID"`

	Subject string  `json:"subject" gorm:"size:64;not null"`
	Score   float64 `json:"score" gorm:"not null"`
}

func (Grade) TableName() string {
	return "grades"
}

// EnsureClassroom returns the owner's classroom with the given name,
// creating it on first reference.
func EnsureClassroom(db *gorm.DB, ownerID uint, name string) (*Classroom, error) {
	if name == "" {
		return nil, errors.New("classroom name is required")
	}
	var room Classroom
	err := db.Where(Classroom{OwnerID: ownerID, Name: name}).FirstOrCreate(&room).Error
	if err != nil {
		return nil, err
	}
	return &room, nil
}

// EnsureStudent returns the named student within the classroom scope
// (classroomID may be nil for unscoped students), creating it when missing.
func EnsureStudent(db *gorm.DB, classroomID *uint, name string) (*Student, error) {
	if name == "" {
		return nil, errors.New("student name is required")
	}
	var student Student
	q := db.Where("name = ?", name)
	if classroomID != nil {
		q = q.Where("classroom_id = ?", *classroomID)
	} else {
		q = q.Where("classroom_id IS NULL")
	}
	err := q.First(&student).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		student = Student{ClassroomID: classroomID, Name: name}
		err = db.Create(&student).Error
	}
	if err != nil {
		return nil, err
	}
	return &student, nil
}

// CreateGrade appends one accepted entry.
func CreateGrade(db *gorm.DB, studentID uint, subject string, score float64) error {
	return db.Create(&Grade{StudentID: studentID, Subject: subject, Score: score}).Error
}

// ListClassrooms returns a teacher's classrooms in creation order.
func ListClassrooms(db *gorm.DB, ownerID uint) ([]Classroom, error) {
	var rooms []Classroom
	err := db.Where("owner_id = ?", ownerID).Order("id ASC").Find(&rooms).Error
	return rooms, err
}

// ListClassroomGrades returns every grade recorded for a classroom's
// students, newest first.
func ListClassroomGrades(db *gorm.DB, classroomID uint) ([]Grade, error) {
	var grades []Grade
	err := db.Joins("JOIN students ON students.id = grades.student_id").
		Where("students.classroom_id = ?", classroomID).
		Preload("Student").
		Order("grades.id DESC").
		Find(&grades).Error
	return grades, err
}
