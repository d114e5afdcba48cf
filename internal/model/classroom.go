package model

import (
	"time"

	"gorm.io/datatypes"
)

// swagger:model Classroom
type Classroom struct {
	BaseModel
	CourseID        uint           `gorm:"index;not null" json:"course_id"`
	TeacherID       uint           `gorm:"index;not null" json:"teacher_id"`
	Title           string         `gorm:"size:255;not null" json:"title"`
	Description     string         `gorm:"type:text" json:"description"`
	Schedule        datatypes.JSON `json:"schedule,omitempty"`
	MaxStudents     int            `gorm:"not null" json:"max_students"`
	CurrentStudents int            `gorm:"not null;default:0" json:"current_students"`
	IsActive        bool           `gorm:"default:true" json:"is_active"`
}

func (Classroom) TableName() string {
	return "classrooms"
}

type EnrollmentStatus string

const (
	EnrollmentActive    EnrollmentStatus = "active"
	EnrollmentCompleted EnrollmentStatus = "completed"
	EnrollmentDropped   EnrollmentStatus = "dropped"
)

// swagger:model Enrollment
type Enrollment struct {
	BaseModel
	ClassroomID uint             `gorm:"uniqueIndex:idx_classroom_student;not null" json:"classroom_id"`
	StudentID   uint             `gorm:"uniqueIndex:idx_classroom_student;index;not null" json:"student_id"`
	Status      EnrollmentStatus `gorm:"size:20;not null;default:'active'" json:"status"`
	EnrolledAt  time.Time        `json:"enrolled_at"`
	Student     *User            `gorm:"foreignKey:StudentID" json:"student,omitempty"`
	Classroom   *Classroom       `gorm:"foreignKey:ClassroomID" json:"classroom,omitempty"`
}

func (Enrollment) TableName() string {
	return "classroom_enrollments"
}
