package models

import "time"

// Course is one live quiz session held for a class.
type Course struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	ClassID      uint       `gorm:"not null;uniqueIndex:idx_courses_active_class,where:active = true" json:"class_id"`
	Name         string     `gorm:"size:255;not null" json:"name"`
	Active       bool       `gorm:"not null;default:true;index" json:"active"`
	CurrentRound int        `gorm:"not null;default:1" json:"current_round"`
	StartedAt    time.Time  `gorm:"not null" json:"started_at"`
	EndedAt      *time.Time `json:"ended_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	Class        Class      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
}

// CourseAttendance snapshots the students that were active when a course started.
type CourseAttendance struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CourseID  uint      `gorm:"not null;uniqueIndex:idx_attendance_course_student" json:"course_id"`
	StudentID uint      `gorm:"not null;uniqueIndex:idx_attendance_course_student" json:"student_id"`
	Status    string    `gorm:"size:16;not null" json:"status"`
	CreatedAt time.Time `json:"created_at"`
}
