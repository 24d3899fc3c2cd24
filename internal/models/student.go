package models

import "time"

const (
	// StudentStatusActive marks a student that takes part in rounds.
	StudentStatusActive = "active"
	// StudentStatusAbsent marks a student excluded from submissions and statistics.
	StudentStatusAbsent = "absent"
)

// Student represents a learner enrolled in a class.
type Student struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ClassID   uint      `gorm:"not null;index" json:"class_id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Status    string    `gorm:"size:16;not null;default:active" json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsActive reports whether the student participates in the running course.
func (s Student) IsActive() bool {
	return s.Status == "" || s.Status == StudentStatusActive
}
