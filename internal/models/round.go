package models

import (
	"strings"
	"time"
)

// DefaultPointValue is awarded for a correct answer when the teacher does not set one.
const DefaultPointValue = 1

// Round is one question/answer cycle within a course. CorrectAnswer stays nil until
// the round is judged.
type Round struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	CourseID      uint       `gorm:"not null;uniqueIndex:idx_rounds_course_number" json:"course_id"`
	Number        int        `gorm:"not null;uniqueIndex:idx_rounds_course_number" json:"number"`
	CorrectAnswer *string    `gorm:"size:255" json:"correct_answer"`
	PointValue    int        `gorm:"not null;default:1" json:"point_value"`
	Completed     bool       `gorm:"not null;default:false" json:"completed"`
	CompletedAt   *time.Time `json:"completed_at"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	Course        Course     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

// IsGraded reports whether the round has been judged.
func (r Round) IsGraded() bool {
	return r.Completed && r.CorrectAnswer != nil
}

// Points returns the round's point value, falling back to the default.
func (r Round) Points() int {
	if r.PointValue <= 0 {
		return DefaultPointValue
	}
	return r.PointValue
}

// NormalizeAnswer trims and lower-cases an answer for comparison.
func NormalizeAnswer(answer string) string {
	return strings.ToLower(strings.TrimSpace(answer))
}

// Matches compares a submitted answer with the round's correct answer.
func (r Round) Matches(answer string) bool {
	if r.CorrectAnswer == nil {
		return false
	}
	return NormalizeAnswer(answer) == NormalizeAnswer(*r.CorrectAnswer)
}
