package models

import (
	"fmt"
	"time"
)

// Submission is one student's answer to one round. Behaviour marks are folded into
// the penalty counters; a row with Answered=false only carries marks.
type Submission struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	StudentID       uint      `gorm:"not null;uniqueIndex:idx_submissions_student_round" json:"student_id"`
	RoundID         uint      `gorm:"not null;uniqueIndex:idx_submissions_student_round;index" json:"round_id"`
	CourseID        uint      `gorm:"not null;index" json:"course_id"`
	Answer          string    `gorm:"type:text" json:"answer"`
	Answered        bool      `gorm:"not null;default:false" json:"answered"`
	IsCorrect       bool      `gorm:"not null;default:false" json:"is_correct"`
	ElapsedSeconds  float64   `gorm:"not null;default:0" json:"elapsed_seconds"`
	GuessCount      int       `gorm:"not null;default:0" json:"guess_count"`
	CopyCount       int       `gorm:"not null;default:0" json:"copy_count"`
	NoisyCount      int       `gorm:"not null;default:0" json:"noisy_count"`
	DistractedCount int       `gorm:"not null;default:0" json:"distracted_count"`
	PenaltyTotal    int       `gorm:"not null;default:0" json:"penalty_total"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	Round           Round     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Student         Student   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

// HasPenalty reports whether any behaviour mark was applied.
func (s Submission) HasPenalty() bool {
	return s.GuessCount > 0 || s.CopyCount > 0 || s.NoisyCount > 0 || s.DistractedCount > 0
}

// BehaviorKind enumerates misconduct marks a teacher can apply.
type BehaviorKind string

const (
	BehaviorGuess      BehaviorKind = "guess"
	BehaviorCopy       BehaviorKind = "copy"
	BehaviorNoisy      BehaviorKind = "noisy"
	BehaviorDistracted BehaviorKind = "distracted"
)

var behaviorPenalties = map[BehaviorKind]int{
	BehaviorGuess:      1,
	BehaviorCopy:       2,
	BehaviorNoisy:      1,
	BehaviorDistracted: 1,
}

// Penalty returns the points deducted for the mark.
func (k BehaviorKind) Penalty() (int, error) {
	amount, ok := behaviorPenalties[k]
	if !ok {
		return 0, fmt.Errorf("unknown behavior kind %q", k)
	}
	return amount, nil
}

// ApplyBehavior increments the counter for kind and forces the submission incorrect.
func (s *Submission) ApplyBehavior(kind BehaviorKind) (int, error) {
	amount, err := kind.Penalty()
	if err != nil {
		return 0, err
	}

	switch kind {
	case BehaviorGuess:
		s.GuessCount++
	case BehaviorCopy:
		s.CopyCount++
	case BehaviorNoisy:
		s.NoisyCount++
	case BehaviorDistracted:
		s.DistractedCount++
	}
	s.PenaltyTotal += amount
	s.IsCorrect = false

	return amount, nil
}
