package dto

import (
	"time"

	"github.com/noah-isme/gema-quiz-api/internal/models"
	"github.com/noah-isme/gema-quiz-api/internal/scoring"
)

// StartCourseRequest opens a new quiz session for a class.
type StartCourseRequest struct {
	ClassID uint   `json:"class_id" validate:"required,gt=0"`
	Name    string `json:"name" validate:"omitempty,max=255"`
}

// SubmitAnswerRequest carries one student's answer for the current round.
type SubmitAnswerRequest struct {
	StudentID      uint    `json:"student_id" validate:"required,gt=0"`
	Answer         string  `json:"answer" validate:"required,max=255"`
	ElapsedSeconds float64 `json:"elapsed_seconds" validate:"gte=0"`
}

// JudgeRoundRequest supplies the correct answer for the current round.
type JudgeRoundRequest struct {
	CorrectAnswer string `json:"correct_answer" validate:"required,max=255"`
	PointValue    int    `json:"point_value" validate:"omitempty,gte=1,lte=100"`
}

// BehaviorMarkRequest applies a misconduct penalty to a student.
type BehaviorMarkRequest struct {
	StudentID uint   `json:"student_id" validate:"required,gt=0"`
	Kind      string `json:"kind" validate:"required,oneof=guess copy noisy distracted"`
}

// CourseResponse describes a quiz session.
type CourseResponse struct {
	ID           uint       `json:"id"`
	ClassID      uint       `json:"class_id"`
	Name         string     `json:"name"`
	Active       bool       `json:"active"`
	CurrentRound int        `json:"current_round"`
	StartedAt    time.Time  `json:"started_at"`
	EndedAt      *time.Time `json:"ended_at"`
	Attendance   int        `json:"attendance"`
}

// NewCourseResponse maps a course model into its response representation.
func NewCourseResponse(course models.Course, attendance int) CourseResponse {
	return CourseResponse{
		ID:           course.ID,
		ClassID:      course.ClassID,
		Name:         course.Name,
		Active:       course.Active,
		CurrentRound: course.CurrentRound,
		StartedAt:    course.StartedAt,
		EndedAt:      course.EndedAt,
		Attendance:   attendance,
	}
}

// SubmissionAcceptedResponse confirms a stored answer.
type SubmissionAcceptedResponse struct {
	Accepted     bool `json:"accepted"`
	SubmissionID uint `json:"submission_id"`
	CourseID     uint `json:"course_id"`
	RoundNumber  int  `json:"round_number"`
}

// Expression values mirror the classroom avatar reactions after judging.
const (
	ExpressionSmile       = "smile"
	ExpressionAngry       = "angry"
	ExpressionEmbarrassed = "embarrassed"
	ExpressionNeutral     = "neutral"
)

// StudentSnapshot is a student's live state within a course.
type StudentSnapshot struct {
	StudentID            uint               `json:"student_id"`
	Name                 string             `json:"name"`
	Status               string             `json:"status"`
	Score                int                `json:"score"`
	RawScore             int                `json:"raw_score"`
	PenaltyTotal         int                `json:"penalty_total"`
	TotalRounds          int                `json:"total_rounds"`
	AttemptedRounds      int                `json:"attempted_rounds"`
	CorrectRounds        int                `json:"correct_rounds"`
	Accuracy             float64            `json:"accuracy"`
	ParticipationRate    float64            `json:"participation_rate"`
	LastAnswer           string             `json:"last_answer"`
	LastElapsed          float64            `json:"last_elapsed"`
	SpeedLevel           scoring.SpeedLevel `json:"speed_level"`
	AnsweredCurrentRound bool               `json:"answered_current_round"`
	Expression           string             `json:"expression"`
}

// JudgeRoundResponse reports the outcome of judging a round.
type JudgeRoundResponse struct {
	CourseID      uint              `json:"course_id"`
	RoundNumber   int               `json:"round_number"`
	CorrectAnswer string            `json:"correct_answer"`
	PointValue    int               `json:"point_value"`
	Invalid       bool              `json:"invalid"`
	Students      []StudentSnapshot `json:"students"`
}

// AdvanceRoundResponse reports the new round and the snapshot taken on entry.
type AdvanceRoundResponse struct {
	CourseID       uint              `json:"course_id"`
	NewRoundNumber int               `json:"new_round_number"`
	Students       []StudentSnapshot `json:"students"`
}

// BehaviorMarkResponse reports an applied penalty.
type BehaviorMarkResponse struct {
	CourseID       uint   `json:"course_id"`
	StudentID      uint   `json:"student_id"`
	RoundNumber    int    `json:"round_number"`
	Kind           string `json:"kind"`
	PenaltyApplied int    `json:"penalty_applied"`
	PenaltyTotal   int    `json:"penalty_total"`
}

// RepairRoundsResponse summarises a renumbering pass.
type RepairRoundsResponse struct {
	CourseID     uint `json:"course_id"`
	Rounds       int  `json:"rounds"`
	Renumbered   int  `json:"renumbered"`
	Rejudged     int  `json:"rejudged"`
	CurrentRound int  `json:"current_round"`
}

// ClassroomSnapshot is the live display view of a course.
type ClassroomSnapshot struct {
	CourseID                uint                `json:"course_id"`
	ClassID                 uint                `json:"class_id"`
	CourseName              string              `json:"course_name"`
	Active                  bool                `json:"active"`
	CurrentRound            int                 `json:"current_round"`
	RoundInProgress         bool                `json:"round_in_progress"`
	CurrentRoundSubmissions int                 `json:"current_round_submissions"`
	ClassTotals             scoring.ClassTotals `json:"class_totals"`
	Students                []StudentSnapshot   `json:"students"`
	GeneratedAt             time.Time           `json:"generated_at"`
}

// RoundStatsResponse exposes one round's class statistics.
type RoundStatsResponse struct {
	scoring.RoundStats
	CorrectAnswer *string `json:"correct_answer"`
	PointValue    int     `json:"point_value"`
}

// ClassAverages are the class-wide comparison figures in a report.
type ClassAverages struct {
	TotalRounds       int     `json:"total_rounds"`
	Accuracy          float64 `json:"accuracy"`
	ParticipationRate float64 `json:"participation_rate"`
	AverageElapsed    float64 `json:"average_elapsed"`
}

// RoundBreakdown is one row of a student's per-round history.
type RoundBreakdown struct {
	Number              int                `json:"number"`
	Completed           bool               `json:"completed"`
	InProgress          bool               `json:"in_progress"`
	Invalid             bool               `json:"invalid"`
	CorrectAnswer       *string            `json:"correct_answer"`
	PointValue          int                `json:"point_value"`
	Submitted           bool               `json:"submitted"`
	Answer              string             `json:"answer"`
	IsCorrect           bool               `json:"is_correct"`
	PointsEarned        int                `json:"points_earned"`
	ElapsedSeconds      float64            `json:"elapsed_seconds"`
	SpeedLevel          scoring.SpeedLevel `json:"speed_level"`
	PenaltyTotal        int                `json:"penalty_total"`
	ClassAccuracy       float64            `json:"class_accuracy"`
	ClassAverageElapsed float64            `json:"class_average_elapsed"`
}

// StudentReport is the post-session view of one student.
type StudentReport struct {
	StudentID         uint               `json:"student_id"`
	StudentName       string             `json:"student_name"`
	CourseID          uint               `json:"course_id"`
	CourseName        string             `json:"course_name"`
	Score             int                `json:"score"`
	RawScore          int                `json:"raw_score"`
	PenaltyTotal      int                `json:"penalty_total"`
	Accuracy          float64            `json:"accuracy"`
	ParticipationRate float64            `json:"participation_rate"`
	TotalRounds       int                `json:"total_rounds"`
	AttemptedRounds   int                `json:"attempted_rounds"`
	CorrectRounds     int                `json:"correct_rounds"`
	MissedRounds      int                `json:"missed_rounds"`
	AverageElapsed    float64            `json:"average_elapsed"`
	SpeedLevel        scoring.SpeedLevel `json:"speed_level"`
	ClassAverages     ClassAverages      `json:"class_averages"`
	Rounds            []RoundBreakdown   `json:"rounds"`
	GeneratedAt       time.Time          `json:"generated_at"`
}
