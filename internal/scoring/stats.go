// Package scoring derives classroom statistics from raw round and submission rows.
// Nothing here keeps state; callers reload rows and recompute on every query.
package scoring

import "math"

// InvalidRoundMaxAverageSeconds is the average answer time below which a round with
// no participation and no correct answers is treated as accidental.
const InvalidRoundMaxAverageSeconds = 10.0

// RoundRecord is the subset of a round needed for statistics.
type RoundRecord struct {
	ID         uint
	Number     int
	PointValue int
	Completed  bool
}

// SubmissionRecord is the subset of a submission needed for statistics.
type SubmissionRecord struct {
	StudentID      uint
	RoundID        uint
	Answer         string
	Answered       bool
	IsCorrect      bool
	ElapsedSeconds float64
	Penalty        int
	Marked         bool
}

// counted reports whether the submission scores for its round.
func (s SubmissionRecord) counted(round RoundRecord) bool {
	return round.Completed && s.Answered && s.IsCorrect && !s.Marked
}

// RoundStats summarises one round across the active students of a class.
type RoundStats struct {
	RoundID           uint    `json:"round_id"`
	Number            int     `json:"number"`
	Completed         bool    `json:"completed"`
	ActiveStudents    int     `json:"active_students"`
	Participants      int     `json:"participants"`
	CorrectCount      int     `json:"correct_count"`
	ParticipationRate float64 `json:"participation_rate"`
	Accuracy          float64 `json:"accuracy"`
	AverageElapsed    float64 `json:"average_elapsed"`
	Invalid           bool    `json:"invalid"`
}

// Counts reports whether the round takes part in graded aggregates.
func (s RoundStats) Counts() bool {
	return s.Completed && !s.Invalid
}

// ComputeRoundStats evaluates a round. Only submissions from students in active are
// considered; the average time covers participants only.
func ComputeRoundStats(round RoundRecord, active map[uint]bool, submissions []SubmissionRecord) RoundStats {
	stats := RoundStats{
		RoundID:        round.ID,
		Number:         round.Number,
		Completed:      round.Completed,
		ActiveStudents: len(active),
	}

	var elapsed float64
	for _, submission := range submissions {
		if submission.RoundID != round.ID || !active[submission.StudentID] || !submission.Answered {
			continue
		}
		stats.Participants++
		elapsed += submission.ElapsedSeconds
		if submission.counted(round) {
			stats.CorrectCount++
		}
	}

	if stats.ActiveStudents > 0 {
		stats.ParticipationRate = percent(stats.Participants, stats.ActiveStudents)
		stats.Accuracy = percent(stats.CorrectCount, stats.ActiveStudents)
	}
	if stats.Participants > 0 {
		stats.AverageElapsed = elapsed / float64(stats.Participants)
	}

	stats.Invalid = IsInvalidRound(stats)

	return stats
}

// IsInvalidRound flags a graded round that shows no genuine engagement. Rounds still
// in progress are never invalid.
func IsInvalidRound(stats RoundStats) bool {
	if !stats.Completed {
		return false
	}
	return stats.ParticipationRate == 0 &&
		stats.Accuracy == 0 &&
		stats.AverageElapsed < InvalidRoundMaxAverageSeconds
}

// ClassTotals rolls up graded, valid rounds for a course.
type ClassTotals struct {
	TotalRounds          int     `json:"total_rounds"`
	InvalidRounds        []int   `json:"invalid_rounds"`
	AverageAccuracy      float64 `json:"average_accuracy"`
	AverageParticipation float64 `json:"average_participation"`
	AverageElapsed       float64 `json:"average_elapsed"`
}

// ComputeClassTotals aggregates per-round statistics, skipping invalid and ungraded rounds.
func ComputeClassTotals(rounds []RoundStats) ClassTotals {
	totals := ClassTotals{InvalidRounds: []int{}}

	var accuracy, participation, elapsed float64
	var timedRounds int
	for _, round := range rounds {
		if round.Invalid {
			totals.InvalidRounds = append(totals.InvalidRounds, round.Number)
		}
		if !round.Counts() {
			continue
		}
		totals.TotalRounds++
		accuracy += round.Accuracy
		participation += round.ParticipationRate
		if round.Participants > 0 {
			elapsed += round.AverageElapsed
			timedRounds++
		}
	}

	if totals.TotalRounds > 0 {
		totals.AverageAccuracy = roundPercent(accuracy / float64(totals.TotalRounds))
		totals.AverageParticipation = roundPercent(participation / float64(totals.TotalRounds))
	}
	if timedRounds > 0 {
		totals.AverageElapsed = elapsed / float64(timedRounds)
	}

	return totals
}

// percent returns part/whole on a 0..100 scale with two decimals.
func percent(part, whole int) float64 {
	if whole <= 0 {
		return 0
	}
	value := float64(part) / float64(whole) * 100
	if value > 100 {
		return 100
	}
	return roundPercent(value)
}

func roundPercent(value float64) float64 {
	return math.Round(value*100) / 100
}
