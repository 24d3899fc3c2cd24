package scoring

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestComputeRoundStatsCountsActiveStudentsOnly(t *testing.T) {
	round := RoundRecord{ID: 1, Number: 1, PointValue: 2, Completed: true}
	active := map[uint]bool{10: true, 11: true, 12: true, 13: true}
	submissions := []SubmissionRecord{
		{StudentID: 10, RoundID: 1, Answered: true, IsCorrect: true, ElapsedSeconds: 4},
		{StudentID: 11, RoundID: 1, Answered: true, IsCorrect: false, ElapsedSeconds: 8},
		{StudentID: 12, RoundID: 1, Answered: true, IsCorrect: true, ElapsedSeconds: 6, Marked: true},
		{StudentID: 99, RoundID: 1, Answered: true, IsCorrect: true, ElapsedSeconds: 1},
	}

	stats := ComputeRoundStats(round, active, submissions)
	require.Equal(t, 4, stats.ActiveStudents)
	require.Equal(t, 3, stats.Participants)
	require.Equal(t, 1, stats.CorrectCount)
	require.InDelta(t, 75.0, stats.ParticipationRate, 0.001)
	require.InDelta(t, 25.0, stats.Accuracy, 0.001)
	require.InDelta(t, 6.0, stats.AverageElapsed, 0.001)
	require.False(t, stats.Invalid)
}

func TestComputeRoundStatsFlagsEmptyGradedRound(t *testing.T) {
	active := map[uint]bool{10: true, 11: true}

	graded := ComputeRoundStats(RoundRecord{ID: 3, Number: 3, Completed: true}, active, nil)
	require.True(t, graded.Invalid)
	require.False(t, graded.Counts())

	open := ComputeRoundStats(RoundRecord{ID: 4, Number: 4}, active, nil)
	require.False(t, open.Invalid)
	require.False(t, open.Counts())
}

func TestIsInvalidRoundRequiresAllThreeSignals(t *testing.T) {
	require.True(t, IsInvalidRound(RoundStats{Completed: true, AverageElapsed: 9.9}))
	require.False(t, IsInvalidRound(RoundStats{Completed: true, AverageElapsed: 12}))
	require.False(t, IsInvalidRound(RoundStats{Completed: true, ParticipationRate: 50}))
	require.False(t, IsInvalidRound(RoundStats{Completed: true, Accuracy: 10}))
}

func TestComputeClassTotalsSkipsInvalidRounds(t *testing.T) {
	rounds := []RoundStats{
		{Number: 1, Completed: true, Participants: 2, ParticipationRate: 100, Accuracy: 50, AverageElapsed: 10},
		{Number: 2, Completed: true, Participants: 1, ParticipationRate: 50, Accuracy: 50, AverageElapsed: 20},
		{Number: 3, Completed: true, Invalid: true},
		{Number: 4},
	}

	totals := ComputeClassTotals(rounds)
	require.Equal(t, 2, totals.TotalRounds)
	require.Equal(t, []int{3}, totals.InvalidRounds)
	require.InDelta(t, 50.0, totals.AverageAccuracy, 0.001)
	require.InDelta(t, 75.0, totals.AverageParticipation, 0.001)
	require.InDelta(t, 15.0, totals.AverageElapsed, 0.001)
}

func TestRoundStatsPercentagesUseTwoDecimals(t *testing.T) {
	active := map[uint]bool{10: true, 11: true, 12: true}
	submissions := []SubmissionRecord{
		{StudentID: 10, RoundID: 1, Answered: true, IsCorrect: true, ElapsedSeconds: 4},
		{StudentID: 11, RoundID: 1, Answered: true, IsCorrect: true, ElapsedSeconds: 5},
	}

	stats := ComputeRoundStats(RoundRecord{ID: 1, Number: 1, Completed: true}, active, submissions)
	require.Equal(t, 66.67, stats.Accuracy)
	require.Equal(t, 66.67, stats.ParticipationRate)

	totals := ComputeClassTotals([]RoundStats{
		stats,
		{Number: 2, Completed: true, Participants: 1, ParticipationRate: 33.33, AverageElapsed: 12},
		{Number: 3, Completed: true, Participants: 3, ParticipationRate: 100, AverageElapsed: 12},
	})
	require.Equal(t, 22.22, totals.AverageAccuracy)
	require.Equal(t, 66.67, totals.AverageParticipation)
}
