package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-quiz-api/internal/dto"
	"github.com/noah-isme/gema-quiz-api/internal/repository"
	"github.com/noah-isme/gema-quiz-api/internal/scoring"
)

// SessionQueryService assembles read views of a running or finished course.
type SessionQueryService interface {
	GetClassroomSnapshot(ctx context.Context, courseID uint) (dto.ClassroomSnapshot, error)
	GetStudentReport(ctx context.Context, studentID, courseID uint) (dto.StudentReport, error)
	GetRoundStats(ctx context.Context, courseID uint, roundNumber int) (dto.RoundStatsResponse, error)
}

type sessionQueryService struct {
	store       repository.Store
	aggregation AggregationService
	cache       SnapshotCache
	logger      zerolog.Logger
	now         func() time.Time
}

// NewSessionQueryService constructs the read façade.
func NewSessionQueryService(store repository.Store, aggregation AggregationService, cache SnapshotCache, logger zerolog.Logger) SessionQueryService {
	if cache == nil {
		cache = noopSnapshotCache{}
	}
	return &sessionQueryService{
		store:       store,
		aggregation: aggregation,
		cache:       cache,
		logger:      logger.With().Str("component", "session_query_service").Logger(),
		now:         time.Now,
	}
}

func (s *sessionQueryService) GetClassroomSnapshot(ctx context.Context, courseID uint) (dto.ClassroomSnapshot, error) {
	cached, generation, ok := s.cache.Get(ctx, courseID)
	if ok {
		return cached, nil
	}

	view, err := readCourseView(ctx, s.store, courseID)
	if err != nil {
		return dto.ClassroomSnapshot{}, err
	}

	snapshot := dto.ClassroomSnapshot{
		CourseID:     view.course.ID,
		ClassID:      view.course.ClassID,
		CourseName:   view.course.Name,
		Active:       view.course.Active,
		CurrentRound: view.course.CurrentRound,
		ClassTotals:  view.classTotals(),
		Students:     view.studentSnapshots(),
		GeneratedAt:  s.now().UTC(),
	}

	current, ok := view.roundByNumber(view.course.CurrentRound)
	snapshot.RoundInProgress = view.course.Active && !(ok && current.Completed)
	if ok {
		for _, submission := range view.submissions {
			if submission.RoundID == current.ID && submission.Answered && view.active[submission.StudentID] {
				snapshot.CurrentRoundSubmissions++
			}
		}
	}

	s.cache.Set(ctx, generation, snapshot)

	return snapshot, nil
}

func (s *sessionQueryService) GetStudentReport(ctx context.Context, studentID, courseID uint) (dto.StudentReport, error) {
	view, err := readCourseView(ctx, s.store, courseID)
	if err != nil {
		return dto.StudentReport{}, err
	}

	student, ok := view.student(studentID)
	if !ok {
		return dto.StudentReport{}, ErrStudentNotFound
	}

	totals := view.studentTotals(studentID)
	classTotals := view.classTotals()

	report := dto.StudentReport{
		StudentID:         student.ID,
		StudentName:       student.Name,
		CourseID:          view.course.ID,
		CourseName:        view.course.Name,
		Score:             totals.Score,
		RawScore:          totals.RawScore,
		PenaltyTotal:      totals.PenaltyTotal,
		Accuracy:          totals.Accuracy,
		ParticipationRate: totals.ParticipationRate,
		TotalRounds:       totals.TotalRounds,
		AttemptedRounds:   totals.AttemptedRounds,
		CorrectRounds:     totals.CorrectRounds,
		MissedRounds:      totals.MissedRounds,
		AverageElapsed:    totals.AverageElapsed,
		ClassAverages: dto.ClassAverages{
			TotalRounds:       classTotals.TotalRounds,
			Accuracy:          classTotals.AverageAccuracy,
			ParticipationRate: classTotals.AverageParticipation,
			AverageElapsed:    classTotals.AverageElapsed,
		},
		Rounds:      make([]dto.RoundBreakdown, 0, len(view.rounds)),
		GeneratedAt: s.now().UTC(),
	}

	var speedSamples []scoring.SpeedSample
	for _, round := range view.rounds {
		stats := view.statsFor(round.ID)
		row := dto.RoundBreakdown{
			Number:              round.Number,
			Completed:           round.Completed,
			InProgress:          view.course.Active && !round.Completed && round.Number == view.course.CurrentRound,
			Invalid:             stats.Invalid,
			CorrectAnswer:       round.CorrectAnswer,
			PointValue:          round.Points(),
			ClassAccuracy:       stats.Accuracy,
			ClassAverageElapsed: stats.AverageElapsed,
		}

		if submission, found := view.submissionFor(studentID, round.ID); found {
			row.PenaltyTotal = submission.PenaltyTotal
			if submission.Answered {
				row.Submitted = true
				row.Answer = submission.Answer
				row.ElapsedSeconds = submission.ElapsedSeconds
				row.IsCorrect = round.Completed && submission.IsCorrect && !submission.HasPenalty()
				row.SpeedLevel = scoring.ClassifySpeed(submission.ElapsedSeconds, stats.AverageElapsed)
				if row.IsCorrect && stats.Counts() {
					row.PointsEarned = round.Points()
				}
				if stats.Counts() {
					speedSamples = append(speedSamples, scoring.SpeedSample{
						Elapsed:      submission.ElapsedSeconds,
						ClassAverage: stats.AverageElapsed,
					})
				}
			}
		}

		report.Rounds = append(report.Rounds, row)
	}
	report.SpeedLevel = scoring.ClassifyOverallSpeed(speedSamples)

	return report, nil
}

func (s *sessionQueryService) GetRoundStats(ctx context.Context, courseID uint, roundNumber int) (dto.RoundStatsResponse, error) {
	if roundNumber < 1 {
		return dto.RoundStatsResponse{}, validationError("round number must be positive")
	}
	return s.aggregation.ClassRoundStats(ctx, courseID, roundNumber)
}
