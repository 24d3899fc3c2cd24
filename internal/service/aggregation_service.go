package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-quiz-api/internal/dto"
	"github.com/noah-isme/gema-quiz-api/internal/models"
	"github.com/noah-isme/gema-quiz-api/internal/repository"
	"github.com/noah-isme/gema-quiz-api/internal/scoring"
)

// AggregationService derives statistics from stored rounds and submissions. No
// score is ever read from a running counter; every call recomputes from rows.
type AggregationService interface {
	StudentTotals(ctx context.Context, studentID, courseID uint) (scoring.StudentTotals, error)
	ClassRoundStats(ctx context.Context, courseID uint, roundNumber int) (dto.RoundStatsResponse, error)
	IsInvalidRound(ctx context.Context, courseID uint, roundNumber int) (bool, error)
	ClassTotals(ctx context.Context, courseID uint) (scoring.ClassTotals, error)
}

type aggregationService struct {
	store  repository.Store
	logger zerolog.Logger
}

// NewAggregationService constructs the aggregation engine.
func NewAggregationService(store repository.Store, logger zerolog.Logger) AggregationService {
	return &aggregationService{
		store:  store,
		logger: logger.With().Str("component", "aggregation_service").Logger(),
	}
}

func (s *aggregationService) StudentTotals(ctx context.Context, studentID, courseID uint) (scoring.StudentTotals, error) {
	view, err := readCourseView(ctx, s.store, courseID)
	if err != nil {
		return scoring.StudentTotals{}, err
	}
	if _, ok := view.student(studentID); !ok {
		return scoring.StudentTotals{}, ErrStudentNotFound
	}

	return view.studentTotals(studentID), nil
}

func (s *aggregationService) ClassRoundStats(ctx context.Context, courseID uint, roundNumber int) (dto.RoundStatsResponse, error) {
	view, err := readCourseView(ctx, s.store, courseID)
	if err != nil {
		return dto.RoundStatsResponse{}, err
	}

	round, ok := view.roundByNumber(roundNumber)
	if !ok {
		return dto.RoundStatsResponse{}, ErrRoundNotFound
	}

	return dto.RoundStatsResponse{
		RoundStats:    view.statsFor(round.ID),
		CorrectAnswer: round.CorrectAnswer,
		PointValue:    round.Points(),
	}, nil
}

func (s *aggregationService) IsInvalidRound(ctx context.Context, courseID uint, roundNumber int) (bool, error) {
	stats, err := s.ClassRoundStats(ctx, courseID, roundNumber)
	if err != nil {
		return false, err
	}
	return stats.Invalid, nil
}

func (s *aggregationService) ClassTotals(ctx context.Context, courseID uint) (scoring.ClassTotals, error) {
	view, err := readCourseView(ctx, s.store, courseID)
	if err != nil {
		return scoring.ClassTotals{}, err
	}
	return view.classTotals(), nil
}

// courseView holds everything statistics need for one course. Load it with
// readCourseView, or with loadCourseView from inside an open transaction, so all
// rows come from one committed state.
type courseView struct {
	course      models.Course
	students    []models.Student
	active      map[uint]bool
	rounds      []models.Round
	submissions []models.Submission

	roundRecords      []scoring.RoundRecord
	submissionRecords []scoring.SubmissionRecord
	stats             []scoring.RoundStats
	statsByRound      map[uint]scoring.RoundStats
}

// readCourseView loads the view inside a read snapshot of the store.
func readCourseView(ctx context.Context, store repository.Store, courseID uint) (courseView, error) {
	var view courseView
	err := store.ReadSnapshot(ctx, func(tx repository.Store) error {
		loaded, err := loadCourseView(ctx, tx, courseID)
		if err != nil {
			return err
		}
		view = loaded
		return nil
	})
	return view, err
}

func loadCourseView(ctx context.Context, store repository.Store, courseID uint) (courseView, error) {
	course, err := store.Courses().GetByID(ctx, courseID)
	if err != nil {
		return courseView{}, mapNotFound(err, ErrCourseNotFound)
	}
	return loadCourseViewFor(ctx, store, course)
}

func loadCourseViewFor(ctx context.Context, store repository.Store, course models.Course) (courseView, error) {
	students, err := store.Students().ListByClass(ctx, course.ClassID)
	if err != nil {
		return courseView{}, err
	}

	rounds, err := store.Rounds().ListByCourse(ctx, course.ID)
	if err != nil {
		return courseView{}, err
	}

	submissions, err := store.Submissions().List(ctx, repository.SubmissionFilter{CourseID: uintPtr(course.ID)})
	if err != nil {
		return courseView{}, err
	}

	return newCourseView(course, students, rounds, submissions), nil
}

func newCourseView(course models.Course, students []models.Student, rounds []models.Round, submissions []models.Submission) courseView {
	view := courseView{
		course:       course,
		students:     students,
		active:       make(map[uint]bool, len(students)),
		rounds:       rounds,
		submissions:  submissions,
		statsByRound: make(map[uint]scoring.RoundStats, len(rounds)),
	}

	for _, student := range students {
		if student.IsActive() {
			view.active[student.ID] = true
		}
	}

	view.roundRecords = make([]scoring.RoundRecord, 0, len(rounds))
	for _, round := range rounds {
		view.roundRecords = append(view.roundRecords, scoring.RoundRecord{
			ID:         round.ID,
			Number:     round.Number,
			PointValue: round.Points(),
			Completed:  round.Completed,
		})
	}

	view.submissionRecords = make([]scoring.SubmissionRecord, 0, len(submissions))
	for _, submission := range submissions {
		view.submissionRecords = append(view.submissionRecords, scoring.SubmissionRecord{
			StudentID:      submission.StudentID,
			RoundID:        submission.RoundID,
			Answer:         submission.Answer,
			Answered:       submission.Answered,
			IsCorrect:      submission.IsCorrect,
			ElapsedSeconds: submission.ElapsedSeconds,
			Penalty:        submission.PenaltyTotal,
			Marked:         submission.HasPenalty(),
		})
	}

	view.stats = make([]scoring.RoundStats, 0, len(rounds))
	for _, record := range view.roundRecords {
		stats := scoring.ComputeRoundStats(record, view.active, view.submissionRecords)
		view.stats = append(view.stats, stats)
		view.statsByRound[record.ID] = stats
	}

	return view
}

func (v courseView) student(id uint) (models.Student, bool) {
	for _, student := range v.students {
		if student.ID == id {
			return student, true
		}
	}
	return models.Student{}, false
}

func (v courseView) roundByNumber(number int) (models.Round, bool) {
	for _, round := range v.rounds {
		if round.Number == number {
			return round, true
		}
	}
	return models.Round{}, false
}

func (v courseView) statsFor(roundID uint) scoring.RoundStats {
	return v.statsByRound[roundID]
}

func (v courseView) submissionFor(studentID, roundID uint) (models.Submission, bool) {
	for _, submission := range v.submissions {
		if submission.StudentID == studentID && submission.RoundID == roundID {
			return submission, true
		}
	}
	return models.Submission{}, false
}

func (v courseView) studentTotals(studentID uint) scoring.StudentTotals {
	return scoring.ComputeStudentTotals(studentID, v.roundRecords, v.stats, v.submissionRecords)
}

func (v courseView) classTotals() scoring.ClassTotals {
	return scoring.ComputeClassTotals(v.stats)
}

// studentSnapshots builds the per-student live state for active students.
func (v courseView) studentSnapshots() []dto.StudentSnapshot {
	current, hasCurrent := v.roundByNumber(v.course.CurrentRound)

	snapshots := make([]dto.StudentSnapshot, 0, len(v.active))
	for _, student := range v.students {
		if !student.IsActive() {
			continue
		}

		totals := v.studentTotals(student.ID)
		snapshot := dto.StudentSnapshot{
			StudentID:         student.ID,
			Name:              student.Name,
			Status:            student.Status,
			Score:             totals.Score,
			RawScore:          totals.RawScore,
			PenaltyTotal:      totals.PenaltyTotal,
			TotalRounds:       totals.TotalRounds,
			AttemptedRounds:   totals.AttemptedRounds,
			CorrectRounds:     totals.CorrectRounds,
			Accuracy:          totals.Accuracy,
			ParticipationRate: totals.ParticipationRate,
			LastAnswer:        totals.LastAnswer,
			LastElapsed:       totals.LastElapsed,
			Expression:        dto.ExpressionNeutral,
		}

		if last, ok := v.roundByNumber(totals.LastRound); ok && totals.LastRound > 0 {
			snapshot.SpeedLevel = scoring.ClassifySpeed(totals.LastElapsed, v.statsFor(last.ID).AverageElapsed)
		}

		if hasCurrent {
			submission, submitted := v.submissionFor(student.ID, current.ID)
			snapshot.AnsweredCurrentRound = submitted && submission.Answered
			if current.Completed {
				switch {
				case !snapshot.AnsweredCurrentRound:
					snapshot.Expression = dto.ExpressionEmbarrassed
				case submission.IsCorrect && !submission.HasPenalty():
					snapshot.Expression = dto.ExpressionSmile
				default:
					snapshot.Expression = dto.ExpressionAngry
				}
			}
		}

		snapshots = append(snapshots, snapshot)
	}

	return snapshots
}
