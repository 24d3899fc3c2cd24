package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/noah-isme/gema-quiz-api/internal/dto"
	"github.com/noah-isme/gema-quiz-api/internal/models"
	"github.com/noah-isme/gema-quiz-api/internal/observability"
	"github.com/noah-isme/gema-quiz-api/internal/repository"
)

const gradingTracer = "github.com/noah-isme/gema-quiz-api/internal/service/grading"

// GradingService judges the course's current round against the teacher's answer.
type GradingService interface {
	JudgeRound(ctx context.Context, courseID uint, req dto.JudgeRoundRequest) (dto.JudgeRoundResponse, error)
}

type gradingService struct {
	store     repository.Store
	validator *validator.Validate
	activity  ActivityRecorder
	cache     SnapshotCache
	logger    zerolog.Logger
	now       func() time.Time
}

// NewGradingService constructs the grading engine.
func NewGradingService(store repository.Store, validate *validator.Validate, activity ActivityRecorder, cache SnapshotCache, logger zerolog.Logger) GradingService {
	if cache == nil {
		cache = noopSnapshotCache{}
	}
	return &gradingService{
		store:     store,
		validator: validate,
		activity:  activity,
		cache:     cache,
		logger:    logger.With().Str("component", "grading_service").Logger(),
		now:       time.Now,
	}
}

func (s *gradingService) JudgeRound(ctx context.Context, courseID uint, req dto.JudgeRoundRequest) (dto.JudgeRoundResponse, error) {
	ctx, span := otel.Tracer(gradingTracer).Start(ctx, "grading.judge_round")
	span.SetAttributes(attribute.Int64("course.id", int64(courseID)))
	defer span.End()

	if err := s.validator.Struct(req); err != nil {
		failSpan(span, err, "validation_failed")
		return dto.JudgeRoundResponse{}, err
	}

	correctAnswer := strings.TrimSpace(req.CorrectAnswer)
	if correctAnswer == "" {
		err := validationError("correct answer must not be empty")
		failSpan(span, err, "validation_failed")
		return dto.JudgeRoundResponse{}, err
	}

	pointValue := req.PointValue
	if pointValue == 0 {
		pointValue = models.DefaultPointValue
	}
	if pointValue < 1 {
		err := validationError("point value must be at least 1")
		failSpan(span, err, "validation_failed")
		return dto.JudgeRoundResponse{}, err
	}

	started := time.Now()
	var response dto.JudgeRoundResponse
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		course, err := tx.Courses().GetForUpdate(ctx, courseID)
		if err != nil {
			return mapNotFound(err, ErrCourseNotFound)
		}
		if !course.Active {
			return ErrCourseInactive
		}

		round, err := tx.Rounds().Ensure(ctx, course.ID, course.CurrentRound)
		if err != nil {
			return err
		}
		if round.Completed {
			return ErrRoundAlreadyJudged
		}
		span.SetAttributes(attribute.Int("round.number", round.Number))

		round.CorrectAnswer = &correctAnswer
		submissions, err := tx.Submissions().List(ctx, repository.SubmissionFilter{RoundID: uintPtr(round.ID)})
		if err != nil {
			return err
		}

		correctCount := 0
		for _, submission := range submissions {
			isCorrect := submission.Answered && !submission.HasPenalty() && round.Matches(submission.Answer)
			if isCorrect {
				correctCount++
			}
			if submission.IsCorrect == isCorrect {
				continue
			}
			if err := tx.Submissions().SetCorrect(ctx, submission.ID, isCorrect); err != nil {
				return err
			}
		}

		completed, err := tx.Rounds().Complete(ctx, round.ID, correctAnswer, pointValue, s.now())
		if err != nil {
			return err
		}
		if !completed {
			return ErrRoundAlreadyJudged
		}

		view, err := loadCourseView(ctx, tx, course.ID)
		if err != nil {
			return err
		}
		stats := view.statsFor(round.ID)

		response = dto.JudgeRoundResponse{
			CourseID:      course.ID,
			RoundNumber:   round.Number,
			CorrectAnswer: correctAnswer,
			PointValue:    pointValue,
			Invalid:       stats.Invalid,
			Students:      view.studentSnapshots(),
		}

		if s.activity == nil {
			return nil
		}
		return s.activity.Record(ctx, tx.Activity(), ActivityEntry{
			CourseID:   uintPtr(course.ID),
			Action:     "round.judged",
			EntityType: "round",
			EntityID:   uintPtr(round.ID),
			Metadata: map[string]interface{}{
				"round_number":  round.Number,
				"point_value":   pointValue,
				"submissions":   len(submissions),
				"correct_count": correctCount,
				"invalid":       stats.Invalid,
			},
		})
	})
	observability.JudgeDuration().Observe(time.Since(started).Seconds())

	if err != nil {
		failSpan(span, err, "judge_failed")
		if isDomainError(err) {
			observability.RoundsJudged().WithLabelValues("rejected").Inc()
			return dto.JudgeRoundResponse{}, err
		}
		observability.RoundsJudged().WithLabelValues("failed").Inc()
		s.logger.Error().Err(err).Uint("course_id", courseID).Msg("round judgement rolled back")
		return dto.JudgeRoundResponse{}, fmt.Errorf("%w: %v", ErrGrading, err)
	}

	s.cache.Invalidate(ctx, courseID)
	result := "judged"
	if response.Invalid {
		result = "invalid"
	}
	observability.RoundsJudged().WithLabelValues(result).Inc()
	span.SetAttributes(attribute.Bool("round.invalid", response.Invalid))

	return response, nil
}
