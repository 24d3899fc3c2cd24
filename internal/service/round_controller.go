package service

import (
	"context"
	"errors"
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

const roundControllerTracer = "github.com/noah-isme/gema-quiz-api/internal/service/round_controller"

// RoundController drives a course through its rounds and accepts answers.
type RoundController interface {
	StartCourse(ctx context.Context, req dto.StartCourseRequest) (dto.CourseResponse, error)
	SubmitAnswer(ctx context.Context, courseID uint, req dto.SubmitAnswerRequest) (dto.SubmissionAcceptedResponse, error)
	AdvanceRound(ctx context.Context, courseID uint) (dto.AdvanceRoundResponse, error)
	EndCourse(ctx context.Context, courseID uint) (dto.CourseResponse, error)
	MarkBehavior(ctx context.Context, courseID uint, req dto.BehaviorMarkRequest) (dto.BehaviorMarkResponse, error)
	RepairRounds(ctx context.Context, courseID uint) (dto.RepairRoundsResponse, error)
}

type roundController struct {
	store     repository.Store
	validator *validator.Validate
	activity  ActivityRecorder
	cache     SnapshotCache
	sanitizer textSanitizer
	logger    zerolog.Logger
	now       func() time.Time
}

// NewRoundController constructs the round controller.
func NewRoundController(store repository.Store, validate *validator.Validate, activity ActivityRecorder, cache SnapshotCache, logger zerolog.Logger) RoundController {
	if cache == nil {
		cache = noopSnapshotCache{}
	}
	return &roundController{
		store:     store,
		validator: validate,
		activity:  activity,
		cache:     cache,
		sanitizer: newTextSanitizer(),
		logger:    logger.With().Str("component", "round_controller").Logger(),
		now:       time.Now,
	}
}

func (s *roundController) StartCourse(ctx context.Context, req dto.StartCourseRequest) (dto.CourseResponse, error) {
	ctx, span := otel.Tracer(roundControllerTracer).Start(ctx, "round.start_course")
	span.SetAttributes(attribute.Int64("course.class_id", int64(req.ClassID)))
	defer span.End()

	if err := s.validator.Struct(req); err != nil {
		failSpan(span, err, "validation_failed")
		return dto.CourseResponse{}, err
	}

	if _, err := s.store.Classes().GetByID(ctx, req.ClassID); err != nil {
		failSpan(span, err, "class_lookup_failed")
		return dto.CourseResponse{}, mapNotFound(err, ErrClassNotFound)
	}

	startedAt := s.now()
	name := s.sanitizer.Clean(req.Name)
	if name == "" {
		name = fmt.Sprintf("Class session %s", startedAt.Format("2006/01/02 15:04:05"))
	}

	var (
		course     models.Course
		attendance int
		previous   *uint
	)
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		active, err := tx.Courses().GetActiveByClass(ctx, req.ClassID)
		switch {
		case err == nil:
			previous = uintPtr(active.ID)
		case !isNotFound(err):
			return err
		}

		if _, err := tx.Courses().DeactivateByClass(ctx, req.ClassID, startedAt); err != nil {
			return err
		}

		course = models.Course{
			ClassID:      req.ClassID,
			Name:         name,
			Active:       true,
			CurrentRound: 1,
			StartedAt:    startedAt,
		}
		if err := tx.Courses().Create(ctx, &course); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return ErrConflict
			}
			return err
		}

		if err := tx.Rounds().Create(ctx, &models.Round{CourseID: course.ID, Number: 1}); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return ErrConflict
			}
			return err
		}

		students, err := tx.Students().ListActiveByClass(ctx, req.ClassID)
		if err != nil {
			return err
		}
		entries := make([]models.CourseAttendance, 0, len(students))
		for _, student := range students {
			entries = append(entries, models.CourseAttendance{
				CourseID:  course.ID,
				StudentID: student.ID,
				Status:    student.Status,
			})
		}
		if err := tx.Courses().CreateAttendance(ctx, entries); err != nil {
			return err
		}
		attendance = len(entries)

		return s.record(ctx, tx, ActivityEntry{
			CourseID:   uintPtr(course.ID),
			Action:     "course.started",
			EntityType: "course",
			EntityID:   uintPtr(course.ID),
			Metadata: map[string]interface{}{
				"class_id":        req.ClassID,
				"attendance":      attendance,
				"replaced_course": previous,
			},
		})
	})
	if err != nil {
		failSpan(span, err, "start_failed")
		s.logger.Error().Err(err).Uint("class_id", req.ClassID).Msg("failed to start course")
		return dto.CourseResponse{}, err
	}

	if previous != nil {
		s.cache.Invalidate(ctx, *previous)
	}
	observability.RoundTransitions().WithLabelValues("start").Inc()
	span.SetAttributes(attribute.Int64("course.id", int64(course.ID)))

	return dto.NewCourseResponse(course, attendance), nil
}

func (s *roundController) SubmitAnswer(ctx context.Context, courseID uint, req dto.SubmitAnswerRequest) (dto.SubmissionAcceptedResponse, error) {
	ctx, span := otel.Tracer(roundControllerTracer).Start(ctx, "round.submit_answer")
	span.SetAttributes(
		attribute.Int64("course.id", int64(courseID)),
		attribute.Int64("student.id", int64(req.StudentID)),
	)
	defer span.End()

	if err := s.validator.Struct(req); err != nil {
		failSpan(span, err, "validation_failed")
		observability.Submissions().WithLabelValues("invalid").Inc()
		return dto.SubmissionAcceptedResponse{}, err
	}

	answer := strings.TrimSpace(req.Answer)
	if answer == "" {
		err := validationError("answer must not be empty")
		failSpan(span, err, "validation_failed")
		observability.Submissions().WithLabelValues("invalid").Inc()
		return dto.SubmissionAcceptedResponse{}, err
	}
	if req.ElapsedSeconds < 0 {
		err := validationError("elapsed seconds must not be negative")
		failSpan(span, err, "validation_failed")
		observability.Submissions().WithLabelValues("invalid").Inc()
		return dto.SubmissionAcceptedResponse{}, err
	}

	var response dto.SubmissionAcceptedResponse
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		course, err := tx.Courses().GetForUpdate(ctx, courseID)
		if err != nil {
			return mapNotFound(err, ErrCourseNotFound)
		}

		student, err := loadParticipant(ctx, tx, course, req.StudentID)
		if err != nil {
			return err
		}
		if !course.Active {
			return ErrCourseInactive
		}

		round, err := tx.Rounds().Ensure(ctx, course.ID, course.CurrentRound)
		if err != nil {
			return err
		}
		if round.Completed {
			return ErrRoundClosed
		}

		var submissionID uint
		existing, err := tx.Submissions().GetByStudentAndRound(ctx, student.ID, round.ID)
		switch {
		case err == nil:
			if existing.Answered {
				return ErrDuplicateSubmission
			}
			filled, err := tx.Submissions().FillAnswer(ctx, student.ID, round.ID, answer, req.ElapsedSeconds)
			if err != nil {
				return err
			}
			if !filled {
				return ErrDuplicateSubmission
			}
			submissionID = existing.ID
		case isNotFound(err):
			submission := models.Submission{
				StudentID:      student.ID,
				RoundID:        round.ID,
				CourseID:       course.ID,
				Answer:         answer,
				Answered:       true,
				ElapsedSeconds: req.ElapsedSeconds,
			}
			if err := tx.Submissions().Create(ctx, &submission); err != nil {
				if errors.Is(err, repository.ErrDuplicate) {
					return ErrDuplicateSubmission
				}
				return err
			}
			submissionID = submission.ID
		default:
			return err
		}

		response = dto.SubmissionAcceptedResponse{
			Accepted:     true,
			SubmissionID: submissionID,
			CourseID:     course.ID,
			RoundNumber:  round.Number,
		}

		return s.record(ctx, tx, ActivityEntry{
			CourseID:   uintPtr(course.ID),
			Action:     "answer.submitted",
			EntityType: "submission",
			EntityID:   uintPtr(submissionID),
			Metadata: map[string]interface{}{
				"student_id":      student.ID,
				"round_number":    round.Number,
				"elapsed_seconds": req.ElapsedSeconds,
			},
		})
	})
	if err != nil {
		failSpan(span, err, "submit_failed")
		observability.Submissions().WithLabelValues(submissionResult(err)).Inc()
		if !isDomainError(err) {
			s.logger.Error().Err(err).Uint("course_id", courseID).Uint("student_id", req.StudentID).Msg("failed to store answer")
		}
		return dto.SubmissionAcceptedResponse{}, err
	}

	s.cache.Invalidate(ctx, courseID)
	observability.Submissions().WithLabelValues("accepted").Inc()
	span.SetAttributes(attribute.Int("round.number", response.RoundNumber))

	return response, nil
}

func (s *roundController) AdvanceRound(ctx context.Context, courseID uint) (dto.AdvanceRoundResponse, error) {
	ctx, span := otel.Tracer(roundControllerTracer).Start(ctx, "round.advance")
	span.SetAttributes(attribute.Int64("course.id", int64(courseID)))
	defer span.End()

	var response dto.AdvanceRoundResponse
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		course, err := tx.Courses().GetForUpdate(ctx, courseID)
		if err != nil {
			return mapNotFound(err, ErrCourseNotFound)
		}
		if !course.Active {
			return ErrCourseInactive
		}

		if _, err := tx.Rounds().Ensure(ctx, course.ID, course.CurrentRound); err != nil {
			return err
		}

		advanced, err := tx.Courses().AdvanceRound(ctx, course.ID, course.CurrentRound)
		if err != nil {
			return err
		}
		if !advanced {
			return ErrConflict
		}

		next := course.CurrentRound + 1
		if _, err := tx.Rounds().Ensure(ctx, course.ID, next); err != nil {
			return err
		}

		view, err := loadCourseView(ctx, tx, course.ID)
		if err != nil {
			return err
		}
		response = dto.AdvanceRoundResponse{
			CourseID:       course.ID,
			NewRoundNumber: view.course.CurrentRound,
			Students:       view.studentSnapshots(),
		}

		return s.record(ctx, tx, ActivityEntry{
			CourseID:   uintPtr(course.ID),
			Action:     "round.advanced",
			EntityType: "course",
			EntityID:   uintPtr(course.ID),
			Metadata:   map[string]interface{}{"from": course.CurrentRound, "to": next},
		})
	})
	if err != nil {
		failSpan(span, err, "advance_failed")
		if !isDomainError(err) {
			s.logger.Error().Err(err).Uint("course_id", courseID).Msg("failed to advance round")
		}
		return dto.AdvanceRoundResponse{}, err
	}

	s.cache.Invalidate(ctx, courseID)
	observability.RoundTransitions().WithLabelValues("advance").Inc()
	span.SetAttributes(attribute.Int("round.number", response.NewRoundNumber))

	return response, nil
}

func (s *roundController) EndCourse(ctx context.Context, courseID uint) (dto.CourseResponse, error) {
	ctx, span := otel.Tracer(roundControllerTracer).Start(ctx, "round.end_course")
	span.SetAttributes(attribute.Int64("course.id", int64(courseID)))
	defer span.End()

	var (
		course     models.Course
		attendance int
	)
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		locked, err := tx.Courses().GetForUpdate(ctx, courseID)
		if err != nil {
			return mapNotFound(err, ErrCourseNotFound)
		}
		if !locked.Active {
			return ErrCourseInactive
		}

		ended, err := tx.Courses().End(ctx, locked.ID, s.now())
		if err != nil {
			return err
		}
		if !ended {
			return ErrConflict
		}

		if course, err = tx.Courses().GetByID(ctx, locked.ID); err != nil {
			return err
		}
		entries, err := tx.Courses().ListAttendance(ctx, locked.ID)
		if err != nil {
			return err
		}
		attendance = len(entries)

		return s.record(ctx, tx, ActivityEntry{
			CourseID:   uintPtr(locked.ID),
			Action:     "course.ended",
			EntityType: "course",
			EntityID:   uintPtr(locked.ID),
			Metadata:   map[string]interface{}{"rounds": locked.CurrentRound},
		})
	})
	if err != nil {
		failSpan(span, err, "end_failed")
		if !isDomainError(err) {
			s.logger.Error().Err(err).Uint("course_id", courseID).Msg("failed to end course")
		}
		return dto.CourseResponse{}, err
	}

	s.cache.Invalidate(ctx, courseID)
	observability.RoundTransitions().WithLabelValues("end").Inc()

	return dto.NewCourseResponse(course, attendance), nil
}

func (s *roundController) MarkBehavior(ctx context.Context, courseID uint, req dto.BehaviorMarkRequest) (dto.BehaviorMarkResponse, error) {
	ctx, span := otel.Tracer(roundControllerTracer).Start(ctx, "round.mark_behavior")
	span.SetAttributes(
		attribute.Int64("course.id", int64(courseID)),
		attribute.Int64("student.id", int64(req.StudentID)),
		attribute.String("behavior.kind", req.Kind),
	)
	defer span.End()

	if err := s.validator.Struct(req); err != nil {
		failSpan(span, err, "validation_failed")
		return dto.BehaviorMarkResponse{}, err
	}

	kind := models.BehaviorKind(req.Kind)
	if _, err := kind.Penalty(); err != nil {
		failSpan(span, err, "validation_failed")
		return dto.BehaviorMarkResponse{}, validationError("%v", err)
	}

	var response dto.BehaviorMarkResponse
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		course, err := tx.Courses().GetForUpdate(ctx, courseID)
		if err != nil {
			return mapNotFound(err, ErrCourseNotFound)
		}

		student, err := loadParticipant(ctx, tx, course, req.StudentID)
		if err != nil {
			return err
		}
		if !course.Active {
			return ErrCourseInactive
		}

		round, err := tx.Rounds().Ensure(ctx, course.ID, course.CurrentRound)
		if err != nil {
			return err
		}

		submission, err := tx.Submissions().GetByStudentAndRound(ctx, student.ID, round.ID)
		created := false
		switch {
		case err == nil:
		case isNotFound(err):
			submission = models.Submission{
				StudentID: student.ID,
				RoundID:   round.ID,
				CourseID:  course.ID,
			}
			created = true
		default:
			return err
		}

		applied, err := submission.ApplyBehavior(kind)
		if err != nil {
			return validationError("%v", err)
		}

		if created {
			if err := tx.Submissions().Create(ctx, &submission); err != nil {
				if errors.Is(err, repository.ErrDuplicate) {
					return ErrConflict
				}
				return err
			}
		} else if err := tx.Submissions().Update(ctx, &submission); err != nil {
			return err
		}

		response = dto.BehaviorMarkResponse{
			CourseID:       course.ID,
			StudentID:      student.ID,
			RoundNumber:    round.Number,
			Kind:           string(kind),
			PenaltyApplied: applied,
			PenaltyTotal:   submission.PenaltyTotal,
		}

		return s.record(ctx, tx, ActivityEntry{
			CourseID:   uintPtr(course.ID),
			Action:     "behavior.marked",
			EntityType: "submission",
			EntityID:   uintPtr(submission.ID),
			Metadata: map[string]interface{}{
				"student_id":   student.ID,
				"round_number": round.Number,
				"kind":         string(kind),
				"penalty":      applied,
			},
		})
	})
	if err != nil {
		failSpan(span, err, "mark_failed")
		if !isDomainError(err) {
			s.logger.Error().Err(err).Uint("course_id", courseID).Uint("student_id", req.StudentID).Msg("failed to mark behavior")
		}
		return dto.BehaviorMarkResponse{}, err
	}

	s.cache.Invalidate(ctx, courseID)
	observability.BehaviorMarks().WithLabelValues(string(kind)).Inc()

	return response, nil
}

func (s *roundController) RepairRounds(ctx context.Context, courseID uint) (dto.RepairRoundsResponse, error) {
	ctx, span := otel.Tracer(roundControllerTracer).Start(ctx, "round.repair")
	span.SetAttributes(attribute.Int64("course.id", int64(courseID)))
	defer span.End()

	var response dto.RepairRoundsResponse
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		course, err := tx.Courses().GetForUpdate(ctx, courseID)
		if err != nil {
			return mapNotFound(err, ErrCourseNotFound)
		}

		rounds, err := tx.Rounds().ListByCourse(ctx, course.ID)
		if err != nil {
			return err
		}

		current := repairedCurrentRound(course.CurrentRound, rounds)

		// Park renumbered rows on negative numbers first so the unique
		// (course_id, number) index never sees two rows with the same target.
		renumbered := 0
		for i := range rounds {
			if rounds[i].Number == i+1 {
				continue
			}
			if err := tx.Rounds().UpdateNumber(ctx, rounds[i].ID, -(i + 1)); err != nil {
				return err
			}
			renumbered++
		}
		for i := range rounds {
			if rounds[i].Number == i+1 {
				continue
			}
			if err := tx.Rounds().UpdateNumber(ctx, rounds[i].ID, i+1); err != nil {
				return err
			}
			rounds[i].Number = i + 1
		}

		if current > len(rounds) {
			if _, err := tx.Rounds().Ensure(ctx, course.ID, current); err != nil {
				return err
			}
		}
		if current != course.CurrentRound {
			if err := tx.Courses().SetCurrentRound(ctx, course.ID, current); err != nil {
				return err
			}
		}

		rejudged := 0
		for _, round := range rounds {
			if !round.IsGraded() {
				continue
			}
			submissions, err := tx.Submissions().List(ctx, repository.SubmissionFilter{RoundID: uintPtr(round.ID)})
			if err != nil {
				return err
			}
			for _, submission := range submissions {
				want := submission.Answered && !submission.HasPenalty() && round.Matches(submission.Answer)
				if submission.IsCorrect == want {
					continue
				}
				if err := tx.Submissions().SetCorrect(ctx, submission.ID, want); err != nil {
					return err
				}
				rejudged++
			}
		}

		response = dto.RepairRoundsResponse{
			CourseID:     course.ID,
			Rounds:       maxInt(len(rounds), current),
			Renumbered:   renumbered,
			Rejudged:     rejudged,
			CurrentRound: current,
		}

		return s.record(ctx, tx, ActivityEntry{
			CourseID:   uintPtr(course.ID),
			Action:     "rounds.repaired",
			EntityType: "course",
			EntityID:   uintPtr(course.ID),
			Metadata: map[string]interface{}{
				"renumbered":    renumbered,
				"rejudged":      rejudged,
				"current_round": current,
			},
		})
	})
	if err != nil {
		failSpan(span, err, "repair_failed")
		if !isDomainError(err) {
			s.logger.Error().Err(err).Uint("course_id", courseID).Msg("failed to repair rounds")
		}
		return dto.RepairRoundsResponse{}, err
	}

	s.cache.Invalidate(ctx, courseID)
	observability.RoundTransitions().WithLabelValues("repair").Inc()
	s.logger.Info().
		Uint("course_id", courseID).
		Int("renumbered", response.Renumbered).
		Int("rejudged", response.Rejudged).
		Msg("rounds repaired")

	return response, nil
}

func (s *roundController) record(ctx context.Context, tx repository.Store, entry ActivityEntry) error {
	if s.activity == nil {
		return nil
	}
	return s.activity.Record(ctx, tx.Activity(), entry)
}

// repairedCurrentRound maps the stored current round onto the renumbered
// sequence. rounds must already be in repair order.
func repairedCurrentRound(current int, rounds []models.Round) int {
	mapped := 0
	for i, round := range rounds {
		if round.Number == current {
			mapped = i + 1
		}
	}
	if mapped > 0 {
		return mapped
	}
	if len(rounds) == 0 {
		return 1
	}
	if rounds[len(rounds)-1].Completed {
		return len(rounds) + 1
	}
	return len(rounds)
}

func submissionResult(err error) string {
	switch {
	case errors.Is(err, ErrDuplicateSubmission):
		return "duplicate"
	case errors.Is(err, ErrInactiveStudent):
		return "inactive"
	case errors.Is(err, ErrRoundClosed):
		return "closed"
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrConflict):
		return "rejected"
	default:
		return "error"
	}
}

// isDomainError reports whether err is an expected rejection rather than a
// datastore failure.
func isDomainError(err error) bool {
	var validationErrs validator.ValidationErrors
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrDuplicateSubmission) ||
		errors.Is(err, ErrInactiveStudent) ||
		errors.Is(err, ErrConflict) ||
		errors.As(err, &validationErrs)
}
