package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-quiz-api/internal/dto"
	"github.com/noah-isme/gema-quiz-api/internal/models"
	"github.com/noah-isme/gema-quiz-api/internal/repository"
)

// RosterService manages classes and their students.
type RosterService interface {
	CreateClass(ctx context.Context, req dto.CreateClassRequest) (dto.ClassResponse, error)
	AddStudent(ctx context.Context, classID uint, req dto.AddStudentRequest) (dto.StudentResponse, error)
	UpdateStudentStatus(ctx context.Context, studentID uint, req dto.UpdateStudentStatusRequest) (dto.StudentResponse, error)
	ListStudents(ctx context.Context, classID uint) ([]dto.StudentResponse, error)
}

type rosterService struct {
	store     repository.Store
	validator *validator.Validate
	cache     SnapshotCache
	sanitizer textSanitizer
	logger    zerolog.Logger
}

// NewRosterService constructs the roster service.
func NewRosterService(store repository.Store, validate *validator.Validate, cache SnapshotCache, logger zerolog.Logger) RosterService {
	if cache == nil {
		cache = noopSnapshotCache{}
	}
	return &rosterService{
		store:     store,
		validator: validate,
		cache:     cache,
		sanitizer: newTextSanitizer(),
		logger:    logger.With().Str("component", "roster_service").Logger(),
	}
}

func (s *rosterService) CreateClass(ctx context.Context, req dto.CreateClassRequest) (dto.ClassResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.ClassResponse{}, err
	}

	name := s.sanitizer.Clean(req.Name)
	if name == "" {
		return dto.ClassResponse{}, validationError("class name must not be empty")
	}

	class := models.Class{Name: name}
	if err := s.store.Classes().Create(ctx, &class); err != nil {
		s.logger.Error().Err(err).Str("name", name).Msg("failed to create class")
		return dto.ClassResponse{}, err
	}

	return dto.NewClassResponse(class), nil
}

func (s *rosterService) AddStudent(ctx context.Context, classID uint, req dto.AddStudentRequest) (dto.StudentResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.StudentResponse{}, err
	}

	name := s.sanitizer.Clean(req.Name)
	if name == "" {
		return dto.StudentResponse{}, validationError("student name must not be empty")
	}

	if _, err := s.store.Classes().GetByID(ctx, classID); err != nil {
		return dto.StudentResponse{}, mapNotFound(err, ErrClassNotFound)
	}

	student := models.Student{ClassID: classID, Name: name, Status: models.StudentStatusActive}
	if err := s.store.Students().Create(ctx, &student); err != nil {
		s.logger.Error().Err(err).Uint("class_id", classID).Msg("failed to add student")
		return dto.StudentResponse{}, err
	}

	s.invalidateActiveCourse(ctx, classID)

	return dto.NewStudentResponse(student), nil
}

func (s *rosterService) UpdateStudentStatus(ctx context.Context, studentID uint, req dto.UpdateStudentStatusRequest) (dto.StudentResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.StudentResponse{}, err
	}

	student, err := s.store.Students().UpdateStatus(ctx, studentID, req.Status)
	if err != nil {
		return dto.StudentResponse{}, mapNotFound(err, ErrStudentNotFound)
	}

	s.invalidateActiveCourse(ctx, student.ClassID)
	s.logger.Info().Uint("student_id", studentID).Str("status", req.Status).Msg("student status updated")

	return dto.NewStudentResponse(student), nil
}

func (s *rosterService) ListStudents(ctx context.Context, classID uint) ([]dto.StudentResponse, error) {
	if _, err := s.store.Classes().GetByID(ctx, classID); err != nil {
		return nil, mapNotFound(err, ErrClassNotFound)
	}

	students, err := s.store.Students().ListByClass(ctx, classID)
	if err != nil {
		return nil, err
	}

	items := make([]dto.StudentResponse, 0, len(students))
	for _, student := range students {
		items = append(items, dto.NewStudentResponse(student))
	}
	return items, nil
}

// invalidateActiveCourse drops the cached snapshot of the class's running course
// since its student list changed.
func (s *rosterService) invalidateActiveCourse(ctx context.Context, classID uint) {
	course, err := s.store.Courses().GetActiveByClass(ctx, classID)
	if err != nil {
		if !isNotFound(err) {
			s.logger.Warn().Err(err).Uint("class_id", classID).Msg("failed to resolve active course")
		}
		return
	}
	s.cache.Invalidate(ctx, course.ID)
}
