package service

import (
	"context"
	"errors"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-quiz-api/internal/models"
	"github.com/noah-isme/gema-quiz-api/internal/repository"
)

// textSanitizer strips markup from class, student and course names. Answer text
// is stored verbatim and never passes through it.
type textSanitizer struct {
	policy *bluemonday.Policy
}

func newTextSanitizer() textSanitizer {
	return textSanitizer{policy: bluemonday.StrictPolicy()}
}

func (s textSanitizer) Clean(input string) string {
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(input)))
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// mapNotFound replaces gorm's not-found error with target and passes others through.
func mapNotFound(err error, target error) error {
	if isNotFound(err) {
		return target
	}
	return err
}

func uintPtr(v uint) *uint {
	return &v
}

func failSpan(span trace.Span, err error, status string) {
	span.RecordError(err)
	span.SetStatus(codes.Error, status)
}

// loadParticipant resolves a student of the course's class that may take part in rounds.
func loadParticipant(ctx context.Context, store repository.Store, course models.Course, studentID uint) (models.Student, error) {
	student, err := store.Students().GetByID(ctx, studentID)
	if err != nil {
		return models.Student{}, mapNotFound(err, ErrStudentNotFound)
	}
	if student.ClassID != course.ClassID {
		return models.Student{}, ErrStudentNotFound
	}
	if !student.IsActive() {
		return models.Student{}, ErrInactiveStudent
	}
	return student, nil
}
