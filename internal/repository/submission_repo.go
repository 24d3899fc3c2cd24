package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-quiz-api/internal/models"
)

// SubmissionFilter allows narrowing submission queries.
type SubmissionFilter struct {
	CourseID  *uint
	RoundID   *uint
	StudentID *uint
}

// SubmissionRepository defines data operations for submissions.
type SubmissionRepository interface {
	List(ctx context.Context, filter SubmissionFilter) ([]models.Submission, error)
	GetByStudentAndRound(ctx context.Context, studentID, roundID uint) (models.Submission, error)
	// Create inserts the row; a second row for the same (student, round) yields ErrDuplicate.
	Create(ctx context.Context, submission *models.Submission) error
	// FillAnswer records an answer on a row that so far only carries behaviour marks.
	FillAnswer(ctx context.Context, studentID, roundID uint, answer string, elapsedSeconds float64) (bool, error)
	Update(ctx context.Context, submission *models.Submission) error
	SetCorrect(ctx context.Context, id uint, isCorrect bool) error
}

type submissionRepository struct {
	db *gorm.DB
}

// NewSubmissionRepository instantiates the repository.
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) List(ctx context.Context, filter SubmissionFilter) ([]models.Submission, error) {
	query := r.db.WithContext(ctx).Model(&models.Submission{})

	if filter.CourseID != nil {
		query = query.Where("course_id = ?", *filter.CourseID)
	}

	if filter.RoundID != nil {
		query = query.Where("round_id = ?", *filter.RoundID)
	}

	if filter.StudentID != nil {
		query = query.Where("student_id = ?", *filter.StudentID)
	}

	var submissions []models.Submission
	if err := query.Order("created_at ASC").Order("id ASC").Find(&submissions).Error; err != nil {
		return nil, err
	}

	return submissions, nil
}

func (r *submissionRepository) GetByStudentAndRound(ctx context.Context, studentID, roundID uint) (models.Submission, error) {
	var submission models.Submission
	if err := r.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Where("round_id = ?", roundID).
		First(&submission).Error; err != nil {
		return models.Submission{}, err
	}

	return submission, nil
}

func (r *submissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	return translateError(r.db.WithContext(ctx).Omit("Round", "Student").Create(submission).Error)
}

func (r *submissionRepository) FillAnswer(ctx context.Context, studentID, roundID uint, answer string, elapsedSeconds float64) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Submission{}).
		Where("student_id = ?", studentID).
		Where("round_id = ?", roundID).
		Where("answered = ?", false).
		Updates(map[string]interface{}{
			"answer":          answer,
			"answered":        true,
			"elapsed_seconds": elapsedSeconds,
		})

	return result.RowsAffected == 1, result.Error
}

func (r *submissionRepository) Update(ctx context.Context, submission *models.Submission) error {
	return r.db.WithContext(ctx).Omit("Round", "Student").Save(submission).Error
}

func (r *submissionRepository) SetCorrect(ctx context.Context, id uint, isCorrect bool) error {
	return r.db.WithContext(ctx).
		Model(&models.Submission{}).
		Where("id = ?", id).
		Update("is_correct", isCorrect).Error
}
