package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-quiz-api/internal/models"
)

// RoundRepository persists the rounds of a course.
type RoundRepository interface {
	Create(ctx context.Context, round *models.Round) error
	GetByNumber(ctx context.Context, courseID uint, number int) (models.Round, error)
	// Ensure returns the round with the given number, creating an ungraded one when absent.
	Ensure(ctx context.Context, courseID uint, number int) (models.Round, error)
	ListByCourse(ctx context.Context, courseID uint) ([]models.Round, error)
	// Complete stores the judged answer and flips completed, only if the round was still open.
	Complete(ctx context.Context, id uint, correctAnswer string, pointValue int, completedAt time.Time) (bool, error)
	UpdateNumber(ctx context.Context, id uint, number int) error
}

type roundRepository struct {
	db *gorm.DB
}

// NewRoundRepository constructs a round repository.
func NewRoundRepository(db *gorm.DB) RoundRepository {
	return &roundRepository{db: db}
}

func (r *roundRepository) Create(ctx context.Context, round *models.Round) error {
	if round.PointValue <= 0 {
		round.PointValue = models.DefaultPointValue
	}
	return translateError(r.db.WithContext(ctx).Omit("Course").Create(round).Error)
}

func (r *roundRepository) GetByNumber(ctx context.Context, courseID uint, number int) (models.Round, error) {
	var round models.Round
	if err := r.db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Where("number = ?", number).
		First(&round).Error; err != nil {
		return models.Round{}, err
	}

	return round, nil
}

func (r *roundRepository) Ensure(ctx context.Context, courseID uint, number int) (models.Round, error) {
	round, err := r.GetByNumber(ctx, courseID, number)
	if err == nil {
		return round, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Round{}, err
	}

	round = models.Round{CourseID: courseID, Number: number, PointValue: models.DefaultPointValue}
	if err := r.Create(ctx, &round); err != nil {
		return models.Round{}, err
	}

	return round, nil
}

func (r *roundRepository) ListByCourse(ctx context.Context, courseID uint) ([]models.Round, error) {
	var rounds []models.Round
	if err := r.db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("number ASC").
		Order("created_at ASC").
		Order("id ASC").
		Find(&rounds).Error; err != nil {
		return nil, err
	}

	return rounds, nil
}

func (r *roundRepository) Complete(ctx context.Context, id uint, correctAnswer string, pointValue int, completedAt time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Round{}).
		Where("id = ?", id).
		Where("completed = ?", false).
		Updates(map[string]interface{}{
			"correct_answer": correctAnswer,
			"point_value":    pointValue,
			"completed":      true,
			"completed_at":   completedAt,
		})

	return result.RowsAffected == 1, result.Error
}

func (r *roundRepository) UpdateNumber(ctx context.Context, id uint, number int) error {
	return translateError(r.db.WithContext(ctx).
		Model(&models.Round{}).
		Where("id = ?", id).
		Update("number", number).Error)
}
