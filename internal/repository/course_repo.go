package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/gema-quiz-api/internal/models"
)

// CourseRepository persists quiz sessions and their attendance snapshots.
type CourseRepository interface {
	Create(ctx context.Context, course *models.Course) error
	GetByID(ctx context.Context, id uint) (models.Course, error)
	// GetForUpdate loads the course and holds its row lock until the surrounding
	// transaction finishes.
	GetForUpdate(ctx context.Context, id uint) (models.Course, error)
	GetActiveByClass(ctx context.Context, classID uint) (models.Course, error)
	DeactivateByClass(ctx context.Context, classID uint, endedAt time.Time) (int64, error)
	End(ctx context.Context, id uint, endedAt time.Time) (bool, error)
	// AdvanceRound moves current_round from expected to expected+1 and reports
	// whether the row still held the expected value.
	AdvanceRound(ctx context.Context, id uint, expected int) (bool, error)
	SetCurrentRound(ctx context.Context, id uint, round int) error
	CreateAttendance(ctx context.Context, entries []models.CourseAttendance) error
	ListAttendance(ctx context.Context, courseID uint) ([]models.CourseAttendance, error)
}

type courseRepository struct {
	db *gorm.DB
}

// NewCourseRepository constructs a course repository.
func NewCourseRepository(db *gorm.DB) CourseRepository {
	return &courseRepository{db: db}
}

func (r *courseRepository) Create(ctx context.Context, course *models.Course) error {
	return translateError(r.db.WithContext(ctx).Omit("Class").Create(course).Error)
}

func (r *courseRepository) GetByID(ctx context.Context, id uint) (models.Course, error) {
	var course models.Course
	if err := r.db.WithContext(ctx).First(&course, id).Error; err != nil {
		return models.Course{}, err
	}

	return course, nil
}

func (r *courseRepository) GetForUpdate(ctx context.Context, id uint) (models.Course, error) {
	var course models.Course
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&course, id).Error; err != nil {
		return models.Course{}, err
	}

	return course, nil
}

func (r *courseRepository) GetActiveByClass(ctx context.Context, classID uint) (models.Course, error) {
	var course models.Course
	if err := r.db.WithContext(ctx).
		Where("class_id = ?", classID).
		Where("active = ?", true).
		First(&course).Error; err != nil {
		return models.Course{}, err
	}

	return course, nil
}

func (r *courseRepository) DeactivateByClass(ctx context.Context, classID uint, endedAt time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Course{}).
		Where("class_id = ?", classID).
		Where("active = ?", true).
		Updates(map[string]interface{}{"active": false, "ended_at": endedAt})

	return result.RowsAffected, result.Error
}

func (r *courseRepository) End(ctx context.Context, id uint, endedAt time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Course{}).
		Where("id = ?", id).
		Where("active = ?", true).
		Updates(map[string]interface{}{"active": false, "ended_at": endedAt})

	return result.RowsAffected > 0, result.Error
}

func (r *courseRepository) AdvanceRound(ctx context.Context, id uint, expected int) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Course{}).
		Where("id = ?", id).
		Where("current_round = ?", expected).
		Update("current_round", gorm.Expr("current_round + ?", 1))

	return result.RowsAffected == 1, result.Error
}

func (r *courseRepository) SetCurrentRound(ctx context.Context, id uint, round int) error {
	return r.db.WithContext(ctx).
		Model(&models.Course{}).
		Where("id = ?", id).
		Update("current_round", round).Error
}

func (r *courseRepository) CreateAttendance(ctx context.Context, entries []models.CourseAttendance) error {
	if len(entries) == 0 {
		return nil
	}
	return translateError(r.db.WithContext(ctx).Create(&entries).Error)
}

func (r *courseRepository) ListAttendance(ctx context.Context, courseID uint) ([]models.CourseAttendance, error) {
	var entries []models.CourseAttendance
	if err := r.db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("student_id ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}

	return entries, nil
}
