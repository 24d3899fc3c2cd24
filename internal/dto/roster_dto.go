package dto

import (
	"time"

	"github.com/noah-isme/gema-quiz-api/internal/models"
)

// CreateClassRequest registers a class roster.
type CreateClassRequest struct {
	Name string `json:"name" validate:"required,max=255"`
}

// AddStudentRequest enrols a student in a class.
type AddStudentRequest struct {
	Name string `json:"name" validate:"required,max=255"`
}

// UpdateStudentStatusRequest toggles a student between active and absent.
type UpdateStudentStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=active absent"`
}

// ClassResponse describes a class.
type ClassResponse struct {
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// NewClassResponse maps a class model.
func NewClassResponse(class models.Class) ClassResponse {
	return ClassResponse{ID: class.ID, Name: class.Name, CreatedAt: class.CreatedAt}
}

// StudentResponse describes a student.
type StudentResponse struct {
	ID        uint      `json:"id"`
	ClassID   uint      `json:"class_id"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// NewStudentResponse maps a student model.
func NewStudentResponse(student models.Student) StudentResponse {
	return StudentResponse{
		ID:        student.ID,
		ClassID:   student.ClassID,
		Name:      student.Name,
		Status:    student.Status,
		CreatedAt: student.CreatedAt,
	}
}

// ActivityResponse serialises an audit entry.
type ActivityResponse struct {
	ID         uint                   `json:"id"`
	CourseID   *uint                  `json:"course_id"`
	Action     string                 `json:"action"`
	EntityType string                 `json:"entity_type"`
	EntityID   *uint                  `json:"entity_id"`
	Metadata   map[string]interface{} `json:"metadata"`
	CreatedAt  time.Time              `json:"created_at"`
}

// NewActivityResponse maps an activity log model.
func NewActivityResponse(entry models.ActivityLog) ActivityResponse {
	metadata := map[string]interface{}{}
	for key, value := range entry.Metadata {
		metadata[key] = value
	}

	return ActivityResponse{
		ID:         entry.ID,
		CourseID:   entry.CourseID,
		Action:     entry.Action,
		EntityType: entry.EntityType,
		EntityID:   entry.EntityID,
		Metadata:   metadata,
		CreatedAt:  entry.CreatedAt,
	}
}
