package models

import (
	"time"

	"gorm.io/datatypes"
)

// ActivityLog captures auditable classroom events such as judging and behaviour marks.
type ActivityLog struct {
	ID         uint              `gorm:"primaryKey" json:"id"`
	CourseID   *uint             `gorm:"index" json:"course_id"`
	Action     string            `gorm:"size:64;not null" json:"action"`
	EntityType string            `gorm:"size:64;not null" json:"entity_type"`
	EntityID   *uint             `json:"entity_id"`
	Metadata   datatypes.JSONMap `gorm:"type:json" json:"metadata"`
	CreatedAt  time.Time         `json:"created_at"`
}
