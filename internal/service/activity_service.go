package service

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"github.com/noah-isme/gema-quiz-api/internal/dto"
	"github.com/noah-isme/gema-quiz-api/internal/models"
	"github.com/noah-isme/gema-quiz-api/internal/repository"
)

// ActivityEntry captures the details required to persist an audit entry.
type ActivityEntry struct {
	CourseID   *uint
	Action     string
	EntityType string
	EntityID   *uint
	Metadata   map[string]interface{}
}

// ActivityRecorder records classroom events. Implementations write through the
// repository they are given, so a recorder built on a transaction-bound store
// commits or rolls back with it.
type ActivityRecorder interface {
	Record(ctx context.Context, repo repository.ActivityLogRepository, entry ActivityEntry) error
}

// ActivityListRequest pages through a course's audit trail.
type ActivityListRequest struct {
	CourseID uint
	Action   string
	Page     int
	PageSize int
}

// ActivityListResponse is a page of audit entries.
type ActivityListResponse struct {
	Items      []dto.ActivityResponse `json:"items"`
	Page       int                    `json:"page"`
	PageSize   int                    `json:"page_size"`
	TotalItems int64                  `json:"total_items"`
	TotalPages int                    `json:"total_pages"`
}

// ActivityService exposes methods to query and persist the classroom audit trail.
type ActivityService interface {
	ActivityRecorder
	List(ctx context.Context, req ActivityListRequest) (ActivityListResponse, error)
}

type activityService struct {
	store  repository.Store
	logger zerolog.Logger
}

// NewActivityService constructs the activity log service.
func NewActivityService(store repository.Store, logger zerolog.Logger) ActivityService {
	return &activityService{
		store:  store,
		logger: logger.With().Str("component", "activity_service").Logger(),
	}
}

func (s *activityService) Record(ctx context.Context, repo repository.ActivityLogRepository, entry ActivityEntry) error {
	if strings.TrimSpace(entry.Action) == "" {
		return fmt.Errorf("action is required")
	}
	if strings.TrimSpace(entry.EntityType) == "" {
		return fmt.Errorf("entity type is required")
	}
	if repo == nil {
		repo = s.store.Activity()
	}

	model := models.ActivityLog{
		CourseID:   entry.CourseID,
		Action:     strings.ToLower(strings.TrimSpace(entry.Action)),
		EntityType: strings.ToLower(strings.TrimSpace(entry.EntityType)),
		EntityID:   entry.EntityID,
		Metadata:   toJSONMap(entry.Metadata),
	}

	if err := repo.Create(ctx, &model); err != nil {
		s.logger.Error().Err(err).Str("action", model.Action).Msg("failed to persist activity log")
		return err
	}

	return nil
}

func (s *activityService) List(ctx context.Context, req ActivityListRequest) (ActivityListResponse, error) {
	if req.CourseID == 0 {
		return ActivityListResponse{}, validationError("course id is required")
	}
	if req.PageSize <= 0 {
		req.PageSize = 50
	}

	filter := repository.ActivityLogFilter{
		Page:     req.Page,
		PageSize: req.PageSize,
		CourseID: uintPtr(req.CourseID),
		Action:   strings.ToLower(strings.TrimSpace(req.Action)),
	}

	entries, total, err := s.store.Activity().List(ctx, filter)
	if err != nil {
		return ActivityListResponse{}, err
	}

	items := make([]dto.ActivityResponse, 0, len(entries))
	for _, entry := range entries {
		items = append(items, dto.NewActivityResponse(entry))
	}

	return ActivityListResponse{
		Items:      items,
		Page:       maxInt(req.Page, 1),
		PageSize:   req.PageSize,
		TotalItems: total,
		TotalPages: int(math.Ceil(float64(total) / float64(req.PageSize))),
	}, nil
}

func toJSONMap(metadata map[string]interface{}) datatypes.JSONMap {
	result := datatypes.JSONMap{}
	for key, value := range metadata {
		result[key] = value
	}
	return result
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
