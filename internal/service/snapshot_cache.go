package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-quiz-api/internal/dto"
)

// SnapshotCache holds recently assembled classroom snapshots. It is an optimisation
// only: every mutation of a course invalidates its entry.
//
// Entries are keyed by a per-course generation. Get reports the generation current
// at lookup time, and Set stores under that generation, so a snapshot assembled
// before an Invalidate lands under a key no reader will look up again.
type SnapshotCache interface {
	Get(ctx context.Context, courseID uint) (dto.ClassroomSnapshot, int64, bool)
	Set(ctx context.Context, generation int64, snapshot dto.ClassroomSnapshot)
	Invalidate(ctx context.Context, courseID uint)
}

// noGeneration marks a lookup whose generation could not be read; Set ignores it.
const noGeneration int64 = -1

type redisSnapshotCache struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewSnapshotCache returns a Redis-backed cache, or a no-op cache when client is nil.
func NewSnapshotCache(client *redis.Client, ttl time.Duration, logger zerolog.Logger) SnapshotCache {
	if client == nil || ttl <= 0 {
		return noopSnapshotCache{}
	}
	return &redisSnapshotCache{
		client: client,
		ttl:    ttl,
		logger: logger.With().Str("component", "snapshot_cache").Logger(),
	}
}

func generationKey(courseID uint) string {
	return fmt.Sprintf("classroom:course:%d:generation", courseID)
}

func snapshotKey(courseID uint, generation int64) string {
	return fmt.Sprintf("classroom:course:%d:g%d", courseID, generation)
}

func (c *redisSnapshotCache) generation(ctx context.Context, courseID uint) (int64, error) {
	generation, err := c.client.Get(ctx, generationKey(courseID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return generation, err
}

func (c *redisSnapshotCache) Get(ctx context.Context, courseID uint) (dto.ClassroomSnapshot, int64, bool) {
	generation, err := c.generation(ctx, courseID)
	if err != nil {
		c.logger.Warn().Err(err).Uint("course_id", courseID).Msg("failed to read snapshot generation")
		return dto.ClassroomSnapshot{}, noGeneration, false
	}

	cached, err := c.client.Get(ctx, snapshotKey(courseID, generation)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn().Err(err).Uint("course_id", courseID).Msg("failed to read snapshot cache")
		}
		return dto.ClassroomSnapshot{}, generation, false
	}

	var snapshot dto.ClassroomSnapshot
	if err := json.Unmarshal([]byte(cached), &snapshot); err != nil {
		c.logger.Warn().Err(err).Uint("course_id", courseID).Msg("discarding corrupt snapshot cache entry")
		return dto.ClassroomSnapshot{}, generation, false
	}

	return snapshot, generation, true
}

func (c *redisSnapshotCache) Set(ctx context.Context, generation int64, snapshot dto.ClassroomSnapshot) {
	if generation < 0 {
		return
	}
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, snapshotKey(snapshot.CourseID, generation), payload, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Uint("course_id", snapshot.CourseID).Msg("failed to store snapshot cache")
	}
}

func (c *redisSnapshotCache) Invalidate(ctx context.Context, courseID uint) {
	generation, err := c.client.Incr(ctx, generationKey(courseID)).Result()
	if err != nil {
		c.logger.Warn().Err(err).Uint("course_id", courseID).Msg("failed to invalidate snapshot cache")
		return
	}
	if err := c.client.Del(ctx, snapshotKey(courseID, generation-1)).Err(); err != nil {
		c.logger.Warn().Err(err).Uint("course_id", courseID).Msg("failed to drop superseded snapshot")
	}
}

type noopSnapshotCache struct{}

func (noopSnapshotCache) Get(context.Context, uint) (dto.ClassroomSnapshot, int64, bool) {
	return dto.ClassroomSnapshot{}, noGeneration, false
}

func (noopSnapshotCache) Set(context.Context, int64, dto.ClassroomSnapshot) {}

func (noopSnapshotCache) Invalidate(context.Context, uint) {}
