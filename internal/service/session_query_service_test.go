package service

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-quiz-api/internal/dto"
	"github.com/noah-isme/gema-quiz-api/internal/models"
	"github.com/noah-isme/gema-quiz-api/internal/scoring"
)

func TestClassroomSnapshotReflectsCurrentRound(t *testing.T) {
	fx := newClassroomFixture(t, nil, "Ana", "Budi", "Citra")
	course := fx.start(t)
	ctx := context.Background()

	fx.submit(t, course.ID, fx.students[0], "4", 2)
	fx.submit(t, course.ID, fx.students[1], "5", 6)

	snapshot, err := fx.queries.GetClassroomSnapshot(ctx, course.ID)
	require.NoError(t, err)
	require.Equal(t, course.ID, snapshot.CourseID)
	require.Equal(t, 1, snapshot.CurrentRound)
	require.True(t, snapshot.RoundInProgress)
	require.Equal(t, 2, snapshot.CurrentRoundSubmissions)
	require.Len(t, snapshot.Students, 3)

	ana := findStudent(t, snapshot.Students, fx.students[0])
	require.True(t, ana.AnsweredCurrentRound)
	require.Equal(t, "4", ana.LastAnswer)
	require.Equal(t, scoring.SpeedVeryFast, ana.SpeedLevel)

	citra := findStudent(t, snapshot.Students, fx.students[2])
	require.False(t, citra.AnsweredCurrentRound)
	require.Equal(t, scoring.SpeedUnknown, citra.SpeedLevel)

	fx.judge(t, course.ID, "4")
	snapshot, err = fx.queries.GetClassroomSnapshot(ctx, course.ID)
	require.NoError(t, err)
	require.False(t, snapshot.RoundInProgress)
	require.Equal(t, 1, snapshot.ClassTotals.TotalRounds)
}

func TestClassroomSnapshotExcludesAbsentStudents(t *testing.T) {
	fx := newClassroomFixture(t, nil, "Ana", "Budi")
	course := fx.start(t)
	ctx := context.Background()

	fx.submit(t, course.ID, fx.students[1], "4", 3)
	_, err := fx.roster.UpdateStudentStatus(ctx, fx.students[1], dto.UpdateStudentStatusRequest{Status: models.StudentStatusAbsent})
	require.NoError(t, err)

	snapshot, err := fx.queries.GetClassroomSnapshot(ctx, course.ID)
	require.NoError(t, err)
	require.Len(t, snapshot.Students, 1)
	require.Equal(t, fx.students[0], snapshot.Students[0].StudentID)
	require.Zero(t, snapshot.CurrentRoundSubmissions)
}

func TestClassroomSnapshotCacheIsInvalidatedOnMutation(t *testing.T) {
	mini := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	cache := NewSnapshotCache(client, time.Minute, testLogger())

	fx := newClassroomFixture(t, cache, "Ana")
	course := fx.start(t)
	ctx := context.Background()

	first, err := fx.queries.GetClassroomSnapshot(ctx, course.ID)
	require.NoError(t, err)
	require.True(t, mini.Exists(snapshotKey(course.ID, 0)))

	cached, err := fx.queries.GetClassroomSnapshot(ctx, course.ID)
	require.NoError(t, err)
	require.Equal(t, first.GeneratedAt.UnixNano(), cached.GeneratedAt.UnixNano())

	fx.submit(t, course.ID, fx.students[0], "4", 3)
	require.False(t, mini.Exists(snapshotKey(course.ID, 0)))
	generation, err := mini.Get(generationKey(course.ID))
	require.NoError(t, err)
	require.Equal(t, "1", generation)

	fresh, err := fx.queries.GetClassroomSnapshot(ctx, course.ID)
	require.NoError(t, err)
	require.Equal(t, 1, fresh.CurrentRoundSubmissions)
	require.True(t, mini.Exists(snapshotKey(course.ID, 1)))
}

// interleavedCache runs beforeSet between a reader's datastore load and its cache
// write, once.
type interleavedCache struct {
	SnapshotCache
	beforeSet func()
}

func (c *interleavedCache) Set(ctx context.Context, generation int64, snapshot dto.ClassroomSnapshot) {
	if c.beforeSet != nil {
		hook := c.beforeSet
		c.beforeSet = nil
		hook()
	}
	c.SnapshotCache.Set(ctx, generation, snapshot)
}

func TestClassroomSnapshotIgnoresWriteRacingAMutation(t *testing.T) {
	mini := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	cache := NewSnapshotCache(client, time.Minute, testLogger())

	fx := newClassroomFixture(t, cache, "Ana")
	course := fx.start(t)
	ctx := context.Background()

	racing := &interleavedCache{
		SnapshotCache: cache,
		beforeSet: func() {
			fx.submit(t, course.ID, fx.students[0], "4", 3)
		},
	}
	queries := NewSessionQueryService(fx.store, fx.aggregation, racing, testLogger())

	stale, err := queries.GetClassroomSnapshot(ctx, course.ID)
	require.NoError(t, err)
	require.Zero(t, stale.CurrentRoundSubmissions)

	fresh, err := queries.GetClassroomSnapshot(ctx, course.ID)
	require.NoError(t, err)
	require.Equal(t, 1, fresh.CurrentRoundSubmissions)
	require.True(t, findStudent(t, fresh.Students, fx.students[0]).AnsweredCurrentRound)
}

func TestSnapshotCacheTTL(t *testing.T) {
	mini := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	cache := NewSnapshotCache(client, 5*time.Second, testLogger())
	ctx := context.Background()

	_, generation, ok := cache.Get(ctx, 42)
	require.False(t, ok)
	require.Zero(t, generation)

	cache.Set(ctx, generation, dto.ClassroomSnapshot{CourseID: 42, CourseName: "Fractions"})
	got, _, ok := cache.Get(ctx, 42)
	require.True(t, ok)
	require.Equal(t, "Fractions", got.CourseName)

	mini.FastForward(6 * time.Second)
	_, _, ok = cache.Get(ctx, 42)
	require.False(t, ok)

	require.NoError(t, mini.Set(snapshotKey(7, 0), "{not json"))
	_, _, ok = cache.Get(ctx, 7)
	require.False(t, ok)
}

func TestSnapshotCacheDropsWritesFromSupersededGeneration(t *testing.T) {
	mini := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	cache := NewSnapshotCache(client, time.Minute, testLogger())
	ctx := context.Background()

	_, seen, ok := cache.Get(ctx, 9)
	require.False(t, ok)

	cache.Invalidate(ctx, 9)
	cache.Set(ctx, seen, dto.ClassroomSnapshot{CourseID: 9, CourseName: "stale"})

	_, generation, ok := cache.Get(ctx, 9)
	require.False(t, ok)
	require.Equal(t, int64(1), generation)
}

func TestNewSnapshotCacheWithoutClientIsNoop(t *testing.T) {
	cache := NewSnapshotCache(nil, time.Minute, testLogger())
	_, generation, _ := cache.Get(context.Background(), 1)
	cache.Set(context.Background(), generation, dto.ClassroomSnapshot{CourseID: 1})
	_, _, ok := cache.Get(context.Background(), 1)
	require.False(t, ok)
}

func TestStudentReportBreakdown(t *testing.T) {
	fx := newClassroomFixture(t, nil, "Ana", "Budi")
	course := fx.start(t)
	ctx := context.Background()

	fx.submit(t, course.ID, fx.students[0], "4", 3)
	fx.submit(t, course.ID, fx.students[1], "4", 9)
	fx.judge(t, course.ID, "4")

	_, err := fx.rounds.AdvanceRound(ctx, course.ID)
	require.NoError(t, err)
	fx.submit(t, course.ID, fx.students[1], "8", 5)
	fx.judge(t, course.ID, "8")

	_, err = fx.rounds.AdvanceRound(ctx, course.ID)
	require.NoError(t, err)

	report, err := fx.queries.GetStudentReport(ctx, fx.students[0], course.ID)
	require.NoError(t, err)
	require.Equal(t, "Ana", report.StudentName)
	require.Equal(t, 2, report.TotalRounds)
	require.Equal(t, 1, report.CorrectRounds)
	require.Equal(t, 1, report.MissedRounds)
	require.Equal(t, 1, report.Score)
	require.InDelta(t, 50.0, report.Accuracy, 0.001)
	require.InDelta(t, 50.0, report.ParticipationRate, 0.001)
	require.Equal(t, 2, report.ClassAverages.TotalRounds)
	require.InDelta(t, 75.0, report.ClassAverages.Accuracy, 0.001)

	require.Len(t, report.Rounds, 3)
	require.True(t, report.Rounds[0].Submitted)
	require.True(t, report.Rounds[0].IsCorrect)
	require.Equal(t, 1, report.Rounds[0].PointsEarned)
	require.Equal(t, scoring.SpeedVeryFast, report.Rounds[0].SpeedLevel)
	require.False(t, report.Rounds[1].Submitted)
	require.True(t, report.Rounds[2].InProgress)
	require.False(t, report.Rounds[2].Completed)
}

func TestStudentReportOverallSpeedUsesGradedRoundsOnly(t *testing.T) {
	fx := newClassroomFixture(t, nil, "Ana", "Budi")
	course := fx.start(t)
	ctx := context.Background()

	fx.submit(t, course.ID, fx.students[0], "4", 3)
	fx.submit(t, course.ID, fx.students[1], "4", 9)
	fx.judge(t, course.ID, "4")

	_, err := fx.rounds.AdvanceRound(ctx, course.ID)
	require.NoError(t, err)
	fx.submit(t, course.ID, fx.students[0], "8", 90)

	report, err := fx.queries.GetStudentReport(ctx, fx.students[0], course.ID)
	require.NoError(t, err)
	require.Equal(t, scoring.SpeedVeryFast, report.SpeedLevel)
	require.True(t, report.Rounds[1].InProgress)
	require.Equal(t, 90.0, report.Rounds[1].ElapsedSeconds)

	budi, err := fx.queries.GetStudentReport(ctx, fx.students[1], course.ID)
	require.NoError(t, err)
	require.Equal(t, scoring.SpeedVerySlow, budi.SpeedLevel)
}

func TestStudentReportUnknownStudent(t *testing.T) {
	fx := newClassroomFixture(t, nil, "Ana")
	course := fx.start(t)

	_, err := fx.queries.GetStudentReport(context.Background(), 999, course.ID)
	require.ErrorIs(t, err, ErrStudentNotFound)

	_, err = fx.queries.GetStudentReport(context.Background(), fx.students[0], 999)
	require.ErrorIs(t, err, ErrCourseNotFound)
}

func TestGetRoundStats(t *testing.T) {
	fx := newClassroomFixture(t, nil, "Ana")
	course := fx.start(t)
	ctx := context.Background()

	_, err := fx.queries.GetRoundStats(ctx, course.ID, 0)
	require.ErrorIs(t, err, ErrValidation)

	_, err = fx.queries.GetRoundStats(ctx, course.ID, 5)
	require.ErrorIs(t, err, ErrRoundNotFound)

	stats, err := fx.queries.GetRoundStats(ctx, course.ID, 1)
	require.NoError(t, err)
	require.False(t, stats.Completed)
	require.Nil(t, stats.CorrectAnswer)
	require.Equal(t, 1, stats.ActiveStudents)
}
