package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-quiz-api/internal/database"
	"github.com/noah-isme/gema-quiz-api/internal/models"
)

func setupStore(t *testing.T) Store {
	t.Helper()

	db, err := database.Connect(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	return NewStore(db)
}

func seedCourse(t *testing.T, store Store) (models.Class, models.Course) {
	t.Helper()
	ctx := context.Background()

	class := models.Class{Name: "8B"}
	require.NoError(t, store.Classes().Create(ctx, &class))

	course := models.Course{ClassID: class.ID, Name: "Fractions", Active: true, CurrentRound: 1, StartedAt: time.Now()}
	require.NoError(t, store.Courses().Create(ctx, &course))

	return class, course
}

func TestCourseRepositoryOneActiveCoursePerClass(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	class, first := seedCourse(t, store)

	second := models.Course{ClassID: class.ID, Name: "Decimals", Active: true, CurrentRound: 1, StartedAt: time.Now()}
	err := store.Courses().Create(ctx, &second)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrDuplicate))

	affected, err := store.Courses().DeactivateByClass(ctx, class.ID, time.Now())
	require.NoError(t, err)
	require.Equal(t, int64(1), affected)

	second.ID = 0
	require.NoError(t, store.Courses().Create(ctx, &second))

	active, err := store.Courses().GetActiveByClass(ctx, class.ID)
	require.NoError(t, err)
	require.Equal(t, second.ID, active.ID)

	stale, err := store.Courses().GetByID(ctx, first.ID)
	require.NoError(t, err)
	require.False(t, stale.Active)
	require.NotNil(t, stale.EndedAt)
}

func TestCourseRepositoryAdvanceRoundGuard(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	_, course := seedCourse(t, store)

	moved, err := store.Courses().AdvanceRound(ctx, course.ID, 1)
	require.NoError(t, err)
	require.True(t, moved)

	moved, err = store.Courses().AdvanceRound(ctx, course.ID, 1)
	require.NoError(t, err)
	require.False(t, moved, "a stale expected round must not advance the course")

	reloaded, err := store.Courses().GetForUpdate(ctx, course.ID)
	require.NoError(t, err)
	require.Equal(t, 2, reloaded.CurrentRound)
}

func TestCourseRepositoryEndOnlyOnce(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	_, course := seedCourse(t, store)

	ended, err := store.Courses().End(ctx, course.ID, time.Now())
	require.NoError(t, err)
	require.True(t, ended)

	ended, err = store.Courses().End(ctx, course.ID, time.Now())
	require.NoError(t, err)
	require.False(t, ended)
}

func TestRoundRepositoryEnsureAndComplete(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	_, course := seedCourse(t, store)

	round, err := store.Rounds().Ensure(ctx, course.ID, 1)
	require.NoError(t, err)
	require.NotZero(t, round.ID)
	require.Nil(t, round.CorrectAnswer)
	require.Equal(t, models.DefaultPointValue, round.PointValue)

	again, err := store.Rounds().Ensure(ctx, course.ID, 1)
	require.NoError(t, err)
	require.Equal(t, round.ID, again.ID)

	done, err := store.Rounds().Complete(ctx, round.ID, "Paris", 2, time.Now())
	require.NoError(t, err)
	require.True(t, done)

	done, err = store.Rounds().Complete(ctx, round.ID, "Rome", 5, time.Now())
	require.NoError(t, err)
	require.False(t, done, "a completed round must keep its first judgement")

	stored, err := store.Rounds().GetByNumber(ctx, course.ID, 1)
	require.NoError(t, err)
	require.True(t, stored.IsGraded())
	require.Equal(t, "Paris", *stored.CorrectAnswer)
	require.Equal(t, 2, stored.PointValue)
	require.True(t, stored.Matches("  paris "))
}

func TestRoundRepositoryDuplicateNumber(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	_, course := seedCourse(t, store)

	require.NoError(t, store.Rounds().Create(ctx, &models.Round{CourseID: course.ID, Number: 1}))
	err := store.Rounds().Create(ctx, &models.Round{CourseID: course.ID, Number: 1})
	require.ErrorIs(t, err, ErrDuplicate)
}

func TestSubmissionRepositoryDuplicateAndFillAnswer(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	class, course := seedCourse(t, store)

	student := models.Student{ClassID: class.ID, Name: "Ana", Status: models.StudentStatusActive}
	require.NoError(t, store.Students().Create(ctx, &student))

	round, err := store.Rounds().Ensure(ctx, course.ID, 1)
	require.NoError(t, err)

	marker := models.Submission{StudentID: student.ID, RoundID: round.ID, CourseID: course.ID}
	_, err = marker.ApplyBehavior(models.BehaviorCopy)
	require.NoError(t, err)
	require.NoError(t, store.Submissions().Create(ctx, &marker))

	duplicate := models.Submission{StudentID: student.ID, RoundID: round.ID, CourseID: course.ID, Answer: "4", Answered: true}
	require.ErrorIs(t, store.Submissions().Create(ctx, &duplicate), ErrDuplicate)

	filled, err := store.Submissions().FillAnswer(ctx, student.ID, round.ID, "4", 3.5)
	require.NoError(t, err)
	require.True(t, filled)

	filled, err = store.Submissions().FillAnswer(ctx, student.ID, round.ID, "5", 1)
	require.NoError(t, err)
	require.False(t, filled, "an answered row must not be overwritten")

	stored, err := store.Submissions().GetByStudentAndRound(ctx, student.ID, round.ID)
	require.NoError(t, err)
	require.Equal(t, "4", stored.Answer)
	require.True(t, stored.Answered)
	require.Equal(t, 3.5, stored.ElapsedSeconds)
	require.Equal(t, 2, stored.PenaltyTotal)
	require.True(t, stored.HasPenalty())
}

func TestStoreTransactionRollsBack(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	_, course := seedCourse(t, store)

	boom := errors.New("boom")
	err := store.Transaction(ctx, func(tx Store) error {
		if _, err := tx.Rounds().Ensure(ctx, course.ID, 1); err != nil {
			return err
		}
		if _, err := tx.Courses().AdvanceRound(ctx, course.ID, 1); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	rounds, err := store.Rounds().ListByCourse(ctx, course.ID)
	require.NoError(t, err)
	require.Empty(t, rounds)

	reloaded, err := store.Courses().GetByID(ctx, course.ID)
	require.NoError(t, err)
	require.Equal(t, 1, reloaded.CurrentRound)
}

func TestStudentRepositoryStatusFilters(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	class, _ := seedCourse(t, store)

	ana := models.Student{ClassID: class.ID, Name: "Ana"}
	ben := models.Student{ClassID: class.ID, Name: "Ben"}
	require.NoError(t, store.Students().Create(ctx, &ana))
	require.NoError(t, store.Students().Create(ctx, &ben))

	updated, err := store.Students().UpdateStatus(ctx, ben.ID, models.StudentStatusAbsent)
	require.NoError(t, err)
	require.False(t, updated.IsActive())

	active, err := store.Students().ListActiveByClass(ctx, class.ID)
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.Equal(t, ana.ID, active[0].ID)

	all, err := store.Students().ListByClass(ctx, class.ID)
	require.NoError(t, err)
	require.Len(t, all, 2)

	_, err = store.Students().UpdateStatus(ctx, 9999, models.StudentStatusActive)
	require.Error(t, err)
}

func TestActivityLogRepositoryFiltersAndPaginates(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	_, course := seedCourse(t, store)

	courseID := course.ID
	for _, action := range []string{"course.started", "answer.submitted", "answer.submitted"} {
		entry := models.ActivityLog{CourseID: &courseID, Action: action, EntityType: "course"}
		require.NoError(t, store.Activity().Create(ctx, &entry))
	}

	entries, total, err := store.Activity().List(ctx, ActivityLogFilter{CourseID: &courseID, Action: "answer.submitted"})
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
	require.Len(t, entries, 2)

	paged, total, err := store.Activity().List(ctx, ActivityLogFilter{CourseID: &courseID, Page: 2, PageSize: 2})
	require.NoError(t, err)
	require.Equal(t, int64(3), total)
	require.Len(t, paged, 1)
}

func TestStoreReadSnapshotSeesCommittedRows(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	_, course := seedCourse(t, store)

	_, err := store.Rounds().Ensure(ctx, course.ID, 1)
	require.NoError(t, err)

	var rounds []models.Round
	err = store.ReadSnapshot(ctx, func(tx Store) error {
		if _, err := tx.Courses().GetByID(ctx, course.ID); err != nil {
			return err
		}
		rounds, err = tx.Rounds().ListByCourse(ctx, course.ID)
		return err
	})
	require.NoError(t, err)
	require.Len(t, rounds, 1)

	boom := errors.New("boom")
	require.ErrorIs(t, store.ReadSnapshot(ctx, func(Store) error { return boom }), boom)
}
