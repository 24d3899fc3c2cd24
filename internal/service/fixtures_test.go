package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-quiz-api/internal/database"
	"github.com/noah-isme/gema-quiz-api/internal/dto"
	"github.com/noah-isme/gema-quiz-api/internal/repository"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func newTestStore(t *testing.T) repository.Store {
	t.Helper()

	db, err := database.Connect(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	return repository.NewStore(db)
}

type classroomFixture struct {
	store       repository.Store
	activity    ActivityService
	rounds      RoundController
	grading     GradingService
	aggregation AggregationService
	queries     SessionQueryService
	roster      RosterService

	classID  uint
	students []uint
}

func newClassroomFixture(t *testing.T, cache SnapshotCache, names ...string) *classroomFixture {
	t.Helper()

	store := newTestStore(t)
	validate := validator.New(validator.WithRequiredStructEnabled())
	activity := NewActivityService(store, testLogger())
	aggregation := NewAggregationService(store, testLogger())

	fx := &classroomFixture{
		store:       store,
		activity:    activity,
		rounds:      NewRoundController(store, validate, activity, cache, testLogger()),
		grading:     NewGradingService(store, validate, activity, cache, testLogger()),
		aggregation: aggregation,
		queries:     NewSessionQueryService(store, aggregation, cache, testLogger()),
		roster:      NewRosterService(store, validate, cache, testLogger()),
	}

	ctx := context.Background()
	class, err := fx.roster.CreateClass(ctx, dto.CreateClassRequest{Name: "Grade 7A"})
	require.NoError(t, err)
	fx.classID = class.ID

	for _, name := range names {
		student, err := fx.roster.AddStudent(ctx, class.ID, dto.AddStudentRequest{Name: name})
		require.NoError(t, err)
		fx.students = append(fx.students, student.ID)
	}

	return fx
}

func (fx *classroomFixture) start(t *testing.T) dto.CourseResponse {
	t.Helper()
	course, err := fx.rounds.StartCourse(context.Background(), dto.StartCourseRequest{ClassID: fx.classID, Name: "Fractions"})
	require.NoError(t, err)
	return course
}

func (fx *classroomFixture) submit(t *testing.T, courseID, studentID uint, answer string, elapsed float64) {
	t.Helper()
	_, err := fx.rounds.SubmitAnswer(context.Background(), courseID, dto.SubmitAnswerRequest{
		StudentID:      studentID,
		Answer:         answer,
		ElapsedSeconds: elapsed,
	})
	require.NoError(t, err)
}

func (fx *classroomFixture) judge(t *testing.T, courseID uint, answer string) dto.JudgeRoundResponse {
	t.Helper()
	result, err := fx.grading.JudgeRound(context.Background(), courseID, dto.JudgeRoundRequest{CorrectAnswer: answer})
	require.NoError(t, err)
	return result
}

func findStudent(t *testing.T, students []dto.StudentSnapshot, id uint) dto.StudentSnapshot {
	t.Helper()
	for _, student := range students {
		if student.StudentID == id {
			return student
		}
	}
	t.Fatalf("student %d not in snapshot", id)
	return dto.StudentSnapshot{}
}
