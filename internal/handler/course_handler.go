package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-quiz-api/internal/dto"
	"github.com/noah-isme/gema-quiz-api/internal/service"
	"github.com/noah-isme/gema-quiz-api/internal/utils"
)

// CourseHandler serves the live session endpoints.
type CourseHandler struct {
	rounds   service.RoundController
	grading  service.GradingService
	queries  service.SessionQueryService
	activity service.ActivityService
	logger   zerolog.Logger
}

// NewCourseHandler builds a course handler instance.
func NewCourseHandler(rounds service.RoundController, grading service.GradingService, queries service.SessionQueryService, activity service.ActivityService, logger zerolog.Logger) *CourseHandler {
	return &CourseHandler{
		rounds:   rounds,
		grading:  grading,
		queries:  queries,
		activity: activity,
		logger:   logger.With().Str("component", "course_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group. Teacher actions run
// behind teacherGuards; submissions run behind submitGuards.
func (h *CourseHandler) Register(router fiber.Router, teacherGuards, submitGuards []fiber.Handler) {
	router.Post("", guarded(teacherGuards, h.start)...)
	router.Post("/:id/end", guarded(teacherGuards, h.end)...)
	router.Post("/:id/judge", guarded(teacherGuards, h.judge)...)
	router.Post("/:id/advance", guarded(teacherGuards, h.advance)...)
	router.Post("/:id/behavior", guarded(teacherGuards, h.markBehavior)...)
	router.Post("/:id/repair", guarded(teacherGuards, h.repair)...)
	router.Get("/:id/activity", guarded(teacherGuards, h.listActivity)...)

	router.Post("/:id/submissions", guarded(submitGuards, h.submit)...)

	router.Get("/:id/snapshot", h.snapshot)
	router.Get("/:id/rounds/:number", h.roundStats)
	router.Get("/:id/students/:studentId/report", h.studentReport)
}

func (h *CourseHandler) start(c *fiber.Ctx) error {
	var payload dto.StartCourseRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendErrorCode(c, fiber.StatusBadRequest, "validation_error", "invalid request body")
	}

	course, err := h.rounds.StartCourse(c.UserContext(), payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendCreated(c, "course started", course)
}

func (h *CourseHandler) end(c *fiber.Ctx) error {
	courseID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendErrorCode(c, fiber.StatusBadRequest, "validation_error", err.Error())
	}

	course, err := h.rounds.EndCourse(c.UserContext(), courseID)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "course ended", course)
}

func (h *CourseHandler) submit(c *fiber.Ctx) error {
	courseID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendErrorCode(c, fiber.StatusBadRequest, "validation_error", err.Error())
	}

	var payload dto.SubmitAnswerRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendErrorCode(c, fiber.StatusBadRequest, "validation_error", "invalid request body")
	}

	accepted, err := h.rounds.SubmitAnswer(c.UserContext(), courseID, payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendCreated(c, "answer accepted", accepted)
}

func (h *CourseHandler) judge(c *fiber.Ctx) error {
	courseID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendErrorCode(c, fiber.StatusBadRequest, "validation_error", err.Error())
	}

	var payload dto.JudgeRoundRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendErrorCode(c, fiber.StatusBadRequest, "validation_error", "invalid request body")
	}

	result, err := h.grading.JudgeRound(c.UserContext(), courseID, payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "round judged", result)
}

func (h *CourseHandler) advance(c *fiber.Ctx) error {
	courseID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendErrorCode(c, fiber.StatusBadRequest, "validation_error", err.Error())
	}

	result, err := h.rounds.AdvanceRound(c.UserContext(), courseID)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "round advanced", result)
}

func (h *CourseHandler) markBehavior(c *fiber.Ctx) error {
	courseID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendErrorCode(c, fiber.StatusBadRequest, "validation_error", err.Error())
	}

	var payload dto.BehaviorMarkRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendErrorCode(c, fiber.StatusBadRequest, "validation_error", "invalid request body")
	}

	result, err := h.rounds.MarkBehavior(c.UserContext(), courseID, payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "behavior recorded", result)
}

func (h *CourseHandler) repair(c *fiber.Ctx) error {
	courseID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendErrorCode(c, fiber.StatusBadRequest, "validation_error", err.Error())
	}

	result, err := h.rounds.RepairRounds(c.UserContext(), courseID)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "rounds repaired", result)
}

func (h *CourseHandler) listActivity(c *fiber.Ctx) error {
	courseID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendErrorCode(c, fiber.StatusBadRequest, "validation_error", err.Error())
	}
	page, err := parseQueryInt(c, "page")
	if err != nil {
		return utils.SendErrorCode(c, fiber.StatusBadRequest, "validation_error", err.Error())
	}
	pageSize, err := parseQueryInt(c, "page_size")
	if err != nil {
		return utils.SendErrorCode(c, fiber.StatusBadRequest, "validation_error", err.Error())
	}

	result, err := h.activity.List(c.UserContext(), service.ActivityListRequest{
		CourseID: courseID,
		Action:   c.Query("action"),
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "activity retrieved", result)
}

func (h *CourseHandler) snapshot(c *fiber.Ctx) error {
	courseID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendErrorCode(c, fiber.StatusBadRequest, "validation_error", err.Error())
	}

	snapshot, err := h.queries.GetClassroomSnapshot(c.UserContext(), courseID)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "snapshot retrieved", snapshot)
}

func (h *CourseHandler) roundStats(c *fiber.Ctx) error {
	courseID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendErrorCode(c, fiber.StatusBadRequest, "validation_error", err.Error())
	}
	number, err := parseUintParam(c, "number")
	if err != nil {
		return utils.SendErrorCode(c, fiber.StatusBadRequest, "validation_error", err.Error())
	}

	stats, err := h.queries.GetRoundStats(c.UserContext(), courseID, int(number))
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "round statistics retrieved", stats)
}

func (h *CourseHandler) studentReport(c *fiber.Ctx) error {
	courseID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendErrorCode(c, fiber.StatusBadRequest, "validation_error", err.Error())
	}
	studentID, err := parseUintParam(c, "studentId")
	if err != nil {
		return utils.SendErrorCode(c, fiber.StatusBadRequest, "validation_error", err.Error())
	}

	report, err := h.queries.GetStudentReport(c.UserContext(), studentID, courseID)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return utils.SendSuccess(c, "report retrieved", report)
}
