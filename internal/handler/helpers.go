package handler

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-quiz-api/internal/middleware"
	"github.com/noah-isme/gema-quiz-api/internal/service"
	"github.com/noah-isme/gema-quiz-api/internal/utils"
)

func parseUintParam(c *fiber.Ctx, key string) (uint, error) {
	value := strings.TrimSpace(c.Params(key))
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil || parsed == 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return uint(parsed), nil
}

func parseQueryInt(c *fiber.Ctx, key string) (int, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return 0, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return parsed, nil
}

// guarded prepends route guards to a handler.
func guarded(guards []fiber.Handler, h fiber.Handler) []fiber.Handler {
	handlers := make([]fiber.Handler, 0, len(guards)+1)
	handlers = append(handlers, guards...)
	return append(handlers, h)
}

// respondError maps service errors onto HTTP statuses and stable error codes.
func respondError(c *fiber.Ctx, base zerolog.Logger, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.As(err, &validationErrors):
		return utils.SendErrorCode(c, fiber.StatusBadRequest, "validation_error", validationErrors.Error())
	case errors.Is(err, service.ErrValidation):
		return utils.SendErrorCode(c, fiber.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, service.ErrNotFound):
		return utils.SendErrorCode(c, fiber.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, service.ErrDuplicateSubmission):
		return utils.SendErrorCode(c, fiber.StatusConflict, "duplicate_submission", err.Error())
	case errors.Is(err, service.ErrInactiveStudent):
		return utils.SendErrorCode(c, fiber.StatusForbidden, "inactive_student", err.Error())
	case errors.Is(err, service.ErrConflict):
		return utils.SendErrorCode(c, fiber.StatusConflict, "conflict", err.Error())
	case errors.Is(err, service.ErrGrading):
		logger := middleware.RequestLogger(base, c)
		logger.Error().Err(err).Msg("grading failed")
		return utils.SendErrorCode(c, fiber.StatusInternalServerError, "grading_error", "grading failed, round left unchanged")
	default:
		logger := middleware.RequestLogger(base, c)
		logger.Error().Err(err).Msg("internal server error")
		return utils.SendErrorCode(c, fiber.StatusInternalServerError, "internal_error", "internal server error")
	}
}
