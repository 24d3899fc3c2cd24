package service

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks missing or malformed input; nothing was written.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is the parent of every unknown-id error.
	ErrNotFound = errors.New("not found")
	// ErrClassNotFound indicates the class was not located.
	ErrClassNotFound = fmt.Errorf("class %w", ErrNotFound)
	// ErrStudentNotFound indicates the student was not located in the class.
	ErrStudentNotFound = fmt.Errorf("student %w", ErrNotFound)
	// ErrCourseNotFound indicates the course was not located.
	ErrCourseNotFound = fmt.Errorf("course %w", ErrNotFound)
	// ErrRoundNotFound indicates the round number does not exist in the course.
	ErrRoundNotFound = fmt.Errorf("round %w", ErrNotFound)

	// ErrDuplicateSubmission indicates the student already answered the round.
	ErrDuplicateSubmission = errors.New("answer already submitted for this round")
	// ErrInactiveStudent indicates an absent student tried to take part.
	ErrInactiveStudent = errors.New("student is absent")

	// ErrConflict indicates a concurrent mutation of the same course; retry once.
	ErrConflict = errors.New("course was modified concurrently")
	// ErrRoundAlreadyJudged rejects a second judgement of the same round.
	ErrRoundAlreadyJudged = fmt.Errorf("round already judged: %w", ErrConflict)
	// ErrRoundClosed rejects answers for a round that has been judged.
	ErrRoundClosed = fmt.Errorf("round is closed: %w", ErrConflict)
	// ErrCourseInactive rejects mutations of an ended course.
	ErrCourseInactive = fmt.Errorf("course is not active: %w", ErrConflict)

	// ErrGrading wraps datastore failures while judging; the round was rolled back.
	ErrGrading = errors.New("grading failed")
)

func validationError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
