package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// ErrDuplicate is returned when an insert violates a uniqueness constraint.
var ErrDuplicate = errors.New("duplicate record")

// Store groups the classroom repositories behind a single transactional boundary.
type Store interface {
	Classes() ClassRepository
	Students() StudentRepository
	Courses() CourseRepository
	Rounds() RoundRepository
	Submissions() SubmissionRepository
	Activity() ActivityLogRepository
	// Transaction runs fn against a Store bound to one database transaction. The
	// transaction is rolled back when fn returns an error.
	Transaction(ctx context.Context, fn func(tx Store) error) error
	// ReadSnapshot runs fn inside a read-only transaction in which every query
	// observes the same committed state.
	ReadSnapshot(ctx context.Context, fn func(tx Store) error) error
}

type gormStore struct {
	db *gorm.DB
}

// NewStore builds a Store backed by gorm.
func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Classes() ClassRepository           { return NewClassRepository(s.db) }
func (s *gormStore) Students() StudentRepository       { return NewStudentRepository(s.db) }
func (s *gormStore) Courses() CourseRepository         { return NewCourseRepository(s.db) }
func (s *gormStore) Rounds() RoundRepository           { return NewRoundRepository(s.db) }
func (s *gormStore) Submissions() SubmissionRepository { return NewSubmissionRepository(s.db) }
func (s *gormStore) Activity() ActivityLogRepository   { return NewActivityLogRepository(s.db) }

func (s *gormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}

func (s *gormStore) ReadSnapshot(ctx context.Context, fn func(tx Store) error) error {
	var opts []*sql.TxOptions
	// Postgres defaults to READ COMMITTED, where each statement sees its own snapshot.
	// sqlite transactions already read from one snapshot.
	if s.db.Dialector.Name() == "postgres" {
		opts = append(opts, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	}, opts...)
}

// translateError maps driver uniqueness violations onto ErrDuplicate.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}

	message := strings.ToLower(err.Error())
	if strings.Contains(message, "unique constraint") || strings.Contains(message, "duplicate key") {
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}

	return err
}
