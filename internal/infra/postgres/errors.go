package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun/driver/pgdriver"

	"snakes-hunt-service/internal/domain"
)

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeInvalidText         = "22P02"
)

// uniqueConstraints maps named constraints to the domain error they signal.
var uniqueConstraints = map[string]error{
	"question_assignments_pending_question_idx": domain.ErrQuestionAlreadyAssigned,
	"question_assignments_checkpoint_key":       domain.ErrCheckpointHasAssignment,
}

// translate turns driver errors into domain errors. notFound is returned for
// missing rows and malformed identifiers; inUse for foreign key violations.
func translate(err error, op string, notFound, inUse error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) && notFound != nil {
		return notFound
	}
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		switch pgErr.Field('C') {
		case codeUniqueViolation:
			if mapped, ok := uniqueConstraints[pgErr.Field('n')]; ok {
				return mapped
			}
			return domain.ErrDuplicate
		case codeForeignKeyViolation:
			if inUse != nil {
				return inUse
			}
			if notFound != nil {
				return notFound
			}
			return domain.NewConflict("referenced record does not exist")
		case codeInvalidText:
			if notFound != nil {
				return notFound
			}
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
