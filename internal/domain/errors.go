package domain

import "errors"

// Error kinds. Every specific error below wraps exactly one of them so callers
// can classify failures with errors.Is.
var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrPrecondition  = errors.New("precondition failed")
	ErrConfiguration = errors.New("configuration error")
	ErrUnauthorized  = errors.New("unauthorized")
)

// Error is a domain error with a human-readable message and a kind.
type Error struct {
	kind error
	msg  string
}

func newError(kind error, msg string) *Error {
	return &Error{kind: kind, msg: msg}
}

func (e *Error) Error() string { return e.msg }

func (e *Error) Unwrap() error { return e.kind }

// Kind returns the classification sentinel.
func (e *Error) Kind() error { return e.kind }

// NewPrecondition builds an ad-hoc precondition failure, used for input validation.
func NewPrecondition(msg string) error {
	return newError(ErrPrecondition, msg)
}

// NewConflict builds an ad-hoc conflict, used when storage reports a uniqueness violation.
func NewConflict(msg string) error {
	return newError(ErrConflict, msg)
}

var (
	ErrTeamNotFound       = newError(ErrNotFound, "team not found")
	ErrCheckpointNotFound = newError(ErrNotFound, "checkpoint not found")
	ErrQuestionNotFound   = newError(ErrNotFound, "question not found")
	ErrAssignmentNotFound = newError(ErrNotFound, "question assignment not found")
	ErrMapNotFound        = newError(ErrNotFound, "board map not found")
	ErrRuleNotFound       = newError(ErrNotFound, "board rule not found")
	ErrAccountNotFound    = newError(ErrNotFound, "account not found")

	ErrCheckpointAlreadyProcessed = newError(ErrConflict, "checkpoint already processed")
	ErrCheckpointHasAssignment    = newError(ErrConflict, "checkpoint already has a question assigned")
	ErrCheckpointAwaitingGrade    = newError(ErrConflict, "checkpoint has a pending question; grade the answer instead")
	ErrQuestionAlreadyAssigned    = newError(ErrConflict, "question is already assigned to another team")
	ErrAlreadyGraded              = newError(ErrConflict, "question assignment already graded")
	ErrTeamAlreadyDisqualified    = newError(ErrConflict, "team is already disqualified")
	ErrTeamNotDisqualified        = newError(ErrConflict, "team is not disqualified")
	ErrQuestionInUse              = newError(ErrConflict, "question is referenced by assignments")
	ErrMapInUse                   = newError(ErrConflict, "board map is assigned to teams")
	ErrDuplicate                  = newError(ErrConflict, "a record with this value already exists")

	ErrTeamCompleted        = newError(ErrPrecondition, "team has already completed the game")
	ErrTeamDisqualified     = newError(ErrPrecondition, "team has been disqualified")
	ErrDiceLocked           = newError(ErrPrecondition, "cannot roll dice - pending checkpoint exists")
	ErrInvalidRoom          = newError(ErrPrecondition, "invalid room number")
	ErrNotSnakePosition     = newError(ErrPrecondition, "this checkpoint is not on a snake position")
	ErrQuestionInactive     = newError(ErrPrecondition, "question is not active")
	ErrNoAvailableQuestions = newError(ErrPrecondition, "no available questions")

	ErrNoBoardMap = newError(ErrConfiguration, "team has no board map assigned")

	ErrInvalidCredentials = newError(ErrUnauthorized, "invalid credentials")
)
