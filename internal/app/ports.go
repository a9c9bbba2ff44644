package app

import (
	"context"
	"time"

	"snakes-hunt-service/internal/domain"
)

// TeamRepository persists teams and their members.
type TeamRepository interface {
	CreateTeam(ctx context.Context, team *domain.Team, members []domain.TeamMember) error
	GetTeam(ctx context.Context, teamID string) (domain.Team, error)
	// LockTeam reads a team and holds it against concurrent writers until the
	// surrounding transaction ends.
	LockTeam(ctx context.Context, teamID string) (domain.Team, error)
	ListTeams(ctx context.Context) ([]domain.Team, error)
	ListMembers(ctx context.Context, teamID string) ([]domain.TeamMember, error)
	// UpdateTeam persists every mutable field except TotalTimeSec and Score,
	// which only move through AddTeamTime and AddTeamScore.
	UpdateTeam(ctx context.Context, team domain.Team) error
	// AddTeamTime increments TotalTimeSec atomically and returns the new total.
	AddTeamTime(ctx context.Context, teamID string, delta int) (int, error)
	// AddTeamScore increments Score atomically.
	AddTeamScore(ctx context.Context, teamID string, delta int) error
	CountTeamsOnMap(ctx context.Context, mapID string) (int, error)
}

// CheckpointRepository persists checkpoints and the dice-roll audit trail.
type CheckpointRepository interface {
	CreateCheckpoint(ctx context.Context, cp *domain.Checkpoint) error
	GetCheckpoint(ctx context.Context, checkpointID string) (domain.Checkpoint, error)
	LockCheckpoint(ctx context.Context, checkpointID string) (domain.Checkpoint, error)
	UpdateCheckpoint(ctx context.Context, cp domain.Checkpoint) error
	DeleteCheckpoint(ctx context.Context, checkpointID string) error
	ListCheckpoints(ctx context.Context, teamID string) ([]domain.Checkpoint, error)
	ListPendingCheckpoints(ctx context.Context) ([]domain.Checkpoint, error)
	FindCheckpointByNumber(ctx context.Context, teamID string, number int) (domain.Checkpoint, error)
	// PreviousCheckpoint returns the team's highest-numbered checkpoint below number.
	PreviousCheckpoint(ctx context.Context, teamID string, number int) (domain.Checkpoint, error)
	MaxCheckpointNumber(ctx context.Context, teamID string) (int, error)
	CountPendingCheckpoints(ctx context.Context, teamID string) (int, error)

	CreateDiceRoll(ctx context.Context, roll *domain.DiceRoll) error
	ListDiceRolls(ctx context.Context, teamID string) ([]domain.DiceRoll, error)
}

// LedgerRepository persists the append-only timer ledger.
type LedgerRepository interface {
	CreateTimeLog(ctx context.Context, entry *domain.TimeLog) error
	ListTimeLogs(ctx context.Context, teamID string) ([]domain.TimeLog, error)
}

// QuestionRepository persists the question bank and assignments.
type QuestionRepository interface {
	CreateQuestion(ctx context.Context, q *domain.Question) error
	UpdateQuestion(ctx context.Context, q domain.Question) error
	DeleteQuestion(ctx context.Context, questionID string) error
	GetQuestion(ctx context.Context, questionID string) (domain.Question, error)
	ListQuestions(ctx context.Context, filter domain.QuestionFilter) ([]domain.Question, error)
	IncrementQuestionUsage(ctx context.Context, questionID string, correct bool) error

	// CreateAssignment fails with domain.ErrQuestionAlreadyAssigned when the
	// question already has a PENDING assignment, and with
	// domain.ErrCheckpointHasAssignment when the checkpoint already has one.
	CreateAssignment(ctx context.Context, a *domain.QuestionAssignment) error
	GetAssignment(ctx context.Context, assignmentID string) (domain.QuestionAssignment, error)
	LockAssignment(ctx context.Context, assignmentID string) (domain.QuestionAssignment, error)
	AssignmentForCheckpoint(ctx context.Context, checkpointID string) (domain.QuestionAssignment, error)
	UpdateAssignment(ctx context.Context, a domain.QuestionAssignment) error
	DeleteAssignment(ctx context.Context, assignmentID string) error
	PendingQuestionIDs(ctx context.Context) ([]string, error)
	RecentQuestionIDs(ctx context.Context, teamID string, since time.Time) ([]string, error)
}

// BoardRepository persists board maps and rules.
type BoardRepository interface {
	CreateMap(ctx context.Context, m *domain.BoardMap) error
	GetMap(ctx context.Context, mapID string) (domain.BoardMap, error)
	ListMaps(ctx context.Context) ([]domain.BoardMapSummary, error)
	DeleteMap(ctx context.Context, mapID string) error
	CreateRule(ctx context.Context, rule *domain.BoardRule) error
	GetRule(ctx context.Context, ruleID string) (domain.BoardRule, error)
	DeleteRule(ctx context.Context, ruleID string) error
	RulesByMap(ctx context.Context, mapID string) ([]domain.BoardRule, error)
}

// AccountRepository persists login credentials.
type AccountRepository interface {
	CreateAccount(ctx context.Context, a *domain.Account) error
	GetAccountByUsername(ctx context.Context, username string) (domain.Account, error)
	GetAccountByTeam(ctx context.Context, teamID string) (domain.Account, error)
	ListAccounts(ctx context.Context, role domain.Role) ([]domain.Account, error)
	UpdateAccountPassword(ctx context.Context, accountID, hash string) error
	DeleteAccount(ctx context.Context, accountID string) error
}

// Repository is the full persistence surface.
type Repository interface {
	TeamRepository
	CheckpointRepository
	LedgerRepository
	QuestionRepository
	BoardRepository
	AccountRepository
}

// Store is a Repository with a transaction boundary. Every multi-write use
// case runs inside InTx; an error from fn rolls back all of its writes.
type Store interface {
	Repository
	InTx(ctx context.Context, fn func(ctx context.Context, repo Repository) error) error
}

// BoardRules resolves the rules of a board map, typically through a cache.
type BoardRules interface {
	Rules(ctx context.Context, mapID string) ([]domain.BoardRule, error)
	Invalidate(ctx context.Context, mapID string) error
}

// EventPublisher receives committed engine events.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.Event)
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, domain.Event) {}

// PasswordHasher hashes and verifies credentials.
type PasswordHasher interface {
	HashPassword(password string) (string, error)
	ComparePassword(hash, password string) error
}

// Claims identify the caller behind a token.
type Claims struct {
	AccountID string
	Username  string
	Role      domain.Role
	TeamID    string
}

// TokenService issues and verifies access tokens.
type TokenService interface {
	GenerateToken(claims Claims) (string, int64, error)
	ValidateToken(token string) (Claims, error)
}
