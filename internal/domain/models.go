package domain

import "time"

// TeamStatus is the lifecycle state of a team.
type TeamStatus string

const (
	TeamActive       TeamStatus = "ACTIVE"
	TeamCompleted    TeamStatus = "COMPLETED"
	TeamDisqualified TeamStatus = "DISQUALIFIED"
)

// Team is a participating team and its position on the board.
type Team struct {
	ID              string     `json:"id"`
	Code            string     `json:"teamCode"`
	Name            string     `json:"teamName"`
	CurrentPosition int        `json:"currentPosition"`
	CurrentRoom     int        `json:"currentRoom"`
	Status          TeamStatus `json:"status"`
	CanRollDice     bool       `json:"canRollDice"`
	TotalTimeSec    int        `json:"totalTimeSec"`
	Score           int        `json:"score"`
	MapID           string     `json:"mapId,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// TeamMember is a named person on a team.
type TeamMember struct {
	ID     string `json:"id"`
	TeamID string `json:"teamId"`
	Name   string `json:"name"`
}

// RuleType distinguishes snakes from ladders.
type RuleType string

const (
	RuleSnake  RuleType = "SNAKE"
	RuleLadder RuleType = "LADDER"
)

// BoardMap is a named, team-assignable set of board rules.
type BoardMap struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	IsActive  bool        `json:"isActive"`
	Rules     []BoardRule `json:"rules,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
}

// BoardMapSummary is a map listing row.
type BoardMapSummary struct {
	BoardMap
	RuleCount int `json:"ruleCount"`
	TeamCount int `json:"teamCount"`
}

// BoardRule moves a team from StartPos to EndPos. Snakes always demote.
type BoardRule struct {
	ID       string   `json:"id"`
	MapID    string   `json:"mapId"`
	Type     RuleType `json:"type"`
	StartPos int      `json:"startPos"`
	EndPos   int      `json:"endPos"`
}

// CheckpointStatus is the approval state of a checkpoint.
type CheckpointStatus string

const (
	CheckpointPending  CheckpointStatus = "PENDING"
	CheckpointApproved CheckpointStatus = "APPROVED"
	// CheckpointRejected is reserved; no transition produces it.
	CheckpointRejected CheckpointStatus = "REJECTED"
)

// Checkpoint records one turn outcome awaiting sign-off.
type Checkpoint struct {
	ID                  string           `json:"id"`
	TeamID              string           `json:"teamId"`
	CheckpointNumber    int              `json:"checkpointNumber"`
	PositionBefore      int              `json:"positionBefore"`
	PositionAfter       int              `json:"positionAfter"`
	RoomNumber          int              `json:"roomNumber"`
	Status              CheckpointStatus `json:"status"`
	IsSnakePosition     bool             `json:"isSnakePosition"`
	SnakeDodgeAttempted bool             `json:"snakeDodgeAttempted"`
	CreatedAt           time.Time        `json:"createdAt"`
	UpdatedAt           time.Time        `json:"updatedAt"`
}

// AssignmentStatus is the grading state of a question assignment.
type AssignmentStatus string

const (
	AssignmentPending   AssignmentStatus = "PENDING"
	AssignmentCorrect   AssignmentStatus = "CORRECT"
	AssignmentIncorrect AssignmentStatus = "INCORRECT"
)

// QuestionAssignment binds one question to one checkpoint.
type QuestionAssignment struct {
	ID           string           `json:"id"`
	CheckpointID string           `json:"checkpointId"`
	QuestionID   string           `json:"questionId"`
	TeamID       string           `json:"teamId"`
	Status       AssignmentStatus `json:"status"`
	AnsweredAt   *time.Time       `json:"answeredAt,omitempty"`
	CreatedAt    time.Time        `json:"createdAt"`
}

// Difficulty grades questions; board position selects one.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "EASY"
	DifficultyMedium Difficulty = "MEDIUM"
	DifficultyHard   Difficulty = "HARD"
)

// Valid reports whether d is one of the known difficulties.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// Question is a trivia question from the bank.
type Question struct {
	ID            string     `json:"id"`
	Content       string     `json:"content"`
	Options       []string   `json:"options"`
	CorrectAnswer string     `json:"correctAnswer"`
	Difficulty    Difficulty `json:"difficulty"`
	Category      string     `json:"category"`
	Points        int        `json:"points"`
	IsActive      bool       `json:"isActive"`
	TimesUsed     int        `json:"timesUsed"`
	TimesCorrect  int        `json:"timesCorrect"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// QuestionFilter narrows question listings. Nil fields do not filter.
type QuestionFilter struct {
	Difficulty Difficulty
	Category   string
	IsActive   *bool
}

// QuestionStats aggregates usage across the bank.
type QuestionStats struct {
	Total        int                `json:"total"`
	TotalUsed    int                `json:"totalUsed"`
	TotalCorrect int                `json:"totalCorrect"`
	AverageUsage float64            `json:"averageUsage"`
	ByDifficulty map[Difficulty]int `json:"byDifficulty"`
	ByCategory   map[string]int     `json:"byCategory"`
}

// DiceRoll is the audit record of a single roll.
type DiceRoll struct {
	ID           string    `json:"id"`
	TeamID       string    `json:"teamId"`
	Value        int       `json:"value"`
	PositionFrom int       `json:"positionFrom"`
	PositionTo   int       `json:"positionTo"`
	RoomAssigned int       `json:"roomAssigned"`
	CreatedAt    time.Time `json:"createdAt"`
}

// TimeLog is an append-only timer delta. Team.TotalTimeSec is the running sum.
type TimeLog struct {
	ID        string    `json:"id"`
	TeamID    string    `json:"teamId"`
	Seconds   int       `json:"seconds"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"createdAt"`
}

// Role gates the request surface.
type Role string

const (
	RoleParticipant Role = "participant"
	RoleAdmin       Role = "admin"
	RoleSuperadmin  Role = "superadmin"
)

// Account is a login credential. Participant accounts carry a TeamID and use
// the team code as username.
type Account struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	TeamID       string    `json:"teamId,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}
