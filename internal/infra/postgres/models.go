package postgres

import (
	"time"

	"github.com/uptrace/bun"

	"snakes-hunt-service/internal/domain"
)

type teamRow struct {
	bun.BaseModel `bun:"table:teams,alias:t"`

	ID              string    `bun:"id,pk"`
	Code            string    `bun:"team_code"`
	Name            string    `bun:"team_name"`
	CurrentPosition int       `bun:"current_position"`
	CurrentRoom     int       `bun:"current_room"`
	Status          string    `bun:"status"`
	CanRollDice     bool      `bun:"can_roll_dice"`
	TotalTimeSec    int       `bun:"total_time_seconds"`
	Score           int       `bun:"score"`
	MapID           string    `bun:"map_id,nullzero"`
	CreatedAt       time.Time `bun:"created_at"`
	UpdatedAt       time.Time `bun:"updated_at"`
}

func newTeamRow(t domain.Team) *teamRow {
	return &teamRow{
		ID:              t.ID,
		Code:            t.Code,
		Name:            t.Name,
		CurrentPosition: t.CurrentPosition,
		CurrentRoom:     t.CurrentRoom,
		Status:          string(t.Status),
		CanRollDice:     t.CanRollDice,
		TotalTimeSec:    t.TotalTimeSec,
		Score:           t.Score,
		MapID:           t.MapID,
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
	}
}

func (r teamRow) toDomain() domain.Team {
	return domain.Team{
		ID:              r.ID,
		Code:            r.Code,
		Name:            r.Name,
		CurrentPosition: r.CurrentPosition,
		CurrentRoom:     r.CurrentRoom,
		Status:          domain.TeamStatus(r.Status),
		CanRollDice:     r.CanRollDice,
		TotalTimeSec:    r.TotalTimeSec,
		Score:           r.Score,
		MapID:           r.MapID,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

type teamMemberRow struct {
	bun.BaseModel `bun:"table:team_members,alias:tm"`

	ID     string `bun:"id,pk"`
	TeamID string `bun:"team_id"`
	Name   string `bun:"name"`
}

type checkpointRow struct {
	bun.BaseModel `bun:"table:checkpoints,alias:c"`

	ID                  string    `bun:"id,pk"`
	TeamID              string    `bun:"team_id"`
	CheckpointNumber    int       `bun:"checkpoint_number"`
	PositionBefore      int       `bun:"position_before"`
	PositionAfter       int       `bun:"position_after"`
	RoomNumber          int       `bun:"room_number"`
	Status              string    `bun:"status"`
	IsSnakePosition     bool      `bun:"is_snake_position"`
	SnakeDodgeAttempted bool      `bun:"snake_dodge_attempted"`
	CreatedAt           time.Time `bun:"created_at"`
	UpdatedAt           time.Time `bun:"updated_at"`
}

func newCheckpointRow(c domain.Checkpoint) *checkpointRow {
	return &checkpointRow{
		ID:                  c.ID,
		TeamID:              c.TeamID,
		CheckpointNumber:    c.CheckpointNumber,
		PositionBefore:      c.PositionBefore,
		PositionAfter:       c.PositionAfter,
		RoomNumber:          c.RoomNumber,
		Status:              string(c.Status),
		IsSnakePosition:     c.IsSnakePosition,
		SnakeDodgeAttempted: c.SnakeDodgeAttempted,
		CreatedAt:           c.CreatedAt,
		UpdatedAt:           c.UpdatedAt,
	}
}

func (r checkpointRow) toDomain() domain.Checkpoint {
	return domain.Checkpoint{
		ID:                  r.ID,
		TeamID:              r.TeamID,
		CheckpointNumber:    r.CheckpointNumber,
		PositionBefore:      r.PositionBefore,
		PositionAfter:       r.PositionAfter,
		RoomNumber:          r.RoomNumber,
		Status:              domain.CheckpointStatus(r.Status),
		IsSnakePosition:     r.IsSnakePosition,
		SnakeDodgeAttempted: r.SnakeDodgeAttempted,
		CreatedAt:           r.CreatedAt,
		UpdatedAt:           r.UpdatedAt,
	}
}

type diceRollRow struct {
	bun.BaseModel `bun:"table:dice_rolls,alias:dr"`

	ID           string    `bun:"id,pk"`
	TeamID       string    `bun:"team_id"`
	Value        int       `bun:"dice_value"`
	PositionFrom int       `bun:"position_from"`
	PositionTo   int       `bun:"position_to"`
	RoomAssigned int       `bun:"room_assigned"`
	CreatedAt    time.Time `bun:"created_at"`
}

type timeLogRow struct {
	bun.BaseModel `bun:"table:time_logs,alias:tl"`

	ID        string    `bun:"id,pk"`
	TeamID    string    `bun:"team_id"`
	Seconds   int       `bun:"time_added_seconds"`
	Reason    string    `bun:"reason"`
	CreatedAt time.Time `bun:"created_at"`
}

type questionRow struct {
	bun.BaseModel `bun:"table:questions,alias:q"`

	ID            string    `bun:"id,pk"`
	Content       string    `bun:"content"`
	Options       []string  `bun:"options,type:jsonb"`
	CorrectAnswer string    `bun:"correct_answer"`
	Difficulty    string    `bun:"difficulty"`
	Category      string    `bun:"category"`
	Points        int       `bun:"points"`
	IsActive      bool      `bun:"is_active"`
	TimesUsed     int       `bun:"times_used"`
	TimesCorrect  int       `bun:"times_correct"`
	CreatedAt     time.Time `bun:"created_at"`
	UpdatedAt     time.Time `bun:"updated_at"`
}

func newQuestionRow(q domain.Question) *questionRow {
	return &questionRow{
		ID:            q.ID,
		Content:       q.Content,
		Options:       q.Options,
		CorrectAnswer: q.CorrectAnswer,
		Difficulty:    string(q.Difficulty),
		Category:      q.Category,
		Points:        q.Points,
		IsActive:      q.IsActive,
		TimesUsed:     q.TimesUsed,
		TimesCorrect:  q.TimesCorrect,
		CreatedAt:     q.CreatedAt,
		UpdatedAt:     q.UpdatedAt,
	}
}

func (r questionRow) toDomain() domain.Question {
	return domain.Question{
		ID:            r.ID,
		Content:       r.Content,
		Options:       r.Options,
		CorrectAnswer: r.CorrectAnswer,
		Difficulty:    domain.Difficulty(r.Difficulty),
		Category:      r.Category,
		Points:        r.Points,
		IsActive:      r.IsActive,
		TimesUsed:     r.TimesUsed,
		TimesCorrect:  r.TimesCorrect,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

type assignmentRow struct {
	bun.BaseModel `bun:"table:question_assignments,alias:qa"`

	ID           string     `bun:"id,pk"`
	CheckpointID string     `bun:"checkpoint_id"`
	QuestionID   string     `bun:"question_id"`
	TeamID       string     `bun:"team_id"`
	Status       string     `bun:"status"`
	AnsweredAt   *time.Time `bun:"answered_at"`
	CreatedAt    time.Time  `bun:"created_at"`
}

func newAssignmentRow(a domain.QuestionAssignment) *assignmentRow {
	return &assignmentRow{
		ID:           a.ID,
		CheckpointID: a.CheckpointID,
		QuestionID:   a.QuestionID,
		TeamID:       a.TeamID,
		Status:       string(a.Status),
		AnsweredAt:   a.AnsweredAt,
		CreatedAt:    a.CreatedAt,
	}
}

func (r assignmentRow) toDomain() domain.QuestionAssignment {
	return domain.QuestionAssignment{
		ID:           r.ID,
		CheckpointID: r.CheckpointID,
		QuestionID:   r.QuestionID,
		TeamID:       r.TeamID,
		Status:       domain.AssignmentStatus(r.Status),
		AnsweredAt:   r.AnsweredAt,
		CreatedAt:    r.CreatedAt,
	}
}

type boardMapRow struct {
	bun.BaseModel `bun:"table:board_maps,alias:bm"`

	ID        string    `bun:"id,pk"`
	Name      string    `bun:"name"`
	IsActive  bool      `bun:"is_active"`
	CreatedAt time.Time `bun:"created_at"`
}

func (r boardMapRow) toDomain() domain.BoardMap {
	return domain.BoardMap{ID: r.ID, Name: r.Name, IsActive: r.IsActive, CreatedAt: r.CreatedAt}
}

type boardRuleRow struct {
	bun.BaseModel `bun:"table:board_rules,alias:br"`

	ID       string `bun:"id,pk"`
	MapID    string `bun:"map_id"`
	Type     string `bun:"type"`
	StartPos int    `bun:"start_pos"`
	EndPos   int    `bun:"end_pos"`
}

func (r boardRuleRow) toDomain() domain.BoardRule {
	return domain.BoardRule{
		ID:       r.ID,
		MapID:    r.MapID,
		Type:     domain.RuleType(r.Type),
		StartPos: r.StartPos,
		EndPos:   r.EndPos,
	}
}

type accountRow struct {
	bun.BaseModel `bun:"table:accounts,alias:a"`

	ID           string    `bun:"id,pk"`
	Username     string    `bun:"username"`
	PasswordHash string    `bun:"password_hash"`
	Role         string    `bun:"role"`
	TeamID       string    `bun:"team_id,nullzero"`
	CreatedAt    time.Time `bun:"created_at"`
}

func (r accountRow) toDomain() domain.Account {
	return domain.Account{
		ID:           r.ID,
		Username:     r.Username,
		PasswordHash: r.PasswordHash,
		Role:         domain.Role(r.Role),
		TeamID:       r.TeamID,
		CreatedAt:    r.CreatedAt,
	}
}
