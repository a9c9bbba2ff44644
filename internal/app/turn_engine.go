package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"snakes-hunt-service/internal/domain"
	"snakes-hunt-service/internal/game"
)

// SelectionPolicy decides which questions are withheld when picking one at random.
type SelectionPolicy string

const (
	// PolicyPending withholds questions currently PENDING for any team.
	PolicyPending SelectionPolicy = "pending"
	// PolicyRecent withholds questions the same team was given within the recent window.
	PolicyRecent SelectionPolicy = "recent"
)

// ParseSelectionPolicy reads a configured policy name. Empty means pending.
func ParseSelectionPolicy(raw string) (SelectionPolicy, error) {
	switch SelectionPolicy(strings.ToLower(strings.TrimSpace(raw))) {
	case "", PolicyPending:
		return PolicyPending, nil
	case PolicyRecent:
		return PolicyRecent, nil
	}
	return "", fmt.Errorf("unknown question selection policy %q", raw)
}

// DefaultRecentWindow is the look-back used by PolicyRecent.
const DefaultRecentWindow = 30 * time.Minute

// Engine owns the turn state machine: roll, move, snake check, checkpoint,
// approval, question assignment, grading and the administrative overrides.
type Engine struct {
	store        Store
	board        BoardRules
	events       EventPublisher
	rnd          game.Randomizer
	now          func() time.Time
	log          logrus.FieldLogger
	policy       SelectionPolicy
	recentWindow time.Duration
}

// EngineOption customises an Engine.
type EngineOption func(*Engine)

// WithRandomizer replaces the dice and room source (tests use a seeded one).
func WithRandomizer(rnd game.Randomizer) EngineOption {
	return func(e *Engine) { e.rnd = rnd }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

func WithLogger(log logrus.FieldLogger) EngineOption {
	return func(e *Engine) { e.log = log }
}

func WithEvents(events EventPublisher) EngineOption {
	return func(e *Engine) { e.events = events }
}

// WithSelectionPolicy picks exactly one question exclusion policy.
func WithSelectionPolicy(policy SelectionPolicy, window time.Duration) EngineOption {
	return func(e *Engine) {
		e.policy = policy
		if window > 0 {
			e.recentWindow = window
		}
	}
}

func NewEngine(store Store, board BoardRules, opts ...EngineOption) *Engine {
	e := &Engine{
		store:        store,
		board:        board,
		events:       noopPublisher{},
		rnd:          game.NewRand(),
		now:          time.Now,
		log:          logrus.StandardLogger(),
		policy:       PolicyPending,
		recentWindow: DefaultRecentWindow,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RollResult is the full outcome of one roll.
type RollResult struct {
	DiceValue        int               `json:"diceValue"`
	PositionBefore   int               `json:"positionBefore"`
	PositionAfter    int               `json:"positionAfter"`
	NewRoom          int               `json:"newRoom"`
	IsSnakePosition  bool              `json:"isSnakePosition"`
	SnakeEndPosition *int              `json:"snakeEndPosition"`
	Checkpoint       domain.Checkpoint `json:"checkpoint"`
	DiceRoll         domain.DiceRoll   `json:"diceRoll"`
	HasWon           bool              `json:"hasWon"`
}

// RollEligibility answers whether a team may roll now.
type RollEligibility struct {
	CanRoll bool   `json:"canRoll"`
	Reason  string `json:"reason,omitempty"`
}

// CanRoll is the dice-lock guard as a query.
func (e *Engine) CanRoll(ctx context.Context, teamID string) (RollEligibility, error) {
	team, err := e.store.GetTeam(ctx, teamID)
	if errors.Is(err, domain.ErrTeamNotFound) {
		return RollEligibility{Reason: "Team not found"}, nil
	}
	if err != nil {
		return RollEligibility{}, err
	}
	switch {
	case team.Status == domain.TeamCompleted:
		return RollEligibility{Reason: "Team has completed the game"}, nil
	case team.Status == domain.TeamDisqualified:
		return RollEligibility{Reason: "Team is disqualified"}, nil
	case !team.CanRollDice:
		return RollEligibility{Reason: "Pending checkpoint approval"}, nil
	}
	return RollEligibility{CanRoll: true}, nil
}

func rollGuard(team domain.Team) error {
	switch {
	case team.Status == domain.TeamCompleted:
		return domain.ErrTeamCompleted
	case team.Status == domain.TeamDisqualified:
		return domain.ErrTeamDisqualified
	case !team.CanRollDice:
		return domain.ErrDiceLocked
	}
	return nil
}

// RollDice takes one turn for a team. The lock flag is re-checked and flipped
// inside the same transaction so two concurrent rolls cannot both succeed.
func (e *Engine) RollDice(ctx context.Context, teamID string) (RollResult, error) {
	snapshot, err := e.store.GetTeam(ctx, teamID)
	if err != nil {
		return RollResult{}, err
	}
	if snapshot.MapID == "" {
		return RollResult{}, domain.ErrNoBoardMap
	}
	rules, err := e.board.Rules(ctx, snapshot.MapID)
	if err != nil {
		return RollResult{}, err
	}

	var result RollResult
	var team domain.Team
	err = e.store.InTx(ctx, func(ctx context.Context, repo Repository) error {
		team, err = repo.LockTeam(ctx, teamID)
		if err != nil {
			return err
		}
		if err := rollGuard(team); err != nil {
			return err
		}
		if team.MapID == "" {
			return domain.ErrNoBoardMap
		}
		if team.MapID != snapshot.MapID {
			if rules, err = repo.RulesByMap(ctx, team.MapID); err != nil {
				return err
			}
		}

		now := e.now()
		value := game.RollDie(e.rnd)
		before := team.CurrentPosition
		after := game.NextPosition(before, value)
		room := game.PickRoom(e.rnd, team.CurrentRoom)
		snake, onSnake := game.SnakeAt(rules, after)

		roll := domain.DiceRoll{
			ID:           uuid.NewString(),
			TeamID:       team.ID,
			Value:        value,
			PositionFrom: before,
			PositionTo:   after,
			RoomAssigned: room,
			CreatedAt:    now,
		}
		if err := repo.CreateDiceRoll(ctx, &roll); err != nil {
			return err
		}

		team.CurrentPosition = after
		team.CurrentRoom = room
		team.CanRollDice = false
		if game.HasReachedGoal(after) {
			team.Status = domain.TeamCompleted
		}
		team.UpdatedAt = now
		if err := repo.UpdateTeam(ctx, team); err != nil {
			return err
		}

		last, err := repo.MaxCheckpointNumber(ctx, team.ID)
		if err != nil {
			return err
		}
		cp := domain.Checkpoint{
			ID:               uuid.NewString(),
			TeamID:           team.ID,
			CheckpointNumber: last + 1,
			PositionBefore:   before,
			PositionAfter:    after,
			RoomNumber:       room,
			Status:           domain.CheckpointPending,
			IsSnakePosition:  onSnake,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if err := repo.CreateCheckpoint(ctx, &cp); err != nil {
			return err
		}

		result = RollResult{
			DiceValue:       value,
			PositionBefore:  before,
			PositionAfter:   after,
			NewRoom:         room,
			IsSnakePosition: onSnake,
			Checkpoint:      cp,
			DiceRoll:        roll,
			HasWon:          game.HasReachedGoal(after),
		}
		if onSnake {
			end := snake.EndPos
			result.SnakeEndPosition = &end
		}
		return nil
	})
	if err != nil {
		return RollResult{}, err
	}

	e.log.WithFields(logrus.Fields{
		"team_id":       team.ID,
		"dice":          result.DiceValue,
		"from":          result.PositionBefore,
		"to":            result.PositionAfter,
		"room":          result.NewRoom,
		"snake":         result.IsSnakePosition,
		"checkpoint_id": result.Checkpoint.ID,
	}).Info("dice rolled")
	e.publish(ctx, domain.EventDiceRolled, team, result.Checkpoint.ID, 0)
	return result, nil
}

// releaseDiceLock opens the lock once no unresolved checkpoint remains.
func releaseDiceLock(ctx context.Context, repo Repository, team *domain.Team) error {
	pending, err := repo.CountPendingCheckpoints(ctx, team.ID)
	if err != nil {
		return err
	}
	team.CanRollDice = pending == 0
	return nil
}

func (e *Engine) publish(ctx context.Context, typ domain.EventType, team domain.Team, checkpointID string, delta int) {
	e.events.Publish(ctx, domain.Event{
		Type:         typ,
		TeamID:       team.ID,
		CheckpointID: checkpointID,
		Position:     team.CurrentPosition,
		Room:         team.CurrentRoom,
		Status:       team.Status,
		DeltaSeconds: delta,
		At:           e.now(),
	})
}
