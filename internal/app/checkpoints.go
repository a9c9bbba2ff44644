package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"snakes-hunt-service/internal/domain"
	"snakes-hunt-service/internal/game"
)

// checkApprovable rejects approval of a checkpoint that is already resolved
// or that is waiting on a graded answer.
func checkApprovable(ctx context.Context, repo Repository, cp domain.Checkpoint) error {
	if cp.Status != domain.CheckpointPending {
		return domain.ErrCheckpointAlreadyProcessed
	}
	assignment, err := repo.AssignmentForCheckpoint(ctx, cp.ID)
	if err == nil && assignment.Status == domain.AssignmentPending {
		return domain.ErrCheckpointAwaitingGrade
	}
	if err != nil && !errors.Is(err, domain.ErrAssignmentNotFound) {
		return err
	}
	return nil
}

// ApproveCheckpoint signs off a checkpoint without a question and reopens the
// team's dice.
func (e *Engine) ApproveCheckpoint(ctx context.Context, checkpointID string) (domain.Checkpoint, error) {
	var cp domain.Checkpoint
	var team domain.Team
	err := e.store.InTx(ctx, func(ctx context.Context, repo Repository) error {
		var err error
		if cp, err = repo.LockCheckpoint(ctx, checkpointID); err != nil {
			return err
		}
		if err := checkApprovable(ctx, repo, cp); err != nil {
			return err
		}
		cp.Status = domain.CheckpointApproved
		cp.UpdatedAt = e.now()
		if err := repo.UpdateCheckpoint(ctx, cp); err != nil {
			return err
		}
		if team, err = repo.LockTeam(ctx, cp.TeamID); err != nil {
			return err
		}
		if err := releaseDiceLock(ctx, repo, &team); err != nil {
			return err
		}
		team.UpdatedAt = cp.UpdatedAt
		return repo.UpdateTeam(ctx, team)
	})
	if err != nil {
		return domain.Checkpoint{}, err
	}
	e.log.WithFields(logrus.Fields{"team_id": team.ID, "checkpoint_id": cp.ID}).Info("checkpoint approved")
	e.publish(ctx, domain.EventCheckpointApproved, team, cp.ID, 0)
	return cp, nil
}

// DodgeResult reports the outcome of a snake dodge attempt.
type DodgeResult struct {
	Success        bool              `json:"success"`
	Penalty        bool              `json:"penalty"`
	PenaltySeconds int               `json:"penaltySeconds"`
	NewPosition    int               `json:"newPosition"`
	Message        string            `json:"message"`
	Checkpoint     domain.Checkpoint `json:"checkpoint"`
}

// HandleSnakeDodge resolves a checkpoint that landed on a snake head. A failed
// dodge costs SnakePenaltySeconds and slides the team to the snake's tail.
func (e *Engine) HandleSnakeDodge(ctx context.Context, checkpointID string, success bool) (DodgeResult, error) {
	snapshot, err := e.store.GetCheckpoint(ctx, checkpointID)
	if err != nil {
		return DodgeResult{}, err
	}
	if !snapshot.IsSnakePosition {
		return DodgeResult{}, domain.ErrNotSnakePosition
	}
	owner, err := e.store.GetTeam(ctx, snapshot.TeamID)
	if err != nil {
		return DodgeResult{}, err
	}
	var rules []domain.BoardRule
	if owner.MapID != "" {
		if rules, err = e.board.Rules(ctx, owner.MapID); err != nil {
			return DodgeResult{}, err
		}
	}

	var result DodgeResult
	var team domain.Team
	err = e.store.InTx(ctx, func(ctx context.Context, repo Repository) error {
		cp, err := repo.LockCheckpoint(ctx, checkpointID)
		if err != nil {
			return err
		}
		if err := checkApprovable(ctx, repo, cp); err != nil {
			return err
		}
		now := e.now()
		cp.SnakeDodgeAttempted = true
		cp.Status = domain.CheckpointApproved
		cp.UpdatedAt = now
		if err := repo.UpdateCheckpoint(ctx, cp); err != nil {
			return err
		}

		if team, err = repo.LockTeam(ctx, cp.TeamID); err != nil {
			return err
		}
		result = DodgeResult{Success: success, Checkpoint: cp, NewPosition: team.CurrentPosition}
		if success {
			result.Message = "Snake dodged successfully!"
		} else {
			entry := domain.TimeLog{
				ID:        uuid.NewString(),
				TeamID:    team.ID,
				Seconds:   game.SnakePenaltySeconds,
				Reason:    fmt.Sprintf("Snake penalty at position %d", cp.PositionAfter),
				CreatedAt: now,
			}
			if err := repo.CreateTimeLog(ctx, &entry); err != nil {
				return err
			}
			if team.TotalTimeSec, err = repo.AddTeamTime(ctx, team.ID, game.SnakePenaltySeconds); err != nil {
				return err
			}
			position := cp.PositionAfter
			if snake, ok := game.SnakeAt(rules, cp.PositionAfter); ok {
				position = snake.EndPos
			}
			team.CurrentPosition = position
			result.Penalty = true
			result.PenaltySeconds = game.SnakePenaltySeconds
			result.NewPosition = position
			result.Message = fmt.Sprintf("Snake bite! +%d minutes penalty", game.SnakePenaltySeconds/60)
		}
		if err := releaseDiceLock(ctx, repo, &team); err != nil {
			return err
		}
		team.UpdatedAt = now
		return repo.UpdateTeam(ctx, team)
	})
	if err != nil {
		return DodgeResult{}, err
	}

	e.log.WithFields(logrus.Fields{
		"team_id":       team.ID,
		"checkpoint_id": checkpointID,
		"dodged":        success,
		"position":      result.NewPosition,
	}).Info("snake resolved")
	e.publish(ctx, domain.EventSnakeResolved, team, checkpointID, result.PenaltySeconds)
	return result, nil
}

// UndoResult reports where an undo left the team.
type UndoResult struct {
	TeamID      string `json:"teamId"`
	NewPosition int    `json:"newPosition"`
	Message     string `json:"message"`
}

// UndoCheckpoint deletes a checkpoint and its assignment, restoring the team to
// the previous checkpoint's landing square (or the start). There is no redo.
func (e *Engine) UndoCheckpoint(ctx context.Context, checkpointID string) (UndoResult, error) {
	var team domain.Team
	var result UndoResult
	err := e.store.InTx(ctx, func(ctx context.Context, repo Repository) error {
		cp, err := repo.LockCheckpoint(ctx, checkpointID)
		if err != nil {
			return err
		}
		if team, err = repo.LockTeam(ctx, cp.TeamID); err != nil {
			return err
		}

		assignment, err := repo.AssignmentForCheckpoint(ctx, cp.ID)
		switch {
		case err == nil:
			if err := repo.DeleteAssignment(ctx, assignment.ID); err != nil {
				return err
			}
		case !errors.Is(err, domain.ErrAssignmentNotFound):
			return err
		}

		position := game.StartPosition
		prev, err := repo.PreviousCheckpoint(ctx, cp.TeamID, cp.CheckpointNumber)
		switch {
		case err == nil:
			position = prev.PositionAfter
		case !errors.Is(err, domain.ErrCheckpointNotFound):
			return err
		}

		if err := repo.DeleteCheckpoint(ctx, cp.ID); err != nil {
			return err
		}

		team.CurrentPosition = position
		if team.Status == domain.TeamCompleted && !game.HasReachedGoal(position) {
			team.Status = domain.TeamActive
		}
		if err := releaseDiceLock(ctx, repo, &team); err != nil {
			return err
		}
		team.UpdatedAt = e.now()
		if err := repo.UpdateTeam(ctx, team); err != nil {
			return err
		}
		result = UndoResult{TeamID: team.ID, NewPosition: position, Message: "Checkpoint undone successfully"}
		return nil
	})
	if err != nil {
		return UndoResult{}, err
	}
	e.log.WithFields(logrus.Fields{
		"team_id":       team.ID,
		"checkpoint_id": checkpointID,
		"position":      result.NewPosition,
	}).Info("checkpoint undone")
	e.publish(ctx, domain.EventCheckpointUndone, team, checkpointID, 0)
	return result, nil
}
