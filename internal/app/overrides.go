package app

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"snakes-hunt-service/internal/domain"
	"snakes-hunt-service/internal/game"
)

// AdjustTimer appends a ledger entry and moves the cached total by the same
// delta, which may be negative.
func (e *Engine) AdjustTimer(ctx context.Context, teamID string, delta int, reason string) (domain.Team, error) {
	if reason == "" {
		reason = "Manual adjustment by superadmin"
	}
	team, err := e.writeTimer(ctx, teamID, reason, func(domain.Team) (int, error) { return delta, nil })
	if err != nil {
		return domain.Team{}, err
	}
	e.publish(ctx, domain.EventTimerChanged, team, "", delta)
	return team, nil
}

// SetTimer sets the total to an absolute value. The difference is written to
// the ledger so the entries still sum to the total.
func (e *Engine) SetTimer(ctx context.Context, teamID string, seconds int, reason string) (domain.Team, error) {
	if seconds < 0 {
		return domain.Team{}, domain.NewPrecondition("timer cannot be negative")
	}
	if reason == "" {
		reason = "Timer set by superadmin"
	}
	var delta int
	team, err := e.writeTimer(ctx, teamID, reason, func(current domain.Team) (int, error) {
		delta = seconds - current.TotalTimeSec
		return delta, nil
	})
	if err != nil {
		return domain.Team{}, err
	}
	e.publish(ctx, domain.EventTimerChanged, team, "", delta)
	return team, nil
}

func (e *Engine) writeTimer(ctx context.Context, teamID, reason string, deltaFor func(domain.Team) (int, error)) (domain.Team, error) {
	var team domain.Team
	err := e.store.InTx(ctx, func(ctx context.Context, repo Repository) error {
		var err error
		if team, err = repo.LockTeam(ctx, teamID); err != nil {
			return err
		}
		delta, err := deltaFor(team)
		if err != nil {
			return err
		}
		entry := domain.TimeLog{
			ID:        uuid.NewString(),
			TeamID:    team.ID,
			Seconds:   delta,
			Reason:    reason,
			CreatedAt: e.now(),
		}
		if err := repo.CreateTimeLog(ctx, &entry); err != nil {
			return err
		}
		team.TotalTimeSec, err = repo.AddTeamTime(ctx, team.ID, delta)
		return err
	})
	if err != nil {
		return domain.Team{}, err
	}
	e.log.WithFields(logrus.Fields{"team_id": team.ID, "total": team.TotalTimeSec, "reason": reason}).Info("timer changed")
	return team, nil
}

// Disqualify moves an active or completed team to DISQUALIFIED. Position,
// timer and open checkpoints are left as they are.
func (e *Engine) Disqualify(ctx context.Context, teamID string) (domain.Team, error) {
	return e.setStatus(ctx, teamID, func(team domain.Team) error {
		if team.Status == domain.TeamDisqualified {
			return domain.ErrTeamAlreadyDisqualified
		}
		return nil
	}, domain.TeamDisqualified)
}

// Reinstate returns a disqualified team to ACTIVE.
func (e *Engine) Reinstate(ctx context.Context, teamID string) (domain.Team, error) {
	return e.setStatus(ctx, teamID, func(team domain.Team) error {
		if team.Status != domain.TeamDisqualified {
			return domain.ErrTeamNotDisqualified
		}
		return nil
	}, domain.TeamActive)
}

func (e *Engine) setStatus(ctx context.Context, teamID string, check func(domain.Team) error, status domain.TeamStatus) (domain.Team, error) {
	team, err := e.updateTeam(ctx, teamID, func(team *domain.Team) error {
		if err := check(*team); err != nil {
			return err
		}
		team.Status = status
		return nil
	})
	if err != nil {
		return domain.Team{}, err
	}
	e.log.WithFields(logrus.Fields{"team_id": team.ID, "status": status}).Info("team status changed")
	e.publish(ctx, domain.EventTeamStatusChanged, team, "", 0)
	return team, nil
}

// ChangeRoom moves a team to another room.
func (e *Engine) ChangeRoom(ctx context.Context, teamID string, room int) (domain.Team, error) {
	if !game.ValidRoom(room) {
		return domain.Team{}, domain.ErrInvalidRoom
	}
	team, err := e.updateTeam(ctx, teamID, func(team *domain.Team) error {
		team.CurrentRoom = room
		return nil
	})
	if err != nil {
		return domain.Team{}, err
	}
	e.publish(ctx, domain.EventRoomChanged, team, "", 0)
	return team, nil
}

// AssignMap binds a team to a board map.
func (e *Engine) AssignMap(ctx context.Context, teamID, mapID string) (domain.Team, error) {
	if _, err := e.store.GetMap(ctx, mapID); err != nil {
		return domain.Team{}, err
	}
	return e.updateTeam(ctx, teamID, func(team *domain.Team) error {
		team.MapID = mapID
		return nil
	})
}

func (e *Engine) updateTeam(ctx context.Context, teamID string, mutate func(*domain.Team) error) (domain.Team, error) {
	var team domain.Team
	err := e.store.InTx(ctx, func(ctx context.Context, repo Repository) error {
		var err error
		if team, err = repo.LockTeam(ctx, teamID); err != nil {
			return err
		}
		if err := mutate(&team); err != nil {
			return err
		}
		team.UpdatedAt = e.now()
		return repo.UpdateTeam(ctx, team)
	})
	if err != nil {
		return domain.Team{}, err
	}
	return team, nil
}
