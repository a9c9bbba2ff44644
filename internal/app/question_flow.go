package app

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"snakes-hunt-service/internal/domain"
	"snakes-hunt-service/internal/game"
)

// AssignQuestion hands a question to a pending checkpoint. The dice stay
// locked until the answer is graded.
func (e *Engine) AssignQuestion(ctx context.Context, checkpointID, questionID string) (domain.QuestionAssignment, error) {
	var assignment domain.QuestionAssignment
	var team domain.Team
	err := e.store.InTx(ctx, func(ctx context.Context, repo Repository) error {
		cp, err := repo.LockCheckpoint(ctx, checkpointID)
		if err != nil {
			return err
		}
		if cp.Status != domain.CheckpointPending {
			return domain.ErrCheckpointAlreadyProcessed
		}
		_, err = repo.AssignmentForCheckpoint(ctx, cp.ID)
		if err == nil {
			return domain.ErrCheckpointHasAssignment
		}
		if !errors.Is(err, domain.ErrAssignmentNotFound) {
			return err
		}

		question, err := repo.GetQuestion(ctx, questionID)
		if err != nil {
			return err
		}
		if !question.IsActive {
			return domain.ErrQuestionInactive
		}
		if team, err = repo.GetTeam(ctx, cp.TeamID); err != nil {
			return err
		}

		assignment = domain.QuestionAssignment{
			ID:           uuid.NewString(),
			CheckpointID: cp.ID,
			QuestionID:   question.ID,
			TeamID:       cp.TeamID,
			Status:       domain.AssignmentPending,
			CreatedAt:    e.now(),
		}
		return repo.CreateAssignment(ctx, &assignment)
	})
	if err != nil {
		return domain.QuestionAssignment{}, err
	}
	e.log.WithFields(logrus.Fields{
		"team_id":       team.ID,
		"checkpoint_id": checkpointID,
		"question_id":   questionID,
	}).Info("question assigned")
	e.publish(ctx, domain.EventQuestionAssigned, team, checkpointID, 0)
	return assignment, nil
}

// GradeResult reports a graded assignment.
type GradeResult struct {
	Assignment    domain.QuestionAssignment `json:"assignment"`
	IsCorrect     bool                      `json:"isCorrect"`
	Points        int                       `json:"points"`
	CorrectAnswer string                    `json:"correctAnswer,omitempty"`
}

// GradeAnswer grades a pending assignment, approves its checkpoint and reopens
// the dice. An incorrect answer scores zero and costs nothing else.
func (e *Engine) GradeAnswer(ctx context.Context, assignmentID string, isCorrect bool) (GradeResult, error) {
	var result GradeResult
	var team domain.Team
	err := e.store.InTx(ctx, func(ctx context.Context, repo Repository) error {
		a, err := repo.LockAssignment(ctx, assignmentID)
		if err != nil {
			return err
		}
		if a.Status != domain.AssignmentPending {
			return domain.ErrAlreadyGraded
		}
		question, err := repo.GetQuestion(ctx, a.QuestionID)
		if err != nil {
			return err
		}

		now := e.now()
		a.Status = domain.AssignmentIncorrect
		if isCorrect {
			a.Status = domain.AssignmentCorrect
		}
		a.AnsweredAt = &now
		if err := repo.UpdateAssignment(ctx, a); err != nil {
			return err
		}
		if err := repo.IncrementQuestionUsage(ctx, question.ID, isCorrect); err != nil {
			return err
		}

		cp, err := repo.LockCheckpoint(ctx, a.CheckpointID)
		if err != nil {
			return err
		}
		cp.Status = domain.CheckpointApproved
		cp.UpdatedAt = now
		if err := repo.UpdateCheckpoint(ctx, cp); err != nil {
			return err
		}

		if team, err = repo.LockTeam(ctx, cp.TeamID); err != nil {
			return err
		}
		result = GradeResult{Assignment: a, IsCorrect: isCorrect}
		if isCorrect {
			result.Points = question.Points
			if question.Points != 0 {
				if err := repo.AddTeamScore(ctx, team.ID, question.Points); err != nil {
					return err
				}
				team.Score += question.Points
			}
		} else {
			result.CorrectAnswer = question.CorrectAnswer
		}
		if err := releaseDiceLock(ctx, repo, &team); err != nil {
			return err
		}
		team.UpdatedAt = now
		return repo.UpdateTeam(ctx, team)
	})
	if err != nil {
		return GradeResult{}, err
	}
	e.log.WithFields(logrus.Fields{
		"team_id":       team.ID,
		"assignment_id": assignmentID,
		"correct":       isCorrect,
		"points":        result.Points,
	}).Info("answer graded")
	e.publish(ctx, domain.EventAnswerGraded, team, result.Assignment.CheckpointID, 0)
	return result, nil
}

// GradeSubmittedAnswer compares a submitted answer with the question's
// correct answer, ignoring case and surrounding space, then grades it.
func (e *Engine) GradeSubmittedAnswer(ctx context.Context, assignmentID, answer string) (GradeResult, error) {
	a, err := e.store.GetAssignment(ctx, assignmentID)
	if err != nil {
		return GradeResult{}, err
	}
	question, err := e.store.GetQuestion(ctx, a.QuestionID)
	if err != nil {
		return GradeResult{}, err
	}
	correct := strings.EqualFold(strings.TrimSpace(answer), strings.TrimSpace(question.CorrectAnswer))
	return e.GradeAnswer(ctx, assignmentID, correct)
}

// GradeCheckpoint grades the assignment attached to a checkpoint.
func (e *Engine) GradeCheckpoint(ctx context.Context, checkpointID string, isCorrect bool) (GradeResult, error) {
	a, err := e.store.AssignmentForCheckpoint(ctx, checkpointID)
	if err != nil {
		return GradeResult{}, err
	}
	return e.GradeAnswer(ctx, a.ID, isCorrect)
}

// GradeCheckpointAnswer grades the assignment attached to a checkpoint against
// a submitted answer.
func (e *Engine) GradeCheckpointAnswer(ctx context.Context, checkpointID, answer string) (GradeResult, error) {
	a, err := e.store.AssignmentForCheckpoint(ctx, checkpointID)
	if err != nil {
		return GradeResult{}, err
	}
	return e.GradeSubmittedAnswer(ctx, a.ID, answer)
}

// PickQuestion draws a random active question for a team. The configured
// policy withholds some questions; when that leaves nothing, any active
// question of the difficulty qualifies.
func (e *Engine) PickQuestion(ctx context.Context, teamID string, difficulty domain.Difficulty) (domain.Question, error) {
	if _, err := e.store.GetTeam(ctx, teamID); err != nil {
		return domain.Question{}, err
	}
	if difficulty != "" && !difficulty.Valid() {
		return domain.Question{}, domain.NewPrecondition("invalid difficulty")
	}

	active := true
	pool, err := e.store.ListQuestions(ctx, domain.QuestionFilter{Difficulty: difficulty, IsActive: &active})
	if err != nil {
		return domain.Question{}, err
	}
	if len(pool) == 0 {
		return domain.Question{}, domain.ErrNoAvailableQuestions
	}

	var excluded []string
	switch e.policy {
	case PolicyRecent:
		excluded, err = e.store.RecentQuestionIDs(ctx, teamID, e.now().Add(-e.recentWindow))
	default:
		excluded, err = e.store.PendingQuestionIDs(ctx)
	}
	if err != nil {
		return domain.Question{}, err
	}

	candidates := withoutIDs(pool, excluded)
	if len(candidates) == 0 {
		e.log.WithFields(logrus.Fields{"team_id": teamID, "difficulty": difficulty}).
			Warn("question exclusion left no candidates; widening pool")
		candidates = pool
	}
	return candidates[e.rnd.Intn(len(candidates))], nil
}

// QuestionForPosition picks a question whose difficulty matches the team's
// board position.
func (e *Engine) QuestionForPosition(ctx context.Context, teamID string) (domain.Question, error) {
	team, err := e.store.GetTeam(ctx, teamID)
	if err != nil {
		return domain.Question{}, err
	}
	return e.PickQuestion(ctx, teamID, game.DifficultyForPosition(team.CurrentPosition))
}

func withoutIDs(questions []domain.Question, ids []string) []domain.Question {
	if len(ids) == 0 {
		return questions
	}
	skip := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		skip[id] = struct{}{}
	}
	out := make([]domain.Question, 0, len(questions))
	for _, q := range questions {
		if _, ok := skip[q.ID]; !ok {
			out = append(out, q)
		}
	}
	return out
}
