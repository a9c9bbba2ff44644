package postgres

import (
	"context"
	"time"

	"snakes-hunt-service/internal/domain"
)

func (r *repo) CreateQuestion(ctx context.Context, q *domain.Question) error {
	_, err := r.db.NewInsert().Model(newQuestionRow(*q)).Exec(ctx)
	return translate(err, "insert question", nil, nil)
}

// UpdateQuestion leaves the usage counters alone; they only move through
// IncrementQuestionUsage.
func (r *repo) UpdateQuestion(ctx context.Context, q domain.Question) error {
	res, err := r.db.NewUpdate().
		Model(newQuestionRow(q)).
		Column("content", "options", "correct_answer", "difficulty", "category", "points", "is_active", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return translate(err, "update question", domain.ErrQuestionNotFound, nil)
	}
	return affected(res, domain.ErrQuestionNotFound)
}

func (r *repo) DeleteQuestion(ctx context.Context, questionID string) error {
	res, err := r.db.NewDelete().Model((*questionRow)(nil)).Where("id = ?", questionID).Exec(ctx)
	if err != nil {
		return translate(err, "delete question", domain.ErrQuestionNotFound, domain.ErrQuestionInUse)
	}
	return affected(res, domain.ErrQuestionNotFound)
}

func (r *repo) GetQuestion(ctx context.Context, questionID string) (domain.Question, error) {
	var row questionRow
	if err := r.db.NewSelect().Model(&row).Where("q.id = ?", questionID).Scan(ctx); err != nil {
		return domain.Question{}, translate(err, "select question", domain.ErrQuestionNotFound, nil)
	}
	return row.toDomain(), nil
}

func (r *repo) ListQuestions(ctx context.Context, filter domain.QuestionFilter) ([]domain.Question, error) {
	var rows []questionRow
	q := r.db.NewSelect().Model(&rows).OrderExpr("q.created_at ASC, q.id ASC")
	if filter.Difficulty != "" {
		q = q.Where("q.difficulty = ?", string(filter.Difficulty))
	}
	if filter.Category != "" {
		q = q.Where("q.category = ?", filter.Category)
	}
	if filter.IsActive != nil {
		q = q.Where("q.is_active = ?", *filter.IsActive)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, translate(err, "list questions", nil, nil)
	}
	out := make([]domain.Question, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *repo) IncrementQuestionUsage(ctx context.Context, questionID string, correct bool) error {
	q := r.db.NewUpdate().
		Model((*questionRow)(nil)).
		Set("times_used = times_used + 1").
		Where("id = ?", questionID)
	if correct {
		q = q.Set("times_correct = times_correct + 1")
	}
	res, err := q.Exec(ctx)
	if err != nil {
		return translate(err, "increment question usage", domain.ErrQuestionNotFound, nil)
	}
	return affected(res, domain.ErrQuestionNotFound)
}

func (r *repo) CreateAssignment(ctx context.Context, a *domain.QuestionAssignment) error {
	_, err := r.db.NewInsert().Model(newAssignmentRow(*a)).Exec(ctx)
	return translate(err, "insert assignment", nil, domain.ErrCheckpointNotFound)
}

func (r *repo) selectAssignment(ctx context.Context, where string, arg string, lock bool) (domain.QuestionAssignment, error) {
	var row assignmentRow
	q := r.db.NewSelect().Model(&row).Where(where, arg)
	if lock {
		q = q.For("UPDATE")
	}
	if err := q.Scan(ctx); err != nil {
		return domain.QuestionAssignment{}, translate(err, "select assignment", domain.ErrAssignmentNotFound, nil)
	}
	return row.toDomain(), nil
}

func (r *repo) GetAssignment(ctx context.Context, assignmentID string) (domain.QuestionAssignment, error) {
	return r.selectAssignment(ctx, "qa.id = ?", assignmentID, false)
}

func (r *repo) LockAssignment(ctx context.Context, assignmentID string) (domain.QuestionAssignment, error) {
	return r.selectAssignment(ctx, "qa.id = ?", assignmentID, true)
}

func (r *repo) AssignmentForCheckpoint(ctx context.Context, checkpointID string) (domain.QuestionAssignment, error) {
	return r.selectAssignment(ctx, "qa.checkpoint_id = ?", checkpointID, false)
}

func (r *repo) UpdateAssignment(ctx context.Context, a domain.QuestionAssignment) error {
	res, err := r.db.NewUpdate().
		Model(newAssignmentRow(a)).
		Column("status", "answered_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return translate(err, "update assignment", domain.ErrAssignmentNotFound, nil)
	}
	return affected(res, domain.ErrAssignmentNotFound)
}

func (r *repo) DeleteAssignment(ctx context.Context, assignmentID string) error {
	res, err := r.db.NewDelete().Model((*assignmentRow)(nil)).Where("id = ?", assignmentID).Exec(ctx)
	if err != nil {
		return translate(err, "delete assignment", domain.ErrAssignmentNotFound, nil)
	}
	return affected(res, domain.ErrAssignmentNotFound)
}

func (r *repo) PendingQuestionIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.db.NewSelect().
		Model((*assignmentRow)(nil)).
		Column("question_id").
		Where("qa.status = ?", string(domain.AssignmentPending)).
		Scan(ctx, &ids)
	if err != nil {
		return nil, translate(err, "pending question ids", nil, nil)
	}
	return ids, nil
}

func (r *repo) RecentQuestionIDs(ctx context.Context, teamID string, since time.Time) ([]string, error) {
	var ids []string
	err := r.db.NewSelect().
		Model((*assignmentRow)(nil)).
		Column("question_id").
		Where("qa.team_id = ?", teamID).
		Where("qa.created_at >= ?", since).
		Scan(ctx, &ids)
	if err != nil {
		return nil, translate(err, "recent question ids", domain.ErrTeamNotFound, nil)
	}
	return ids, nil
}
