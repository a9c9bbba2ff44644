package postgres

import (
	"context"

	"snakes-hunt-service/internal/domain"
)

func (r *repo) CreateMap(ctx context.Context, m *domain.BoardMap) error {
	_, err := r.db.NewInsert().Model(&boardMapRow{
		ID:        m.ID,
		Name:      m.Name,
		IsActive:  m.IsActive,
		CreatedAt: m.CreatedAt,
	}).Exec(ctx)
	return translate(err, "insert board map", nil, nil)
}

func (r *repo) GetMap(ctx context.Context, mapID string) (domain.BoardMap, error) {
	var row boardMapRow
	if err := r.db.NewSelect().Model(&row).Where("bm.id = ?", mapID).Scan(ctx); err != nil {
		return domain.BoardMap{}, translate(err, "select board map", domain.ErrMapNotFound, nil)
	}
	return row.toDomain(), nil
}

func (r *repo) ListMaps(ctx context.Context) ([]domain.BoardMapSummary, error) {
	var rows []boardMapRow
	if err := r.db.NewSelect().Model(&rows).OrderExpr("bm.name ASC").Scan(ctx); err != nil {
		return nil, translate(err, "list board maps", nil, nil)
	}
	out := make([]domain.BoardMapSummary, 0, len(rows))
	for _, row := range rows {
		summary := domain.BoardMapSummary{BoardMap: row.toDomain()}
		var err error
		summary.RuleCount, err = r.db.NewSelect().Model((*boardRuleRow)(nil)).Where("br.map_id = ?", row.ID).Count(ctx)
		if err != nil {
			return nil, translate(err, "count board rules", nil, nil)
		}
		if summary.TeamCount, err = r.CountTeamsOnMap(ctx, row.ID); err != nil {
			return nil, err
		}
		out = append(out, summary)
	}
	return out, nil
}

func (r *repo) DeleteMap(ctx context.Context, mapID string) error {
	res, err := r.db.NewDelete().Model((*boardMapRow)(nil)).Where("id = ?", mapID).Exec(ctx)
	if err != nil {
		return translate(err, "delete board map", domain.ErrMapNotFound, domain.ErrMapInUse)
	}
	return affected(res, domain.ErrMapNotFound)
}

func (r *repo) CreateRule(ctx context.Context, rule *domain.BoardRule) error {
	_, err := r.db.NewInsert().Model(&boardRuleRow{
		ID:       rule.ID,
		MapID:    rule.MapID,
		Type:     string(rule.Type),
		StartPos: rule.StartPos,
		EndPos:   rule.EndPos,
	}).Exec(ctx)
	return translate(err, "insert board rule", nil, domain.ErrMapNotFound)
}

func (r *repo) GetRule(ctx context.Context, ruleID string) (domain.BoardRule, error) {
	var row boardRuleRow
	if err := r.db.NewSelect().Model(&row).Where("br.id = ?", ruleID).Scan(ctx); err != nil {
		return domain.BoardRule{}, translate(err, "select board rule", domain.ErrRuleNotFound, nil)
	}
	return row.toDomain(), nil
}

func (r *repo) DeleteRule(ctx context.Context, ruleID string) error {
	res, err := r.db.NewDelete().Model((*boardRuleRow)(nil)).Where("id = ?", ruleID).Exec(ctx)
	if err != nil {
		return translate(err, "delete board rule", domain.ErrRuleNotFound, nil)
	}
	return affected(res, domain.ErrRuleNotFound)
}

func (r *repo) RulesByMap(ctx context.Context, mapID string) ([]domain.BoardRule, error) {
	var rows []boardRuleRow
	if err := r.db.NewSelect().Model(&rows).Where("br.map_id = ?", mapID).OrderExpr("br.start_pos ASC").Scan(ctx); err != nil {
		return nil, translate(err, "list board rules", domain.ErrMapNotFound, nil)
	}
	out := make([]domain.BoardRule, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

// Accounts.

func (r *repo) CreateAccount(ctx context.Context, a *domain.Account) error {
	_, err := r.db.NewInsert().Model(&accountRow{
		ID:           a.ID,
		Username:     a.Username,
		PasswordHash: a.PasswordHash,
		Role:         string(a.Role),
		TeamID:       a.TeamID,
		CreatedAt:    a.CreatedAt,
	}).Exec(ctx)
	return translate(err, "insert account", nil, domain.ErrTeamNotFound)
}

func (r *repo) selectAccount(ctx context.Context, where, arg string) (domain.Account, error) {
	var row accountRow
	if err := r.db.NewSelect().Model(&row).Where(where, arg).Limit(1).Scan(ctx); err != nil {
		return domain.Account{}, translate(err, "select account", domain.ErrAccountNotFound, nil)
	}
	return row.toDomain(), nil
}

func (r *repo) GetAccountByUsername(ctx context.Context, username string) (domain.Account, error) {
	return r.selectAccount(ctx, "a.username = ?", username)
}

func (r *repo) GetAccountByTeam(ctx context.Context, teamID string) (domain.Account, error) {
	return r.selectAccount(ctx, "a.team_id = ? AND a.role = 'participant'", teamID)
}

func (r *repo) ListAccounts(ctx context.Context, role domain.Role) ([]domain.Account, error) {
	var rows []accountRow
	q := r.db.NewSelect().Model(&rows).OrderExpr("a.username ASC")
	if role != "" {
		q = q.Where("a.role = ?", string(role))
	}
	if err := q.Scan(ctx); err != nil {
		return nil, translate(err, "list accounts", nil, nil)
	}
	out := make([]domain.Account, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *repo) UpdateAccountPassword(ctx context.Context, accountID, hash string) error {
	res, err := r.db.NewUpdate().
		Model((*accountRow)(nil)).
		Set("password_hash = ?", hash).
		Where("id = ?", accountID).
		Exec(ctx)
	if err != nil {
		return translate(err, "update account password", domain.ErrAccountNotFound, nil)
	}
	return affected(res, domain.ErrAccountNotFound)
}

func (r *repo) DeleteAccount(ctx context.Context, accountID string) error {
	res, err := r.db.NewDelete().Model((*accountRow)(nil)).Where("id = ?", accountID).Exec(ctx)
	if err != nil {
		return translate(err, "delete account", domain.ErrAccountNotFound, nil)
	}
	return affected(res, domain.ErrAccountNotFound)
}
