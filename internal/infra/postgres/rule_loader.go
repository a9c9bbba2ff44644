package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"snakes-hunt-service/internal/domain"
)

// RuleLoader reads board rules through a pgx pool. It feeds the board cache.
type RuleLoader struct {
	pool *pgxpool.Pool
}

func NewRuleLoader(pool *pgxpool.Pool) *RuleLoader {
	return &RuleLoader{pool: pool}
}

func (l *RuleLoader) RulesByMap(ctx context.Context, mapID string) ([]domain.BoardRule, error) {
	rows, err := l.pool.Query(ctx,
		`SELECT id::text, map_id::text, type, start_pos, end_pos
		   FROM board_rules
		  WHERE map_id::text = $1
		  ORDER BY start_pos`, mapID)
	if err != nil {
		return nil, fmt.Errorf("load board rules: %w", err)
	}
	defer rows.Close()

	var rules []domain.BoardRule
	for rows.Next() {
		var rule domain.BoardRule
		var ruleType string
		if err := rows.Scan(&rule.ID, &rule.MapID, &ruleType, &rule.StartPos, &rule.EndPos); err != nil {
			return nil, fmt.Errorf("scan board rule: %w", err)
		}
		rule.Type = domain.RuleType(ruleType)
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load board rules: %w", err)
	}
	return rules, nil
}
