// Package postgres is the durable store of the hunt, built on bun.
package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"snakes-hunt-service/internal/app"
	"snakes-hunt-service/internal/domain"
)

// Store implements app.Store. Row locks are taken with SELECT ... FOR UPDATE
// inside RunInTx.
type Store struct {
	repo
	db *bun.DB
}

var _ app.Store = (*Store)(nil)

// repo runs queries against either the pool or an open transaction.
type repo struct {
	db bun.IDB
}

// Open connects to Postgres through pgdriver.
func Open(dsn string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

func NewStore(db *bun.DB) *Store {
	return &Store{repo: repo{db: db}, db: db}
}

func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, repo app.Repository) error) error {
	return s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, &repo{db: tx})
	})
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func affected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

// Teams.

func (r *repo) CreateTeam(ctx context.Context, team *domain.Team, members []domain.TeamMember) error {
	if _, err := r.db.NewInsert().Model(newTeamRow(*team)).Exec(ctx); err != nil {
		return translate(err, "insert team", nil, nil)
	}
	if len(members) == 0 {
		return nil
	}
	rows := make([]teamMemberRow, 0, len(members))
	for _, m := range members {
		rows = append(rows, teamMemberRow{ID: m.ID, TeamID: team.ID, Name: m.Name})
	}
	_, err := r.db.NewInsert().Model(&rows).Exec(ctx)
	return translate(err, "insert team members", nil, nil)
}

func (r *repo) selectTeam(ctx context.Context, teamID string, lock bool) (domain.Team, error) {
	var row teamRow
	q := r.db.NewSelect().Model(&row).Where("t.id = ?", teamID)
	if lock {
		q = q.For("UPDATE")
	}
	if err := q.Scan(ctx); err != nil {
		return domain.Team{}, translate(err, "select team", domain.ErrTeamNotFound, nil)
	}
	return row.toDomain(), nil
}

func (r *repo) GetTeam(ctx context.Context, teamID string) (domain.Team, error) {
	return r.selectTeam(ctx, teamID, false)
}

func (r *repo) LockTeam(ctx context.Context, teamID string) (domain.Team, error) {
	return r.selectTeam(ctx, teamID, true)
}

func (r *repo) ListTeams(ctx context.Context) ([]domain.Team, error) {
	var rows []teamRow
	if err := r.db.NewSelect().Model(&rows).OrderExpr("t.created_at ASC, t.team_code ASC").Scan(ctx); err != nil {
		return nil, translate(err, "list teams", nil, nil)
	}
	out := make([]domain.Team, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *repo) ListMembers(ctx context.Context, teamID string) ([]domain.TeamMember, error) {
	var rows []teamMemberRow
	if err := r.db.NewSelect().Model(&rows).Where("tm.team_id = ?", teamID).OrderExpr("tm.name ASC").Scan(ctx); err != nil {
		return nil, translate(err, "list members", domain.ErrTeamNotFound, nil)
	}
	out := make([]domain.TeamMember, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.TeamMember{ID: row.ID, TeamID: row.TeamID, Name: row.Name})
	}
	return out, nil
}

func (r *repo) UpdateTeam(ctx context.Context, team domain.Team) error {
	res, err := r.db.NewUpdate().
		Model(newTeamRow(team)).
		Column("team_name", "current_position", "current_room", "status", "can_roll_dice", "map_id", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return translate(err, "update team", domain.ErrTeamNotFound, nil)
	}
	return affected(res, domain.ErrTeamNotFound)
}

func (r *repo) AddTeamTime(ctx context.Context, teamID string, delta int) (int, error) {
	var total int
	err := r.db.NewUpdate().
		Model((*teamRow)(nil)).
		Set("total_time_seconds = total_time_seconds + ?", delta).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", teamID).
		Returning("total_time_seconds").
		Scan(ctx, &total)
	if err != nil {
		return 0, translate(err, "add team time", domain.ErrTeamNotFound, nil)
	}
	return total, nil
}

func (r *repo) AddTeamScore(ctx context.Context, teamID string, delta int) error {
	res, err := r.db.NewUpdate().
		Model((*teamRow)(nil)).
		Set("score = score + ?", delta).
		Where("id = ?", teamID).
		Exec(ctx)
	if err != nil {
		return translate(err, "add team score", domain.ErrTeamNotFound, nil)
	}
	return affected(res, domain.ErrTeamNotFound)
}

func (r *repo) CountTeamsOnMap(ctx context.Context, mapID string) (int, error) {
	n, err := r.db.NewSelect().Model((*teamRow)(nil)).Where("t.map_id = ?", mapID).Count(ctx)
	if err != nil {
		return 0, translate(err, "count teams on map", domain.ErrMapNotFound, nil)
	}
	return n, nil
}

// Checkpoints and dice rolls.

func (r *repo) CreateCheckpoint(ctx context.Context, cp *domain.Checkpoint) error {
	_, err := r.db.NewInsert().Model(newCheckpointRow(*cp)).Exec(ctx)
	return translate(err, "insert checkpoint", nil, domain.ErrTeamNotFound)
}

func (r *repo) selectCheckpoint(ctx context.Context, checkpointID string, lock bool) (domain.Checkpoint, error) {
	var row checkpointRow
	q := r.db.NewSelect().Model(&row).Where("c.id = ?", checkpointID)
	if lock {
		q = q.For("UPDATE")
	}
	if err := q.Scan(ctx); err != nil {
		return domain.Checkpoint{}, translate(err, "select checkpoint", domain.ErrCheckpointNotFound, nil)
	}
	return row.toDomain(), nil
}

func (r *repo) GetCheckpoint(ctx context.Context, checkpointID string) (domain.Checkpoint, error) {
	return r.selectCheckpoint(ctx, checkpointID, false)
}

func (r *repo) LockCheckpoint(ctx context.Context, checkpointID string) (domain.Checkpoint, error) {
	return r.selectCheckpoint(ctx, checkpointID, true)
}

func (r *repo) UpdateCheckpoint(ctx context.Context, cp domain.Checkpoint) error {
	res, err := r.db.NewUpdate().
		Model(newCheckpointRow(cp)).
		Column("status", "snake_dodge_attempted", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return translate(err, "update checkpoint", domain.ErrCheckpointNotFound, nil)
	}
	return affected(res, domain.ErrCheckpointNotFound)
}

func (r *repo) DeleteCheckpoint(ctx context.Context, checkpointID string) error {
	res, err := r.db.NewDelete().Model((*checkpointRow)(nil)).Where("id = ?", checkpointID).Exec(ctx)
	if err != nil {
		return translate(err, "delete checkpoint", domain.ErrCheckpointNotFound, nil)
	}
	return affected(res, domain.ErrCheckpointNotFound)
}

func (r *repo) listCheckpoints(ctx context.Context, q *bun.SelectQuery, rows *[]checkpointRow) ([]domain.Checkpoint, error) {
	if err := q.Scan(ctx); err != nil {
		return nil, translate(err, "list checkpoints", domain.ErrTeamNotFound, nil)
	}
	out := make([]domain.Checkpoint, 0, len(*rows))
	for _, row := range *rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *repo) ListCheckpoints(ctx context.Context, teamID string) ([]domain.Checkpoint, error) {
	var rows []checkpointRow
	q := r.db.NewSelect().Model(&rows).Where("c.team_id = ?", teamID).OrderExpr("c.checkpoint_number ASC")
	return r.listCheckpoints(ctx, q, &rows)
}

func (r *repo) ListPendingCheckpoints(ctx context.Context) ([]domain.Checkpoint, error) {
	var rows []checkpointRow
	q := r.db.NewSelect().Model(&rows).
		Where("c.status = ?", string(domain.CheckpointPending)).
		OrderExpr("c.created_at ASC, c.id ASC")
	return r.listCheckpoints(ctx, q, &rows)
}

func (r *repo) FindCheckpointByNumber(ctx context.Context, teamID string, number int) (domain.Checkpoint, error) {
	var row checkpointRow
	err := r.db.NewSelect().Model(&row).
		Where("c.team_id = ?", teamID).
		Where("c.checkpoint_number = ?", number).
		Scan(ctx)
	if err != nil {
		return domain.Checkpoint{}, translate(err, "find checkpoint", domain.ErrCheckpointNotFound, nil)
	}
	return row.toDomain(), nil
}

func (r *repo) PreviousCheckpoint(ctx context.Context, teamID string, number int) (domain.Checkpoint, error) {
	var row checkpointRow
	err := r.db.NewSelect().Model(&row).
		Where("c.team_id = ?", teamID).
		Where("c.checkpoint_number < ?", number).
		OrderExpr("c.checkpoint_number DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		return domain.Checkpoint{}, translate(err, "previous checkpoint", domain.ErrCheckpointNotFound, nil)
	}
	return row.toDomain(), nil
}

func (r *repo) MaxCheckpointNumber(ctx context.Context, teamID string) (int, error) {
	var n int
	err := r.db.NewSelect().
		Model((*checkpointRow)(nil)).
		ColumnExpr("COALESCE(MAX(c.checkpoint_number), 0)").
		Where("c.team_id = ?", teamID).
		Scan(ctx, &n)
	if err != nil {
		return 0, translate(err, "max checkpoint number", domain.ErrTeamNotFound, nil)
	}
	return n, nil
}

func (r *repo) CountPendingCheckpoints(ctx context.Context, teamID string) (int, error) {
	n, err := r.db.NewSelect().
		Model((*checkpointRow)(nil)).
		Where("c.team_id = ?", teamID).
		Where("c.status = ?", string(domain.CheckpointPending)).
		Count(ctx)
	if err != nil {
		return 0, translate(err, "count pending checkpoints", domain.ErrTeamNotFound, nil)
	}
	return n, nil
}

func (r *repo) CreateDiceRoll(ctx context.Context, roll *domain.DiceRoll) error {
	_, err := r.db.NewInsert().Model(&diceRollRow{
		ID:           roll.ID,
		TeamID:       roll.TeamID,
		Value:        roll.Value,
		PositionFrom: roll.PositionFrom,
		PositionTo:   roll.PositionTo,
		RoomAssigned: roll.RoomAssigned,
		CreatedAt:    roll.CreatedAt,
	}).Exec(ctx)
	return translate(err, "insert dice roll", nil, domain.ErrTeamNotFound)
}

func (r *repo) ListDiceRolls(ctx context.Context, teamID string) ([]domain.DiceRoll, error) {
	var rows []diceRollRow
	if err := r.db.NewSelect().Model(&rows).Where("dr.team_id = ?", teamID).OrderExpr("dr.created_at ASC").Scan(ctx); err != nil {
		return nil, translate(err, "list dice rolls", domain.ErrTeamNotFound, nil)
	}
	out := make([]domain.DiceRoll, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.DiceRoll{
			ID:           row.ID,
			TeamID:       row.TeamID,
			Value:        row.Value,
			PositionFrom: row.PositionFrom,
			PositionTo:   row.PositionTo,
			RoomAssigned: row.RoomAssigned,
			CreatedAt:    row.CreatedAt,
		})
	}
	return out, nil
}

// Timer ledger.

func (r *repo) CreateTimeLog(ctx context.Context, entry *domain.TimeLog) error {
	_, err := r.db.NewInsert().Model(&timeLogRow{
		ID:        entry.ID,
		TeamID:    entry.TeamID,
		Seconds:   entry.Seconds,
		Reason:    entry.Reason,
		CreatedAt: entry.CreatedAt,
	}).Exec(ctx)
	return translate(err, "insert time log", nil, domain.ErrTeamNotFound)
}

func (r *repo) ListTimeLogs(ctx context.Context, teamID string) ([]domain.TimeLog, error) {
	var rows []timeLogRow
	if err := r.db.NewSelect().Model(&rows).Where("tl.team_id = ?", teamID).OrderExpr("tl.created_at ASC").Scan(ctx); err != nil {
		return nil, translate(err, "list time logs", domain.ErrTeamNotFound, nil)
	}
	out := make([]domain.TimeLog, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.TimeLog{
			ID:        row.ID,
			TeamID:    row.TeamID,
			Seconds:   row.Seconds,
			Reason:    row.Reason,
			CreatedAt: row.CreatedAt,
		})
	}
	return out, nil
}
