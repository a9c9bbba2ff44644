package app

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"snakes-hunt-service/internal/domain"
	"snakes-hunt-service/internal/game"
)

// BoardState is the board as a team sees it.
type BoardState struct {
	BoardSize int         `json:"boardSize"`
	MapID     string      `json:"mapId,omitempty"`
	MapName   string      `json:"mapName,omitempty"`
	Snakes    map[int]int `json:"snakes"`
	Ladders   map[int]int `json:"ladders"`
}

// BoardService manages board maps and their rules.
type BoardService struct {
	store Store
	rules BoardRules
	now   func() time.Time
}

func NewBoardService(store Store, rules BoardRules) *BoardService {
	return &BoardService{store: store, rules: rules, now: time.Now}
}

func (s *BoardService) CreateMap(ctx context.Context, name string) (domain.BoardMap, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.BoardMap{}, domain.NewPrecondition("map name is required")
	}
	m := domain.BoardMap{ID: uuid.NewString(), Name: name, IsActive: true, CreatedAt: s.now()}
	if err := s.store.CreateMap(ctx, &m); err != nil {
		return domain.BoardMap{}, err
	}
	return m, nil
}

func (s *BoardService) ListMaps(ctx context.Context) ([]domain.BoardMapSummary, error) {
	return s.store.ListMaps(ctx)
}

// GetMap returns a map with its rules ordered by start position.
func (s *BoardService) GetMap(ctx context.Context, mapID string) (domain.BoardMap, error) {
	m, err := s.store.GetMap(ctx, mapID)
	if err != nil {
		return domain.BoardMap{}, err
	}
	if m.Rules, err = s.store.RulesByMap(ctx, mapID); err != nil {
		return domain.BoardMap{}, err
	}
	return m, nil
}

// DeleteMap removes a map no team is bound to.
func (s *BoardService) DeleteMap(ctx context.Context, mapID string) error {
	err := s.store.InTx(ctx, func(ctx context.Context, repo Repository) error {
		if _, err := repo.GetMap(ctx, mapID); err != nil {
			return err
		}
		bound, err := repo.CountTeamsOnMap(ctx, mapID)
		if err != nil {
			return err
		}
		if bound > 0 {
			return domain.ErrMapInUse
		}
		return repo.DeleteMap(ctx, mapID)
	})
	if err != nil {
		return err
	}
	return s.rules.Invalidate(ctx, mapID)
}

func (s *BoardService) AddRule(ctx context.Context, mapID string, ruleType domain.RuleType, start, end int) (domain.BoardRule, error) {
	if err := game.ValidateRule(ruleType, start, end); err != nil {
		return domain.BoardRule{}, err
	}
	if _, err := s.store.GetMap(ctx, mapID); err != nil {
		return domain.BoardRule{}, err
	}
	rule := domain.BoardRule{
		ID:       uuid.NewString(),
		MapID:    mapID,
		Type:     ruleType,
		StartPos: start,
		EndPos:   end,
	}
	if err := s.store.CreateRule(ctx, &rule); err != nil {
		return domain.BoardRule{}, err
	}
	return rule, s.rules.Invalidate(ctx, mapID)
}

// AddSnake is AddRule for the common case.
func (s *BoardService) AddSnake(ctx context.Context, mapID string, start, end int) (domain.BoardRule, error) {
	return s.AddRule(ctx, mapID, domain.RuleSnake, start, end)
}

func (s *BoardService) RemoveRule(ctx context.Context, ruleID string) error {
	rule, err := s.store.GetRule(ctx, ruleID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteRule(ctx, ruleID); err != nil {
		return err
	}
	return s.rules.Invalidate(ctx, rule.MapID)
}

// StateForTeam renders the team's own board. A team with no map sees an
// empty board.
func (s *BoardService) StateForTeam(ctx context.Context, teamID string) (BoardState, error) {
	team, err := s.store.GetTeam(ctx, teamID)
	if err != nil {
		return BoardState{}, err
	}
	state := BoardState{BoardSize: game.BoardSize, Snakes: map[int]int{}, Ladders: map[int]int{}}
	if team.MapID == "" {
		return state, nil
	}
	m, err := s.store.GetMap(ctx, team.MapID)
	if err != nil {
		return BoardState{}, err
	}
	rules, err := s.rules.Rules(ctx, team.MapID)
	if err != nil {
		return BoardState{}, err
	}
	state.MapID = m.ID
	state.MapName = m.Name
	for _, rule := range rules {
		switch rule.Type {
		case domain.RuleSnake:
			state.Snakes[rule.StartPos] = rule.EndPos
		case domain.RuleLadder:
			state.Ladders[rule.StartPos] = rule.EndPos
		}
	}
	return state, nil
}
