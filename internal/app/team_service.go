package app

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"snakes-hunt-service/internal/domain"
	"snakes-hunt-service/internal/game"
)

const (
	passwordAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghjkmnpqrstuvwxyz23456789"
	passwordLength   = 8
	teamCodeAttempts = 20
	dashboardHistory = 5
	minTeamPassword  = 4
)

var errShortTeamPassword = domain.NewPrecondition("password must be at least 4 characters")

// NewTeamInput is what an organiser supplies to register a team.
type NewTeamInput struct {
	Name     string   `json:"teamName"`
	Members  []string `json:"members"`
	Password string   `json:"password"`
	MapID    string   `json:"mapId"`
}

// CreatedTeam carries the plaintext password, shown exactly once.
type CreatedTeam struct {
	Team     domain.Team         `json:"team"`
	Members  []domain.TeamMember `json:"members"`
	Password string              `json:"password"`
}

// TeamOverview is the admin list row.
type TeamOverview struct {
	domain.Team
	LatestCheckpoint *domain.Checkpoint `json:"latestCheckpoint"`
}

// TeamDetail is the full audit view of a team.
type TeamDetail struct {
	Team        domain.Team         `json:"team"`
	Members     []domain.TeamMember `json:"members"`
	Checkpoints []domain.Checkpoint `json:"checkpoints"`
	DiceRolls   []domain.DiceRoll   `json:"diceRolls"`
	TimeLogs    []domain.TimeLog    `json:"timeLogs"`
}

// Dashboard is the participant landing view.
type Dashboard struct {
	Team              domain.Team         `json:"team"`
	Members           []domain.TeamMember `json:"members"`
	RecentCheckpoints []domain.Checkpoint `json:"recentCheckpoints"`
	Board             BoardState          `json:"board"`
}

// LeaderboardEntry is one ranked team.
type LeaderboardEntry struct {
	Rank         int               `json:"rank"`
	TeamID       string            `json:"teamId"`
	Code         string            `json:"teamCode"`
	Name         string            `json:"teamName"`
	Position     int               `json:"position"`
	TotalTimeSec int               `json:"totalTimeSeconds"`
	Score        int               `json:"score"`
	Status       domain.TeamStatus `json:"status"`
}

// TeamService registers teams and serves team read models.
type TeamService struct {
	store  Store
	hasher PasswordHasher
	board  *BoardService
	rnd    game.Randomizer
	now    func() time.Time
	log    logrus.FieldLogger
}

func NewTeamService(store Store, hasher PasswordHasher, board *BoardService, log logrus.FieldLogger) *TeamService {
	return &TeamService{
		store:  store,
		hasher: hasher,
		board:  board,
		rnd:    game.NewRand(),
		now:    time.Now,
		log:    log,
	}
}

// CreateTeam registers a team with its participant account. The team code is
// regenerated when it collides with an existing one.
func (s *TeamService) CreateTeam(ctx context.Context, in NewTeamInput) (CreatedTeam, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return CreatedTeam{}, domain.NewPrecondition("team name is required")
	}
	if in.MapID != "" {
		if _, err := s.store.GetMap(ctx, in.MapID); err != nil {
			return CreatedTeam{}, err
		}
	}
	password := in.Password
	if password != "" && len(password) < minTeamPassword {
		return CreatedTeam{}, errShortTeamPassword
	}
	if password == "" {
		var err error
		if password, err = GeneratePassword(); err != nil {
			return CreatedTeam{}, err
		}
	}
	hash, err := s.hasher.HashPassword(password)
	if err != nil {
		return CreatedTeam{}, fmt.Errorf("hash team password: %w", err)
	}

	for attempt := 0; attempt < teamCodeAttempts; attempt++ {
		created, err := s.insertTeam(ctx, name, in, hash)
		if errors.Is(err, domain.ErrDuplicate) {
			continue
		}
		if err != nil {
			return CreatedTeam{}, err
		}
		created.Password = password
		s.log.WithFields(logrus.Fields{"team_id": created.Team.ID, "team_code": created.Team.Code}).Info("team created")
		return created, nil
	}
	return CreatedTeam{}, domain.NewConflict("could not allocate a unique team code")
}

func (s *TeamService) insertTeam(ctx context.Context, name string, in NewTeamInput, hash string) (CreatedTeam, error) {
	now := s.now()
	team := domain.Team{
		ID:              uuid.NewString(),
		Code:            fmt.Sprintf("TEAM%04d", s.rnd.Intn(10000)),
		Name:            name,
		CurrentPosition: game.StartPosition,
		CurrentRoom:     game.PickAnyRoom(s.rnd),
		Status:          domain.TeamActive,
		CanRollDice:     true,
		MapID:           in.MapID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	members := make([]domain.TeamMember, 0, len(in.Members))
	for _, m := range in.Members {
		if m = strings.TrimSpace(m); m != "" {
			members = append(members, domain.TeamMember{ID: uuid.NewString(), TeamID: team.ID, Name: m})
		}
	}
	err := s.store.InTx(ctx, func(ctx context.Context, repo Repository) error {
		if err := repo.CreateTeam(ctx, &team, members); err != nil {
			return err
		}
		return repo.CreateAccount(ctx, &domain.Account{
			ID:           uuid.NewString(),
			Username:     team.Code,
			PasswordHash: hash,
			Role:         domain.RoleParticipant,
			TeamID:       team.ID,
			CreatedAt:    now,
		})
	})
	if err != nil {
		return CreatedTeam{}, err
	}
	return CreatedTeam{Team: team, Members: members}, nil
}

// UpdatePassword replaces a team's login password.
func (s *TeamService) UpdatePassword(ctx context.Context, teamID, password string) error {
	if len(password) < minTeamPassword {
		return errShortTeamPassword
	}
	account, err := s.store.GetAccountByTeam(ctx, teamID)
	if err != nil {
		return err
	}
	hash, err := s.hasher.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash team password: %w", err)
	}
	return s.store.UpdateAccountPassword(ctx, account.ID, hash)
}

// ListTeams returns every team with its most recent checkpoint.
func (s *TeamService) ListTeams(ctx context.Context) ([]TeamOverview, error) {
	teams, err := s.store.ListTeams(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]TeamOverview, 0, len(teams))
	for _, team := range teams {
		row := TeamOverview{Team: team}
		last, err := s.store.MaxCheckpointNumber(ctx, team.ID)
		if err != nil {
			return nil, err
		}
		if last > 0 {
			cp, err := s.store.FindCheckpointByNumber(ctx, team.ID, last)
			if err != nil {
				return nil, err
			}
			row.LatestCheckpoint = &cp
		}
		out = append(out, row)
	}
	return out, nil
}

func (s *TeamService) Team(ctx context.Context, teamID string) (domain.Team, error) {
	return s.store.GetTeam(ctx, teamID)
}

func (s *TeamService) Detail(ctx context.Context, teamID string) (TeamDetail, error) {
	team, err := s.store.GetTeam(ctx, teamID)
	if err != nil {
		return TeamDetail{}, err
	}
	detail := TeamDetail{Team: team}
	if detail.Members, err = s.store.ListMembers(ctx, teamID); err != nil {
		return TeamDetail{}, err
	}
	if detail.Checkpoints, err = s.store.ListCheckpoints(ctx, teamID); err != nil {
		return TeamDetail{}, err
	}
	if detail.DiceRolls, err = s.store.ListDiceRolls(ctx, teamID); err != nil {
		return TeamDetail{}, err
	}
	if detail.TimeLogs, err = s.store.ListTimeLogs(ctx, teamID); err != nil {
		return TeamDetail{}, err
	}
	return detail, nil
}

// Checkpoints lists a team's checkpoints in ascending order.
func (s *TeamService) Checkpoints(ctx context.Context, teamID string) ([]domain.Checkpoint, error) {
	if _, err := s.store.GetTeam(ctx, teamID); err != nil {
		return nil, err
	}
	return s.store.ListCheckpoints(ctx, teamID)
}

func (s *TeamService) PendingCheckpoints(ctx context.Context) ([]domain.Checkpoint, error) {
	return s.store.ListPendingCheckpoints(ctx)
}

func (s *TeamService) Dashboard(ctx context.Context, teamID string) (Dashboard, error) {
	team, err := s.store.GetTeam(ctx, teamID)
	if err != nil {
		return Dashboard{}, err
	}
	dash := Dashboard{Team: team}
	if dash.Members, err = s.store.ListMembers(ctx, teamID); err != nil {
		return Dashboard{}, err
	}
	checkpoints, err := s.store.ListCheckpoints(ctx, teamID)
	if err != nil {
		return Dashboard{}, err
	}
	dash.RecentCheckpoints = make([]domain.Checkpoint, 0, dashboardHistory)
	for i := len(checkpoints) - 1; i >= 0 && len(dash.RecentCheckpoints) < dashboardHistory; i-- {
		dash.RecentCheckpoints = append(dash.RecentCheckpoints, checkpoints[i])
	}
	if dash.Board, err = s.board.StateForTeam(ctx, teamID); err != nil {
		return Dashboard{}, err
	}
	return dash, nil
}

// Leaderboard ranks teams by position, then lowest time, then highest score.
// Disqualified teams always rank last.
func (s *TeamService) Leaderboard(ctx context.Context) ([]LeaderboardEntry, error) {
	teams, err := s.store.ListTeams(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(teams, func(i, j int) bool {
		a, b := teams[i], teams[j]
		aOut, bOut := a.Status == domain.TeamDisqualified, b.Status == domain.TeamDisqualified
		if aOut != bOut {
			return bOut
		}
		if a.CurrentPosition != b.CurrentPosition {
			return a.CurrentPosition > b.CurrentPosition
		}
		if a.TotalTimeSec != b.TotalTimeSec {
			return a.TotalTimeSec < b.TotalTimeSec
		}
		return a.Score > b.Score
	})
	out := make([]LeaderboardEntry, 0, len(teams))
	for i, team := range teams {
		out = append(out, LeaderboardEntry{
			Rank:         i + 1,
			TeamID:       team.ID,
			Code:         team.Code,
			Name:         team.Name,
			Position:     team.CurrentPosition,
			TotalTimeSec: team.TotalTimeSec,
			Score:        team.Score,
			Status:       team.Status,
		})
	}
	return out, nil
}

// GeneratePassword draws a password from an alphabet without look-alike
// characters.
func GeneratePassword() (string, error) {
	var b strings.Builder
	limit := big.NewInt(int64(len(passwordAlphabet)))
	for i := 0; i < passwordLength; i++ {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("generate password: %w", err)
		}
		b.WriteByte(passwordAlphabet[n.Int64()])
	}
	return b.String(), nil
}
